package prompt

import (
	"errors"
	"strings"

	"github.com/manifoldco/promptui"
)

// Confirm asks a yes/no question, defaulting to no. Returns ErrAborted on
// Ctrl+C.
func Confirm(label string) (bool, error) {
	prompt := promptui.Prompt{
		Label:     label + " [y/N]",
		IsConfirm: true,
	}

	result, err := prompt.Run()
	if err != nil {
		if errors.Is(err, promptui.ErrInterrupt) {
			return false, ErrAborted
		}
		// promptui reports a "n" answer as ErrAbort.
		if errors.Is(err, promptui.ErrAbort) {
			return false, nil
		}
		return false, err
	}

	answer := strings.ToLower(result)
	return answer == "y" || answer == "yes", nil
}

// ConfirmWithForce skips the prompt when force is set.
func ConfirmWithForce(label string, force bool) (bool, error) {
	if force {
		return true, nil
	}
	return Confirm(label)
}
