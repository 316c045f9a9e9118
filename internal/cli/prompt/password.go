package prompt

import (
	"github.com/manifoldco/promptui"
)

// Password asks for a masked password. Returns ErrAborted on Ctrl+C.
func Password(label string) (string, error) {
	prompt := promptui.Prompt{
		Label: label,
		Mask:  '*',
	}

	result, err := prompt.Run()
	return result, wrapError(err)
}
