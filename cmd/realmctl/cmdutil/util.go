// Package cmdutil provides shared utilities for realmctl commands.
package cmdutil

import (
	"fmt"
	"io"
	"os"

	"github.com/MalloZup/realmd/internal/cli/credentials"
	"github.com/MalloZup/realmd/internal/cli/output"
	"github.com/MalloZup/realmd/internal/cli/prompt"
	"github.com/MalloZup/realmd/pkg/apiclient"
)

// Flags stores global flag values accessible by subcommands.
var Flags = &GlobalFlags{}

// GlobalFlags holds the global flag values.
type GlobalFlags struct {
	ServerURL string
	Token     string
	Output    string
	NoColor   bool
	Verbose   bool
}

// GetClient returns an API client configured from flags and the stored
// context. The default context points at the daemon's loopback listener,
// which needs no token.
func GetClient() (*apiclient.Client, error) {
	if Flags.ServerURL != "" {
		client := apiclient.New(Flags.ServerURL)
		if Flags.Token != "" {
			client = client.WithToken(Flags.Token)
		}
		return client, nil
	}

	store, err := credentials.NewStore()
	if err != nil {
		return nil, fmt.Errorf("failed to initialize credential store: %w", err)
	}

	ctx, err := store.GetCurrentContext()
	if err != nil {
		return nil, fmt.Errorf("failed to load context: %w", err)
	}

	url := ctx.ServerURL
	if url == "" {
		url = credentials.DefaultServerURL
	}

	tok := ctx.Token
	if Flags.Token != "" {
		tok = Flags.Token
	}

	client := apiclient.New(url)
	if tok != "" {
		client = client.WithToken(tok)
	}
	return client, nil
}

// GetOutputFormatParsed returns the parsed output format.
func GetOutputFormatParsed() (output.Format, error) {
	return output.ParseFormat(Flags.Output)
}

// IsColorDisabled returns whether color output is disabled.
func IsColorDisabled() bool {
	return Flags.NoColor
}

// IsVerbose returns whether verbose output is enabled.
func IsVerbose() bool {
	return Flags.Verbose
}

// PrintOutput prints data in the specified format (JSON, YAML, or table).
// For table format, it displays emptyMsg if data is empty, otherwise uses the tableRenderer.
func PrintOutput(w io.Writer, data any, isEmpty bool, emptyMsg string, tableRenderer output.TableRenderer) error {
	format, err := GetOutputFormatParsed()
	if err != nil {
		return err
	}

	switch format {
	case output.FormatJSON:
		return output.PrintJSON(w, data)
	case output.FormatYAML:
		return output.PrintYAML(w, data)
	default:
		if isEmpty {
			_, _ = fmt.Fprintln(w, emptyMsg)
			return nil
		}
		return output.PrintTable(w, tableRenderer)
	}
}

// PrintSuccess prints a success message if the output format is table.
func PrintSuccess(msg string) {
	format, err := GetOutputFormatParsed()
	if err != nil || format != output.FormatTable {
		return
	}
	printer := output.NewPrinter(os.Stdout, !IsColorDisabled())
	printer.Success(msg)
}

// HandleAbort converts a prompt abort into a clean exit message.
func HandleAbort(err error) error {
	if prompt.IsAborted(err) {
		fmt.Println("\nAborted.")
		return nil
	}
	return err
}
