// Package context implements context management subcommands for realmctl.
package context

import (
	"github.com/spf13/cobra"
)

// Cmd is the context subcommand.
var Cmd = &cobra.Command{
	Use:   "context",
	Short: "Manage daemon contexts",
	Long: `Manage connection contexts for multiple realmd daemons.

Contexts allow you to save and switch between different daemon endpoints,
similar to kubectl contexts. Without any stored context, realmctl talks
to the daemon's loopback listener.

Subcommands:
  list     List all configured contexts
  set      Create or update a context
  use      Switch to a different context
  current  Show current context
  delete   Delete a context`,
}

func init() {
	Cmd.AddCommand(listCmd)
	Cmd.AddCommand(setCmd)
	Cmd.AddCommand(useCmd)
	Cmd.AddCommand(currentCmd)
	Cmd.AddCommand(deleteCmd)
}
