package context

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/MalloZup/realmd/cmd/realmctl/cmdutil"
	"github.com/MalloZup/realmd/internal/cli/credentials"
)

var (
	setServer string
	setToken  string
)

var setCmd = &cobra.Command{
	Use:   "set <name>",
	Short: "Create or update a context",
	Long: `Create or update a named context.

The first context created becomes the current one.

Examples:
  # Point a context at a remote daemon
  realmctl context set lab --server https://lab.example.com:8815 --token eyJ...`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := credentials.NewStore()
		if err != nil {
			return err
		}

		name := args[0]
		ctx := &credentials.Context{ServerURL: setServer, Token: setToken}
		if err := store.SetContext(name, ctx); err != nil {
			return err
		}

		cmdutil.PrintSuccess(fmt.Sprintf("Context %q saved", name))
		return nil
	},
}

func init() {
	setCmd.Flags().StringVar(&setServer, "server", "", "Daemon URL (required)")
	setCmd.Flags().StringVar(&setToken, "token", "", "Bearer token")
	_ = setCmd.MarkFlagRequired("server")
}
