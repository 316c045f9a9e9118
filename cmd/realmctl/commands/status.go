package commands

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/MalloZup/realmd/cmd/realmctl/cmdutil"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Check daemon health",
	Long: `Check that the realmd daemon is running and answering requests.

Examples:
  # Check the local daemon
  realmctl status

  # Check a remote daemon
  realmctl status --server http://host:8815`,
	Args: cobra.NoArgs,
	RunE: runStatus,
}

func runStatus(cmd *cobra.Command, args []string) error {
	client, err := cmdutil.GetClient()
	if err != nil {
		return err
	}

	if err := client.Health(context.Background()); err != nil {
		return fmt.Errorf("daemon is not reachable: %w", err)
	}

	cmdutil.PrintSuccess("Daemon is running.")
	return nil
}
