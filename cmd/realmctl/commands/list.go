package commands

import (
	"context"
	"os"

	"github.com/spf13/cobra"

	"github.com/MalloZup/realmd/cmd/realmctl/cmdutil"
)

var listAll bool

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List known realms",
	Long: `List the realms the daemon knows about.

By default only configured realms are shown. Use --all to include realms
that were discovered but not joined.

Examples:
  # List configured realms
  realmctl list

  # List every known realm
  realmctl list --all`,
	Args: cobra.NoArgs,
	RunE: runList,
}

func init() {
	listCmd.Flags().BoolVar(&listAll, "all", false, "Include realms that are not configured")
}

func runList(cmd *cobra.Command, args []string) error {
	client, err := cmdutil.GetClient()
	if err != nil {
		return err
	}

	realms, err := client.ListRealms(context.Background(), !listAll)
	if err != nil {
		return err
	}

	return cmdutil.PrintOutput(os.Stdout, realms, len(realms) == 0, "No realms.", RealmList(realms))
}
