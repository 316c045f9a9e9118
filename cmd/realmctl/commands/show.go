package commands

import (
	"context"
	"os"

	"github.com/spf13/cobra"

	"github.com/MalloZup/realmd/cmd/realmctl/cmdutil"
)

var showCmd = &cobra.Command{
	Use:   "show <realm>",
	Short: "Show details of a known realm",
	Long: `Show the daemon's full view of a single realm, including the
supported credential types and discovery details.

Examples:
  realmctl show ad.example.com
  realmctl show -o json ad.example.com`,
	Args: cobra.ExactArgs(1),
	RunE: runShow,
}

func runShow(cmd *cobra.Command, args []string) error {
	client, err := cmdutil.GetClient()
	if err != nil {
		return err
	}

	info, err := client.GetRealm(context.Background(), args[0])
	if err != nil {
		return err
	}

	return cmdutil.PrintOutput(os.Stdout, info, false, "", RealmList{*info})
}
