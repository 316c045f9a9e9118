package commands

import (
	"context"
	"os"

	"github.com/spf13/cobra"

	"github.com/MalloZup/realmd/cmd/realmctl/cmdutil"
)

var discoverAll bool

var discoverCmd = &cobra.Command{
	Use:   "discover [realm-or-domain]",
	Short: "Discover realms on the network",
	Long: `Discover Kerberos realms reachable from this machine.

With no argument, the daemon probes the DHCP-assigned default domain.
With a name, it resolves that domain or realm against every back-end.

Examples:
  # Discover the default domain
  realmctl discover

  # Discover a specific domain
  realmctl discover ad.example.com

  # Show every back-end's view instead of only the best match
  realmctl discover --all ad.example.com`,
	Args: cobra.MaximumNArgs(1),
	RunE: runDiscover,
}

func init() {
	discoverCmd.Flags().BoolVar(&discoverAll, "all", false, "Show all matching realms, not only the winners")
}

func runDiscover(cmd *cobra.Command, args []string) error {
	client, err := cmdutil.GetClient()
	if err != nil {
		return err
	}

	name := ""
	if len(args) > 0 {
		name = args[0]
	}

	realms, err := client.Discover(context.Background(), name, discoverAll)
	if err != nil {
		return err
	}

	return cmdutil.PrintOutput(os.Stdout, realms, len(realms) == 0, "No realms discovered.", RealmList(realms))
}
