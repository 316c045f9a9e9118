package commands

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/MalloZup/realmd/cmd/realmctl/cmdutil"
	"github.com/MalloZup/realmd/internal/cli/prompt"
	"github.com/MalloZup/realmd/pkg/api"
	"github.com/MalloZup/realmd/pkg/realm/credential"
)

var (
	leaveUser        string
	leaveCCache      string
	leaveDeconfigure bool
	leaveYes         bool
)

var leaveCmd = &cobra.Command{
	Use:   "leave [realm]",
	Short: "Leave a realm",
	Long: `Unenroll this machine from a domain.

By default the computer account is deleted from the domain, which may
prompt for an administrative password. Use --deconfigure to remove only
the local configuration without contacting the domain.

With no argument, the single configured realm is left. Both forms ask
for confirmation; pass --yes to skip the prompt.

Examples:
  # Leave the configured realm
  realmctl leave

  # Leave a specific realm as a specific user
  realmctl leave --user admin@AD.EXAMPLE.COM ad.example.com

  # Remove local configuration only
  realmctl leave --deconfigure ad.example.com`,
	Args: cobra.MaximumNArgs(1),
	RunE: runLeave,
}

func init() {
	leaveCmd.Flags().StringVarP(&leaveUser, "user", "U", "", "User name to authenticate with")
	leaveCmd.Flags().StringVar(&leaveCCache, "use-ccache", "", "Kerberos credential cache file to authenticate with")
	leaveCmd.Flags().BoolVar(&leaveDeconfigure, "deconfigure", false, "Remove local configuration without contacting the domain")
	leaveCmd.Flags().BoolVarP(&leaveYes, "yes", "y", false, "Leave without asking for confirmation")
	leaveCmd.MarkFlagsMutuallyExclusive("user", "use-ccache", "deconfigure")
}

func runLeave(cmd *cobra.Command, args []string) error {
	client, err := cmdutil.GetClient()
	if err != nil {
		return err
	}

	ctx := context.Background()

	name := ""
	if len(args) > 0 {
		name = args[0]
	}
	name, err = resolveRealmName(ctx, client, name)
	if err != nil {
		return err
	}

	question := fmt.Sprintf("Leave realm %s?", name)
	if leaveDeconfigure {
		question = fmt.Sprintf("Remove the local configuration for realm %s?", name)
	}
	ok, err := prompt.ConfirmWithForce(question, leaveYes)
	if err != nil {
		return cmdutil.HandleAbort(err)
	}
	if !ok {
		return nil
	}

	if leaveDeconfigure {
		if err := client.Deconfigure(ctx, name, api.DeconfigureRequest{}); err != nil {
			return err
		}
		cmdutil.PrintSuccess(fmt.Sprintf("Deconfigured realm %s", name))
		return nil
	}

	cred := credential.Input{Kind: "automatic"}
	switch {
	case leaveCCache != "":
		cred = credential.Input{Kind: "ccache", Path: leaveCCache}
	case leaveUser != "":
		password, err := prompt.Password(fmt.Sprintf("Password for %s", leaveUser))
		if err != nil {
			return cmdutil.HandleAbort(err)
		}
		cred = credential.Input{Kind: "password", Name: leaveUser, Secret: []byte(password)}
	}

	if err := client.Leave(ctx, name, api.LeaveRequest{Credential: cred}); err != nil {
		return err
	}

	cmdutil.PrintSuccess(fmt.Sprintf("Left realm %s", name))
	return nil
}
