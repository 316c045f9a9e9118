package commands

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/MalloZup/realmd/cmd/realmctl/cmdutil"
	"github.com/MalloZup/realmd/internal/cli/prompt"
	"github.com/MalloZup/realmd/pkg/api"
	"github.com/MalloZup/realmd/pkg/provider"
	"github.com/MalloZup/realmd/pkg/realm/credential"
)

var (
	joinUser           string
	joinOTP            string
	joinCCache         string
	joinNoPassword     bool
	joinComputerOU     string
	joinMembershipSoft string
	joinAssumePackages bool
)

var joinCmd = &cobra.Command{
	Use:   "join [realm-or-domain]",
	Short: "Join this machine to a realm",
	Long: `Enroll this machine in an Active Directory or FreeIPA domain.

The realm is discovered first, then the daemon drives the membership
software to create the computer account. With no credential flags you
are prompted for the administrator password.

Examples:
  # Join with an administrative account (prompts for password)
  realmctl join ad.example.com

  # Join as a specific user
  realmctl join --user admin@AD.EXAMPLE.COM ad.example.com

  # Join with a pre-created computer account (one-time password)
  realmctl join --one-time-password s3cr3t ad.example.com

  # Join using an existing Kerberos ticket cache
  realmctl join --use-ccache /tmp/krb5cc_0 ad.example.com

  # Place the computer account in a specific OU
  realmctl join --computer-ou "OU=Servers,DC=ad,DC=example,DC=com" ad.example.com`,
	Args: cobra.MaximumNArgs(1),
	RunE: runJoin,
}

func init() {
	joinCmd.Flags().StringVarP(&joinUser, "user", "U", "", "User name to authenticate with")
	joinCmd.Flags().StringVar(&joinOTP, "one-time-password", "", "One-time password of a pre-created computer account")
	joinCmd.Flags().StringVar(&joinCCache, "use-ccache", "", "Kerberos credential cache file to authenticate with")
	joinCmd.Flags().BoolVar(&joinNoPassword, "no-password", false, "Join without authenticating")
	joinCmd.Flags().StringVar(&joinComputerOU, "computer-ou", "", "Distinguished name of the OU for the computer account")
	joinCmd.Flags().StringVar(&joinMembershipSoft, "membership-software", "", "Require a specific membership software (samba|sssd)")
	joinCmd.Flags().BoolVar(&joinAssumePackages, "assume-packages", false, "Assume required packages are installed")
	joinCmd.MarkFlagsMutuallyExclusive("one-time-password", "use-ccache", "no-password", "user")
}

func runJoin(cmd *cobra.Command, args []string) error {
	client, err := cmdutil.GetClient()
	if err != nil {
		return err
	}

	name := ""
	if len(args) > 0 {
		name = args[0]
	}

	ctx := context.Background()

	// Resolve the realm first so join targets the discovered name and the
	// password prompt can suggest the realm's administrative account.
	realms, err := client.Discover(ctx, name, false)
	if err != nil {
		return err
	}
	if len(realms) == 0 {
		if name == "" {
			return fmt.Errorf("no default domain discovered; specify a realm name")
		}
		return fmt.Errorf("no such realm found: %s", name)
	}
	target := realms[0]

	cred, err := joinCredential(target)
	if err != nil {
		return cmdutil.HandleAbort(err)
	}

	options := provider.Options{}
	if joinComputerOU != "" {
		options[provider.OptionComputerOU] = joinComputerOU
	}
	if joinMembershipSoft != "" {
		options[provider.OptionMembershipSoft] = joinMembershipSoft
	}
	if joinAssumePackages {
		options[provider.OptionAssumePackages] = "true"
	}

	if err := client.Join(ctx, target.Name, api.JoinRequest{Credential: cred, Options: options}); err != nil {
		return err
	}

	cmdutil.PrintSuccess(fmt.Sprintf("Joined realm %s", target.Name))
	return nil
}

func joinCredential(target api.RealmInfo) (credential.Input, error) {
	switch {
	case joinNoPassword:
		return credential.Input{Kind: "automatic"}, nil

	case joinOTP != "":
		return credential.Input{Kind: "secret", Secret: []byte(joinOTP)}, nil

	case joinCCache != "":
		return credential.Input{Kind: "ccache", Path: joinCCache}, nil

	default:
		user := joinUser
		if user == "" {
			user = target.SuggestedAdmin
		}
		if user == "" {
			user = "Administrator"
		}

		password, err := prompt.Password(fmt.Sprintf("Password for %s", user))
		if err != nil {
			return credential.Input{}, err
		}
		return credential.Input{Kind: "password", Name: user, Secret: []byte(password)}, nil
	}
}
