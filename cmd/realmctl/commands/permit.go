package commands

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/MalloZup/realmd/cmd/realmctl/cmdutil"
	"github.com/MalloZup/realmd/pkg/api"
)

var (
	permitRealm    string
	permitAll      bool
	permitWithdraw bool

	denyRealm string
	denyAll   bool
)

var permitCmd = &cobra.Command{
	Use:   "permit [login...]",
	Short: "Permit realm accounts to log in",
	Long: `Control which realm accounts may log into this machine.

Listing logins switches the realm to a permitted-only policy and adds
them. Use --withdraw to remove previously permitted logins, or --all to
allow any realm account.

Examples:
  # Permit specific accounts
  realmctl permit alice@ad.example.com bob@ad.example.com

  # Withdraw a previously permitted account
  realmctl permit --withdraw alice@ad.example.com

  # Allow any realm account
  realmctl permit --all

  # Target a specific realm
  realmctl permit --realm ad.example.com alice@ad.example.com`,
	RunE: runPermit,
}

var denyCmd = &cobra.Command{
	Use:   "deny",
	Short: "Deny realm accounts from logging in",
	Long: `Deny all realm accounts from logging into this machine.

Examples:
  # Deny all realm accounts
  realmctl deny --all

  # Target a specific realm
  realmctl deny --all --realm ad.example.com`,
	Args: cobra.NoArgs,
	RunE: runDeny,
}

func init() {
	permitCmd.Flags().StringVarP(&permitRealm, "realm", "R", "", "Realm to change (default: the single configured realm)")
	permitCmd.Flags().BoolVarP(&permitAll, "all", "a", false, "Permit any realm account")
	permitCmd.Flags().BoolVarP(&permitWithdraw, "withdraw", "x", false, "Withdraw the listed logins instead of adding them")
	permitCmd.MarkFlagsMutuallyExclusive("all", "withdraw")

	denyCmd.Flags().StringVarP(&denyRealm, "realm", "R", "", "Realm to change (default: the single configured realm)")
	denyCmd.Flags().BoolVarP(&denyAll, "all", "a", false, "Deny any realm account")
}

func runPermit(cmd *cobra.Command, args []string) error {
	if permitAll && len(args) > 0 {
		return fmt.Errorf("--all takes no login arguments")
	}
	if !permitAll && len(args) == 0 {
		return fmt.Errorf("specify logins to permit, or --all")
	}

	client, err := cmdutil.GetClient()
	if err != nil {
		return err
	}

	ctx := context.Background()
	name, err := resolveRealmName(ctx, client, permitRealm)
	if err != nil {
		return err
	}

	req := api.LoginPolicyRequest{}
	if permitAll {
		req.LoginPolicy = "any"
	} else {
		req.LoginPolicy = "permitted"
		if permitWithdraw {
			req.Remove = args
		} else {
			req.Add = args
		}
	}

	if err := client.ChangeLoginPolicy(ctx, name, req); err != nil {
		return err
	}

	switch {
	case permitAll:
		cmdutil.PrintSuccess(fmt.Sprintf("Permitted all realm accounts on %s", name))
	case permitWithdraw:
		cmdutil.PrintSuccess(fmt.Sprintf("Withdrew %s on %s", strings.Join(args, ", "), name))
	default:
		cmdutil.PrintSuccess(fmt.Sprintf("Permitted %s on %s", strings.Join(args, ", "), name))
	}
	return nil
}

func runDeny(cmd *cobra.Command, args []string) error {
	if !denyAll {
		return fmt.Errorf("only --all is supported; per-login denial is expressed by withdrawing permits")
	}

	client, err := cmdutil.GetClient()
	if err != nil {
		return err
	}

	ctx := context.Background()
	name, err := resolveRealmName(ctx, client, denyRealm)
	if err != nil {
		return err
	}

	if err := client.ChangeLoginPolicy(ctx, name, api.LoginPolicyRequest{LoginPolicy: "deny"}); err != nil {
		return err
	}

	cmdutil.PrintSuccess(fmt.Sprintf("Denied all realm accounts on %s", name))
	return nil
}
