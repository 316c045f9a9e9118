package context

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/MalloZup/realmd/cmd/realmctl/cmdutil"
	"github.com/MalloZup/realmd/internal/cli/credentials"
	"github.com/MalloZup/realmd/internal/cli/prompt"
)

var useCmd = &cobra.Command{
	Use:   "use [name]",
	Short: "Switch to a different context",
	Long: `Switch to a named context.

With no argument, pick one interactively from the stored contexts.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := credentials.NewStore()
		if err != nil {
			return err
		}

		name := ""
		if len(args) > 0 {
			name = args[0]
		}
		if name == "" {
			names := store.ListContexts()
			if len(names) == 0 {
				return fmt.Errorf("no contexts configured; create one with 'realmctl context set'")
			}
			name, err = prompt.SelectString("Select context", names)
			if err != nil {
				return cmdutil.HandleAbort(err)
			}
		}

		if err := store.UseContext(name); err != nil {
			if errors.Is(err, credentials.ErrContextNotFound) {
				return fmt.Errorf("context %q not found", name)
			}
			return err
		}

		cmdutil.PrintSuccess(fmt.Sprintf("Switched to context %q", name))
		return nil
	},
}

var currentCmd = &cobra.Command{
	Use:   "current",
	Short: "Show current context",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := credentials.NewStore()
		if err != nil {
			return err
		}

		name := store.GetCurrentContextName()
		if name == "" {
			fmt.Println("No context selected. realmctl talks to the local daemon.")
			return nil
		}

		ctx, err := store.GetContext(name)
		if err != nil {
			return err
		}
		fmt.Printf("%s (%s)\n", name, ctx.ServerURL)
		return nil
	},
}

var deleteCmd = &cobra.Command{
	Use:   "delete <name>",
	Short: "Delete a context",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := credentials.NewStore()
		if err != nil {
			return err
		}

		name := args[0]
		if err := store.DeleteContext(name); err != nil {
			if errors.Is(err, credentials.ErrContextNotFound) {
				return fmt.Errorf("context %q not found", name)
			}
			return err
		}

		cmdutil.PrintSuccess(fmt.Sprintf("Context %q deleted", name))
		return nil
	},
}
