package context

import (
	"os"
	"sort"

	"github.com/spf13/cobra"

	"github.com/MalloZup/realmd/cmd/realmctl/cmdutil"
	"github.com/MalloZup/realmd/internal/cli/credentials"
)

// contextRow is the wire shape for context listings.
type contextRow struct {
	Name      string `json:"name"`
	ServerURL string `json:"server_url"`
	Current   bool   `json:"current"`
}

// contextList renders contexts as a table.
type contextList []contextRow

func (c contextList) Headers() []string {
	return []string{"CURRENT", "NAME", "SERVER"}
}

func (c contextList) Rows() [][]string {
	rows := make([][]string, 0, len(c))
	for _, ctx := range c {
		marker := ""
		if ctx.Current {
			marker = "*"
		}
		rows = append(rows, []string{marker, ctx.Name, ctx.ServerURL})
	}
	return rows
}

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List all configured contexts",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := credentials.NewStore()
		if err != nil {
			return err
		}

		names := store.ListContexts()
		sort.Strings(names)

		current := store.GetCurrentContextName()
		rows := make(contextList, 0, len(names))
		for _, name := range names {
			ctx, err := store.GetContext(name)
			if err != nil {
				return err
			}
			rows = append(rows, contextRow{
				Name:      name,
				ServerURL: ctx.ServerURL,
				Current:   name == current,
			})
		}

		return cmdutil.PrintOutput(os.Stdout, rows, len(rows) == 0,
			"No contexts configured. realmctl talks to the local daemon.", rows)
	},
}
