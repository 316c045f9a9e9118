package commands

import (
	"context"
	"fmt"

	"github.com/MalloZup/realmd/pkg/api"
	"github.com/MalloZup/realmd/pkg/apiclient"
)

// RealmList renders realms as a table.
type RealmList []api.RealmInfo

func (r RealmList) Headers() []string {
	return []string{"NAME", "TYPE", "CONFIGURED", "LOGIN POLICY", "DOMAIN"}
}

func (r RealmList) Rows() [][]string {
	rows := make([][]string, 0, len(r))
	for _, info := range r {
		configured := info.Configured
		if configured == "" {
			configured = "no"
		}
		rows = append(rows, []string{
			info.Name,
			info.Type,
			configured,
			info.LoginPolicy,
			info.DomainName,
		})
	}
	return rows
}

// resolveRealmName returns the named realm, or the single configured realm
// when name is empty.
func resolveRealmName(ctx context.Context, client *apiclient.Client, name string) (string, error) {
	if name != "" {
		return name, nil
	}

	realms, err := client.ListRealms(ctx, true)
	if err != nil {
		return "", err
	}

	switch len(realms) {
	case 0:
		return "", fmt.Errorf("no configured realm; specify a realm name")
	case 1:
		return realms[0].Name, nil
	default:
		return "", fmt.Errorf("more than one configured realm; specify a realm name")
	}
}
