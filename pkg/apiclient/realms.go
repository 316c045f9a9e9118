package apiclient

import (
	"context"
	"fmt"
	"net/url"

	"github.com/MalloZup/realmd/internal/cli/health"
	"github.com/MalloZup/realmd/pkg/api"
)

// Discover resolves a domain or realm name against the daemon's providers.
// An empty name discovers the default domain. With all set, every matching
// realm is returned instead of only the winners.
func (c *Client) Discover(ctx context.Context, name string, all bool) ([]api.RealmInfo, error) {
	var resp api.DiscoverResponse
	err := c.post(ctx, "/api/v1/discover", api.DiscoverRequest{Name: name, All: all}, &resp)
	if err != nil {
		return nil, err
	}
	return resp.Realms, nil
}

// ListRealms returns the daemon's known realms. With configuredOnly set,
// only realms the machine is enrolled in are returned.
func (c *Client) ListRealms(ctx context.Context, configuredOnly bool) ([]api.RealmInfo, error) {
	path := "/api/v1/realms"
	if configuredOnly {
		path += "?configured=true"
	}

	var realms []api.RealmInfo
	if err := c.get(ctx, path, &realms); err != nil {
		return nil, err
	}
	return realms, nil
}

// GetRealm returns one known realm by name.
func (c *Client) GetRealm(ctx context.Context, name string) (*api.RealmInfo, error) {
	var realm api.RealmInfo
	if err := c.get(ctx, realmPath(name, ""), &realm); err != nil {
		return nil, err
	}
	return &realm, nil
}

// Join enrolls the machine in the named realm.
func (c *Client) Join(ctx context.Context, name string, req api.JoinRequest) error {
	return c.post(ctx, realmPath(name, "join"), req, nil)
}

// Leave unenrolls the machine from the named realm.
func (c *Client) Leave(ctx context.Context, name string, req api.LeaveRequest) error {
	return c.post(ctx, realmPath(name, "leave"), req, nil)
}

// Deconfigure removes local configuration for the named realm without
// contacting the domain.
func (c *Client) Deconfigure(ctx context.Context, name string, req api.DeconfigureRequest) error {
	return c.post(ctx, realmPath(name, "deconfigure"), req, nil)
}

// ChangeLoginPolicy changes who may log in through the named realm.
func (c *Client) ChangeLoginPolicy(ctx context.Context, name string, req api.LoginPolicyRequest) error {
	return c.post(ctx, realmPath(name, "login-policy"), req, nil)
}

// Health checks daemon liveness.
func (c *Client) Health(ctx context.Context) error {
	var resp health.Response
	if err := c.get(ctx, "/health", &resp); err != nil {
		return err
	}
	if resp.Status != "ok" {
		return fmt.Errorf("daemon is unhealthy: %s", resp.Error)
	}
	return nil
}

func realmPath(name, action string) string {
	path := "/api/v1/realms/" + url.PathEscape(name)
	if action != "" {
		path += "/" + action
	}
	return path
}
