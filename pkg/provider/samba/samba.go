// Package samba is the Samba/winbind back-end: it discovers Active
// Directory domains and joins or leaves them through the `net ads` tooling.
package samba

import (
	"context"
	"strings"
	"time"

	"github.com/MalloZup/realmd/pkg/command"
	"github.com/MalloZup/realmd/pkg/diag"
	"github.com/MalloZup/realmd/pkg/krb5"
	"github.com/MalloZup/realmd/pkg/provider"
	"github.com/MalloZup/realmd/pkg/provider/addisco"
	"github.com/MalloZup/realmd/pkg/realm"
	"github.com/MalloZup/realmd/pkg/realm/credential"
)

// Name is the back-end identifier recorded on realms this provider joins.
const Name = "samba"

// Config carries the tool paths and Kerberos settings for this back-end.
type Config struct {
	// NetPath is the samba `net` binary.
	NetPath string

	// DefaultSoftware marks this back-end as the system default membership
	// software, raising its discovery priority.
	DefaultSoftware bool

	// PreconfiguredRealm seeds an already-joined realm at startup, read
	// from system configuration by the daemon.
	PreconfiguredRealm string

	CacheDir       string
	Enctypes       []string
	TicketLifetime time.Duration
}

// Provider implements the samba back-end.
type Provider struct {
	cfg    Config
	disco  *addisco.Discoverer
	runner command.Runner
	sink   diag.Sink
}

// New creates the samba provider.
func New(cfg Config, disco *addisco.Discoverer, runner command.Runner, sink diag.Sink) *Provider {
	if cfg.NetPath == "" {
		cfg.NetPath = "net"
	}
	return &Provider{cfg: cfg, disco: disco, runner: runner, sink: sink}
}

func (p *Provider) Name() string { return Name }

// Seed registers the preconfigured realm, if system configuration declares
// one, so list and leave work without a prior discovery.
func (p *Provider) Seed(realms *realm.Registry) {
	if p.cfg.PreconfiguredRealm == "" {
		return
	}
	r, existed := realms.LookupOrRegister(p.cfg.PreconfiguredRealm, realm.Discovery{
		realm.DiscoveryType:   "kerberos",
		realm.DiscoveryDomain: strings.ToLower(p.cfg.PreconfiguredRealm),
		realm.DiscoveryRealm:  strings.ToUpper(p.cfg.PreconfiguredRealm),
	})
	if !existed {
		r.SetProvider(Name)
		r.SetConfigured(Name)
		applyRealmDefaults(r)
	}
}

func (p *Provider) Discover(ctx context.Context, op diag.Op, input string) (*provider.Result, error) {
	discovery, err := p.disco.Discover(ctx, input)
	if err != nil {
		return nil, err
	}
	if discovery == nil {
		return nil, nil
	}

	priority := 50
	if p.cfg.DefaultSoftware {
		priority = 100
	}
	return &provider.Result{
		Priority:  priority,
		Type:      discovery.Get(realm.DiscoveryType),
		Discovery: discovery,
	}, nil
}

func (p *Provider) Capability() provider.Capability {
	return provider.Capability{
		Join:   p.join,
		Leave:  p.leave,
		Logins: p.logins,
		JoinCredentials: []credential.Supported{
			{Type: credential.Password, Owner: "administrator"},
			{Type: credential.Password, Owner: "user"},
			{Type: credential.CCache, Owner: "administrator"},
		},
		LeaveCredentials: []credential.Supported{
			{Type: credential.Password, Owner: "administrator"},
			{Type: credential.CCache, Owner: "administrator"},
			{Type: credential.Automatic, Owner: "none"},
		},
	}
}

// ccacheFor resolves the credential into a ticket cache path, acquiring a
// fresh TGT for password credentials. Daemon-created caches are attached to
// the credential so release deletes them.
func (p *Provider) ccacheFor(ctx context.Context, op diag.Op, r *realm.Realm, cred *credential.Credential) (string, error) {
	switch cred.Type() {
	case credential.CCache:
		return cred.CCacheFile(), nil
	case credential.Password:
		acq := krb5.Acquire(ctx, p.sink, op, krb5.Request{
			Login:    cred.Name(),
			Realm:    r.RealmName(),
			KDCs:     strings.Fields(r.Discovery().Get(realm.DiscoveryKDCs)),
			Password: cred.Secret(),
			Enctypes: p.cfg.Enctypes,
			CacheDir: p.cfg.CacheDir,
			Lifetime: p.cfg.TicketLifetime,
		})
		path, err := acq.Finish(ctx)
		if err != nil {
			return "", err
		}
		cred.SetCCacheFile(path)
		return path, nil
	default:
		return "", nil
	}
}

func (p *Provider) join(ctx context.Context, op diag.Op, r *realm.Realm, cred *credential.Credential, _ provider.JoinFlags, options provider.Options) error {
	ccache, err := p.ccacheFor(ctx, op, r, cred)
	if err != nil {
		return err
	}

	args := []string{"ads", "join", r.DomainName(), "-k", "--no-dns-updates"}
	if ou := options[provider.OptionComputerOU]; ou != "" {
		args = append(args, "createcomputer="+ou)
	}

	result, err := p.runner.Run(ctx, op, command.Request{
		Path: p.cfg.NetPath,
		Args: args,
		Env:  []string{"KRB5CCNAME=" + ccache},
	})
	if err != nil {
		return err
	}
	if result.Status != 0 {
		return realm.NewError(realm.KindEnrollFailed,
			"Joining the domain %s failed", r.DomainName())
	}

	applyRealmDefaults(r)
	return nil
}

func (p *Provider) leave(ctx context.Context, op diag.Op, r *realm.Realm, cred *credential.Credential, _ provider.Options) error {
	// Forced deconfigure carries no credential; membership is dropped
	// locally and the computer account is left behind.
	if cred.Type() == credential.Automatic {
		p.sink.Info(op, "Deconfiguring %s membership without removing the computer account", r.DomainName())
		return nil
	}

	ccache, err := p.ccacheFor(ctx, op, r, cred)
	if err != nil {
		return err
	}

	result, err := p.runner.Run(ctx, op, command.Request{
		Path: p.cfg.NetPath,
		Args: []string{"ads", "leave", "-k"},
		Env:  []string{"KRB5CCNAME=" + ccache},
	})
	if err != nil {
		return err
	}
	if result.Status != 0 {
		return realm.NewError(realm.KindUnenrollFailed,
			"Leaving the domain %s failed", r.DomainName())
	}
	return nil
}

// logins records the policy transition; the durable write to smb.conf is
// owned by the system-configuration collaborator.
func (p *Provider) logins(_ context.Context, op diag.Op, r *realm.Realm, policy realm.LoginPolicy, add, remove []string) error {
	if policy == realm.PolicyAllowRealmLogins || policy == realm.PolicyAllowAny {
		// winbind has no per-user allow list for these modes
		p.sink.Info(op, "Applying %s login policy for %s", policy, r.DomainName())
		return nil
	}
	p.sink.Info(op, "Changing permitted logins for %s: +%d -%d", r.DomainName(), len(add), len(remove))
	return nil
}

func applyRealmDefaults(r *realm.Realm) {
	domain := r.DomainName()
	r.SetLoginFormats([]string{"%U@" + domain})
	r.SetSuggestedAdmin("Administrator")
	if r.LoginPolicy() == realm.PolicyNotSet {
		r.SetLoginPolicy(realm.PolicyAllowRealmLogins)
	}
	r.SetDetails([]realm.Detail{
		{Name: "server-software", Value: "active-directory"},
		{Name: "client-software", Value: "winbind"},
	})
}
