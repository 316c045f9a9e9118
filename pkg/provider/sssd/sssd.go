// Package sssd holds the SSSD-backed back-ends: Active Directory domains
// joined through adcli, and FreeIPA domains joined through the ipa client
// tooling. Both leave membership configured for the sssd daemon.
package sssd

import (
	"bytes"
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

// Back-end identifiers.
const (
	ADName  = "sssd-ad"
	IPAName = "sssd-ipa"
)

// Config carries tool paths and Kerberos settings shared by both back-ends.
type Config struct {
	// ADCLIPath is the adcli binary used for Active Directory joins.
	ADCLIPath string

	// IPAInstallPath is the ipa-client-install binary.
	IPAInstallPath string

	// IPAUninstallArgs leaves an IPA domain; defaults to
	// [IPAInstallPath, "--uninstall", "--unattended"].
	IPAUninstallArgs []string

	// DefaultSoftware marks sssd as the system default membership
	// software, raising discovery priority.
	DefaultSoftware bool

	CacheDir       string
	Enctypes       []string
	TicketLifetime time.Duration

	// kinit is injectable for tests.
	kinit func(ctx context.Context, sink diag.Sink, op diag.Op, req krb5.Request) (string, error)
}

func (c *Config) priority() int {
	if c.DefaultSoftware {
		return 100
	}
	return 60
}

func (c *Config) acquire(ctx context.Context, sink diag.Sink, op diag.Op, r *realm.Realm, cred *credential.Credential) (string, error) {
	kinit := c.kinit
	if kinit == nil {
		kinit = func(ctx context.Context, sink diag.Sink, op diag.Op, req krb5.Request) (string, error) {
			return krb5.Acquire(ctx, sink, op, req).Finish(ctx)
		}
	}
	path, err := kinit(ctx, sink, op, krb5.Request{
		Login:    cred.Name(),
		Realm:    r.RealmName(),
		KDCs:     strings.Fields(r.Discovery().Get(realm.DiscoveryKDCs)),
		Password: cred.Secret(),
		Enctypes: c.Enctypes,
		CacheDir: c.CacheDir,
		Lifetime: c.TicketLifetime,
	})
	if err != nil {
		return "", err
	}
	cred.SetCCacheFile(path)
	return path, nil
}

// ADProvider joins Active Directory domains through adcli.
type ADProvider struct {
	cfg    Config
	disco  *addisco.Discoverer
	runner command.Runner
	sink   diag.Sink
}

// NewAD creates the sssd-ad provider.
func NewAD(cfg Config, disco *addisco.Discoverer, runner command.Runner, sink diag.Sink) *ADProvider {
	if cfg.ADCLIPath == "" {
		cfg.ADCLIPath = "adcli"
	}
	return &ADProvider{cfg: cfg, disco: disco, runner: runner, sink: sink}
}

func (p *ADProvider) Name() string { return ADName }

func (p *ADProvider) Discover(ctx context.Context, op diag.Op, input string) (*provider.Result, error) {
	discovery, err := p.disco.Discover(ctx, input)
	if err != nil {
		return nil, err
	}
	if discovery == nil {
		return nil, nil
	}
	return &provider.Result{
		Priority:  p.cfg.priority(),
		Type:      discovery.Get(realm.DiscoveryType),
		Discovery: discovery,
	}, nil
}

func (p *ADProvider) Capability() provider.Capability {
	return provider.Capability{
		Join:   p.join,
		Leave:  p.leave,
		Logins: p.logins,
		JoinCredentials: []credential.Supported{
			{Type: credential.Password, Owner: "administrator"},
			{Type: credential.Password, Owner: "user"},
			{Type: credential.CCache, Owner: "administrator"},
			{Type: credential.Secret, Owner: "none"},
			{Type: credential.Automatic, Owner: "none"},
		},
		LeaveCredentials: []credential.Supported{
			{Type: credential.Password, Owner: "administrator"},
			{Type: credential.Automatic, Owner: "none"},
		},
	}
}

func (p *ADProvider) join(ctx context.Context, op diag.Op, r *realm.Realm, cred *credential.Credential, _ provider.JoinFlags, options provider.Options) error {
	args := []string{"join", "--domain", r.DomainName(), "--domain-realm", r.RealmName()}
	if ou := options[provider.OptionComputerOU]; ou != "" {
		args = append(args, "--domain-ou", ou)
	}

	req := command.Request{Path: p.cfg.ADCLIPath}

	switch cred.Type() {
	case credential.Automatic:
		args = append(args, "--no-password")
	case credential.Secret:
		// One-time computer password, fed on stdin and never logged.
		args = append(args, "--stdin-password", "--one-time-password")
		req.Stdin = bytes.NewReader(cred.Secret())
	case credential.Password, credential.CCache:
		ccache := cred.CCacheFile()
		if cred.Type() == credential.Password {
			var err error
			if ccache, err = p.cfg.acquire(ctx, p.sink, op, r, cred); err != nil {
				return err
			}
		}
		args = append(args, "--login-ccache="+ccache)
	}

	req.Args = args
	result, err := p.runner.Run(ctx, op, req)
	if err != nil {
		return err
	}
	if result.Status != 0 {
		return realm.NewError(realm.KindEnrollFailed,
			"Joining the domain %s failed", r.DomainName())
	}

	applyADDefaults(r)
	return nil
}

func (p *ADProvider) leave(ctx context.Context, op diag.Op, r *realm.Realm, cred *credential.Credential, _ provider.Options) error {
	if cred.Type() == credential.Automatic {
		// sssd membership is deconfigured locally; the computer account
		// stays behind.
		p.sink.Info(op, "Deconfiguring %s membership", r.DomainName())
		return nil
	}

	ccache, err := p.cfg.acquire(ctx, p.sink, op, r, cred)
	if err != nil {
		return err
	}

	result, err := p.runner.Run(ctx, op, command.Request{
		Path: p.cfg.ADCLIPath,
		Args: []string{"delete-computer", "--domain", r.DomainName(), "--login-ccache=" + ccache},
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

func (p *ADProvider) logins(_ context.Context, op diag.Op, r *realm.Realm, policy realm.LoginPolicy, add, remove []string) error {
	p.sink.Info(op, "Applying login policy %s for %s: +%d -%d",
		policy, r.DomainName(), len(add), len(remove))
	return nil
}

func applyADDefaults(r *realm.Realm) {
	r.SetLoginFormats([]string{"%U@" + r.DomainName()})
	r.SetSuggestedAdmin("Administrator")
	if r.LoginPolicy() == realm.PolicyNotSet {
		r.SetLoginPolicy(realm.PolicyAllowRealmLogins)
	}
	r.SetDetails([]realm.Detail{
		{Name: "server-software", Value: "active-directory"},
		{Name: "client-software", Value: "sssd"},
	})
}

// IPAProvider joins FreeIPA domains through ipa-client-install.
type IPAProvider struct {
	cfg    Config
	disco  *addisco.Discoverer
	runner command.Runner
	sink   diag.Sink
}

// NewIPA creates the sssd-ipa provider.
func NewIPA(cfg Config, disco *addisco.Discoverer, runner command.Runner, sink diag.Sink) *IPAProvider {
	if cfg.IPAInstallPath == "" {
		cfg.IPAInstallPath = "ipa-client-install"
	}
	if len(cfg.IPAUninstallArgs) == 0 {
		cfg.IPAUninstallArgs = []string{cfg.IPAInstallPath, "--uninstall", "--unattended"}
	}
	return &IPAProvider{cfg: cfg, disco: disco, runner: runner, sink: sink}
}

func (p *IPAProvider) Name() string { return IPAName }

func (p *IPAProvider) Discover(ctx context.Context, op diag.Op, input string) (*provider.Result, error) {
	discovery, err := p.disco.Discover(ctx, input)
	if err != nil {
		return nil, err
	}
	if discovery == nil {
		return nil, nil
	}

	// IPA domains publish a TXT record naming the realm; without the
	// external LDAP probe only the SRV evidence is available, so rank
	// below the AD back-ends.
	return &provider.Result{
		Priority:  p.cfg.priority() - 10,
		Type:      discovery.Get(realm.DiscoveryType),
		Discovery: discovery,
	}, nil
}

func (p *IPAProvider) Capability() provider.Capability {
	return provider.Capability{
		Join:   p.join,
		Leave:  p.leave,
		Logins: p.logins,
		JoinCredentials: []credential.Supported{
			{Type: credential.Password, Owner: "administrator"},
		},
		LeaveCredentials: []credential.Supported{
			{Type: credential.Password, Owner: "administrator"},
			{Type: credential.Automatic, Owner: "none"},
		},
	}
}

func (p *IPAProvider) join(ctx context.Context, op diag.Op, r *realm.Realm, cred *credential.Credential, _ provider.JoinFlags, _ provider.Options) error {
	// The admin password is answered on the tool's stdin prompt, never on
	// the command line.
	req := command.Request{
		Path: p.cfg.IPAInstallPath,
		Args: []string{
			"--unattended",
			"--domain", r.DomainName(),
			"--realm", r.RealmName(),
			"--principal", cred.Name(),
			"-W",
		},
		Stdin: bytes.NewReader(cred.Secret()),
	}

	result, err := p.runner.Run(ctx, op, req)
	if err != nil {
		return err
	}
	if result.Status != 0 {
		return realm.NewError(realm.KindEnrollFailed,
			"Joining the domain %s failed", r.DomainName())
	}

	r.SetLoginFormats([]string{"%U@" + r.DomainName()})
	r.SetSuggestedAdmin("admin")
	if r.LoginPolicy() == realm.PolicyNotSet {
		r.SetLoginPolicy(realm.PolicyAllowRealmLogins)
	}
	r.SetDetails([]realm.Detail{
		{Name: "server-software", Value: "ipa"},
		{Name: "client-software", Value: "sssd"},
	})
	return nil
}

func (p *IPAProvider) leave(ctx context.Context, op diag.Op, r *realm.Realm, cred *credential.Credential, _ provider.Options) error {
	// The uninstall tool takes no credentials. A supplied password is
	// validated against the KDC before any local state is touched.
	if cred.Type() == credential.Password {
		if _, err := p.cfg.acquire(ctx, p.sink, op, r, cred); err != nil {
			return err
		}
	}

	result, err := p.runner.Run(ctx, op, command.Request{
		Path: p.cfg.IPAUninstallArgs[0],
		Args: p.cfg.IPAUninstallArgs[1:],
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

func (p *IPAProvider) logins(_ context.Context, op diag.Op, r *realm.Realm, policy realm.LoginPolicy, add, remove []string) error {
	p.sink.Info(op, "Applying login policy %s for %s: +%d -%d",
		policy, r.DomainName(), len(add), len(remove))
	return nil
}
