package enroll

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/MalloZup/realmd/pkg/command"
	"github.com/MalloZup/realmd/pkg/diag"
	"github.com/MalloZup/realmd/pkg/provider"
	"github.com/MalloZup/realmd/pkg/realm"
	"github.com/MalloZup/realmd/pkg/realm/credential"
)

type recordSink struct {
	mu     sync.Mutex
	infos  []string
	errors []string
}

func (s *recordSink) Info(_ diag.Op, format string, args ...any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.infos = append(s.infos, fmt.Sprintf(format, args...))
}

func (s *recordSink) Error(_ diag.Op, _ error, label string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.errors = append(s.errors, label)
}

type fakeRunner struct {
	mu       sync.Mutex
	requests []command.Request
	result   command.Result
	err      error
}

func (r *fakeRunner) Run(_ context.Context, _ diag.Op, req command.Request) (command.Result, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.requests = append(r.requests, req)
	return r.result, r.err
}

type fakeProvider struct {
	name       string
	capability provider.Capability
}

func (p *fakeProvider) Name() string { return p.name }

func (p *fakeProvider) Discover(context.Context, diag.Op, string) (*provider.Result, error) {
	return nil, nil
}

func (p *fakeProvider) Capability() provider.Capability { return p.capability }

// fixture wires a service over one fake provider and one registered realm.
type fixture struct {
	service *Service
	realm   *realm.Realm
	prov    *fakeProvider
	runner  *fakeRunner
	sink    *recordSink
	lock    *Lock
}

func allCredentials() []credential.Supported {
	return []credential.Supported{
		{Type: credential.Automatic, Owner: "none"},
		{Type: credential.CCache, Owner: "administrator"},
		{Type: credential.Secret, Owner: "none"},
		{Type: credential.Password, Owner: "administrator"},
	}
}

func newFixture(t *testing.T, cfg Config) *fixture {
	t.Helper()

	prov := &fakeProvider{
		name: "fake",
		capability: provider.Capability{
			Join: func(context.Context, diag.Op, *realm.Realm, *credential.Credential, provider.JoinFlags, provider.Options) error {
				return nil
			},
			Leave: func(context.Context, diag.Op, *realm.Realm, *credential.Credential, provider.Options) error {
				return nil
			},
			Logins: func(context.Context, diag.Op, *realm.Realm, realm.LoginPolicy, []string, []string) error {
				return nil
			},
			JoinCredentials:  allCredentials(),
			LeaveCredentials: allCredentials(),
		},
	}

	providers := provider.NewRegistry()
	if err := providers.Register(prov); err != nil {
		t.Fatal(err)
	}

	realms := realm.NewRegistry()
	r, _ := realms.LookupOrRegister("ad.example.com", realm.Discovery{
		realm.DiscoveryDomain: "ad.example.com",
		realm.DiscoveryRealm:  "AD.EXAMPLE.COM",
	})
	r.SetProvider("fake")
	r.SetLoginFormats([]string{"%U@ad.example.com"})

	sink := &recordSink{}
	runner := &fakeRunner{}
	lock := NewLock()
	service := NewService(realms, providers, lock, sink, runner, cfg)
	service.hostname = func() (string, error) { return "member01.example.com", nil }

	return &fixture{service: service, realm: r, prov: prov, runner: runner, sink: sink, lock: lock}
}

func passwordInput() credential.Input {
	return credential.Input{Kind: "password", Name: "admin", Secret: []byte("pw")}
}

func testOp(operation string) diag.Op {
	return diag.Op{Operation: operation, Realm: "ad.example.com", Invoker: "test"}
}

func TestJoinSuccess(t *testing.T) {
	f := newFixture(t, Config{NameCachesFlush: []string{"sss_cache", "-E"}})

	err := f.service.Join(context.Background(), testOp("join"), "ad.example.com", passwordInput(), 0, nil)
	if err != nil {
		t.Fatalf("Join() error = %v", err)
	}

	if f.realm.Configured() != "fake" {
		t.Errorf("Configured() = %q, want fake", f.realm.Configured())
	}

	// The name-cache flush post-step ran.
	if len(f.runner.requests) != 1 || f.runner.requests[0].Path != "sss_cache" {
		t.Errorf("flush requests = %+v", f.runner.requests)
	}

	// The lock must be free again.
	if !f.lock.TryLock("check") {
		t.Error("lock was not released after a successful join")
	}
}

func TestJoinInstallModeSkipsFlush(t *testing.T) {
	f := newFixture(t, Config{InstallMode: true, NameCachesFlush: []string{"sss_cache", "-E"}})

	if err := f.service.Join(context.Background(), testOp("join"), "ad.example.com", passwordInput(), 0, nil); err != nil {
		t.Fatalf("Join() error = %v", err)
	}
	if len(f.runner.requests) != 0 {
		t.Error("install mode must suppress the cache flush")
	}
}

func TestJoinUnknownRealm(t *testing.T) {
	f := newFixture(t, Config{})

	err := f.service.Join(context.Background(), testOp("join"), "nosuch.example.com", passwordInput(), 0, nil)
	if !realm.IsKind(err, realm.KindDiscoveryFailed) {
		t.Errorf("error kind = %v, want discovery-failed", realm.KindOf(err))
	}
}

func TestJoinBadHostname(t *testing.T) {
	f := newFixture(t, Config{})
	f.service.hostname = func() (string, error) { return "localhost.localdomain", nil }

	err := f.service.Join(context.Background(), testOp("join"), "ad.example.com", passwordInput(), 0, nil)
	if !realm.IsKind(err, realm.KindEnrollFailed) {
		t.Errorf("error kind = %v, want enroll-failed", realm.KindOf(err))
	}
}

func TestJoinUnsupportedCredential(t *testing.T) {
	f := newFixture(t, Config{})
	f.prov.capability.JoinCredentials = []credential.Supported{
		{Type: credential.Password, Owner: "administrator"},
	}

	err := f.service.Join(context.Background(), testOp("join"), "ad.example.com",
		credential.Input{Kind: "secret", Secret: []byte("otp")}, 0, nil)
	if !realm.IsKind(err, realm.KindNotSupported) {
		t.Fatalf("error kind = %v, want not-supported", realm.KindOf(err))
	}

	var e *realm.Error
	if !errors.As(err, &e) || e.Message != "Joining this realm using a secret is not supported" {
		t.Errorf("message = %q", e.Message)
	}
}

func TestLeaveUnsupportedCredentialWording(t *testing.T) {
	f := newFixture(t, Config{})
	f.prov.capability.LeaveCredentials = []credential.Supported{
		{Type: credential.Password, Owner: "administrator"},
	}

	err := f.service.Leave(context.Background(), testOp("leave"), "ad.example.com",
		credential.Input{Kind: "ccache", Path: "/tmp/cc"}, nil)

	var e *realm.Error
	if !errors.As(err, &e) || e.Message != "Leaving this realm using a credential cache is not supported" {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestJoinWithoutJoinCapability(t *testing.T) {
	f := newFixture(t, Config{})
	f.prov.capability.Join = nil

	err := f.service.Join(context.Background(), testOp("join"), "ad.example.com", passwordInput(), 0, nil)
	if !realm.IsKind(err, realm.KindNotSupported) {
		t.Errorf("error kind = %v, want not-supported", realm.KindOf(err))
	}
}

// dispatchRecorder collects the operations dispatched to a back-end.
type dispatchRecorder struct {
	ops []string
}

// registerBackend adds a second fake back-end to the fixture's registry and
// records which operations dispatch to it.
func registerBackend(t *testing.T, f *fixture, name string) *dispatchRecorder {
	t.Helper()

	rec := &dispatchRecorder{}
	p := &fakeProvider{
		name: name,
		capability: provider.Capability{
			Join: func(context.Context, diag.Op, *realm.Realm, *credential.Credential, provider.JoinFlags, provider.Options) error {
				rec.ops = append(rec.ops, "join")
				return nil
			},
			Leave: func(context.Context, diag.Op, *realm.Realm, *credential.Credential, provider.Options) error {
				rec.ops = append(rec.ops, "leave")
				return nil
			},
			JoinCredentials:  allCredentials(),
			LeaveCredentials: allCredentials(),
		},
	}
	if err := f.service.providers.Register(p); err != nil {
		t.Fatal(err)
	}
	return rec
}

func TestJoinMembershipSoftwareSelectsBackend(t *testing.T) {
	f := newFixture(t, Config{})
	dispatched := registerBackend(t, f, "sssd-ad")

	// The realm is owned by "fake"; the caller demands sssd. The prefix
	// match picks the sssd-ad back-end.
	options := provider.Options{provider.OptionMembershipSoft: "sssd"}
	if err := f.service.Join(context.Background(), testOp("join"), "ad.example.com", passwordInput(), 0, options); err != nil {
		t.Fatalf("Join() error = %v", err)
	}

	if len(dispatched.ops) != 1 || dispatched.ops[0] != "join" {
		t.Errorf("dispatched = %v, want one join through sssd-ad", dispatched.ops)
	}
	if f.realm.Configured() != "sssd-ad" {
		t.Errorf("Configured() = %q, want sssd-ad", f.realm.Configured())
	}
}

func TestJoinMembershipSoftwareMatchesOwner(t *testing.T) {
	f := newFixture(t, Config{})
	dispatched := registerBackend(t, f, "sssd-ad")

	// Demanding the owning back-end's own software is not an override.
	options := provider.Options{provider.OptionMembershipSoft: "fake"}
	if err := f.service.Join(context.Background(), testOp("join"), "ad.example.com", passwordInput(), 0, options); err != nil {
		t.Fatalf("Join() error = %v", err)
	}

	if len(dispatched.ops) != 0 {
		t.Errorf("dispatched = %v, want none through sssd-ad", dispatched.ops)
	}
	if f.realm.Configured() != "fake" {
		t.Errorf("Configured() = %q, want fake", f.realm.Configured())
	}
}

func TestJoinMembershipSoftwareUnknown(t *testing.T) {
	f := newFixture(t, Config{})

	options := provider.Options{provider.OptionMembershipSoft: "winbind"}
	err := f.service.Join(context.Background(), testOp("join"), "ad.example.com", passwordInput(), 0, options)
	if !realm.IsKind(err, realm.KindNotSupported) {
		t.Errorf("error kind = %v, want not-supported", realm.KindOf(err))
	}
	if f.realm.Configured() != "" {
		t.Errorf("Configured() = %q, want unconfigured", f.realm.Configured())
	}
	if !f.lock.TryLock("check") {
		t.Error("lock was not released after a rejected join")
	}
}

func TestLeaveMembershipSoftwareSelectsBackend(t *testing.T) {
	f := newFixture(t, Config{})
	f.realm.SetConfigured("fake")
	dispatched := registerBackend(t, f, "sssd-ad")

	options := provider.Options{provider.OptionMembershipSoft: "sssd"}
	err := f.service.Leave(context.Background(), testOp("leave"), "ad.example.com",
		credential.Input{Kind: "automatic"}, options)
	if err != nil {
		t.Fatalf("Leave() error = %v", err)
	}

	if len(dispatched.ops) != 1 || dispatched.ops[0] != "leave" {
		t.Errorf("dispatched = %v, want one leave through sssd-ad", dispatched.ops)
	}
}

func TestJoinBusyWhileAnotherActionRuns(t *testing.T) {
	f := newFixture(t, Config{})

	entered := make(chan struct{})
	release := make(chan struct{})
	f.prov.capability.Join = func(context.Context, diag.Op, *realm.Realm, *credential.Credential, provider.JoinFlags, provider.Options) error {
		close(entered)
		<-release
		return nil
	}

	firstDone := make(chan error, 1)
	go func() {
		firstDone <- f.service.Join(context.Background(), testOp("join"), "ad.example.com", passwordInput(), 0, nil)
	}()

	<-entered

	// A second mutating action of any type is rejected as busy.
	err := f.service.Leave(context.Background(), testOp("leave"), "ad.example.com",
		credential.Input{Kind: "automatic"}, nil)
	if !realm.IsKind(err, realm.KindBusy) {
		t.Errorf("error kind = %v, want busy", realm.KindOf(err))
	}

	close(release)
	if err := <-firstDone; err != nil {
		t.Fatalf("first join error = %v", err)
	}

	// After the first action finishes the lock is free again.
	if err := f.service.Leave(context.Background(), testOp("leave"), "ad.example.com",
		credential.Input{Kind: "automatic"}, nil); err != nil {
		t.Errorf("leave after release error = %v", err)
	}
}

func TestLockReleasedAfterProviderFailure(t *testing.T) {
	f := newFixture(t, Config{})
	f.prov.capability.Join = func(context.Context, diag.Op, *realm.Realm, *credential.Credential, provider.JoinFlags, provider.Options) error {
		return errors.New("net ads join blew up")
	}

	err := f.service.Join(context.Background(), testOp("join"), "ad.example.com", passwordInput(), 0, nil)
	if !realm.IsKind(err, realm.KindEnrollFailed) {
		t.Fatalf("error kind = %v, want enroll-failed", realm.KindOf(err))
	}
	if f.realm.IsConfigured() {
		t.Error("failed join must not mark the realm configured")
	}
	if !f.lock.TryLock("check") {
		t.Error("lock was not released after a failed join")
	}
}

func TestJoinKeepsTypedProviderError(t *testing.T) {
	f := newFixture(t, Config{})
	f.prov.capability.Join = func(context.Context, diag.Op, *realm.Realm, *credential.Credential, provider.JoinFlags, provider.Options) error {
		return realm.NewError(realm.KindAuthFailed, "Couldn't authenticate as: admin")
	}

	err := f.service.Join(context.Background(), testOp("join"), "ad.example.com", passwordInput(), 0, nil)
	if !realm.IsKind(err, realm.KindAuthFailed) {
		t.Errorf("error kind = %v, typed provider errors must pass through", realm.KindOf(err))
	}
}

func TestJoinCancelled(t *testing.T) {
	f := newFixture(t, Config{})

	ctx, cancel := context.WithCancel(context.Background())
	f.prov.capability.Join = func(ctx context.Context, _ diag.Op, _ *realm.Realm, _ *credential.Credential, _ provider.JoinFlags, _ provider.Options) error {
		cancel()
		<-ctx.Done()
		return ctx.Err()
	}

	err := f.service.Join(ctx, testOp("join"), "ad.example.com", passwordInput(), 0, nil)
	if !realm.IsKind(err, realm.KindCancelled) {
		t.Errorf("error kind = %v, want cancelled", realm.KindOf(err))
	}
	if f.realm.IsConfigured() {
		t.Error("cancelled join must not mark the realm configured")
	}
	if !f.lock.TryLock("check") {
		t.Error("lock was not released after a cancelled join")
	}
}

func TestLeaveSuccess(t *testing.T) {
	f := newFixture(t, Config{})
	f.realm.SetConfigured("fake")

	err := f.service.Leave(context.Background(), testOp("leave"), "ad.example.com", passwordInput(), nil)
	if err != nil {
		t.Fatalf("Leave() error = %v", err)
	}
	if f.realm.IsConfigured() {
		t.Error("leave must clear the configured marker")
	}
}

func TestLeaveRejectsComputerOU(t *testing.T) {
	f := newFixture(t, Config{})

	err := f.service.Leave(context.Background(), testOp("leave"), "ad.example.com", passwordInput(),
		provider.Options{provider.OptionComputerOU: "OU=Servers"})
	if !realm.IsKind(err, realm.KindInvalidArgument) {
		t.Errorf("error kind = %v, want invalid-argument", realm.KindOf(err))
	}
}

func TestDeconfigureNeedsNoCredential(t *testing.T) {
	f := newFixture(t, Config{})
	f.realm.SetConfigured("fake")

	var seen credential.Type
	f.prov.capability.Leave = func(_ context.Context, _ diag.Op, _ *realm.Realm, cred *credential.Credential, _ provider.Options) error {
		seen = cred.Type()
		return nil
	}

	if err := f.service.Deconfigure(context.Background(), testOp("deconfigure"), "ad.example.com", nil); err != nil {
		t.Fatalf("Deconfigure() error = %v", err)
	}
	if seen != credential.Automatic {
		t.Errorf("deconfigure dispatched credential type %v, want automatic", seen)
	}
	if f.realm.IsConfigured() {
		t.Error("deconfigure must clear the configured marker")
	}
}

func TestChangeLoginPolicy(t *testing.T) {
	f := newFixture(t, Config{})

	err := f.service.ChangeLoginPolicy(context.Background(), testOp("login-policy"),
		"ad.example.com", "permitted", []string{"alice@ad.example.com"}, nil, nil)
	if err != nil {
		t.Fatalf("ChangeLoginPolicy() error = %v", err)
	}

	if f.realm.LoginPolicy() != realm.PolicyAllowPermittedLogins {
		t.Errorf("LoginPolicy() = %v", f.realm.LoginPolicy())
	}
	logins := f.realm.PermittedLogins()
	if len(logins) != 1 || logins[0] != "alice" {
		t.Errorf("PermittedLogins() = %v, want the extracted user name", logins)
	}
}

func TestChangeLoginPolicyWithdraw(t *testing.T) {
	f := newFixture(t, Config{})
	f.realm.SetLoginPolicy(realm.PolicyAllowPermittedLogins)
	f.realm.AddPermittedLogins([]string{"alice", "bob"})

	err := f.service.ChangeLoginPolicy(context.Background(), testOp("login-policy"),
		"ad.example.com", "", nil, []string{"alice@ad.example.com"}, nil)
	if err != nil {
		t.Fatalf("ChangeLoginPolicy() error = %v", err)
	}

	logins := f.realm.PermittedLogins()
	if len(logins) != 1 || logins[0] != "bob" {
		t.Errorf("PermittedLogins() = %v, want [bob]", logins)
	}
}

func TestChangeLoginPolicyValidation(t *testing.T) {
	f := newFixture(t, Config{})

	tests := []struct {
		name   string
		policy string
		add    []string
		want   realm.Kind
	}{
		{"conflicting tokens", "any, deny", nil, realm.KindInvalidArgument},
		{"unknown token", "bogus", nil, realm.KindInvalidArgument},
		{"nothing to do", "", nil, realm.KindInvalidArgument},
		{"login does not match format", "permitted", []string{"alice@other.example"}, realm.KindInvalidArgument},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			err := f.service.ChangeLoginPolicy(context.Background(), testOp("login-policy"),
				"ad.example.com", tc.policy, tc.add, nil, nil)
			if !realm.IsKind(err, tc.want) {
				t.Errorf("error kind = %v, want %v", realm.KindOf(err), tc.want)
			}
		})
	}
}

func TestChangeLoginPolicyBusyLeavesStateUntouched(t *testing.T) {
	f := newFixture(t, Config{})
	f.realm.SetLoginPolicy(realm.PolicyAllowRealmLogins)

	if !f.lock.TryLock("other-action") {
		t.Fatal("could not seed the lock")
	}

	err := f.service.ChangeLoginPolicy(context.Background(), testOp("login-policy"),
		"ad.example.com", "deny", nil, nil, nil)
	if !realm.IsKind(err, realm.KindBusy) {
		t.Fatalf("error kind = %v, want busy", realm.KindOf(err))
	}
	if f.realm.LoginPolicy() != realm.PolicyAllowRealmLogins {
		t.Error("busy rejection must not change the login policy")
	}
}

func TestChangeLoginPolicyProviderFailureKeepsState(t *testing.T) {
	f := newFixture(t, Config{})
	f.realm.SetLoginPolicy(realm.PolicyAllowRealmLogins)
	f.prov.capability.Logins = func(context.Context, diag.Op, *realm.Realm, realm.LoginPolicy, []string, []string) error {
		return errors.New("write failed")
	}

	err := f.service.ChangeLoginPolicy(context.Background(), testOp("login-policy"),
		"ad.example.com", "deny", nil, nil, nil)
	if err == nil {
		t.Fatal("expected error")
	}
	if f.realm.LoginPolicy() != realm.PolicyAllowRealmLogins {
		t.Error("failed apply must not change the login policy")
	}
	if !f.lock.TryLock("check") {
		t.Error("lock was not released after a failed policy change")
	}
}

func TestMutationsSerializeUnderContention(t *testing.T) {
	f := newFixture(t, Config{})

	var inFlight, maxInFlight int32
	var mu sync.Mutex
	f.prov.capability.Join = func(context.Context, diag.Op, *realm.Realm, *credential.Credential, provider.JoinFlags, provider.Options) error {
		mu.Lock()
		inFlight++
		if inFlight > maxInFlight {
			maxInFlight = inFlight
		}
		mu.Unlock()

		time.Sleep(5 * time.Millisecond)

		mu.Lock()
		inFlight--
		mu.Unlock()
		return nil
	}

	var wg sync.WaitGroup
	busy := 0
	var busyMu sync.Mutex
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := f.service.Join(context.Background(), testOp("join"), "ad.example.com", passwordInput(), 0, nil)
			if realm.IsKind(err, realm.KindBusy) {
				busyMu.Lock()
				busy++
				busyMu.Unlock()
			}
		}()
	}
	wg.Wait()

	if maxInFlight > 1 {
		t.Errorf("max in-flight joins = %d, mutating actions must be exclusive", maxInFlight)
	}
	if busy == 0 {
		t.Error("expected at least one busy rejection under contention")
	}
}
