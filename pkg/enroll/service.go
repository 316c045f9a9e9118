// Package enroll implements the exclusive, cancellable join/leave state
// machine: validate inputs, acquire the daemon lock, dispatch to the
// selected back-end, run post-steps, reply, release the lock. The lock is
// released on every exit path, exactly once; a leaked lock wedges the whole
// mutating surface and is treated as the most severe class of bug.
package enroll

import (
	"context"
	"errors"
	"os"
	"strings"

	"github.com/MalloZup/realmd/internal/telemetry"
	"github.com/MalloZup/realmd/pkg/command"
	"github.com/MalloZup/realmd/pkg/diag"
	"github.com/MalloZup/realmd/pkg/metrics"
	"github.com/MalloZup/realmd/pkg/provider"
	"github.com/MalloZup/realmd/pkg/realm"
	"github.com/MalloZup/realmd/pkg/realm/credential"
)

// Config carries the daemon-level settings the state machine needs.
type Config struct {
	// InstallMode suppresses the name-service cache flush post-step, for
	// offline image builds.
	InstallMode bool

	// NameCachesFlush is the tool invocation that flushes name-service
	// caches after a successful join, for example ["sss_cache", "-E"].
	// Empty disables the post-step.
	NameCachesFlush []string
}

// Service orchestrates all mutating enrollment operations.
type Service struct {
	realms    *realm.Registry
	providers *provider.Registry
	lock      *Lock
	sink      diag.Sink
	runner    command.Runner
	cfg       Config

	// hostname is injectable for tests.
	hostname func() (string, error)
}

// NewService wires the state machine over the given registries.
func NewService(realms *realm.Registry, providers *provider.Registry, lock *Lock, sink diag.Sink, runner command.Runner, cfg Config) *Service {
	return &Service{
		realms:    realms,
		providers: providers,
		lock:      lock,
		sink:      sink,
		runner:    runner,
		cfg:       cfg,
		hostname:  os.Hostname,
	}
}

// Realms returns the realm registry, for the read-only query surface.
func (s *Service) Realms() *realm.Registry {
	return s.realms
}

// resolve maps a realm name onto its realm object and back-end. A
// membership-software option overrides the owning back-end: the operation
// dispatches to a registered back-end serving the requested software, or
// fails when none does.
func (s *Service) resolve(name string, options provider.Options) (*realm.Realm, provider.Provider, error) {
	r := s.realms.Lookup(name)
	if r == nil {
		return nil, nil, realm.NewError(realm.KindDiscoveryFailed,
			"No such realm found: %s", name)
	}
	p := s.providers.Lookup(r.Provider())
	if p == nil {
		return nil, nil, realm.NewError(realm.KindNotSupported,
			"Realm %s has no registered membership software", name)
	}
	if software := options[provider.OptionMembershipSoft]; software != "" && !servesSoftware(p.Name(), software) {
		if p = s.lookupSoftware(software); p == nil {
			return nil, nil, realm.NewError(realm.KindNotSupported,
				"Realm %s does not support the %s membership software", name, software)
		}
	}
	return r, p, nil
}

// servesSoftware reports whether the back-end named name implements the
// requested membership software: "samba" names the samba back-end, "sssd"
// names both sssd back-ends.
func servesSoftware(name, software string) bool {
	return name == software || strings.HasPrefix(name, software+"-")
}

// lookupSoftware returns the earliest registered back-end serving software,
// or nil when the software is unknown.
func (s *Service) lookupSoftware(software string) provider.Provider {
	for _, p := range s.providers.All() {
		if servesSoftware(p.Name(), software) {
			return p
		}
	}
	return nil
}

// credentialSupportError picks the type and direction specific wording for
// a credential the back-end does not accept.
func credentialSupportError(typ credential.Type, join bool) *realm.Error {
	var message string
	switch typ {
	case credential.Automatic:
		if join {
			message = "Joining this realm without credentials is not supported"
		} else {
			message = "Leaving this realm without credentials is not supported"
		}
	case credential.CCache:
		if join {
			message = "Joining this realm using a credential cache is not supported"
		} else {
			message = "Leaving this realm using a credential cache is not supported"
		}
	case credential.Secret:
		if join {
			message = "Joining this realm using a secret is not supported"
		} else {
			message = "Unenrolling this realm using a secret is not supported"
		}
	default:
		if join {
			message = "Enrolling this realm using a password is not supported"
		} else {
			message = "Unenrolling this realm using a password is not supported"
		}
	}
	return realm.NewError(realm.KindNotSupported, "%s", message)
}

// checkHostname rejects join attempts from hosts whose name is unset.
func (s *Service) checkHostname() error {
	name, err := s.hostname()
	lower := strings.ToLower(name)
	if err != nil || lower == "localhost" || strings.HasPrefix(lower, "localhost.") {
		return realm.NewError(realm.KindEnrollFailed,
			"This computer's host name is not set correctly")
	}
	return nil
}

// Join registers this host as a member of the named realm.
//
// Preconditions run in order, first failure wins: host name sanity, back-end
// join capability, credential parse, credential type support, lock
// acquisition. Only then is the back-end dispatched.
func (s *Service) Join(ctx context.Context, op diag.Op, name string, in credential.Input, flags provider.JoinFlags, options provider.Options) error {
	ctx, span := telemetry.StartOperationSpan(ctx, telemetry.SpanJoin, "join", name,
		telemetry.Invoker(op.Invoker), telemetry.CredentialType(in.Kind))
	defer span.End()

	err := s.join(ctx, op, name, in, flags, options)
	recordOutcome(ctx, err)
	metrics.CountOperation("join", outcome(err))
	return err
}

func (s *Service) join(ctx context.Context, op diag.Op, name string, in credential.Input, flags provider.JoinFlags, options provider.Options) error {
	if err := s.checkHostname(); err != nil {
		return err
	}

	r, p, err := s.resolve(name, options)
	if err != nil {
		return err
	}
	capability := p.Capability()
	if capability.Join == nil {
		return realm.NewError(realm.KindNotSupported, "Joining this realm is not supported")
	}

	cred, err := credential.Parse(in)
	if err != nil {
		return err
	}
	defer cred.Release()

	if !credential.TypeSupported(capability.JoinCredentials, cred.Type()) {
		return credentialSupportError(cred.Type(), true)
	}

	if !s.lock.TryLock(op.Invoker) {
		metrics.CountLockBusy()
		return realm.NewError(realm.KindBusy, "Already running another action")
	}
	defer s.lock.Unlock()

	if err := capability.Join(ctx, op, r, cred, flags, options); err != nil {
		if ctx.Err() != nil {
			s.sink.Error(op, ctx.Err(), "Cancelled")
			return realm.WrapError(realm.KindCancelled, ctx.Err(), "Operation was cancelled")
		}
		s.sink.Error(op, err, "Failed to enroll machine in realm")
		return coerce(err, realm.KindEnrollFailed, "Failed to enroll machine in realm")
	}
	if ctx.Err() != nil {
		s.sink.Error(op, ctx.Err(), "Cancelled")
		return realm.WrapError(realm.KindCancelled, ctx.Err(), "Operation was cancelled")
	}

	r.SetConfigured(p.Name())

	// Only flush the name caches when not in install mode. Best effort: a
	// flush failure does not turn a successful join into a failure.
	if !s.cfg.InstallMode {
		s.flushNameCaches(ctx, op)
	}

	s.sink.Info(op, "Successfully enrolled machine in realm")
	return nil
}

// Leave removes this host's membership from the named realm. The
// computer-ou option is rejected: leaving never targets an OU.
func (s *Service) Leave(ctx context.Context, op diag.Op, name string, in credential.Input, options provider.Options) error {
	ctx, span := telemetry.StartOperationSpan(ctx, telemetry.SpanLeave, "leave", name,
		telemetry.Invoker(op.Invoker), telemetry.CredentialType(in.Kind))
	defer span.End()

	err := s.leave(ctx, op, name, in, nil, options)
	recordOutcome(ctx, err)
	metrics.CountOperation("leave", outcome(err))
	return err
}

// Deconfigure is a forced leave with no credential: an automatic credential
// is synthesized and the leave path is followed unchanged.
func (s *Service) Deconfigure(ctx context.Context, op diag.Op, name string, options provider.Options) error {
	ctx, span := telemetry.StartOperationSpan(ctx, telemetry.SpanDeconfigure, "deconfigure", name,
		telemetry.Invoker(op.Invoker))
	defer span.End()

	err := s.leave(ctx, op, name, credential.Input{}, credential.NewAutomatic(), options)
	recordOutcome(ctx, err)
	metrics.CountOperation("deconfigure", outcome(err))
	return err
}

func (s *Service) leave(ctx context.Context, op diag.Op, name string, in credential.Input, synthesized *credential.Credential, options provider.Options) error {
	if _, ok := options[provider.OptionComputerOU]; ok {
		return realm.NewError(realm.KindInvalidArgument,
			"The computer-ou argument is not supported when leaving a domain")
	}

	r, p, err := s.resolve(name, options)
	if err != nil {
		return err
	}
	capability := p.Capability()
	if capability.Leave == nil {
		return realm.NewError(realm.KindNotSupported, "Leaving this realm is not supported")
	}

	cred := synthesized
	if cred == nil {
		if cred, err = credential.Parse(in); err != nil {
			return err
		}
	}
	defer cred.Release()

	if !credential.TypeSupported(capability.LeaveCredentials, cred.Type()) {
		return credentialSupportError(cred.Type(), false)
	}

	if !s.lock.TryLock(op.Invoker) {
		metrics.CountLockBusy()
		return realm.NewError(realm.KindBusy, "Already running another action")
	}
	defer s.lock.Unlock()

	if err := capability.Leave(ctx, op, r, cred, options); err != nil {
		if ctx.Err() != nil {
			s.sink.Error(op, ctx.Err(), "Cancelled")
			return realm.WrapError(realm.KindCancelled, ctx.Err(), "Operation was cancelled")
		}
		s.sink.Error(op, err, "Failed to unenroll machine from realm")
		return coerce(err, realm.KindUnenrollFailed, "Failed to unenroll machine from realm")
	}
	if ctx.Err() != nil {
		s.sink.Error(op, ctx.Err(), "Cancelled")
		return realm.WrapError(realm.KindCancelled, ctx.Err(), "Operation was cancelled")
	}

	r.SetConfigured("")
	s.sink.Info(op, "Successfully unenrolled machine from realm")
	return nil
}

// ChangeLoginPolicy validates and applies a login-policy transition and the
// permitted-login add/remove lists, under the same exclusive lock as join
// and leave. The remove ("withdraw") path and the bare deny-all path are
// two separately validated sub-operations sharing this entry point.
func (s *Service) ChangeLoginPolicy(ctx context.Context, op diag.Op, name, policyStr string, add, remove []string, options provider.Options) error {
	ctx, span := telemetry.StartOperationSpan(ctx, telemetry.SpanLoginPolicy, "login-policy", name,
		telemetry.Invoker(op.Invoker))
	defer span.End()

	err := s.changeLoginPolicy(ctx, op, name, policyStr, add, remove, options)
	recordOutcome(ctx, err)
	metrics.CountOperation("login-policy", outcome(err))
	return err
}

func (s *Service) changeLoginPolicy(ctx context.Context, op diag.Op, name, policyStr string, add, remove []string, _ provider.Options) error {
	policy, err := realm.ParseLoginPolicy(policyStr)
	if err != nil {
		return err
	}

	r, p, err := s.resolve(name, nil)
	if err != nil {
		return err
	}
	capability := p.Capability()
	if capability.Logins == nil {
		return realm.NewError(realm.KindNotSupported,
			"Changing login policy for this realm is not supported")
	}

	if policy == realm.PolicyNotSet && len(add) == 0 && len(remove) == 0 {
		return realm.NewError(realm.KindInvalidArgument,
			"No login policy or permitted login changes given")
	}

	var addUsers, removeUsers []string
	if len(add) > 0 {
		if addUsers, err = realm.ParseLogins(r.LoginFormats(), false, add); err != nil {
			return err
		}
	}
	if len(remove) > 0 {
		if removeUsers, err = realm.ParseLogins(r.LoginFormats(), false, remove); err != nil {
			return err
		}
	}

	if !s.lock.TryLock(op.Invoker) {
		metrics.CountLockBusy()
		return realm.NewError(realm.KindBusy, "Already running another action")
	}
	defer s.lock.Unlock()

	if err := capability.Logins(ctx, op, r, policy, addUsers, removeUsers); err != nil {
		if ctx.Err() != nil {
			s.sink.Error(op, ctx.Err(), "Cancelled")
			return realm.WrapError(realm.KindCancelled, ctx.Err(), "Operation was cancelled")
		}
		s.sink.Error(op, err, "Failed to change permitted logins")
		return coerce(err, realm.KindInternal, "Failed to change permitted logins")
	}

	if policy != realm.PolicyNotSet {
		r.SetLoginPolicy(policy)
	}
	r.AddPermittedLogins(addUsers)
	r.RemovePermittedLogins(removeUsers)

	s.sink.Info(op, "Successfully changed permitted logins for realm")
	return nil
}

// flushNameCaches runs the configured cache-flush tool. Failures are logged
// and swallowed.
func (s *Service) flushNameCaches(ctx context.Context, op diag.Op) {
	if len(s.cfg.NameCachesFlush) == 0 {
		return
	}
	result, err := s.runner.Run(ctx, op, command.Request{
		Path: s.cfg.NameCachesFlush[0],
		Args: s.cfg.NameCachesFlush[1:],
	})
	if err != nil || result.Status != 0 {
		s.sink.Error(op, err, "Flushing name caches failed")
	}
}

// coerce keeps typed domain errors as-is and wraps everything else in kind.
func coerce(err error, kind realm.Kind, message string) error {
	var e *realm.Error
	if errors.As(err, &e) {
		return err
	}
	return realm.WrapError(kind, err, "%s", message)
}

func outcome(err error) string {
	if err == nil {
		return "success"
	}
	return string(realm.KindOf(err))
}

// recordOutcome attaches a failure to the active span. Only the taxonomy
// kind and message are recorded, never credential material.
func recordOutcome(ctx context.Context, err error) {
	if err == nil {
		return
	}
	telemetry.RecordError(ctx, err)
	telemetry.SetAttributes(ctx, telemetry.ErrorKind(string(realm.KindOf(err))))
}
