// Package krb5 acquires Kerberos ticket-granting tickets into freshly
// created, privately permissioned ticket-cache files. It is used to validate
// administrator credentials before any system state is mutated: the AS
// exchange runs against the realm's KDCs and the resulting TGT is written to
// a cache file that is handed to the external membership tooling.
package krb5

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"sync/atomic"
	"time"

	"github.com/jcmturner/gokrb5/v8/client"
	"github.com/jcmturner/gokrb5/v8/config"
	"github.com/jcmturner/gokrb5/v8/iana/errorcode"
	"github.com/jcmturner/gokrb5/v8/messages"

	"github.com/MalloZup/realmd/internal/telemetry"
	"github.com/MalloZup/realmd/pkg/diag"
	"github.com/MalloZup/realmd/pkg/realm"
)

// Request describes one ticket acquisition.
type Request struct {
	// Login is the authenticating principal, bare ("Administrator") or
	// qualified ("Administrator@EXAMPLE.COM"). Bare names get the realm
	// appended.
	Login string

	// Realm is the Kerberos realm name of the target domain.
	Realm string

	// KDCs are the key distribution centers from the discovery snapshot,
	// host or host:port. Empty means DNS lookup.
	KDCs []string

	// Password is the secret. The caller retains ownership; it is released
	// through the credential model, not here.
	Password []byte

	// Enctypes optionally restricts the encryption types requested.
	Enctypes []string

	// CacheDir overrides the directory for the cache file. Empty means the
	// system temporary directory.
	CacheDir string

	// Lifetime is the requested ticket lifetime. Zero means 10h.
	Lifetime time.Duration
}

type outcome struct {
	path string
	err  error
}

// Acquisition is a single-consumption handle on an in-flight ticket
// acquisition. The work runs on its own goroutine so the slow round trip to
// the KDC never blocks the control path.
type Acquisition struct {
	ch       chan outcome
	consumed atomic.Bool
}

// Acquire starts the acquisition and returns immediately. Consume the
// result with Finish.
func Acquire(ctx context.Context, sink diag.Sink, op diag.Op, req Request) *Acquisition {
	a := &Acquisition{ch: make(chan outcome, 1)}
	go func() {
		path, err := kinit(ctx, sink, op, req)
		a.ch <- outcome{path: path, err: err}
	}()
	return a
}

// Finish waits for the acquisition and returns the cache file path. The
// caller takes ownership of the file. Finish may be called at most once;
// a second call is a programming-contract violation and fails as internal.
func (a *Acquisition) Finish(ctx context.Context) (string, error) {
	if !a.consumed.CompareAndSwap(false, true) {
		return "", realm.NewError(realm.KindInternal,
			"Ticket acquisition result was already consumed")
	}
	select {
	case out := <-a.ch:
		return out.path, out.err
	case <-ctx.Done():
		// The worker still owns the file; make sure it gets deleted once
		// the exchange unwinds.
		go func() {
			if out := <-a.ch; out.path != "" {
				_ = os.Remove(out.path)
			}
		}()
		return "", realm.WrapError(realm.KindCancelled, ctx.Err(),
			"Operation was cancelled")
	}
}

// krb5Conf renders a minimal library configuration for the target realm.
func krb5Conf(req Request) string {
	var b strings.Builder
	b.WriteString("[libdefaults]\n")
	fmt.Fprintf(&b, " default_realm = %s\n", req.Realm)
	b.WriteString(" rdns = false\n")
	if len(req.KDCs) == 0 {
		b.WriteString(" dns_lookup_kdc = true\n")
	}
	if len(req.Enctypes) > 0 {
		enctypes := strings.Join(req.Enctypes, " ")
		fmt.Fprintf(&b, " default_tkt_enctypes = %s\n", enctypes)
		fmt.Fprintf(&b, " default_tgs_enctypes = %s\n", enctypes)
	}
	b.WriteString("\n[realms]\n")
	fmt.Fprintf(&b, " %s = {\n", req.Realm)
	for _, kdc := range req.KDCs {
		if !strings.Contains(kdc, ":") {
			kdc += ":88"
		}
		fmt.Fprintf(&b, "  kdc = %s\n", kdc)
	}
	b.WriteString(" }\n")
	return b.String()
}

func kinit(ctx context.Context, sink diag.Sink, op diag.Op, req Request) (path string, err error) {
	// The span names the realm and invoker only. The principal and password
	// never become attributes.
	ctx, span := telemetry.StartSpan(ctx, telemetry.SpanKinit)
	defer func() {
		telemetry.RecordError(ctx, err)
		span.End()
	}()
	telemetry.SetAttributes(ctx, telemetry.RealmName(req.Realm), telemetry.Invoker(op.Invoker))

	principal := req.Login
	if !strings.Contains(principal, "@") {
		principal = principal + "@" + req.Realm
	}
	user, userRealm, _ := strings.Cut(principal, "@")

	cfg, err := config.NewFromString(krb5Conf(req))
	if err != nil {
		return "", realm.WrapError(realm.KindInternal, err,
			"Couldn't initialize kerberos")
	}

	if err := ctx.Err(); err != nil {
		return "", realm.WrapError(realm.KindCancelled, err, "Operation was cancelled")
	}

	// Active Directory KDCs reject FAST armoring from unenrolled hosts.
	cl := client.NewWithPassword(user, userRealm, string(req.Password), cfg,
		client.DisablePAFXFAST(true))
	defer cl.Destroy()

	if err := cl.Login(); err != nil {
		sink.Error(op, err, "Couldn't authenticate as "+principal)
		if isAuthError(err) {
			return "", realm.WrapError(realm.KindAuthFailed, err,
				"Couldn't authenticate as: %s", principal)
		}
		return "", realm.WrapError(realm.KindEnrollFailed, err,
			"Couldn't authenticate as: %s", principal)
	}

	tkt, key, err := cl.GetServiceTicket("krbtgt/" + userRealm)
	if err != nil {
		sink.Error(op, err, "Couldn't obtain ticket granting ticket")
		return "", realm.WrapError(realm.KindEnrollFailed, err,
			"Couldn't obtain credentials for: %s", principal)
	}

	lifetime := req.Lifetime
	if lifetime <= 0 {
		lifetime = 10 * time.Hour
	}
	now := time.Now()
	image, err := marshalCCache(userRealm, []string{user}, tkt, key, now, now.Add(lifetime))
	if err != nil {
		return "", realm.WrapError(realm.KindInternal, err,
			"Couldn't serialize credential cache")
	}

	dir := req.CacheDir
	if dir == "" {
		dir = os.TempDir()
	}
	// O_EXCL under the hood: no symlink or collision races, owner-only mode.
	f, err := os.CreateTemp(dir, "realmd-krb5-cache.*")
	if err != nil {
		return "", realm.WrapError(realm.KindInternal, err,
			"Couldn't create credential cache file")
	}
	path = f.Name()

	if _, err := f.Write(image); err != nil {
		_ = f.Close()
		_ = os.Remove(path)
		return "", realm.WrapError(realm.KindInternal, err,
			"Couldn't write credential cache file")
	}
	if err := f.Close(); err != nil {
		_ = os.Remove(path)
		return "", realm.WrapError(realm.KindInternal, err,
			"Couldn't write credential cache file")
	}

	if err := ctx.Err(); err != nil {
		_ = os.Remove(path)
		return "", realm.WrapError(realm.KindCancelled, err, "Operation was cancelled")
	}

	sink.Info(op, "Authenticated as %s", principal)
	return path, nil
}

// KDC error codes that indicate a credential problem rather than a system
// problem.
var authErrorCodes = []int32{
	errorcode.KDC_ERR_C_PRINCIPAL_UNKNOWN,
	errorcode.KDC_ERR_POLICY,
	errorcode.KDC_ERR_ETYPE_NOSUPP,
	errorcode.KDC_ERR_CLIENT_REVOKED,
	errorcode.KDC_ERR_KEY_EXPIRED,
	errorcode.KDC_ERR_PREAUTH_FAILED,
}

// isAuthError reports whether err stems from the KDC rejecting the
// credential. gokrb5 sometimes flattens the KDC error into message text, so
// the error-code names are matched there as a fallback.
func isAuthError(err error) bool {
	var krbErr messages.KRBError
	if errors.As(err, &krbErr) {
		for _, code := range authErrorCodes {
			if krbErr.ErrorCode == code {
				return true
			}
		}
		return false
	}

	msg := err.Error()
	for _, code := range authErrorCodes {
		if strings.Contains(msg, errorcode.Lookup(code)) {
			return true
		}
	}
	return false
}
