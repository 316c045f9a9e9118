package realm

import (
	"errors"
	"fmt"
)

// Kind classifies enrollment errors into the coarse taxonomy exposed to
// callers. Back-end and Kerberos library detail goes to diagnostics; callers
// only ever see one of these kinds.
type Kind string

const (
	// KindInvalidArgument indicates malformed or conflicting input: a bad
	// credential encoding, conflicting login-policy tokens, or an option
	// that the requested operation does not allow.
	KindInvalidArgument Kind = "invalid-argument"

	// KindNotSupported indicates the selected back-end cannot perform the
	// requested operation or does not accept the offered credential type.
	KindNotSupported Kind = "not-supported"

	// KindBusy indicates the daemon is already running another exclusive
	// action. Callers should retry later.
	KindBusy Kind = "busy"

	// KindNotAuthorized indicates the authorization check denied the call.
	KindNotAuthorized Kind = "not-authorized"

	// KindDiscoveryFailed indicates no provider could resolve the requested
	// domain, or every discovery collaborator failed.
	KindDiscoveryFailed Kind = "discovery-failed"

	// KindEnrollFailed indicates a back-end join failure, including local
	// host-name misconfiguration.
	KindEnrollFailed Kind = "enroll-failed"

	// KindUnenrollFailed indicates a back-end leave failure.
	KindUnenrollFailed Kind = "unenroll-failed"

	// KindAuthFailed indicates the KDC rejected the credential: bad
	// password, unknown principal, expired or revoked account, policy
	// block, or unsupported encryption type. Distinguished from
	// KindEnrollFailed because it is a credential problem, not a system
	// problem.
	KindAuthFailed Kind = "auth-failed"

	// KindCancelled indicates the operation was cancelled before it
	// completed.
	KindCancelled Kind = "cancelled"

	// KindInternal indicates a programming-contract violation or an
	// unexpected system failure.
	KindInternal Kind = "internal"
)

// Error is the typed error returned by all enrollment operations.
type Error struct {
	Kind    Kind
	Message string
	Err     error // underlying cause, surfaced to diagnostics only
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// NewError creates an Error with the given kind and message.
func NewError(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// WrapError creates an Error carrying an underlying cause.
func WrapError(kind Kind, err error, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...), Err: err}
}

// KindOf returns the error's taxonomy kind, or KindInternal for errors that
// did not originate from this package.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

// IsKind reports whether err carries the given kind.
func IsKind(err error, kind Kind) bool {
	var e *Error
	return errors.As(err, &e) && e.Kind == kind
}
