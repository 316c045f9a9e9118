// Package provider defines the back-end "membership software" abstraction:
// each provider can discover candidate realms for an input string and
// advertises which join/leave operations and credential types it supports.
package provider

import (
	"context"

	"github.com/MalloZup/realmd/pkg/diag"
	"github.com/MalloZup/realmd/pkg/realm"
	"github.com/MalloZup/realmd/pkg/realm/credential"
)

// Options carries the free-form request options handed through to the
// back-end, such as an organizational-unit placement hint.
type Options map[string]string

// Option keys understood by the back-ends.
const (
	OptionComputerOU     = "computer-ou"
	OptionAssumePackages = "assume-joined-packages"
	OptionMembershipSoft = "membership-software"
)

// JoinFlags modifies join dispatch.
type JoinFlags uint

const (
	// FlagAssumePackages tells the back-end the required system packages
	// are already installed.
	FlagAssumePackages JoinFlags = 1 << iota
)

// Result is one provider's answer to a discovery request. A nil Result or
// Priority <= 0 means no match.
type Result struct {
	// Priority ranks this answer against other providers, 0-100. The
	// system-default client software reports a higher priority.
	Priority int
	// Type is the declared realm type, for example "kerberos".
	Type string
	// Discovery is the structured output of the discovery collaborator.
	Discovery realm.Discovery
}

// Capability is the static per-provider dispatch table: optional function
// references plus the supported-credential lists per direction. A nil
// function means the operation is unsupported.
type Capability struct {
	Join  func(ctx context.Context, op diag.Op, r *realm.Realm, cred *credential.Credential, flags JoinFlags, options Options) error
	Leave func(ctx context.Context, op diag.Op, r *realm.Realm, cred *credential.Credential, options Options) error

	// Logins applies a login-policy change and the permitted-login
	// add/remove lists to system configuration.
	Logins func(ctx context.Context, op diag.Op, r *realm.Realm, policy realm.LoginPolicy, add, remove []string) error

	JoinCredentials  []credential.Supported
	LeaveCredentials []credential.Supported
}

// Provider is one registered back-end.
type Provider interface {
	// Name is the stable back-end identifier, for example "samba" or
	// "sssd-ad". It is recorded on realms this provider joins.
	Name() string

	// Discover resolves input (a domain name, realm name, or empty string
	// for the default domain) against this provider's discovery
	// collaborator. It returns nil when nothing matches.
	Discover(ctx context.Context, op diag.Op, input string) (*Result, error)

	// Capability returns the static dispatch table for this back-end.
	Capability() Capability
}
