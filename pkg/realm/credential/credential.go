// Package credential models the credential offered with a join or leave
// request: a discriminated union parsed from the wire, used once, and
// released without lingering copies of secret material.
package credential

import (
	"os"

	"github.com/MalloZup/realmd/pkg/realm"
)

// Type discriminates the credential variants.
type Type int

const (
	// Automatic carries no secret; the back-end decides how to
	// authenticate, for example machine pre-authentication.
	Automatic Type = iota + 1

	// CCache references an existing caller-supplied Kerberos ticket cache.
	// The daemon never reads its content beyond handing the reference on.
	CCache

	// Secret is an opaque byte blob, for example a one-time password.
	Secret

	// Password is a principal name plus a secret.
	Password
)

// Wire kind tags, the first element of the three-part credential value.
const (
	kindAutomatic = "automatic"
	kindCCache    = "ccache"
	kindSecret    = "secret"
	kindPassword  = "password"
)

func (t Type) String() string {
	switch t {
	case Automatic:
		return kindAutomatic
	case CCache:
		return kindCCache
	case Secret:
		return kindSecret
	case Password:
		return kindPassword
	default:
		return "unknown"
	}
}

// Input is the three-part structured wire value (kind, owner, payload).
// Payload shape depends on Kind: password carries Name and Secret, secret
// carries Secret, ccache carries Path.
type Input struct {
	Kind  string `json:"kind"`
	Owner string `json:"owner,omitempty"`

	Name   string `json:"name,omitempty"`
	Secret []byte `json:"secret,omitempty"`
	Path   string `json:"path,omitempty"`
}

// Credential is a parsed, typed credential. Exactly one variant is
// populated. After Release the credential must not be used again.
type Credential struct {
	typ   Type
	owner string

	name   string
	secret []byte

	ccacheFile string
	// ccacheOwned marks caches the daemon itself created; only those are
	// deleted on release, caller-owned caches stay untouched.
	ccacheOwned bool

	released bool
}

// Parse decodes a wire value into a typed Credential. Unknown kinds and
// malformed payloads fail with an invalid-argument error.
func Parse(in Input) (*Credential, error) {
	cred := &Credential{owner: in.Owner}

	switch in.Kind {
	case kindAutomatic:
		cred.typ = Automatic
	case kindCCache:
		if in.Path == "" {
			return nil, realm.NewError(realm.KindInvalidArgument,
				"Invalid credential cache argument")
		}
		cred.typ = CCache
		cred.ccacheFile = in.Path
	case kindSecret:
		if len(in.Secret) == 0 {
			return nil, realm.NewError(realm.KindInvalidArgument,
				"Invalid secret argument")
		}
		cred.typ = Secret
		cred.secret = append([]byte(nil), in.Secret...)
	case kindPassword:
		if in.Name == "" || len(in.Secret) == 0 {
			return nil, realm.NewError(realm.KindInvalidArgument,
				"Invalid username and password arguments")
		}
		cred.typ = Password
		cred.name = in.Name
		cred.secret = append([]byte(nil), in.Secret...)
	default:
		return nil, realm.NewError(realm.KindInvalidArgument,
			"Invalid credential type: %s", in.Kind)
	}

	return cred, nil
}

// NewAutomatic synthesizes an automatic credential, as used by the forced
// deconfigure path where the caller supplies none.
func NewAutomatic() *Credential {
	return &Credential{typ: Automatic, owner: "none"}
}

func (c *Credential) Type() Type    { return c.typ }
func (c *Credential) Owner() string { return c.owner }
func (c *Credential) Name() string  { return c.name }

// Secret returns the secret bytes. The slice is owned by the credential and
// is overwritten on Release; callers must not retain it.
func (c *Credential) Secret() []byte { return c.secret }

// CCacheFile returns the ticket cache path for CCache credentials.
func (c *Credential) CCacheFile() string { return c.ccacheFile }

// SetCCacheFile attaches a daemon-created ticket cache to the credential.
// Ownership transfers: the cache is deleted on Release.
func (c *Credential) SetCCacheFile(path string) {
	c.ccacheFile = path
	c.ccacheOwned = true
}

// Release erases secret material and deletes any daemon-owned ticket cache.
// Safe to call once; the credential must not be used afterwards.
func (c *Credential) Release() {
	if c.released {
		return
	}
	c.released = true

	for i := range c.secret {
		c.secret[i] = 0
	}
	c.secret = nil

	if c.ccacheOwned && c.ccacheFile != "" {
		// Best effort: a stale cache file is a hygiene problem, not a
		// failure of the operation being torn down.
		_ = os.Remove(c.ccacheFile)
	}
	c.ccacheFile = ""
}

// Descriptor advertises one supported credential type to callers.
type Descriptor struct {
	Type  string `json:"type"`
	Owner string `json:"owner"`
}

// Supported pairs a credential type with the account owner the back-end
// expects it for.
type Supported struct {
	Type  Type
	Owner string
}

// BuildSupported produces the capability list exposed to callers for a
// back-end's supported credential set.
func BuildSupported(supported []Supported) []Descriptor {
	out := make([]Descriptor, 0, len(supported))
	for _, s := range supported {
		out = append(out, Descriptor{Type: s.Type.String(), Owner: s.Owner})
	}
	return out
}

// TypeSupported reports whether typ appears in the supported set.
func TypeSupported(supported []Supported, typ Type) bool {
	for _, s := range supported {
		if s.Type == typ {
			return true
		}
	}
	return false
}
