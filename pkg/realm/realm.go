// Package realm holds the long-lived realm objects the daemon manages: one
// per known identity domain, created on first discovery or configuration and
// kept for the daemon's lifetime. A Realm represents a configuration slot,
// not a transient object.
package realm

import (
	"slices"
	"strings"
	"sync"
)

// Detail is one ordered name/value pair of realm metadata exposed to
// callers (server-software, client-software, and so on).
type Detail struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// Realm is one known identity domain. All mutating accessors are called only
// while the daemon's exclusive enroll lock is held; readers may observe a
// previous consistent value at any time.
type Realm struct {
	mu sync.RWMutex

	name       string
	realmName  string
	domainName string

	// configured is empty while unconfigured, otherwise the identifier of
	// the back-end that joined this realm.
	configured string

	// provider is the identifier of the back-end that discovered or owns
	// this realm; join and leave dispatch through it.
	provider string

	policy          LoginPolicy
	permittedLogins []string
	loginFormats    []string
	suggestedAdmin  string

	discovery Discovery
	details   []Detail
}

// New creates a realm named name, seeded from the given discovery snapshot
// (which may be nil for realms read back from system configuration).
func New(name string, discovery Discovery) *Realm {
	r := &Realm{
		name:      name,
		discovery: discovery.Clone(),
	}
	r.domainName = strings.ToLower(name)
	r.realmName = strings.ToUpper(name)
	if domain := discovery.Get(DiscoveryDomain); domain != "" {
		r.domainName = strings.ToLower(domain)
	}
	if krealm := discovery.Get(DiscoveryRealm); krealm != "" {
		r.realmName = krealm
	}
	return r
}

// NormalizeName maps a domain or realm name onto the registry key.
func NormalizeName(name string) string {
	return strings.ToLower(strings.TrimSuffix(strings.TrimSpace(name), "."))
}

func (r *Realm) Name() string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.name
}

func (r *Realm) RealmName() string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.realmName
}

func (r *Realm) DomainName() string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.domainName
}

// Configured returns the identifier of the back-end that joined this realm,
// or "" while unconfigured.
func (r *Realm) Configured() string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.configured
}

func (r *Realm) SetConfigured(backend string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.configured = backend
}

func (r *Realm) IsConfigured() bool {
	return r.Configured() != ""
}

// Provider returns the identifier of the back-end this realm dispatches to.
func (r *Realm) Provider() string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.provider
}

func (r *Realm) SetProvider(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.provider = name
}

func (r *Realm) LoginPolicy() LoginPolicy {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.policy
}

func (r *Realm) SetLoginPolicy(policy LoginPolicy) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.policy = policy
	if policy == PolicyDenyAny {
		r.permittedLogins = nil
	}
}

// PermittedLogins returns the ordered, de-duplicated permitted login list.
func (r *Realm) PermittedLogins() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return slices.Clone(r.permittedLogins)
}

// AddPermittedLogins appends logins not already present, keeping order.
func (r *Realm) AddPermittedLogins(logins []string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, login := range logins {
		if !slices.Contains(r.permittedLogins, login) {
			r.permittedLogins = append(r.permittedLogins, login)
		}
	}
}

// RemovePermittedLogins drops the given logins; unknown entries are ignored.
func (r *Realm) RemovePermittedLogins(logins []string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.permittedLogins = slices.DeleteFunc(r.permittedLogins, func(l string) bool {
		return slices.Contains(logins, l)
	})
}

func (r *Realm) LoginFormats() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return slices.Clone(r.loginFormats)
}

func (r *Realm) SetLoginFormats(formats []string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.loginFormats = slices.Clone(formats)
}

func (r *Realm) SuggestedAdmin() string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.suggestedAdmin
}

func (r *Realm) SetSuggestedAdmin(admin string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.suggestedAdmin = admin
}

// Discovery returns the discovery snapshot this realm was seeded from.
func (r *Realm) Discovery() Discovery {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.discovery.Clone()
}

func (r *Realm) SetDiscovery(discovery Discovery) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.discovery = discovery.Clone()
	if krealm := r.discovery.Get(DiscoveryRealm); krealm != "" {
		r.realmName = krealm
	}
	if domain := r.discovery.Get(DiscoveryDomain); domain != "" {
		r.domainName = strings.ToLower(domain)
	}
}

// Details returns the ordered metadata pairs exposed to callers.
func (r *Realm) Details() []Detail {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return slices.Clone(r.details)
}

func (r *Realm) SetDetails(details []Detail) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.details = slices.Clone(details)
}
