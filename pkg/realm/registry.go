package realm

import "sync"

// Registry owns every Realm by value in a keyed table. Providers and
// callers hold normalized domain-name keys, never direct ownership, so
// there are no reference cycles and realms live for the daemon lifetime.
type Registry struct {
	mu     sync.RWMutex
	realms map[string]*Realm
	order  []string
}

// NewRegistry creates an empty realm registry.
func NewRegistry() *Registry {
	return &Registry{realms: make(map[string]*Realm)}
}

// Lookup returns the realm registered under name, or nil.
func (g *Registry) Lookup(name string) *Realm {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.realms[NormalizeName(name)]
}

// LookupOrRegister returns the realm registered under name, creating and
// registering it from the discovery snapshot when unseen. The second result
// reports whether the realm already existed.
func (g *Registry) LookupOrRegister(name string, discovery Discovery) (*Realm, bool) {
	key := NormalizeName(name)

	g.mu.Lock()
	defer g.mu.Unlock()
	if r, ok := g.realms[key]; ok {
		return r, true
	}
	r := New(name, discovery)
	g.realms[key] = r
	g.order = append(g.order, key)
	return r, false
}

// All returns every known realm in registration order.
func (g *Registry) All() []*Realm {
	g.mu.RLock()
	defer g.mu.RUnlock()
	out := make([]*Realm, 0, len(g.order))
	for _, key := range g.order {
		out = append(out, g.realms[key])
	}
	return out
}

// Configured returns the realms that are currently joined.
func (g *Registry) Configured() []*Realm {
	var out []*Realm
	for _, r := range g.All() {
		if r.IsConfigured() {
			out = append(out, r)
		}
	}
	return out
}
