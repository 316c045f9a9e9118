package provider

import (
	"fmt"
	"sync"
)

// Registry holds the registered back-ends in registration order. The order
// is significant: discovery ties are broken by it.
type Registry struct {
	mu        sync.RWMutex
	providers []Provider
	byName    map[string]Provider
}

// NewRegistry creates an empty provider registry.
func NewRegistry() *Registry {
	return &Registry{byName: make(map[string]Provider)}
}

// Register adds a back-end. Registering the same name twice is a
// programming error.
func (g *Registry) Register(p Provider) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if _, ok := g.byName[p.Name()]; ok {
		return fmt.Errorf("provider %q already registered", p.Name())
	}
	g.byName[p.Name()] = p
	g.providers = append(g.providers, p)
	return nil
}

// Lookup returns the back-end registered under name, or nil.
func (g *Registry) Lookup(name string) Provider {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.byName[name]
}

// All returns the back-ends in registration order.
func (g *Registry) All() []Provider {
	g.mu.RLock()
	defer g.mu.RUnlock()
	out := make([]Provider, len(g.providers))
	copy(out, g.providers)
	return out
}
