package breaker

import "sync"

// Registry holds one breaker per dependency name. It is constructed once at
// startup and passed to components that need protection, so tests can use
// isolated registries instead of shared process-wide state.
type Registry struct {
	mu       sync.Mutex
	defaults Config
	breakers map[string]*Breaker
}

// NewRegistry creates a registry whose lazily-created breakers use defaults.
func NewRegistry(defaults Config) *Registry {
	return &Registry{
		defaults: defaults.withDefaults(),
		breakers: make(map[string]*Breaker),
	}
}

// Get returns the breaker for name, creating it with the registry defaults
// on first use.
func (r *Registry) Get(name string) *Breaker {
	r.mu.Lock()
	defer r.mu.Unlock()

	if b, ok := r.breakers[name]; ok {
		return b
	}
	b := New(name, r.defaults)
	r.breakers[name] = b
	return b
}

// Configure creates (or replaces) the breaker for name with an explicit
// configuration. Used at wiring time for dependencies with known limits.
func (r *Registry) Configure(name string, cfg Config) *Breaker {
	r.mu.Lock()
	defer r.mu.Unlock()

	b := New(name, cfg)
	r.breakers[name] = b
	return b
}

// Snapshot returns the status of every registered breaker.
func (r *Registry) Snapshot() map[string]Status {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make(map[string]Status, len(r.breakers))
	for name, b := range r.breakers {
		out[name] = b.Status()
	}
	return out
}
