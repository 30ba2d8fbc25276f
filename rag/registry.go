package rag

import "sync"

// Factory builds the engine for a tenant on first use.
type Factory func(tenant string) (*Engine, error)

// Registry hands out one engine per tenant, constructed lazily. It
// replaces ambient per-user globals: callers receive it by reference
// from the composition root.
type Registry struct {
	factory Factory

	mu      sync.Mutex
	engines map[string]*Engine
}

func NewRegistry(factory Factory) *Registry {
	return &Registry{
		factory: factory,
		engines: make(map[string]*Engine),
	}
}

// Get returns the tenant's engine, creating it on first access. The
// engine carries the tenant's precision mode, so the same instance must
// be returned for the tenant's lifetime.
func (r *Registry) Get(tenant string) (*Engine, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if e, ok := r.engines[tenant]; ok {
		return e, nil
	}
	e, err := r.factory(tenant)
	if err != nil {
		return nil, err
	}
	r.engines[tenant] = e
	return e, nil
}
