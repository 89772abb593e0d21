package catalog

import "fmt"

// Registration binds a supplier slug to its scraper factory.
type Registration struct {
	Slug    string
	Factory Factory
}

// Registry is an immutable ordered lookup from supplier slug to factory.
// Registration order is preserved explicitly because it is also the batch
// processing order.
type Registry struct {
	order     []string
	factories map[string]Factory
}

// NewRegistry builds a Registry from an ordered list of registrations.
func NewRegistry(regs []Registration) (*Registry, error) {
	r := &Registry{
		order:     make([]string, 0, len(regs)),
		factories: make(map[string]Factory, len(regs)),
	}
	for _, reg := range regs {
		if reg.Slug == "" {
			return nil, fmt.Errorf("registration has empty slug")
		}
		if reg.Factory == nil {
			return nil, fmt.Errorf("registration %q has nil factory", reg.Slug)
		}
		if _, dup := r.factories[reg.Slug]; dup {
			return nil, fmt.Errorf("duplicate registration for %q", reg.Slug)
		}
		r.order = append(r.order, reg.Slug)
		r.factories[reg.Slug] = reg.Factory
	}
	return r, nil
}

// Resolve returns the factory for a slug, or false if unknown.
func (r *Registry) Resolve(slug string) (Factory, bool) {
	f, ok := r.factories[slug]
	return f, ok
}

// Slugs returns the registered slugs in registration order.
func (r *Registry) Slugs() []string {
	out := make([]string, len(r.order))
	copy(out, r.order)
	return out
}
