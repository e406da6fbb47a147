package inventory

import (
	"fmt"
	"sort"
)

// Registry holds loaded item templates indexed by ID.
//
// A Registry is populated during startup and read-only afterwards.
type Registry struct {
	items map[string]*Template
}

// NewRegistry returns an empty Registry.
//
// Postcondition: all internal maps are initialised.
func NewRegistry() *Registry {
	return &Registry{items: make(map[string]*Template)}
}

// RegisterItem adds d to the registry.
//
// Precondition: d must not be nil.
// Postcondition: Item(d.ID) returns (d, true); returns error if d.ID already registered.
func (r *Registry) RegisterItem(d *Template) error {
	if _, exists := r.items[d.ID]; exists {
		return fmt.Errorf("inventory: Registry.RegisterItem: item ID %q already registered", d.ID)
	}
	r.items[d.ID] = d
	return nil
}

// Item returns the Template for the given id and whether it was found.
//
// Postcondition: ok is true iff the id is registered.
func (r *Registry) Item(id string) (*Template, bool) {
	d, ok := r.items[id]
	return d, ok
}

// Len returns the number of registered templates.
func (r *Registry) Len() int { return len(r.items) }

// All returns every registered template sorted by ID.
func (r *Registry) All() []*Template {
	out := make([]*Template, 0, len(r.items))
	for _, d := range r.items {
		out = append(out, d)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}
