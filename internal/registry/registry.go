// internal/registry/registry.go
package registry

import (
	"errors"
	"fmt"

	"github.com/tamzrod/modbus-driver/internal/fault"
)

// Registry maps variable names to device addresses.
// Immutable after New; safe for concurrent lookups.
// Iteration order is insertion order.
type Registry struct {
	names []string
	vars  map[string]VariableConfig
}

// New builds a registry from entries, keeping their order.
// Names must be non-empty and unique (case-sensitive).
func New(entries ...Entry) (*Registry, error) {
	r := &Registry{
		names: make([]string, 0, len(entries)),
		vars:  make(map[string]VariableConfig, len(entries)),
	}
	for i, e := range entries {
		if e.Name == "" {
			return nil, fmt.Errorf("registry: entry %d: name required", i)
		}
		if _, dup := r.vars[e.Name]; dup {
			return nil, fmt.Errorf("registry: duplicate variable %q", e.Name)
		}
		r.names = append(r.names, e.Name)
		r.vars[e.Name] = e.VariableConfig
	}
	return r, nil
}

// MustNew is New for static tables; it panics on error.
func MustNew(entries ...Entry) *Registry {
	r, err := New(entries...)
	if err != nil {
		panic(err)
	}
	return r
}

// Lookup resolves a name. Exact match only.
func (r *Registry) Lookup(name string) (VariableConfig, error) {
	if r == nil {
		return VariableConfig{}, errors.New("registry: nil")
	}
	vc, ok := r.vars[name]
	if !ok {
		return VariableConfig{}, fault.New(fault.KindUnknownVariable, "lookup", name, nil)
	}
	return vc, nil
}

// Names returns all variable names in insertion order.
func (r *Registry) Names() []string {
	if r == nil {
		return nil
	}
	out := make([]string, len(r.names))
	copy(out, r.names)
	return out
}

// Entries returns all entries in insertion order.
func (r *Registry) Entries() []Entry {
	if r == nil {
		return nil
	}
	out := make([]Entry, 0, len(r.names))
	for _, n := range r.names {
		out = append(out, Entry{Name: n, VariableConfig: r.vars[n]})
	}
	return out
}

func (r *Registry) Len() int {
	if r == nil {
		return 0
	}
	return len(r.names)
}

// Default returns the sample device map shipped with the driver.
// Several entries share an address on purpose: aliases are allowed.
func Default() *Registry {
	return MustNew(
		Entry{"Temperature-01", VariableConfig{Register: 5, Type: Int}},
		Entry{"PumpStatus-01", VariableConfig{Register: 6, Type: Bool}},
		Entry{"Pressure-01", VariableConfig{Register: 9, Type: Int}},
		Entry{"Temperature-02", VariableConfig{Register: 6, Type: Int}},
		Entry{"PumpStatus-02", VariableConfig{Register: 6, Type: Bool}},
		Entry{"Pressure-02", VariableConfig{Register: 6, Type: Int}},
	)
}
