// Package transform provides named value converters applied to payload
// values before they are written to entity fields.
//
// A Transformer never fails loudly: a value it cannot convert yields
// ok == false and the caller leaves the target field untouched.
package transform

import (
	"errors"
	"slices"
	"sync"

	"github.com/roach88/entsync/internal/ir"
)

// Built-in transformer names.
const (
	StringToIntName         = "StringToInt"
	IntToStringName         = "IntToString"
	StringToISO8601DateName = "StringToISO8601Date"
	StringToDecimalName     = "StringToDecimal"
)

// Legacy names accepted in mapping metadata for the built-ins.
// The misspelling in the date transformer name is deliberate; existing
// model files use it.
const (
	LegacyStringToIntName     = "StringToIntTransformer"
	LegacyIntToStringName     = "IntToStringTransformer"
	LegacyStringToISO8601Name = "StringToISO8601DateTransfomer"
	LegacyStringToDecimalName = "StringToDecimalNumberTransformer"
)

// Transformer converts a single value.
type Transformer interface {
	Transform(v ir.IRValue) (ir.IRValue, bool)
}

// Func adapts an ordinary function to the Transformer interface.
type Func func(v ir.IRValue) (ir.IRValue, bool)

// Transform calls f(v).
func (f Func) Transform(v ir.IRValue) (ir.IRValue, bool) {
	return f(v)
}

// ErrInvalidRegistration is returned by Register for an empty name or a nil
// transformer.
var ErrInvalidRegistration = errors.New("transformer name and implementation are required")

// Registry maps transformer names to implementations.
// Safe for concurrent use.
type Registry struct {
	mu           sync.RWMutex
	transformers map[string]Transformer
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{transformers: make(map[string]Transformer)}
}

// Default returns a new registry holding the built-in transformers under
// both their current and legacy names.
func Default() *Registry {
	r := NewRegistry()
	builtins := []struct {
		names []string
		t     Transformer
	}{
		{[]string{StringToIntName, LegacyStringToIntName}, StringToInt{}},
		{[]string{IntToStringName, LegacyIntToStringName}, IntToString{}},
		{[]string{StringToISO8601DateName, LegacyStringToISO8601Name}, StringToISO8601Date{}},
		{[]string{StringToDecimalName, LegacyStringToDecimalName}, StringToDecimal{}},
	}
	for _, b := range builtins {
		for _, name := range b.names {
			r.transformers[name] = b.t
		}
	}
	return r
}

// Register adds or replaces the transformer stored under name.
func (r *Registry) Register(name string, t Transformer) error {
	if name == "" || t == nil {
		return ErrInvalidRegistration
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.transformers[name] = t
	return nil
}

// Lookup returns the transformer registered under name.
func (r *Registry) Lookup(name string) (Transformer, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.transformers[name]
	return t, ok
}

// Has reports whether name is registered.
func (r *Registry) Has(name string) bool {
	_, ok := r.Lookup(name)
	return ok
}

// Names returns all registered names in sorted order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.transformers))
	for name := range r.transformers {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// Apply transforms v with the named transformer. An unknown name behaves
// like a failed conversion.
func (r *Registry) Apply(name string, v ir.IRValue) (ir.IRValue, bool) {
	t, ok := r.Lookup(name)
	if !ok {
		return nil, false
	}
	return t.Transform(v)
}
