package harness

import (
	"fmt"
	"slices"
	"strings"

	"github.com/roach88/entsync/internal/ir"
	"github.com/roach88/entsync/internal/queryir"
	"github.com/roach88/entsync/internal/schema"
	"github.com/roach88/entsync/internal/store"
	"github.com/roach88/entsync/internal/transform"
)

// AssertionError is returned when an assertion fails.
type AssertionError struct {
	Type     string // Assertion type for categorization
	Entity   string
	Expected string
	Actual   string
}

// Error implements the error interface.
func (e *AssertionError) Error() string {
	var buf strings.Builder
	fmt.Fprintf(&buf, "Assertion failed: %s %s\n", e.Type, e.Entity)
	fmt.Fprintf(&buf, "  Expected: %s\n", e.Expected)
	fmt.Fprintf(&buf, "  Actual: %s", e.Actual)
	return buf.String()
}

// EvaluateAssertions checks every assertion against state and returns
// one message per failure.
func EvaluateAssertions(reg *schema.Registry, state []store.Record, assertions []Assertion) []string {
	var failures []string
	for i, a := range assertions {
		var err error
		switch a.Type {
		case AssertCount:
			err = assertCount(state, a)
		case AssertEntity:
			err = assertEntity(reg, state, a)
		default:
			err = fmt.Errorf("unknown assertion type %q", a.Type)
		}
		if err != nil {
			failures = append(failures, fmt.Sprintf("assertions[%d]: %v", i, err))
		}
	}
	return failures
}

func assertCount(state []store.Record, a Assertion) error {
	matches, err := matching(state, a.Entity, a.Where)
	if err != nil {
		return err
	}
	if len(matches) != a.Count {
		return &AssertionError{
			Type:     AssertCount,
			Entity:   a.Entity,
			Expected: fmt.Sprintf("%d where %s", a.Count, formatWhere(a.Where)),
			Actual:   fmt.Sprintf("%d", len(matches)),
		}
	}
	return nil
}

func assertEntity(reg *schema.Registry, state []store.Record, a Assertion) error {
	matches, err := matching(state, a.Entity, a.Where)
	if err != nil {
		return err
	}
	if len(matches) != 1 {
		return &AssertionError{
			Type:     AssertEntity,
			Entity:   a.Entity,
			Expected: fmt.Sprintf("exactly one where %s", formatWhere(a.Where)),
			Actual:   fmt.Sprintf("%d matched", len(matches)),
		}
	}
	rec := matches[0]

	for _, field := range sortedKeys(a.Expect) {
		expected, err := ir.FromGo(a.Expect[field])
		if err != nil {
			return fmt.Errorf("expect %q: %w", field, err)
		}
		actual, present := rec.Fields[field]
		if ir.IsNull(expected) {
			if present {
				return fieldMismatch(a, field, "absent", actual)
			}
			continue
		}
		if !present {
			return &AssertionError{
				Type:     AssertEntity,
				Entity:   a.Entity,
				Expected: fmt.Sprintf("field %q = %v", field, ir.ToGo(expected)),
				Actual:   fmt.Sprintf("field %q absent", field),
			}
		}
		if !valuesEqual(expected, actual) {
			return fieldMismatch(a, field, fmt.Sprintf("%v", ir.ToGo(expected)), actual)
		}
	}

	desc, ok := reg.Lookup(a.Entity)
	if !ok && len(a.Relations) > 0 {
		return fmt.Errorf("unknown entity %q", a.Entity)
	}
	for _, name := range sortedKeys(a.Relations) {
		rel, ok := desc.Relationship(name)
		if !ok {
			return fmt.Errorf("entity %s has no relationship %q", a.Entity, name)
		}
		actual := relatedIdentities(state, rel, rec.Relations[name])
		expected := a.Relations[name]
		if !identitiesEqual(expected, actual) {
			return &AssertionError{
				Type:     AssertEntity,
				Entity:   a.Entity,
				Expected: fmt.Sprintf("relation %q = %v", name, expected),
				Actual:   fmt.Sprintf("relation %q = %v", name, actual),
			}
		}
	}
	return nil
}

// matching returns the records of entity whose fields equal every where
// value.
func matching(state []store.Record, entity string, where map[string]any) ([]store.Record, error) {
	var preds []queryir.Predicate
	for _, field := range sortedKeys(where) {
		v, err := ir.FromGo(where[field])
		if err != nil {
			return nil, fmt.Errorf("where %q: %w", field, err)
		}
		preds = append(preds, queryir.Equals{Field: field, Value: v})
	}
	filter := queryir.And{Predicates: preds}

	var out []store.Record
	for _, rec := range state {
		if rec.Entity == entity && queryir.Match(filter, rec.ID, rec.CreatedAt, rec.UpdatedAt, rec.Fields) {
			out = append(out, rec)
		}
	}
	return out, nil
}

// relatedIdentities maps target ids to the targets' identity values.
// Targets without an identity are reported by id.
func relatedIdentities(state []store.Record, rel schema.RelationshipDescriptor, ids []string) []any {
	identity := ""
	if rel.Target != nil {
		identity = rel.Target.Identity
	}
	out := make([]any, 0, len(ids))
	for _, id := range ids {
		i := slices.IndexFunc(state, func(r store.Record) bool { return r.ID == id })
		if i < 0 || identity == "" {
			out = append(out, id)
			continue
		}
		out = append(out, ir.ToGo(state[i].Fields[identity]))
	}
	return out
}

func identitiesEqual(expected, actual []any) bool {
	if len(expected) != len(actual) {
		return false
	}
	for i := range expected {
		e, err := ir.FromGo(expected[i])
		if err != nil {
			return false
		}
		a, err := ir.FromGo(actual[i])
		if err != nil {
			return false
		}
		if !valuesEqual(e, a) {
			return false
		}
	}
	return true
}

// valuesEqual compares a scenario value with a stored one. Times and
// decimals may be written as strings in scenarios.
func valuesEqual(expected, actual ir.IRValue) bool {
	if ir.Equal(expected, actual) {
		return true
	}
	s, ok := expected.(ir.IRString)
	if !ok {
		return false
	}
	switch val := actual.(type) {
	case ir.IRTime:
		t, ok := transform.ParseDate(string(s))
		return ok && t.Equal(val.Time())
	case ir.IRDecimal:
		d, ok := transform.StringToDecimal{}.Transform(s)
		return ok && ir.Equal(d, val)
	}
	return false
}

func fieldMismatch(a Assertion, field, expected string, actual ir.IRValue) error {
	return &AssertionError{
		Type:     AssertEntity,
		Entity:   a.Entity,
		Expected: fmt.Sprintf("field %q = %s", field, expected),
		Actual:   fmt.Sprintf("field %q = %v (%T)", field, ir.ToGo(actual), actual),
	}
}

func formatWhere(where map[string]any) string {
	if len(where) == 0 {
		return "(no conditions)"
	}
	parts := make([]string, 0, len(where))
	for _, k := range sortedKeys(where) {
		parts = append(parts, fmt.Sprintf("%s=%v", k, where[k]))
	}
	return strings.Join(parts, " AND ")
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}
