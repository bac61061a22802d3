package queryir

import (
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/roach88/entsync/internal/ir"
)

// ErrInvalidQuery is wrapped by every error returned from Validate.
var ErrInvalidQuery = errors.New("invalid query")

// Validate checks that a query is well formed. All problems are reported
// together, joined with errors.Join.
func Validate(q Query) error {
	v := &validator{}
	v.validateQuery(q)
	if len(v.problems) == 0 {
		return nil
	}
	return fmt.Errorf("%w: %w", ErrInvalidQuery, errors.Join(v.problems...))
}

type validator struct {
	problems []error
}

func (v *validator) addf(format string, args ...any) {
	v.problems = append(v.problems, fmt.Errorf(format, args...))
}

func (v *validator) validateQuery(q Query) {
	switch query := q.(type) {
	case Select:
		v.validateSelect(query)
	case *Select:
		if query == nil {
			v.addf("nil query")
			return
		}
		v.validateSelect(*query)
	default:
		v.addf("unsupported query type %T", q)
	}
}

func (v *validator) validateSelect(sel Select) {
	if sel.Entity == "" {
		v.addf("entity is required")
	}
	if sel.Limit < 0 {
		v.addf("limit must not be negative, got %d", sel.Limit)
	}
	for i, key := range sel.Sort {
		if key.Field == "" {
			v.addf("sort key %d: field is required", i)
		}
	}
	if sel.Filter != nil {
		v.validatePredicate(sel.Filter)
	}
}

func (v *validator) validatePredicate(p Predicate) {
	switch pred := p.(type) {
	case Equals:
		v.validateField(pred.Field)
	case *Equals:
		v.validatePredicate(*pred)
	case In:
		v.validateField(pred.Field)
	case *In:
		v.validatePredicate(*pred)
	case IDIn:
	case *IDIn:
	case And:
		for _, sub := range pred.Predicates {
			v.validatePredicate(sub)
		}
	case *And:
		v.validatePredicate(*pred)
	default:
		v.addf("unsupported predicate type %T", p)
	}
}

func (v *validator) validateField(field string) {
	if field == "" {
		v.addf("predicate field is required")
	}
}

// Match evaluates p against one object in memory. It agrees with the SQL
// backend for scalar values.
func Match(p Predicate, id string, createdAt, updatedAt time.Time, fields ir.IRObject) bool {
	lookup := func(field string) (ir.IRValue, bool) {
		switch field {
		case FieldID:
			return ir.IRString(id), true
		case FieldCreated:
			return ir.IRInt(createdAt.UnixNano()), true
		case FieldUpdated:
			return ir.IRInt(updatedAt.UnixNano()), true
		}
		v, ok := fields[field]
		return v, ok
	}
	return match(p, id, lookup)
}

func match(p Predicate, id string, lookup func(string) (ir.IRValue, bool)) bool {
	switch pred := p.(type) {
	case nil:
		return true
	case Equals:
		return equalsField(lookup, pred.Field, pred.Value)
	case *Equals:
		return equalsField(lookup, pred.Field, pred.Value)
	case In:
		return slices.ContainsFunc(pred.Values, func(want ir.IRValue) bool {
			return equalsField(lookup, pred.Field, want)
		})
	case *In:
		return match(*pred, id, lookup)
	case IDIn:
		return slices.Contains(pred.IDs, id)
	case *IDIn:
		return slices.Contains(pred.IDs, id)
	case And:
		for _, sub := range pred.Predicates {
			if !match(sub, id, lookup) {
				return false
			}
		}
		return true
	case *And:
		return match(*pred, id, lookup)
	}
	return false
}

func equalsField(lookup func(string) (ir.IRValue, bool), field string, want ir.IRValue) bool {
	got, ok := lookup(field)
	if ir.IsNull(want) || want == nil {
		return !ok || ir.IsNull(got)
	}
	return ok && ir.Equal(got, want)
}
