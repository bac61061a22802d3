package queryir

import "github.com/roach88/entsync/internal/ir"

// Pseudo fields address object metadata rather than stored properties.
// They are accepted wherever a field name is.
const (
	FieldID      = "@id"
	FieldCreated = "@created"
	FieldUpdated = "@updated"
)

// Query represents an abstract query.
//
// This is a sealed interface - only types in this package implement it.
type Query interface {
	queryNode()
}

// Predicate represents a filter condition.
//
// This is a sealed interface - only types in this package implement it.
type Predicate interface {
	predicateNode()
}

// Select reads the objects of one entity.
//
// Semantics:
//
//	SELECT * FROM <entity> WHERE <filter> ORDER BY <sort>, id LIMIT <limit>
//
// A nil Filter matches every object. Limit 0 means no limit.
type Select struct {
	Entity string
	Filter Predicate
	Sort   []SortKey
	Limit  int
}

func (Select) queryNode() {}

// SortKey orders results by one field. Objects missing the field sort
// first in ascending order.
type SortKey struct {
	Field      string
	Descending bool
}

// Equals matches objects whose field equals Value.
//
// Comparing against ir.IRNull matches objects where the field is null or
// absent.
type Equals struct {
	Field string
	Value ir.IRValue
}

func (Equals) predicateNode() {}

// In matches objects whose field equals any of Values. An empty Values
// matches nothing.
type In struct {
	Field  string
	Values []ir.IRValue
}

func (In) predicateNode() {}

// IDIn matches objects by id.
type IDIn struct {
	IDs []string
}

func (IDIn) predicateNode() {}

// And represents a conjunction of predicates. An empty And is always true.
type And struct {
	Predicates []Predicate
}

func (And) predicateNode() {}

// Where is shorthand for a single-entity select filtered by field = value.
func Where(entity, field string, value ir.IRValue) Select {
	return Select{Entity: entity, Filter: Equals{Field: field, Value: value}}
}
