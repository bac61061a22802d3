package reconcile

import (
	"context"
	"time"

	"github.com/roach88/entsync/internal/ir"
	"github.com/roach88/entsync/internal/schema"
)

// Entity is a persisted object being reconciled.
type Entity interface {
	ID() string
	EntityName() string

	Get(field string) (ir.IRValue, bool)
	Set(field string, v ir.IRValue)
	Clear(field string)
	Fields() ir.IRObject

	// SetRelation replaces the targets of a relationship by id.
	SetRelation(name string, ids ...string)
	ClearRelation(name string)

	CreatedAt() time.Time
	UpdatedAt() time.Time
	SetUpdatedAt(t time.Time)
}

// Context is the transaction-scoped store a reconciliation runs against.
type Context[E Entity] interface {
	// FindOne returns an entity whose field equals value. The bool is
	// false when there is none.
	FindOne(ctx context.Context, entity, field string, value ir.IRValue) (E, bool, error)

	// Insert creates an entity with createdAt and updatedAt set to at.
	Insert(ctx context.Context, entity string, at time.Time) (E, error)

	// Now returns the time new entities are stamped with.
	Now() time.Time
}

// Metadata looks up entity descriptions by name. *schema.Registry
// implements it.
type Metadata interface {
	Lookup(name string) (*schema.EntityDescription, bool)
}

// Observer is notified of reconciliation outcomes.
type Observer interface {
	EntityInserted(entity string)
	// EntityUpdated reports an existing entity; skipped is true when the
	// payload timestamp matched and properties were not mapped.
	EntityUpdated(entity string, skipped bool)
	TransformFailed(entity, property, transformer string)
	RelationshipSkipped(entity, relationship, reason string)
}

// NopObserver ignores every notification.
type NopObserver struct{}

func (NopObserver) EntityInserted(string)                      {}
func (NopObserver) EntityUpdated(string, bool)                 {}
func (NopObserver) TransformFailed(string, string, string)     {}
func (NopObserver) RelationshipSkipped(string, string, string) {}
