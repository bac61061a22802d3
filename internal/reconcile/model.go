package reconcile

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/roach88/entsync/internal/ir"
	"github.com/roach88/entsync/internal/queryir"
	"github.com/roach88/entsync/internal/schema"
)

// Model binds an entity description to a Go type T decoded from the
// reconciled entity.
type Model[T any] struct {
	Desc *schema.EntityDescription

	// Decode converts a reconciled entity to T. Nil means DecodeFields.
	Decode func(Entity) (T, error)
}

// ReconcileModel reconciles payload with r and decodes the result as T.
func ReconcileModel[T any, E Entity](ctx context.Context, r *Reconciler[E], tx Context[E], m Model[T], key string, value ir.IRValue, payload ir.IRObject) (T, error) {
	var zero T
	entity, err := r.Reconcile(ctx, tx, m.Desc, key, value, payload)
	if err != nil {
		return zero, err
	}
	decode := m.Decode
	if decode == nil {
		decode = DecodeFields[T]
	}
	return decode(entity)
}

// DecodeFields decodes an entity's fields into T using json struct tags.
// The entity id and timestamps are available under the @id, @created and
// @updated keys. Times decode from RFC 3339 text and decimals from their
// string form.
func DecodeFields[T any](e Entity) (T, error) {
	var out T

	doc, ok := ir.ToGo(e.Fields()).(map[string]any)
	if !ok {
		doc = map[string]any{}
	}
	doc[queryir.FieldID] = e.ID()
	doc[queryir.FieldCreated] = e.CreatedAt()
	doc[queryir.FieldUpdated] = e.UpdatedAt()

	data, err := json.Marshal(doc)
	if err != nil {
		return out, fmt.Errorf("encode %s fields: %w", e.EntityName(), err)
	}
	if err := json.Unmarshal(data, &out); err != nil {
		return out, fmt.Errorf("decode %s into %T: %w", e.EntityName(), out, err)
	}
	return out, nil
}
