package reconcile

import (
	"context"
	"log/slog"
	"time"

	"github.com/roach88/entsync/internal/ir"
	"github.com/roach88/entsync/internal/keypath"
	"github.com/roach88/entsync/internal/schema"
	"github.com/roach88/entsync/internal/transform"
)

// Reconciler merges payloads into entities of type E.
//
// A Reconciler holds no per-call state and is safe for concurrent use
// against different contexts.
type Reconciler[E Entity] struct {
	transformers *transform.Registry
	logger       *slog.Logger
	observer     Observer
	timestampKey string
	metadata     Metadata
}

// New creates a Reconciler with the given options.
func New[E Entity](opts ...Option) *Reconciler[E] {
	c := config{
		timestampKey: DefaultTimestampKey,
	}
	for _, opt := range opts {
		opt(&c)
	}
	if c.transformers == nil {
		c.transformers = transform.Default()
	}
	if c.logger == nil {
		c.logger = slog.Default()
	}
	if c.observer == nil {
		c.observer = NopObserver{}
	}
	return &Reconciler[E]{
		transformers: c.transformers,
		logger:       c.logger,
		observer:     c.observer,
		timestampKey: c.timestampKey,
		metadata:     c.metadata,
	}
}

// Reconcile finds or creates the entity of desc whose field key equals
// value, then merges payload into it.
//
// A new entity is stamped with tx.Now() and has key set to value. When
// the payload timestamp equals the entity's updatedAt to the second,
// property mapping is skipped; relationships are always resolved.
func (r *Reconciler[E]) Reconcile(ctx context.Context, tx Context[E], desc *schema.EntityDescription, key string, value ir.IRValue, payload ir.IRObject) (E, error) {
	var zero E

	entity, found, err := tx.FindOne(ctx, desc.Name, key, value)
	if err != nil {
		return zero, newStoreError(ErrCodeStoreQuery, desc.Name, key, err)
	}

	if !found {
		entity, err = tx.Insert(ctx, desc.Name, tx.Now())
		if err != nil {
			return zero, newStoreError(ErrCodeStoreInsert, desc.Name, key, err)
		}
		entity.Set(key, value)
		r.observer.EntityInserted(desc.Name)
		r.logger.Debug("entity inserted",
			"entity", desc.Name,
			"id", entity.ID(),
			"key", key,
		)
	}

	stamp, hasStamp := r.payloadTimestamp(payload)
	current := found && hasStamp && transform.SameSecond(stamp, entity.UpdatedAt())

	if current {
		r.logger.Debug("payload timestamp matches, skipping properties",
			"entity", desc.Name,
			"id", entity.ID(),
		)
	} else {
		r.mapProperties(entity, desc, payload)
		if hasStamp {
			entity.SetUpdatedAt(stamp)
		}
	}
	if found {
		r.observer.EntityUpdated(desc.Name, current)
	}

	if err := r.resolveRelationships(ctx, tx, entity, desc, payload); err != nil {
		return zero, err
	}
	return entity, nil
}

// ReconcilePayload reconciles payload using the description's identity
// property to locate the entity. The identity value is read from the
// property's key and converted by its transformer, if any.
func (r *Reconciler[E]) ReconcilePayload(ctx context.Context, tx Context[E], desc *schema.EntityDescription, payload ir.IRObject) (E, error) {
	var zero E

	prop, ok := desc.IdentityProperty()
	if !ok {
		return zero, &Error{
			Code:    ErrCodeMissingIdentity,
			Message: "entity declares no identity property",
			Entity:  desc.Name,
		}
	}

	value, ok := r.identityValue(prop, payload)
	if !ok {
		return zero, &Error{
			Code:    ErrCodeMissingIdentity,
			Message: "payload has no value at " + prop.Key,
			Entity:  desc.Name,
			Field:   prop.Name,
		}
	}
	return r.Reconcile(ctx, tx, desc, prop.Name, value, payload)
}

// ReconcileAll reconciles each payload in order with ReconcilePayload.
// It stops at the first error.
func (r *Reconciler[E]) ReconcileAll(ctx context.Context, tx Context[E], desc *schema.EntityDescription, payloads []ir.IRObject) ([]E, error) {
	out := make([]E, 0, len(payloads))
	for _, payload := range payloads {
		e, err := r.ReconcilePayload(ctx, tx, desc, payload)
		if err != nil {
			return out, err
		}
		out = append(out, e)
	}
	return out, nil
}

// ReconcileNamed looks up the description for entity in the configured
// metadata and reconciles payload with ReconcilePayload.
func (r *Reconciler[E]) ReconcileNamed(ctx context.Context, tx Context[E], entity string, payload ir.IRObject) (E, error) {
	var zero E
	if r.metadata == nil {
		return zero, &Error{
			Code:    ErrCodeUnknownEntity,
			Message: "no metadata configured",
			Entity:  entity,
		}
	}
	desc, ok := r.metadata.Lookup(entity)
	if !ok {
		return zero, &Error{
			Code:    ErrCodeUnknownEntity,
			Message: "entity not described",
			Entity:  entity,
		}
	}
	return r.ReconcilePayload(ctx, tx, desc, payload)
}

// payloadTimestamp reads the timestamp key as a date string or a
// transformed time.
func (r *Reconciler[E]) payloadTimestamp(payload ir.IRObject) (time.Time, bool) {
	if r.timestampKey == "" {
		return time.Time{}, false
	}
	v, ok := keypath.Resolve(r.timestampKey, payload)
	if !ok {
		return time.Time{}, false
	}
	switch val := v.(type) {
	case ir.IRString:
		return transform.ParseDate(string(val))
	case ir.IRTime:
		return val.Time(), true
	}
	return time.Time{}, false
}

// identityValue resolves an identifier at prop.Key and applies the
// property's transformer. A failed transform falls back to the raw value
// so already-converted identifiers still match.
func (r *Reconciler[E]) identityValue(prop schema.PropertyDescriptor, payload ir.IRObject) (ir.IRValue, bool) {
	raw, ok := keypath.Resolve(prop.Key, payload)
	if !ok || ir.IsNull(raw) {
		return nil, false
	}
	return r.lookupValue(prop, raw), true
}

func (r *Reconciler[E]) lookupValue(prop schema.PropertyDescriptor, raw ir.IRValue) ir.IRValue {
	if prop.Transformer == "" {
		return raw
	}
	if v, ok := r.transformers.Apply(prop.Transformer, raw); ok {
		return v
	}
	return raw
}
