package reconcile

import (
	"context"

	"github.com/roach88/entsync/internal/ir"
	"github.com/roach88/entsync/internal/keypath"
	"github.com/roach88/entsync/internal/schema"
)

// Reasons passed to Observer.RelationshipSkipped.
const (
	SkipUnresolvable = "unresolvable"
	SkipMissingID    = "missing_id"
)

// resolveRelationships links entity to the entities described by each
// relationship payload, reconciling them recursively.
func (r *Reconciler[E]) resolveRelationships(ctx context.Context, tx Context[E], entity E, desc *schema.EntityDescription, payload ir.IRObject) error {
	for _, rel := range desc.Relationships {
		var err error
		switch rel.Cardinality {
		case schema.ToMany:
			err = r.resolveToMany(ctx, tx, entity, desc, rel, payload)
		default:
			err = r.resolveToOne(ctx, tx, entity, desc, rel, payload)
		}
		if err != nil {
			return err
		}
	}
	return nil
}

func (r *Reconciler[E]) resolveToMany(ctx context.Context, tx Context[E], entity E, desc *schema.EntityDescription, rel schema.RelationshipDescriptor, payload ir.IRObject) error {
	raw, ok := keypath.Resolve(rel.Key, payload)
	if !ok {
		return nil
	}
	elems, ok := raw.(ir.IRArray)
	if !ok {
		return nil
	}
	if !rel.Resolvable() {
		r.skip(desc, rel, SkipUnresolvable)
		return nil
	}

	objs := make([]ir.IRObject, 0, len(elems))
	for i, elem := range elems {
		obj, ok := elem.(ir.IRObject)
		if !ok {
			r.logger.Debug("to-many element is not an object, relationship left untouched",
				"entity", desc.Name,
				"relationship", rel.Name,
				"index", i,
			)
			return nil
		}
		objs = append(objs, obj)
	}

	ids := make([]string, 0, len(objs))
	for _, obj := range objs {
		related, ok, err := r.reconcileRelated(ctx, tx, desc, rel, obj)
		if err != nil {
			return err
		}
		if ok {
			ids = append(ids, related.ID())
		}
	}
	entity.SetRelation(rel.Name, ids...)
	return nil
}

func (r *Reconciler[E]) resolveToOne(ctx context.Context, tx Context[E], entity E, desc *schema.EntityDescription, rel schema.RelationshipDescriptor, payload ir.IRObject) error {
	raw, ok := keypath.Resolve(rel.Key, payload)
	if !ok {
		return nil
	}
	if ir.IsNull(raw) {
		entity.ClearRelation(rel.Name)
		r.logger.Debug("relationship cleared", "entity", desc.Name, "relationship", rel.Name)
		return nil
	}
	if !rel.Resolvable() {
		r.skip(desc, rel, SkipUnresolvable)
		return nil
	}

	obj, ok := raw.(ir.IRObject)
	if !ok {
		obj = ir.IRObject{rel.IDKey: raw}
	}
	related, ok, err := r.reconcileRelated(ctx, tx, desc, rel, obj)
	if err != nil || !ok {
		return err
	}
	entity.SetRelation(rel.Name, related.ID())
	return nil
}

// reconcileRelated finds or creates the target of rel identified by
// obj[IDKey] and merges obj into it. The bool is false when obj carries
// no identifier.
func (r *Reconciler[E]) reconcileRelated(ctx context.Context, tx Context[E], desc *schema.EntityDescription, rel schema.RelationshipDescriptor, obj ir.IRObject) (E, bool, error) {
	var zero E

	raw, ok := obj[rel.IDKey]
	if !ok || ir.IsNull(raw) {
		r.skip(desc, rel, SkipMissingID)
		return zero, false, nil
	}

	value := raw
	if prop, ok := rel.Target.Property(rel.IDField); ok {
		value = r.lookupValue(prop, raw)
	}

	related, err := r.Reconcile(ctx, tx, rel.Target, rel.IDField, value, obj)
	if err != nil {
		return zero, false, err
	}
	return related, true, nil
}

func (r *Reconciler[E]) skip(desc *schema.EntityDescription, rel schema.RelationshipDescriptor, reason string) {
	r.logger.Warn("relationship skipped",
		"entity", desc.Name,
		"relationship", rel.Name,
		"reason", reason,
	)
	r.observer.RelationshipSkipped(desc.Name, rel.Name, reason)
}
