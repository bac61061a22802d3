package store

import (
	"maps"
	"slices"
	"time"

	"github.com/roach88/entsync/internal/ir"
)

// Object is an entity instance tracked by a Tx.
//
// Field and relation writes are buffered on the object and persisted by
// Tx.Commit. Writes that do not change a value leave the object clean,
// so reconciling an identical payload twice commits nothing.
//
// createdAt has no setter: it is fixed when the object is inserted.
type Object struct {
	id        string
	entity    string
	fields    ir.IRObject
	relations map[string][]string
	createdAt time.Time
	updatedAt time.Time
	seq       int64

	inserted       bool
	deleted        bool
	dirtyFields    bool
	dirtyRelations map[string]bool
}

func newObject(id, entity string, at time.Time) *Object {
	return &Object{
		id:             id,
		entity:         entity,
		fields:         ir.IRObject{},
		relations:      map[string][]string{},
		createdAt:      at,
		updatedAt:      at,
		inserted:       true,
		dirtyRelations: map[string]bool{},
	}
}

func objectFromRecord(rec Record) *Object {
	o := &Object{
		id:             rec.ID,
		entity:         rec.Entity,
		fields:         rec.Fields.Clone(),
		relations:      make(map[string][]string, len(rec.Relations)),
		createdAt:      rec.CreatedAt,
		updatedAt:      rec.UpdatedAt,
		seq:            rec.Seq,
		dirtyRelations: map[string]bool{},
	}
	if o.fields == nil {
		o.fields = ir.IRObject{}
	}
	for name, ids := range rec.Relations {
		o.relations[name] = slices.Clone(ids)
	}
	return o
}

// ID returns the object's store-assigned id.
func (o *Object) ID() string { return o.id }

// EntityName returns the name of the entity the object belongs to.
func (o *Object) EntityName() string { return o.entity }

// Get returns a field value.
func (o *Object) Get(field string) (ir.IRValue, bool) {
	v, ok := o.fields[field]
	return v, ok
}

// Set writes a field. Writing an equal value is a no-op.
func (o *Object) Set(field string, v ir.IRValue) {
	if v == nil || ir.IsNull(v) {
		o.Clear(field)
		return
	}
	if old, ok := o.fields[field]; ok && sameValue(old, v) {
		return
	}
	o.fields[field] = v
	o.dirtyFields = true
}

// sameValue is stricter than ir.Equal about numeric kinds so that
// 1 and 1.0 are stored as written.
func sameValue(a, b ir.IRValue) bool {
	switch a.(type) {
	case ir.IRInt:
		if _, ok := b.(ir.IRInt); !ok {
			return false
		}
	case ir.IRFloat:
		if _, ok := b.(ir.IRFloat); !ok {
			return false
		}
	}
	return ir.Equal(a, b)
}

// Clear removes a field.
func (o *Object) Clear(field string) {
	if _, ok := o.fields[field]; !ok {
		return
	}
	delete(o.fields, field)
	o.dirtyFields = true
}

// Fields returns a copy of the object's fields.
func (o *Object) Fields() ir.IRObject {
	return o.fields.Clone()
}

// Relation returns the ids of the objects related through name, in order.
func (o *Object) Relation(name string) []string {
	return slices.Clone(o.relations[name])
}

// RelationNames returns the names of the object's non-empty relations,
// sorted.
func (o *Object) RelationNames() []string {
	return slices.Sorted(maps.Keys(o.relations))
}

// SetRelation replaces the targets of a relation. Duplicate ids keep
// their first position. Setting no ids clears the relation.
func (o *Object) SetRelation(name string, ids ...string) {
	targets := dedupe(ids)
	if slices.Equal(o.relations[name], targets) {
		return
	}
	if len(targets) == 0 {
		delete(o.relations, name)
	} else {
		o.relations[name] = targets
	}
	o.dirtyRelations[name] = true
}

// ClearRelation removes every target of a relation.
func (o *Object) ClearRelation(name string) {
	o.SetRelation(name)
}

func (o *Object) removeTarget(id string) {
	for name, ids := range o.relations {
		if slices.Contains(ids, id) {
			o.SetRelation(name, slices.DeleteFunc(slices.Clone(ids), func(s string) bool { return s == id })...)
		}
	}
}

// CreatedAt returns the insertion time.
func (o *Object) CreatedAt() time.Time { return o.createdAt }

// UpdatedAt returns the source-of-truth modification time.
func (o *Object) UpdatedAt() time.Time { return o.updatedAt }

// SetUpdatedAt records the source-of-truth modification time.
func (o *Object) SetUpdatedAt(t time.Time) {
	if o.updatedAt.Equal(t) {
		return
	}
	o.updatedAt = t
	o.dirtyFields = true
}

// Seq returns the seq of the commit that last wrote the object, 0 if it
// has never been committed.
func (o *Object) Seq() int64 { return o.seq }

// IsInserted reports whether the object was created in this Tx.
func (o *Object) IsInserted() bool { return o.inserted }

// IsDirty reports whether the object has unsaved changes.
func (o *Object) IsDirty() bool {
	return o.inserted || o.deleted || o.dirtyFields || len(o.dirtyRelations) > 0
}

// Record returns a read-only snapshot of the object.
func (o *Object) Record() Record {
	rec := Record{
		ID:        o.id,
		Entity:    o.entity,
		Fields:    o.fields.Clone(),
		Relations: make(map[string][]string, len(o.relations)),
		CreatedAt: o.createdAt,
		UpdatedAt: o.updatedAt,
		Seq:       o.seq,
	}
	for name, ids := range o.relations {
		rec.Relations[name] = slices.Clone(ids)
	}
	return rec
}

func (o *Object) markClean(seq int64) {
	o.seq = seq
	o.inserted = false
	o.dirtyFields = false
	clear(o.dirtyRelations)
}

func dedupe(ids []string) []string {
	if len(ids) == 0 {
		return nil
	}
	out := make([]string, 0, len(ids))
	seen := make(map[string]bool, len(ids))
	for _, id := range ids {
		if id == "" || seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, id)
	}
	return out
}

// Record is a committed object as read from the store.
type Record struct {
	ID        string
	Entity    string
	Fields    ir.IRObject
	Relations map[string][]string
	CreatedAt time.Time
	UpdatedAt time.Time
	Seq       int64
}

// Ref returns the record's ObjectRef.
func (r Record) Ref() ObjectRef {
	return ObjectRef{ID: r.ID, Entity: r.Entity}
}
