package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/roach88/entsync/internal/ir"
	"github.com/roach88/entsync/internal/queryir"
)

// ErrTxDone is returned by every Tx method after Commit or Rollback.
var ErrTxDone = errors.New("store: transaction already committed or rolled back")

// Tx is a reconciliation context: an identity map of the objects read or
// created since Begin, with changes buffered until Commit.
//
// Each id maps to exactly one *Object within a Tx, so a lookup always
// sees earlier in-memory edits, including objects inserted but not yet
// committed. A Tx is not safe for concurrent use.
type Tx struct {
	s       *Store
	now     time.Time
	objects map[string]*Object
	order   []*Object
	done    bool
}

func newTx(s *Store) *Tx {
	return &Tx{
		s:       s,
		now:     s.now(),
		objects: make(map[string]*Object),
	}
}

// Now returns the wall time captured at Begin. Every object inserted in
// the Tx shares it.
func (t *Tx) Now() time.Time {
	return t.now
}

// FindOne returns an object of entity whose field equals value.
// In-memory objects are checked first, in the order they joined the Tx;
// then the database, skipping objects whose in-memory state no longer
// matches. The bool is false when nothing matches.
func (t *Tx) FindOne(ctx context.Context, entity, field string, value ir.IRValue) (*Object, bool, error) {
	if t.done {
		return nil, false, ErrTxDone
	}

	pred := queryir.Equals{Field: field, Value: value}
	for _, o := range t.order {
		if o.entity == entity && !o.deleted && queryir.Match(pred, o.id, o.createdAt, o.updatedAt, o.fields) {
			return o, true, nil
		}
	}

	records, err := t.s.Fetch(ctx, queryir.Select{Entity: entity, Filter: pred})
	if err != nil {
		return nil, false, fmt.Errorf("find %s where %s: %w", entity, field, err)
	}
	for _, rec := range records {
		if _, tracked := t.objects[rec.ID]; tracked {
			continue
		}
		return t.track(objectFromRecord(rec)), true, nil
	}
	return nil, false, nil
}

// Get returns the object with id, loading it into the Tx if needed.
func (t *Tx) Get(ctx context.Context, id string) (*Object, bool, error) {
	if t.done {
		return nil, false, ErrTxDone
	}
	if o, ok := t.objects[id]; ok {
		return o, !o.deleted, nil
	}

	rec, ok, err := t.s.Get(ctx, id)
	if err != nil || !ok {
		return nil, false, err
	}
	return t.track(objectFromRecord(rec)), true, nil
}

// Insert creates a new object of entity with createdAt and updatedAt
// set to at. The object is written on Commit.
func (t *Tx) Insert(ctx context.Context, entity string, at time.Time) (*Object, error) {
	if t.done {
		return nil, ErrTxDone
	}
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("insert %s: %w", entity, err)
	}

	id := t.s.ids.Generate()
	if _, exists := t.objects[id]; exists {
		return nil, fmt.Errorf("insert %s: duplicate object id %q", entity, id)
	}
	return t.track(newObject(id, entity, at)), nil
}

// Delete marks o for deletion and detaches it from every tracked object
// that relates to it. Committed relation rows pointing at o are removed
// by the database.
func (t *Tx) Delete(o *Object) error {
	if t.done {
		return ErrTxDone
	}
	if t.objects[o.id] != o {
		return fmt.Errorf("delete %s: object not tracked by this transaction", o.id)
	}
	o.deleted = true
	for _, other := range t.order {
		if other != o {
			other.removeTarget(o.id)
		}
	}
	return nil
}

// Related returns the objects related to o through name, in order.
// Targets that no longer exist are skipped.
func (t *Tx) Related(ctx context.Context, o *Object, name string) ([]*Object, error) {
	var out []*Object
	for _, id := range o.relations[name] {
		target, ok, err := t.Get(ctx, id)
		if err != nil {
			return nil, err
		}
		if ok {
			out = append(out, target)
		}
	}
	return out, nil
}

// Objects returns the objects tracked by the Tx in the order they joined.
func (t *Tx) Objects() []*Object {
	return append([]*Object(nil), t.order...)
}

// Rollback discards every buffered change. It is safe to call after
// Commit, in which case it does nothing.
func (t *Tx) Rollback() {
	t.done = true
}

func (t *Tx) track(o *Object) *Object {
	t.objects[o.id] = o
	t.order = append(t.order, o)
	return o
}
