package store

import (
	"context"
	"fmt"
	"slices"
	"time"

	"github.com/roach88/entsync/internal/notify"
	"github.com/roach88/entsync/internal/queryir"
)

// ObjectRef identifies an object in a ChangeSet.
type ObjectRef struct {
	ID     string `json:"id"`
	Entity string `json:"entity"`
}

// ChangeSet describes one commit. Refs appear in the order the objects
// joined the Tx.
type ChangeSet struct {
	Seq         int64       `json:"seq"`
	CommittedAt time.Time   `json:"committed_at"`
	Inserted    []ObjectRef `json:"inserted,omitempty"`
	Updated     []ObjectRef `json:"updated,omitempty"`
	Deleted     []ObjectRef `json:"deleted,omitempty"`
}

// Empty reports whether the change set carries no changes.
func (c ChangeSet) Empty() bool {
	return len(c.Inserted)+len(c.Updated)+len(c.Deleted) == 0
}

// ForEntity narrows the change set to one entity. The bool is false when
// nothing of that entity changed.
func (c ChangeSet) ForEntity(entity string) (ChangeSet, bool) {
	keep := func(refs []ObjectRef) []ObjectRef {
		var out []ObjectRef
		for _, ref := range refs {
			if ref.Entity == entity {
				out = append(out, ref)
			}
		}
		return out
	}
	narrowed := ChangeSet{
		Seq:         c.Seq,
		CommittedAt: c.CommittedAt,
		Inserted:    keep(c.Inserted),
		Updated:     keep(c.Updated),
		Deleted:     keep(c.Deleted),
	}
	return narrowed, !narrowed.Empty()
}

// Subscribe streams the change sets of future commits. A non-empty entity
// narrows each change set to that entity and drops the ones that do not
// touch it. Close the subscription when done.
func (s *Store) Subscribe(entity string) *notify.Subscription[ChangeSet] {
	if entity == "" {
		return s.bus.Subscribe(nil)
	}
	return s.bus.Subscribe(func(cs ChangeSet) (ChangeSet, bool) {
		return cs.ForEntity(entity)
	})
}

// Watcher re-evaluates a query whenever a commit touches its entity.
type Watcher struct {
	s       *Store
	q       queryir.Select
	sub     *notify.Subscription[ChangeSet]
	last    []ObjectRefSeq
	started bool
}

// ObjectRefSeq is an object id paired with the seq of its last write.
type ObjectRefSeq struct {
	ID  string
	Seq int64
}

// Watch starts watching q. The first Next returns the current results;
// later calls block until a commit changes them.
func (s *Store) Watch(q queryir.Select) (*Watcher, error) {
	if err := queryir.Validate(q); err != nil {
		return nil, fmt.Errorf("watch: %w", err)
	}
	return &Watcher{s: s, q: q, sub: s.Subscribe(q.Entity)}, nil
}

// Next returns the query results after the next relevant change. Commits
// that leave the results identical are skipped.
func (w *Watcher) Next(ctx context.Context) ([]Record, error) {
	if !w.started {
		w.started = true
		return w.refresh(ctx)
	}

	for {
		if _, err := w.sub.Next(ctx); err != nil {
			return nil, err
		}
		// Coalesce commits that are already queued.
		for w.sub.Pending() > 0 {
			w.sub.TryNext()
		}

		prev := w.last
		records, err := w.refresh(ctx)
		if err != nil {
			return nil, err
		}
		if !slices.Equal(prev, w.last) {
			return records, nil
		}
	}
}

func (w *Watcher) refresh(ctx context.Context) ([]Record, error) {
	records, err := w.s.Fetch(ctx, w.q)
	if err != nil {
		return nil, fmt.Errorf("watch: %w", err)
	}
	w.last = make([]ObjectRefSeq, len(records))
	for i, rec := range records {
		w.last[i] = ObjectRefSeq{ID: rec.ID, Seq: rec.Seq}
	}
	return records, nil
}

// Close stops the watcher.
func (w *Watcher) Close() {
	w.sub.Close()
}
