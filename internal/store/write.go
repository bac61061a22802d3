package store

import (
	"context"
	"database/sql"
	"fmt"
	"slices"
	"sort"
)

// Commit writes every buffered change in one SQLite transaction and
// publishes the resulting ChangeSet to subscribers.
//
// Object rows are written before relation rows so foreign keys always
// resolve. A Tx with no effective changes commits nothing and returns an
// empty ChangeSet with Seq 0. After Commit, the Tx is done whether or not
// it succeeded.
func (t *Tx) Commit(ctx context.Context) (ChangeSet, error) {
	if t.done {
		return ChangeSet{}, ErrTxDone
	}
	t.done = true

	var inserted, updated, deleted []*Object
	for _, o := range t.order {
		switch {
		case o.deleted && o.inserted:
			// Created and deleted in the same Tx: nothing to write.
		case o.deleted:
			deleted = append(deleted, o)
		case o.inserted:
			inserted = append(inserted, o)
		case o.IsDirty():
			updated = append(updated, o)
		}
	}
	if len(inserted)+len(updated)+len(deleted) == 0 {
		t.s.logger.Debug("commit skipped: no changes")
		return ChangeSet{}, nil
	}

	s := t.s
	s.commitMu.Lock()
	defer s.commitMu.Unlock()

	seq := s.clock.current() + 1
	committedAt := s.now()

	sqlTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return ChangeSet{}, fmt.Errorf("commit: begin tx: %w", err)
	}
	defer sqlTx.Rollback()

	for _, o := range deleted {
		if _, err := sqlTx.ExecContext(ctx, `DELETE FROM objects WHERE id = ?`, o.id); err != nil {
			return ChangeSet{}, fmt.Errorf("commit: delete %s: %w", o.id, err)
		}
	}
	for _, o := range inserted {
		if err := insertObject(ctx, sqlTx, o, seq); err != nil {
			return ChangeSet{}, fmt.Errorf("commit: %w", err)
		}
	}
	for _, o := range updated {
		if err := updateObject(ctx, sqlTx, o, seq); err != nil {
			return ChangeSet{}, fmt.Errorf("commit: %w", err)
		}
	}
	for _, o := range slices.Concat(inserted, updated) {
		if err := writeRelations(ctx, sqlTx, o); err != nil {
			return ChangeSet{}, fmt.Errorf("commit: %w", err)
		}
	}

	if _, err := sqlTx.ExecContext(ctx, `
		INSERT INTO commits (seq, committed_at, inserted, updated, deleted)
		VALUES (?, ?, ?, ?, ?)
	`, seq, toNanos(committedAt), len(inserted), len(updated), len(deleted)); err != nil {
		return ChangeSet{}, fmt.Errorf("commit: record commit: %w", err)
	}

	if err := sqlTx.Commit(); err != nil {
		return ChangeSet{}, fmt.Errorf("commit: %w", err)
	}
	s.clock.advance(seq)

	cs := ChangeSet{
		Seq:         seq,
		CommittedAt: committedAt,
		Inserted:    refs(inserted),
		Updated:     refs(updated),
		Deleted:     refs(deleted),
	}
	for _, o := range slices.Concat(inserted, updated) {
		o.markClean(seq)
	}

	s.bus.Publish(cs)
	s.logger.Info("commit",
		"seq", seq,
		"inserted", len(inserted),
		"updated", len(updated),
		"deleted", len(deleted))
	return cs, nil
}

func insertObject(ctx context.Context, tx *sql.Tx, o *Object, seq int64) error {
	fieldsJSON, err := marshalFields(o.fields)
	if err != nil {
		return fmt.Errorf("insert %s: %w", o.id, err)
	}
	_, err = tx.ExecContext(ctx, `
		INSERT INTO objects (id, entity, fields, created_at, updated_at, seq)
		VALUES (?, ?, ?, ?, ?, ?)
	`, o.id, o.entity, fieldsJSON, toNanos(o.createdAt), toNanos(o.updatedAt), seq)
	if err != nil {
		return fmt.Errorf("insert %s: %w", o.id, err)
	}
	return nil
}

func updateObject(ctx context.Context, tx *sql.Tx, o *Object, seq int64) error {
	fieldsJSON, err := marshalFields(o.fields)
	if err != nil {
		return fmt.Errorf("update %s: %w", o.id, err)
	}
	_, err = tx.ExecContext(ctx, `
		UPDATE objects SET fields = ?, updated_at = ?, seq = ?
		WHERE id = ?
	`, fieldsJSON, toNanos(o.updatedAt), seq, o.id)
	if err != nil {
		return fmt.Errorf("update %s: %w", o.id, err)
	}
	return nil
}

// writeRelations replaces the rows of every relation changed on o.
func writeRelations(ctx context.Context, tx *sql.Tx, o *Object) error {
	names := make([]string, 0, len(o.dirtyRelations))
	for name := range o.dirtyRelations {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		if _, err := tx.ExecContext(ctx,
			`DELETE FROM relations WHERE owner_id = ? AND name = ?`, o.id, name); err != nil {
			return fmt.Errorf("relation %s.%s: %w", o.id, name, err)
		}
		for pos, target := range o.relations[name] {
			if _, err := tx.ExecContext(ctx, `
				INSERT INTO relations (owner_id, name, target_id, position)
				VALUES (?, ?, ?, ?)
			`, o.id, name, target, pos); err != nil {
				return fmt.Errorf("relation %s.%s -> %s: %w", o.id, name, target, err)
			}
		}
	}
	return nil
}

func refs(objects []*Object) []ObjectRef {
	if len(objects) == 0 {
		return nil
	}
	out := make([]ObjectRef, len(objects))
	for i, o := range objects {
		out[i] = ObjectRef{ID: o.id, Entity: o.entity}
	}
	return out
}
