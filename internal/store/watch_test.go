package store

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/entsync/internal/ir"
	"github.com/roach88/entsync/internal/notify"
	"github.com/roach88/entsync/internal/queryir"
)

func TestSubscribe(t *testing.T) {
	s, _ := createTestStore(t)
	ctx := context.Background()

	all := s.Subscribe("")
	people := s.Subscribe("Person")
	defer all.Close()
	defer people.Close()

	tx := s.Begin()
	_, err := tx.Insert(ctx, "Company", tx.Now())
	require.NoError(t, err)
	mustCommit(t, tx)

	tx = s.Begin()
	_, err = tx.Insert(ctx, "Company", tx.Now())
	require.NoError(t, err)
	p, err := tx.Insert(ctx, "Person", tx.Now())
	require.NoError(t, err)
	mustCommit(t, tx)

	cs, err := all.Next(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), cs.Seq)
	cs, err = all.Next(ctx)
	require.NoError(t, err)
	assert.Len(t, cs.Inserted, 2)

	cs, err = people.Next(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), cs.Seq)
	assert.Equal(t, []ObjectRef{{ID: p.ID(), Entity: "Person"}}, cs.Inserted)
	assert.Equal(t, 0, people.Pending())

	require.NoError(t, s.Close())
	_, err = people.Next(ctx)
	assert.ErrorIs(t, err, notify.ErrClosed)
}

func TestChangeSetForEntity(t *testing.T) {
	cs := ChangeSet{
		Seq:      3,
		Inserted: []ObjectRef{{ID: "a", Entity: "A"}, {ID: "b", Entity: "B"}},
		Deleted:  []ObjectRef{{ID: "c", Entity: "A"}},
	}

	narrowed, ok := cs.ForEntity("A")
	require.True(t, ok)
	assert.Equal(t, int64(3), narrowed.Seq)
	assert.Equal(t, []ObjectRef{{ID: "a", Entity: "A"}}, narrowed.Inserted)
	assert.Equal(t, []ObjectRef{{ID: "c", Entity: "A"}}, narrowed.Deleted)

	_, ok = cs.ForEntity("C")
	assert.False(t, ok)
	assert.True(t, ChangeSet{}.Empty())
}

func TestWatch(t *testing.T) {
	s, _ := createTestStore(t)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	w, err := s.Watch(queryir.Where("Person", "role", ir.IRString("engineer")))
	require.NoError(t, err)
	defer w.Close()

	initial, err := w.Next(ctx)
	require.NoError(t, err)
	assert.Empty(t, initial)

	// A commit that does not change the results is skipped.
	tx := s.Begin()
	manager, _ := tx.Insert(ctx, "Person", tx.Now())
	manager.Set("role", ir.IRString("manager"))
	mustCommit(t, tx)

	tx = s.Begin()
	alice, _ := tx.Insert(ctx, "Person", tx.Now())
	alice.Set("role", ir.IRString("engineer"))
	mustCommit(t, tx)

	records, err := w.Next(ctx)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, alice.ID(), records[0].ID)

	short, cancelShort := context.WithTimeout(ctx, 20*time.Millisecond)
	defer cancelShort()
	_, err = w.Next(short)
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	_, err = s.Watch(queryir.Select{})
	assert.ErrorIs(t, err, queryir.ErrInvalidQuery)
}
