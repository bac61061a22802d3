package reconcile_test

import (
	"context"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/roach88/entsync/internal/ir"
	"github.com/roach88/entsync/internal/queryir"
	"github.com/roach88/entsync/internal/reconcile"
	"github.com/roach88/entsync/internal/schema"
	"github.com/roach88/entsync/internal/store"
	"github.com/roach88/entsync/internal/testutil"
)

var testEpoch = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

const testSchema = `
entity: Company: {
	identity: "name"
	property: {
		name: {}
		revenue: {"map.tra": "StringToDecimal"}
		founded: {key: "meta.founded", "map.tra": "StringToISO8601Date"}
		city: {key: "address.city"}
	}
	relationship: {
		owner: {target: "Person", cardinality: "one", id: "uid"}
		employees: {target: "Person", cardinality: "many", id: "uid"}
	}
}

entity: Person: {
	identity: "uid"
	property: {
		uid: {}
		name: {}
		age: {key: "info.age", "map.tra": "StringToInt"}
	}
}

entity: Ticket: {
	identity: "number"
	property: {
		number: {"map.tra": "StringToInt"}
		title: {}
	}
	relationship: {
		assignee: {target: "Person", cardinality: "one", id: "uid", json_id: "person"}
		watchers: {target: "Person", cardinality: "many"}
		reporter: {target: "Person", cardinality: "one"}
		lead: {target: "Person", cardinality: "one", id: "uid", json_id: "ref.id"}
	}
}
`

type testEnv struct {
	store    *store.Store
	clock    *testutil.FixedClock
	registry *schema.Registry
	rec      *reconcile.Reconciler[*store.Object]
	observer *recordingObserver
}

func newTestEnv(t *testing.T, opts ...reconcile.Option) *testEnv {
	t.Helper()

	decls, err := schema.CompileCUE(testSchema, "test.cue")
	require.NoError(t, err)
	reg, err := schema.Build(decls)
	require.NoError(t, err)

	clock := testutil.NewFixedClock(testEpoch)
	s, err := store.Open(filepath.Join(t.TempDir(), "test.db"),
		store.WithClock(clock.Now),
		store.WithIDGenerator(testutil.NewSequentialIDs("obj")),
	)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })

	obs := &recordingObserver{}
	base := []reconcile.Option{
		reconcile.WithMetadata(reg),
		reconcile.WithObserver(obs),
	}
	return &testEnv{
		store:    s,
		clock:    clock,
		registry: reg,
		rec:      reconcile.New[*store.Object](append(base, opts...)...),
		observer: obs,
	}
}

func (e *testEnv) desc(t *testing.T, name string) *schema.EntityDescription {
	t.Helper()
	d, ok := e.registry.Lookup(name)
	require.True(t, ok, name)
	return d
}

// sync reconciles payload against a fresh Tx and commits it.
func (e *testEnv) sync(t *testing.T, entity, key string, value ir.IRValue, payload string) (*store.Object, store.ChangeSet) {
	t.Helper()
	ctx := context.Background()
	tx := e.store.Begin()
	obj, err := e.rec.Reconcile(ctx, tx, e.desc(t, entity), key, value, mustPayload(t, payload))
	require.NoError(t, err)
	cs, err := tx.Commit(ctx)
	require.NoError(t, err)
	return obj, cs
}

func (e *testEnv) fetch(t *testing.T, entity string) []store.Record {
	t.Helper()
	recs, err := e.store.Fetch(context.Background(), queryir.Select{
		Entity: entity,
		Sort:   []queryir.SortKey{{Field: queryir.FieldID}},
	})
	require.NoError(t, err)
	return recs
}

func (e *testEnv) findOne(t *testing.T, entity, field string, value ir.IRValue) store.Record {
	t.Helper()
	recs, err := e.store.Fetch(context.Background(), queryir.Where(entity, field, value))
	require.NoError(t, err)
	require.Len(t, recs, 1)
	return recs[0]
}

func mustPayload(t *testing.T, s string) ir.IRObject {
	t.Helper()
	obj, err := ir.DecodeObject([]byte(s))
	require.NoError(t, err)
	return obj
}

type recordingObserver struct {
	mu       sync.Mutex
	inserted []string
	updated  []string
	skipped  int
	failed   []string
	relSkips []string
}

func (o *recordingObserver) EntityInserted(entity string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.inserted = append(o.inserted, entity)
}

func (o *recordingObserver) EntityUpdated(entity string, skipped bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.updated = append(o.updated, entity)
	if skipped {
		o.skipped++
	}
}

func (o *recordingObserver) TransformFailed(entity, property, transformer string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.failed = append(o.failed, entity+"."+property)
}

func (o *recordingObserver) RelationshipSkipped(entity, relationship, reason string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.relSkips = append(o.relSkips, entity+"."+relationship+":"+reason)
}
