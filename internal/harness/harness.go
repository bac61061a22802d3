package harness

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"slices"
	"time"

	"github.com/roach88/entsync/internal/ir"
	"github.com/roach88/entsync/internal/queryir"
	"github.com/roach88/entsync/internal/reconcile"
	"github.com/roach88/entsync/internal/schema"
	"github.com/roach88/entsync/internal/store"
	"github.com/roach88/entsync/internal/testutil"
)

// Epoch is the clock reading at the start of every scenario.
var Epoch = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

// Harness executes one scenario against a fresh store.
type Harness struct {
	store    *store.Store
	registry *schema.Registry
	rec      *reconcile.Reconciler[*store.Object]
	clock    *testutil.FixedClock
	logger   *slog.Logger
}

// Run executes a scenario and returns the result.
//
// Each scenario runs in a fresh in-memory database with a fixed clock
// and sequential ids. An error is returned when the scenario cannot run
// at all (bad schema, unknown entity, store failure); expectation and
// assertion failures are reported in the Result.
func Run(scenario *Scenario) (*Result, error) {
	return RunContext(context.Background(), scenario, nil)
}

// RunContext is Run with a context and logger. A nil logger discards
// output.
func RunContext(ctx context.Context, scenario *Scenario, logger *slog.Logger) (*Result, error) {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	reg, err := schema.LoadRegistry(scenario.Schema)
	if err != nil {
		return nil, fmt.Errorf("failed to load schema: %w", err)
	}

	clock := testutil.NewFixedClock(Epoch)
	st, err := store.Open(":memory:",
		store.WithClock(clock.Now),
		store.WithIDGenerator(testutil.NewSequentialIDs("obj")),
		store.WithLogger(logger),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create in-memory store: %w", err)
	}
	defer st.Close()

	h := &Harness{
		store:    st,
		registry: reg,
		rec: reconcile.New[*store.Object](
			reconcile.WithMetadata(reg),
			reconcile.WithLogger(logger),
		),
		clock:  clock,
		logger: logger,
	}

	result := NewResult()
	for i, step := range scenario.Steps {
		if err := h.executeStep(ctx, i, step, result); err != nil {
			return nil, fmt.Errorf("step %d: %w", i, err)
		}
	}

	state, err := h.snapshotState(ctx)
	if err != nil {
		return nil, err
	}
	result.State = state

	for _, msg := range EvaluateAssertions(reg, state, scenario.Assertions) {
		result.AddError(msg)
	}
	return result, nil
}

func (h *Harness) executeStep(ctx context.Context, i int, step Step, result *Result) error {
	if step.Advance != "" {
		d, err := time.ParseDuration(step.Advance)
		if err != nil {
			return err
		}
		now := h.clock.Advance(d)
		result.Trace = append(result.Trace, TraceEvent{
			Step:   i,
			Action: ActionAdvance,
			At:     now.UTC().Format(time.RFC3339Nano),
		})
		return nil
	}

	desc, ok := h.registry.Lookup(step.Sync)
	if !ok {
		return fmt.Errorf("unknown entity %q", step.Sync)
	}
	payloads, err := step.payloads()
	if err != nil {
		return err
	}

	event := TraceEvent{Step: i, Action: ActionSync, Entity: step.Sync}

	tx := h.store.Begin()
	if err := h.reconcile(ctx, tx, desc, step, payloads); err != nil {
		tx.Rollback()
		var recErr *reconcile.Error
		if !errors.As(err, &recErr) || reconcile.IsStoreError(err) {
			return err
		}
		event.Error = string(recErr.Code)
		result.Trace = append(result.Trace, event)
		h.checkExpect(i, step.Expect, event, result)
		return nil
	}

	cs, err := tx.Commit(ctx)
	if err != nil {
		return err
	}
	event.Seq = cs.Seq
	event.Inserted = refIDs(cs.Inserted)
	event.Updated = refIDs(cs.Updated)
	result.Trace = append(result.Trace, event)

	h.logger.Info("step completed",
		"step", i,
		"entity", step.Sync,
		"seq", cs.Seq,
		"inserted", len(cs.Inserted),
		"updated", len(cs.Updated),
	)
	h.checkExpect(i, step.Expect, event, result)
	return nil
}

func (h *Harness) reconcile(ctx context.Context, tx *store.Tx, desc *schema.EntityDescription, step Step, payloads []ir.IRObject) error {
	if step.Key == "" {
		_, err := h.rec.ReconcileAll(ctx, tx, desc, payloads)
		return err
	}
	value, err := ir.FromGo(step.Value)
	if err != nil {
		return fmt.Errorf("value: %w", err)
	}
	_, err = h.rec.Reconcile(ctx, tx, desc, step.Key, value, payloads[0])
	return err
}

func (h *Harness) checkExpect(i int, expect *ExpectClause, event TraceEvent, result *Result) {
	if expect == nil {
		if event.Error != "" {
			result.AddError(fmt.Sprintf("step %d: unexpected error %s", i, event.Error))
		}
		return
	}
	if expect.Error != event.Error {
		result.AddError(fmt.Sprintf("step %d: expected error %q, got %q", i, expect.Error, event.Error))
	}
	if expect.Inserted != nil && *expect.Inserted != len(event.Inserted) {
		result.AddError(fmt.Sprintf("step %d: expected %d inserted, got %d", i, *expect.Inserted, len(event.Inserted)))
	}
	if expect.Updated != nil && *expect.Updated != len(event.Updated) {
		result.AddError(fmt.Sprintf("step %d: expected %d updated, got %d", i, *expect.Updated, len(event.Updated)))
	}
}

// snapshotState returns every entity of every described type, ordered
// by id.
func (h *Harness) snapshotState(ctx context.Context) ([]store.Record, error) {
	var state []store.Record
	for _, name := range h.registry.Names() {
		recs, err := h.store.Fetch(ctx, queryir.Select{Entity: name})
		if err != nil {
			return nil, fmt.Errorf("failed to read %s: %w", name, err)
		}
		state = append(state, recs...)
	}
	slices.SortFunc(state, func(a, b store.Record) int {
		return cmp.Compare(a.ID, b.ID)
	})
	return state, nil
}

func refIDs(refs []store.ObjectRef) []string {
	if len(refs) == 0 {
		return nil
	}
	ids := make([]string, len(refs))
	for i, r := range refs {
		ids[i] = r.ID
	}
	return ids
}
