package harness

import (
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/sebdah/goldie/v2"

	"github.com/roach88/entsync/internal/ir"
	"github.com/roach88/entsync/internal/store"
)

// Snapshot builds the golden representation of a scenario run: the
// step trace and the final state. Times are RFC 3339 strings in UTC.
func Snapshot(name string, result *Result) ir.IRObject {
	steps := make(ir.IRArray, len(result.Trace))
	for i, event := range result.Trace {
		step := ir.IRObject{
			"step":   ir.IRInt(event.Step),
			"action": ir.IRString(event.Action),
		}
		if event.Action == ActionSync {
			step["entity"] = ir.IRString(event.Entity)
			step["seq"] = ir.IRInt(event.Seq)
		}
		if len(event.Inserted) > 0 {
			step["inserted"] = stringArray(event.Inserted)
		}
		if len(event.Updated) > 0 {
			step["updated"] = stringArray(event.Updated)
		}
		if event.At != "" {
			step["at"] = ir.IRString(event.At)
		}
		if event.Error != "" {
			step["error"] = ir.IRString(event.Error)
		}
		steps[i] = step
	}

	state := make(ir.IRArray, len(result.State))
	for i, rec := range result.State {
		state[i] = recordSnapshot(rec)
	}

	return ir.IRObject{
		"scenario": ir.IRString(name),
		"steps":    steps,
		"state":    state,
	}
}

func recordSnapshot(rec store.Record) ir.IRObject {
	fields := rec.Fields
	if fields == nil {
		fields = ir.IRObject{}
	}
	out := ir.IRObject{
		"id":         ir.IRString(rec.ID),
		"entity":     ir.IRString(rec.Entity),
		"fields":     fields,
		"seq":        ir.IRInt(rec.Seq),
		"created_at": ir.IRString(rec.CreatedAt.UTC().Format(time.RFC3339Nano)),
		"updated_at": ir.IRString(rec.UpdatedAt.UTC().Format(time.RFC3339Nano)),
	}
	if len(rec.Relations) > 0 {
		rels := make(ir.IRObject, len(rec.Relations))
		for name, ids := range rec.Relations {
			rels[name] = stringArray(ids)
		}
		out["relations"] = rels
	}
	return out
}

func stringArray(ss []string) ir.IRArray {
	out := make(ir.IRArray, len(ss))
	for i, s := range ss {
		out[i] = ir.IRString(s)
	}
	return out
}

// SnapshotJSON returns the canonical JSON encoding of Snapshot.
func SnapshotJSON(name string, result *Result) ([]byte, error) {
	return ir.MarshalCanonical(Snapshot(name, result))
}

// WriteGolden writes the snapshot of result to path, creating parent
// directories.
func WriteGolden(path, name string, result *Result) error {
	data, err := SnapshotJSON(name, result)
	if err != nil {
		return fmt.Errorf("failed to marshal snapshot: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create golden directory: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write golden file: %w", err)
	}
	return nil
}

// CompareGolden reports whether the snapshot of result matches the
// golden file at path byte for byte.
func CompareGolden(path, name string, result *Result) (bool, error) {
	golden, err := os.ReadFile(path)
	if err != nil {
		return false, fmt.Errorf("failed to read golden file: %w", err)
	}
	current, err := SnapshotJSON(name, result)
	if err != nil {
		return false, fmt.Errorf("failed to marshal snapshot: %w", err)
	}
	return string(golden) == string(current), nil
}

// RunWithGolden executes a scenario and compares its snapshot against
// testdata/golden/{scenario.Name}.golden.
//
// To regenerate golden files, run:
//
//	go test ./internal/harness -update
func RunWithGolden(t *testing.T, scenario *Scenario) error {
	t.Helper()

	result, err := Run(scenario)
	if err != nil {
		return err
	}
	return AssertGolden(t, scenario.Name, result)
}

// AssertGolden compares an existing result against its golden file.
func AssertGolden(t *testing.T, scenarioName string, result *Result) error {
	t.Helper()

	data, err := SnapshotJSON(scenarioName, result)
	if err != nil {
		return err
	}

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, scenarioName, data)
	return nil
}
