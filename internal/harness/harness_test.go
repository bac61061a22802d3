package harness

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/entsync/internal/ir"
)

func mustCanonical(t *testing.T, v any) []byte {
	t.Helper()
	data, err := ir.MarshalCanonical(v)
	require.NoError(t, err)
	return data
}

func loadTestScenario(t *testing.T, name string) *Scenario {
	t.Helper()
	s, err := LoadScenario(filepath.Join("testdata", "scenarios", name+".yaml"))
	require.NoError(t, err)
	return s
}

func TestRunAcmeOwner(t *testing.T) {
	result, err := Run(loadTestScenario(t, "acme_owner"))
	require.NoError(t, err)
	assert.True(t, result.Pass, "errors: %v", result.Errors)

	require.Len(t, result.Trace, 3)
	assert.Equal(t, []string{"obj-0001", "obj-0002"}, result.Trace[0].Inserted)
	assert.Equal(t, int64(1), result.Trace[0].Seq)
	assert.Equal(t, "2024-01-01T01:00:00Z", result.Trace[1].At)
	assert.Zero(t, result.Trace[2].Seq)

	require.Len(t, result.State, 2)
	assert.Equal(t, "Company", result.State[0].Entity)
	assert.Equal(t, []string{"obj-0002"}, result.State[0].Relations["owner"])
}

func TestRunEmployeesReplace(t *testing.T) {
	result, err := Run(loadTestScenario(t, "employees_replace"))
	require.NoError(t, err)
	assert.True(t, result.Pass, "errors: %v", result.Errors)

	require.Len(t, result.Trace, 3)
	assert.Equal(t, "MISSING_IDENTITY", result.Trace[2].Error)
	assert.Len(t, result.State, 4)
}

func TestRunReportsFailures(t *testing.T) {
	s := loadTestScenario(t, "acme_owner")
	wrong := 5
	s.Steps[0].Expect.Inserted = &wrong
	s.Assertions[0].Count = 2
	s.Assertions[1].Relations["owner"] = []any{"u9"}

	result, err := Run(s)
	require.NoError(t, err)
	assert.False(t, result.Pass)
	require.Len(t, result.Errors, 3)
	assert.Contains(t, result.Errors[0], "step 0: expected 5 inserted, got 2")
	assert.Contains(t, result.Errors[1], "assertions[0]")
	assert.Contains(t, result.Errors[2], `relation "owner"`)
}

func TestRunUnexpectedError(t *testing.T) {
	s := loadTestScenario(t, "employees_replace")
	s.Steps[2].Expect = nil

	result, err := Run(s)
	require.NoError(t, err)
	assert.False(t, result.Pass)
	assert.Contains(t, result.Errors, "step 2: unexpected error MISSING_IDENTITY")
}

func TestRunUnknownEntity(t *testing.T) {
	s := loadTestScenario(t, "acme_owner")
	s.Steps[0].Sync = "Ghost"

	_, err := Run(s)
	require.Error(t, err)
	assert.Contains(t, err.Error(), `step 0: unknown entity "Ghost"`)
}

func TestRunBadSchema(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "broken.cue"), []byte("package entities\nentity: {"), 0o644))

	s := loadTestScenario(t, "acme_owner")
	s.Schema = dir

	_, err := Run(s)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to load schema")
}
