package harness

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRunWithGolden(t *testing.T) {
	require.NoError(t, RunWithGolden(t, loadTestScenario(t, "acme_owner")))
}

func TestSnapshotDeterministic(t *testing.T) {
	s := loadTestScenario(t, "employees_replace")

	first, err := Run(s)
	require.NoError(t, err)
	second, err := Run(s)
	require.NoError(t, err)

	a, err := SnapshotJSON(s.Name, first)
	require.NoError(t, err)
	b, err := SnapshotJSON(s.Name, second)
	require.NoError(t, err)
	assert.Equal(t, string(a), string(b))
	assert.Contains(t, string(a), `"error":"MISSING_IDENTITY"`)
}

func TestWriteAndCompareGolden(t *testing.T) {
	s := loadTestScenario(t, "acme_owner")
	result, err := Run(s)
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "golden", "acme_owner.golden")
	require.NoError(t, WriteGolden(path, s.Name, result))

	match, err := CompareGolden(path, s.Name, result)
	require.NoError(t, err)
	assert.True(t, match)

	match, err = CompareGolden(path, "renamed", result)
	require.NoError(t, err)
	assert.False(t, match)

	_, err = CompareGolden(filepath.Join(t.TempDir(), "missing.golden"), s.Name, result)
	assert.Error(t, err)
}
