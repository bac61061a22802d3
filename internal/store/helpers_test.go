package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/roach88/entsync/internal/testutil"
)

var testEpoch = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

// createTestStore creates a file-backed store with a fixed clock and
// sequential ids.
func createTestStore(t *testing.T, opts ...Option) (*Store, *testutil.FixedClock) {
	t.Helper()
	clock := testutil.NewFixedClock(testEpoch)
	base := []Option{
		WithClock(clock.Now),
		WithIDGenerator(testutil.NewSequentialIDs("obj")),
	}
	s, err := Open(filepath.Join(t.TempDir(), "test.db"), append(base, opts...)...)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s, clock
}

func mustCommit(t *testing.T, tx *Tx) ChangeSet {
	t.Helper()
	cs, err := tx.Commit(context.Background())
	require.NoError(t, err)
	return cs
}
