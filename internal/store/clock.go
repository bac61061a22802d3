package store

import (
	"sync/atomic"

	"github.com/google/uuid"
)

// seqClock is the logical clock stamping commits.
//
// Every commit that changes something gets the next seq; ordering of
// change sets never depends on wall time.
type seqClock struct {
	seq atomic.Int64
}

// newSeqClockAt creates a clock resuming after start.
func newSeqClockAt(start int64) *seqClock {
	c := &seqClock{}
	c.seq.Store(start)
	return c
}

func (c *seqClock) next() int64 {
	return c.seq.Add(1)
}

func (c *seqClock) current() int64 {
	return c.seq.Load()
}

// IDGenerator produces object ids.
type IDGenerator interface {
	Generate() string
}

// UUIDv7Generator generates time-sortable UUIDv7 object ids.
//
// Thread-safety: UUIDv7Generator is stateless and safe for concurrent use.
type UUIDv7Generator struct{}

// Generate returns a new hyphenated UUIDv7.
// Panics if the system random source fails.
func (UUIDv7Generator) Generate() string {
	return uuid.Must(uuid.NewV7()).String()
}

// advance moves the clock to seq after a successful commit.
func (c *seqClock) advance(seq int64) {
	c.seq.Store(seq)
}
