package harness

import (
	"github.com/roach88/entsync/internal/store"
)

// Step actions recorded in the trace.
const (
	ActionSync    = "sync"
	ActionAdvance = "advance"
)

// TraceEvent records the outcome of one scenario step.
type TraceEvent struct {
	Step     int      `json:"step"`
	Action   string   `json:"action"`
	Entity   string   `json:"entity,omitempty"`
	Seq      int64    `json:"seq"`
	Inserted []string `json:"inserted,omitempty"`
	Updated  []string `json:"updated,omitempty"`
	At       string   `json:"at,omitempty"`    // clock after an advance step
	Error    string   `json:"error,omitempty"` // reconcile error code
}

// Result is the outcome of a scenario execution.
type Result struct {
	// Pass is true if every step expectation and assertion held.
	Pass bool `json:"pass"`

	// Trace contains one event per step, in order.
	Trace []TraceEvent `json:"trace"`

	// Errors contains expectation and assertion failures.
	Errors []string `json:"errors,omitempty"`

	// State is every entity in the store after the last step, ordered
	// by id.
	State []store.Record `json:"state"`
}

// NewResult creates a new passing result.
func NewResult() *Result {
	return &Result{
		Pass:   true,
		Trace:  []TraceEvent{},
		Errors: []string{},
	}
}

// AddError adds a failure message and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}
