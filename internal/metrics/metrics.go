// Package metrics provides Prometheus metrics for reconciliation and
// commits.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "entsync"

// Outcome label values for EntitiesTotal.
const (
	OutcomeInserted = "inserted"
	OutcomeUpdated  = "updated"
	OutcomeCurrent  = "current"
)

// Recorder holds the metric collectors. It implements reconcile.Observer.
type Recorder struct {
	// EntitiesTotal counts reconciled entities by outcome.
	EntitiesTotal *prometheus.CounterVec

	// TransformFailuresTotal counts values a transformer rejected.
	TransformFailuresTotal *prometheus.CounterVec

	// RelationshipsSkippedTotal counts relationships left unresolved.
	RelationshipsSkippedTotal *prometheus.CounterVec

	// CommitsTotal counts non-empty commits.
	CommitsTotal prometheus.Counter

	// CommittedObjectsTotal counts objects written by commits, by change.
	CommittedObjectsTotal *prometheus.CounterVec

	// SyncDuration tracks the time to reconcile and commit one batch.
	SyncDuration prometheus.Histogram
}

// NewRecorder creates a Recorder and registers its collectors with reg.
// A nil reg registers with prometheus.DefaultRegisterer.
func NewRecorder(reg prometheus.Registerer) *Recorder {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	f := promauto.With(reg)
	return &Recorder{
		EntitiesTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "reconcile",
				Name:      "entities_total",
				Help:      "Total number of reconciled entities by outcome",
			},
			[]string{"entity", "outcome"},
		),
		TransformFailuresTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "reconcile",
				Name:      "transform_failures_total",
				Help:      "Total number of property values a transformer rejected",
			},
			[]string{"entity", "property", "transformer"},
		),
		RelationshipsSkippedTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "reconcile",
				Name:      "relationships_skipped_total",
				Help:      "Total number of relationship payloads left unresolved",
			},
			[]string{"entity", "relationship", "reason"},
		),
		CommitsTotal: f.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "store",
				Name:      "commits_total",
				Help:      "Total number of non-empty commits",
			},
		),
		CommittedObjectsTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "store",
				Name:      "committed_objects_total",
				Help:      "Total number of objects written by commits",
			},
			[]string{"change"},
		),
		SyncDuration: f.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: "sync",
				Name:      "duration_seconds",
				Help:      "Duration of reconcile-and-commit batches in seconds",
				Buckets:   []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5},
			},
		),
	}
}

// EntityInserted implements reconcile.Observer.
func (r *Recorder) EntityInserted(entity string) {
	r.EntitiesTotal.WithLabelValues(entity, OutcomeInserted).Inc()
}

// EntityUpdated implements reconcile.Observer.
func (r *Recorder) EntityUpdated(entity string, skipped bool) {
	outcome := OutcomeUpdated
	if skipped {
		outcome = OutcomeCurrent
	}
	r.EntitiesTotal.WithLabelValues(entity, outcome).Inc()
}

// TransformFailed implements reconcile.Observer.
func (r *Recorder) TransformFailed(entity, property, transformer string) {
	r.TransformFailuresTotal.WithLabelValues(entity, property, transformer).Inc()
}

// RelationshipSkipped implements reconcile.Observer.
func (r *Recorder) RelationshipSkipped(entity, relationship, reason string) {
	r.RelationshipsSkippedTotal.WithLabelValues(entity, relationship, reason).Inc()
}

// Commit records the object counts of one commit. Empty commits are not
// counted.
func (r *Recorder) Commit(inserted, updated, deleted int) {
	if inserted+updated+deleted == 0 {
		return
	}
	r.CommitsTotal.Inc()
	r.CommittedObjectsTotal.WithLabelValues("inserted").Add(float64(inserted))
	r.CommittedObjectsTotal.WithLabelValues("updated").Add(float64(updated))
	r.CommittedObjectsTotal.WithLabelValues("deleted").Add(float64(deleted))
}

// ObserveSync records the duration of a batch that started at start.
func (r *Recorder) ObserveSync(start time.Time) {
	r.SyncDuration.Observe(time.Since(start).Seconds())
}
