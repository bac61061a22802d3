package reconcile

import (
	"log/slog"

	"github.com/roach88/entsync/internal/transform"
)

// DefaultTimestampKey is the payload key holding the source-of-truth
// modification time.
const DefaultTimestampKey = "updated"

type config struct {
	transformers *transform.Registry
	logger       *slog.Logger
	observer     Observer
	timestampKey string
	metadata     Metadata
}

// Option configures a Reconciler.
type Option func(*config)

// WithTransformers sets the transformer registry. Defaults to
// transform.Default().
func WithTransformers(r *transform.Registry) Option {
	return func(c *config) {
		c.transformers = r
	}
}

// WithLogger sets the logger. Defaults to slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(c *config) {
		c.logger = l
	}
}

// WithObserver sets the observer notified of outcomes.
func WithObserver(o Observer) Option {
	return func(c *config) {
		c.observer = o
	}
}

// WithTimestampKey sets the payload key compared against updatedAt. Key
// paths are allowed. An empty key disables the timestamp check.
func WithTimestampKey(key string) Option {
	return func(c *config) {
		c.timestampKey = key
	}
}

// WithMetadata sets the description lookup used by ReconcileNamed.
func WithMetadata(m Metadata) Option {
	return func(c *config) {
		c.metadata = m
	}
}
