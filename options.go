package probego

import (
	"github.com/google/uuid"
)

type options struct {
	contacts         []string
	streamBuffer     int
	logger           *Logger
	metricsCollector MetricsCollector
	runID            string
	annotations      map[string]string
}

func defaultOptions() options {
	return options{
		streamBuffer:     256,
		logger:           NoopLogger(),
		metricsCollector: NoopMetricsCollector{},
		runID:            uuid.NewString(),
	}
}

// Option configures experiment construction.
type Option func(*options)

// WithContacts restricts the run to the given contact ids, in the given
// order. Default is every contact of the array, in interface order.
func WithContacts(ids ...string) Option {
	return func(o *options) {
		o.contacts = ids
	}
}

// WithStreamBuffer sets the live-stream buffer size. When the buffer is
// full, the oldest item is dropped; stored data is never affected.
func WithStreamBuffer(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.streamBuffer = n
		}
	}
}

// WithLogger configures structured logging.
//
// If nil is passed, logging is disabled.
func WithLogger(l *Logger) Option {
	return func(o *options) {
		if l == nil {
			l = NoopLogger()
		}
		o.logger = l
	}
}

// WithMetricsCollector configures a metrics collector.
//
// If nil is passed, metrics collection is disabled.
func WithMetricsCollector(mc MetricsCollector) Option {
	return func(o *options) {
		if mc == nil {
			mc = NoopMetricsCollector{}
		}
		o.metricsCollector = mc
	}
}

// WithRunID overrides the generated run identifier.
func WithRunID(id string) Option {
	return func(o *options) {
		if id != "" {
			o.runID = id
		}
	}
}

// WithAnnotations attaches free-form descriptive attributes to the
// dataset metadata (title, description, creator and the like).
func WithAnnotations(annotations map[string]string) Option {
	return func(o *options) {
		o.annotations = annotations
	}
}
