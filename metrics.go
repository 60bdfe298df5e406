package probego

import (
	"sync/atomic"
	"time"
)

// MetricsCollector defines an interface for collecting operational metrics.
// Implement this interface to integrate with monitoring systems.
type MetricsCollector interface {
	// RecordSelect is called after each contact selection attempt.
	RecordSelect(duration time.Duration, err error)

	// RecordContact is called after each contact's measurement.
	// records is the number of records stored, err is nil if successful.
	RecordContact(records int, duration time.Duration, err error)

	// RecordAppend is called after each record append to storage.
	RecordAppend(duration time.Duration, err error)

	// RecordRun is called once when a run ends.
	// contacts is the number of contacts visited, failed the number that
	// ended in a failed state.
	RecordRun(contacts, failed int, duration time.Duration)
}

// NoopMetricsCollector is a no-op implementation of MetricsCollector.
// Use this when metrics collection is not needed.
type NoopMetricsCollector struct{}

func (NoopMetricsCollector) RecordSelect(time.Duration, error)       {}
func (NoopMetricsCollector) RecordContact(int, time.Duration, error) {}
func (NoopMetricsCollector) RecordAppend(time.Duration, error)       {}
func (NoopMetricsCollector) RecordRun(int, int, time.Duration)       {}

// BasicMetricsCollector provides simple in-memory metrics collection.
// Useful for debugging and basic monitoring without external dependencies.
type BasicMetricsCollector struct {
	SelectCount       atomic.Int64
	SelectErrors      atomic.Int64
	ContactCount      atomic.Int64
	ContactErrors     atomic.Int64
	ContactTotalNanos atomic.Int64
	AppendCount       atomic.Int64
	AppendErrors      atomic.Int64
	RunCount          atomic.Int64
	RunContacts       atomic.Int64
	RunFailed         atomic.Int64
	RunTotalNanos     atomic.Int64
}

// RecordSelect implements MetricsCollector.
func (b *BasicMetricsCollector) RecordSelect(duration time.Duration, err error) {
	b.SelectCount.Add(1)
	if err != nil {
		b.SelectErrors.Add(1)
	}
}

// RecordContact implements MetricsCollector.
func (b *BasicMetricsCollector) RecordContact(records int, duration time.Duration, err error) {
	b.ContactCount.Add(1)
	b.ContactTotalNanos.Add(duration.Nanoseconds())
	if err != nil {
		b.ContactErrors.Add(1)
	}
}

// RecordAppend implements MetricsCollector.
func (b *BasicMetricsCollector) RecordAppend(duration time.Duration, err error) {
	b.AppendCount.Add(1)
	if err != nil {
		b.AppendErrors.Add(1)
	}
}

// RecordRun implements MetricsCollector.
func (b *BasicMetricsCollector) RecordRun(contacts, failed int, duration time.Duration) {
	b.RunCount.Add(1)
	b.RunContacts.Add(int64(contacts))
	b.RunFailed.Add(int64(failed))
	b.RunTotalNanos.Add(duration.Nanoseconds())
}

// GetStats returns a snapshot of current metrics.
func (b *BasicMetricsCollector) GetStats() BasicMetricsStats {
	return BasicMetricsStats{
		SelectCount:     b.SelectCount.Load(),
		SelectErrors:    b.SelectErrors.Load(),
		ContactCount:    b.ContactCount.Load(),
		ContactErrors:   b.ContactErrors.Load(),
		ContactAvgNanos: b.avgContactNanos(),
		AppendCount:     b.AppendCount.Load(),
		AppendErrors:    b.AppendErrors.Load(),
		RunCount:        b.RunCount.Load(),
		RunContacts:     b.RunContacts.Load(),
		RunFailed:       b.RunFailed.Load(),
	}
}

func (b *BasicMetricsCollector) avgContactNanos() int64 {
	count := b.ContactCount.Load()
	if count == 0 {
		return 0
	}
	return b.ContactTotalNanos.Load() / count
}

// BasicMetricsStats is a snapshot of BasicMetricsCollector state.
type BasicMetricsStats struct {
	SelectCount     int64
	SelectErrors    int64
	ContactCount    int64
	ContactErrors   int64
	ContactAvgNanos int64
	AppendCount     int64
	AppendErrors    int64
	RunCount        int64
	RunContacts     int64
	RunFailed       int64
}
