package infra

import (
	"sync/atomic"
	"time"
)

// Metrics provides lightweight observability without external dependencies.
// Uses atomic operations for thread-safety.
type Metrics struct {
	// Counters
	requestsTotal  atomic.Uint64
	likesApplied   atomic.Uint64
	duplicateLikes atomic.Uint64
	quoteFailures  atomic.Uint64
	errorsTotal    atomic.Uint64

	// Latency tracking
	latencySumNs atomic.Int64
	latencyCount atomic.Uint64

	// Gauges
	inFlight atomic.Int32
}

// RecordRequest records a served request with latency.
func (m *Metrics) RecordRequest(latency time.Duration) {
	m.requestsTotal.Add(1)
	m.latencySumNs.Add(latency.Nanoseconds())
	m.latencyCount.Add(1)
}

// RecordLike records a like that incremented a counter.
func (m *Metrics) RecordLike() {
	m.likesApplied.Add(1)
}

// RecordDuplicateLike records a like ignored because the address was already counted.
func (m *Metrics) RecordDuplicateLike() {
	m.duplicateLikes.Add(1)
}

// RecordQuoteFailure records a per-symbol price source failure.
func (m *Metrics) RecordQuoteFailure() {
	m.quoteFailures.Add(1)
}

// RecordError records a request that failed with a server error.
func (m *Metrics) RecordError() {
	m.errorsTotal.Add(1)
}

// IncrementInFlight increments in-flight requests by 1.
func (m *Metrics) IncrementInFlight() {
	m.inFlight.Add(1)
}

// DecrementInFlight decrements in-flight requests by 1.
func (m *Metrics) DecrementInFlight() {
	m.inFlight.Add(-1)
}

// MetricsSnapshot is a point-in-time view of all metrics.
type MetricsSnapshot struct {
	RequestsTotal  uint64    `json:"requests_total"`
	LikesApplied   uint64    `json:"likes_applied"`
	DuplicateLikes uint64    `json:"duplicate_likes"`
	QuoteFailures  uint64    `json:"quote_failures"`
	ErrorsTotal    uint64    `json:"errors_total"`
	AvgLatencyNs   int64     `json:"avg_latency_ns"`
	InFlight       int32     `json:"in_flight"`
	Timestamp      time.Time `json:"timestamp"`
}

// Snapshot returns current metrics as a snapshot.
func (m *Metrics) Snapshot() MetricsSnapshot {
	var avgLatency int64
	count := m.latencyCount.Load()
	if count > 0 {
		avgLatency = m.latencySumNs.Load() / int64(count)
	}

	return MetricsSnapshot{
		RequestsTotal:  m.requestsTotal.Load(),
		LikesApplied:   m.likesApplied.Load(),
		DuplicateLikes: m.duplicateLikes.Load(),
		QuoteFailures:  m.quoteFailures.Load(),
		ErrorsTotal:    m.errorsTotal.Load(),
		AvgLatencyNs:   avgLatency,
		InFlight:       m.inFlight.Load(),
		Timestamp:      time.Now(),
	}
}

// Reset clears all metrics (for testing).
func (m *Metrics) Reset() {
	m.requestsTotal.Store(0)
	m.likesApplied.Store(0)
	m.duplicateLikes.Store(0)
	m.quoteFailures.Store(0)
	m.errorsTotal.Store(0)
	m.latencySumNs.Store(0)
	m.latencyCount.Store(0)
	m.inFlight.Store(0)
}
