package careauth

import "sync/atomic"

// MetricID names one flow counter.
type MetricID uint16

const (
	// MetricLoginRejected counts login submissions stopped by validation or
	// the identity decision table.
	MetricLoginRejected MetricID = iota
	// MetricSignupRejected counts signups stopped by validation or an
	// already-registered phone.
	MetricSignupRejected
	// MetricChallengeIssued counts challenges sent by either flow.
	MetricChallengeIssued
	// MetricChallengeResent counts resends replacing a held challenge.
	MetricChallengeResent
	// MetricChallengeIssueFailed counts transient provider issue failures.
	MetricChallengeIssueFailed
	// MetricCodeConfirmed counts verification attempts reaching Verified.
	MetricCodeConfirmed
	// MetricCodeRejected counts wrong codes; the attempt stays pending.
	MetricCodeRejected
	// MetricSessionExpired counts attempts past their expiry on read.
	MetricSessionExpired
	// MetricSessionAbandoned counts page entries with no usable session.
	MetricSessionAbandoned
	// MetricIdentityRegistered counts completed signups.
	MetricIdentityRegistered
	// MetricGuardRedirect counts guarded-page requests turned away.
	MetricGuardRedirect
	metricIDCount
)

const cacheLineSize = 64

type paddedCounter struct {
	value uint64
	_     [cacheLineSize - 8]byte
}

// Metrics holds in-process flow counters. Safe for concurrent use.
type Metrics struct {
	enabled  bool
	counters [metricIDCount]paddedCounter
}

// MetricsSnapshot is a point-in-time copy of every counter.
type MetricsSnapshot struct {
	Counters map[MetricID]uint64
}

// NewMetrics returns a counter set honoring the enabled flag.
func NewMetrics(cfg MetricsConfig) *Metrics {
	return &Metrics{enabled: cfg.Enabled}
}

// Enabled reports whether counting is active.
func (m *Metrics) Enabled() bool {
	return m != nil && m.enabled
}

// Inc adds one to the counter.
func (m *Metrics) Inc(id MetricID) {
	if m == nil || !m.enabled || id >= metricIDCount {
		return
	}
	atomic.AddUint64(&m.counters[id].value, 1)
}

// Value reads a single counter.
func (m *Metrics) Value(id MetricID) uint64 {
	if m == nil || id >= metricIDCount {
		return 0
	}
	return atomic.LoadUint64(&m.counters[id].value)
}

// Snapshot copies every counter.
func (m *Metrics) Snapshot() MetricsSnapshot {
	snap := MetricsSnapshot{Counters: make(map[MetricID]uint64, metricIDCount)}
	if m == nil {
		return snap
	}
	for id := MetricID(0); id < metricIDCount; id++ {
		snap.Counters[id] = atomic.LoadUint64(&m.counters[id].value)
	}
	return snap
}
