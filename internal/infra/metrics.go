package infra

import (
	"sync/atomic"
	"time"
)

// Metrics provides lightweight observability without external dependencies.
// Uses atomic operations for thread-safety. One instance is created at
// bootstrap and shared by the stream client and both engines.
type Metrics struct {
	// Counters
	framesDecoded     atomic.Uint64
	decodeErrors      atomic.Uint64
	reconnects        atomic.Uint64
	signalsEmitted    atomic.Uint64
	opportunitiesSeen atomic.Uint64

	// Gauges
	connected     atomic.Int32 // 1 = open, 0 = closed
	trackedAssets atomic.Int32
}

// RecordFrame records one successfully decoded inbound frame.
func (m *Metrics) RecordFrame() {
	m.framesDecoded.Add(1)
}

// RecordDecodeError records one dropped malformed frame.
func (m *Metrics) RecordDecodeError() {
	m.decodeErrors.Add(1)
}

// RecordReconnect records one reconnect attempt.
func (m *Metrics) RecordReconnect() {
	m.reconnects.Add(1)
}

// RecordSignal records one emitted trade signal.
func (m *Metrics) RecordSignal() {
	m.signalsEmitted.Add(1)
}

// RecordOpportunity records one detected arbitrage opportunity.
func (m *Metrics) RecordOpportunity() {
	m.opportunitiesSeen.Add(1)
}

// SetConnected sets the connection gauge.
func (m *Metrics) SetConnected(open bool) {
	if open {
		m.connected.Store(1)
	} else {
		m.connected.Store(0)
	}
}

// SetTrackedAssets sets the number of assets with live subscriptions.
func (m *Metrics) SetTrackedAssets(n int32) {
	m.trackedAssets.Store(n)
}

// MetricsSnapshot is a point-in-time view of all metrics.
type MetricsSnapshot struct {
	FramesDecoded     uint64
	DecodeErrors      uint64
	Reconnects        uint64
	SignalsEmitted    uint64
	OpportunitiesSeen uint64
	Connected         bool
	TrackedAssets     int32
	Timestamp         time.Time
}

// Snapshot returns current metrics as a snapshot.
func (m *Metrics) Snapshot() MetricsSnapshot {
	return MetricsSnapshot{
		FramesDecoded:     m.framesDecoded.Load(),
		DecodeErrors:      m.decodeErrors.Load(),
		Reconnects:        m.reconnects.Load(),
		SignalsEmitted:    m.signalsEmitted.Load(),
		OpportunitiesSeen: m.opportunitiesSeen.Load(),
		Connected:         m.connected.Load() == 1,
		TrackedAssets:     m.trackedAssets.Load(),
		Timestamp:         time.Now(),
	}
}

// Reset clears all metrics (for testing).
func (m *Metrics) Reset() {
	m.framesDecoded.Store(0)
	m.decodeErrors.Store(0)
	m.reconnects.Store(0)
	m.signalsEmitted.Store(0)
	m.opportunitiesSeen.Store(0)
	m.connected.Store(0)
	m.trackedAssets.Store(0)
}
