package noded

import (
	"sync/atomic"
	"time"
)

// LatencyBuckets are the round-trip-latency histogram boundaries in
// nanoseconds, from 100us up to 10s.
var LatencyBuckets = []uint64{
	100_000,     // 100us
	1_000_000,   // 1ms
	10_000_000,  // 10ms
	100_000_000, // 100ms
	500_000_000, // 500ms
	1_000_000_000,
	5_000_000_000,
	10_000_000_000,
}

const numLatencyBuckets = 8

// Metrics tracks the kernel's spec-mandated counters (cycle_count,
// queue_depth, lost_msgs — spec §4.1 / §8) plus the operational
// counters a running node needs to be observable: clock alarm counts,
// bus job/retry/failure counts, and request/reply round-trip latency.
// Dispatches are counted in total only, not per opcode. Modeled directly on the teacher's atomic-counter Metrics.
type Metrics struct {
	// Scheduler (spec §4.1, §8).
	CycleCount    atomic.Uint64 // messages dispatched
	LostMsgs      atomic.Uint64 // overflow + ENOMSG drops
	QueueDepth    atomic.Uint32 // current depth
	MaxQueueDepth atomic.Uint32 // high-water mark

	// Clock (spec §4.3).
	AlarmsScheduled atomic.Uint64
	AlarmsFired     atomic.Uint64
	AlarmsCanceled  atomic.Uint64

	// Bus (spec §4.4).
	MasterJobs     atomic.Uint64
	SlaveAccepts   atomic.Uint64
	BusRetries     atomic.Uint64
	BusLoopbacks   atomic.Uint64
	BusFailures    atomic.Uint64

	// Round-trip latency tracking (SET_ALARM→ALARM, JOB→*_COMPLETE).
	TotalLatencyNs atomic.Uint64
	OpCount        atomic.Uint64
	LatencyBuckets [numLatencyBuckets]atomic.Uint64

	StartTime atomic.Int64
	StopTime  atomic.Int64
}

// NewMetrics creates a new, running Metrics instance.
func NewMetrics() *Metrics {
	m := &Metrics{}
	m.StartTime.Store(time.Now().UnixNano())
	return m
}

// RecordDispatch is called once per Scheduler.Run iteration that
// successfully delivers a message to a task.
func (m *Metrics) RecordDispatch() {
	m.CycleCount.Add(1)
}

// RecordLoss is called whenever the scheduler drops a message, whether
// from queue overflow or a task returning ENOMSG (spec §4.1, §8).
func (m *Metrics) RecordLoss() {
	m.LostMsgs.Add(1)
}

// RecordQueueDepth updates the current/high-water queue depth gauges.
func (m *Metrics) RecordQueueDepth(depth uint32) {
	m.QueueDepth.Store(depth)
	for {
		cur := m.MaxQueueDepth.Load()
		if depth <= cur {
			break
		}
		if m.MaxQueueDepth.CompareAndSwap(cur, depth) {
			break
		}
	}
}

// RecordRoundTrip records the latency of one request/reply pair and
// updates the histogram.
func (m *Metrics) RecordRoundTrip(latencyNs uint64) {
	m.TotalLatencyNs.Add(latencyNs)
	m.OpCount.Add(1)
	for i, bucket := range LatencyBuckets {
		if latencyNs <= bucket {
			m.LatencyBuckets[i].Add(1)
		}
	}
}

// Stop marks the node as stopped.
func (m *Metrics) Stop() {
	m.StopTime.Store(time.Now().UnixNano())
}

// MetricsSnapshot is a point-in-time copy of Metrics, safe to log or
// serve over a status endpoint without racing live counters.
type MetricsSnapshot struct {
	CycleCount    uint64
	LostMsgs      uint64
	QueueDepth    uint32
	MaxQueueDepth uint32

	AlarmsScheduled uint64
	AlarmsFired     uint64
	AlarmsCanceled  uint64

	MasterJobs   uint64
	SlaveAccepts uint64
	BusRetries   uint64
	BusLoopbacks uint64
	BusFailures  uint64

	AvgLatencyNs uint64
	UptimeNs     uint64
}

// Snapshot takes a consistent-enough point-in-time copy of m.
func (m *Metrics) Snapshot() MetricsSnapshot {
	snap := MetricsSnapshot{
		CycleCount:      m.CycleCount.Load(),
		LostMsgs:        m.LostMsgs.Load(),
		QueueDepth:      m.QueueDepth.Load(),
		MaxQueueDepth:   m.MaxQueueDepth.Load(),
		AlarmsScheduled: m.AlarmsScheduled.Load(),
		AlarmsFired:     m.AlarmsFired.Load(),
		AlarmsCanceled:  m.AlarmsCanceled.Load(),
		MasterJobs:      m.MasterJobs.Load(),
		SlaveAccepts:    m.SlaveAccepts.Load(),
		BusRetries:      m.BusRetries.Load(),
		BusLoopbacks:    m.BusLoopbacks.Load(),
		BusFailures:     m.BusFailures.Load(),
	}

	opCount := m.OpCount.Load()
	if opCount > 0 {
		snap.AvgLatencyNs = m.TotalLatencyNs.Load() / opCount
	}

	start := m.StartTime.Load()
	if stop := m.StopTime.Load(); stop > 0 {
		snap.UptimeNs = uint64(stop - start)
	} else {
		snap.UptimeNs = uint64(time.Now().UnixNano() - start)
	}

	return snap
}

// Reset zeroes all counters. Useful in tests that share a Metrics
// instance across scenarios.
func (m *Metrics) Reset() {
	m.CycleCount.Store(0)
	m.LostMsgs.Store(0)
	m.QueueDepth.Store(0)
	m.MaxQueueDepth.Store(0)
	m.AlarmsScheduled.Store(0)
	m.AlarmsFired.Store(0)
	m.AlarmsCanceled.Store(0)
	m.MasterJobs.Store(0)
	m.SlaveAccepts.Store(0)
	m.BusRetries.Store(0)
	m.BusLoopbacks.Store(0)
	m.BusFailures.Store(0)
	m.TotalLatencyNs.Store(0)
	m.OpCount.Store(0)
	for i := range m.LatencyBuckets {
		m.LatencyBuckets[i].Store(0)
	}
	m.StartTime.Store(time.Now().UnixNano())
	m.StopTime.Store(0)
}
