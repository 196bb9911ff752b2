package noded

import "testing"

func TestMetricsInitialState(t *testing.T) {
	m := NewMetrics()
	snap := m.Snapshot()
	if snap.CycleCount != 0 || snap.LostMsgs != 0 || snap.QueueDepth != 0 {
		t.Errorf("expected zeroed counters, got %+v", snap)
	}
}

func TestRecordDispatchAndLoss(t *testing.T) {
	m := NewMetrics()
	m.RecordDispatch()
	m.RecordDispatch()
	m.RecordLoss()

	snap := m.Snapshot()
	if snap.CycleCount != 2 {
		t.Errorf("CycleCount = %d, want 2", snap.CycleCount)
	}
	if snap.LostMsgs != 1 {
		t.Errorf("LostMsgs = %d, want 1", snap.LostMsgs)
	}
}

func TestRecordQueueDepthTracksHighWater(t *testing.T) {
	m := NewMetrics()
	m.RecordQueueDepth(3)
	m.RecordQueueDepth(9)
	m.RecordQueueDepth(5)

	snap := m.Snapshot()
	if snap.QueueDepth != 5 {
		t.Errorf("QueueDepth = %d, want 5 (last write)", snap.QueueDepth)
	}
	if snap.MaxQueueDepth != 9 {
		t.Errorf("MaxQueueDepth = %d, want 9 (high-water mark)", snap.MaxQueueDepth)
	}
}

func TestRecordRoundTripBucketsAndAverage(t *testing.T) {
	m := NewMetrics()
	m.RecordRoundTrip(50_000)    // falls in the 100us bucket
	m.RecordRoundTrip(2_000_000) // falls in the 10ms bucket and above

	snap := m.Snapshot()
	if snap.AvgLatencyNs != (50_000+2_000_000)/2 {
		t.Errorf("AvgLatencyNs = %d, want %d", snap.AvgLatencyNs, (50_000+2_000_000)/2)
	}
	if m.LatencyBuckets[0].Load() != 1 {
		t.Errorf("100us bucket = %d, want 1", m.LatencyBuckets[0].Load())
	}
}

func TestMetricsReset(t *testing.T) {
	m := NewMetrics()
	m.RecordDispatch()
	m.RecordLoss()
	m.RecordQueueDepth(4)
	m.Reset()

	snap := m.Snapshot()
	if snap.CycleCount != 0 || snap.LostMsgs != 0 || snap.QueueDepth != 0 || snap.MaxQueueDepth != 0 {
		t.Errorf("expected all counters zeroed after Reset, got %+v", snap)
	}
}

func TestMetricsStopFreezesUptime(t *testing.T) {
	m := NewMetrics()
	m.Stop()
	first := m.Snapshot().UptimeNs
	second := m.Snapshot().UptimeNs
	if first != second {
		t.Error("UptimeNs should be frozen once Stop() has been called")
	}
}
