package metrics

import (
	"testing"
	"time"
)

func TestNewChainMetricsRegistersAll(t *testing.T) {
	reg := NewRegistry("test", "chain")
	m := NewChainMetrics(reg)

	if m.EventsTotal == nil || m.CheckpointsTotal == nil || m.VerificationsTotal == nil {
		t.Fatal("expected counters to be registered")
	}
	if reg.GetCounter("events_total") == nil {
		t.Error("expected events_total to be registered on the registry")
	}
}

func TestChainMetricsRecordEvent(t *testing.T) {
	m := NewChainMetrics(NewRegistry("test", "record"))
	m.RecordEvent(10 * time.Millisecond)
	m.RecordEvent(20 * time.Millisecond)

	if got := m.EventsTotal.Value(); got != 2 {
		t.Errorf("expected EventsTotal 2, got %d", got)
	}
	if got := m.PoswDuration.Count(); got != 2 {
		t.Errorf("expected PoswDuration count 2, got %d", got)
	}
}

func TestChainMetricsRecordVerificationTracksErrors(t *testing.T) {
	m := NewChainMetrics(NewRegistry("test", "verify"))
	m.RecordVerification(time.Millisecond, true)
	m.RecordVerification(time.Millisecond, false)

	if got := m.VerificationsTotal.Value(); got != 2 {
		t.Errorf("expected VerificationsTotal 2, got %d", got)
	}
	if got := m.ErrorsTotal.Value(); got != 1 {
		t.Errorf("expected ErrorsTotal 1 for the failed verification, got %d", got)
	}
}

func TestChainMetricsActiveChainsGauge(t *testing.T) {
	m := NewChainMetrics(NewRegistry("test", "active"))
	m.ChainStarted()
	m.ChainStarted()
	m.ChainEnded()

	if got := m.ActiveChains.Value(); got != 1 {
		t.Errorf("expected ActiveChains 1, got %d", got)
	}
}

func TestChainMetricsSnapshot(t *testing.T) {
	m := NewChainMetrics(NewRegistry("test", "snapshot"))
	m.RecordEvent(time.Millisecond)
	m.RecordExport()

	snap := m.Snapshot()
	if snap["events_total"].(uint64) != 1 {
		t.Errorf("expected events_total 1 in snapshot, got %v", snap["events_total"])
	}
	if snap["exports_total"] == nil {
		t.Error("expected exports_total key in snapshot")
	}
}

func TestGetChainMetricsReturnsSingleton(t *testing.T) {
	a := GetChainMetrics()
	b := GetChainMetrics()
	if a != b {
		t.Error("expected GetChainMetrics to return the same instance across calls")
	}
}
