package metrics_test

import (
	"testing"

	"github.com/darxtarr/txxt/internal/metrics"
)

func TestRecordCommandTracksCountsAndErrors(t *testing.T) {
	m := metrics.New()
	m.RecordCommand("create_task", false)
	m.RecordCommand("create_task", false)
	m.RecordCommand("create_task", true)

	snap := m.Snapshot()
	if snap.CommandCounts["create_task"] != 3 {
		t.Fatalf("command count = %d, want 3", snap.CommandCounts["create_task"])
	}
	if snap.CommandErrors["create_task"] != 1 {
		t.Fatalf("command error count = %d, want 1", snap.CommandErrors["create_task"])
	}
}

func TestConnectionLifecycleCounters(t *testing.T) {
	m := metrics.New()
	m.ConnectionAccepted()
	m.ConnectionAccepted()
	m.ConnectionRejected()
	m.ConnectionClosed()

	snap := m.Snapshot()
	if snap.ActiveConnections != 1 {
		t.Fatalf("active connections = %d, want 1", snap.ActiveConnections)
	}
	if snap.TotalConnections != 2 {
		t.Fatalf("total connections = %d, want 2", snap.TotalConnections)
	}
	if snap.RejectedConnections != 1 {
		t.Fatalf("rejected connections = %d, want 1", snap.RejectedConnections)
	}
}

func TestReadyDefaultsFalseUntilSet(t *testing.T) {
	m := metrics.New()
	if m.Ready() {
		t.Fatal("a fresh Metrics must not report ready before SetReady(true)")
	}
	m.SetReady(true)
	if !m.Ready() {
		t.Fatal("expected Ready() to be true after SetReady(true)")
	}
	m.SetReady(false)
	if m.Ready() {
		t.Fatal("expected Ready() to be false after SetReady(false)")
	}
}
