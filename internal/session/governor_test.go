package session_test

import (
	"testing"

	"github.com/darxtarr/txxt/internal/session"
)

func TestGovernorRejectsExcessConnections(t *testing.T) {
	g := session.NewGovernor(2)

	if !g.TryAcquire() {
		t.Fatal("expected first acquire to succeed")
	}
	if !g.TryAcquire() {
		t.Fatal("expected second acquire to succeed")
	}
	if g.TryAcquire() {
		t.Fatal("expected third acquire to be rejected immediately, not queued")
	}

	g.Release()
	if !g.TryAcquire() {
		t.Fatal("expected acquire to succeed again after a release")
	}
}
