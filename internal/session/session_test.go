package session_test

import (
	"net"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/darxtarr/txxt/internal/authn"
	"github.com/darxtarr/txxt/internal/grid"
	"github.com/darxtarr/txxt/internal/metrics"
	"github.com/darxtarr/txxt/internal/session"
	"github.com/darxtarr/txxt/internal/store"
	"github.com/darxtarr/txxt/internal/wire"
	"github.com/darxtarr/txxt/internal/world"
)

// fakeAuthenticator accepts any credential and stamps a fixed identity,
// isolating the session loop tests from the JWT adapter.
type fakeAuthenticator struct {
	identity authn.Identity
}

func (f fakeAuthenticator) Authenticate(string) (authn.Identity, error) {
	return f.identity, nil
}

func newTestServer(t *testing.T) (*session.Server, uuid.UUID) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "grid.db")
	sf, err := store.Open(path)
	if err != nil {
		t.Fatalf("open save file: %v", err)
	}
	t.Cleanup(func() { sf.Close() })

	w := world.New()
	if _, err := store.EnsureDefaultServices(sf, w); err != nil {
		t.Fatalf("seed services: %v", err)
	}
	svcID := w.ListServices()[0].ID

	actorID := uuid.New()
	server := &session.Server{
		World:    w,
		SaveFile: sf,
		Hub:      session.NewHub(),
		Bridge:   nil,
		Metrics:  metrics.New(),
		Auth:     fakeAuthenticator{identity: authn.Identity{ActorID: actorID, Username: "tester"}},
	}
	return server, svcID
}

func TestSessionRunSendsSnapshotThenAppliesCommands(t *testing.T) {
	server, svcID := newTestServer(t)

	clientConn, serverConn := net.Pipe()
	defer clientConn.Close()

	sess, err := session.New(server, session.NewFramedTransport(serverConn), "any-credential")
	if err != nil {
		t.Fatalf("session.New: %v", err)
	}

	done := make(chan error, 1)
	go func() { done <- sess.Run() }()

	clientTransport := session.NewFramedTransport(clientConn)

	snapshotFrame, err := clientTransport.ReadFrame()
	if err != nil {
		t.Fatalf("read snapshot: %v", err)
	}
	snap, err := wire.DecodeSnapshot(snapshotFrame)
	if err != nil {
		t.Fatalf("decode snapshot: %v", err)
	}
	if snap.Revision != 0 || len(snap.Tasks) != 0 {
		t.Fatalf("expected empty initial snapshot, got %+v", snap)
	}

	createFrame := wire.EncodeCreateTask(world.CreateTask{Title: "write tests", ServiceID: svcID, Priority: grid.PriorityMedium})
	if err := clientTransport.WriteFrame(createFrame); err != nil {
		t.Fatalf("write create command: %v", err)
	}

	eventFrame, err := clientTransport.ReadFrame()
	if err != nil {
		t.Fatalf("read broadcast event: %v", err)
	}
	ev, err := wire.DecodeEvent(eventFrame)
	if err != nil {
		t.Fatalf("decode event: %v", err)
	}
	if ev.Kind != world.EventTaskCreated || ev.Revision != 1 {
		t.Fatalf("unexpected event: %+v", ev)
	}

	task, ok := server.World.GetTask(ev.TaskID)
	if !ok || task.Title != "write tests" {
		t.Fatalf("expected task to exist in world, got %+v ok=%v", task, ok)
	}

	clientConn.Close()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("session.Run did not return after transport closed")
	}
}
