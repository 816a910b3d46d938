package session

import (
	"fmt"
	"log"

	"github.com/google/uuid"

	"github.com/darxtarr/txxt/internal/authn"
	"github.com/darxtarr/txxt/internal/eventbus"
	"github.com/darxtarr/txxt/internal/metrics"
	"github.com/darxtarr/txxt/internal/store"
	"github.com/darxtarr/txxt/internal/wire"
	"github.com/darxtarr/txxt/internal/world"
)

// Server bundles the shared, cross-session state a Session needs: the
// authoritative World, its save file, the broadcast hub, the optional
// event-bus bridge, and the metrics collector. One Server backs every
// concurrent Session.
type Server struct {
	World    *world.World
	SaveFile *store.SaveFile
	Hub      *Hub
	Bridge   *eventbus.Bridge
	Metrics  *metrics.Metrics
	Auth     authn.Authenticator
}

// Session is one accepted duplex transport, authenticated once at
// establishment and then cooperatively serving client frames and broadcast
// events until either side closes (§4.4).
type Session struct {
	server    *Server
	transport Transport
	actorID   uuid.UUID
	username  string
}

// New authenticates credential and, on success, returns a Session ready to
// Run. A failed authentication returns an error and the caller must close
// the transport without any further World access (§4.4 step 1).
func New(server *Server, transport Transport, credential string) (*Session, error) {
	identity, err := server.Auth.Authenticate(credential)
	if err != nil {
		return nil, fmt.Errorf("session: authenticate: %w", err)
	}
	return &Session{server: server, transport: transport, actorID: identity.ActorID, username: identity.Username}, nil
}

// Run drives the session to completion: subscribe, snapshot, then the
// select loop of §4.4 step 4. It returns when the transport closes in
// either direction.
func (s *Session) Run() error {
	sub := s.server.Hub.Subscribe()
	defer sub.Unsubscribe()

	// Read lock held only long enough to pack the snapshot (§5 locking
	// discipline).
	revision, tasks, services := s.server.World.Snapshot()
	snapshotFrame := wire.EncodeSnapshot(revision, tasks, services)
	if err := s.transport.WriteFrame(snapshotFrame); err != nil {
		return fmt.Errorf("session: write snapshot: %w", err)
	}

	inbound := make(chan []byte)
	inboundErr := make(chan error, 1)
	done := make(chan struct{})
	defer close(done)
	go s.readLoop(inbound, inboundErr, done)

	for {
		select {
		case frame, ok := <-inbound:
			if !ok {
				return <-inboundErr
			}
			s.handleFrame(frame)

		case frame, ok := <-sub.Events:
			if !ok {
				return nil
			}
			if err := s.transport.WriteFrame(frame); err != nil {
				return fmt.Errorf("session: write event: %w", err)
			}

		case <-sub.Lagged:
			log.Printf("session: %s lagged behind broadcast, skipping ahead", s.username)
		}
	}
}

func (s *Session) readLoop(out chan<- []byte, errOut chan<- error, done <-chan struct{}) {
	defer close(out)
	for {
		frame, err := s.transport.ReadFrame()
		if err != nil {
			errOut <- err
			return
		}
		select {
		case out <- frame:
		case <-done:
			return
		}
	}
}

func (s *Session) handleFrame(frame []byte) {
	cmd, err := wire.DecodeCommand(frame)
	if err != nil {
		log.Printf("session: %s sent an unparseable frame: %v", s.username, err)
		s.sendError(err.Error())
		return
	}
	s.HandleCommand(cmd)
}

// HandleCommand implements §4.4's handle_command: validate-and-apply under
// the write lock, persist, broadcast, and mirror — in that order, with the
// write lock held across all four so disk, broadcast order, and the
// revision counter stay serialized (§5).
func (s *Session) HandleCommand(cmd world.Command) {
	kind := commandKind(cmd)

	s.server.World.Lock()
	ev, err := s.server.World.Apply(cmd, s.actorID)
	if err != nil {
		s.server.World.Unlock()
		s.server.Metrics.RecordCommand(kind, true)
		s.sendError(err.Error())
		return
	}

	if flushErr := store.Flush(s.server.SaveFile, s.server.World, ev); flushErr != nil {
		log.Printf("session: flush failed after %v at revision %d, memory remains authoritative: %v", ev.Kind, ev.Revision, flushErr)
	}

	frame := wire.EncodeEvent(ev)
	s.server.Hub.Publish(frame)
	s.server.Bridge.Mirror(eventbus.EventPayload{Kind: ev.Kind.String(), Revision: ev.Revision, TaskID: ev.TaskID.String()})
	s.server.World.Unlock()

	s.server.Metrics.RecordCommand(kind, false)
}

func (s *Session) sendError(message string) {
	if err := s.transport.WriteFrame(wire.EncodeErrorFrame(message)); err != nil {
		log.Printf("session: %s: failed to send error frame: %v", s.username, err)
	}
}

func commandKind(cmd world.Command) string {
	switch cmd.(type) {
	case world.CreateTask:
		return "create_task"
	case world.ScheduleTask:
		return "schedule_task"
	case world.MoveTask:
		return "move_task"
	case world.UnscheduleTask:
		return "unschedule_task"
	case world.CompleteTask:
		return "complete_task"
	case world.DeleteTask:
		return "delete_task"
	default:
		return "unknown"
	}
}
