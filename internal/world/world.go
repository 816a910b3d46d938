// Package world implements the authoritative in-memory state machine
// described in §4.1: entity store, revision counter, command validation,
// state transitions, and the event log used for reconnect replay.
package world

import (
	"fmt"
	"sort"
	"sync"

	"github.com/google/uuid"

	"github.com/darxtarr/txxt/internal/grid"
)

// World holds the three entity maps, the monotonic revision counter, and
// the append-only event log. The zero value is not usable; construct with
// New. All mutation goes through Apply; all the mutex machinery is exposed
// so the session loop (§4.4, §5) can hold the write lock across Apply,
// the save-file flush, and the broadcast publish as a single critical
// section.
type World struct {
	mu sync.RWMutex

	tasks    map[uuid.UUID]*grid.Task
	services map[uuid.UUID]*grid.Service
	users    map[uuid.UUID]*grid.User

	revision uint64
	log      []LogEntry
}

// New returns an empty World.
func New() *World {
	return &World{
		tasks:    make(map[uuid.UUID]*grid.Task),
		services: make(map[uuid.UUID]*grid.Service),
		users:    make(map[uuid.UUID]*grid.User),
	}
}

// Lock acquires the write lock. Callers must hold it across Apply, the
// save-file flush, and the broadcast publish (§5 locking discipline).
func (w *World) Lock() { w.mu.Lock() }

// Unlock releases the write lock.
func (w *World) Unlock() { w.mu.Unlock() }

// RLock acquires the read lock, for snapshot/query callers that don't go
// through the exported query methods (which lock internally).
func (w *World) RLock() { w.mu.RLock() }

// RUnlock releases the read lock.
func (w *World) RUnlock() { w.mu.RUnlock() }

// Apply validates and, on success, commits cmd as the next revision. The
// caller must already hold the write lock (see Lock). Apply performs no
// I/O and never blocks.
//
// Validation happens entirely before any mutation, so a rejected command
// leaves revision, every entity, and the log bitwise unchanged — the
// atomicity rule of §4.1.
func (w *World) Apply(cmd Command, actorID uuid.UUID) (Event, error) {
	switch c := cmd.(type) {
	case CreateTask:
		return w.applyCreateTask(c, actorID)
	case ScheduleTask:
		return w.applyScheduleTask(c)
	case MoveTask:
		return w.applyMoveTask(c)
	case UnscheduleTask:
		return w.applyUnscheduleTask(c)
	case CompleteTask:
		return w.applyCompleteTask(c)
	case DeleteTask:
		return w.applyDeleteTask(c)
	default:
		return Event{}, fmt.Errorf("world: unrecognized command type %T", cmd)
	}
}

func (w *World) applyCreateTask(c CreateTask, actorID uuid.UUID) (Event, error) {
	if _, ok := w.services[c.ServiceID]; !ok {
		return Event{}, fmt.Errorf("create task: service %s: %w", c.ServiceID, grid.ErrServiceNotFound)
	}
	if c.Schedule != nil {
		if err := c.Schedule.Validate(); err != nil {
			return Event{}, fmt.Errorf("create task: %w", err)
		}
	}

	status := grid.StatusStaged
	var sched *grid.Schedule
	if c.Schedule != nil {
		status = grid.StatusScheduled
		cp := *c.Schedule
		sched = &cp
	}

	task := &grid.Task{
		ID:         uuid.New(),
		Title:      c.Title,
		Status:     status,
		Priority:   c.Priority,
		ServiceID:  c.ServiceID,
		CreatedBy:  actorID,
		AssignedTo: c.AssignedTo,
		Schedule:   sched,
	}

	rev := w.commit()
	w.tasks[task.ID] = task
	ev := Event{Kind: EventTaskCreated, Revision: rev, TaskID: task.ID, Task: task.Clone()}
	w.appendLog(ev)
	return ev, nil
}

func (w *World) applyScheduleTask(c ScheduleTask) (Event, error) {
	task, ok := w.tasks[c.TaskID]
	if !ok {
		return Event{}, fmt.Errorf("schedule task %s: %w", c.TaskID, grid.ErrTaskNotFound)
	}
	if task.Status != grid.StatusStaged {
		return Event{}, fmt.Errorf("schedule task %s: %w", c.TaskID, grid.ErrInvalidTransition)
	}
	if err := c.Schedule.Validate(); err != nil {
		return Event{}, fmt.Errorf("schedule task %s: %w", c.TaskID, err)
	}

	sched := c.Schedule
	rev := w.commit()
	task.Status = grid.StatusScheduled
	task.Schedule = &sched
	ev := Event{Kind: EventTaskScheduled, Revision: rev, TaskID: task.ID, Schedule: &sched}
	w.appendLog(ev)
	return ev, nil
}

func (w *World) applyMoveTask(c MoveTask) (Event, error) {
	task, ok := w.tasks[c.TaskID]
	if !ok {
		return Event{}, fmt.Errorf("move task %s: %w", c.TaskID, grid.ErrTaskNotFound)
	}
	if task.Status != grid.StatusScheduled && task.Status != grid.StatusActive {
		return Event{}, fmt.Errorf("move task %s: %w", c.TaskID, grid.ErrInvalidTransition)
	}
	if err := c.Schedule.Validate(); err != nil {
		return Event{}, fmt.Errorf("move task %s: %w", c.TaskID, err)
	}

	sched := c.Schedule
	rev := w.commit()
	task.Schedule = &sched
	ev := Event{Kind: EventTaskMoved, Revision: rev, TaskID: task.ID, Schedule: &sched}
	w.appendLog(ev)
	return ev, nil
}

func (w *World) applyUnscheduleTask(c UnscheduleTask) (Event, error) {
	task, ok := w.tasks[c.TaskID]
	if !ok {
		return Event{}, fmt.Errorf("unschedule task %s: %w", c.TaskID, grid.ErrTaskNotFound)
	}
	if task.Status != grid.StatusScheduled && task.Status != grid.StatusActive {
		return Event{}, fmt.Errorf("unschedule task %s: %w", c.TaskID, grid.ErrInvalidTransition)
	}

	rev := w.commit()
	task.Status = grid.StatusStaged
	task.Schedule = nil
	ev := Event{Kind: EventTaskUnscheduled, Revision: rev, TaskID: task.ID}
	w.appendLog(ev)
	return ev, nil
}

func (w *World) applyCompleteTask(c CompleteTask) (Event, error) {
	task, ok := w.tasks[c.TaskID]
	if !ok {
		return Event{}, fmt.Errorf("complete task %s: %w", c.TaskID, grid.ErrTaskNotFound)
	}
	if task.Status != grid.StatusScheduled && task.Status != grid.StatusActive {
		return Event{}, fmt.Errorf("complete task %s: %w", c.TaskID, grid.ErrInvalidTransition)
	}

	rev := w.commit()
	// Scheduling fields are retained: the frozen convention of §9 keeps the
	// grid slot visible for a completed task rather than clearing it.
	task.Status = grid.StatusCompleted
	ev := Event{Kind: EventTaskCompleted, Revision: rev, TaskID: task.ID}
	w.appendLog(ev)
	return ev, nil
}

func (w *World) applyDeleteTask(c DeleteTask) (Event, error) {
	if _, ok := w.tasks[c.TaskID]; !ok {
		return Event{}, fmt.Errorf("delete task %s: %w", c.TaskID, grid.ErrTaskNotFound)
	}

	rev := w.commit()
	delete(w.tasks, c.TaskID)
	ev := Event{Kind: EventTaskDeleted, Revision: rev, TaskID: c.TaskID}
	w.appendLog(ev)
	return ev, nil
}

// commit increments and returns the new revision. Call only once validation
// has fully passed, immediately before mutating entity state.
func (w *World) commit() uint64 {
	w.revision++
	return w.revision
}

func (w *World) appendLog(ev Event) {
	w.log = append(w.log, LogEntry{Revision: ev.Revision, Event: ev})
}

// Snapshot returns the current revision plus a copy of every task and
// service, suitable for the session's snapshot-on-connect step (§4.4).
// Order is unspecified beyond what's needed for deterministic wire framing
// by the caller.
func (w *World) Snapshot() (revision uint64, tasks []*grid.Task, services []*grid.Service) {
	w.mu.RLock()
	defer w.mu.RUnlock()

	tasks = make([]*grid.Task, 0, len(w.tasks))
	for _, t := range w.tasks {
		tasks = append(tasks, t.Clone())
	}
	services = make([]*grid.Service, 0, len(w.services))
	for _, s := range w.services {
		cp := *s
		services = append(services, &cp)
	}
	return w.revision, tasks, services
}

// GetTask returns a copy of the task with the given id, or false if absent.
func (w *World) GetTask(id uuid.UUID) (*grid.Task, bool) {
	w.mu.RLock()
	defer w.mu.RUnlock()
	t, ok := w.tasks[id]
	return t.Clone(), ok
}

// GetService returns a copy of the service with the given id, or false if absent.
func (w *World) GetService(id uuid.UUID) (*grid.Service, bool) {
	w.mu.RLock()
	defer w.mu.RUnlock()
	s, ok := w.services[id]
	if !ok {
		return nil, false
	}
	cp := *s
	return &cp, true
}

// ListServices returns a copy of every known service.
func (w *World) ListServices() []*grid.Service {
	w.mu.RLock()
	defer w.mu.RUnlock()
	out := make([]*grid.Service, 0, len(w.services))
	for _, s := range w.services {
		cp := *s
		out = append(out, &cp)
	}
	return out
}

// ServiceCount reports how many services are known, used by the seeding
// idempotency check in internal/store.
func (w *World) ServiceCount() int {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return len(w.services)
}

// UserCount reports how many users are known, used by the seeding
// idempotency check in internal/store.
func (w *World) UserCount() int {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return len(w.users)
}

// GetUserByUsername performs the linear scan described in §4.1 — acceptable
// at this scale (5-20 cooperating clients).
func (w *World) GetUserByUsername(name string) (*grid.User, bool) {
	w.mu.RLock()
	defer w.mu.RUnlock()
	for _, u := range w.users {
		if u.Username == name {
			cp := *u
			return &cp, true
		}
	}
	return nil, false
}

// GetUser returns a copy of the user with the given id, or false if absent.
func (w *World) GetUser(id uuid.UUID) (*grid.User, bool) {
	w.mu.RLock()
	defer w.mu.RUnlock()
	u, ok := w.users[id]
	if !ok {
		return nil, false
	}
	cp := *u
	return &cp, true
}

// StagingQueue returns every Staged task sorted by priority descending
// (Urgent first). The tie-break is stable within a single call (sort.Slice
// is not a stable sort on its own, so StagingQueue uses sort.SliceStable).
func (w *World) StagingQueue() []*grid.Task {
	w.mu.RLock()
	defer w.mu.RUnlock()

	var out []*grid.Task
	for _, t := range w.tasks {
		if t.Status == grid.StatusStaged {
			out = append(out, t.Clone())
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Priority > out[j].Priority
	})
	return out
}

// EventsSince returns the log suffix with revision > sinceRev. ok is false
// when the caller's watermark has already fallen out of the retained log
// window (the "too-old" signal of §4.1); in that case events is nil and
// the caller should fall back to a fresh snapshot.
func (w *World) EventsSince(sinceRev uint64) (events []Event, ok bool) {
	w.mu.RLock()
	defer w.mu.RUnlock()

	if sinceRev >= w.revision {
		return nil, true
	}
	// sinceRev < revision here, so an empty log (e.g. right after a reload)
	// means the events the caller needs are not retained.
	if len(w.log) == 0 || w.log[0].Revision > sinceRev+1 {
		return nil, false
	}

	for _, entry := range w.log {
		if entry.Revision > sinceRev {
			events = append(events, entry.Event)
		}
	}
	return events, true
}

// Revision returns the current revision under the read lock.
func (w *World) Revision() uint64 {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.revision
}

// --- Restore path, used only by internal/store while loading the save
// file at boot. These bypass command validation because the save file is
// trusted: it only ever contains rows written by a prior successful Apply.

// RestoreTask installs a task loaded from the save file directly into the
// map, without going through Apply or touching the log.
func (w *World) RestoreTask(t *grid.Task) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.tasks[t.ID] = t
}

// RestoreService installs a service loaded from the save file.
func (w *World) RestoreService(s *grid.Service) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.services[s.ID] = s
}

// RestoreUser installs a user loaded from the save file.
func (w *World) RestoreUser(u *grid.User) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.users[u.ID] = u
}

// RestoreRevision sets the revision counter read from the meta table.
// The event log is intentionally left empty: events are not persisted
// individually (only the entities and the revision scalar are), so a
// reloaded World can serve fresh connections but cannot replay history
// from before the process restarted (§4.1's "too-old" signal covers this
// for clients that reconnect across a restart).
func (w *World) RestoreRevision(rev uint64) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.revision = rev
}
