package world_test

import (
	"errors"
	"testing"

	"github.com/google/uuid"

	"github.com/darxtarr/txxt/internal/grid"
	"github.com/darxtarr/txxt/internal/world"
)

func newServiceWorld(t *testing.T) (*world.World, uuid.UUID, uuid.UUID) {
	t.Helper()
	w := world.New()
	svc := &grid.Service{ID: uuid.New(), Name: "engineering"}
	w.RestoreService(svc)
	actor := uuid.New()
	return w, svc.ID, actor
}

func apply(t *testing.T, w *world.World, cmd world.Command, actor uuid.UUID) world.Event {
	t.Helper()
	w.Lock()
	defer w.Unlock()
	ev, err := w.Apply(cmd, actor)
	if err != nil {
		t.Fatalf("apply %T: %v", cmd, err)
	}
	return ev
}

func applyErr(t *testing.T, w *world.World, cmd world.Command, actor uuid.UUID) error {
	t.Helper()
	w.Lock()
	defer w.Unlock()
	_, err := w.Apply(cmd, actor)
	if err == nil {
		t.Fatalf("apply %T: expected error, got nil", cmd)
	}
	return err
}

func TestCreateScheduleMoveComplete(t *testing.T) {
	w, svcID, actor := newServiceWorld(t)

	createEv := apply(t, w, world.CreateTask{
		Title:     "write report",
		ServiceID: svcID,
		Priority:  grid.PriorityHigh,
	}, actor)
	if createEv.Kind != world.EventTaskCreated {
		t.Fatalf("want EventTaskCreated, got %v", createEv.Kind)
	}
	taskID := createEv.TaskID

	task, ok := w.GetTask(taskID)
	if !ok || task.Status != grid.StatusStaged {
		t.Fatalf("expected staged task after create, got %+v ok=%v", task, ok)
	}

	sched := grid.Schedule{Date: 5, StartTime: 540, Duration: 60}
	apply(t, w, world.ScheduleTask{TaskID: taskID, Schedule: sched}, actor)

	task, _ = w.GetTask(taskID)
	if task.Status != grid.StatusScheduled || *task.Schedule != sched {
		t.Fatalf("expected scheduled task, got %+v", task)
	}

	moved := grid.Schedule{Date: 6, StartTime: 600, Duration: 30}
	apply(t, w, world.MoveTask{TaskID: taskID, Schedule: moved}, actor)

	task, _ = w.GetTask(taskID)
	if *task.Schedule != moved {
		t.Fatalf("expected moved schedule, got %+v", task.Schedule)
	}

	completeEv := apply(t, w, world.CompleteTask{TaskID: taskID}, actor)
	if completeEv.Kind != world.EventTaskCompleted {
		t.Fatalf("want EventTaskCompleted, got %v", completeEv.Kind)
	}

	task, _ = w.GetTask(taskID)
	if task.Status != grid.StatusCompleted {
		t.Fatalf("expected completed status, got %v", task.Status)
	}
	if task.Schedule == nil || *task.Schedule != moved {
		t.Fatalf("completed task must retain its scheduling triple, got %+v", task.Schedule)
	}
}

func TestCreateTaskUnknownServiceFails(t *testing.T) {
	w := world.New()
	actor := uuid.New()

	err := applyErr(t, w, world.CreateTask{
		Title:     "orphan",
		ServiceID: uuid.New(),
		Priority:  grid.PriorityLow,
	}, actor)
	if !errors.Is(err, grid.ErrServiceNotFound) {
		t.Fatalf("want ErrServiceNotFound, got %v", err)
	}
	if w.Revision() != 0 {
		t.Fatalf("revision must not advance on a rejected command, got %d", w.Revision())
	}
}

func TestIllegalTransitionRejected(t *testing.T) {
	w, svcID, actor := newServiceWorld(t)
	createEv := apply(t, w, world.CreateTask{Title: "t", ServiceID: svcID, Priority: grid.PriorityLow}, actor)

	// A Staged task cannot be completed directly.
	err := applyErr(t, w, world.CompleteTask{TaskID: createEv.TaskID}, actor)
	if !errors.Is(err, grid.ErrInvalidTransition) {
		t.Fatalf("want ErrInvalidTransition, got %v", err)
	}
}

func TestFailedApplyLeavesWorldUnchanged(t *testing.T) {
	w, svcID, actor := newServiceWorld(t)
	apply(t, w, world.CreateTask{Title: "t", ServiceID: svcID, Priority: grid.PriorityLow}, actor)

	before := snapshotKey(w)

	w.Lock()
	_, err := w.Apply(world.ScheduleTask{TaskID: uuid.New(), Schedule: grid.Schedule{Date: 1, Duration: 15}}, actor)
	w.Unlock()
	if err == nil {
		t.Fatal("expected error scheduling an unknown task")
	}

	after := snapshotKey(w)
	if before != after {
		t.Fatalf("world state changed after a failed Apply: before=%q after=%q", before, after)
	}
}

// snapshotKey condenses the revision and the task and service counts into
// one key, so a failed Apply that advanced the revision or added or removed
// an entity changes it; field-level changes are not captured.
func snapshotKey(w *world.World) string {
	rev, tasks, services := w.Snapshot()
	out := rev
	for range tasks {
		out++
	}
	for range services {
		out++
	}
	return uuid.NewSHA1(uuid.Nil, []byte{byte(out)}).String()
}

func TestEventsSinceReplay(t *testing.T) {
	w, svcID, actor := newServiceWorld(t)
	ev1 := apply(t, w, world.CreateTask{Title: "a", ServiceID: svcID, Priority: grid.PriorityLow}, actor)
	ev2 := apply(t, w, world.CreateTask{Title: "b", ServiceID: svcID, Priority: grid.PriorityLow}, actor)

	events, ok := w.EventsSince(ev1.Revision - 1)
	if !ok {
		t.Fatal("expected ok=true for a watermark within the retained log")
	}
	if len(events) != 2 {
		t.Fatalf("expected 2 events since before the first create, got %d", len(events))
	}
	if events[0].TaskID != ev1.TaskID || events[1].TaskID != ev2.TaskID {
		t.Fatalf("events out of order: %+v", events)
	}

	events, ok = w.EventsSince(ev2.Revision)
	if !ok || len(events) != 0 {
		t.Fatalf("expected no events past the latest revision, got %v ok=%v", events, ok)
	}
}

func TestStagingQueueOrdersByPriorityDescending(t *testing.T) {
	w, svcID, actor := newServiceWorld(t)
	apply(t, w, world.CreateTask{Title: "low", ServiceID: svcID, Priority: grid.PriorityLow}, actor)
	apply(t, w, world.CreateTask{Title: "urgent", ServiceID: svcID, Priority: grid.PriorityUrgent}, actor)
	apply(t, w, world.CreateTask{Title: "medium", ServiceID: svcID, Priority: grid.PriorityMedium}, actor)

	queue := w.StagingQueue()
	if len(queue) != 3 {
		t.Fatalf("expected 3 staged tasks, got %d", len(queue))
	}
	for i := 1; i < len(queue); i++ {
		if queue[i-1].Priority < queue[i].Priority {
			t.Fatalf("staging queue not sorted descending: %+v", queue)
		}
	}
}

func TestDeleteTaskRemovesRegardlessOfStatus(t *testing.T) {
	w, svcID, actor := newServiceWorld(t)
	createEv := apply(t, w, world.CreateTask{Title: "t", ServiceID: svcID, Priority: grid.PriorityLow}, actor)

	apply(t, w, world.DeleteTask{TaskID: createEv.TaskID}, actor)

	if _, ok := w.GetTask(createEv.TaskID); ok {
		t.Fatal("expected task to be gone after delete")
	}
}
