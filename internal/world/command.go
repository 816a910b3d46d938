package world

import (
	"github.com/google/uuid"

	"github.com/darxtarr/txxt/internal/grid"
)

// Command is implemented by every mutation the World accepts through Apply.
// The marker method keeps the set closed to this package's six variants.
type Command interface {
	isCommand()
}

// CreateTask creates a new task, Staged unless a Schedule is supplied, in
// which case it is born Scheduled.
type CreateTask struct {
	Title      string
	ServiceID  uuid.UUID
	Priority   grid.Priority
	AssignedTo uuid.UUID // uuid.Nil means unassigned
	Schedule   *grid.Schedule
}

// ScheduleTask moves a Staged task onto the grid.
type ScheduleTask struct {
	TaskID   uuid.UUID
	Schedule grid.Schedule
}

// MoveTask replaces the scheduling triple of a Scheduled or Active task.
type MoveTask struct {
	TaskID   uuid.UUID
	Schedule grid.Schedule
}

// UnscheduleTask pulls a Scheduled or Active task back into the staging queue.
type UnscheduleTask struct {
	TaskID uuid.UUID
}

// CompleteTask marks a Scheduled or Active task Completed.
type CompleteTask struct {
	TaskID uuid.UUID
}

// DeleteTask removes a task regardless of status.
type DeleteTask struct {
	TaskID uuid.UUID
}

func (CreateTask) isCommand()      {}
func (ScheduleTask) isCommand()    {}
func (MoveTask) isCommand()        {}
func (UnscheduleTask) isCommand()  {}
func (CompleteTask) isCommand()    {}
func (DeleteTask) isCommand()      {}
