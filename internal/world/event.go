package world

import (
	"github.com/google/uuid"

	"github.com/darxtarr/txxt/internal/grid"
)

// EventKind identifies the variant of a committed Event. Values double as
// the wire message-type tag for the corresponding S→C frame (§4.2), so the
// wire codec imports these constants rather than redefining them.
type EventKind uint8

const (
	EventTaskCreated     EventKind = 0x02
	EventTaskScheduled   EventKind = 0x03
	EventTaskMoved       EventKind = 0x04
	EventTaskUnscheduled EventKind = 0x05
	EventTaskCompleted   EventKind = 0x06
	EventTaskDeleted     EventKind = 0x07
)

func (k EventKind) String() string {
	switch k {
	case EventTaskCreated:
		return "task_created"
	case EventTaskScheduled:
		return "task_scheduled"
	case EventTaskMoved:
		return "task_moved"
	case EventTaskUnscheduled:
		return "task_unscheduled"
	case EventTaskCompleted:
		return "task_completed"
	case EventTaskDeleted:
		return "task_deleted"
	default:
		return "unknown"
	}
}

// Event is a committed delta, as appended to the World's log (§3, §9).
// Task is populated only for EventTaskCreated; Schedule only for
// EventTaskScheduled and EventTaskMoved. Every other combination leaves
// those fields nil/zero.
type Event struct {
	Kind     EventKind
	Revision uint64
	TaskID   uuid.UUID
	Task     *grid.Task
	Schedule *grid.Schedule
}

// LogEntry pairs a revision with its Event, matching §3's "(revision,
// Event) pairs in insertion order" description of the log. Revision is
// redundant with Event.Revision but kept explicit to mirror the spec text
// and to let replay code address entries without reaching into Event.
type LogEntry struct {
	Revision uint64
	Event    Event
}
