// Package grid defines the entities that live on the scheduling grid: tasks,
// the services they belong to, the users that create and are assigned them,
// and the error taxonomy raised while validating them.
package grid

import (
	"errors"

	"github.com/google/uuid"
)

// Status is the lifecycle state of a Task.
type Status uint8

const (
	StatusStaged Status = iota
	StatusScheduled
	StatusActive
	StatusCompleted
)

func (s Status) String() string {
	switch s {
	case StatusStaged:
		return "staged"
	case StatusScheduled:
		return "scheduled"
	case StatusActive:
		return "active"
	case StatusCompleted:
		return "completed"
	default:
		return "unknown"
	}
}

// Valid reports whether s is one of the four defined statuses.
func (s Status) Valid() bool {
	return s <= StatusCompleted
}

// Priority is the urgency of a Task, ordered Low < Medium < High < Urgent.
type Priority uint8

const (
	PriorityLow Priority = iota
	PriorityMedium
	PriorityHigh
	PriorityUrgent
)

func (p Priority) String() string {
	switch p {
	case PriorityLow:
		return "low"
	case PriorityMedium:
		return "medium"
	case PriorityHigh:
		return "high"
	case PriorityUrgent:
		return "urgent"
	default:
		return "unknown"
	}
}

// Valid reports whether p is one of the four defined priorities.
func (p Priority) Valid() bool {
	return p <= PriorityUrgent
}

// UnscheduledDate is the wire sentinel for "no date" and must never appear
// as a live Schedule.Date value.
const UnscheduledDate uint16 = 0xFFFF

// MinutesPerDay bounds StartTime and StartTime+Duration.
const MinutesPerDay uint16 = 1440

// GridStep is the 15-minute granularity every scheduling field snaps to.
const GridStep uint16 = 15

// Schedule is the calendar placement of a Task. A nil *Schedule means the
// task is not on the grid (Staged). A Task whose Status is Scheduled or
// Active always carries a non-nil, valid Schedule; see Validate.
type Schedule struct {
	Date      uint16 // days since 1970-01-01
	StartTime uint16 // minutes from midnight
	Duration  uint16 // minutes
}

// Validate checks the scheduling-coherence rules of §4.1: date must not be
// the unscheduled sentinel, start_time must fall on the 15-minute grid and
// be strictly less than a day, and duration must be a positive multiple of
// 15 minutes that fits before midnight.
func (s Schedule) Validate() error {
	if s.Date == UnscheduledDate {
		return ErrInvalidDate
	}
	if s.StartTime >= MinutesPerDay || s.StartTime%GridStep != 0 {
		return ErrInvalidTime
	}
	if s.Duration == 0 || s.Duration%GridStep != 0 || s.StartTime+s.Duration > MinutesPerDay {
		return ErrInvalidDuration
	}
	return nil
}

// Task is the unit of work on the grid.
type Task struct {
	ID         uuid.UUID
	Title      string
	Status     Status
	Priority   Priority
	ServiceID  uuid.UUID
	CreatedBy  uuid.UUID
	AssignedTo uuid.UUID // uuid.Nil means unassigned
	Schedule   *Schedule // nil unless Status is Scheduled, Active, or Completed (frozen convention, see §9)
}

// Clone returns a deep copy so callers can hand out a Task without letting
// the recipient mutate World state through a shared pointer.
func (t *Task) Clone() *Task {
	if t == nil {
		return nil
	}
	cp := *t
	if t.Schedule != nil {
		sc := *t.Schedule
		cp.Schedule = &sc
	}
	return &cp
}

// Service is a named lane/category tasks belong to.
type Service struct {
	ID   uuid.UUID
	Name string
}

// User is a participant that can create and be assigned tasks.
type User struct {
	ID           uuid.UUID
	Username     string
	PasswordHash string
}

// Error taxonomy for World.Apply (§7). Commands fail with exactly one of
// these sentinels, wrapped with fmt.Errorf("%w: ...") for extra context
// where useful.
var (
	ErrTaskNotFound      = errors.New("task not found")
	ErrServiceNotFound   = errors.New("service not found")
	ErrInvalidTransition = errors.New("invalid transition")
	ErrInvalidDate       = errors.New("invalid date")
	ErrInvalidTime       = errors.New("invalid time")
	ErrInvalidDuration   = errors.New("invalid duration")
)
