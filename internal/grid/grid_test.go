package grid_test

import (
	"testing"

	"github.com/darxtarr/txxt/internal/grid"
)

func TestScheduleValidateBoundaries(t *testing.T) {
	tests := []struct {
		name    string
		sched   grid.Schedule
		wantErr error
	}{
		{
			name:  "ends exactly at midnight",
			sched: grid.Schedule{Date: 1, StartTime: 1425, Duration: 15},
		},
		{
			name:    "overruns midnight",
			sched:   grid.Schedule{Date: 1, StartTime: 1425, Duration: 30},
			wantErr: grid.ErrInvalidDuration,
		},
		{
			name:    "zero duration",
			sched:   grid.Schedule{Date: 1, StartTime: 0, Duration: 0},
			wantErr: grid.ErrInvalidDuration,
		},
		{
			name:    "off the 15 minute grid",
			sched:   grid.Schedule{Date: 1, StartTime: 7, Duration: 15},
			wantErr: grid.ErrInvalidTime,
		},
		{
			name:    "sentinel date rejected",
			sched:   grid.Schedule{Date: grid.UnscheduledDate, StartTime: 0, Duration: 15},
			wantErr: grid.ErrInvalidDate,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.sched.Validate()
			if tt.wantErr == nil && err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if tt.wantErr != nil && err != tt.wantErr {
				t.Fatalf("got error %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestTaskCloneIsDeep(t *testing.T) {
	task := &grid.Task{
		Title:    "original",
		Status:   grid.StatusScheduled,
		Schedule: &grid.Schedule{Date: 1, StartTime: 0, Duration: 15},
	}
	clone := task.Clone()
	clone.Title = "mutated"
	clone.Schedule.Date = 2

	if task.Title != "original" {
		t.Fatalf("clone mutation leaked into original title: %q", task.Title)
	}
	if task.Schedule.Date != 1 {
		t.Fatalf("clone mutation leaked into original schedule: %d", task.Schedule.Date)
	}
}

func TestStatusAndPriorityValid(t *testing.T) {
	if !grid.StatusCompleted.Valid() {
		t.Fatal("StatusCompleted should be valid")
	}
	if grid.Status(4).Valid() {
		t.Fatal("Status(4) should not be valid")
	}
	if !grid.PriorityUrgent.Valid() {
		t.Fatal("PriorityUrgent should be valid")
	}
	if grid.Priority(4).Valid() {
		t.Fatal("Priority(4) should not be valid")
	}
}
