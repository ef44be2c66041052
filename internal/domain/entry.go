package domain

import "time"

// TaskStatus is the lifecycle state of a task.
type TaskStatus string

const (
	TaskStatusActive    TaskStatus = "active"
	TaskStatusCompleted TaskStatus = "completed"
)

// Task is a unit of work time entries are logged against.
type Task struct {
	ID          string
	UserID      string
	Name        string
	Description string
	Status      TaskStatus
	CreatedAt   time.Time
}

// TimeEntry is a logged work interval. EndTime is nil while the timer runs.
type TimeEntry struct {
	ID        string
	UserID    string
	TaskID    string
	StartTime time.Time
	EndTime   *time.Time
	CreatedAt time.Time
}

// Active reports whether the entry is an open timer.
func (e *TimeEntry) Active() bool {
	return e.EndTime == nil
}

// DurationSeconds returns the whole seconds between start and end for a
// closed entry, zero for an active one.
func (e *TimeEntry) DurationSeconds() int64 {
	if e.EndTime == nil {
		return 0
	}
	return int64(e.EndTime.Sub(e.StartTime) / time.Second)
}

// EntryWithTask joins a closed entry with the task it was logged against.
type EntryWithTask struct {
	TimeEntry
	TaskName   string
	TaskStatus TaskStatus
}

// DailyTaskTotal is one row of the precomputed per-day aggregate. The
// duration is a Postgres interval rendered as text, either "HH:MM:SS" or
// "<N> day(s) HH:MM:SS".
type DailyTaskTotal struct {
	TaskID        string
	TaskName      string
	TotalDuration string
}

// Cursor models the pagination token for entry listings.
type Cursor struct {
	StartedAt time.Time
	ID        string
}

// EntryEvent describes a lifecycle change broadcast to downstream consumers.
type EntryEvent struct {
	Type       string
	UserID     string
	TaskID     string
	EntryID    string
	OccurredAt time.Time
}

// Lifecycle event types.
const (
	EventEntryCreated = "timeentry.created"
	EventEntryStopped = "timeentry.stopped"
	EventEntryUpdated = "timeentry.updated"
	EventEntryDeleted = "timeentry.deleted"
)
