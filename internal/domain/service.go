// Package domain implements the time tracking business logic: timer
// lifecycle, local-day splitting, daily capacity enforcement and summary
// aggregation.
package domain

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Store captures the persistence operations the domain depends on. The
// state-changing entry operations are conditional writes: they only take
// effect if the row is still in the expected open/closed state, which is
// what makes concurrent requests from the same user safe.
type Store interface {
	CapacityStore

	TaskByID(ctx context.Context, userID, taskID string) (*Task, error)
	InsertTask(ctx context.Context, task *Task) error
	UpdateTask(ctx context.Context, task *Task) error
	ListTasks(ctx context.Context, userID string) ([]Task, error)
	TaskStatuses(ctx context.Context, userID string, taskIDs []string) (map[string]TaskStatus, error)

	// InsertEntry persists an open timer. It must surface a violation of
	// the one-open-timer-per-user constraint as ErrTimerAlreadyRunning.
	InsertEntry(ctx context.Context, entry *TimeEntry) error
	// InsertEntries persists a batch of closed rows atomically.
	InsertEntries(ctx context.Context, entries []TimeEntry) error
	EntryByID(ctx context.Context, userID, entryID string) (*TimeEntry, error)
	ActiveEntry(ctx context.Context, userID string) (*TimeEntry, error)
	ListEntries(ctx context.Context, userID, taskID string, cursor *Cursor, limit int) ([]TimeEntry, *Cursor, error)
	// CloseEntry sets end_time on an entry only while it is still open.
	// A nil result with nil error means the precondition no longer held.
	CloseEntry(ctx context.Context, userID, entryID string, endTime time.Time) (*TimeEntry, error)
	// UpdateEntryTimes rewrites both timestamps of an entry only while it
	// is closed. A nil result with nil error means the precondition failed.
	UpdateEntryTimes(ctx context.Context, userID, entryID string, start, end time.Time) (*TimeEntry, error)
	// DeleteEntry removes the row entirely, open or closed. It reports
	// whether a row matched.
	DeleteEntry(ctx context.Context, userID, entryID string) (bool, error)

	ClosedEntriesWithTasks(ctx context.Context, userID string, from, to time.Time) ([]EntryWithTask, error)
	ClosedEntryCountsByTask(ctx context.Context, userID string, from, to time.Time) (map[string]int, error)
	DailyTaskTotals(ctx context.Context, userID, localDate string, offsetMinutes int) ([]DailyTaskTotal, error)
}

// EventPublisher broadcasts entry lifecycle events. Implementations are
// best-effort; delivery failures must not affect the request.
type EventPublisher interface {
	Publish(ctx context.Context, event EntryEvent)
}

// Service orchestrates task and time-entry workflows.
type Service struct {
	store  Store
	events EventPublisher
}

// NewService constructs a Service. publisher may be nil.
func NewService(store Store, publisher EventPublisher) *Service {
	return &Service{store: store, events: publisher}
}

// CreateTask registers a new task for the user.
func (s *Service) CreateTask(ctx context.Context, userID, name, description string) (*Task, error) {
	task := &Task{
		ID:          uuid.NewString(),
		UserID:      userID,
		Name:        name,
		Description: description,
		Status:      TaskStatusActive,
		CreatedAt:   time.Now().UTC(),
	}
	if err := s.store.InsertTask(ctx, task); err != nil {
		return nil, err
	}
	return task, nil
}

// UpdateTask applies a partial update to a task the user owns.
func (s *Service) UpdateTask(ctx context.Context, userID, taskID string, name, description *string, status *TaskStatus) (*Task, error) {
	task, err := s.store.TaskByID(ctx, userID, taskID)
	if err != nil {
		return nil, err
	}
	if task == nil {
		return nil, ErrTaskNotFound
	}

	if name != nil {
		task.Name = *name
	}
	if description != nil {
		task.Description = *description
	}
	if status != nil {
		task.Status = *status
	}

	if err := s.store.UpdateTask(ctx, task); err != nil {
		return nil, err
	}
	return task, nil
}

// ListTasks returns all tasks owned by the user, newest first.
func (s *Service) ListTasks(ctx context.Context, userID string) ([]Task, error) {
	return s.store.ListTasks(ctx, userID)
}

// StartTimer opens a new time entry at now. The task must belong to the
// user and no other timer may be running; the second condition is also
// enforced by the store at write time to close the check-then-act window.
func (s *Service) StartTimer(ctx context.Context, userID, taskID string, now time.Time) (*TimeEntry, error) {
	task, err := s.store.TaskByID(ctx, userID, taskID)
	if err != nil {
		return nil, err
	}
	if task == nil {
		return nil, ErrTaskNotFound
	}

	active, err := s.store.ActiveEntry(ctx, userID)
	if err != nil {
		return nil, err
	}
	if active != nil {
		return nil, ErrTimerAlreadyRunning
	}

	entry := &TimeEntry{
		ID:        uuid.NewString(),
		UserID:    userID,
		TaskID:    taskID,
		StartTime: now.UTC(),
		CreatedAt: time.Now().UTC(),
	}
	if err := s.store.InsertEntry(ctx, entry); err != nil {
		return nil, err
	}

	s.publish(ctx, EventEntryCreated, entry)
	return entry, nil
}

// ActiveTimer returns the user's running entry, or nil when none is open.
func (s *Service) ActiveTimer(ctx context.Context, userID string) (*TimeEntry, error) {
	return s.store.ActiveEntry(ctx, userID)
}

// StopTimer closes an open entry at now. The interval is split at local-day
// boundaries for capacity accounting only; the stored entry remains a
// single row even when it spans midnight.
func (s *Service) StopTimer(ctx context.Context, userID, entryID string, now time.Time, offsetMinutes int) (*TimeEntry, error) {
	entry, err := s.store.EntryByID(ctx, userID, entryID)
	if err != nil {
		return nil, err
	}
	if entry == nil {
		return nil, ErrEntryNotFound
	}
	if !entry.Active() {
		return nil, ErrEntryAlreadyStopped
	}

	now = now.UTC()
	if !now.After(entry.StartTime) {
		return nil, &ValidationError{Field: "end_time", Reason: "must be after start_time"}
	}

	chunks := SplitByLocalDay(entry.StartTime, now, offsetMinutes)
	if err := ValidateDailyCapacity(ctx, s.store, userID, chunks, entryID, offsetMinutes); err != nil {
		return nil, err
	}

	closed, err := s.store.CloseEntry(ctx, userID, entryID, now)
	if err != nil {
		return nil, err
	}
	if closed == nil {
		// Lost a race with a concurrent stop or discard.
		latest, err := s.store.EntryByID(ctx, userID, entryID)
		if err != nil {
			return nil, err
		}
		if latest == nil {
			return nil, ErrEntryNotFound
		}
		return nil, ErrEntryAlreadyStopped
	}

	s.publish(ctx, EventEntryStopped, closed)
	return closed, nil
}

// CreateEntry records a manually entered closed interval. The interval is
// split at local-day boundaries and, unlike StopTimer, materialised as one
// persisted row per local day.
func (s *Service) CreateEntry(ctx context.Context, userID, taskID string, start, end time.Time, offsetMinutes int, now time.Time) ([]TimeEntry, error) {
	start = start.UTC()
	end = end.UTC()
	now = now.UTC()

	if !end.After(start) {
		return nil, &ValidationError{Field: "end_time", Reason: "must be after start_time"}
	}
	if start.After(now) {
		return nil, &ValidationError{Field: "start_time", Reason: "must not be in the future"}
	}
	if end.After(now) {
		return nil, &ValidationError{Field: "end_time", Reason: "must not be in the future"}
	}

	task, err := s.store.TaskByID(ctx, userID, taskID)
	if err != nil {
		return nil, err
	}
	if task == nil {
		return nil, ErrTaskNotFound
	}

	chunks := SplitByLocalDay(start, end, offsetMinutes)
	if err := ValidateDailyCapacity(ctx, s.store, userID, chunks, "", offsetMinutes); err != nil {
		return nil, err
	}

	createdAt := time.Now().UTC()
	entries := make([]TimeEntry, 0, len(chunks))
	for _, chunk := range chunks {
		chunkEnd := chunk.End
		entries = append(entries, TimeEntry{
			ID:        uuid.NewString(),
			UserID:    userID,
			TaskID:    taskID,
			StartTime: chunk.Start,
			EndTime:   &chunkEnd,
			CreatedAt: createdAt,
		})
	}
	if err := s.store.InsertEntries(ctx, entries); err != nil {
		return nil, err
	}

	for i := range entries {
		s.publish(ctx, EventEntryCreated, &entries[i])
	}
	return entries, nil
}

// UpdateEntry rewrites the timestamps of a closed entry. Provided fields
// are merged with the stored values; offsetMinutes, when supplied, re-runs
// capacity validation over the merged interval with the entry itself
// excluded from the existing totals.
func (s *Service) UpdateEntry(ctx context.Context, userID, entryID string, newStart, newEnd *time.Time, offsetMinutes *int) (*TimeEntry, error) {
	if newStart == nil && newEnd == nil {
		return nil, &ValidationError{Field: "body", Reason: "at least one of start_time or end_time is required"}
	}

	entry, err := s.store.EntryByID(ctx, userID, entryID)
	if err != nil {
		return nil, err
	}
	if entry == nil {
		return nil, ErrEntryNotFound
	}
	if entry.Active() {
		return nil, ErrEntryActive
	}

	start := entry.StartTime
	end := *entry.EndTime
	if newStart != nil {
		start = newStart.UTC()
	}
	if newEnd != nil {
		end = newEnd.UTC()
	}
	if !end.After(start) {
		return nil, &ValidationError{Field: "end_time", Reason: "must be after start_time"}
	}

	if offsetMinutes != nil {
		chunks := SplitByLocalDay(start, end, *offsetMinutes)
		if err := ValidateDailyCapacity(ctx, s.store, userID, chunks, entryID, *offsetMinutes); err != nil {
			return nil, err
		}
	}

	updated, err := s.store.UpdateEntryTimes(ctx, userID, entryID, start, end)
	if err != nil {
		return nil, err
	}
	if updated == nil {
		latest, err := s.store.EntryByID(ctx, userID, entryID)
		if err != nil {
			return nil, err
		}
		if latest == nil {
			return nil, ErrEntryNotFound
		}
		return nil, ErrEntryActive
	}

	s.publish(ctx, EventEntryUpdated, updated)
	return updated, nil
}

// DeleteEntry discards an entry outright. It works on open and closed
// entries alike: discarding a running timer abandons it without ever
// recording an end time, which is the recovery path after a capacity
// rejection at stop.
func (s *Service) DeleteEntry(ctx context.Context, userID, entryID string) error {
	entry, err := s.store.EntryByID(ctx, userID, entryID)
	if err != nil {
		return err
	}
	if entry == nil {
		return ErrEntryNotFound
	}

	deleted, err := s.store.DeleteEntry(ctx, userID, entryID)
	if err != nil {
		return err
	}
	if !deleted {
		return ErrEntryNotFound
	}

	s.publish(ctx, EventEntryDeleted, entry)
	return nil
}

// ListEntries returns a page of the task's entries, most recent first.
func (s *Service) ListEntries(ctx context.Context, userID, taskID string, cursor *Cursor, limit int) ([]TimeEntry, *Cursor, error) {
	task, err := s.store.TaskByID(ctx, userID, taskID)
	if err != nil {
		return nil, nil, err
	}
	if task == nil {
		return nil, nil, ErrTaskNotFound
	}
	return s.store.ListEntries(ctx, userID, taskID, cursor, limit)
}

func (s *Service) publish(ctx context.Context, eventType string, entry *TimeEntry) {
	if s.events == nil {
		return
	}
	s.events.Publish(ctx, EntryEvent{
		Type:       eventType,
		UserID:     entry.UserID,
		TaskID:     entry.TaskID,
		EntryID:    entry.ID,
		OccurredAt: time.Now().UTC(),
	})
}
