package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrTaskNotFound is returned when a task is missing or owned by another user.
	ErrTaskNotFound = errors.New("task not found")
	// ErrEntryNotFound is returned when a time entry cannot be located for the caller.
	ErrEntryNotFound = errors.New("time entry not found")
	// ErrEntryAlreadyStopped is returned when stop is called on a closed entry.
	ErrEntryAlreadyStopped = errors.New("time entry already stopped")
	// ErrEntryActive is returned when update is called on an open timer.
	ErrEntryActive = errors.New("time entry is still active")
	// ErrTimerAlreadyRunning is returned when start would create a second open timer.
	ErrTimerAlreadyRunning = errors.New("an active timer already exists")
)

// ValidationError reports malformed caller input.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// CapacityExceededError is returned when a prospective write would push a
// local day's logged total above the 24h cap. All figures are in seconds.
type CapacityExceededError struct {
	Day             string
	ExistingSeconds int64
	NewSeconds      int64
	TotalSeconds    int64
	LimitSeconds    int64
}

func (e *CapacityExceededError) Error() string {
	return fmt.Sprintf("daily capacity exceeded for %s: existing %s + new %s = %s (limit %s)",
		e.Day, e.ExistingFormatted(), e.NewFormatted(), e.TotalFormatted(), e.LimitFormatted())
}

// ExistingFormatted renders the already-logged seconds as HH:MM:SS.
func (e *CapacityExceededError) ExistingFormatted() string {
	return FormatHMS(e.ExistingSeconds)
}

// NewFormatted renders the candidate seconds as HH:MM:SS.
func (e *CapacityExceededError) NewFormatted() string {
	return FormatHMS(e.NewSeconds)
}

// TotalFormatted renders the combined seconds as HH:MM:SS. Hours may
// exceed 24, e.g. "51:45:12".
func (e *CapacityExceededError) TotalFormatted() string {
	return FormatHMS(e.TotalSeconds)
}

// LimitFormatted renders the cap as HH:MM:SS.
func (e *CapacityExceededError) LimitFormatted() string {
	return FormatHMS(e.LimitSeconds)
}
