package domain

import (
	"context"
	"time"
)

// DailyCapacitySeconds is the per-user ceiling on logged work in any single
// local calendar day.
const DailyCapacitySeconds int64 = 86400

// CapacityStore is the read surface capacity validation needs.
type CapacityStore interface {
	// ClosedEntriesOverlapping returns the user's closed entries whose
	// interval intersects [from, to). excludeEntryID, when non-empty, is
	// skipped so an entry being edited does not double-count itself.
	ClosedEntriesOverlapping(ctx context.Context, userID string, from, to time.Time, excludeEntryID string) ([]TimeEntry, error)
}

// ValidateDailyCapacity checks that committing the candidate chunks would
// not push any touched local day past the cap. It performs reads only;
// exactly-at-limit totals pass, only strictly greater fail.
func ValidateDailyCapacity(ctx context.Context, store CapacityStore, userID string, chunks []Chunk, excludeEntryID string, offsetMinutes int) error {
	type dayWindow struct {
		start      time.Time
		end        time.Time
		newSeconds int64
	}

	// Chunks are confined to one local day each, so the start instant
	// identifies the day. Keys keep first-touched order for deterministic
	// failure reporting.
	windows := make(map[string]*dayWindow)
	var order []string
	for _, chunk := range chunks {
		key := LocalDateKey(chunk.Start, offsetMinutes)
		window, ok := windows[key]
		if !ok {
			dayStart, dayEnd := LocalDayBoundsUTC(chunk.Start, offsetMinutes)
			window = &dayWindow{start: dayStart, end: dayEnd}
			windows[key] = window
			order = append(order, key)
		}
		window.newSeconds += overlapSeconds(chunk.Start, chunk.End, window.start, window.end)
	}

	for _, key := range order {
		window := windows[key]
		existing, err := store.ClosedEntriesOverlapping(ctx, userID, window.start, window.end, excludeEntryID)
		if err != nil {
			return err
		}

		var existingSeconds int64
		for _, entry := range existing {
			if entry.EndTime == nil {
				continue
			}
			existingSeconds += overlapSeconds(entry.StartTime, *entry.EndTime, window.start, window.end)
		}

		total := existingSeconds + window.newSeconds
		if total > DailyCapacitySeconds {
			return &CapacityExceededError{
				Day:             key,
				ExistingSeconds: existingSeconds,
				NewSeconds:      window.newSeconds,
				TotalSeconds:    total,
				LimitSeconds:    DailyCapacitySeconds,
			}
		}
	}
	return nil
}

// overlapSeconds returns the whole seconds the interval [aStart, aEnd)
// spends inside [bStart, bEnd).
func overlapSeconds(aStart, aEnd, bStart, bEnd time.Time) int64 {
	if aStart.Before(bStart) {
		aStart = bStart
	}
	if aEnd.After(bEnd) {
		aEnd = bEnd
	}
	if !aEnd.After(aStart) {
		return 0
	}
	return int64(aEnd.Sub(aStart) / time.Second)
}
