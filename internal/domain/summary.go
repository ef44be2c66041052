package domain

import (
	"context"
	"sort"
	"time"
)

// TaskSummary is the per-task slice of a summary.
type TaskSummary struct {
	TaskID            string
	TaskName          string
	TaskStatus        TaskStatus
	DurationSeconds   int64
	DurationFormatted string
	EntriesCount      int
}

// Summary aggregates logged work over an inclusive range of local dates.
type Summary struct {
	DateFrom               string
	DateTo                 string
	TotalDurationSeconds   int64
	TotalDurationFormatted string
	Tasks                  []TaskSummary
}

const dateLayout = "2006-01-02"

// DailySummary produces per-task totals over [dateFrom, dateTo], both local
// calendar dates under the supplied minute offset. A single-day range is
// served from the store's precomputed per-day aggregate; longer ranges
// aggregate the closed entries directly. An empty range yields an empty
// task list and zero totals, never an error.
func (s *Service) DailySummary(ctx context.Context, userID, dateFrom, dateTo string, offsetMinutes int) (*Summary, error) {
	from, err := time.Parse(dateLayout, dateFrom)
	if err != nil {
		return nil, &ValidationError{Field: "date_from", Reason: "must be a YYYY-MM-DD date"}
	}
	to, err := time.Parse(dateLayout, dateTo)
	if err != nil {
		return nil, &ValidationError{Field: "date_to", Reason: "must be a YYYY-MM-DD date"}
	}
	if from.After(to) {
		return nil, &ValidationError{Field: "date_from", Reason: "must be before or equal to date_to"}
	}

	var tasks []TaskSummary
	if dateFrom == dateTo {
		tasks, err = s.singleDaySummary(ctx, userID, dateFrom, offsetMinutes)
	} else {
		tasks, err = s.rangeSummary(ctx, userID, from, to, offsetMinutes)
	}
	if err != nil {
		return nil, err
	}

	sort.SliceStable(tasks, func(i, j int) bool {
		return tasks[i].DurationSeconds > tasks[j].DurationSeconds
	})

	var total int64
	for _, task := range tasks {
		total += task.DurationSeconds
	}

	return &Summary{
		DateFrom:               dateFrom,
		DateTo:                 dateTo,
		TotalDurationSeconds:   total,
		TotalDurationFormatted: FormatHMS(total),
		Tasks:                  tasks,
	}, nil
}

// singleDaySummary consumes the store's per-day aggregate, which reports
// each task's clipped duration for the local day as an interval string.
func (s *Service) singleDaySummary(ctx context.Context, userID, localDate string, offsetMinutes int) ([]TaskSummary, error) {
	totals, err := s.store.DailyTaskTotals(ctx, userID, localDate, offsetMinutes)
	if err != nil {
		return nil, err
	}
	if len(totals) == 0 {
		return []TaskSummary{}, nil
	}

	date, _ := time.Parse(dateLayout, localDate)
	dayStart, dayEnd := LocalDayBoundsUTC(date.Add(-time.Duration(offsetMinutes)*time.Minute), offsetMinutes)

	counts, err := s.store.ClosedEntryCountsByTask(ctx, userID, dayStart, dayEnd)
	if err != nil {
		return nil, err
	}

	taskIDs := make([]string, 0, len(totals))
	for _, total := range totals {
		taskIDs = append(taskIDs, total.TaskID)
	}
	statuses, err := s.store.TaskStatuses(ctx, userID, taskIDs)
	if err != nil {
		return nil, err
	}

	tasks := make([]TaskSummary, 0, len(totals))
	for _, total := range totals {
		seconds, err := ParseInterval(total.TotalDuration)
		if err != nil {
			return nil, err
		}

		// Soft-deleted task ids still show up in the aggregate; they
		// surface as active rather than failing the whole summary.
		status, ok := statuses[total.TaskID]
		if !ok {
			status = TaskStatusActive
		}

		count := counts[total.TaskID]
		if count == 0 && seconds > 0 {
			count = 1
		}

		tasks = append(tasks, TaskSummary{
			TaskID:            total.TaskID,
			TaskName:          total.TaskName,
			TaskStatus:        status,
			DurationSeconds:   seconds,
			DurationFormatted: FormatHMS(seconds),
			EntriesCount:      count,
		})
	}
	return tasks, nil
}

// rangeSummary aggregates closed entries whose start falls inside the local
// date range. Entries whose task has been deleted are dropped by the join.
func (s *Service) rangeSummary(ctx context.Context, userID string, from, to time.Time, offsetMinutes int) ([]TaskSummary, error) {
	offset := time.Duration(offsetMinutes) * time.Minute
	rangeStart := from.Add(-offset)
	rangeEnd := to.AddDate(0, 0, 1).Add(-offset)

	rows, err := s.store.ClosedEntriesWithTasks(ctx, userID, rangeStart, rangeEnd)
	if err != nil {
		return nil, err
	}

	byTask := make(map[string]*TaskSummary)
	var order []string
	for _, row := range rows {
		summary, ok := byTask[row.TaskID]
		if !ok {
			summary = &TaskSummary{
				TaskID:     row.TaskID,
				TaskName:   row.TaskName,
				TaskStatus: row.TaskStatus,
			}
			byTask[row.TaskID] = summary
			order = append(order, row.TaskID)
		}
		summary.DurationSeconds += row.DurationSeconds()
		summary.EntriesCount++
	}

	tasks := make([]TaskSummary, 0, len(order))
	for _, taskID := range order {
		summary := byTask[taskID]
		summary.DurationFormatted = FormatHMS(summary.DurationSeconds)
		tasks = append(tasks, *summary)
	}
	return tasks, nil
}
