package domain

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestDailySummarySingleDay(t *testing.T) {
	store := newMockStore()
	task1 := store.addTask("user-1", "Task 1")
	task2 := store.addTask("user-1", "Task 2")
	task2.Status = TaskStatusCompleted

	day := time.Date(2026, time.January, 29, 0, 0, 0, 0, time.UTC)
	store.addClosedEntry("user-1", task1.ID, day.Add(9*time.Hour), day.Add(11*time.Hour))
	store.addClosedEntry("user-1", task1.ID, day.Add(12*time.Hour), day.Add(12*time.Hour+30*time.Minute))
	store.addClosedEntry("user-1", task2.ID, day.Add(13*time.Hour), day.Add(14*time.Hour+15*time.Minute))

	store.totals = []DailyTaskTotal{
		{TaskID: task1.ID, TaskName: "Task 1", TotalDuration: "02:30:00"},
		{TaskID: task2.ID, TaskName: "Task 2", TotalDuration: "01:15:00"},
	}

	service := NewService(store, nil)
	summary, err := service.DailySummary(context.Background(), "user-1", "2026-01-29", "2026-01-29", 0)

	require.NoError(t, err)
	require.Equal(t, "2026-01-29", summary.DateFrom)
	require.Equal(t, int64(13500), summary.TotalDurationSeconds)
	require.Equal(t, "03:45:00", summary.TotalDurationFormatted)
	require.Len(t, summary.Tasks, 2)
	require.Equal(t, task1.ID, summary.Tasks[0].TaskID)
	require.Equal(t, int64(9000), summary.Tasks[0].DurationSeconds)
	require.Equal(t, 2, summary.Tasks[0].EntriesCount)
	require.Equal(t, TaskStatusActive, summary.Tasks[0].TaskStatus)
	require.Equal(t, TaskStatusCompleted, summary.Tasks[1].TaskStatus)
	require.Equal(t, 1, summary.Tasks[1].EntriesCount)
}

func TestDailySummarySingleDayParsesDayInterval(t *testing.T) {
	store := newMockStore()
	task := store.addTask("user-1", "Long Task")
	store.totals = []DailyTaskTotal{
		{TaskID: task.ID, TaskName: "Long Task", TotalDuration: "2 days 03:45:12"},
	}

	service := NewService(store, nil)
	summary, err := service.DailySummary(context.Background(), "user-1", "2026-01-29", "2026-01-29", 0)

	require.NoError(t, err)
	require.Equal(t, int64(186312), summary.Tasks[0].DurationSeconds)
	require.Equal(t, "51:45:12", summary.Tasks[0].DurationFormatted)
}

func TestDailySummarySingleDayOrphanedTaskDefaultsActive(t *testing.T) {
	store := newMockStore()
	store.totals = []DailyTaskTotal{
		{TaskID: "deleted-task", TaskName: "Orphaned", TotalDuration: "00:30:00"},
	}

	service := NewService(store, nil)
	summary, err := service.DailySummary(context.Background(), "user-1", "2026-01-29", "2026-01-29", 0)

	require.NoError(t, err)
	require.Len(t, summary.Tasks, 1)
	require.Equal(t, TaskStatusActive, summary.Tasks[0].TaskStatus)
	require.Equal(t, 1, summary.Tasks[0].EntriesCount)
}

func TestDailySummaryMultiDayGroupsAndCounts(t *testing.T) {
	store := newMockStore()
	task := store.addTask("user-1", "Task 1")
	day := time.Date(2026, time.January, 27, 0, 0, 0, 0, time.UTC)
	store.addClosedEntry("user-1", task.ID, day.Add(9*time.Hour), day.Add(10*time.Hour))
	store.addClosedEntry("user-1", task.ID, day.Add(11*time.Hour), day.Add(12*time.Hour+30*time.Minute))
	store.addClosedEntry("user-1", task.ID, day.AddDate(0, 0, 1).Add(9*time.Hour), day.AddDate(0, 0, 1).Add(10*time.Hour))

	service := NewService(store, nil)
	summary, err := service.DailySummary(context.Background(), "user-1", "2026-01-27", "2026-01-29", 0)

	require.NoError(t, err)
	require.Len(t, summary.Tasks, 1)
	require.Equal(t, int64(12600), summary.Tasks[0].DurationSeconds)
	require.Equal(t, "03:30:00", summary.Tasks[0].DurationFormatted)
	require.Equal(t, 3, summary.Tasks[0].EntriesCount)
	require.Equal(t, int64(12600), summary.TotalDurationSeconds)
}

func TestDailySummaryMultiDayDropsDeletedTasks(t *testing.T) {
	store := newMockStore()
	task := store.addTask("user-1", "Kept")
	day := time.Date(2026, time.January, 27, 0, 0, 0, 0, time.UTC)
	store.addClosedEntry("user-1", task.ID, day.Add(9*time.Hour), day.Add(10*time.Hour))
	store.addClosedEntry("user-1", "missing-task", day.Add(11*time.Hour), day.Add(12*time.Hour))

	service := NewService(store, nil)
	summary, err := service.DailySummary(context.Background(), "user-1", "2026-01-27", "2026-01-28", 0)

	require.NoError(t, err)
	require.Len(t, summary.Tasks, 1)
	require.Equal(t, task.ID, summary.Tasks[0].TaskID)
}

func TestDailySummarySortsByDurationDescending(t *testing.T) {
	store := newMockStore()
	short := store.addTask("user-1", "short")
	long := store.addTask("user-1", "long")
	medium := store.addTask("user-1", "medium")

	day := time.Date(2026, time.January, 27, 0, 0, 0, 0, time.UTC)
	store.addClosedEntry("user-1", short.ID, day.Add(8*time.Hour), day.Add(8*time.Hour+15*time.Minute))
	store.addClosedEntry("user-1", long.ID, day.Add(9*time.Hour), day.Add(12*time.Hour))
	store.addClosedEntry("user-1", medium.ID, day.Add(13*time.Hour), day.Add(14*time.Hour+30*time.Minute))

	service := NewService(store, nil)
	summary, err := service.DailySummary(context.Background(), "user-1", "2026-01-27", "2026-01-28", 0)

	require.NoError(t, err)
	durations := []int64{
		summary.Tasks[0].DurationSeconds,
		summary.Tasks[1].DurationSeconds,
		summary.Tasks[2].DurationSeconds,
	}
	require.Equal(t, []int64{10800, 5400, 900}, durations)
}

func TestDailySummaryNoData(t *testing.T) {
	service := NewService(newMockStore(), nil)

	single, err := service.DailySummary(context.Background(), "user-1", "2026-01-29", "2026-01-29", 0)
	require.NoError(t, err)
	require.Empty(t, single.Tasks)
	require.Equal(t, int64(0), single.TotalDurationSeconds)
	require.Equal(t, "00:00:00", single.TotalDurationFormatted)

	multi, err := service.DailySummary(context.Background(), "user-1", "2026-01-27", "2026-01-29", 0)
	require.NoError(t, err)
	require.Empty(t, multi.Tasks)
	require.Equal(t, int64(0), multi.TotalDurationSeconds)
}

func TestDailySummaryValidatesDates(t *testing.T) {
	service := NewService(newMockStore(), nil)

	var vErr *ValidationError
	_, err := service.DailySummary(context.Background(), "user-1", "29-01-2026", "2026-01-29", 0)
	require.ErrorAs(t, err, &vErr)

	_, err = service.DailySummary(context.Background(), "user-1", "2026-01-30", "2026-01-29", 0)
	require.ErrorAs(t, err, &vErr)
}

func TestDailySummaryMultiDayHonoursOffset(t *testing.T) {
	store := newMockStore()
	task := store.addTask("user-1", "late night")
	// 23:30 UTC on the 26th is already 00:30 on the 27th in UTC+1.
	start := time.Date(2026, time.January, 26, 23, 30, 0, 0, time.UTC)
	store.addClosedEntry("user-1", task.ID, start, start.Add(time.Hour))

	service := NewService(store, nil)

	summary, err := service.DailySummary(context.Background(), "user-1", "2026-01-27", "2026-01-28", 60)
	require.NoError(t, err)
	require.Len(t, summary.Tasks, 1)

	summary, err = service.DailySummary(context.Background(), "user-1", "2026-01-27", "2026-01-28", 0)
	require.NoError(t, err)
	require.Empty(t, summary.Tasks)
}
