// Package postgres provides pgx-backed persistence for tasks and time entries.
package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Kowal031/work-log/internal/domain"
	"github.com/Kowal031/work-log/internal/observability"
)

const uniqueViolation = "23505"

// Repository implements domain.Store on top of a pgx connection pool.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a Repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const taskColumns = "id, user_id, name, description, status, created_at"

// TaskByID fetches a task owned by the user. A nil result means not found.
func (r *Repository) TaskByID(ctx context.Context, userID, taskID string) (*domain.Task, error) {
	const query = `SELECT ` + taskColumns + ` FROM tasks WHERE id=$1 AND user_id=$2`

	row := r.pool.QueryRow(ctx, query, taskID, userID)
	var task domain.Task
	if err := row.Scan(&task.ID, &task.UserID, &task.Name, &task.Description, &task.Status, &task.CreatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &task, nil
}

// InsertTask persists a new task.
func (r *Repository) InsertTask(ctx context.Context, task *domain.Task) error {
	const stmt = `INSERT INTO tasks (id, user_id, name, description, status, created_at)
        VALUES ($1,$2,$3,$4,$5,$6)`

	_, err := r.pool.Exec(ctx, stmt,
		task.ID, task.UserID, task.Name, task.Description, task.Status, task.CreatedAt)
	return err
}

// UpdateTask rewrites the mutable task fields.
func (r *Repository) UpdateTask(ctx context.Context, task *domain.Task) error {
	const stmt = `UPDATE tasks SET name=$3, description=$4, status=$5 WHERE id=$1 AND user_id=$2`

	_, err := r.pool.Exec(ctx, stmt, task.ID, task.UserID, task.Name, task.Description, task.Status)
	return err
}

// ListTasks returns all tasks owned by the user, newest first.
func (r *Repository) ListTasks(ctx context.Context, userID string) ([]domain.Task, error) {
	const query = `SELECT ` + taskColumns + ` FROM tasks WHERE user_id=$1 ORDER BY created_at DESC, id DESC`

	rows, err := r.pool.Query(ctx, query, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var tasks []domain.Task
	for rows.Next() {
		var task domain.Task
		if err := rows.Scan(&task.ID, &task.UserID, &task.Name, &task.Description, &task.Status, &task.CreatedAt); err != nil {
			return nil, err
		}
		tasks = append(tasks, task)
	}
	return tasks, rows.Err()
}

// TaskStatuses resolves statuses for a set of task ids. Missing ids are
// simply absent from the result.
func (r *Repository) TaskStatuses(ctx context.Context, userID string, taskIDs []string) (map[string]domain.TaskStatus, error) {
	out := make(map[string]domain.TaskStatus, len(taskIDs))
	if len(taskIDs) == 0 {
		return out, nil
	}

	const query = `SELECT id, status FROM tasks WHERE user_id=$1 AND id = ANY($2)`

	rows, err := r.pool.Query(ctx, query, userID, taskIDs)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var id string
		var status domain.TaskStatus
		if err := rows.Scan(&id, &status); err != nil {
			return nil, err
		}
		out[id] = status
	}
	return out, rows.Err()
}

const entryColumns = "id, user_id, task_id, start_time, end_time, created_at"

func scanEntry(row pgx.Row) (*domain.TimeEntry, error) {
	var entry domain.TimeEntry
	err := row.Scan(&entry.ID, &entry.UserID, &entry.TaskID, &entry.StartTime, &entry.EndTime, &entry.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &entry, nil
}

// InsertEntry persists an open timer. The one_active_entry_per_user partial
// unique index enforces the single-open-timer invariant at write time; a
// violation surfaces as domain.ErrTimerAlreadyRunning.
func (r *Repository) InsertEntry(ctx context.Context, entry *domain.TimeEntry) error {
	const stmt = `INSERT INTO time_entries (id, user_id, task_id, start_time, end_time, created_at)
        VALUES ($1,$2,$3,$4,$5,$6)`

	_, err := r.pool.Exec(ctx, stmt,
		entry.ID, entry.UserID, entry.TaskID, entry.StartTime, entry.EndTime, entry.CreatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return domain.ErrTimerAlreadyRunning
		}
		return err
	}
	observability.RecordEntryPersisted(entry.CreatedAt)
	return nil
}

// InsertEntries persists a batch of closed rows in a single transaction.
func (r *Repository) InsertEntries(ctx context.Context, entries []domain.TimeEntry) error {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			tx.Rollback(ctx)
		}
	}()

	const stmt = `INSERT INTO time_entries (id, user_id, task_id, start_time, end_time, created_at)
        VALUES ($1,$2,$3,$4,$5,$6)`

	for _, entry := range entries {
		if _, err = tx.Exec(ctx, stmt,
			entry.ID, entry.UserID, entry.TaskID, entry.StartTime, entry.EndTime, entry.CreatedAt); err != nil {
			return err
		}
	}

	if err = tx.Commit(ctx); err != nil {
		return err
	}
	observability.RecordEntryPersisted(time.Now().UTC())
	return nil
}

// EntryByID fetches an entry owned by the user. A nil result means not found.
func (r *Repository) EntryByID(ctx context.Context, userID, entryID string) (*domain.TimeEntry, error) {
	const query = `SELECT ` + entryColumns + ` FROM time_entries WHERE id=$1 AND user_id=$2`

	return scanEntry(r.pool.QueryRow(ctx, query, entryID, userID))
}

// ActiveEntry returns the user's open timer, or nil when none is running.
func (r *Repository) ActiveEntry(ctx context.Context, userID string) (*domain.TimeEntry, error) {
	const query = `SELECT ` + entryColumns + ` FROM time_entries
        WHERE user_id=$1 AND end_time IS NULL LIMIT 1`

	return scanEntry(r.pool.QueryRow(ctx, query, userID))
}

// ListEntries returns a page of the task's entries, most recent first.
func (r *Repository) ListEntries(ctx context.Context, userID, taskID string, cursor *domain.Cursor, limit int) ([]domain.TimeEntry, *domain.Cursor, error) {
	args := []interface{}{userID, taskID, limit}
	query := `SELECT ` + entryColumns + ` FROM time_entries WHERE user_id=$1 AND task_id=$2`

	if cursor != nil {
		query += ` AND (start_time, id) < ($4, $5)`
		args = append(args, cursor.StartedAt, cursor.ID)
	}

	query += ` ORDER BY start_time DESC, id DESC LIMIT $3`

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, nil, err
	}
	defer rows.Close()

	entries := make([]domain.TimeEntry, 0, limit)
	for rows.Next() {
		var entry domain.TimeEntry
		if err := rows.Scan(&entry.ID, &entry.UserID, &entry.TaskID, &entry.StartTime, &entry.EndTime, &entry.CreatedAt); err != nil {
			return nil, nil, err
		}
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, nil, err
	}

	var next *domain.Cursor
	if len(entries) == limit {
		last := entries[len(entries)-1]
		next = &domain.Cursor{StartedAt: last.StartTime, ID: last.ID}
	}
	return entries, next, nil
}

// CloseEntry sets end_time only while the entry is still open. A nil result
// with nil error means the row was gone or already closed.
func (r *Repository) CloseEntry(ctx context.Context, userID, entryID string, endTime time.Time) (*domain.TimeEntry, error) {
	const stmt = `UPDATE time_entries SET end_time=$3
        WHERE id=$1 AND user_id=$2 AND end_time IS NULL
        RETURNING ` + entryColumns

	entry, err := scanEntry(r.pool.QueryRow(ctx, stmt, entryID, userID, endTime))
	if err != nil {
		return nil, err
	}
	if entry != nil {
		observability.RecordEntryPersisted(endTime)
	}
	return entry, nil
}

// UpdateEntryTimes rewrites both timestamps only while the entry is closed.
// A nil result with nil error means the precondition no longer held.
func (r *Repository) UpdateEntryTimes(ctx context.Context, userID, entryID string, start, end time.Time) (*domain.TimeEntry, error) {
	const stmt = `UPDATE time_entries SET start_time=$3, end_time=$4
        WHERE id=$1 AND user_id=$2 AND end_time IS NOT NULL
        RETURNING ` + entryColumns

	return scanEntry(r.pool.QueryRow(ctx, stmt, entryID, userID, start, end))
}

// DeleteEntry discards an entry row, open or closed. It reports whether a
// row matched.
func (r *Repository) DeleteEntry(ctx context.Context, userID, entryID string) (bool, error) {
	const stmt = `DELETE FROM time_entries WHERE id=$1 AND user_id=$2`

	tag, err := r.pool.Exec(ctx, stmt, entryID, userID)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

// ClosedEntriesOverlapping returns the user's closed entries intersecting
// [from, to), optionally skipping one entry id.
func (r *Repository) ClosedEntriesOverlapping(ctx context.Context, userID string, from, to time.Time, excludeEntryID string) ([]domain.TimeEntry, error) {
	const query = `SELECT ` + entryColumns + ` FROM time_entries
        WHERE user_id=$1 AND end_time IS NOT NULL
          AND start_time < $3 AND end_time > $2
          AND ($4::uuid IS NULL OR id <> $4::uuid)
        ORDER BY start_time`

	rows, err := r.pool.Query(ctx, query, userID, from, to, nullIfEmpty(excludeEntryID))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []domain.TimeEntry
	for rows.Next() {
		var entry domain.TimeEntry
		if err := rows.Scan(&entry.ID, &entry.UserID, &entry.TaskID, &entry.StartTime, &entry.EndTime, &entry.CreatedAt); err != nil {
			return nil, err
		}
		entries = append(entries, entry)
	}
	return entries, rows.Err()
}

// ClosedEntriesWithTasks returns closed entries starting inside [from, to)
// joined with their task. Entries whose task was deleted are dropped by the
// inner join.
func (r *Repository) ClosedEntriesWithTasks(ctx context.Context, userID string, from, to time.Time) ([]domain.EntryWithTask, error) {
	const query = `SELECT e.id, e.user_id, e.task_id, e.start_time, e.end_time, e.created_at, t.name, t.status
        FROM time_entries e
        JOIN tasks t ON t.id = e.task_id AND t.user_id = e.user_id
        WHERE e.user_id=$1 AND e.end_time IS NOT NULL
          AND e.start_time >= $2 AND e.start_time < $3
        ORDER BY e.start_time`

	rows, err := r.pool.Query(ctx, query, userID, from, to)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.EntryWithTask
	for rows.Next() {
		var row domain.EntryWithTask
		if err := rows.Scan(&row.ID, &row.UserID, &row.TaskID, &row.StartTime, &row.EndTime, &row.CreatedAt, &row.TaskName, &row.TaskStatus); err != nil {
			return nil, err
		}
		out = append(out, row)
	}
	return out, rows.Err()
}

// ClosedEntryCountsByTask counts closed rows per task intersecting [from, to).
func (r *Repository) ClosedEntryCountsByTask(ctx context.Context, userID string, from, to time.Time) (map[string]int, error) {
	const query = `SELECT task_id, COUNT(*) FROM time_entries
        WHERE user_id=$1 AND end_time IS NOT NULL
          AND start_time < $3 AND end_time > $2
        GROUP BY task_id`

	rows, err := r.pool.Query(ctx, query, userID, from, to)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make(map[string]int)
	for rows.Next() {
		var taskID string
		var count int
		if err := rows.Scan(&taskID, &count); err != nil {
			return nil, err
		}
		out[taskID] = count
	}
	return out, rows.Err()
}

// DailyTaskTotals invokes the get_daily_summary database function, which
// clips each entry to the requested local day and returns per-task interval
// totals rendered as text.
func (r *Repository) DailyTaskTotals(ctx context.Context, userID, localDate string, offsetMinutes int) ([]domain.DailyTaskTotal, error) {
	const query = `SELECT task_id, task_name, total_duration::text
        FROM get_daily_summary($1, $2::date, $3)`

	rows, err := r.pool.Query(ctx, query, userID, localDate, offsetMinutes)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var totals []domain.DailyTaskTotal
	for rows.Next() {
		var total domain.DailyTaskTotal
		if err := rows.Scan(&total.TaskID, &total.TaskName, &total.TotalDuration); err != nil {
			return nil, err
		}
		totals = append(totals, total)
	}
	return totals, rows.Err()
}

func nullIfEmpty(value string) interface{} {
	if value == "" {
		return nil
	}
	return value
}
