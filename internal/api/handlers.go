// Package api exposes HTTP handlers for the work-log service.
package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/Kowal031/work-log/internal/auth"
	"github.com/Kowal031/work-log/internal/domain"
	"github.com/Kowal031/work-log/internal/observability"
	"github.com/Kowal031/work-log/internal/persistence"
)

// Handler coordinates HTTP requests with the domain service.
type Handler struct {
	service  *domain.Service
	pageSize int
}

// NewHandler builds a Handler. pageSize is the default entry listing size.
func NewHandler(service *domain.Service, pageSize int) *Handler {
	if pageSize <= 0 {
		pageSize = 50
	}
	return &Handler{service: service, pageSize: pageSize}
}

// RegisterRoutes wires endpoints to the mux.
func (h *Handler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/v1/tasks", h.tasks)
	mux.HandleFunc("/v1/tasks/", h.taskSubtree)
	mux.HandleFunc("/v1/entries/active", h.activeEntry)
	mux.HandleFunc("/v1/entries/", h.entrySubtree)
	mux.HandleFunc("/v1/summary/daily", h.dailySummary)
	mux.HandleFunc("/healthz", healthz)
}

// healthz reports a simple OK status for container health checks.
func healthz(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func (h *Handler) tasks(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		h.createTask(w, r)
	case http.MethodGet:
		h.listTasks(w, r)
	default:
		writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", "unsupported method")
	}
}

// taskSubtree dispatches /v1/tasks/{id}, /v1/tasks/{id}/entries and
// /v1/tasks/{id}/entries/start.
func (h *Handler) taskSubtree(w http.ResponseWriter, r *http.Request) {
	rest := strings.TrimPrefix(r.URL.Path, "/v1/tasks/")
	parts := strings.Split(strings.Trim(rest, "/"), "/")
	if len(parts) == 0 || parts[0] == "" {
		writeError(w, http.StatusBadRequest, "invalid_request", "missing task id")
		return
	}
	taskID := parts[0]

	switch {
	case len(parts) == 1:
		if r.Method != http.MethodPatch {
			writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", "unsupported method")
			return
		}
		h.updateTask(w, r, taskID)
	case len(parts) == 2 && parts[1] == "entries":
		switch r.Method {
		case http.MethodPost:
			h.createEntry(w, r, taskID)
		case http.MethodGet:
			h.listEntries(w, r, taskID)
		default:
			writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", "unsupported method")
		}
	case len(parts) == 3 && parts[1] == "entries" && parts[2] == "start":
		if r.Method != http.MethodPost {
			writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", "unsupported method")
			return
		}
		h.startTimer(w, r, taskID)
	default:
		writeError(w, http.StatusNotFound, "not_found", "unknown resource")
	}
}

// entrySubtree dispatches /v1/entries/{id} and /v1/entries/{id}/stop.
func (h *Handler) entrySubtree(w http.ResponseWriter, r *http.Request) {
	rest := strings.TrimPrefix(r.URL.Path, "/v1/entries/")
	parts := strings.Split(strings.Trim(rest, "/"), "/")
	if len(parts) == 0 || parts[0] == "" {
		writeError(w, http.StatusBadRequest, "invalid_request", "missing entry id")
		return
	}
	entryID := parts[0]

	switch {
	case len(parts) == 1:
		switch r.Method {
		case http.MethodPatch:
			h.updateEntry(w, r, entryID)
		case http.MethodDelete:
			h.deleteEntry(w, r, entryID)
		default:
			writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", "unsupported method")
		}
	case len(parts) == 2 && parts[1] == "stop":
		if r.Method != http.MethodPost {
			writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", "unsupported method")
			return
		}
		h.stopTimer(w, r, entryID)
	default:
		writeError(w, http.StatusNotFound, "not_found", "unknown resource")
	}
}

func (h *Handler) createTask(w http.ResponseWriter, r *http.Request) {
	claims, ok := requireScope(w, r, auth.ScopeWorklogWrite)
	if !ok {
		return
	}

	var req CreateTaskRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "unable to parse body")
		return
	}
	if err := req.Validate(); err != nil {
		writeError(w, http.StatusBadRequest, "validation_failed", err.Error())
		return
	}

	task, err := h.service.CreateTask(r.Context(), claims.Subject, strings.TrimSpace(req.Name), strings.TrimSpace(req.Description))
	if err != nil {
		h.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toTaskView(*task))
}

func (h *Handler) listTasks(w http.ResponseWriter, r *http.Request) {
	claims, ok := requireScope(w, r, auth.ScopeWorklogRead, auth.ScopeWorklogWrite)
	if !ok {
		return
	}

	tasks, err := h.service.ListTasks(r.Context(), claims.Subject)
	if err != nil {
		h.writeDomainError(w, err)
		return
	}

	items := make([]TaskView, 0, len(tasks))
	for _, task := range tasks {
		items = append(items, toTaskView(task))
	}
	writeJSON(w, http.StatusOK, ListTasksResponse{Items: items})
}

func (h *Handler) updateTask(w http.ResponseWriter, r *http.Request, taskID string) {
	claims, ok := requireScope(w, r, auth.ScopeWorklogWrite)
	if !ok {
		return
	}

	var req UpdateTaskRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "unable to parse body")
		return
	}
	if err := req.Validate(); err != nil {
		writeError(w, http.StatusBadRequest, "validation_failed", err.Error())
		return
	}

	var status *domain.TaskStatus
	if req.Status != nil {
		parsed := domain.TaskStatus(*req.Status)
		status = &parsed
	}

	task, err := h.service.UpdateTask(r.Context(), claims.Subject, taskID, req.Name, req.Description, status)
	if err != nil {
		h.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toTaskView(*task))
}

func (h *Handler) startTimer(w http.ResponseWriter, r *http.Request, taskID string) {
	claims, ok := requireScope(w, r, auth.ScopeWorklogWrite)
	if !ok {
		return
	}

	entry, err := h.service.StartTimer(r.Context(), claims.Subject, taskID, time.Now().UTC())
	if err != nil {
		h.writeDomainError(w, err)
		return
	}

	observability.RecordTimerStarted()
	writeJSON(w, http.StatusCreated, toEntryView(*entry))
}

func (h *Handler) activeEntry(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", "unsupported method")
		return
	}
	claims, ok := requireScope(w, r, auth.ScopeWorklogRead, auth.ScopeWorklogWrite)
	if !ok {
		return
	}

	entry, err := h.service.ActiveTimer(r.Context(), claims.Subject)
	if err != nil {
		h.writeDomainError(w, err)
		return
	}
	if entry == nil {
		writeError(w, http.StatusNotFound, "not_found", "no active timer")
		return
	}
	writeJSON(w, http.StatusOK, toEntryView(*entry))
}

func (h *Handler) stopTimer(w http.ResponseWriter, r *http.Request, entryID string) {
	claims, ok := requireScope(w, r, auth.ScopeWorklogWrite)
	if !ok {
		return
	}

	var req StopTimerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "unable to parse body")
		return
	}
	if err := validateOffset(req.TimezoneOffsetMinutes); err != nil {
		writeError(w, http.StatusBadRequest, "validation_failed", err.Error())
		return
	}

	entry, err := h.service.StopTimer(r.Context(), claims.Subject, entryID, time.Now().UTC(), req.TimezoneOffsetMinutes)
	if err != nil {
		h.writeDomainError(w, err)
		return
	}

	observability.RecordTimerStopped()
	writeJSON(w, http.StatusOK, toEntryView(*entry))
}

func (h *Handler) createEntry(w http.ResponseWriter, r *http.Request, taskID string) {
	claims, ok := requireScope(w, r, auth.ScopeWorklogWrite)
	if !ok {
		return
	}

	var req CreateEntryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "unable to parse body")
		return
	}
	if err := req.Validate(); err != nil {
		writeError(w, http.StatusBadRequest, "validation_failed", err.Error())
		return
	}

	entries, err := h.service.CreateEntry(r.Context(), claims.Subject, taskID,
		req.StartTime, req.EndTime, req.TimezoneOffsetMinutes, time.Now().UTC())
	if err != nil {
		h.writeDomainError(w, err)
		return
	}

	observability.RecordManualEntries(len(entries))

	items := make([]EntryView, 0, len(entries))
	for _, entry := range entries {
		items = append(items, toEntryView(entry))
	}
	writeJSON(w, http.StatusCreated, CreateEntryResponse{Entries: items})
}

func (h *Handler) updateEntry(w http.ResponseWriter, r *http.Request, entryID string) {
	claims, ok := requireScope(w, r, auth.ScopeWorklogWrite)
	if !ok {
		return
	}

	var req UpdateEntryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "unable to parse body")
		return
	}
	if err := req.Validate(); err != nil {
		writeError(w, http.StatusBadRequest, "validation_failed", err.Error())
		return
	}

	entry, err := h.service.UpdateEntry(r.Context(), claims.Subject, entryID,
		req.StartTime, req.EndTime, req.TimezoneOffsetMinutes)
	if err != nil {
		h.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toEntryView(*entry))
}

// deleteEntry discards an entry outright, including an abandoned running
// timer.
func (h *Handler) deleteEntry(w http.ResponseWriter, r *http.Request, entryID string) {
	claims, ok := requireScope(w, r, auth.ScopeWorklogWrite)
	if !ok {
		return
	}

	if err := h.service.DeleteEntry(r.Context(), claims.Subject, entryID); err != nil {
		h.writeDomainError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) listEntries(w http.ResponseWriter, r *http.Request, taskID string) {
	claims, ok := requireScope(w, r, auth.ScopeWorklogRead, auth.ScopeWorklogWrite)
	if !ok {
		return
	}

	limit := h.pageSize
	if raw := r.URL.Query().Get("limit"); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil && parsed > 0 {
			if parsed > 200 {
				parsed = 200
			}
			limit = parsed
		}
	}

	cursor, err := persistence.DecodeCursor(r.URL.Query().Get("cursor"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "validation_failed", "invalid cursor")
		return
	}

	entries, next, err := h.service.ListEntries(r.Context(), claims.Subject, taskID, cursor, limit)
	if err != nil {
		h.writeDomainError(w, err)
		return
	}

	items := make([]EntryView, 0, len(entries))
	for _, entry := range entries {
		items = append(items, toEntryView(entry))
	}
	writeJSON(w, http.StatusOK, ListEntriesResponse{
		Items:      items,
		NextCursor: persistence.EncodeCursor(next),
	})
}

func (h *Handler) dailySummary(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", "unsupported method")
		return
	}
	claims, ok := requireScope(w, r, auth.ScopeWorklogRead, auth.ScopeWorklogWrite)
	if !ok {
		return
	}

	offset := 0
	if raw := r.URL.Query().Get("timezone_offset_minutes"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, "validation_failed", "timezone_offset_minutes must be an integer")
			return
		}
		offset = parsed
	}
	if err := validateOffset(offset); err != nil {
		writeError(w, http.StatusBadRequest, "validation_failed", err.Error())
		return
	}

	// Omitted dates fall back to the caller's current local day.
	dateFrom := r.URL.Query().Get("date_from")
	dateTo := r.URL.Query().Get("date_to")
	switch {
	case dateFrom == "" && dateTo == "":
		today := domain.LocalDateKey(time.Now().UTC(), offset)
		dateFrom, dateTo = today, today
	case dateFrom == "":
		dateFrom = dateTo
	case dateTo == "":
		dateTo = dateFrom
	}

	summary, err := h.service.DailySummary(r.Context(), claims.Subject, dateFrom, dateTo, offset)
	if err != nil {
		h.writeDomainError(w, err)
		return
	}

	tasks := make([]TaskSummaryView, 0, len(summary.Tasks))
	for _, task := range summary.Tasks {
		tasks = append(tasks, TaskSummaryView{
			TaskID:            task.TaskID,
			TaskName:          task.TaskName,
			TaskStatus:        string(task.TaskStatus),
			DurationSeconds:   task.DurationSeconds,
			DurationFormatted: task.DurationFormatted,
			EntriesCount:      task.EntriesCount,
		})
	}
	writeJSON(w, http.StatusOK, SummaryResponse{
		DateFrom:               summary.DateFrom,
		DateTo:                 summary.DateTo,
		TotalDurationSeconds:   summary.TotalDurationSeconds,
		TotalDurationFormatted: summary.TotalDurationFormatted,
		Tasks:                  tasks,
	})
}

// writeDomainError maps domain errors onto HTTP statuses.
func (h *Handler) writeDomainError(w http.ResponseWriter, err error) {
	var validation *domain.ValidationError
	if errors.As(err, &validation) {
		writeError(w, http.StatusBadRequest, "validation_failed", validation.Error())
		return
	}

	var capacity *domain.CapacityExceededError
	if errors.As(err, &capacity) {
		observability.RecordCapacityRejection()
		writeJSON(w, http.StatusUnprocessableEntity, CapacityExceededResponse{
			Type:             "capacity_exceeded",
			Detail:           capacity.Error(),
			Day:              capacity.Day,
			ExistingDuration: capacity.ExistingFormatted(),
			NewDuration:      capacity.NewFormatted(),
			TotalDuration:    capacity.TotalFormatted(),
			LimitDuration:    capacity.LimitFormatted(),
		})
		return
	}

	switch {
	case errors.Is(err, domain.ErrTaskNotFound):
		writeError(w, http.StatusNotFound, "not_found", "task not found")
	case errors.Is(err, domain.ErrEntryNotFound):
		writeError(w, http.StatusNotFound, "not_found", "time entry not found")
	case errors.Is(err, domain.ErrTimerAlreadyRunning):
		writeError(w, http.StatusConflict, "conflict", "an active timer already exists")
	case errors.Is(err, domain.ErrEntryAlreadyStopped):
		writeError(w, http.StatusConflict, "conflict", "time entry already stopped")
	case errors.Is(err, domain.ErrEntryActive):
		writeError(w, http.StatusConflict, "conflict", "time entry is still active")
	default:
		writeError(w, http.StatusInternalServerError, "server_error", err.Error())
	}
}

func requireScope(w http.ResponseWriter, r *http.Request, scopes ...string) (*auth.Claims, bool) {
	claims, ok := auth.FromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized", "missing bearer token")
		return nil, false
	}
	for _, scope := range scopes {
		if claims.HasScope(scope) {
			return claims, true
		}
	}
	writeError(w, http.StatusForbidden, "forbidden", "scope "+scopes[0]+" required")
	return nil, false
}

func validateOffset(offsetMinutes int) error {
	if offsetMinutes < domain.MinTimezoneOffsetMinutes || offsetMinutes > domain.MaxTimezoneOffsetMinutes {
		return errors.New("timezone_offset_minutes must be between -720 and 840")
	}
	return nil
}

// CreateTaskRequest is the payload for POST /v1/tasks.
type CreateTaskRequest struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

// Validate ensures request correctness.
func (r CreateTaskRequest) Validate() error {
	if strings.TrimSpace(r.Name) == "" {
		return errors.New("name is required")
	}
	return nil
}

// UpdateTaskRequest is the payload for PATCH /v1/tasks/{id}. Absent fields
// keep their stored values.
type UpdateTaskRequest struct {
	Name        *string `json:"name"`
	Description *string `json:"description"`
	Status      *string `json:"status"`
}

// Validate ensures request correctness.
func (r UpdateTaskRequest) Validate() error {
	if r.Name == nil && r.Description == nil && r.Status == nil {
		return errors.New("at least one field is required")
	}
	if r.Name != nil && strings.TrimSpace(*r.Name) == "" {
		return errors.New("name must not be empty")
	}
	if r.Status != nil {
		switch domain.TaskStatus(*r.Status) {
		case domain.TaskStatusActive, domain.TaskStatusCompleted:
		default:
			return errors.New("status must be active or completed")
		}
	}
	return nil
}

// StopTimerRequest is the payload for POST /v1/entries/{id}/stop.
type StopTimerRequest struct {
	TimezoneOffsetMinutes int `json:"timezone_offset_minutes"`
}

// CreateEntryRequest is the payload for POST /v1/tasks/{id}/entries.
type CreateEntryRequest struct {
	StartTime             time.Time `json:"start_time"`
	EndTime               time.Time `json:"end_time"`
	TimezoneOffsetMinutes int       `json:"timezone_offset_minutes"`
}

// Validate ensures request correctness.
func (r CreateEntryRequest) Validate() error {
	if r.StartTime.IsZero() {
		return errors.New("start_time is required")
	}
	if r.EndTime.IsZero() {
		return errors.New("end_time is required")
	}
	return validateOffset(r.TimezoneOffsetMinutes)
}

// UpdateEntryRequest is the payload for PATCH /v1/entries/{id}. Absent
// timestamps keep their stored values; an absent offset skips capacity
// re-validation.
type UpdateEntryRequest struct {
	StartTime             *time.Time `json:"start_time"`
	EndTime               *time.Time `json:"end_time"`
	TimezoneOffsetMinutes *int       `json:"timezone_offset_minutes"`
}

// Validate ensures request correctness.
func (r UpdateEntryRequest) Validate() error {
	if r.StartTime == nil && r.EndTime == nil {
		return errors.New("at least one of start_time or end_time is required")
	}
	if r.TimezoneOffsetMinutes != nil {
		return validateOffset(*r.TimezoneOffsetMinutes)
	}
	return nil
}

// TaskView exposes a task.
type TaskView struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	Status      string    `json:"status"`
	CreatedAt   time.Time `json:"created_at"`
}

// ListTasksResponse packages task list results.
type ListTasksResponse struct {
	Items []TaskView `json:"items"`
}

// EntryView exposes a time entry. DurationSeconds is present only for
// closed entries.
type EntryView struct {
	ID              string     `json:"id"`
	TaskID          string     `json:"task_id"`
	StartTime       time.Time  `json:"start_time"`
	EndTime         *time.Time `json:"end_time,omitempty"`
	DurationSeconds *int64     `json:"duration_seconds,omitempty"`
	CreatedAt       time.Time  `json:"created_at"`
}

// CreateEntryResponse returns the stored rows; intervals crossing local
// midnight materialise as several rows.
type CreateEntryResponse struct {
	Entries []EntryView `json:"entries"`
}

// ListEntriesResponse packages list results.
type ListEntriesResponse struct {
	Items      []EntryView `json:"items"`
	NextCursor string      `json:"next_cursor,omitempty"`
}

// TaskSummaryView is the per-task slice of a summary response.
type TaskSummaryView struct {
	TaskID            string `json:"task_id"`
	TaskName          string `json:"task_name"`
	TaskStatus        string `json:"task_status"`
	DurationSeconds   int64  `json:"duration_seconds"`
	DurationFormatted string `json:"duration_formatted"`
	EntriesCount      int    `json:"entries_count"`
}

// SummaryResponse describes GET /v1/summary/daily results.
type SummaryResponse struct {
	DateFrom               string            `json:"date_from"`
	DateTo                 string            `json:"date_to"`
	TotalDurationSeconds   int64             `json:"total_duration_seconds"`
	TotalDurationFormatted string            `json:"total_duration_formatted"`
	Tasks                  []TaskSummaryView `json:"tasks"`
}

// CapacityExceededResponse is the 422 payload for writes that would push a
// local day past 24 logged hours.
type CapacityExceededResponse struct {
	Type             string `json:"type"`
	Detail           string `json:"detail"`
	Day              string `json:"day"`
	ExistingDuration string `json:"existing_duration_formatted"`
	NewDuration      string `json:"new_duration_formatted"`
	TotalDuration    string `json:"total_duration_formatted"`
	LimitDuration    string `json:"limit"`
}

func writeError(w http.ResponseWriter, status int, code, detail string) {
	payload := map[string]string{
		"type":   code,
		"detail": detail,
	}
	writeJSON(w, status, payload)
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

func toTaskView(task domain.Task) TaskView {
	return TaskView{
		ID:          task.ID,
		Name:        task.Name,
		Description: task.Description,
		Status:      string(task.Status),
		CreatedAt:   task.CreatedAt,
	}
}

func toEntryView(entry domain.TimeEntry) EntryView {
	view := EntryView{
		ID:        entry.ID,
		TaskID:    entry.TaskID,
		StartTime: entry.StartTime,
		EndTime:   entry.EndTime,
		CreatedAt: entry.CreatedAt,
	}
	if !entry.Active() {
		seconds := entry.DurationSeconds()
		view.DurationSeconds = &seconds
	}
	return view
}
