package httpapi

import (
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"taskhive.org/internal/audit"
	"taskhive.org/internal/stats"
	"taskhive.org/internal/task"
)

var errInvalidStatus = errors.New("status must be true or false")

type taskCreateRequest struct {
	Title          string     `json:"title"`
	Description    string     `json:"description"`
	DueDate        *time.Time `json:"due_date"`
	Priority       string     `json:"priority"`
	Tags           []string   `json:"tags"`
	OrganizationID string     `json:"organization_id"`
}

type taskPatchRequest struct {
	Title        *string    `json:"title"`
	Description  *string    `json:"description"`
	DueDate      *time.Time `json:"due_date"`
	ClearDueDate bool       `json:"clear_due_date"`
	Priority     *string    `json:"priority"`
	Tags         *[]string  `json:"tags"`
}

func (a *API) handleTasksCollection(w http.ResponseWriter, r *http.Request) {
	id, ok := actor(r)
	if !ok {
		writeError(w, r, http.StatusUnauthorized, "authentication required")
		return
	}

	switch r.Method {
	case http.MethodPost:
		var req taskCreateRequest
		if err := decodeJSON(w, r, &req); err != nil {
			writeError(w, r, http.StatusBadRequest, err.Error())
			return
		}
		created, err := a.tasks.CreateTask(r.Context(), id.UserID, task.Input{
			Title:          req.Title,
			Description:    req.Description,
			DueDate:        req.DueDate,
			Priority:       task.Priority(req.Priority),
			Tags:           req.Tags,
			OrganizationID: req.OrganizationID,
		})
		if err != nil {
			handleServiceError(w, r, err)
			return
		}
		w.Header().Set("Location", "/v1/tasks/"+created.ID)
		writeJSON(w, http.StatusCreated, created)
	case http.MethodGet:
		scope, filters, err := listParams(r)
		if err != nil {
			writeError(w, r, http.StatusBadRequest, err.Error())
			return
		}
		items, err := a.tasks.ListTasks(r.Context(), id.UserID, scope, filters)
		if err != nil {
			handleServiceError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"items": items})
	default:
		methodNotAllowed(w, r, http.MethodGet, http.MethodPost)
	}
}

func listParams(r *http.Request) (string, task.Filters, error) {
	scope := strings.TrimSpace(r.URL.Query().Get("scope"))
	if scope == "" {
		scope = task.ScopePersonal
	}
	var f task.Filters
	if raw := strings.TrimSpace(r.URL.Query().Get("status")); raw != "" {
		v, err := strconv.ParseBool(raw)
		if err != nil {
			return "", task.Filters{}, errInvalidStatus
		}
		f.Status = &v
	}
	f.Priority = task.Priority(strings.TrimSpace(r.URL.Query().Get("priority")))
	f.Tag = strings.TrimSpace(r.URL.Query().Get("tag"))
	return scope, f, nil
}

// handleTaskResource routes /v1/tasks/{id} and /v1/tasks/{id}/toggle.
func (a *API) handleTaskResource(w http.ResponseWriter, r *http.Request) {
	id, ok := actor(r)
	if !ok {
		writeError(w, r, http.StatusUnauthorized, "authentication required")
		return
	}

	path := strings.TrimPrefix(r.URL.Path, "/v1/tasks/")
	if path == "" {
		writeError(w, r, http.StatusNotFound, "resource not found")
		return
	}
	parts := strings.Split(path, "/")

	switch {
	case len(parts) == 1:
		taskID := parts[0]
		switch r.Method {
		case http.MethodGet:
			t, err := a.tasks.GetTask(r.Context(), id.UserID, taskID)
			if err != nil {
				handleServiceError(w, r, err)
				return
			}
			writeJSON(w, http.StatusOK, t)
		case http.MethodPatch:
			a.patchTask(w, r, id.UserID, taskID)
		case http.MethodDelete:
			if err := a.tasks.DeleteTask(r.Context(), id.UserID, taskID); err != nil {
				handleServiceError(w, r, err)
				return
			}
			_ = audit.LogEvent(r.Context(), "task.delete", map[string]any{"task_id": taskID})
			w.WriteHeader(http.StatusNoContent)
		default:
			methodNotAllowed(w, r, http.MethodGet, http.MethodPatch, http.MethodDelete)
		}
	case len(parts) == 2 && parts[1] == "toggle":
		if r.Method != http.MethodPost {
			methodNotAllowed(w, r, http.MethodPost)
			return
		}
		t, err := a.tasks.ToggleComplete(r.Context(), id.UserID, parts[0])
		if err != nil {
			handleServiceError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, t)
	default:
		writeError(w, r, http.StatusNotFound, "resource not found")
	}
}

func (a *API) patchTask(w http.ResponseWriter, r *http.Request, userID, taskID string) {
	var req taskPatchRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	patch := task.Patch{
		Title:        req.Title,
		Description:  req.Description,
		DueDate:      req.DueDate,
		ClearDueDate: req.ClearDueDate,
		Tags:         req.Tags,
	}
	if req.Priority != nil {
		p := task.Priority(*req.Priority)
		patch.Priority = &p
	}
	t, err := a.tasks.UpdateTask(r.Context(), userID, taskID, patch)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, t)
}

// handleStats derives productivity figures for a scope the caller may list.
func (a *API) handleStats(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, r, http.MethodGet)
		return
	}
	id, ok := actor(r)
	if !ok {
		writeError(w, r, http.StatusUnauthorized, "authentication required")
		return
	}

	scope, filters, err := listParams(r)
	if err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	items, err := a.tasks.ListTasks(r.Context(), id.UserID, scope, filters)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	resp := map[string]any{
		"by_priority":     stats.ByPriority(items),
		"by_status":       stats.ByStatus(items),
		"by_tag":          stats.ByTag(items),
		"completion_rate": stats.CompletionRate(items),
	}
	if raw := strings.TrimSpace(r.URL.Query().Get("window")); raw != "" {
		days, err := strconv.Atoi(raw)
		if err != nil || days < 0 || days > 365 {
			writeError(w, r, http.StatusBadRequest, "window must be between 0 and 365 days")
			return
		}
		resp["series"] = stats.CompletionRateSeries(items, days, time.Now().UTC())
	}
	writeJSON(w, http.StatusOK, resp)
}
