package httpapi

import (
	"net/http"
	"strings"

	"taskhive.org/internal/audit"
	"taskhive.org/internal/task"
)

type templateCreateRequest struct {
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Priority    string   `json:"priority"`
	Tags        []string `json:"tags"`
}

type templatePatchRequest struct {
	Title       *string   `json:"title"`
	Description *string   `json:"description"`
	Priority    *string   `json:"priority"`
	Tags        *[]string `json:"tags"`
}

// handleOrgTemplates serves /v1/orgs/{id}/templates.
func (a *API) handleOrgTemplates(w http.ResponseWriter, r *http.Request, userID, orgID string) {
	switch r.Method {
	case http.MethodGet:
		items, err := a.tasks.ListTemplates(r.Context(), userID, orgID)
		if err != nil {
			handleServiceError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"items": items})
	case http.MethodPost:
		var req templateCreateRequest
		if err := decodeJSON(w, r, &req); err != nil {
			writeError(w, r, http.StatusBadRequest, err.Error())
			return
		}
		tpl, err := a.tasks.CreateTemplate(r.Context(), userID, orgID, task.TemplateInput{
			Title:       req.Title,
			Description: req.Description,
			Priority:    task.Priority(req.Priority),
			Tags:        req.Tags,
		})
		if err != nil {
			handleServiceError(w, r, err)
			return
		}
		_ = audit.LogEvent(r.Context(), "template.create", map[string]any{
			"org_id":      orgID,
			"template_id": tpl.ID,
		})
		w.Header().Set("Location", "/v1/templates/"+tpl.ID)
		writeJSON(w, http.StatusCreated, tpl)
	default:
		methodNotAllowed(w, r, http.MethodGet, http.MethodPost)
	}
}

// handleTemplateResource routes /v1/templates/{id} and
// /v1/templates/{id}/instantiate.
func (a *API) handleTemplateResource(w http.ResponseWriter, r *http.Request) {
	id, ok := actor(r)
	if !ok {
		writeError(w, r, http.StatusUnauthorized, "authentication required")
		return
	}

	path := strings.TrimPrefix(r.URL.Path, "/v1/templates/")
	if path == "" {
		writeError(w, r, http.StatusNotFound, "resource not found")
		return
	}
	parts := strings.Split(path, "/")

	switch {
	case len(parts) == 1:
		templateID := parts[0]
		switch r.Method {
		case http.MethodPatch:
			a.patchTemplate(w, r, id.UserID, templateID)
		case http.MethodDelete:
			if err := a.tasks.DeleteTemplate(r.Context(), id.UserID, templateID); err != nil {
				handleServiceError(w, r, err)
				return
			}
			_ = audit.LogEvent(r.Context(), "template.delete", map[string]any{"template_id": templateID})
			w.WriteHeader(http.StatusNoContent)
		default:
			methodNotAllowed(w, r, http.MethodPatch, http.MethodDelete)
		}
	case len(parts) == 2 && parts[1] == "instantiate":
		if r.Method != http.MethodPost {
			methodNotAllowed(w, r, http.MethodPost)
			return
		}
		created, err := a.tasks.Instantiate(r.Context(), id.UserID, parts[0])
		if err != nil {
			handleServiceError(w, r, err)
			return
		}
		w.Header().Set("Location", "/v1/tasks/"+created.ID)
		writeJSON(w, http.StatusCreated, created)
	default:
		writeError(w, r, http.StatusNotFound, "resource not found")
	}
}

func (a *API) patchTemplate(w http.ResponseWriter, r *http.Request, userID, templateID string) {
	var req templatePatchRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	patch := task.TemplatePatch{
		Title:       req.Title,
		Description: req.Description,
		Tags:        req.Tags,
	}
	if req.Priority != nil {
		p := task.Priority(*req.Priority)
		patch.Priority = &p
	}
	tpl, err := a.tasks.UpdateTemplate(r.Context(), userID, templateID, patch)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, tpl)
}
