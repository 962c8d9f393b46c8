package httpapi

import (
	"net/http"
	"strings"

	"taskhive.org/internal/audit"
	"taskhive.org/internal/directory"
)

type createOrgRequest struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	JoinSecret  string `json:"join_secret"`
}

type joinOrgRequest struct {
	Name       string `json:"name"`
	JoinSecret string `json:"join_secret"`
}

type orgPatchRequest struct {
	Name        *string `json:"name"`
	Description *string `json:"description"`
	JoinSecret  *string `json:"join_secret"`
}

func (a *API) handleOrgsCollection(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, r, http.MethodPost)
		return
	}
	id, ok := actor(r)
	if !ok {
		writeError(w, r, http.StatusUnauthorized, "authentication required")
		return
	}

	var req createOrgRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}

	org, err := a.directory.CreateOrganization(r.Context(), id.UserID, req.Name, req.Description, req.JoinSecret)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	_ = audit.LogEvent(r.Context(), "org.create", map[string]any{"org_id": org.ID})
	w.Header().Set("Location", "/v1/orgs/"+org.ID)
	writeJSON(w, http.StatusCreated, org)
}

func (a *API) handleJoinOrg(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, r, http.MethodPost)
		return
	}
	id, ok := actor(r)
	if !ok {
		writeError(w, r, http.StatusUnauthorized, "authentication required")
		return
	}

	var req joinOrgRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}

	m, err := a.directory.JoinOrganization(r.Context(), id.UserID, req.Name, req.JoinSecret)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	_ = audit.LogEvent(r.Context(), "org.join", map[string]any{"org_id": m.OrganizationID})
	writeJSON(w, http.StatusCreated, m)
}

// handleOrgResource routes /v1/orgs/{id}, /v1/orgs/{id}/members,
// /v1/orgs/{id}/members/{userID} and /v1/orgs/{id}/templates.
func (a *API) handleOrgResource(w http.ResponseWriter, r *http.Request) {
	id, ok := actor(r)
	if !ok {
		writeError(w, r, http.StatusUnauthorized, "authentication required")
		return
	}

	path := strings.TrimPrefix(r.URL.Path, "/v1/orgs/")
	if path == "" {
		writeError(w, r, http.StatusNotFound, "resource not found")
		return
	}
	parts := strings.Split(path, "/")
	orgID := parts[0]

	switch {
	case len(parts) == 1:
		switch r.Method {
		case http.MethodGet:
			a.getOrg(w, r, id.UserID, orgID)
		case http.MethodPatch:
			a.patchOrg(w, r, id.UserID, orgID)
		default:
			methodNotAllowed(w, r, http.MethodGet, http.MethodPatch)
		}
	case len(parts) == 2 && parts[1] == "members":
		if r.Method != http.MethodGet {
			methodNotAllowed(w, r, http.MethodGet)
			return
		}
		a.listMembers(w, r, id.UserID, orgID)
	case len(parts) == 3 && parts[1] == "members":
		if r.Method != http.MethodDelete {
			methodNotAllowed(w, r, http.MethodDelete)
			return
		}
		a.removeMember(w, r, id.UserID, orgID, parts[2])
	case len(parts) == 2 && parts[1] == "templates":
		a.handleOrgTemplates(w, r, id.UserID, orgID)
	default:
		writeError(w, r, http.StatusNotFound, "resource not found")
	}
}

// Reads on an organization are gated on membership here at the boundary; the
// directory service itself leaves reads open for internal callers.
func (a *API) requireMember(w http.ResponseWriter, r *http.Request, userID, orgID string) bool {
	member, err := a.directory.IsMember(r.Context(), orgID, userID)
	if err != nil {
		handleServiceError(w, r, err)
		return false
	}
	if !member {
		writeError(w, r, http.StatusForbidden, "not a member of this organization")
		return false
	}
	return true
}

func (a *API) getOrg(w http.ResponseWriter, r *http.Request, userID, orgID string) {
	if !a.requireMember(w, r, userID, orgID) {
		return
	}
	org, err := a.directory.GetOrganization(r.Context(), orgID)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, org)
}

func (a *API) patchOrg(w http.ResponseWriter, r *http.Request, userID, orgID string) {
	var req orgPatchRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	org, err := a.directory.UpdateOrganization(r.Context(), userID, orgID, directory.OrganizationPatch{
		Name:        req.Name,
		Description: req.Description,
		JoinSecret:  req.JoinSecret,
	})
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	_ = audit.LogEvent(r.Context(), "org.update", map[string]any{"org_id": orgID})
	writeJSON(w, http.StatusOK, org)
}

func (a *API) listMembers(w http.ResponseWriter, r *http.Request, userID, orgID string) {
	if !a.requireMember(w, r, userID, orgID) {
		return
	}
	members, err := a.directory.ListMembers(r.Context(), orgID)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": members})
}

func (a *API) removeMember(w http.ResponseWriter, r *http.Request, userID, orgID, targetID string) {
	if err := a.directory.RemoveMember(r.Context(), userID, orgID, targetID); err != nil {
		handleServiceError(w, r, err)
		return
	}
	_ = audit.LogEvent(r.Context(), "org.member.remove", map[string]any{
		"org_id":  orgID,
		"user_id": targetID,
	})
	w.WriteHeader(http.StatusNoContent)
}
