package web

import (
	"net/http"

	"stockledger/internal/app"
)

// ── Projects ──────────────────────────────────────────────────────────────────

// apiListProjects handles GET /api/projects.
func (h *Handler) apiListProjects(w http.ResponseWriter, r *http.Request) {
	result, err := h.svc.ListProjects(r.Context())
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, result)
}

// apiGetProject handles GET /api/projects/{id}.
func (h *Handler) apiGetProject(w http.ResponseWriter, r *http.Request) {
	p, err := h.svc.GetProject(r.Context(), idParam(r))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, p)
}

// apiCreateProject handles POST /api/projects.
func (h *Handler) apiCreateProject(w http.ResponseWriter, r *http.Request) {
	var req app.CreateProjectRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	p, err := h.svc.CreateProject(r.Context(), req)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeCreated(w, p)
}

// apiSetProjectStatus handles POST /api/projects/{id}/status.
func (h *Handler) apiSetProjectStatus(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Status string `json:"status"`
	}
	if !decodeJSON(w, r, &body) {
		return
	}
	if body.Status == "" {
		writeError(w, r, "status is required", "BAD_REQUEST", http.StatusBadRequest)
		return
	}
	result, err := h.svc.SetProjectStatus(r.Context(), idParam(r), body.Status)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, result)
}
