package web

import (
	"net/http"
	"strconv"

	"stockledger/internal/app"
)

// ── Tracking ──────────────────────────────────────────────────────────────────

// apiListTracking handles GET /api/tracking.
// Query params: project_id, item_id, status, open (bool), warning_days (int).
func (h *Handler) apiListTracking(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	query := app.TrackingQuery{
		ProjectID: q.Get("project_id"),
		ItemID:    q.Get("item_id"),
		Status:    q.Get("status"),
	}
	if raw := q.Get("open"); raw != "" {
		open, err := strconv.ParseBool(raw)
		if err != nil {
			writeError(w, r, "open must be true or false", "BAD_REQUEST", http.StatusBadRequest)
			return
		}
		query.OpenOnly = open
	}
	if raw := q.Get("warning_days"); raw != "" {
		days, err := strconv.Atoi(raw)
		if err != nil || days < 0 {
			writeError(w, r, "warning_days must be a non-negative integer", "BAD_REQUEST", http.StatusBadRequest)
			return
		}
		query.WarningDays = days
	}

	result, err := h.svc.ListTracking(r.Context(), query)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, result)
}

// apiReplenishTracking handles POST /api/tracking/{id}/replenish.
// An empty body computes the next replace-by date from the item's policy.
func (h *Handler) apiReplenishTracking(w http.ResponseWriter, r *http.Request) {
	var req app.ReplenishRequest
	if r.ContentLength != 0 {
		if !decodeJSON(w, r, &req) {
			return
		}
	}
	req.RecordID = idParam(r)

	result, err := h.svc.ReplenishTracking(r.Context(), req)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, result)
}
