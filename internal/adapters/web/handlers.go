package web

import (
	"encoding/json"
	"errors"
	"net/http"

	"stockledger/internal/app"

	"github.com/go-chi/chi/v5"
)

// Handler holds the ApplicationService and the auth settings shared by the route handlers.
type Handler struct {
	svc       app.ApplicationService
	jwtSecret string
}

// Config carries the HTTP-layer settings.
type Config struct {
	AllowedOrigins string       // comma-separated; empty disables CORS
	JWTSecret      string       // empty disables authentication
	Metrics        http.Handler // served at /metrics when non-nil
}

// NewHandler creates and wires the chi router with all routes.
func NewHandler(svc app.ApplicationService, cfg Config) http.Handler {
	h := &Handler{svc: svc, jwtSecret: cfg.JWTSecret}

	r := chi.NewRouter()
	r.Use(RequestID)
	r.Use(Logger)
	r.Use(Recoverer)
	r.Use(CORS(cfg.AllowedOrigins))

	// ── Public ────────────────────────────────────────────────────────────────
	r.Get("/api/health", h.health)
	if cfg.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", cfg.Metrics)
	}

	// ── Protected API routes (return 401 JSON if unauthenticated) ────────────
	r.Group(func(r chi.Router) {
		r.Use(h.RequireAuth)
		r.Use(RequestBodyLimit(1 << 20)) // 1 MB

		r.Get("/api/items", h.apiListItems)
		r.Get("/api/items/{id}", h.apiGetItem)
		r.Get("/api/items/{id}/units", h.apiListUnits)
		r.Get("/api/purchases/{id}", h.apiGetPurchase)
		r.Get("/api/projects", h.apiListProjects)
		r.Get("/api/projects/{id}", h.apiGetProject)
		r.Get("/api/tracking", h.apiListTracking)

		// Stock-moving writes need the operator role.
		r.Group(func(r chi.Router) {
			r.Use(h.RequireRole(RoleOperator))

			r.Post("/api/items", h.apiCreateItem)
			r.Post("/api/purchases", h.apiReceivePurchase)
			r.Post("/api/purchases/{id}/apply-stock", h.apiApplyPurchaseStock)
			r.Post("/api/projects", h.apiCreateProject)
			r.Post("/api/projects/{id}/status", h.apiSetProjectStatus)
			r.Post("/api/tracking/{id}/replenish", h.apiReplenishTracking)
		})
	})

	return r
}

// health returns service status.
func (h *Handler) health(w http.ResponseWriter, r *http.Request) {
	type response struct {
		Status string `json:"status"`
		Auth   bool   `json:"auth"`
	}
	writeJSON(w, response{Status: "ok", Auth: h.jwtSecret != ""})
}

// idParam extracts the {id} URL parameter.
func idParam(r *http.Request) string {
	return chi.URLParam(r, "id")
}

// decodeJSON decodes the request body into v and returns false + writes an appropriate
// error response on failure. Returns HTTP 413 when the body exceeds the size limit set
// by RequestBodyLimit middleware; HTTP 400 for all other decode errors.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		var maxBytesErr *http.MaxBytesError
		if errors.As(err, &maxBytesErr) {
			writeError(w, r, "request body too large", "REQUEST_TOO_LARGE", http.StatusRequestEntityTooLarge)
			return false
		}
		writeError(w, r, "invalid JSON body: "+err.Error(), "BAD_REQUEST", http.StatusBadRequest)
		return false
	}
	return true
}
