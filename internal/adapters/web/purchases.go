package web

import (
	"net/http"

	"stockledger/internal/app"
)

// ── Purchases ─────────────────────────────────────────────────────────────────

// apiReceivePurchase handles POST /api/purchases.
// The response carries the stored purchase and every unit minted for it.
func (h *Handler) apiReceivePurchase(w http.ResponseWriter, r *http.Request) {
	var req app.ReceivePurchaseRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	receipt, err := h.svc.ReceivePurchase(r.Context(), req)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeCreated(w, receipt)
}

// apiGetPurchase handles GET /api/purchases/{id}.
func (h *Handler) apiGetPurchase(w http.ResponseWriter, r *http.Request) {
	p, err := h.svc.GetPurchase(r.Context(), idParam(r))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, p)
}

// apiApplyPurchaseStock handles POST /api/purchases/{id}/apply-stock.
// Repeating the call on a purchase whose stock is already applied returns it unchanged.
func (h *Handler) apiApplyPurchaseStock(w http.ResponseWriter, r *http.Request) {
	p, err := h.svc.ApplyPurchaseStock(r.Context(), idParam(r))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, p)
}
