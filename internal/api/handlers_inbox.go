package api

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/hireops/hireops/internal/store"
)

// ListEmails handles GET /api/v1/inbox/emails. The processed filter
// caps the processing rung: 0 new only, 1 adds classified, 2 all.
func (h *Handlers) ListEmails(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	maxProcessed := store.EmailMaterialized
	if v, err := strconv.Atoi(q.Get("max_processed")); err == nil {
		maxProcessed = v
	}
	limit := 100
	if v, err := strconv.Atoi(q.Get("limit")); err == nil && v > 0 {
		limit = v
	}

	emails, err := h.store.ListEmails(r.Context(), maxProcessed, limit)
	if err != nil {
		respondDomainError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"emails": emails,
		"count":  len(emails),
	})
}

// GetEmail handles GET /api/v1/inbox/emails/{id}
func (h *Handlers) GetEmail(w http.ResponseWriter, r *http.Request) {
	email, err := h.store.GetEmail(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		respondDomainError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, email)
}

// ProcessEmail handles POST /api/v1/inbox/emails/{id}/process. Runs
// the full workflow synchronously so the operator sees the outcome.
func (h *Handlers) ProcessEmail(w http.ResponseWriter, r *http.Request) {
	result, err := h.pipeline.ProcessEmail(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		respondDomainError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, result)
}

// ProcessPendingEmails handles POST /api/v1/inbox/process-pending,
// running the workflow over everything not yet materialized.
func (h *Handlers) ProcessPendingEmails(w http.ResponseWriter, r *http.Request) {
	results, err := h.pipeline.ProcessPending(r.Context())
	if err != nil {
		respondDomainError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"results":   results,
		"processed": len(results),
	})
}
