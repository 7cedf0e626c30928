package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/hireops/hireops/internal/store"
)

// ListCandidates handles GET /api/v1/candidates?search=
func (h *Handlers) ListCandidates(w http.ResponseWriter, r *http.Request) {
	candidates, err := h.store.ListCandidates(r.Context(), r.URL.Query().Get("search"))
	if err != nil {
		respondDomainError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"candidates": candidates,
		"count":      len(candidates),
	})
}

// CreateCandidate handles POST /api/v1/candidates for manual entry
func (h *Handlers) CreateCandidate(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name  string `json:"name"`
		Email string `json:"email"`
		Phone string `json:"phone"`
		Notes string `json:"notes"`
	}
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Email == "" {
		respondError(w, http.StatusBadRequest, "email is required")
		return
	}

	candidate := &store.Candidate{
		Name:   req.Name,
		Email:  req.Email,
		Phone:  req.Phone,
		Notes:  req.Notes,
		Source: "manual",
	}
	if err := h.store.CreateCandidate(r.Context(), candidate); err != nil {
		respondDomainError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, candidate)
}

// GetCandidate handles GET /api/v1/candidates/{id}, returning the
// candidate with their applications.
func (h *Handlers) GetCandidate(w http.ResponseWriter, r *http.Request) {
	candidate, err := h.store.GetCandidate(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		respondDomainError(w, err)
		return
	}
	apps, err := h.store.ListApplications(r.Context(), store.ApplicationFilter{CandidateID: candidate.ID})
	if err != nil {
		respondDomainError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"candidate":    candidate,
		"applications": apps,
	})
}

// UpdateCandidateNotes handles PUT /api/v1/candidates/{id}/notes
func (h *Handlers) UpdateCandidateNotes(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Notes string `json:"notes"`
	}
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	id := chi.URLParam(r, "id")
	if err := h.store.UpdateCandidateNotes(r.Context(), id, req.Notes); err != nil {
		respondDomainError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"status": "updated"})
}
