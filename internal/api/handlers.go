// Package api exposes the HTTP surface: the operator dashboard API,
// the public candidate interview endpoints, and the voice webhook.
package api

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"github.com/hireops/hireops/internal/config"
	"github.com/hireops/hireops/internal/mailbox"
	"github.com/hireops/hireops/internal/oracle"
	"github.com/hireops/hireops/internal/pipeline"
	"github.com/hireops/hireops/internal/screening"
	"github.com/hireops/hireops/internal/store"
	"github.com/hireops/hireops/internal/usage"
)

// Handlers holds the wired services behind the HTTP surface
type Handlers struct {
	cfg       *config.Config
	store     *store.Store
	oracle    *oracle.Client
	screening *screening.Engine
	pipeline  *pipeline.Pipeline
	worker    *pipeline.Worker
	mailbox   *mailbox.Manager
	usage     *usage.Log
}

// NewHandlers creates the handler set
func NewHandlers(
	cfg *config.Config,
	s *store.Store,
	o *oracle.Client,
	eng *screening.Engine,
	p *pipeline.Pipeline,
	w *pipeline.Worker,
	mb *mailbox.Manager,
	u *usage.Log,
) *Handlers {
	return &Handlers{
		cfg:       cfg,
		store:     s,
		oracle:    o,
		screening: eng,
		pipeline:  p,
		worker:    w,
		mailbox:   mb,
		usage:     u,
	}
}

// HealthCheck handles GET /health
func (h *Handlers) HealthCheck(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
}

func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		log.Printf("[api] encode response: %v", err)
	}
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}

// respondDomainError maps service errors to HTTP statuses
func respondDomainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, store.ErrNotFound):
		respondError(w, http.StatusNotFound, "not found")
	case errors.Is(err, store.ErrConflict):
		respondError(w, http.StatusConflict, err.Error())
	case errors.Is(err, store.ErrInvalid):
		respondError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, screening.ErrExpired):
		respondError(w, http.StatusGone, err.Error())
	case errors.Is(err, screening.ErrCompleted):
		respondError(w, http.StatusConflict, err.Error())
	case errors.Is(err, screening.ErrInactive):
		respondError(w, http.StatusGone, err.Error())
	default:
		log.Printf("[api] internal error: %v", err)
		respondError(w, http.StatusInternalServerError, "internal error")
	}
}

func decodeJSON(r *http.Request, out interface{}) error {
	defer r.Body.Close()
	return json.NewDecoder(r.Body).Decode(out)
}
