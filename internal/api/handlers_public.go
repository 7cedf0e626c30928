package api

import (
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/hireops/hireops/internal/screening"
)

// Candidate-facing endpoints. These are token-addressed and carry no
// operator auth; the token is the capability.

// OpenInterview handles GET /public/interview/{token}. First open is
// recorded; expired links flip to expired here.
func (h *Handlers) OpenInterview(w http.ResponseWriter, r *http.Request) {
	lc, err := h.screening.Open(r.Context(), chi.URLParam(r, "token"))
	if err != nil {
		respondDomainError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, lc)
}

// InterviewStatus handles GET /public/interview/{token}/status
func (h *Handlers) InterviewStatus(w http.ResponseWriter, r *http.Request) {
	status, err := h.screening.Status(r.Context(), chi.URLParam(r, "token"))
	if err != nil {
		respondDomainError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, status)
}

// StartInterview handles POST /public/interview/{token}/start, marking
// the voice conversation underway.
func (h *Handlers) StartInterview(w http.ResponseWriter, r *http.Request) {
	var req struct {
		ConversationID string `json:"conversation_id"`
	}
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	link, err := h.screening.Start(r.Context(), chi.URLParam(r, "token"), req.ConversationID)
	if err != nil {
		respondDomainError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, link)
}

// CompleteInterview handles POST /public/interview/{token}/complete.
// The transcript triggers evaluation and the screening decision.
func (h *Handlers) CompleteInterview(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Transcript string `json:"transcript"`
	}
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Transcript == "" {
		respondError(w, http.StatusBadRequest, "transcript is required")
		return
	}
	app, err := h.screening.Complete(r.Context(), chi.URLParam(r, "token"), req.Transcript)
	if err != nil {
		respondDomainError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"stage":       app.Stage,
		"final_score": app.FinalScore,
	})
}

// RecordTelemetry handles POST /public/interview/{token}/telemetry
func (h *Handlers) RecordTelemetry(w http.ResponseWriter, r *http.Request) {
	var snap screening.Snapshot
	if err := decodeJSON(r, &snap); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	telemetry, err := h.screening.RecordTelemetry(r.Context(), chi.URLParam(r, "token"), snap)
	if err != nil {
		respondDomainError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"avg_attention_score":     telemetry.AvgAttentionScore,
		"face_present_percentage": telemetry.FacePresentPercentage,
		"samples":                 len(telemetry.Snapshots),
	})
}

// VoiceWebhook handles POST /webhooks/voice, the provider's
// conversation-completed delivery. The signature covers the raw body,
// so the body is read before decoding.
func (h *Handlers) VoiceWebhook(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		respondError(w, http.StatusBadRequest, "unreadable body")
		return
	}
	r.Body.Close()

	signature := r.Header.Get("X-Webhook-Signature")
	if !screening.VerifySignature(h.cfg.Webhook.Secret, body, signature) {
		respondError(w, http.StatusUnauthorized, "invalid signature")
		return
	}

	payload, err := screening.ParseWebhookPayload(body)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid payload")
		return
	}

	app, err := h.screening.HandleWebhook(r.Context(), payload)
	if err != nil {
		respondDomainError(w, err)
		return
	}
	if app == nil {
		// unknown conversation, acknowledged so the provider stops replaying
		respondJSON(w, http.StatusOK, map[string]string{"status": "ignored"})
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"status": "processed",
		"stage":  app.Stage,
	})
}
