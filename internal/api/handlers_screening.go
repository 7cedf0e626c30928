package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/hireops/hireops/internal/screening"
)

// GenerateInterviewLink handles POST /api/v1/screening/{id}/link.
// Minting a new link expires any active one for the same round.
func (h *Handlers) GenerateInterviewLink(w http.ResponseWriter, r *http.Request) {
	link, err := h.screening.GenerateLink(r.Context(), chi.URLParam(r, "id"), screening.RoundScreening)
	if err != nil {
		respondDomainError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, map[string]interface{}{
		"link": link,
		"url":  h.screening.LinkURL(link.Token, link.Round),
	})
}

// SendInterviewLink handles POST /api/v1/screening/{id}/send-link,
// emailing the invitation and advancing the stage.
func (h *Handlers) SendInterviewLink(w http.ResponseWriter, r *http.Request) {
	link, err := h.screening.SendLink(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		respondDomainError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"link": link,
		"url":  h.screening.LinkURL(link.Token, link.Round),
	})
}

// ListInterviewLinks handles GET /api/v1/screening/{id}/links
func (h *Handlers) ListInterviewLinks(w http.ResponseWriter, r *http.Request) {
	links, err := h.store.ListLinksByApplication(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		respondDomainError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{"links": links, "count": len(links)})
}

// ScreeningStatus handles GET /api/v1/screening/{id}/status, the
// dashboard view of where an application's screening stands.
func (h *Handlers) ScreeningStatus(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	app, err := h.store.GetApplication(ctx, chi.URLParam(r, "id"))
	if err != nil {
		respondDomainError(w, err)
		return
	}

	out := map[string]interface{}{
		"application_id":   app.ID,
		"stage":            app.Stage,
		"screening_status": app.ScreeningStatus,
		"link_status":      app.InterviewLinkStatus,
		"resume_score":     app.ResumeScore,
		"interview_score":  app.InterviewScore,
		"final_score":      app.FinalScore,
		"has_transcript":   app.ScreeningTranscript != "",
	}
	if link, err := h.store.GetActiveLink(ctx, app.ID, screening.RoundScreening); err == nil && link != nil {
		out["active_link"] = link
		out["url"] = h.screening.LinkURL(link.Token, link.Round)
	}
	respondJSON(w, http.StatusOK, out)
}

// InstallTranscript handles POST /api/v1/screening/{id}/transcript,
// the manual path for transcripts pasted by an operator. The first
// installed transcript wins; the decision runs immediately.
func (h *Handlers) InstallTranscript(w http.ResponseWriter, r *http.Request) {
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
	app, err := h.screening.InstallTranscript(r.Context(), chi.URLParam(r, "id"), req.Transcript)
	if err != nil {
		respondDomainError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, app)
}

// RunDecision handles POST /api/v1/screening/{id}/decide, re-running
// the decision engine for an application with a transcript on file.
func (h *Handlers) RunDecision(w http.ResponseWriter, r *http.Request) {
	app, err := h.screening.Decide(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		respondDomainError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, app)
}

// CalculateFinalScore handles POST /api/v1/screening/{id}/final-score
func (h *Handlers) CalculateFinalScore(w http.ResponseWriter, r *http.Request) {
	app, err := h.screening.CalculateFinalScore(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		respondDomainError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, app)
}

// BookInterviewSlot handles POST /api/v1/screening/{id}/book-slot.
// Parses the requested slot, mints the round-2 room link, and emails
// the confirmation with a calendar attachment.
func (h *Handlers) BookInterviewSlot(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Slot string `json:"slot"`
	}
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	app, err := h.screening.BookSlot(r.Context(), chi.URLParam(r, "id"), req.Slot)
	if err != nil {
		respondDomainError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, app)
}

// SendRejection handles POST /api/v1/screening/{id}/send-rejection
func (h *Handlers) SendRejection(w http.ResponseWriter, r *http.Request) {
	if err := h.screening.SendRejection(r.Context(), chi.URLParam(r, "id")); err != nil {
		respondDomainError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"status": "sent"})
}

// SendSummaryDraft handles POST /api/v1/screening/{id}/send-summary
func (h *Handlers) SendSummaryDraft(w http.ResponseWriter, r *http.Request) {
	if err := h.screening.SendSummaryDraft(r.Context(), chi.URLParam(r, "id")); err != nil {
		respondDomainError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"status": "sent"})
}

// SendCustomEmail handles POST /api/v1/screening/{id}/send-email
func (h *Handlers) SendCustomEmail(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Subject string `json:"subject"`
		Body    string `json:"body"`
	}
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Subject == "" || req.Body == "" {
		respondError(w, http.StatusBadRequest, "subject and body are required")
		return
	}
	if err := h.screening.SendCustomEmail(r.Context(), chi.URLParam(r, "id"), req.Subject, req.Body); err != nil {
		respondDomainError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"status": "sent"})
}
