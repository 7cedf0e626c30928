package api

import (
	"encoding/csv"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/hireops/hireops/internal/store"
)

func applicationFilterFromQuery(r *http.Request) store.ApplicationFilter {
	q := r.URL.Query()
	f := store.ApplicationFilter{
		JobID:       q.Get("job_id"),
		CandidateID: q.Get("candidate_id"),
		Stage:       q.Get("stage"),
		SortBy:      q.Get("sort_by"),
		SortDesc:    q.Get("order") == "desc",
	}
	if v, err := strconv.Atoi(q.Get("limit")); err == nil {
		f.Limit = v
	}
	if v, err := strconv.Atoi(q.Get("offset")); err == nil {
		f.Offset = v
	}
	return f
}

// CreateApplication handles POST /api/v1/applications, the manual
// match path. Duplicate (candidate, job) pairs conflict.
func (h *Handlers) CreateApplication(w http.ResponseWriter, r *http.Request) {
	var req struct {
		CandidateID string `json:"candidate_id"`
		JobID       string `json:"job_id"`
	}
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.CandidateID == "" || req.JobID == "" {
		respondError(w, http.StatusBadRequest, "candidate_id and job_id are required")
		return
	}

	ctx := r.Context()
	if _, err := h.store.GetCandidate(ctx, req.CandidateID); err != nil {
		respondDomainError(w, err)
		return
	}
	if _, err := h.store.GetJob(ctx, req.JobID); err != nil {
		respondDomainError(w, err)
		return
	}

	app := &store.Application{
		CandidateID: req.CandidateID,
		JobID:       req.JobID,
		Stage:       store.StageMatched,
	}
	if err := h.store.CreateApplication(ctx, app); err != nil {
		respondDomainError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, app)
}

// ListApplications handles GET /api/v1/applications
func (h *Handlers) ListApplications(w http.ResponseWriter, r *http.Request) {
	apps, err := h.store.ListApplications(r.Context(), applicationFilterFromQuery(r))
	if err != nil {
		respondDomainError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"applications": apps,
		"count":        len(apps),
	})
}

// GetApplication handles GET /api/v1/applications/{id}. The response
// bundles the candidate, job, links, and event trail the dashboard
// detail view renders.
func (h *Handlers) GetApplication(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	app, err := h.store.GetApplication(ctx, chi.URLParam(r, "id"))
	if err != nil {
		respondDomainError(w, err)
		return
	}

	out := map[string]interface{}{"application": app}
	if candidate, err := h.store.GetCandidate(ctx, app.CandidateID); err == nil {
		out["candidate"] = candidate
	}
	if job, err := h.store.GetJob(ctx, app.JobID); err == nil {
		out["job"] = job
	}
	if links, err := h.store.ListLinksByApplication(ctx, app.ID); err == nil {
		out["interview_links"] = links
	}
	if events, err := h.store.ListEvents(ctx, "application", app.ID, 50); err == nil {
		out["events"] = events
	}
	respondJSON(w, http.StatusOK, out)
}

// UpdateApplicationStage handles PUT /api/v1/applications/{id}/stage
func (h *Handlers) UpdateApplicationStage(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Stage string `json:"stage"`
	}
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Stage == "" {
		respondError(w, http.StatusBadRequest, "stage is required")
		return
	}
	id := chi.URLParam(r, "id")
	if err := h.store.UpdateApplicationStage(r.Context(), id, req.Stage); err != nil {
		respondDomainError(w, err)
		return
	}
	app, err := h.store.GetApplication(r.Context(), id)
	if err != nil {
		respondDomainError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, app)
}

// BulkUpdateStage handles POST /api/v1/applications/bulk-stage. Moves
// every listed application; failures are reported per ID without
// aborting the rest.
func (h *Handlers) BulkUpdateStage(w http.ResponseWriter, r *http.Request) {
	var req struct {
		ApplicationIDs []string `json:"application_ids"`
		Stage          string   `json:"stage"`
	}
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Stage == "" || len(req.ApplicationIDs) == 0 {
		respondError(w, http.StatusBadRequest, "stage and application_ids are required")
		return
	}

	updated := 0
	failed := map[string]string{}
	for _, id := range req.ApplicationIDs {
		if err := h.store.UpdateApplicationStage(r.Context(), id, req.Stage); err != nil {
			failed[id] = err.Error()
			continue
		}
		updated++
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"updated": updated,
		"failed":  failed,
	})
}

// ExportApplications handles GET /api/v1/applications/export as CSV,
// honoring the same query filters as the list endpoint.
func (h *Handlers) ExportApplications(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	apps, err := h.store.ListApplications(ctx, applicationFilterFromQuery(r))
	if err != nil {
		respondDomainError(w, err)
		return
	}

	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition",
		fmt.Sprintf(`attachment; filename="applications-%s.csv"`, time.Now().UTC().Format("2006-01-02")))

	cw := csv.NewWriter(w)
	defer cw.Flush()

	cw.Write([]string{
		"application_id", "candidate_name", "candidate_email", "job_code", "job_title",
		"stage", "resume_score", "interview_score", "final_score", "created_at",
	})
	for _, app := range apps {
		var name, email, code, title string
		if candidate, err := h.store.GetCandidate(ctx, app.CandidateID); err == nil {
			name, email = candidate.Name, candidate.Email
		}
		if job, err := h.store.GetJob(ctx, app.JobID); err == nil {
			code, title = job.Code, job.Title
		}
		cw.Write([]string{
			app.ID, name, email, code, title, app.Stage,
			formatScore(app.ResumeScore), formatScore(app.InterviewScore), formatScore(app.FinalScore),
			app.CreatedAt.Format(time.RFC3339),
		})
	}
}

func formatScore(v *float64) string {
	if v == nil {
		return ""
	}
	return strconv.FormatFloat(*v, 'f', 1, 64)
}
