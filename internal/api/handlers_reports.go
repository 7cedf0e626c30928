package api

import (
	"net/http"
	"strconv"

	"github.com/hireops/hireops/internal/store"
)

// funnel stage order for the report
var funnelStages = []string{
	store.StageNew,
	store.StageClassified,
	store.StageMatched,
	store.StageInterviewLinkSent,
	store.StageScreeningScheduled,
	store.StageScreened,
	store.StageShortlisted,
	store.StageRejected,
}

// FunnelReport handles GET /api/v1/reports/funnel
func (h *Handlers) FunnelReport(w http.ResponseWriter, r *http.Request) {
	counts, err := h.store.CountApplicationsByStage(r.Context())
	if err != nil {
		respondDomainError(w, err)
		return
	}

	type stageCount struct {
		Stage string `json:"stage"`
		Count int    `json:"count"`
	}
	funnel := make([]stageCount, 0, len(funnelStages))
	total := 0
	for _, stage := range funnelStages {
		funnel = append(funnel, stageCount{Stage: stage, Count: counts[stage]})
		total += counts[stage]
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"funnel": funnel,
		"total":  total,
	})
}

// TopCandidates handles GET /api/v1/reports/top-candidates?limit=10,
// ranking by final score with resume and candidate context attached.
func (h *Handlers) TopCandidates(w http.ResponseWriter, r *http.Request) {
	limit := 10
	if v, err := strconv.Atoi(r.URL.Query().Get("limit")); err == nil && v > 0 {
		limit = v
	}

	ctx := r.Context()
	apps, err := h.store.ListApplications(ctx, store.ApplicationFilter{
		SortBy:   "final_score",
		SortDesc: true,
		Limit:    limit,
	})
	if err != nil {
		respondDomainError(w, err)
		return
	}

	type entry struct {
		Application   *store.Application `json:"application"`
		CandidateName string             `json:"candidate_name"`
		JobTitle      string             `json:"job_title"`
	}
	out := make([]entry, 0, len(apps))
	for _, app := range apps {
		if app.FinalScore == nil {
			continue
		}
		e := entry{Application: app}
		if candidate, err := h.store.GetCandidate(ctx, app.CandidateID); err == nil {
			e.CandidateName = candidate.Name
		}
		if job, err := h.store.GetJob(ctx, app.JobID); err == nil {
			e.JobTitle = job.Title
		}
		out = append(out, e)
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"candidates": out,
		"count":      len(out),
	})
}

// PipelineSummary handles GET /api/v1/reports/summary, the headline
// numbers on the dashboard home.
func (h *Handlers) PipelineSummary(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	counts, err := h.store.CountApplicationsByStage(ctx)
	if err != nil {
		respondDomainError(w, err)
		return
	}
	jobs, err := h.store.ListJobs(ctx, store.JobStatusOpen)
	if err != nil {
		respondDomainError(w, err)
		return
	}
	candidates, err := h.store.ListCandidates(ctx, "")
	if err != nil {
		respondDomainError(w, err)
		return
	}

	total := 0
	for _, c := range counts {
		total += c
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"open_jobs":          len(jobs),
		"candidates":         len(candidates),
		"applications":       total,
		"shortlisted":        counts[store.StageShortlisted],
		"rejected":           counts[store.StageRejected],
		"awaiting_screening": counts[store.StageInterviewLinkSent],
		"mailbox":            h.mailbox.Status(),
	})
}

// RecentActivity handles GET /api/v1/reports/activity?limit=50,
// serving the audit trail newest first.
func (h *Handlers) RecentActivity(w http.ResponseWriter, r *http.Request) {
	limit := 50
	if v, err := strconv.Atoi(r.URL.Query().Get("limit")); err == nil && v > 0 {
		limit = v
	}
	events, err := h.store.RecentEvents(r.Context(), limit)
	if err != nil {
		respondDomainError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"events": events,
		"count":  len(events),
	})
}
