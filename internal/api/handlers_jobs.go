package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/hireops/hireops/internal/store"
)

type jobRequest struct {
	Title                 string   `json:"title"`
	Department            string   `json:"department"`
	Location              string   `json:"location"`
	Description           string   `json:"description"`
	MustHaveSkills        []string `json:"must_have_skills"`
	NiceToHaveSkills      []string `json:"nice_to_have_skills"`
	Status                string   `json:"status"`
	ResumeThresholdMin    *float64 `json:"resume_threshold_min"`
	InterviewThresholdMin *float64 `json:"interview_threshold_min"`
	FinalThresholdReject  *float64 `json:"final_threshold_reject"`
}

// ListJobs handles GET /api/v1/jobs?status=open
func (h *Handlers) ListJobs(w http.ResponseWriter, r *http.Request) {
	jobs, err := h.store.ListJobs(r.Context(), r.URL.Query().Get("status"))
	if err != nil {
		respondDomainError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{"jobs": jobs, "count": len(jobs)})
}

// CreateJob handles POST /api/v1/jobs
func (h *Handlers) CreateJob(w http.ResponseWriter, r *http.Request) {
	var req jobRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Title == "" {
		respondError(w, http.StatusBadRequest, "title is required")
		return
	}

	job := &store.Job{
		Title:                 req.Title,
		Department:            req.Department,
		Location:              req.Location,
		Description:           req.Description,
		MustHaveSkills:        req.MustHaveSkills,
		NiceToHaveSkills:      req.NiceToHaveSkills,
		Status:                req.Status,
		ResumeThresholdMin:    req.ResumeThresholdMin,
		InterviewThresholdMin: req.InterviewThresholdMin,
		FinalThresholdReject:  req.FinalThresholdReject,
	}
	if err := h.store.CreateJob(r.Context(), job); err != nil {
		respondDomainError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, job)
}

// GetJob handles GET /api/v1/jobs/{id}
func (h *Handlers) GetJob(w http.ResponseWriter, r *http.Request) {
	job, err := h.store.GetJob(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		respondDomainError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, job)
}

// UpdateJob handles PUT /api/v1/jobs/{id}
func (h *Handlers) UpdateJob(w http.ResponseWriter, r *http.Request) {
	job, err := h.store.GetJob(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		respondDomainError(w, err)
		return
	}

	var req jobRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Title != "" {
		job.Title = req.Title
	}
	if req.Department != "" {
		job.Department = req.Department
	}
	if req.Location != "" {
		job.Location = req.Location
	}
	if req.Description != "" {
		job.Description = req.Description
	}
	if req.MustHaveSkills != nil {
		job.MustHaveSkills = req.MustHaveSkills
	}
	if req.NiceToHaveSkills != nil {
		job.NiceToHaveSkills = req.NiceToHaveSkills
	}
	if req.Status != "" {
		job.Status = req.Status
	}
	if req.ResumeThresholdMin != nil {
		job.ResumeThresholdMin = req.ResumeThresholdMin
	}
	if req.InterviewThresholdMin != nil {
		job.InterviewThresholdMin = req.InterviewThresholdMin
	}
	if req.FinalThresholdReject != nil {
		job.FinalThresholdReject = req.FinalThresholdReject
	}

	if err := h.store.UpdateJob(r.Context(), job); err != nil {
		respondDomainError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, job)
}

// DeleteJob handles DELETE /api/v1/jobs/{id}
func (h *Handlers) DeleteJob(w http.ResponseWriter, r *http.Request) {
	if err := h.store.DeleteJob(r.Context(), chi.URLParam(r, "id")); err != nil {
		respondDomainError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

// GenerateJobDescription handles POST /api/v1/jobs/generate. It drafts
// a posting through the job-generator oracle without persisting it.
func (h *Handlers) GenerateJobDescription(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Title      string `json:"title"`
		Department string `json:"department"`
		Location   string `json:"location"`
	}
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Title == "" {
		respondError(w, http.StatusBadRequest, "title is required")
		return
	}
	draft := h.oracle.GenerateJobDescription(r.Context(), req.Title, req.Department, req.Location)
	respondJSON(w, http.StatusOK, draft)
}
