// Package pipeline turns classified inbox email into candidates,
// applications, and screening invitations.
package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"log"

	"github.com/hireops/hireops/internal/oracle"
	"github.com/hireops/hireops/internal/screening"
	"github.com/hireops/hireops/internal/store"
)

// Result summarizes what one workflow run did with one email
type Result struct {
	EmailID        string  `json:"email_id"`
	Classification string  `json:"classification"`
	Confidence     float64 `json:"confidence"`
	CandidateID    string  `json:"candidate_id,omitempty"`
	JobID          string  `json:"job_id,omitempty"`
	ApplicationID  string  `json:"application_id,omitempty"`
	ResumeScore    float64 `json:"resume_score,omitempty"`
	Action         string  `json:"action"`
}

// Pipeline drives the email-to-application workflow
type Pipeline struct {
	store     *store.Store
	oracle    *oracle.Client
	screening *screening.Engine
}

// New wires the ingestion pipeline
func New(s *store.Store, o *oracle.Client, eng *screening.Engine) *Pipeline {
	return &Pipeline{store: s, oracle: o, screening: eng}
}

// ProcessEmail runs the full workflow for one email:
// classify, materialize the candidate, match a job, score the resume,
// create the application, and issue the screening invitation. Each
// rung of the email's processed ladder is climbed at most once, so
// re-running is safe.
func (p *Pipeline) ProcessEmail(ctx context.Context, emailID string) (*Result, error) {
	email, err := p.store.GetEmail(ctx, emailID)
	if err != nil {
		return nil, err
	}

	result := &Result{EmailID: email.ID}

	// classify
	if email.Classification == "" {
		verdict := p.oracle.ClassifyEmail(ctx, email)
		if err := p.store.SetEmailClassification(ctx, email.ID, verdict.Category, verdict.Confidence); err != nil {
			return nil, err
		}
		email.Classification = verdict.Category
		email.Confidence = verdict.Confidence
		p.store.RecordEvent(ctx, "email", email.ID, "classified", verdict)
		if verdict.DetectedRole != "" {
			result.Action = verdict.DetectedRole
		}
	}
	result.Classification = email.Classification
	result.Confidence = email.Confidence

	if email.Classification != oracle.CategoryCandidateApplication {
		result.Action = "skipped: not a candidate application"
		return result, nil
	}
	if email.Processed >= store.EmailMaterialized {
		result.Action = "skipped: already processed"
		result.CandidateID = email.CandidateID
		return result, nil
	}

	// materialize candidate
	name, address := ParseContact(email.FromName, email.FromAddress)
	if address == "" {
		return nil, fmt.Errorf("%w: email %s has no sender address", store.ErrInvalid, email.ID)
	}
	candidate, err := p.store.GetCandidateByEmail(ctx, address)
	if err != nil {
		return nil, err
	}
	if candidate == nil {
		candidate = &store.Candidate{Name: name, Email: address, Source: "email"}
		if err := p.store.CreateCandidate(ctx, candidate); err != nil {
			return nil, err
		}
		p.store.RecordEvent(ctx, "candidate", candidate.ID, "materialized",
			map[string]string{"email_id": email.ID})
	}
	if err := p.store.LinkEmailCandidate(ctx, email.ID, candidate.ID); err != nil {
		return nil, err
	}
	if err := p.store.AdvanceEmailProcessed(ctx, email.ID, store.EmailMaterialized); err != nil {
		return nil, err
	}
	result.CandidateID = candidate.ID

	// match job
	jobs, err := p.store.ListJobs(ctx, store.JobStatusOpen)
	if err != nil {
		return nil, err
	}
	// the subject line carries the role phrasing the matcher keys on
	detectedRole := email.Subject
	resumeText := email.Subject + "\n" + email.BodyText
	job := MatchJob(jobs, detectedRole, resumeText)
	if job == nil {
		result.Action = "no open jobs"
		return result, nil
	}
	result.JobID = job.ID

	// duplicate pair: nothing more to do
	if existing, err := p.store.GetApplicationByPair(ctx, candidate.ID, job.ID); err != nil {
		return nil, err
	} else if existing != nil {
		result.ApplicationID = existing.ID
		result.Action = "skipped: application already exists"
		return result, nil
	}

	// score resume
	verdict := p.oracle.ScoreResume(ctx, job, resumeText)
	result.ResumeScore = verdict.Score

	app := &store.Application{
		CandidateID:   candidate.ID,
		JobID:         job.ID,
		Stage:         store.StageMatched,
		SourceEmailID: email.ID,
	}
	score := verdict.Score
	app.ResumeScore = &score
	if raw, err := json.Marshal(verdict); err == nil {
		app.ResumeScoreJSON = string(raw)
	}
	if err := p.store.CreateApplication(ctx, app); err != nil {
		return nil, err
	}
	result.ApplicationID = app.ID
	p.store.RecordEvent(ctx, "application", app.ID, "auto_workflow_matched", map[string]interface{}{
		"email_id":     email.ID,
		"job_id":       job.ID,
		"resume_score": verdict.Score,
		"decision":     verdict.Decision,
	})

	// act on the resume decision
	switch verdict.Decision {
	case oracle.DecisionAdvance:
		if _, err := p.screening.SendLink(ctx, app.ID); err != nil {
			log.Printf("[pipeline] send screening link for %s: %v", app.ID, err)
			result.Action = "matched; screening link failed"
			return result, nil
		}
		result.Action = "screening link sent"
	case oracle.DecisionReject:
		unlock := p.store.LockApplication(app.ID)
		app.Stage = store.StageRejected
		app.NextAction = "send rejection"
		if err := p.store.SaveApplication(ctx, app); err != nil {
			unlock()
			return nil, err
		}
		unlock()
		p.store.RecordEvent(ctx, "application", app.ID, "stage_changed",
			map[string]string{"from": store.StageMatched, "to": store.StageRejected})
		result.Action = "rejected on resume score"
	default:
		unlock := p.store.LockApplication(app.ID)
		app.NextAction = "manual review"
		if err := p.store.SaveApplication(ctx, app); err != nil {
			unlock()
			return nil, err
		}
		unlock()
		result.Action = "held for manual review"
	}
	return result, nil
}

// ProcessPending runs the workflow for every email below the
// materialized rung, in arrival order.
func (p *Pipeline) ProcessPending(ctx context.Context) ([]*Result, error) {
	emails, err := p.store.ListEmails(ctx, store.EmailClassified, 0)
	if err != nil {
		return nil, err
	}

	var results []*Result
	for i := len(emails) - 1; i >= 0; i-- {
		res, err := p.ProcessEmail(ctx, emails[i].ID)
		if err != nil {
			log.Printf("[pipeline] process email %s: %v", emails[i].ID, err)
			continue
		}
		results = append(results, res)
	}
	return results, nil
}
