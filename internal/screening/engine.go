// Package screening owns the interview-link lifecycle and the decision
// engine that turns a completed screening into an advance/hold/reject
// outcome.
package screening

import (
	"errors"
	"fmt"
	"time"

	"github.com/hireops/hireops/internal/mailer"
	"github.com/hireops/hireops/internal/oracle"
	"github.com/hireops/hireops/internal/store"
)

// Default decision thresholds. Per-job values override these when set.
const (
	DefaultResumeMin    = 80.0
	DefaultInterviewMin = 75.0
	DefaultRejectBelow  = 50.0
)

// Link rounds
const (
	RoundScreening = 1
	RoundInterview = 2
)

// Decision actions
const (
	ActionAdvance = "advance"
	ActionHold    = "hold"
	ActionReject  = "reject"
)

// Errors surfaced to the public candidate endpoints
var (
	ErrExpired   = errors.New("interview link expired")
	ErrCompleted = errors.New("interview already completed")
	ErrInactive  = errors.New("interview link no longer active")
)

// Engine drives interview links and screening decisions
type Engine struct {
	store      *store.Store
	oracle     *oracle.Client
	mailer     mailer.Sender
	company    string
	frontend   string
	linkExpiry time.Duration
	now        func() time.Time
}

// NewEngine wires the screening engine
func NewEngine(s *store.Store, o *oracle.Client, m mailer.Sender, company, frontendURL string, linkExpiry time.Duration) *Engine {
	if linkExpiry <= 0 {
		linkExpiry = 72 * time.Hour
	}
	return &Engine{
		store:      s,
		oracle:     o,
		mailer:     m,
		company:    company,
		frontend:   frontendURL,
		linkExpiry: linkExpiry,
		now:        func() time.Time { return time.Now().UTC() },
	}
}

// SetClock overrides the time source. Used by tests.
func (e *Engine) SetClock(now func() time.Time) {
	e.now = now
}

// LinkURL is the candidate-facing URL for a link token
func (e *Engine) LinkURL(token string, round int) string {
	if round == RoundInterview {
		return fmt.Sprintf("%s/interview/room/%s", e.frontend, token)
	}
	return fmt.Sprintf("%s/interview/%s", e.frontend, token)
}

// thresholds resolves the effective decision thresholds for a job
func thresholds(job *store.Job) (resumeMin, interviewMin, rejectBelow float64) {
	resumeMin, interviewMin, rejectBelow = DefaultResumeMin, DefaultInterviewMin, DefaultRejectBelow
	if job == nil {
		return
	}
	if job.ResumeThresholdMin != nil {
		resumeMin = *job.ResumeThresholdMin
	}
	if job.InterviewThresholdMin != nil {
		interviewMin = *job.InterviewThresholdMin
	}
	if job.FinalThresholdReject != nil {
		rejectBelow = *job.FinalThresholdReject
	}
	return
}
