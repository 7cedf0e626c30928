package screening

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"math"
	"time"

	"github.com/hireops/hireops/internal/mailer"
	"github.com/hireops/hireops/internal/store"
)

// Decide evaluates a completed screening and applies the outcome.
// Safe to call from the dashboard for a re-run.
func (e *Engine) Decide(ctx context.Context, applicationID string) (*store.Application, error) {
	unlock := e.store.LockApplication(applicationID)
	defer unlock()

	app, err := e.store.GetApplication(ctx, applicationID)
	if err != nil {
		return nil, err
	}
	if err := e.decideLocked(ctx, app); err != nil {
		return nil, err
	}
	return app, nil
}

// decideLocked runs the decision engine. The caller holds the
// per-application lock and passes the current row.
func (e *Engine) decideLocked(ctx context.Context, app *store.Application) error {
	job, err := e.store.GetJob(ctx, app.JobID)
	if err != nil {
		return err
	}
	candidate, err := e.store.GetCandidate(ctx, app.CandidateID)
	if err != nil {
		return err
	}

	resumeScore := 0.0
	if app.ResumeScore != nil {
		resumeScore = *app.ResumeScore
	}

	verdict := e.oracle.EvaluateTranscript(ctx, job, app.ScreeningTranscript, resumeScore)
	interviewScore := verdict.Score
	app.InterviewScore = &interviewScore
	if raw, err := json.Marshal(verdict); err == nil {
		app.InterviewScoreJSON = string(raw)
	}
	e.store.RecordEvent(ctx, "application", app.ID, "interview_auto_evaluated",
		map[string]interface{}{"score": verdict.Score, "source": verdict.Source})

	final := Round1(0.4*resumeScore + 0.6*interviewScore)
	app.FinalScore = &final

	resumeMin, interviewMin, rejectBelow := thresholds(job)
	action := ActionHold
	switch {
	case final < rejectBelow:
		action = ActionReject
	case resumeScore >= resumeMin && interviewScore >= interviewMin:
		action = ActionAdvance
	}

	prevStage := app.Stage
	switch action {
	case ActionAdvance:
		app.Stage = store.StageShortlisted
		app.NextAction = "book interview slot"
	case ActionReject:
		app.Stage = store.StageRejected
		app.NextAction = "send rejection"
	default:
		app.Stage = store.StageScreened
		app.NextAction = "manual review"
	}

	app.FinalSummary = e.oracle.Summarize(ctx, job, candidate, resumeScore, interviewScore, final, action)

	if err := e.store.SaveApplication(ctx, app); err != nil {
		return err
	}

	e.store.RecordEvent(ctx, "application", app.ID, "evaluated", map[string]interface{}{
		"resume_score":    resumeScore,
		"interview_score": interviewScore,
		"final_score":     final,
		"action":          action,
	})
	if prevStage != app.Stage {
		e.store.RecordEvent(ctx, "application", app.ID, "stage_changed",
			map[string]interface{}{"from": prevStage, "to": app.Stage})
	}

	// outbound mail stays outside the state write; a failed send never
	// rolls back the decision
	if action == ActionReject {
		if err := e.sendRejectionMail(ctx, app, candidate, job); err != nil {
			log.Printf("[screening] rejection email for %s: %v", app.ID, err)
		}
	}
	return nil
}

// CalculateFinalScore recomputes the blended score without re-running
// the evaluator. Requires both component scores.
func (e *Engine) CalculateFinalScore(ctx context.Context, applicationID string) (*store.Application, error) {
	unlock := e.store.LockApplication(applicationID)
	defer unlock()

	app, err := e.store.GetApplication(ctx, applicationID)
	if err != nil {
		return nil, err
	}
	if app.ResumeScore == nil || app.InterviewScore == nil {
		return nil, fmt.Errorf("%w: both resume and interview scores are required", store.ErrInvalid)
	}

	final := Round1(0.4**app.ResumeScore + 0.6**app.InterviewScore)
	app.FinalScore = &final
	if err := e.store.SaveApplication(ctx, app); err != nil {
		return nil, err
	}
	e.store.RecordEvent(ctx, "application", app.ID, "final_score_calculated",
		map[string]interface{}{"final_score": final})
	return app, nil
}

// InstallTranscript stores a manually pasted transcript and evaluates
func (e *Engine) InstallTranscript(ctx context.Context, applicationID, transcript string) (*store.Application, error) {
	if transcript == "" {
		return nil, fmt.Errorf("%w: transcript is empty", store.ErrInvalid)
	}
	return e.installTranscript(ctx, applicationID, transcript, "manual")
}

// BookSlot records the chosen interview slot, emails the confirmation
// with a calendar invite, and issues the round-2 interview-room link.
func (e *Engine) BookSlot(ctx context.Context, applicationID, slot string) (*store.Application, error) {
	app, err := e.store.GetApplication(ctx, applicationID)
	if err != nil {
		return nil, err
	}
	candidate, err := e.store.GetCandidate(ctx, app.CandidateID)
	if err != nil {
		return nil, err
	}
	job, err := e.store.GetJob(ctx, app.JobID)
	if err != nil {
		return nil, err
	}

	when := mailer.ParseSlot(slot, e.now())
	label := mailer.SlotLabel(when)

	roomLink, err := e.GenerateLink(ctx, app.ID, RoundInterview)
	if err != nil {
		return nil, err
	}

	ics := mailer.GenerateICS(
		fmt.Sprintf("Interview: %s at %s", job.Title, e.company),
		fmt.Sprintf("Interview with %s for the %s role.", candidate.Name, job.Title),
		e.LinkURL(roomLink.Token, RoundInterview),
		candidate.Email,
		when, 45*time.Minute)

	msg := mailer.SchedulingConfirmation(e.company, candidate.Name, job.Title,
		label, e.LinkURL(roomLink.Token, RoundInterview), ics)
	msg.To = candidate.Email
	if err := e.mailer.Send(ctx, msg); err != nil {
		return nil, fmt.Errorf("send scheduling email: %w", err)
	}

	unlock := e.store.LockApplication(app.ID)
	defer unlock()
	app, err = e.store.GetApplication(ctx, app.ID)
	if err != nil {
		return nil, err
	}
	app.ScheduledInterviewAt = &when
	app.ScheduledSlot = label
	app.Stage = store.StageScreeningScheduled
	app.NextAction = "await scheduled interview"
	if err := e.store.SaveApplication(ctx, app); err != nil {
		return nil, err
	}

	e.store.RecordEvent(ctx, "application", app.ID, "interview_slot_booked",
		map[string]interface{}{"slot": label, "room_link_id": roomLink.ID})
	return app, nil
}

// SendRejection sends the decline email on demand
func (e *Engine) SendRejection(ctx context.Context, applicationID string) error {
	app, err := e.store.GetApplication(ctx, applicationID)
	if err != nil {
		return err
	}
	candidate, err := e.store.GetCandidate(ctx, app.CandidateID)
	if err != nil {
		return err
	}
	job, err := e.store.GetJob(ctx, app.JobID)
	if err != nil {
		return err
	}
	if err := e.sendRejectionMail(ctx, app, candidate, job); err != nil {
		return err
	}

	unlock := e.store.LockApplication(app.ID)
	defer unlock()
	app, err = e.store.GetApplication(ctx, app.ID)
	if err != nil {
		return err
	}
	if app.Stage != store.StageRejected {
		prev := app.Stage
		app.Stage = store.StageRejected
		if err := e.store.SaveApplication(ctx, app); err != nil {
			return err
		}
		e.store.RecordEvent(ctx, "application", app.ID, "stage_changed",
			map[string]interface{}{"from": prev, "to": store.StageRejected})
	}
	return nil
}

// SendSummaryDraft emails the final summary to the candidate contact
// address on file and marks the draft sent only on confirmed delivery.
func (e *Engine) SendSummaryDraft(ctx context.Context, applicationID string) error {
	app, err := e.store.GetApplication(ctx, applicationID)
	if err != nil {
		return err
	}
	if app.FinalSummary == "" {
		return fmt.Errorf("%w: no final summary to send", store.ErrInvalid)
	}
	candidate, err := e.store.GetCandidate(ctx, app.CandidateID)
	if err != nil {
		return err
	}
	job, err := e.store.GetJob(ctx, app.JobID)
	if err != nil {
		return err
	}

	msg := mailer.Custom(e.company, candidate.Name,
		fmt.Sprintf("Your %s application update", job.Title), app.FinalSummary)
	msg.To = candidate.Email
	if err := e.mailer.Send(ctx, msg); err != nil {
		return fmt.Errorf("send summary draft: %w", err)
	}

	unlock := e.store.LockApplication(app.ID)
	defer unlock()
	app, err = e.store.GetApplication(ctx, app.ID)
	if err != nil {
		return err
	}
	app.EmailDraftSent = true
	if err := e.store.SaveApplication(ctx, app); err != nil {
		return err
	}
	e.store.RecordEvent(ctx, "application", app.ID, "summary_draft_sent", nil)
	return nil
}

// SendCustomEmail sends a free-form message written on the dashboard
func (e *Engine) SendCustomEmail(ctx context.Context, applicationID, subject, body string) error {
	if subject == "" || body == "" {
		return fmt.Errorf("%w: subject and body are required", store.ErrInvalid)
	}
	app, err := e.store.GetApplication(ctx, applicationID)
	if err != nil {
		return err
	}
	candidate, err := e.store.GetCandidate(ctx, app.CandidateID)
	if err != nil {
		return err
	}

	msg := mailer.Custom(e.company, candidate.Name, subject, body)
	msg.To = candidate.Email
	if err := e.mailer.Send(ctx, msg); err != nil {
		return fmt.Errorf("send custom email: %w", err)
	}
	e.store.RecordEvent(ctx, "application", app.ID, "custom_email_sent",
		map[string]interface{}{"subject": subject})
	return nil
}

func (e *Engine) sendRejectionMail(ctx context.Context, app *store.Application, candidate *store.Candidate, job *store.Job) error {
	msg := mailer.Rejection(e.company, candidate.Name, job.Title)
	msg.To = candidate.Email
	if err := e.mailer.Send(ctx, msg); err != nil {
		return err
	}
	e.store.RecordEvent(ctx, "application", app.ID, "rejection_sent", nil)
	return nil
}

// Round1 rounds to one decimal place
func Round1(v float64) float64 {
	return math.Round(v*10) / 10
}
