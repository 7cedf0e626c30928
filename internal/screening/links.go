package screening

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strings"

	"github.com/google/uuid"

	"github.com/hireops/hireops/internal/mailer"
	"github.com/hireops/hireops/internal/store"
)

// GenerateLink mints a fresh link for an application and round,
// expiring any prior active link so exactly one stays live.
func (e *Engine) GenerateLink(ctx context.Context, applicationID string, round int) (*store.InterviewLink, error) {
	if round == 0 {
		round = RoundScreening
	}

	unlock := e.store.LockApplication(applicationID)
	defer unlock()

	app, err := e.store.GetApplication(ctx, applicationID)
	if err != nil {
		return nil, err
	}

	if err := e.store.ExpireActiveLinks(ctx, app.ID, round); err != nil {
		return nil, err
	}

	link := &store.InterviewLink{
		ApplicationID: app.ID,
		Token:         strings.ReplaceAll(uuid.New().String(), "-", ""),
		Round:         round,
		Status:        store.LinkStatusGenerated,
		ExpiresAt:     e.now().Add(e.linkExpiry),
	}
	if err := e.store.CreateInterviewLink(ctx, link); err != nil {
		return nil, err
	}

	app.InterviewLinkStatus = store.LinkStatusGenerated
	if err := e.store.SaveApplication(ctx, app); err != nil {
		return nil, err
	}

	e.store.RecordEvent(ctx, "application", app.ID, "interview_link_generated",
		map[string]interface{}{"link_id": link.ID, "round": round})
	return link, nil
}

// SendLink emails the active screening link to the candidate,
// generating one first if needed. The application moves to
// interview_link_sent.
func (e *Engine) SendLink(ctx context.Context, applicationID string) (*store.InterviewLink, error) {
	link, err := e.store.GetActiveLink(ctx, applicationID, RoundScreening)
	if err != nil {
		return nil, err
	}
	if link == nil {
		link, err = e.GenerateLink(ctx, applicationID, RoundScreening)
		if err != nil {
			return nil, err
		}
	}

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

	msg := mailer.InterviewInvitation(e.company, candidate.Name, job.Title,
		e.LinkURL(link.Token, link.Round), int(e.linkExpiry.Hours()))
	msg.To = candidate.Email
	if err := e.mailer.Send(ctx, msg); err != nil {
		return nil, fmt.Errorf("send interview link: %w", err)
	}

	unlock := e.store.LockApplication(app.ID)
	defer unlock()

	// re-read under the lock: a concurrent GenerateLink may have
	// expired this link while the mail was going out
	link, err = e.store.GetLinkByToken(ctx, link.Token)
	if err != nil {
		return nil, err
	}
	if link.Status == store.LinkStatusExpired {
		return nil, ErrExpired
	}
	now := e.now()
	link.Status = store.LinkStatusSent
	link.SentAt = &now
	if err := e.store.SaveLink(ctx, link); err != nil {
		return nil, err
	}

	app, err = e.store.GetApplication(ctx, app.ID)
	if err != nil {
		return nil, err
	}
	app.InterviewLinkStatus = store.LinkStatusSent
	app.Stage = store.StageInterviewLinkSent
	app.NextAction = "await candidate screening"
	if err := e.store.SaveApplication(ctx, app); err != nil {
		return nil, err
	}

	e.store.RecordEvent(ctx, "application", app.ID, "interview_link_sent",
		map[string]interface{}{"link_id": link.ID, "to": candidate.Email})
	return link, nil
}

// LinkContext is what the candidate-facing page needs to render
type LinkContext struct {
	Link               *store.InterviewLink `json:"link"`
	CandidateName      string               `json:"candidate_name"`
	JobTitle           string               `json:"job_title"`
	Company            string               `json:"company"`
	ScreeningQuestions []string             `json:"screening_questions,omitempty"`
}

// Open resolves a token for the candidate page and records first open.
// Expired links flip to expired here; completed links are terminal.
func (e *Engine) Open(ctx context.Context, token string) (*LinkContext, error) {
	link, err := e.store.GetLinkByToken(ctx, token)
	if err != nil {
		return nil, err
	}

	switch link.Status {
	case store.LinkStatusInterviewCompleted:
		return nil, ErrCompleted
	case store.LinkStatusExpired:
		return nil, ErrExpired
	}
	if !e.now().Before(link.ExpiresAt) {
		link.Status = store.LinkStatusExpired
		if err := e.store.SaveLink(ctx, link); err != nil {
			return nil, err
		}
		return nil, ErrExpired
	}

	if link.OpenedAt == nil {
		now := e.now()
		link.OpenedAt = &now
		// interview_started outranks opened; never move backwards
		if link.Status == store.LinkStatusGenerated || link.Status == store.LinkStatusSent {
			link.Status = store.LinkStatusOpened
		}
		if err := e.store.SaveLink(ctx, link); err != nil {
			return nil, err
		}
		e.setLinkStatusOnApplication(ctx, link.ApplicationID, store.LinkStatusOpened)
		e.store.RecordEvent(ctx, "application", link.ApplicationID, "interview_link_opened",
			map[string]interface{}{"link_id": link.ID})
	}

	return e.linkContext(ctx, link)
}

// Start marks the voice conversation as underway
func (e *Engine) Start(ctx context.Context, token, conversationID string) (*store.InterviewLink, error) {
	link, err := e.store.GetLinkByToken(ctx, token)
	if err != nil {
		return nil, err
	}
	if link.Status == store.LinkStatusInterviewCompleted {
		return nil, ErrCompleted
	}
	if link.Status == store.LinkStatusExpired || !e.now().Before(link.ExpiresAt) {
		return nil, ErrExpired
	}

	now := e.now()
	link.Status = store.LinkStatusInterviewStarted
	if link.StartedAt == nil {
		link.StartedAt = &now
	}
	if conversationID != "" {
		link.VoiceConversationID = conversationID
	}
	if link.OpenedAt == nil {
		link.OpenedAt = &now
	}
	if err := e.store.SaveLink(ctx, link); err != nil {
		return nil, err
	}

	unlock := e.store.LockApplication(link.ApplicationID)
	app, err := e.store.GetApplication(ctx, link.ApplicationID)
	if err == nil {
		app.ScreeningStatus = store.ScreeningInProgress
		app.InterviewLinkStatus = store.LinkStatusInterviewStarted
		if err := e.store.SaveApplication(ctx, app); err != nil {
			log.Printf("[screening] save application %s on start: %v", app.ID, err)
		}
	}
	unlock()

	e.store.RecordEvent(ctx, "application", link.ApplicationID, "interview_started",
		map[string]interface{}{"link_id": link.ID, "conversation_id": conversationID})
	return link, nil
}

// Complete finishes the screening from the candidate side: it stores
// the transcript (first writer wins), closes the link, and runs the
// decision engine.
func (e *Engine) Complete(ctx context.Context, token, transcript string) (*store.Application, error) {
	link, err := e.store.GetLinkByToken(ctx, token)
	if err != nil {
		return nil, err
	}
	if link.Status == store.LinkStatusInterviewCompleted {
		return nil, ErrCompleted
	}
	if link.Status == store.LinkStatusExpired {
		return nil, ErrExpired
	}

	now := e.now()
	link.Status = store.LinkStatusInterviewCompleted
	link.CompletedAt = &now
	if err := e.store.SaveLink(ctx, link); err != nil {
		return nil, err
	}
	e.store.RecordEvent(ctx, "application", link.ApplicationID, "interview_completed",
		map[string]interface{}{"link_id": link.ID})

	return e.installTranscript(ctx, link.ApplicationID, transcript, "candidate")
}

// installTranscript writes the transcript if the application has none
// yet and runs the decision engine. Concurrent arrivals (candidate
// submission vs webhook) serialize on the per-application lock; the
// loser sees a stored transcript and leaves it alone.
func (e *Engine) installTranscript(ctx context.Context, applicationID, transcript, origin string) (*store.Application, error) {
	unlock := e.store.LockApplication(applicationID)
	defer unlock()

	app, err := e.store.GetApplication(ctx, applicationID)
	if err != nil {
		return nil, err
	}

	if app.ScreeningTranscript == "" && transcript != "" {
		app.ScreeningTranscript = transcript
		e.store.RecordEvent(ctx, "application", app.ID, "interview_transcript_received",
			map[string]interface{}{"origin": origin, "chars": len(transcript)})
	}
	app.ScreeningStatus = store.ScreeningCompleted
	app.InterviewLinkStatus = store.LinkStatusInterviewCompleted
	if err := e.store.SaveApplication(ctx, app); err != nil {
		return nil, err
	}

	if app.InterviewScore == nil {
		if err := e.decideLocked(ctx, app); err != nil {
			return nil, err
		}
	}
	return app, nil
}

// PublicStatus is the candidate-visible view of a link
type PublicStatus struct {
	Status      string `json:"status"`
	Round       int    `json:"round"`
	ExpiresAt   string `json:"expires_at"`
	JobTitle    string `json:"job_title"`
	Company     string `json:"company"`
	HasFinished bool   `json:"has_finished"`
}

// Status reports a link's public state without mutating it
func (e *Engine) Status(ctx context.Context, token string) (*PublicStatus, error) {
	link, err := e.store.GetLinkByToken(ctx, token)
	if err != nil {
		return nil, err
	}
	status := link.Status
	if status != store.LinkStatusInterviewCompleted && !e.now().Before(link.ExpiresAt) {
		status = store.LinkStatusExpired
	}

	out := &PublicStatus{
		Status:      status,
		Round:       link.Round,
		ExpiresAt:   link.ExpiresAt.Format("2006-01-02T15:04:05Z"),
		Company:     e.company,
		HasFinished: status == store.LinkStatusInterviewCompleted,
	}
	if app, err := e.store.GetApplication(ctx, link.ApplicationID); err == nil {
		if job, err := e.store.GetJob(ctx, app.JobID); err == nil {
			out.JobTitle = job.Title
		}
	}
	return out, nil
}

func (e *Engine) linkContext(ctx context.Context, link *store.InterviewLink) (*LinkContext, error) {
	app, err := e.store.GetApplication(ctx, link.ApplicationID)
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

	lc := &LinkContext{
		Link:          link,
		CandidateName: candidate.Name,
		JobTitle:      job.Title,
		Company:       e.company,
	}
	if app.ResumeScoreJSON != "" {
		var verdict struct {
			ScreeningQuestions []string `json:"screening_questions"`
		}
		if err := json.Unmarshal([]byte(app.ResumeScoreJSON), &verdict); err == nil {
			lc.ScreeningQuestions = verdict.ScreeningQuestions
		}
	}
	return lc, nil
}

func (e *Engine) setLinkStatusOnApplication(ctx context.Context, applicationID, status string) {
	unlock := e.store.LockApplication(applicationID)
	defer unlock()
	app, err := e.store.GetApplication(ctx, applicationID)
	if err != nil {
		return
	}
	app.InterviewLinkStatus = status
	if err := e.store.SaveApplication(ctx, app); err != nil {
		log.Printf("[screening] save application %s link status: %v", applicationID, err)
	}
}
