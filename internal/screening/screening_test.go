package screening

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hireops/hireops/internal/config"
	"github.com/hireops/hireops/internal/mailer"
	"github.com/hireops/hireops/internal/oracle"
	"github.com/hireops/hireops/internal/store"
)

type captureMailer struct {
	sent []*mailer.Message
	fail bool
}

func (c *captureMailer) Send(_ context.Context, msg *mailer.Message) error {
	if c.fail {
		return assert.AnError
	}
	c.sent = append(c.sent, msg)
	return nil
}

// hookMailer runs a callback before delivering, for interleaving
// store activity with an in-flight send
type hookMailer struct {
	inner *captureMailer
	hook  func()
}

func (h *hookMailer) Send(ctx context.Context, msg *mailer.Message) error {
	if h.hook != nil {
		h.hook()
	}
	return h.inner.Send(ctx, msg)
}

type fixture struct {
	store  *store.Store
	engine *Engine
	mail   *captureMailer
	app    *store.Application
	job    *store.Job
	cand   *store.Candidate
}

func newFixture(t *testing.T, resumeScore float64) *fixture {
	t.Helper()
	s, err := store.Open(filepath.Join(t.TempDir(), "screening.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })

	mail := &captureMailer{}
	o := oracle.NewClient(config.OracleConfig{TimeoutSeconds: 5})
	engine := NewEngine(s, o, mail, "HireOps", "https://app.hireops.dev", 72*time.Hour)

	ctx := context.Background()
	cand := &store.Candidate{Name: "Jane Doe", Email: "jane@example.com"}
	require.NoError(t, s.CreateCandidate(ctx, cand))
	job := &store.Job{Title: "Backend Engineer", MustHaveSkills: []string{"go"}}
	require.NoError(t, s.CreateJob(ctx, job))
	app := &store.Application{CandidateID: cand.ID, JobID: job.ID, Stage: store.StageMatched}
	require.NoError(t, s.CreateApplication(ctx, app))
	if resumeScore > 0 {
		app.ResumeScore = &resumeScore
		require.NoError(t, s.SaveApplication(ctx, app))
	}

	return &fixture{store: s, engine: engine, mail: mail, app: app, job: job, cand: cand}
}

func TestGenerateLinkKeepsOneActive(t *testing.T) {
	f := newFixture(t, 80)
	ctx := context.Background()

	l1, err := f.engine.GenerateLink(ctx, f.app.ID, RoundScreening)
	require.NoError(t, err)
	l2, err := f.engine.GenerateLink(ctx, f.app.ID, RoundScreening)
	require.NoError(t, err)
	assert.NotEqual(t, l1.Token, l2.Token)

	active, err := f.store.GetActiveLink(ctx, f.app.ID, RoundScreening)
	require.NoError(t, err)
	assert.Equal(t, l2.ID, active.ID)

	first, err := f.store.GetLink(ctx, l1.ID)
	require.NoError(t, err)
	assert.Equal(t, store.LinkStatusExpired, first.Status)
}

func TestSendLinkEmailsCandidate(t *testing.T) {
	f := newFixture(t, 80)
	ctx := context.Background()

	link, err := f.engine.SendLink(ctx, f.app.ID)
	require.NoError(t, err)
	assert.Equal(t, store.LinkStatusSent, link.Status)
	require.NotNil(t, link.SentAt)

	require.Len(t, f.mail.sent, 1)
	assert.Equal(t, "jane@example.com", f.mail.sent[0].To)
	assert.Contains(t, f.mail.sent[0].TextBody, link.Token)

	app, err := f.store.GetApplication(ctx, f.app.ID)
	require.NoError(t, err)
	assert.Equal(t, store.StageInterviewLinkSent, app.Stage)
	assert.Equal(t, store.LinkStatusSent, app.InterviewLinkStatus)
}

func TestSendLinkDoesNotResurrectExpiredLink(t *testing.T) {
	f := newFixture(t, 80)
	ctx := context.Background()

	hook := &hookMailer{inner: f.mail}
	engine := NewEngine(f.store, oracle.NewClient(config.OracleConfig{TimeoutSeconds: 5}), hook,
		"HireOps", "https://app.hireops.dev", 72*time.Hour)

	stale, err := engine.GenerateLink(ctx, f.app.ID, RoundScreening)
	require.NoError(t, err)

	// a replacement link is minted while the invitation is in flight,
	// expiring the one being sent
	var fresh *store.InterviewLink
	hook.hook = func() {
		minted, mintErr := f.engine.GenerateLink(ctx, f.app.ID, RoundScreening)
		require.NoError(t, mintErr)
		fresh = minted
	}

	_, sendErr := engine.SendLink(ctx, f.app.ID)
	assert.ErrorIs(t, sendErr, ErrExpired)

	got, err := f.store.GetLink(ctx, stale.ID)
	require.NoError(t, err)
	assert.Equal(t, store.LinkStatusExpired, got.Status)

	require.NotNil(t, fresh)
	active, err := f.store.GetActiveLink(ctx, f.app.ID, RoundScreening)
	require.NoError(t, err)
	assert.Equal(t, fresh.ID, active.ID)
}

func TestOpenTransitionsAndIdempotence(t *testing.T) {
	f := newFixture(t, 80)
	ctx := context.Background()

	link, err := f.engine.GenerateLink(ctx, f.app.ID, RoundScreening)
	require.NoError(t, err)

	lc, err := f.engine.Open(ctx, link.Token)
	require.NoError(t, err)
	assert.Equal(t, store.LinkStatusOpened, lc.Link.Status)
	assert.Equal(t, "Jane Doe", lc.CandidateName)
	assert.Equal(t, "Backend Engineer", lc.JobTitle)
	firstOpen := lc.Link.OpenedAt
	require.NotNil(t, firstOpen)

	// reopening neither fails nor moves opened_at
	lc2, err := f.engine.Open(ctx, link.Token)
	require.NoError(t, err)
	assert.Equal(t, firstOpen.Unix(), lc2.Link.OpenedAt.Unix())
}

func TestOpenExpiredLink(t *testing.T) {
	f := newFixture(t, 80)
	ctx := context.Background()

	link, err := f.engine.GenerateLink(ctx, f.app.ID, RoundScreening)
	require.NoError(t, err)

	f.engine.SetClock(func() time.Time { return time.Now().UTC().Add(73 * time.Hour) })
	_, err = f.engine.Open(ctx, link.Token)
	assert.ErrorIs(t, err, ErrExpired)

	stored, err := f.store.GetLink(ctx, link.ID)
	require.NoError(t, err)
	assert.Equal(t, store.LinkStatusExpired, stored.Status)
}

func TestCompleteAdvancesApplication(t *testing.T) {
	f := newFixture(t, 80)
	ctx := context.Background()

	link, err := f.engine.GenerateLink(ctx, f.app.ID, RoundScreening)
	require.NoError(t, err)
	_, err = f.engine.Start(ctx, link.Token, "conv-1")
	require.NoError(t, err)

	app, err := f.engine.Complete(ctx, link.Token, "Q: hi\nA: hello")
	require.NoError(t, err)

	// fallback evaluator: 0.7*80+20 = 76; final = 0.4*80 + 0.6*76 = 77.6
	require.NotNil(t, app.InterviewScore)
	assert.Equal(t, 76.0, *app.InterviewScore)
	require.NotNil(t, app.FinalScore)
	assert.Equal(t, 77.6, *app.FinalScore)
	// resume 80 >= 80 and interview 76 >= 75 -> advance
	assert.Equal(t, store.StageShortlisted, app.Stage)
	assert.Equal(t, store.ScreeningCompleted, app.ScreeningStatus)
	assert.NotEmpty(t, app.FinalSummary)

	_, err = f.engine.Complete(ctx, link.Token, "again")
	assert.ErrorIs(t, err, ErrCompleted)
}

func TestLowScoreRejectsAndEmails(t *testing.T) {
	f := newFixture(t, 30)
	ctx := context.Background()

	link, err := f.engine.GenerateLink(ctx, f.app.ID, RoundScreening)
	require.NoError(t, err)

	// fallback evaluator: 0.7*30+20 = 41; final = 0.4*30 + 0.6*41 = 36.6 < 50
	app, err := f.engine.Complete(ctx, link.Token, "short call")
	require.NoError(t, err)
	assert.Equal(t, store.StageRejected, app.Stage)

	require.Len(t, f.mail.sent, 1)
	assert.Contains(t, f.mail.sent[0].Subject, "Update on your")
}

func TestJobThresholdOverrides(t *testing.T) {
	f := newFixture(t, 72)
	ctx := context.Background()

	low := 70.0
	f.job.ResumeThresholdMin = &low
	require.NoError(t, f.store.UpdateJob(ctx, f.job))

	link, err := f.engine.GenerateLink(ctx, f.app.ID, RoundScreening)
	require.NoError(t, err)

	// fallback evaluator: 0.7*72+20 = 70.4 hits... interview_min default 75 not met -> hold
	app, err := f.engine.Complete(ctx, link.Token, "t")
	require.NoError(t, err)
	assert.Equal(t, store.StageScreened, app.Stage)
}

func TestTranscriptRaceFirstWriterWins(t *testing.T) {
	f := newFixture(t, 80)
	ctx := context.Background()

	link, err := f.engine.GenerateLink(ctx, f.app.ID, RoundScreening)
	require.NoError(t, err)

	_, err = f.engine.Complete(ctx, link.Token, "candidate transcript")
	require.NoError(t, err)

	// a late webhook for the same interview must not clobber the transcript
	_, err = f.engine.InstallTranscript(ctx, f.app.ID, "webhook transcript")
	require.NoError(t, err)

	app, err := f.store.GetApplication(ctx, f.app.ID)
	require.NoError(t, err)
	assert.Equal(t, "candidate transcript", app.ScreeningTranscript)
}

func TestWebhookFlow(t *testing.T) {
	f := newFixture(t, 80)
	ctx := context.Background()

	link, err := f.engine.GenerateLink(ctx, f.app.ID, RoundScreening)
	require.NoError(t, err)
	_, err = f.engine.Start(ctx, link.Token, "conv-42")
	require.NoError(t, err)

	app, err := f.engine.HandleWebhook(ctx, &WebhookPayload{
		ConversationID: "conv-42",
		Transcript: []WebhookTurn{
			{Role: "agent", Message: "Hello", TimeInCallSecs: 0},
			{Role: "user", Message: "Hi there", TimeInCallSecs: 3.7},
		},
	})
	require.NoError(t, err)
	require.NotNil(t, app)
	assert.Equal(t, "[0s] Agent: Hello\n[4s] User: Hi there", app.ScreeningTranscript)
	assert.Equal(t, store.ScreeningCompleted, app.ScreeningStatus)

	// unknown conversations are ignored
	missing, err := f.engine.HandleWebhook(ctx, &WebhookPayload{ConversationID: "conv-unknown"})
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestVerifySignature(t *testing.T) {
	body := []byte(`{"conversation_id":"c1"}`)
	sig := Sign("topsecret", body)

	assert.True(t, VerifySignature("topsecret", body, sig))
	assert.True(t, VerifySignature("topsecret", body, "sha256="+sig))
	assert.False(t, VerifySignature("topsecret", body, "deadbeef"))
	assert.False(t, VerifySignature("topsecret", body, ""))
	// empty secret disables verification
	assert.True(t, VerifySignature("", body, ""))
}

func TestTelemetryRingAndAggregates(t *testing.T) {
	f := newFixture(t, 80)
	ctx := context.Background()

	link, err := f.engine.GenerateLink(ctx, f.app.ID, RoundScreening)
	require.NoError(t, err)

	for i := 0; i < 110; i++ {
		present := i%2 == 0
		_, err := f.engine.RecordTelemetry(ctx, link.Token, Snapshot{
			AttentionScore: 0.8,
			FacePresent:    present,
		})
		require.NoError(t, err)
	}

	tel, err := f.engine.RecordTelemetry(ctx, link.Token, Snapshot{AttentionScore: 0.9, FacePresent: true})
	require.NoError(t, err)
	assert.Len(t, tel.Snapshots, maxSnapshots)
	assert.InDelta(t, 0.801, tel.AvgAttentionScore, 0.001)
	assert.Greater(t, tel.FacePresentPercentage, 0.0)

	app, err := f.store.GetApplication(ctx, f.app.ID)
	require.NoError(t, err)
	assert.NotEmpty(t, app.FaceTrackingJSON)
}

func TestBookSlot(t *testing.T) {
	f := newFixture(t, 80)
	ctx := context.Background()

	app, err := f.engine.BookSlot(ctx, f.app.ID, "Tomorrow 2:00 PM")
	require.NoError(t, err)
	assert.Equal(t, store.StageScreeningScheduled, app.Stage)
	require.NotNil(t, app.ScheduledInterviewAt)
	assert.Equal(t, 14, app.ScheduledInterviewAt.Hour())
	assert.NotEmpty(t, app.ScheduledSlot)

	room, err := f.store.GetActiveLink(ctx, f.app.ID, RoundInterview)
	require.NoError(t, err)
	require.NotNil(t, room)
	assert.Equal(t, RoundInterview, room.Round)

	require.Len(t, f.mail.sent, 1)
	msg := f.mail.sent[0]
	assert.Contains(t, msg.HTMLBody, room.Token)
	require.Len(t, msg.Attachments, 1)
	assert.Equal(t, "interview.ics", msg.Attachments[0].Filename)
}

func TestBookSlotMailFailureLeavesStateUntouched(t *testing.T) {
	f := newFixture(t, 80)
	f.mail.fail = true
	ctx := context.Background()

	_, err := f.engine.BookSlot(ctx, f.app.ID, "Tomorrow 10 AM")
	require.Error(t, err)

	app, err := f.store.GetApplication(ctx, f.app.ID)
	require.NoError(t, err)
	assert.Nil(t, app.ScheduledInterviewAt)
	assert.NotEqual(t, store.StageScreeningScheduled, app.Stage)
}

func TestCalculateFinalScoreRequiresBoth(t *testing.T) {
	f := newFixture(t, 0)
	ctx := context.Background()

	_, err := f.engine.CalculateFinalScore(ctx, f.app.ID)
	assert.ErrorIs(t, err, store.ErrInvalid)

	rs, is := 90.0, 70.0
	f.app.ResumeScore = &rs
	f.app.InterviewScore = &is
	require.NoError(t, f.store.SaveApplication(ctx, f.app))

	app, err := f.engine.CalculateFinalScore(ctx, f.app.ID)
	require.NoError(t, err)
	assert.Equal(t, 78.0, *app.FinalScore)
}

func TestSendSummaryDraftMarksSentOnSuccessOnly(t *testing.T) {
	f := newFixture(t, 80)
	ctx := context.Background()

	err := f.engine.SendSummaryDraft(ctx, f.app.ID)
	assert.ErrorIs(t, err, store.ErrInvalid)

	f.app.FinalSummary = "Strong candidate."
	require.NoError(t, f.store.SaveApplication(ctx, f.app))

	f.mail.fail = true
	require.Error(t, f.engine.SendSummaryDraft(ctx, f.app.ID))
	app, _ := f.store.GetApplication(ctx, f.app.ID)
	assert.False(t, app.EmailDraftSent)

	f.mail.fail = false
	require.NoError(t, f.engine.SendSummaryDraft(ctx, f.app.ID))
	app, _ = f.store.GetApplication(ctx, f.app.ID)
	assert.True(t, app.EmailDraftSent)
}
