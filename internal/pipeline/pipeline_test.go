package pipeline

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
	"github.com/hireops/hireops/internal/screening"
	"github.com/hireops/hireops/internal/store"
)

type captureMailer struct {
	sent []*mailer.Message
}

func (c *captureMailer) Send(_ context.Context, msg *mailer.Message) error {
	c.sent = append(c.sent, msg)
	return nil
}

type env struct {
	store    *store.Store
	pipeline *Pipeline
	mail     *captureMailer
}

func newEnv(t *testing.T) *env {
	t.Helper()
	s, err := store.Open(filepath.Join(t.TempDir(), "pipeline.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })

	mail := &captureMailer{}
	o := oracle.NewClient(config.OracleConfig{TimeoutSeconds: 5})
	eng := screening.NewEngine(s, o, mail, "HireOps", "https://app.hireops.dev", 72*time.Hour)
	return &env{store: s, pipeline: New(s, o, eng), mail: mail}
}

func (e *env) addJob(t *testing.T, title string, must []string) *store.Job {
	t.Helper()
	job := &store.Job{Title: title, MustHaveSkills: must}
	require.NoError(t, e.store.CreateJob(context.Background(), job))
	return job
}

func (e *env) addEmail(t *testing.T, from, fromName, subject, body string, atts ...store.Attachment) *store.Email {
	t.Helper()
	email := &store.Email{
		MessageID:   "<" + subject + "@test>",
		FromAddress: from,
		FromName:    fromName,
		Subject:     subject,
		BodyText:    body,
		Attachments: atts,
	}
	_, _, err := e.store.CreateEmail(context.Background(), email)
	require.NoError(t, err)
	return email
}

func TestProcessEmailFullFlow(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	job := e.addJob(t, "Backend Engineer", []string{"go", "sql"})

	email := e.addEmail(t, "jane.doe@example.com", "Jane Doe",
		"Application for the Backend Engineer position",
		"I would like to apply. Years of go and sql experience.",
		store.Attachment{Filename: "resume.pdf"})

	res, err := e.pipeline.ProcessEmail(ctx, email.ID)
	require.NoError(t, err)

	assert.Equal(t, oracle.CategoryCandidateApplication, res.Classification)
	require.NotEmpty(t, res.CandidateID)
	assert.Equal(t, job.ID, res.JobID)
	require.NotEmpty(t, res.ApplicationID)
	// 2/2 must, no nice list: 40 + 40 + 15 + 5 = 100 capped 98 -> advance
	assert.Equal(t, 98.0, res.ResumeScore)
	assert.Equal(t, "screening link sent", res.Action)

	app, err := e.store.GetApplication(ctx, res.ApplicationID)
	require.NoError(t, err)
	assert.Equal(t, store.StageInterviewLinkSent, app.Stage)
	assert.Equal(t, email.ID, app.SourceEmailID)

	candidate, err := e.store.GetCandidate(ctx, res.CandidateID)
	require.NoError(t, err)
	assert.Equal(t, "Jane Doe", candidate.Name)
	assert.Equal(t, "email", candidate.Source)

	// invitation went out
	require.Len(t, e.mail.sent, 1)
	assert.Equal(t, "jane.doe@example.com", e.mail.sent[0].To)

	stored, err := e.store.GetEmail(ctx, email.ID)
	require.NoError(t, err)
	assert.Equal(t, store.EmailMaterialized, stored.Processed)
}

func TestProcessEmailGeneralSkipped(t *testing.T) {
	e := newEnv(t)
	e.addJob(t, "Backend Engineer", nil)
	email := e.addEmail(t, "vendor@example.com", "", "Invoice overdue", "Please pay.")

	res, err := e.pipeline.ProcessEmail(context.Background(), email.ID)
	require.NoError(t, err)
	assert.Equal(t, oracle.CategoryGeneral, res.Classification)
	assert.Empty(t, res.CandidateID)

	stored, _ := e.store.GetEmail(context.Background(), email.ID)
	assert.Equal(t, store.EmailClassified, stored.Processed)
}

func TestProcessEmailIdempotent(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	e.addJob(t, "Backend Engineer", []string{"go"})
	email := e.addEmail(t, "sam@example.com", "Sam",
		"Applying for the Backend Engineer role", "go experience, resume below")

	first, err := e.pipeline.ProcessEmail(ctx, email.ID)
	require.NoError(t, err)
	require.NotEmpty(t, first.ApplicationID)

	second, err := e.pipeline.ProcessEmail(ctx, email.ID)
	require.NoError(t, err)
	assert.Contains(t, second.Action, "skipped")

	apps, err := e.store.ListApplications(ctx, store.ApplicationFilter{CandidateID: first.CandidateID})
	require.NoError(t, err)
	assert.Len(t, apps, 1)
}

func TestDuplicatePairFromSecondEmail(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	e.addJob(t, "Backend Engineer", []string{"go"})

	e1 := e.addEmail(t, "sam@example.com", "Sam", "Backend Engineer application", "apply go resume")
	first, err := e.pipeline.ProcessEmail(ctx, e1.ID)
	require.NoError(t, err)

	e2 := e.addEmail(t, "sam@example.com", "Sam", "Backend Engineer application again", "following up on my application, resume attached")
	second, err := e.pipeline.ProcessEmail(ctx, e2.ID)
	require.NoError(t, err)
	assert.Equal(t, first.ApplicationID, second.ApplicationID)
	assert.Equal(t, "skipped: application already exists", second.Action)
}

func TestMatchJobScoring(t *testing.T) {
	jobs := []*store.Job{
		{Title: "Data Engineer", Status: store.JobStatusOpen, MustHaveSkills: []string{"python"}},
		{Title: "Backend Engineer", Status: store.JobStatusOpen, MustHaveSkills: []string{"go"}, Department: "Platform"},
		{Title: "Closed Role", Status: store.JobStatusClosed},
	}

	best := MatchJob(jobs, "Backend Engineer", "go services on the platform team")
	require.NotNil(t, best)
	assert.Equal(t, "Backend Engineer", best.Title)

	// no signal falls back to the first open job
	fallback := MatchJob(jobs, "", "unrelated text")
	assert.Equal(t, "Data Engineer", fallback.Title)

	assert.Nil(t, MatchJob([]*store.Job{{Title: "x", Status: store.JobStatusClosed}}, "", ""))
}

func TestParseContact(t *testing.T) {
	name, email := ParseContact("Jane Doe", "JANE@Example.com")
	assert.Equal(t, "Jane Doe", name)
	assert.Equal(t, "jane@example.com", email)

	name, _ = ParseContact("", "jane.doe@example.com")
	assert.Equal(t, "Jane Doe", name)

	name, _ = ParseContact("", "sam_smith+jobs@example.com")
	assert.Equal(t, "Sam Smith", name)

	// display names that are just the address get rebuilt too
	name, _ = ParseContact("jordan.lee@example.com", "jordan.lee@example.com")
	assert.Equal(t, "Jordan Lee", name)
}

func TestWorkerProcessesQueue(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	e.addJob(t, "Backend Engineer", []string{"go"})
	email := e.addEmail(t, "kit@example.com", "Kit",
		"Backend Engineer application", "apply resume go")

	w := NewWorker(e.pipeline)
	w.Start(ctx)
	require.NoError(t, w.Enqueue(ctx, email.ID))

	deadline := time.After(5 * time.Second)
	for {
		stored, err := e.store.GetEmail(ctx, email.ID)
		require.NoError(t, err)
		if stored.Processed == store.EmailMaterialized {
			break
		}
		select {
		case <-deadline:
			t.Fatal("worker did not process email in time")
		case <-time.After(20 * time.Millisecond):
		}
	}
	w.Stop()
}
