package store

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestJobCodeMinting(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	year := time.Now().UTC().Year()

	j1 := &Job{Title: "Backend Engineer"}
	require.NoError(t, s.CreateJob(ctx, j1))
	assert.Equal(t, fmt.Sprintf("JOB-%d-001", year), j1.Code)

	j2 := &Job{Title: "Data Engineer"}
	require.NoError(t, s.CreateJob(ctx, j2))
	assert.Equal(t, fmt.Sprintf("JOB-%d-002", year), j2.Code)

	got, err := s.GetJob(ctx, j1.ID)
	require.NoError(t, err)
	assert.Equal(t, JobStatusOpen, got.Status)
}

func TestJobSkillsRoundTrip(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	j := &Job{
		Title:            "Platform Engineer",
		MustHaveSkills:   []string{"go", "sql"},
		NiceToHaveSkills: []string{"kubernetes"},
	}
	require.NoError(t, s.CreateJob(ctx, j))

	got, err := s.GetJob(ctx, j.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"go", "sql"}, got.MustHaveSkills)
	assert.Equal(t, []string{"kubernetes"}, got.NiceToHaveSkills)
	assert.Nil(t, got.ResumeThresholdMin)
}

func TestCandidateUniqueEmail(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	c := &Candidate{Name: "Jordan Li", Email: "jordan@example.com"}
	require.NoError(t, s.CreateCandidate(ctx, c))

	dup := &Candidate{Name: "Jordan Again", Email: "jordan@example.com"}
	err := s.CreateCandidate(ctx, dup)
	assert.ErrorIs(t, err, ErrConflict)

	found, err := s.GetCandidateByEmail(ctx, "jordan@example.com")
	require.NoError(t, err)
	require.NotNil(t, found)
	assert.Equal(t, c.ID, found.ID)

	missing, err := s.GetCandidateByEmail(ctx, "nobody@example.com")
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestEmailIdempotentCreate(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	e := &Email{MessageID: "<m1@mail>", Subject: "Application", UID: 11}
	first, created, err := s.CreateEmail(ctx, e)
	require.NoError(t, err)
	assert.True(t, created)

	again, created, err := s.CreateEmail(ctx, &Email{MessageID: "<m1@mail>", Subject: "dup"})
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, first.ID, again.ID)
	assert.Equal(t, "Application", again.Subject)
}

func TestEmailProcessedMonotone(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	e := &Email{MessageID: "<m2@mail>"}
	_, _, err := s.CreateEmail(ctx, e)
	require.NoError(t, err)

	require.NoError(t, s.AdvanceEmailProcessed(ctx, e.ID, EmailMaterialized))
	// a lower rung never wins
	require.NoError(t, s.AdvanceEmailProcessed(ctx, e.ID, EmailClassified))

	got, err := s.GetEmail(ctx, e.ID)
	require.NoError(t, err)
	assert.Equal(t, EmailMaterialized, got.Processed)
}

func TestEmailUIDWatermark(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	uid, err := s.MaxEmailUID(ctx)
	require.NoError(t, err)
	assert.Equal(t, uint32(0), uid)

	for i, mid := range []string{"<a@m>", "<b@m>", "<c@m>"} {
		_, _, err := s.CreateEmail(ctx, &Email{MessageID: mid, UID: uint32(10 + i*5)})
		require.NoError(t, err)
	}
	uid, err = s.MaxEmailUID(ctx)
	require.NoError(t, err)
	assert.Equal(t, uint32(20), uid)
}

func TestApplicationUniquePair(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	c := &Candidate{Email: "pair@example.com"}
	require.NoError(t, s.CreateCandidate(ctx, c))
	j := &Job{Title: "SRE"}
	require.NoError(t, s.CreateJob(ctx, j))

	a := &Application{CandidateID: c.ID, JobID: j.ID}
	require.NoError(t, s.CreateApplication(ctx, a))
	assert.Equal(t, StageNew, a.Stage)
	assert.Equal(t, ScreeningPending, a.ScreeningStatus)

	err := s.CreateApplication(ctx, &Application{CandidateID: c.ID, JobID: j.ID})
	assert.ErrorIs(t, err, ErrConflict)

	got, err := s.GetApplicationByPair(ctx, c.ID, j.ID)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, a.ID, got.ID)
}

func TestApplicationListFilterAndSort(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	j := &Job{Title: "Analyst"}
	require.NoError(t, s.CreateJob(ctx, j))

	scores := []float64{55, 92, 71}
	for i, score := range scores {
		c := &Candidate{Email: fmt.Sprintf("c%d@example.com", i)}
		require.NoError(t, s.CreateCandidate(ctx, c))
		a := &Application{CandidateID: c.ID, JobID: j.ID, Stage: StageMatched}
		require.NoError(t, s.CreateApplication(ctx, a))
		sc := score
		a.ResumeScore = &sc
		require.NoError(t, s.SaveApplication(ctx, a))
	}

	apps, err := s.ListApplications(ctx, ApplicationFilter{
		JobID: j.ID, Stage: StageMatched, SortBy: "resume_score", SortDesc: true,
	})
	require.NoError(t, err)
	require.Len(t, apps, 3)
	assert.Equal(t, 92.0, *apps[0].ResumeScore)
	assert.Equal(t, 55.0, *apps[2].ResumeScore)

	_, err = s.ListApplications(ctx, ApplicationFilter{SortBy: "stage; DROP TABLE jobs"})
	assert.ErrorIs(t, err, ErrInvalid)
}

func TestSingleActiveLinkInvariant(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	c := &Candidate{Email: "link@example.com"}
	require.NoError(t, s.CreateCandidate(ctx, c))
	j := &Job{Title: "QA"}
	require.NoError(t, s.CreateJob(ctx, j))
	a := &Application{CandidateID: c.ID, JobID: j.ID}
	require.NoError(t, s.CreateApplication(ctx, a))

	expires := time.Now().UTC().Add(72 * time.Hour)
	l1 := &InterviewLink{ApplicationID: a.ID, ExpiresAt: expires}
	require.NoError(t, s.CreateInterviewLink(ctx, l1))
	assert.Len(t, l1.Token, 32)

	require.NoError(t, s.ExpireActiveLinks(ctx, a.ID, 1))
	l2 := &InterviewLink{ApplicationID: a.ID, ExpiresAt: expires}
	require.NoError(t, s.CreateInterviewLink(ctx, l2))

	active, err := s.GetActiveLink(ctx, a.ID, 1)
	require.NoError(t, err)
	require.NotNil(t, active)
	assert.Equal(t, l2.ID, active.ID)

	old, err := s.GetLink(ctx, l1.ID)
	require.NoError(t, err)
	assert.Equal(t, LinkStatusExpired, old.Status)
}

func TestGetLinkByToken(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	_, err := s.GetLinkByToken(ctx, "nope")
	assert.True(t, errors.Is(err, ErrNotFound))
}

func TestSettingsRoundTrip(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	type creds struct {
		Username string `json:"username"`
		Password string `json:"password"`
	}
	in := creds{Username: "inbox@hireops.dev", Password: "cGFzcw=="}
	require.NoError(t, s.SetSetting(ctx, "mailbox_credentials", in))

	var out creds
	require.NoError(t, s.GetSetting(ctx, "mailbox_credentials", &out))
	assert.Equal(t, in, out)

	var missing creds
	err := s.GetSetting(ctx, "absent", &missing)
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, s.DeleteSetting(ctx, "mailbox_credentials"))
	err = s.GetSetting(ctx, "mailbox_credentials", &out)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestEventsTrail(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	s.RecordEvent(ctx, "application", "app-1", "stage_changed", map[string]string{"to": "matched"})
	s.RecordEvent(ctx, "application", "app-1", "interview_link_generated", nil)
	s.RecordEvent(ctx, "email", "em-1", "classified", nil)

	events, err := s.ListEvents(ctx, "application", "app-1", 10)
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.Equal(t, "interview_link_generated", events[0].EventType)

	recent, err := s.RecentEvents(ctx, 2)
	require.NoError(t, err)
	require.Len(t, recent, 2)
	assert.Equal(t, "classified", recent[0].EventType)
}

func TestLockApplicationSerializes(t *testing.T) {
	s := newTestStore(t)

	var counter int
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			unlock := s.LockApplication("app-x")
			defer unlock()
			counter++
		}()
	}
	wg.Wait()
	assert.Equal(t, 20, counter)
}
