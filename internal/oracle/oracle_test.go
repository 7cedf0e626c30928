package oracle

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hireops/hireops/internal/config"
	"github.com/hireops/hireops/internal/store"
)

func newFallbackClient() *Client {
	return NewClient(config.OracleConfig{TimeoutSeconds: 5})
}

func TestClassifyFallbackAttachment(t *testing.T) {
	c := newFallbackClient()
	email := &store.Email{
		Subject:     "Hello",
		BodyText:    "see attached",
		Attachments: []store.Attachment{{Filename: "jane_resume.PDF"}},
	}

	verdict := c.ClassifyEmail(context.Background(), email)
	assert.Equal(t, CategoryCandidateApplication, verdict.Category)
	assert.Equal(t, 0.92, verdict.Confidence)
	assert.Equal(t, SourceFallback, verdict.Source)
}

func TestClassifyFallbackKeywords(t *testing.T) {
	c := newFallbackClient()

	verdict := c.ClassifyEmail(context.Background(), &store.Email{
		Subject:  "Application for the Backend Engineer position",
		BodyText: "I would like to apply. My resume is linked.",
	})
	assert.Equal(t, CategoryCandidateApplication, verdict.Category)
	assert.Equal(t, 0.78, verdict.Confidence)
	assert.Equal(t, "Backend Engineer", verdict.DetectedRole)

	general := c.ClassifyEmail(context.Background(), &store.Email{
		Subject:  "Invoice overdue",
		BodyText: "Please remit payment.",
	})
	assert.Equal(t, CategoryGeneral, general.Category)
	assert.Equal(t, 0.85, general.Confidence)
}

func TestClassifyRemote(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/agents/cls-1/invoke", r.URL.Path)
		assert.Equal(t, "Bearer key-123", r.Header.Get("Authorization"))
		json.NewEncoder(w).Encode(map[string]interface{}{
			"output": map[string]interface{}{
				"category":      "job_application",
				"confidence":    0.97,
				"detected_role": "SRE",
			},
		})
	}))
	defer server.Close()

	c := NewClient(config.OracleConfig{
		BaseURL:           server.URL,
		APIKey:            "key-123",
		TimeoutSeconds:    5,
		ClassifierAgentID: "cls-1",
	})

	verdict := c.ClassifyEmail(context.Background(), &store.Email{Subject: "hi"})
	assert.Equal(t, CategoryCandidateApplication, verdict.Category)
	assert.Equal(t, 0.97, verdict.Confidence)
	assert.Equal(t, "SRE", verdict.DetectedRole)
	assert.Equal(t, SourceRemote, verdict.Source)
}

func TestClassifyRemoteFailureFallsBack(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer server.Close()

	c := NewClient(config.OracleConfig{
		BaseURL:           server.URL,
		TimeoutSeconds:    5,
		ClassifierAgentID: "cls-1",
	})

	verdict := c.ClassifyEmail(context.Background(), &store.Email{
		Subject: "Application for the Data Analyst role", BodyText: "resume attached, please consider my application",
	})
	assert.Equal(t, SourceFallback, verdict.Source)
	assert.Equal(t, CategoryCandidateApplication, verdict.Category)
}

func TestScoreResumeFallbackFormula(t *testing.T) {
	c := newFallbackClient()
	job := &store.Job{
		Title:            "Backend Engineer",
		MustHaveSkills:   []string{"Go", "SQL"},
		NiceToHaveSkills: []string{"Docker", "Terraform"},
	}

	// 1/2 must, 1/2 nice: 40 + 40*0.5 + 15*0.5 + 5 = 72.5
	verdict := c.ScoreResume(context.Background(), job, "Expert in go and docker.")
	assert.Equal(t, 72.5, verdict.Score)
	assert.Equal(t, DecisionAdvance, verdict.Decision)
	assert.Equal(t, SourceFallback, verdict.Source)
	assert.NotEmpty(t, verdict.ScreeningQuestions)

	// everything matched is capped at 98
	full := c.ScoreResume(context.Background(), job, "go sql docker terraform")
	assert.Equal(t, 98.0, full.Score)

	// nothing matched: 40 + 0 + 0 + 5 = 45 -> reject
	none := c.ScoreResume(context.Background(), job, "ten years of pottery")
	assert.Equal(t, 45.0, none.Score)
	assert.Equal(t, DecisionReject, none.Decision)
}

func TestScoreResumeRemoteNestedSchema(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]interface{}{
			"result": map[string]interface{}{
				"candidate_summary": map[string]interface{}{
					"summary":   "Strong backend profile",
					"strengths": []string{"go"},
					"gaps":      []string{"sql"},
				},
				"match": map[string]interface{}{
					"overall_score":  88.0,
					"recommendation": "shortlist",
				},
				"screening_questions": []string{"Tell me about your Go services."},
			},
		})
	}))
	defer server.Close()

	c := NewClient(config.OracleConfig{
		BaseURL:        server.URL,
		TimeoutSeconds: 5,
		ResumeAgentID:  "rs-1",
	})

	verdict := c.ScoreResume(context.Background(), &store.Job{Title: "BE"}, "resume")
	assert.Equal(t, 88.0, verdict.Score)
	assert.Equal(t, DecisionAdvance, verdict.Decision)
	assert.Equal(t, "Strong backend profile", verdict.Summary)
	assert.Equal(t, []string{"go"}, verdict.Strengths)
	assert.Equal(t, []string{"sql"}, verdict.Gaps)
	assert.Len(t, verdict.ScreeningQuestions, 1)
	assert.Equal(t, SourceRemote, verdict.Source)
}

func TestEvaluateFallbackFormula(t *testing.T) {
	c := newFallbackClient()

	// 0.7*80 + 20 = 76
	verdict := c.EvaluateTranscript(context.Background(), &store.Job{Title: "BE"}, "transcript", 80)
	assert.Equal(t, 76.0, verdict.Score)
	assert.Equal(t, DecisionAdvance, verdict.Decision)
	assert.Equal(t, SourceFallback, verdict.Source)

	// 0.7*120 + 20 = 104 capped at 95
	capped := c.EvaluateTranscript(context.Background(), &store.Job{}, "t", 120)
	assert.Equal(t, 95.0, capped.Score)

	// 0.7*30 + 20 = 41 -> reject
	low := c.EvaluateTranscript(context.Background(), &store.Job{}, "t", 30)
	assert.Equal(t, 41.0, low.Score)
	assert.Equal(t, DecisionReject, low.Decision)
}

func TestSummarizeFallback(t *testing.T) {
	c := newFallbackClient()
	text := c.Summarize(context.Background(),
		&store.Job{Title: "Backend Engineer"},
		&store.Candidate{Name: "Jane Doe"},
		82, 77, 79, "advance")
	assert.Contains(t, text, "Jane Doe")
	assert.Contains(t, text, "79.0")
	assert.Contains(t, text, "advance")
}

func TestGenerateJobFallback(t *testing.T) {
	c := newFallbackClient()
	draft := c.GenerateJobDescription(context.Background(), "Data Engineer", "Platform", "Remote")
	assert.Equal(t, "Data Engineer", draft.Title)
	assert.Contains(t, draft.Description, "Data Engineer")
	assert.Equal(t, SourceFallback, draft.Source)
}

func TestRegistryUpdate(t *testing.T) {
	c := NewClient(config.OracleConfig{ClassifierAgentID: "cls-1"})
	reg := c.Registry()

	s, err := reg.Get(AgentClassifier)
	require.NoError(t, err)
	assert.Equal(t, "cls-1", s.AgentID)
	assert.False(t, s.Mock)

	mock := true
	updated, err := reg.Update(AgentClassifier, nil, &mock)
	require.NoError(t, err)
	assert.True(t, updated.Mock)
	assert.Equal(t, "cls-1", updated.AgentID)

	_, err = reg.Get("nonexistent")
	assert.Error(t, err)

	assert.Len(t, reg.List(), 5)
}

func TestMockTogglesSkipRemote(t *testing.T) {
	called := false
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
	}))
	defer server.Close()

	c := NewClient(config.OracleConfig{
		BaseURL:           server.URL,
		ClassifierAgentID: "cls-1",
		ClassifierMock:    true,
	})

	verdict := c.ClassifyEmail(context.Background(), &store.Email{Subject: "job application resume"})
	assert.False(t, called)
	assert.Equal(t, SourceFallback, verdict.Source)
}
