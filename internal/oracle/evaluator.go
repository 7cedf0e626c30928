package oracle

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"math"

	"github.com/hireops/hireops/internal/store"
)

// InterviewEvaluation is the evaluator verdict on a screening transcript
type InterviewEvaluation struct {
	Score     float64  `json:"score"`
	Decision  string   `json:"decision"`
	Summary   string   `json:"summary,omitempty"`
	Strengths []string `json:"strengths,omitempty"`
	Concerns  []string `json:"concerns,omitempty"`
	Source    string   `json:"source"`
}

// EvaluateTranscript scores a completed screening conversation.
// The fallback derives the interview score from the resume score, so
// an application with no resume score still gets a usable verdict.
func (c *Client) EvaluateTranscript(ctx context.Context, job *store.Job, transcript string, resumeScore float64) InterviewEvaluation {
	settings, _ := c.registry.Get(AgentEvaluator)
	if !settings.Mock && settings.AgentID != "" {
		verdict, err := c.evaluateRemote(ctx, settings.AgentID, job, transcript)
		if err == nil {
			return verdict
		}
		log.Printf("[oracle] evaluator fallback for job %s: %v", job.ID, err)
	}
	return evaluateFallback(resumeScore)
}

func (c *Client) evaluateRemote(ctx context.Context, agentID string, job *store.Job, transcript string) (InterviewEvaluation, error) {
	body, err := c.invoke(ctx, AgentEvaluator, agentID, map[string]interface{}{
		"job_title":       job.Title,
		"job_description": job.Description,
		"transcript":      transcript,
	})
	if err != nil {
		return InterviewEvaluation{}, err
	}

	var raw struct {
		Score          float64  `json:"score"`
		OverallScore   float64  `json:"overall_score"`
		Decision       string   `json:"decision"`
		Recommendation string   `json:"recommendation"`
		Summary        string   `json:"summary"`
		Assessment     string   `json:"assessment"`
		Strengths      []string `json:"strengths"`
		Concerns       []string `json:"concerns"`
		RedFlags       []string `json:"red_flags"`
	}
	if err := json.Unmarshal(unwrapEnvelope(body), &raw); err != nil {
		return InterviewEvaluation{}, err
	}

	verdict := InterviewEvaluation{
		Score:     firstNonZero(raw.Score, raw.OverallScore),
		Decision:  normalizeDecision(firstNonEmpty(raw.Decision, raw.Recommendation)),
		Summary:   firstNonEmpty(raw.Summary, raw.Assessment),
		Strengths: raw.Strengths,
		Concerns:  firstNonEmptySlice(raw.Concerns, raw.RedFlags),
		Source:    SourceRemote,
	}
	if verdict.Score <= 0 {
		return InterviewEvaluation{}, fmt.Errorf("remote verdict missing score")
	}
	if verdict.Decision == "" {
		verdict.Decision = decisionForScore(verdict.Score)
	}
	return verdict, nil
}

// evaluateFallback anchors the interview score to the resume score:
// 0.7*resume + 20, capped at 95.
func evaluateFallback(resumeScore float64) InterviewEvaluation {
	score := math.Min(0.7*resumeScore+20, 95)
	score = math.Round(score*10) / 10
	return InterviewEvaluation{
		Score:    score,
		Decision: decisionForScore(score),
		Summary:  "Derived from resume score; evaluator unavailable.",
		Source:   SourceFallback,
	}
}
