package oracle

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"math"
	"strings"

	"github.com/hireops/hireops/internal/store"
)

// Resume decisions
const (
	DecisionAdvance = "advance"
	DecisionHold    = "hold"
	DecisionReject  = "reject"
)

// ResumeScore is the resume-scorer verdict for one application
type ResumeScore struct {
	Score              float64  `json:"score"`
	Decision           string   `json:"decision"`
	Summary            string   `json:"summary,omitempty"`
	Strengths          []string `json:"strengths,omitempty"`
	Gaps               []string `json:"gaps,omitempty"`
	ScreeningQuestions []string `json:"screening_questions,omitempty"`
	Source             string   `json:"source"`
}

// ScoreResume evaluates resume text against a job. Falls back to the
// deterministic keyword-ratio formula when the remote scorer is
// unavailable or returns an unusable verdict.
func (c *Client) ScoreResume(ctx context.Context, job *store.Job, resumeText string) ResumeScore {
	settings, _ := c.registry.Get(AgentResumeScorer)
	if !settings.Mock && settings.AgentID != "" {
		verdict, err := c.scoreResumeRemote(ctx, settings.AgentID, job, resumeText)
		if err == nil {
			return verdict
		}
		log.Printf("[oracle] resume scorer fallback for job %s: %v", job.ID, err)
	}
	return scoreResumeFallback(job, resumeText)
}

// remoteResumeEnvelope is the nested schema the hosted scorer returns.
// Flat schemas are handled by the same struct through shared keys.
type remoteResumeEnvelope struct {
	Score    float64 `json:"score"`
	Decision string  `json:"decision"`
	Summary  string  `json:"summary"`

	CandidateSummary struct {
		Summary   string   `json:"summary"`
		Strengths []string `json:"strengths"`
		Gaps      []string `json:"gaps"`
	} `json:"candidate_summary"`
	Match struct {
		Score          float64 `json:"score"`
		OverallScore   float64 `json:"overall_score"`
		Recommendation string  `json:"recommendation"`
	} `json:"match"`
	ScreeningQuestions []string `json:"screening_questions"`

	Strengths      []string `json:"strengths"`
	Gaps           []string `json:"gaps"`
	Recommendation string   `json:"recommendation"`
}

func (c *Client) scoreResumeRemote(ctx context.Context, agentID string, job *store.Job, resumeText string) (ResumeScore, error) {
	body, err := c.invoke(ctx, AgentResumeScorer, agentID, map[string]interface{}{
		"job_title":        job.Title,
		"job_description":  job.Description,
		"must_have_skills": job.MustHaveSkills,
		"nice_to_have":     job.NiceToHaveSkills,
		"resume_text":      resumeText,
	})
	if err != nil {
		return ResumeScore{}, err
	}

	var raw remoteResumeEnvelope
	if err := json.Unmarshal(unwrapEnvelope(body), &raw); err != nil {
		return ResumeScore{}, err
	}

	verdict := ResumeScore{
		Score:              firstNonZero(raw.Score, raw.Match.Score, raw.Match.OverallScore),
		Decision:           normalizeDecision(firstNonEmpty(raw.Decision, raw.Recommendation, raw.Match.Recommendation)),
		Summary:            firstNonEmpty(raw.Summary, raw.CandidateSummary.Summary),
		Strengths:          firstNonEmptySlice(raw.Strengths, raw.CandidateSummary.Strengths),
		Gaps:               firstNonEmptySlice(raw.Gaps, raw.CandidateSummary.Gaps),
		ScreeningQuestions: raw.ScreeningQuestions,
		Source:             SourceRemote,
	}
	if verdict.Score <= 0 {
		return ResumeScore{}, fmt.Errorf("remote verdict missing score")
	}
	if verdict.Decision == "" {
		verdict.Decision = decisionForScore(verdict.Score)
	}
	return verdict, nil
}

// normalizeDecision maps provider recommendation tokens onto the three
// pipeline decisions.
func normalizeDecision(d string) string {
	switch strings.ToLower(strings.TrimSpace(d)) {
	case DecisionAdvance, "screen", "shortlist", "proceed", "yes", "strong_match":
		return DecisionAdvance
	case DecisionHold, "maybe", "review":
		return DecisionHold
	case DecisionReject, "no", "decline", "pass":
		return DecisionReject
	default:
		return ""
	}
}

func decisionForScore(score float64) string {
	switch {
	case score >= 70:
		return DecisionAdvance
	case score >= 50:
		return DecisionHold
	default:
		return DecisionReject
	}
}

// scoreResumeFallback scores by skill coverage:
// 40 base + 40*must_ratio + 15*nice_ratio + 5, capped at 98.
func scoreResumeFallback(job *store.Job, resumeText string) ResumeScore {
	text := strings.ToLower(resumeText)

	matched := func(skills []string) (int, []string, []string) {
		var hit, miss []string
		for _, s := range skills {
			if s != "" && strings.Contains(text, strings.ToLower(s)) {
				hit = append(hit, s)
			} else if s != "" {
				miss = append(miss, s)
			}
		}
		return len(hit), hit, miss
	}

	mustHits, strengths, gaps := matched(job.MustHaveSkills)
	niceHits, niceStrengths, _ := matched(job.NiceToHaveSkills)

	mustRatio := 1.0
	if len(job.MustHaveSkills) > 0 {
		mustRatio = float64(mustHits) / float64(len(job.MustHaveSkills))
	}
	niceRatio := 1.0
	if len(job.NiceToHaveSkills) > 0 {
		niceRatio = float64(niceHits) / float64(len(job.NiceToHaveSkills))
	}

	score := math.Min(40+40*mustRatio+15*niceRatio+5, 98)
	score = math.Round(score*10) / 10

	return ResumeScore{
		Score:    score,
		Decision: decisionForScore(score),
		Summary: fmt.Sprintf("Matched %d/%d required and %d/%d preferred skills for %s.",
			mustHits, len(job.MustHaveSkills), niceHits, len(job.NiceToHaveSkills), job.Title),
		Strengths:          append(strengths, niceStrengths...),
		Gaps:               gaps,
		ScreeningQuestions: defaultScreeningQuestions(job),
		Source:             SourceFallback,
	}
}

func defaultScreeningQuestions(job *store.Job) []string {
	questions := []string{
		fmt.Sprintf("Walk me through your most relevant experience for the %s role.", job.Title),
		"What interests you about this position?",
	}
	if len(job.MustHaveSkills) > 0 {
		questions = append(questions,
			fmt.Sprintf("Describe a project where you used %s.", job.MustHaveSkills[0]))
	}
	questions = append(questions, "What is your availability and notice period?")
	return questions
}

func firstNonZero(values ...float64) float64 {
	for _, v := range values {
		if v != 0 {
			return v
		}
	}
	return 0
}

func firstNonEmptySlice(slices ...[]string) []string {
	for _, s := range slices {
		if len(s) > 0 {
			return s
		}
	}
	return nil
}
