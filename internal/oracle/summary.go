package oracle

import (
	"context"
	"encoding/json"
	"fmt"
	"log"

	"github.com/hireops/hireops/internal/store"
)

// Summarize produces the final recommendation paragraph stored on the
// application after the decision engine runs.
func (c *Client) Summarize(ctx context.Context, job *store.Job, candidate *store.Candidate, resumeScore, interviewScore, finalScore float64, action string) string {
	settings, _ := c.registry.Get(AgentSummarizer)
	if !settings.Mock && settings.AgentID != "" {
		summary, err := c.summarizeRemote(ctx, settings.AgentID, job, candidate, resumeScore, interviewScore, finalScore, action)
		if err == nil && summary != "" {
			return summary
		}
		if err != nil {
			log.Printf("[oracle] summarizer fallback for candidate %s: %v", candidate.ID, err)
		}
	}
	return summarizeFallback(job, candidate, resumeScore, interviewScore, finalScore, action)
}

func (c *Client) summarizeRemote(ctx context.Context, agentID string, job *store.Job, candidate *store.Candidate, resumeScore, interviewScore, finalScore float64, action string) (string, error) {
	body, err := c.invoke(ctx, AgentSummarizer, agentID, map[string]interface{}{
		"candidate_name":  candidate.Name,
		"job_title":       job.Title,
		"resume_score":    resumeScore,
		"interview_score": interviewScore,
		"final_score":     finalScore,
		"action":          action,
	})
	if err != nil {
		return "", err
	}

	raw := unwrapEnvelope(body)
	var asString string
	if err := json.Unmarshal(raw, &asString); err == nil {
		return asString, nil
	}
	var asObject struct {
		Summary string `json:"summary"`
		Text    string `json:"text"`
	}
	if err := json.Unmarshal(raw, &asObject); err != nil {
		return "", err
	}
	return firstNonEmpty(asObject.Summary, asObject.Text), nil
}

func summarizeFallback(job *store.Job, candidate *store.Candidate, resumeScore, interviewScore, finalScore float64, action string) string {
	name := candidate.Name
	if name == "" {
		name = candidate.Email
	}
	return fmt.Sprintf(
		"%s scored %.1f on resume review and %.1f in the screening interview for %s, for a combined score of %.1f. Recommended action: %s.",
		name, resumeScore, interviewScore, job.Title, finalScore, action)
}
