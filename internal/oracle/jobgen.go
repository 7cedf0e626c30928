package oracle

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
)

// JobDraft is a generated job posting ready for review
type JobDraft struct {
	Title            string   `json:"title"`
	Department       string   `json:"department"`
	Location         string   `json:"location"`
	Description      string   `json:"description"`
	MustHaveSkills   []string `json:"must_have_skills"`
	NiceToHaveSkills []string `json:"nice_to_have_skills"`
	Source           string   `json:"source"`
}

// GenerateJobDescription drafts a posting from a title and department
func (c *Client) GenerateJobDescription(ctx context.Context, title, department, location string) JobDraft {
	settings, _ := c.registry.Get(AgentJobGenerator)
	if !settings.Mock && settings.AgentID != "" {
		draft, err := c.generateRemote(ctx, settings.AgentID, title, department, location)
		if err == nil {
			return draft
		}
		log.Printf("[oracle] job generator fallback for %q: %v", title, err)
	}
	return generateFallback(title, department, location)
}

func (c *Client) generateRemote(ctx context.Context, agentID, title, department, location string) (JobDraft, error) {
	body, err := c.invoke(ctx, AgentJobGenerator, agentID, map[string]interface{}{
		"title":      title,
		"department": department,
		"location":   location,
	})
	if err != nil {
		return JobDraft{}, err
	}

	var draft JobDraft
	if err := json.Unmarshal(unwrapEnvelope(body), &draft); err != nil {
		return JobDraft{}, err
	}
	if draft.Description == "" {
		return JobDraft{}, fmt.Errorf("remote draft missing description")
	}
	if draft.Title == "" {
		draft.Title = title
	}
	if draft.Department == "" {
		draft.Department = department
	}
	if draft.Location == "" {
		draft.Location = location
	}
	draft.Source = SourceRemote
	return draft, nil
}

func generateFallback(title, department, location string) JobDraft {
	return JobDraft{
		Title:      title,
		Department: department,
		Location:   location,
		Description: fmt.Sprintf(
			"We are hiring a %s to join the %s team. You will own projects end to end, "+
				"collaborate across functions, and raise the quality bar for everything you ship. "+
				"Candidates should bring strong fundamentals, clear communication, and a track record of delivery.",
			title, department),
		MustHaveSkills:   []string{"3+ years of relevant experience", "strong communication"},
		NiceToHaveSkills: []string{"startup experience"},
		Source:           SourceFallback,
	}
}
