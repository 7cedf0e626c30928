package oracle

import (
	"context"
	"encoding/json"
	"log"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/hireops/hireops/internal/store"
)

// Email categories
const (
	CategoryCandidateApplication = "candidate_application"
	CategoryGeneral              = "general"
)

// Classification is the classifier verdict for one inbound email
type Classification struct {
	Category     string  `json:"category"`
	Confidence   float64 `json:"confidence"`
	DetectedRole string  `json:"detected_role,omitempty"`
	Reasoning    string  `json:"reasoning,omitempty"`
	Source       string  `json:"source"`
}

var resumeExtensions = map[string]bool{
	".pdf":  true,
	".docx": true,
	".doc":  true,
}

var applicationKeywords = []string{
	"apply", "application", "resume", "cv", "position",
	"role", "job", "opportunity", "hiring",
}

var rolePattern = regexp.MustCompile(`(?i)(?:for|as)(?: the| a| an)? ([a-z][a-z /+#.-]{2,60}?)(?: position| role|[.,!\n]|$)`)

// ClassifyEmail decides whether an email is a candidate application.
// The remote classifier is consulted when configured and not mocked;
// any failure falls back to the deterministic heuristic.
func (c *Client) ClassifyEmail(ctx context.Context, email *store.Email) Classification {
	settings, _ := c.registry.Get(AgentClassifier)
	if !settings.Mock && settings.AgentID != "" {
		verdict, err := c.classifyRemote(ctx, settings.AgentID, email)
		if err == nil {
			return verdict
		}
		log.Printf("[oracle] classifier fallback for email %s: %v", email.ID, err)
	}
	return classifyFallback(email)
}

func (c *Client) classifyRemote(ctx context.Context, agentID string, email *store.Email) (Classification, error) {
	attachments := make([]string, 0, len(email.Attachments))
	for _, a := range email.Attachments {
		attachments = append(attachments, a.Filename)
	}
	body, err := c.invoke(ctx, AgentClassifier, agentID, map[string]interface{}{
		"subject":     email.Subject,
		"body":        email.BodyText,
		"from":        email.FromAddress,
		"attachments": attachments,
	})
	if err != nil {
		return Classification{}, err
	}

	var raw struct {
		Category     string  `json:"category"`
		Class        string  `json:"class"`
		Label        string  `json:"label"`
		Confidence   float64 `json:"confidence"`
		DetectedRole string  `json:"detected_role"`
		Role         string  `json:"role"`
		Reasoning    string  `json:"reasoning"`
	}
	if err := json.Unmarshal(unwrapEnvelope(body), &raw); err != nil {
		return Classification{}, err
	}

	verdict := Classification{
		Category:     firstNonEmpty(raw.Category, raw.Class, raw.Label),
		Confidence:   raw.Confidence,
		DetectedRole: firstNonEmpty(raw.DetectedRole, raw.Role),
		Reasoning:    raw.Reasoning,
		Source:       SourceRemote,
	}
	if verdict.Category == "" {
		verdict.Category = CategoryGeneral
	}
	if verdict.Category != CategoryCandidateApplication {
		verdict.Category = normalizeCategory(verdict.Category)
	}
	if verdict.Confidence == 0 {
		verdict.Confidence = 0.5
	}
	return verdict, nil
}

func normalizeCategory(category string) string {
	switch strings.ToLower(strings.TrimSpace(category)) {
	case "candidate_application", "application", "candidate", "job_application":
		return CategoryCandidateApplication
	default:
		return CategoryGeneral
	}
}

// classifyFallback is the deterministic heuristic: a resume-looking
// attachment, or at least two application keywords in the subject and
// body combined, marks a candidate application.
func classifyFallback(email *store.Email) Classification {
	hasResume := false
	for _, a := range email.Attachments {
		if resumeExtensions[strings.ToLower(filepath.Ext(a.Filename))] {
			hasResume = true
			break
		}
	}

	text := strings.ToLower(email.Subject + " " + email.BodyText)
	hits := 0
	for _, kw := range applicationKeywords {
		if strings.Contains(text, kw) {
			hits++
		}
	}

	if hasResume || hits >= 2 {
		confidence := 0.78
		if hasResume {
			confidence = 0.92
		}
		return Classification{
			Category:     CategoryCandidateApplication,
			Confidence:   confidence,
			DetectedRole: detectRole(email.Subject, email.BodyText),
			Reasoning:    "keyword and attachment heuristic",
			Source:       SourceFallback,
		}
	}
	return Classification{
		Category:   CategoryGeneral,
		Confidence: 0.85,
		Reasoning:  "no application signals",
		Source:     SourceFallback,
	}
}

// detectRole pulls a role name out of phrases like
// "applying for the Backend Engineer position".
func detectRole(subject, body string) string {
	for _, text := range []string{subject, body} {
		if m := rolePattern.FindStringSubmatch(text); m != nil {
			role := strings.TrimSpace(m[1])
			if len(role) > 2 && len(strings.Fields(role)) <= 6 {
				return titleCase(role)
			}
		}
	}
	return ""
}

func titleCase(s string) string {
	words := strings.Fields(s)
	for i, w := range words {
		words[i] = strings.ToUpper(w[:1]) + w[1:]
	}
	return strings.Join(words, " ")
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
