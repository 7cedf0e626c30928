package oracle

import (
	"fmt"
	"sync"

	"github.com/hireops/hireops/internal/config"
)

// Oracle names used by the registry and the usage report
const (
	AgentClassifier   = "classifier"
	AgentResumeScorer = "resume_scorer"
	AgentEvaluator    = "evaluator"
	AgentSummarizer   = "summarizer"
	AgentJobGenerator = "job_generator"
)

// AgentSettings is one oracle's runtime configuration
type AgentSettings struct {
	Name    string `json:"name"`
	AgentID string `json:"agent_id"`
	Mock    bool   `json:"mock"`
}

// Registry holds per-oracle settings behind a mutex so the dashboard
// can flip mock mode at runtime without racing in-flight pipeline work.
// Readers get copies, never live references.
type Registry struct {
	mu     sync.RWMutex
	agents map[string]AgentSettings
}

// NewRegistry seeds the registry from static configuration
func NewRegistry(cfg config.OracleConfig) *Registry {
	return &Registry{
		agents: map[string]AgentSettings{
			AgentClassifier:   {Name: AgentClassifier, AgentID: cfg.ClassifierAgentID, Mock: cfg.ClassifierMock},
			AgentResumeScorer: {Name: AgentResumeScorer, AgentID: cfg.ResumeAgentID, Mock: cfg.ResumeMock},
			AgentEvaluator:    {Name: AgentEvaluator, AgentID: cfg.EvaluatorAgentID, Mock: cfg.EvaluatorMock},
			AgentSummarizer:   {Name: AgentSummarizer, AgentID: cfg.SummaryAgentID, Mock: cfg.SummaryMock},
			AgentJobGenerator: {Name: AgentJobGenerator, AgentID: cfg.JobGenAgentID, Mock: cfg.JobGenMock},
		},
	}
}

// Get returns a copy of one oracle's settings
func (r *Registry) Get(name string) (AgentSettings, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.agents[name]
	if !ok {
		return AgentSettings{}, fmt.Errorf("unknown agent %q", name)
	}
	return s, nil
}

// List returns a snapshot of all oracle settings
func (r *Registry) List() []AgentSettings {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]AgentSettings, 0, len(r.agents))
	for _, name := range []string{AgentClassifier, AgentResumeScorer, AgentEvaluator, AgentSummarizer, AgentJobGenerator} {
		out = append(out, r.agents[name])
	}
	return out
}

// Update patches one oracle's settings. A nil field leaves the current
// value in place.
func (r *Registry) Update(name string, agentID *string, mock *bool) (AgentSettings, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.agents[name]
	if !ok {
		return AgentSettings{}, fmt.Errorf("unknown agent %q", name)
	}
	if agentID != nil {
		s.AgentID = *agentID
	}
	if mock != nil {
		s.Mock = *mock
	}
	r.agents[name] = s
	return s, nil
}
