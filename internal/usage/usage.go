// Package usage keeps a bounded in-memory log of external agent calls
// and aggregates it for the settings dashboard.
package usage

import (
	"sync"
	"time"
)

const maxRecords = 500

// Record is one remote agent invocation
type Record struct {
	Agent     string        `json:"agent"`
	AgentID   string        `json:"agent_id"`
	Latency   time.Duration `json:"-"`
	LatencyMS int64         `json:"latency_ms"`
	Success   bool          `json:"success"`
	At        time.Time     `json:"at"`
}

// AgentReport aggregates one agent's calls
type AgentReport struct {
	Agent        string  `json:"agent"`
	Calls        int     `json:"calls"`
	Failures     int     `json:"failures"`
	AvgLatencyMS float64 `json:"avg_latency_ms"`
}

// Log is the bounded usage sink. Oldest records fall off once the cap
// is reached.
type Log struct {
	mu      sync.Mutex
	records []Record
}

// NewLog creates an empty usage log
func NewLog() *Log {
	return &Log{}
}

// Record implements oracle.UsageRecorder
func (l *Log) Record(agent, agentID string, latency time.Duration, success bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.records = append(l.records, Record{
		Agent:     agent,
		AgentID:   agentID,
		Latency:   latency,
		LatencyMS: latency.Milliseconds(),
		Success:   success,
		At:        time.Now().UTC(),
	})
	if len(l.records) > maxRecords {
		l.records = l.records[len(l.records)-maxRecords:]
	}
}

// Recent returns up to limit records, newest first
func (l *Log) Recent(limit int) []Record {
	l.mu.Lock()
	defer l.mu.Unlock()
	if limit <= 0 || limit > len(l.records) {
		limit = len(l.records)
	}
	out := make([]Record, 0, limit)
	for i := len(l.records) - 1; i >= len(l.records)-limit; i-- {
		out = append(out, l.records[i])
	}
	return out
}

// Report aggregates the retained records per agent
func (l *Log) Report() []AgentReport {
	l.mu.Lock()
	defer l.mu.Unlock()

	byAgent := make(map[string]*AgentReport)
	var order []string
	totals := make(map[string]time.Duration)
	for _, r := range l.records {
		rep, ok := byAgent[r.Agent]
		if !ok {
			rep = &AgentReport{Agent: r.Agent}
			byAgent[r.Agent] = rep
			order = append(order, r.Agent)
		}
		rep.Calls++
		if !r.Success {
			rep.Failures++
		}
		totals[r.Agent] += r.Latency
	}

	out := make([]AgentReport, 0, len(order))
	for _, agent := range order {
		rep := byAgent[agent]
		if rep.Calls > 0 {
			rep.AvgLatencyMS = float64(totals[agent].Milliseconds()) / float64(rep.Calls)
		}
		out = append(out, *rep)
	}
	return out
}
