// Package oracle holds the clients for the external AI agents and the
// deterministic fallbacks used when an agent is unconfigured, mocked,
// or unreachable. Every oracle call is single-shot: a failed remote
// call falls back, it is never retried.
package oracle

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/hireops/hireops/internal/config"
)

// Verdict sources
const (
	SourceRemote   = "remote"
	SourceFallback = "fallback"
)

// UsageRecorder receives one record per remote agent invocation
type UsageRecorder interface {
	Record(agent, agentID string, latency time.Duration, success bool)
}

// Client invokes external agents over the shared agent API
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	registry   *Registry
	usage      UsageRecorder
}

// NewClient creates an agent API client from the oracle configuration
func NewClient(cfg config.OracleConfig) *Client {
	return &Client{
		baseURL:  cfg.BaseURL,
		apiKey:   cfg.APIKey,
		registry: NewRegistry(cfg),
		httpClient: &http.Client{
			Timeout: cfg.Timeout(),
		},
	}
}

// SetHTTPClient sets a custom HTTP client (useful for testing)
func (c *Client) SetHTTPClient(client *http.Client) {
	c.httpClient = client
}

// SetUsageRecorder attaches the usage sink
func (c *Client) SetUsageRecorder(u UsageRecorder) {
	c.usage = u
}

// Registry returns the oracle settings registry
func (c *Client) Registry() *Registry {
	return c.registry
}

// invoke POSTs the input payload to one agent and returns the raw
// response body. The caller decides what a failure means; this layer
// never retries.
func (c *Client) invoke(ctx context.Context, name, agentID string, input interface{}) ([]byte, error) {
	if c.baseURL == "" || agentID == "" {
		return nil, fmt.Errorf("agent %s not configured", name)
	}

	payload, err := json.Marshal(map[string]interface{}{"input": input})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request body: %w", err)
	}

	reqURL := fmt.Sprintf("%s/v1/agents/%s/invoke", c.baseURL, agentID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, reqURL, bytes.NewBuffer(payload))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.record(name, agentID, start, false)
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		c.record(name, agentID, start, false)
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		c.record(name, agentID, start, false)
		return nil, fmt.Errorf("agent API error (status %d): %s", resp.StatusCode, string(body))
	}

	c.record(name, agentID, start, true)
	return body, nil
}

func (c *Client) record(name, agentID string, start time.Time, success bool) {
	if c.usage != nil {
		c.usage.Record(name, agentID, time.Since(start), success)
	}
}

// unwrapEnvelope digs the agent verdict out of the response body.
// Providers wrap results inconsistently, so every known wrapper key is
// tried before assuming the body itself is the verdict. A verdict
// delivered as a JSON-encoded string is unwrapped one more level.
func unwrapEnvelope(body []byte) json.RawMessage {
	var envelope map[string]json.RawMessage
	if err := json.Unmarshal(body, &envelope); err != nil {
		return body
	}
	for _, key := range []string{"output", "result", "response", "data", "completion"} {
		if raw, ok := envelope[key]; ok {
			var nested string
			if err := json.Unmarshal(raw, &nested); err == nil {
				return json.RawMessage(nested)
			}
			return raw
		}
	}
	return body
}
