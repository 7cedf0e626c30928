package api

import (
	"context"
	"net/http"
	"os"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/hireops/hireops/internal/mailbox"
)

// ListAgents handles GET /api/v1/settings/agents
func (h *Handlers) ListAgents(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"agents": h.oracle.Registry().List(),
	})
}

// GetAgent handles GET /api/v1/settings/agents/{name}
func (h *Handlers) GetAgent(w http.ResponseWriter, r *http.Request) {
	agent, err := h.oracle.Registry().Get(chi.URLParam(r, "name"))
	if err != nil {
		respondDomainError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, agent)
}

// UpdateAgent handles PATCH /api/v1/settings/agents/{name}. Either
// field may be omitted to leave it unchanged.
func (h *Handlers) UpdateAgent(w http.ResponseWriter, r *http.Request) {
	var req struct {
		AgentID *string `json:"agent_id"`
		Mock    *bool   `json:"mock"`
	}
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	agent, err := h.oracle.Registry().Update(chi.URLParam(r, "name"), req.AgentID, req.Mock)
	if err != nil {
		respondDomainError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, agent)
}

// UsageReport handles GET /api/v1/settings/usage
func (h *Handlers) UsageReport(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"agents": h.usage.Report(),
	})
}

// UsageLogs handles GET /api/v1/settings/usage/logs?limit=100
func (h *Handlers) UsageLogs(w http.ResponseWriter, r *http.Request) {
	limit := 100
	if v, err := strconv.Atoi(r.URL.Query().Get("limit")); err == nil && v > 0 {
		limit = v
	}
	records := h.usage.Recent(limit)
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"records": records,
		"count":   len(records),
	})
}

// ConfigEcho handles GET /api/v1/settings/config, echoing the running
// configuration with secrets omitted.
func (h *Handlers) ConfigEcho(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"server": map[string]interface{}{
			"host": h.cfg.Server.Host,
			"port": h.cfg.Server.Port,
		},
		"company": map[string]interface{}{
			"name":         h.cfg.Company.Name,
			"frontend_url": h.cfg.Company.FrontendURL,
		},
		"oracle": map[string]interface{}{
			"base_url":        h.cfg.Oracle.BaseURL,
			"timeout_seconds": h.cfg.Oracle.TimeoutSeconds,
		},
		"mailbox": map[string]interface{}{
			"host":                  h.cfg.Mailbox.Host,
			"port":                  h.cfg.Mailbox.Port,
			"folder":                h.cfg.Mailbox.Folder,
			"poll_interval_seconds": h.cfg.Mailbox.PollIntervalSeconds,
		},
		"ses": map[string]interface{}{
			"region":       h.cfg.SES.Region,
			"from_address": h.cfg.SES.FromAddress,
		},
		"screening": map[string]interface{}{
			"link_expiry_hours": h.cfg.Screening.LinkExpiryHours,
		},
	})
}

// EnvCheck handles GET /api/v1/settings/env-check, reporting which
// integrations are configured without exposing any values.
func (h *Handlers) EnvCheck(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"oracle_base_url":   h.cfg.Oracle.BaseURL != "",
		"oracle_api_key":    h.cfg.Oracle.APIKey != "",
		"ses_from_address":  h.cfg.SES.FromAddress != "",
		"aws_credentials":   os.Getenv("AWS_ACCESS_KEY_ID") != "" || os.Getenv("AWS_PROFILE") != "",
		"webhook_secret":    h.cfg.Webhook.Secret != "",
		"mailbox_connected": h.mailbox.Status().Connected,
	})
}

// ConnectMailbox handles POST /api/v1/settings/mailbox/connect
func (h *Handlers) ConnectMailbox(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Host     string `json:"host"`
		Port     int    `json:"port"`
		Username string `json:"username"`
		Password string `json:"password"`
		Folder   string `json:"folder"`
	}
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	err := h.mailbox.Connect(r.Context(), mailbox.Credentials{
		Host:     req.Host,
		Port:     req.Port,
		Username: req.Username,
		Password: req.Password,
		Folder:   req.Folder,
	})
	if err != nil {
		respondDomainError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, h.mailbox.Status())
}

// DisconnectMailbox handles POST /api/v1/settings/mailbox/disconnect
func (h *Handlers) DisconnectMailbox(w http.ResponseWriter, r *http.Request) {
	if err := h.mailbox.Disconnect(r.Context()); err != nil {
		respondDomainError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"status": "disconnected"})
}

// MailboxStatus handles GET /api/v1/settings/mailbox/status
func (h *Handlers) MailboxStatus(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, h.mailbox.Status())
}

// SyncMailbox handles POST /api/v1/settings/mailbox/sync. The process
// flag also queues fetched mail into the workflow.
func (h *Handlers) SyncMailbox(w http.ResponseWriter, r *http.Request) {
	process := r.URL.Query().Get("process") != "false"
	result, err := h.mailbox.Sync(r.Context(), process)
	if err != nil {
		respondDomainError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, result)
}

// StartMailboxListener handles POST /api/v1/settings/mailbox/listener/start
func (h *Handlers) StartMailboxListener(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Mode string `json:"mode"`
	}
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Mode == "" {
		req.Mode = mailbox.ModeIdle
	}
	// the listener outlives this request, so it gets its own context
	if err := h.mailbox.StartListener(context.Background(), req.Mode); err != nil {
		respondDomainError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, h.mailbox.Status())
}

// StopMailboxListener handles POST /api/v1/settings/mailbox/listener/stop
func (h *Handlers) StopMailboxListener(w http.ResponseWriter, r *http.Request) {
	h.mailbox.StopListener()
	respondJSON(w, http.StatusOK, h.mailbox.Status())
}
