package screening

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/hireops/hireops/internal/store"
)

// VerifySignature checks the HMAC-SHA256 hex signature the voice
// provider puts on webhook deliveries. Comparison is constant time.
// An empty secret disables verification entirely.
func VerifySignature(secret string, body []byte, signature string) bool {
	if secret == "" {
		return true
	}
	if signature == "" {
		return false
	}
	signature = strings.TrimPrefix(signature, "sha256=")

	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	expected := hex.EncodeToString(mac.Sum(nil))
	return hmac.Equal([]byte(expected), []byte(signature))
}

// Sign produces the signature for a payload. Exported for tests and
// the seeding tool.
func Sign(secret string, body []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}

// WebhookTurn is one utterance in the provider's transcript payload
type WebhookTurn struct {
	Role           string  `json:"role"`
	Message        string  `json:"message"`
	TimeInCallSecs float64 `json:"time_in_call_secs"`
}

// WebhookPayload is the provider's conversation-completed delivery
type WebhookPayload struct {
	ConversationID string        `json:"conversation_id"`
	Status         string        `json:"status"`
	Transcript     []WebhookTurn `json:"transcript"`
}

// ParseWebhookPayload decodes a delivery body after its signature has
// been verified
func ParseWebhookPayload(body []byte) (*WebhookPayload, error) {
	var payload WebhookPayload
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, fmt.Errorf("decode webhook payload: %w", err)
	}
	return &payload, nil
}

// FormatTranscript renders webhook turns into the stored transcript
// form: one "[12s] Role: message" line per turn.
func FormatTranscript(turns []WebhookTurn) string {
	var b strings.Builder
	for _, t := range turns {
		role := t.Role
		if role == "" {
			role = "speaker"
		}
		role = strings.ToUpper(role[:1]) + role[1:]
		fmt.Fprintf(&b, "[%.0fs] %s: %s\n", t.TimeInCallSecs, role, t.Message)
	}
	return strings.TrimRight(b.String(), "\n")
}

// HandleWebhook processes a verified conversation-completed delivery:
// find the link by conversation ID, close it, and install the
// transcript. A webhook for an unknown conversation is ignored, not an
// error, because providers replay deliveries.
func (e *Engine) HandleWebhook(ctx context.Context, payload *WebhookPayload) (*store.Application, error) {
	if payload.ConversationID == "" {
		return nil, fmt.Errorf("%w: conversation_id is required", store.ErrInvalid)
	}

	link, err := e.store.GetLinkByConversationID(ctx, payload.ConversationID)
	if err != nil {
		return nil, err
	}
	if link == nil {
		return nil, nil
	}

	e.store.RecordEvent(ctx, "application", link.ApplicationID, "webhook_transcript_received",
		map[string]interface{}{"conversation_id": payload.ConversationID, "turns": len(payload.Transcript)})

	if link.Status != store.LinkStatusInterviewCompleted {
		now := e.now()
		link.Status = store.LinkStatusInterviewCompleted
		link.CompletedAt = &now
		if err := e.store.SaveLink(ctx, link); err != nil {
			return nil, err
		}
		e.store.RecordEvent(ctx, "application", link.ApplicationID, "interview_completed",
			map[string]interface{}{"link_id": link.ID, "origin": "webhook"})
	}

	return e.installTranscript(ctx, link.ApplicationID, FormatTranscript(payload.Transcript), "webhook")
}
