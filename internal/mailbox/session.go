package mailbox

import (
	"context"
	"time"

	"github.com/hireops/hireops/internal/store"
)

// IncomingMessage is one fetched inbox message, decoded enough for the
// pipeline to store it.
type IncomingMessage struct {
	UID         uint32
	MessageID   string
	FromAddress string
	FromName    string
	Subject     string
	BodyText    string
	Attachments []store.Attachment
	ReceivedAt  time.Time
}

// Session is one live IMAP connection. The manager owns exactly one
// at a time; tests substitute fakes through the Dialer.
type Session interface {
	// FetchSince returns messages with UID strictly greater than sinceUID
	FetchSince(ctx context.Context, sinceUID uint32) ([]*IncomingMessage, error)

	// WaitForUpdates blocks in IMAP IDLE until the server announces new
	// mail or the keepalive window elapses. Returning without error
	// means "check the mailbox"; the caller re-issues IDLE itself.
	WaitForUpdates(ctx context.Context, keepalive time.Duration) error

	Close() error
}

// Dialer opens a session for the given account
type Dialer func(ctx context.Context, creds Credentials) (Session, error)
