// Package mailbox watches an IMAP account and feeds new mail into the
// ingestion pipeline, by server push (IDLE) or by polling.
package mailbox

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/hireops/hireops/internal/store"
)

// Listener modes
const (
	ModeOff     = "off"
	ModeIdle    = "idle"
	ModePolling = "polling"
)

const (
	// idleKeepalive stays under the common 30-minute server IDLE cap
	idleKeepalive = 25 * time.Minute

	reconnectBase = 5 * time.Second
	reconnectMax  = 5 * time.Minute

	maxRecentResults = 50
)

// Enqueuer receives stored email IDs for processing. The pipeline
// worker's bounded queue implements it.
type Enqueuer interface {
	Enqueue(ctx context.Context, emailID string) error
}

// SyncResult is one sync pass, kept in the recent ring for the status
// endpoint.
type SyncResult struct {
	At       time.Time `json:"at"`
	Fetched  int       `json:"fetched"`
	Stored   int       `json:"stored"`
	Enqueued int       `json:"enqueued"`
	Error    string    `json:"error,omitempty"`
}

// Status is the dashboard snapshot of the manager
type Status struct {
	Connected     bool         `json:"connected"`
	Mode          string       `json:"mode"`
	Host          string       `json:"host,omitempty"`
	Username      string       `json:"username,omitempty"`
	Folder        string       `json:"folder,omitempty"`
	Watermark     uint32       `json:"watermark"`
	LastSyncAt    *time.Time   `json:"last_sync_at,omitempty"`
	LastError     string       `json:"last_error,omitempty"`
	RecentResults []SyncResult `json:"recent_results"`
}

// Manager owns the single mailbox connection and its listener loop.
// One mutex guards the session, credentials, watermark, and mode.
type Manager struct {
	store        *store.Store
	dial         Dialer
	enqueuer     Enqueuer
	pollInterval time.Duration

	mu        sync.Mutex
	session   Session
	creds     Credentials
	mode      string
	watermark uint32
	lastSync  *time.Time
	lastError string
	recent    []SyncResult

	loopCancel context.CancelFunc
	wg         sync.WaitGroup
}

// NewManager creates a disconnected manager
func NewManager(s *store.Store, dial Dialer, enq Enqueuer, pollInterval time.Duration) *Manager {
	if pollInterval <= 0 {
		pollInterval = time.Minute
	}
	return &Manager{
		store:        s,
		dial:         dial,
		enqueuer:     enq,
		pollInterval: pollInterval,
		mode:         ModeOff,
	}
}

// Connect opens the session, persists the credentials, and snapshots
// the UID watermark from what is already stored.
func (m *Manager) Connect(ctx context.Context, creds Credentials) error {
	if creds.Host == "" || creds.Username == "" {
		return fmt.Errorf("%w: host and username are required", store.ErrInvalid)
	}
	if creds.Port == 0 {
		creds.Port = 993
	}
	if creds.Folder == "" {
		creds.Folder = "INBOX"
	}

	session, err := m.dial(ctx, creds)
	if err != nil {
		m.setError(err)
		return fmt.Errorf("connect mailbox: %w", err)
	}

	watermark, err := m.store.MaxEmailUID(ctx)
	if err != nil {
		session.Close()
		return err
	}
	if err := saveCredentials(ctx, m.store, creds); err != nil {
		session.Close()
		return err
	}

	m.mu.Lock()
	if m.session != nil {
		m.session.Close()
	}
	m.session = session
	m.creds = creds
	m.watermark = watermark
	m.lastError = ""
	m.mu.Unlock()

	log.Printf("[mailbox] connected %s@%s (watermark %d)", creds.Username, creds.Host, watermark)
	return nil
}

// Restore reconnects from persisted credentials at startup. Missing
// credentials are not an error.
func (m *Manager) Restore(ctx context.Context) error {
	creds, err := loadCredentials(ctx, m.store)
	if err == store.ErrNotFound {
		return nil
	}
	if err != nil {
		return err
	}
	return m.Connect(ctx, creds)
}

// Disconnect stops the listener, closes the session, and forgets the
// stored credentials.
func (m *Manager) Disconnect(ctx context.Context) error {
	m.StopListener()

	m.mu.Lock()
	if m.session != nil {
		m.session.Close()
		m.session = nil
	}
	m.creds = Credentials{}
	m.mu.Unlock()

	return clearCredentials(ctx, m.store)
}

// Sync fetches mail past the watermark, stores it, and optionally
// queues each stored email for the pipeline.
func (m *Manager) Sync(ctx context.Context, process bool) (SyncResult, error) {
	m.mu.Lock()
	session := m.session
	watermark := m.watermark
	m.mu.Unlock()

	result := SyncResult{At: time.Now().UTC()}
	if session == nil {
		result.Error = "not connected"
		m.pushResult(result)
		return result, fmt.Errorf("%w: mailbox not connected", store.ErrInvalid)
	}

	msgs, err := session.FetchSince(ctx, watermark)
	if err != nil {
		result.Error = err.Error()
		m.pushResult(result)
		m.setError(err)
		return result, fmt.Errorf("sync: %w", err)
	}
	result.Fetched = len(msgs)

	maxUID := watermark
	for _, msg := range msgs {
		email := &store.Email{
			MessageID:   msg.MessageID,
			UID:         msg.UID,
			FromAddress: msg.FromAddress,
			FromName:    msg.FromName,
			Subject:     msg.Subject,
			BodyText:    msg.BodyText,
			Attachments: msg.Attachments,
			ReceivedAt:  msg.ReceivedAt,
		}
		stored, created, err := m.store.CreateEmail(ctx, email)
		if err != nil {
			log.Printf("[mailbox] store email uid %d: %v", msg.UID, err)
			continue
		}
		if created {
			result.Stored++
		}
		if msg.UID > maxUID {
			maxUID = msg.UID
		}
		if process && m.enqueuer != nil {
			if err := m.enqueuer.Enqueue(ctx, stored.ID); err != nil {
				log.Printf("[mailbox] enqueue email %s: %v", stored.ID, err)
				continue
			}
			result.Enqueued++
		}
	}

	now := time.Now().UTC()
	m.mu.Lock()
	if maxUID > m.watermark {
		m.watermark = maxUID
	}
	m.lastSync = &now
	m.lastError = ""
	m.mu.Unlock()

	m.pushResult(result)
	if result.Fetched > 0 {
		log.Printf("[mailbox] sync: %d fetched, %d stored, %d enqueued",
			result.Fetched, result.Stored, result.Enqueued)
	}
	return result, nil
}

// StartListener launches the background loop in the given mode.
// Starting replaces any running listener.
func (m *Manager) StartListener(ctx context.Context, mode string) error {
	if mode != ModeIdle && mode != ModePolling {
		return fmt.Errorf("%w: unknown listener mode %q", store.ErrInvalid, mode)
	}
	m.mu.Lock()
	connected := m.session != nil
	m.mu.Unlock()
	if !connected {
		return fmt.Errorf("%w: mailbox not connected", store.ErrInvalid)
	}

	m.StopListener()

	// cancellation has to reach the blocking IDLE wait, so the loop
	// runs under its own derived context
	loopCtx, cancel := context.WithCancel(ctx)

	m.mu.Lock()
	m.mode = mode
	m.loopCancel = cancel
	m.mu.Unlock()

	m.wg.Add(1)
	go func() {
		defer m.wg.Done()
		log.Printf("[mailbox] listener started (%s)", mode)
		if mode == ModeIdle {
			m.idleLoop(loopCtx)
		} else {
			m.pollLoop(loopCtx)
		}
		log.Println("[mailbox] listener stopped")
	}()
	return nil
}

// StopListener stops the loop and waits for it
func (m *Manager) StopListener() {
	m.mu.Lock()
	if m.loopCancel != nil {
		m.loopCancel()
		m.loopCancel = nil
	}
	m.mode = ModeOff
	m.mu.Unlock()
	m.wg.Wait()
}

// idleLoop blocks in IDLE and syncs on every wake-up. Connection
// failures reconnect with doubling back-off from 5s up to 5m.
func (m *Manager) idleLoop(ctx context.Context) {
	// catch up on anything that arrived while nobody was listening
	if _, err := m.Sync(ctx, true); err != nil {
		log.Printf("[mailbox] initial sync: %v", err)
	}

	backoff := reconnectBase
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		m.mu.Lock()
		session := m.session
		m.mu.Unlock()
		if session == nil {
			if !m.reconnect(ctx, &backoff) {
				return
			}
			continue
		}

		err := session.WaitForUpdates(ctx, idleKeepalive)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			log.Printf("[mailbox] idle: %v", err)
			// Connect may have swapped in a fresh session while this
			// wait was blocked; only drop and re-dial our own
			if m.dropSessionIf(session) {
				m.setError(err)
				if !m.reconnect(ctx, &backoff) {
					return
				}
			}
			continue
		}
		backoff = reconnectBase

		if _, err := m.Sync(ctx, true); err != nil {
			log.Printf("[mailbox] idle sync: %v", err)
		}
	}
}

// pollLoop syncs on a fixed interval
func (m *Manager) pollLoop(ctx context.Context) {
	ticker := time.NewTicker(m.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if _, err := m.Sync(ctx, true); err != nil {
				log.Printf("[mailbox] poll sync: %v", err)
			}
		case <-ctx.Done():
			return
		}
	}
}

// reconnect re-dials with the saved credentials. Returns false when
// the loop should exit instead of retrying.
func (m *Manager) reconnect(ctx context.Context, backoff *time.Duration) bool {
	select {
	case <-time.After(*backoff):
	case <-ctx.Done():
		return false
	}
	if *backoff < reconnectMax {
		*backoff *= 2
		if *backoff > reconnectMax {
			*backoff = reconnectMax
		}
	}

	m.mu.Lock()
	creds := m.creds
	m.mu.Unlock()

	session, err := m.dial(ctx, creds)
	if err != nil {
		log.Printf("[mailbox] reconnect: %v", err)
		m.setError(err)
		return true
	}

	m.mu.Lock()
	m.session = session
	m.lastError = ""
	m.mu.Unlock()
	log.Printf("[mailbox] reconnected %s@%s", creds.Username, creds.Host)
	return true
}

// Status returns a snapshot for the dashboard
func (m *Manager) Status() Status {
	m.mu.Lock()
	defer m.mu.Unlock()

	recent := make([]SyncResult, len(m.recent))
	copy(recent, m.recent)

	return Status{
		Connected:     m.session != nil,
		Mode:          m.mode,
		Host:          m.creds.Host,
		Username:      m.creds.Username,
		Folder:        m.creds.Folder,
		Watermark:     m.watermark,
		LastSyncAt:    m.lastSync,
		LastError:     m.lastError,
		RecentResults: recent,
	}
}

// dropSessionIf closes and clears the session only when it is still
// the one the caller was using. Reports whether it dropped.
func (m *Manager) dropSessionIf(old Session) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.session != old {
		return false
	}
	if m.session != nil {
		m.session.Close()
		m.session = nil
	}
	return true
}

func (m *Manager) setError(err error) {
	m.mu.Lock()
	m.lastError = err.Error()
	m.mu.Unlock()
}

func (m *Manager) pushResult(r SyncResult) {
	m.mu.Lock()
	m.recent = append(m.recent, r)
	if len(m.recent) > maxRecentResults {
		m.recent = m.recent[len(m.recent)-maxRecentResults:]
	}
	m.mu.Unlock()
}
