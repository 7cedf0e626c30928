package mailbox

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hireops/hireops/internal/store"
)

type fakeSession struct {
	mu       sync.Mutex
	messages []*IncomingMessage
	fetchErr error
	closed   bool
	wake     chan struct{}
	waitErr  chan error
}

func newFakeSession() *fakeSession {
	return &fakeSession{
		wake:    make(chan struct{}, 1),
		waitErr: make(chan error, 1),
	}
}

func (f *fakeSession) addMessage(uid uint32, from, subject, body string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.messages = append(f.messages, &IncomingMessage{
		UID:         uid,
		MessageID:   fmt.Sprintf("<msg-%d@test>", uid),
		FromAddress: from,
		Subject:     subject,
		BodyText:    body,
		ReceivedAt:  time.Now().UTC(),
	})
}

func (f *fakeSession) FetchSince(_ context.Context, sinceUID uint32) ([]*IncomingMessage, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fetchErr != nil {
		return nil, f.fetchErr
	}
	var out []*IncomingMessage
	for _, m := range f.messages {
		if m.UID > sinceUID {
			out = append(out, m)
		}
	}
	return out, nil
}

func (f *fakeSession) WaitForUpdates(ctx context.Context, _ time.Duration) error {
	select {
	case <-f.wake:
		return nil
	case err := <-f.waitErr:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (f *fakeSession) Close() error {
	f.mu.Lock()
	f.closed = true
	f.mu.Unlock()
	return nil
}

func (f *fakeSession) isClosed() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.closed
}

type fakeEnqueuer struct {
	mu  sync.Mutex
	ids []string
}

func (f *fakeEnqueuer) Enqueue(_ context.Context, emailID string) error {
	f.mu.Lock()
	f.ids = append(f.ids, emailID)
	f.mu.Unlock()
	return nil
}

func (f *fakeEnqueuer) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.ids)
}

func newTestStore(t *testing.T) *store.Store {
	t.Helper()
	s, err := store.Open(filepath.Join(t.TempDir(), "mailbox.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func dialerFor(session Session) Dialer {
	return func(context.Context, Credentials) (Session, error) {
		return session, nil
	}
}

func TestConnectPersistsCredentials(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	session := newFakeSession()
	m := NewManager(s, dialerFor(session), nil, time.Minute)

	err := m.Connect(ctx, Credentials{
		Host: "imap.example.com", Username: "jobs@example.com", Password: "s3cret",
	})
	require.NoError(t, err)

	status := m.Status()
	assert.True(t, status.Connected)
	assert.Equal(t, "imap.example.com", status.Host)
	assert.Equal(t, "INBOX", status.Folder)

	loaded, err := loadCredentials(ctx, s)
	require.NoError(t, err)
	assert.Equal(t, "s3cret", loaded.Password)
	assert.Equal(t, 993, loaded.Port)
}

func TestConnectRequiresHostAndUser(t *testing.T) {
	s := newTestStore(t)
	m := NewManager(s, dialerFor(newFakeSession()), nil, time.Minute)
	err := m.Connect(context.Background(), Credentials{Host: "imap.example.com"})
	assert.ErrorIs(t, err, store.ErrInvalid)
}

func TestRestoreWithoutCredentialsIsNoop(t *testing.T) {
	s := newTestStore(t)
	m := NewManager(s, dialerFor(newFakeSession()), nil, time.Minute)
	require.NoError(t, m.Restore(context.Background()))
	assert.False(t, m.Status().Connected)
}

func TestRestoreReconnects(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	require.NoError(t, saveCredentials(ctx, s, Credentials{
		Host: "imap.example.com", Port: 993, Username: "jobs@example.com",
		Password: "s3cret", Folder: "INBOX",
	}))

	m := NewManager(s, dialerFor(newFakeSession()), nil, time.Minute)
	require.NoError(t, m.Restore(ctx))
	assert.True(t, m.Status().Connected)
}

func TestSyncStoresAndEnqueues(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	session := newFakeSession()
	session.addMessage(1, "jane@example.com", "Application", "resume inside")
	session.addMessage(2, "sam@example.com", "Question", "quick question")

	enq := &fakeEnqueuer{}
	m := NewManager(s, dialerFor(session), enq, time.Minute)
	require.NoError(t, m.Connect(ctx, Credentials{Host: "h", Username: "u"}))

	result, err := m.Sync(ctx, true)
	require.NoError(t, err)
	assert.Equal(t, 2, result.Fetched)
	assert.Equal(t, 2, result.Stored)
	assert.Equal(t, 2, result.Enqueued)
	assert.Equal(t, 2, enq.count())
	assert.Equal(t, uint32(2), m.Status().Watermark)

	emails, err := s.ListEmails(ctx, store.EmailMaterialized, 10)
	require.NoError(t, err)
	assert.Len(t, emails, 2)
}

func TestSyncAdvancesWatermark(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	session := newFakeSession()
	session.addMessage(5, "jane@example.com", "Hello", "hi")

	m := NewManager(s, dialerFor(session), nil, time.Minute)
	require.NoError(t, m.Connect(ctx, Credentials{Host: "h", Username: "u"}))

	_, err := m.Sync(ctx, false)
	require.NoError(t, err)
	require.Equal(t, uint32(5), m.Status().Watermark)

	// a second sync past the same messages fetches nothing
	result, err := m.Sync(ctx, false)
	require.NoError(t, err)
	assert.Zero(t, result.Fetched)
}

func TestSyncWithoutConnection(t *testing.T) {
	s := newTestStore(t)
	m := NewManager(s, dialerFor(newFakeSession()), nil, time.Minute)
	_, err := m.Sync(context.Background(), false)
	assert.ErrorIs(t, err, store.ErrInvalid)

	status := m.Status()
	require.Len(t, status.RecentResults, 1)
	assert.Equal(t, "not connected", status.RecentResults[0].Error)
}

func TestSyncFetchErrorRecorded(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	session := newFakeSession()
	session.fetchErr = errors.New("connection reset")

	m := NewManager(s, dialerFor(session), nil, time.Minute)
	require.NoError(t, m.Connect(ctx, Credentials{Host: "h", Username: "u"}))

	_, err := m.Sync(ctx, false)
	require.Error(t, err)
	assert.Equal(t, "connection reset", m.Status().LastError)
}

func TestIdleListenerSyncsOnWake(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	session := newFakeSession()
	enq := &fakeEnqueuer{}
	m := NewManager(s, dialerFor(session), enq, time.Minute)
	require.NoError(t, m.Connect(ctx, Credentials{Host: "h", Username: "u"}))
	require.NoError(t, m.StartListener(ctx, ModeIdle))
	defer m.StopListener()

	assert.Equal(t, ModeIdle, m.Status().Mode)

	session.addMessage(1, "jane@example.com", "Application", "resume")
	session.wake <- struct{}{}

	deadline := time.After(5 * time.Second)
	for enq.count() == 0 {
		select {
		case <-deadline:
			t.Fatal("listener did not sync after wake-up")
		case <-time.After(20 * time.Millisecond):
		}
	}
}

func TestPollingListenerSyncs(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	session := newFakeSession()
	session.addMessage(1, "jane@example.com", "Application", "resume")
	enq := &fakeEnqueuer{}

	m := NewManager(s, dialerFor(session), enq, 30*time.Millisecond)
	require.NoError(t, m.Connect(ctx, Credentials{Host: "h", Username: "u"}))
	require.NoError(t, m.StartListener(ctx, ModePolling))
	defer m.StopListener()

	deadline := time.After(5 * time.Second)
	for enq.count() == 0 {
		select {
		case <-deadline:
			t.Fatal("polling listener did not sync in time")
		case <-time.After(20 * time.Millisecond):
		}
	}
}

func TestStartListenerRejectsBadMode(t *testing.T) {
	s := newTestStore(t)
	m := NewManager(s, dialerFor(newFakeSession()), nil, time.Minute)
	err := m.StartListener(context.Background(), "push")
	assert.ErrorIs(t, err, store.ErrInvalid)
}

func TestStartListenerRequiresConnection(t *testing.T) {
	s := newTestStore(t)
	m := NewManager(s, dialerFor(newFakeSession()), nil, time.Minute)
	err := m.StartListener(context.Background(), ModeIdle)
	assert.ErrorIs(t, err, store.ErrInvalid)
}

func TestDisconnectStopsAndForgets(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	session := newFakeSession()
	m := NewManager(s, dialerFor(session), nil, time.Minute)
	require.NoError(t, m.Connect(ctx, Credentials{Host: "h", Username: "u"}))
	require.NoError(t, m.StartListener(ctx, ModeIdle))

	require.NoError(t, m.Disconnect(ctx))

	status := m.Status()
	assert.False(t, status.Connected)
	assert.Equal(t, ModeOff, status.Mode)
	session.mu.Lock()
	assert.True(t, session.closed)
	session.mu.Unlock()

	_, err := loadCredentials(ctx, s)
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestReconnectAfterSessionDrop(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	first := newFakeSession()
	second := newFakeSession()

	var mu sync.Mutex
	current := Session(first)
	dial := func(context.Context, Credentials) (Session, error) {
		mu.Lock()
		defer mu.Unlock()
		return current, nil
	}

	enq := &fakeEnqueuer{}
	m := NewManager(s, dial, enq, time.Minute)
	require.NoError(t, m.Connect(ctx, Credentials{Host: "h", Username: "u"}))
	require.NoError(t, m.StartListener(ctx, ModeIdle))
	defer m.StopListener()

	// operator reconnects while the listener is blocked on the old session
	mu.Lock()
	current = second
	mu.Unlock()
	require.NoError(t, m.Connect(ctx, Credentials{Host: "h2", Username: "u"}))

	// the stale wait errors out; the fresh session must survive it
	first.waitErr <- errors.New("use of closed connection")

	second.addMessage(1, "jane@example.com", "Application", "resume")
	second.wake <- struct{}{}

	deadline := time.After(5 * time.Second)
	for enq.count() == 0 {
		select {
		case <-deadline:
			t.Fatal("listener never synced through the fresh session")
		case <-time.After(20 * time.Millisecond):
		}
	}
	assert.False(t, second.isClosed())
	assert.True(t, m.Status().Connected)
}

func TestRecentResultsRing(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	m := NewManager(s, dialerFor(newFakeSession()), nil, time.Minute)
	require.NoError(t, m.Connect(ctx, Credentials{Host: "h", Username: "u"}))

	for i := 0; i < maxRecentResults+10; i++ {
		_, err := m.Sync(ctx, false)
		require.NoError(t, err)
	}
	assert.Len(t, m.Status().RecentResults, maxRecentResults)
}
