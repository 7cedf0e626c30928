package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// CreateInterviewLink inserts a link. The caller is responsible for
// expiring any prior active link for the same application and round
// first (see ExpireActiveLinks).
func (s *Store) CreateInterviewLink(ctx context.Context, l *InterviewLink) error {
	if l.ApplicationID == "" {
		return fmt.Errorf("%w: application_id is required", ErrInvalid)
	}
	if l.ID == "" {
		l.ID = uuid.New().String()
	}
	if l.Token == "" {
		l.Token = strings.ReplaceAll(uuid.New().String(), "-", "")
	}
	if l.Round == 0 {
		l.Round = 1
	}
	if l.Status == "" {
		l.Status = LinkStatusGenerated
	}
	l.CreatedAt = time.Now().UTC()

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO interview_links (id, token, application_id, round, status,
			voice_conversation_id, face_tracking_json, expires_at, created_at,
			sent_at, opened_at, started_at, completed_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		l.ID, l.Token, l.ApplicationID, l.Round, l.Status,
		l.VoiceConversationID, l.FaceTrackingJSON, l.ExpiresAt, l.CreatedAt,
		l.SentAt, l.OpenedAt, l.StartedAt, l.CompletedAt)
	if err != nil {
		return fmt.Errorf("insert interview link: %w", err)
	}
	return nil
}

// GetLinkByToken returns a link by its token
func (s *Store) GetLinkByToken(ctx context.Context, token string) (*InterviewLink, error) {
	l, err := s.scanLink(s.db.QueryRowContext(ctx, linkSelect+` WHERE token = ?`, token))
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	return l, err
}

// GetLink returns a link by ID
func (s *Store) GetLink(ctx context.Context, id string) (*InterviewLink, error) {
	l, err := s.scanLink(s.db.QueryRowContext(ctx, linkSelect+` WHERE id = ?`, id))
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	return l, err
}

// ListLinksByApplication returns all links for an application, newest first
func (s *Store) ListLinksByApplication(ctx context.Context, applicationID string) ([]*InterviewLink, error) {
	rows, err := s.db.QueryContext(ctx,
		linkSelect+` WHERE application_id = ? ORDER BY created_at DESC`, applicationID)
	if err != nil {
		return nil, fmt.Errorf("list links: %w", err)
	}
	defer rows.Close()

	var out []*InterviewLink
	for rows.Next() {
		l, err := s.scanLink(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, l)
	}
	return out, rows.Err()
}

// GetActiveLink returns the non-terminal, non-expired link for an
// application and round, or nil if none.
func (s *Store) GetActiveLink(ctx context.Context, applicationID string, round int) (*InterviewLink, error) {
	l, err := s.scanLink(s.db.QueryRowContext(ctx, linkSelect+`
		WHERE application_id = ? AND round = ?
			AND status NOT IN (?, ?) AND expires_at > ?
		ORDER BY created_at DESC LIMIT 1`,
		applicationID, round,
		LinkStatusInterviewCompleted, LinkStatusExpired, time.Now().UTC()))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return l, err
}

// ExpireActiveLinks marks every non-terminal link for the application
// and round as expired. Keeps the single-active-link invariant when a
// fresh link is minted.
func (s *Store) ExpireActiveLinks(ctx context.Context, applicationID string, round int) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE interview_links SET status = ?
		WHERE application_id = ? AND round = ? AND status NOT IN (?, ?)`,
		LinkStatusExpired, applicationID, round,
		LinkStatusInterviewCompleted, LinkStatusExpired)
	if err != nil {
		return fmt.Errorf("expire links: %w", err)
	}
	return nil
}

// SaveLink rewrites the mutable fields of a link
func (s *Store) SaveLink(ctx context.Context, l *InterviewLink) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE interview_links SET status = ?, voice_conversation_id = ?,
			face_tracking_json = ?, expires_at = ?,
			sent_at = ?, opened_at = ?, started_at = ?, completed_at = ?
		WHERE id = ?`,
		l.Status, l.VoiceConversationID, l.FaceTrackingJSON, l.ExpiresAt,
		l.SentAt, l.OpenedAt, l.StartedAt, l.CompletedAt, l.ID)
	if err != nil {
		return fmt.Errorf("save link: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// GetLinkByConversationID finds the link a voice webhook refers to, or nil
func (s *Store) GetLinkByConversationID(ctx context.Context, conversationID string) (*InterviewLink, error) {
	l, err := s.scanLink(s.db.QueryRowContext(ctx,
		linkSelect+` WHERE voice_conversation_id = ? ORDER BY created_at DESC LIMIT 1`,
		conversationID))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return l, err
}

const linkSelect = `
	SELECT id, token, application_id, round, status, voice_conversation_id,
		face_tracking_json, expires_at, created_at,
		sent_at, opened_at, started_at, completed_at
	FROM interview_links`

func (s *Store) scanLink(row rowScanner) (*InterviewLink, error) {
	var l InterviewLink
	var sent, opened, started, completed sql.NullTime
	err := row.Scan(&l.ID, &l.Token, &l.ApplicationID, &l.Round, &l.Status,
		&l.VoiceConversationID, &l.FaceTrackingJSON, &l.ExpiresAt, &l.CreatedAt,
		&sent, &opened, &started, &completed)
	if err != nil {
		return nil, err
	}
	if sent.Valid {
		t := sent.Time
		l.SentAt = &t
	}
	if opened.Valid {
		t := opened.Time
		l.OpenedAt = &t
	}
	if started.Valid {
		t := started.Time
		l.StartedAt = &t
	}
	if completed.Valid {
		t := completed.Time
		l.CompletedAt = &t
	}
	return &l, nil
}
