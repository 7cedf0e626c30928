package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// CreateEmail inserts an inbound email. A duplicate message_id is not
// an error: the existing row is returned so sync stays idempotent.
func (s *Store) CreateEmail(ctx context.Context, e *Email) (*Email, bool, error) {
	if e.MessageID == "" {
		return nil, false, fmt.Errorf("%w: message_id is required", ErrInvalid)
	}
	existing, err := s.GetEmailByMessageID(ctx, e.MessageID)
	if err != nil {
		return nil, false, err
	}
	if existing != nil {
		return existing, false, nil
	}

	if e.ID == "" {
		e.ID = uuid.New().String()
	}
	if e.ReceivedAt.IsZero() {
		e.ReceivedAt = time.Now().UTC()
	}
	e.CreatedAt = time.Now().UTC()
	atts, _ := json.Marshal(e.Attachments)

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO emails (id, message_id, uid, from_address, from_name, subject,
			body_text, attachments, received_at, classification,
			classification_confidence, processed, candidate_id, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		e.ID, e.MessageID, e.UID, e.FromAddress, e.FromName, e.Subject,
		e.BodyText, string(atts), e.ReceivedAt, e.Classification,
		e.Confidence, e.Processed, nullString(e.CandidateID), e.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			existing, gerr := s.GetEmailByMessageID(ctx, e.MessageID)
			if gerr == nil && existing != nil {
				return existing, false, nil
			}
		}
		return nil, false, fmt.Errorf("insert email: %w", err)
	}
	return e, true, nil
}

// GetEmail returns an email by ID
func (s *Store) GetEmail(ctx context.Context, id string) (*Email, error) {
	e, err := s.scanEmail(s.db.QueryRowContext(ctx, emailSelect+` WHERE id = ?`, id))
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	return e, err
}

// GetEmailByMessageID returns an email by RFC message ID, or nil if none
func (s *Store) GetEmailByMessageID(ctx context.Context, messageID string) (*Email, error) {
	e, err := s.scanEmail(s.db.QueryRowContext(ctx, emailSelect+` WHERE message_id = ?`, messageID))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return e, err
}

// ListEmails returns emails newest-first, optionally below a processed level
func (s *Store) ListEmails(ctx context.Context, maxProcessed int, limit int) ([]*Email, error) {
	query := emailSelect
	args := []interface{}{}
	if maxProcessed >= 0 {
		query += ` WHERE processed <= ?`
		args = append(args, maxProcessed)
	}
	query += ` ORDER BY received_at DESC`
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list emails: %w", err)
	}
	defer rows.Close()

	var out []*Email
	for rows.Next() {
		e, err := s.scanEmail(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// SetEmailClassification stores the classifier verdict and lifts the
// email to the classified rung.
func (s *Store) SetEmailClassification(ctx context.Context, id, classification string, confidence float64) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE emails SET classification = ?, classification_confidence = ?
		WHERE id = ?`, classification, confidence, id)
	if err != nil {
		return fmt.Errorf("set classification: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return s.AdvanceEmailProcessed(ctx, id, EmailClassified)
}

// AdvanceEmailProcessed raises the processed level. The ladder is
// monotone: a lower level never overwrites a higher one.
func (s *Store) AdvanceEmailProcessed(ctx context.Context, id string, level int) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE emails SET processed = ? WHERE id = ? AND processed < ?`,
		level, id, level)
	if err != nil {
		return fmt.Errorf("advance processed: %w", err)
	}
	return nil
}

// LinkEmailCandidate attaches the materialized candidate to the email
func (s *Store) LinkEmailCandidate(ctx context.Context, id, candidateID string) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE emails SET candidate_id = ? WHERE id = ?`, candidateID, id)
	if err != nil {
		return fmt.Errorf("link email candidate: %w", err)
	}
	return nil
}

// MaxEmailUID returns the highest IMAP UID seen, the sync watermark
func (s *Store) MaxEmailUID(ctx context.Context) (uint32, error) {
	var uid sql.NullInt64
	if err := s.db.QueryRowContext(ctx, `SELECT MAX(uid) FROM emails`).Scan(&uid); err != nil {
		return 0, fmt.Errorf("max uid: %w", err)
	}
	if !uid.Valid {
		return 0, nil
	}
	return uint32(uid.Int64), nil
}

const emailSelect = `
	SELECT id, message_id, uid, from_address, from_name, subject, body_text,
		attachments, received_at, classification, classification_confidence,
		processed, candidate_id, created_at
	FROM emails`

func (s *Store) scanEmail(row rowScanner) (*Email, error) {
	var e Email
	var atts string
	var candidateID sql.NullString
	err := row.Scan(&e.ID, &e.MessageID, &e.UID, &e.FromAddress, &e.FromName,
		&e.Subject, &e.BodyText, &atts, &e.ReceivedAt, &e.Classification,
		&e.Confidence, &e.Processed, &candidateID, &e.CreatedAt)
	if err != nil {
		return nil, err
	}
	json.Unmarshal([]byte(atts), &e.Attachments)
	e.CandidateID = candidateID.String
	return &e, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
