package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// CreateCandidate inserts a candidate. Email must be unique.
func (s *Store) CreateCandidate(ctx context.Context, c *Candidate) error {
	if c.Email == "" {
		return fmt.Errorf("%w: candidate email is required", ErrInvalid)
	}
	if c.ID == "" {
		c.ID = uuid.New().String()
	}
	if c.Source == "" {
		c.Source = "manual"
	}
	c.CreatedAt = time.Now().UTC()

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO candidates (id, name, email, phone, source, notes, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		c.ID, c.Name, c.Email, c.Phone, c.Source, c.Notes, c.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: candidate with email %s already exists", ErrConflict, c.Email)
		}
		return fmt.Errorf("insert candidate: %w", err)
	}
	return nil
}

// GetCandidate returns a candidate by ID
func (s *Store) GetCandidate(ctx context.Context, id string) (*Candidate, error) {
	return s.scanCandidate(s.db.QueryRowContext(ctx, `
		SELECT id, name, email, phone, source, notes, created_at
		FROM candidates WHERE id = ?`, id))
}

// GetCandidateByEmail returns a candidate by email address, or nil if none
func (s *Store) GetCandidateByEmail(ctx context.Context, email string) (*Candidate, error) {
	c, err := s.scanCandidate(s.db.QueryRowContext(ctx, `
		SELECT id, name, email, phone, source, notes, created_at
		FROM candidates WHERE email = ?`, email))
	if err == ErrNotFound {
		return nil, nil
	}
	return c, err
}

// ListCandidates returns candidates, optionally matching a name/email search term
func (s *Store) ListCandidates(ctx context.Context, search string) ([]*Candidate, error) {
	query := `SELECT id, name, email, phone, source, notes, created_at FROM candidates`
	args := []interface{}{}
	if search != "" {
		query += ` WHERE name LIKE ? OR email LIKE ?`
		like := "%" + search + "%"
		args = append(args, like, like)
	}
	query += ` ORDER BY created_at DESC`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list candidates: %w", err)
	}
	defer rows.Close()

	var out []*Candidate
	for rows.Next() {
		c, err := s.scanCandidate(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// UpdateCandidateNotes replaces the notes field
func (s *Store) UpdateCandidateNotes(ctx context.Context, id, notes string) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE candidates SET notes = ? WHERE id = ?`, notes, id)
	if err != nil {
		return fmt.Errorf("update candidate notes: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *Store) scanCandidate(row rowScanner) (*Candidate, error) {
	var c Candidate
	err := row.Scan(&c.ID, &c.Name, &c.Email, &c.Phone, &c.Source, &c.Notes, &c.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan candidate: %w", err)
	}
	return &c, nil
}
