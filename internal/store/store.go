package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"strings"
	"sync"

	_ "modernc.org/sqlite"
)

// Sentinel errors mapped to HTTP statuses at the API layer
var (
	ErrNotFound = errors.New("not found")
	ErrConflict = errors.New("conflict")
	ErrInvalid  = errors.New("invalid")
)

// Store wraps the SQLite database with typed operations
type Store struct {
	db *sql.DB

	mu       sync.Mutex
	appLocks map[string]*sync.Mutex
}

// Open opens (and creates if needed) the SQLite database at path,
// applies the schema, and returns a ready Store. WAL mode keeps
// readers unblocked during pipeline writes.
func Open(path string) (*Store, error) {
	dsn := path + "?_pragma=journal_mode(WAL)&_pragma=synchronous(NORMAL)&_pragma=foreign_keys(ON)&_pragma=busy_timeout(5000)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	// modernc sqlite is single-writer; one connection avoids SQLITE_BUSY churn
	db.SetMaxOpenConns(1)

	s := &Store{db: db, appLocks: make(map[string]*sync.Mutex)}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// NewWithDB wraps an existing database handle. Used by tests.
func NewWithDB(db *sql.DB) (*Store, error) {
	s := &Store{db: db, appLocks: make(map[string]*sync.Mutex)}
	if err := s.migrate(); err != nil {
		return nil, err
	}
	return s, nil
}

// Close closes the underlying database
func (s *Store) Close() error {
	return s.db.Close()
}

// DB exposes the raw handle for report queries
func (s *Store) DB() *sql.DB {
	return s.db
}

func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS jobs (
		id TEXT PRIMARY KEY,
		code TEXT NOT NULL UNIQUE,
		title TEXT NOT NULL,
		department TEXT NOT NULL DEFAULT '',
		location TEXT NOT NULL DEFAULT '',
		description TEXT NOT NULL DEFAULT '',
		must_have_skills TEXT NOT NULL DEFAULT '[]',
		nice_to_have_skills TEXT NOT NULL DEFAULT '[]',
		status TEXT NOT NULL DEFAULT 'open',
		resume_threshold_min REAL,
		interview_threshold_min REAL,
		final_threshold_reject REAL,
		created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
		updated_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
	);

	CREATE TABLE IF NOT EXISTS candidates (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL DEFAULT '',
		email TEXT NOT NULL UNIQUE,
		phone TEXT NOT NULL DEFAULT '',
		source TEXT NOT NULL DEFAULT 'manual',
		notes TEXT NOT NULL DEFAULT '',
		created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
	);

	CREATE TABLE IF NOT EXISTS emails (
		id TEXT PRIMARY KEY,
		message_id TEXT NOT NULL UNIQUE,
		uid INTEGER NOT NULL DEFAULT 0,
		from_address TEXT NOT NULL DEFAULT '',
		from_name TEXT NOT NULL DEFAULT '',
		subject TEXT NOT NULL DEFAULT '',
		body_text TEXT NOT NULL DEFAULT '',
		attachments TEXT NOT NULL DEFAULT '[]',
		received_at TIMESTAMP NOT NULL,
		classification TEXT NOT NULL DEFAULT '',
		classification_confidence REAL NOT NULL DEFAULT 0,
		processed INTEGER NOT NULL DEFAULT 0,
		candidate_id TEXT REFERENCES candidates(id),
		created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
	);

	CREATE TABLE IF NOT EXISTS applications (
		id TEXT PRIMARY KEY,
		candidate_id TEXT NOT NULL REFERENCES candidates(id),
		job_id TEXT NOT NULL REFERENCES jobs(id),
		stage TEXT NOT NULL DEFAULT 'new',
		resume_score REAL,
		resume_score_json TEXT NOT NULL DEFAULT '',
		interview_score REAL,
		interview_score_json TEXT NOT NULL DEFAULT '',
		screening_transcript TEXT NOT NULL DEFAULT '',
		screening_status TEXT NOT NULL DEFAULT 'pending',
		interview_link_status TEXT NOT NULL DEFAULT '',
		interview_face_tracking_json TEXT NOT NULL DEFAULT '',
		final_score REAL,
		final_summary TEXT NOT NULL DEFAULT '',
		email_draft_sent INTEGER NOT NULL DEFAULT 0,
		scheduled_interview_at TIMESTAMP,
		scheduled_interview_slot TEXT NOT NULL DEFAULT '',
		source_email_id TEXT,
		ai_next_action TEXT NOT NULL DEFAULT '',
		created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
		updated_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
		UNIQUE(candidate_id, job_id)
	);

	CREATE TABLE IF NOT EXISTS interview_links (
		id TEXT PRIMARY KEY,
		token TEXT NOT NULL UNIQUE,
		application_id TEXT NOT NULL REFERENCES applications(id),
		round INTEGER NOT NULL DEFAULT 1,
		status TEXT NOT NULL DEFAULT 'generated',
		voice_conversation_id TEXT NOT NULL DEFAULT '',
		face_tracking_json TEXT NOT NULL DEFAULT '',
		expires_at TIMESTAMP NOT NULL,
		created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
		sent_at TIMESTAMP,
		opened_at TIMESTAMP,
		started_at TIMESTAMP,
		completed_at TIMESTAMP
	);

	CREATE TABLE IF NOT EXISTS events (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		entity_type TEXT NOT NULL,
		entity_id TEXT NOT NULL,
		event_type TEXT NOT NULL,
		payload TEXT NOT NULL DEFAULT '',
		created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
	);

	CREATE TABLE IF NOT EXISTS settings (
		key TEXT PRIMARY KEY,
		value TEXT NOT NULL,
		updated_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
	);

	CREATE INDEX IF NOT EXISTS idx_emails_processed ON emails(processed);
	CREATE INDEX IF NOT EXISTS idx_applications_stage ON applications(stage);
	CREATE INDEX IF NOT EXISTS idx_links_application ON interview_links(application_id);
	CREATE INDEX IF NOT EXISTS idx_events_entity ON events(entity_type, entity_id);
	`
	if _, err := s.db.Exec(schema); err != nil {
		return fmt.Errorf("apply schema: %w", err)
	}

	// Additive migrations for databases created before a column existed.
	addColumns := []string{
		`ALTER TABLE jobs ADD COLUMN resume_threshold_min REAL`,
		`ALTER TABLE jobs ADD COLUMN interview_threshold_min REAL`,
		`ALTER TABLE jobs ADD COLUMN final_threshold_reject REAL`,
		`ALTER TABLE applications ADD COLUMN final_score REAL`,
		`ALTER TABLE applications ADD COLUMN final_summary TEXT NOT NULL DEFAULT ''`,
		`ALTER TABLE applications ADD COLUMN email_draft_sent INTEGER NOT NULL DEFAULT 0`,
		`ALTER TABLE applications ADD COLUMN scheduled_interview_at TIMESTAMP`,
		`ALTER TABLE applications ADD COLUMN scheduled_interview_slot TEXT NOT NULL DEFAULT ''`,
		`ALTER TABLE interview_links ADD COLUMN round INTEGER NOT NULL DEFAULT 1`,
		`ALTER TABLE interview_links ADD COLUMN face_tracking_json TEXT NOT NULL DEFAULT ''`,
	}
	for _, stmt := range addColumns {
		if _, err := s.db.Exec(stmt); err != nil {
			if strings.Contains(err.Error(), "duplicate column name") {
				continue
			}
			log.Printf("[store] migration %q: %v", stmt, err)
		}
	}
	return nil
}

// WithTx runs fn inside a transaction, rolling back on error
func (s *Store) WithTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	if err := fn(tx); err != nil {
		return err
	}
	return tx.Commit()
}

// LockApplication serializes mutations of one application across
// goroutines (webhook vs candidate submission vs dashboard). Returns
// the unlock func.
func (s *Store) LockApplication(id string) func() {
	s.mu.Lock()
	m, ok := s.appLocks[id]
	if !ok {
		m = &sync.Mutex{}
		s.appLocks[id] = m
	}
	s.mu.Unlock()

	m.Lock()
	return m.Unlock
}

func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "UNIQUE constraint failed") ||
		strings.Contains(msg, "constraint failed")
}
