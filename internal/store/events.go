package store

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
)

// RecordEvent appends an audit event. Payload is marshaled to JSON;
// a nil payload stores an empty string. Event failures are logged,
// never fatal: the audit trail must not break the pipeline.
func (s *Store) RecordEvent(ctx context.Context, entityType, entityID, eventType string, payload interface{}) {
	var body string
	if payload != nil {
		b, err := json.Marshal(payload)
		if err == nil {
			body = string(b)
		}
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO events (entity_type, entity_id, event_type, payload)
		VALUES (?, ?, ?, ?)`, entityType, entityID, eventType, body)
	if err != nil {
		log.Printf("[store] record event %s/%s %s: %v", entityType, entityID, eventType, err)
	}
}

// ListEvents returns events for one entity, newest first
func (s *Store) ListEvents(ctx context.Context, entityType, entityID string, limit int) ([]*Event, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, entity_type, entity_id, event_type, payload, created_at
		FROM events WHERE entity_type = ? AND entity_id = ?
		ORDER BY id DESC LIMIT ?`, entityType, entityID, limit)
	if err != nil {
		return nil, fmt.Errorf("list events: %w", err)
	}
	defer rows.Close()
	return collectEvents(rows)
}

// RecentEvents returns the latest events across all entities
func (s *Store) RecentEvents(ctx context.Context, limit int) ([]*Event, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, entity_type, entity_id, event_type, payload, created_at
		FROM events ORDER BY id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("recent events: %w", err)
	}
	defer rows.Close()
	return collectEvents(rows)
}

func collectEvents(rows interface {
	Next() bool
	Scan(...interface{}) error
	Err() error
}) ([]*Event, error) {
	var out []*Event
	for rows.Next() {
		var e Event
		if err := rows.Scan(&e.ID, &e.EntityType, &e.EntityID, &e.EventType, &e.Payload, &e.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, &e)
	}
	return out, rows.Err()
}
