// Package postgres persists audit events to the audit_logs table.
package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	audit "serenyx/pkg/platform/audit"
)

// Store implements audit.Store on database/sql. Rows are append-only;
// duplicate inserts are ignored via ON CONFLICT DO NOTHING.
type Store struct {
	db *sql.DB
}

func New(db *sql.DB) *Store {
	return &Store{db: db}
}

// EnsureSchema creates the audit_logs table when it does not exist yet.
func (s *Store) EnsureSchema(ctx context.Context) error {
	const ddl = `
		CREATE TABLE IF NOT EXISTS audit_logs (
			id         uuid PRIMARY KEY,
			category   text NOT NULL,
			timestamp  timestamptz NOT NULL,
			actor_id   text NOT NULL DEFAULT '',
			action     text NOT NULL,
			resource   text NOT NULL,
			outcome    text NOT NULL,
			request_id text NOT NULL DEFAULT '',
			client_ip  text NOT NULL DEFAULT '',
			device     text NOT NULL DEFAULT '',
			details    jsonb
		)
	`
	if _, err := s.db.ExecContext(ctx, ddl); err != nil {
		return fmt.Errorf("ensure audit_logs schema: %w", err)
	}
	return nil
}

// Append writes one audit event.
func (s *Store) Append(ctx context.Context, event audit.Event) error {
	var details []byte
	if len(event.Details) > 0 {
		var err error
		details, err = json.Marshal(event.Details)
		if err != nil {
			return fmt.Errorf("marshal audit details: %w", err)
		}
	}

	ts := event.Timestamp
	if ts.IsZero() {
		ts = time.Now()
	}

	const query = `
		INSERT INTO audit_logs (
			id, category, timestamp, actor_id, action, resource,
			outcome, request_id, client_ip, device, details
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		ON CONFLICT (id) DO NOTHING
	`
	_, err := s.db.ExecContext(ctx, query,
		uuid.New(),
		string(event.Category),
		ts,
		event.ActorID,
		string(event.Action),
		event.Resource,
		string(event.Outcome),
		event.RequestID,
		event.ClientIP,
		event.Device,
		details,
	)
	if err != nil {
		return fmt.Errorf("insert audit event: %w", err)
	}
	return nil
}

// ListByActor returns events for one actor, most recent first.
func (s *Store) ListByActor(ctx context.Context, actorID string) ([]audit.Event, error) {
	const query = `
		SELECT category, timestamp, actor_id, action, resource,
			   outcome, request_id, client_ip, device, details
		FROM audit_logs
		WHERE actor_id = $1
		ORDER BY timestamp DESC
	`
	rows, err := s.db.QueryContext(ctx, query, actorID)
	if err != nil {
		return nil, fmt.Errorf("query audit events: %w", err)
	}
	defer rows.Close()

	return scanEvents(rows)
}

// ListRecent returns the N most recent events across all actors.
func (s *Store) ListRecent(ctx context.Context, limit int) ([]audit.Event, error) {
	const query = `
		SELECT category, timestamp, actor_id, action, resource,
			   outcome, request_id, client_ip, device, details
		FROM audit_logs
		ORDER BY timestamp DESC
		LIMIT $1
	`
	rows, err := s.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("query audit events: %w", err)
	}
	defer rows.Close()

	return scanEvents(rows)
}

func scanEvents(rows *sql.Rows) ([]audit.Event, error) {
	var events []audit.Event
	for rows.Next() {
		var (
			event    audit.Event
			category string
			action   string
			outcome  string
			details  []byte
		)
		err := rows.Scan(
			&category,
			&event.Timestamp,
			&event.ActorID,
			&action,
			&event.Resource,
			&outcome,
			&event.RequestID,
			&event.ClientIP,
			&event.Device,
			&details,
		)
		if err != nil {
			return nil, fmt.Errorf("scan audit event: %w", err)
		}
		event.Category = audit.Category(category)
		event.Action = audit.Action(action)
		event.Outcome = audit.Outcome(outcome)
		if len(details) > 0 {
			if err := json.Unmarshal(details, &event.Details); err != nil {
				return nil, fmt.Errorf("unmarshal audit details: %w", err)
			}
		}
		events = append(events, event)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate audit events: %w", err)
	}
	return events, nil
}
