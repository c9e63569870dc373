// ABOUTME: Event journal on SQLite: insert-or-ignore keyed by event id.
// ABOUTME: The unique key, not application logic, guarantees one row per event.

package store

import (
	"context"
	"fmt"

	"github.com/2389/coven-control/internal/event"
)

// Append stores env once. Re-appending an existing EventID is a no-op.
func (s *SQLiteStore) Append(ctx context.Context, env event.Envelope) (bool, error) {
	if err := env.Validate(); err != nil {
		return false, fmt.Errorf("%w: %v", ErrInvalidEnvelope, err)
	}

	query := `
		INSERT INTO event_journal (event_id, event_type, occurred_at_utc, version, payload_json, correlation_id, inserted_at_utc)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(event_id) DO NOTHING
	`
	res, err := s.db.ExecContext(ctx, query,
		env.EventID,
		env.EventType,
		formatTime(env.OccurredAt),
		env.Version,
		env.PayloadJSON,
		nullString(env.CorrelationID),
		formatTime(s.now()),
	)
	if err != nil {
		return false, fmt.Errorf("appending event %s: %w", env.EventID, err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("checking append of %s: %w", env.EventID, err)
	}
	if n == 0 {
		s.logger.Debug("event already journaled", "event_id", env.EventID)
		return false, nil
	}

	s.logger.Debug("journaled event", "event_id", env.EventID, "event_type", env.EventType)
	return true, nil
}

// HasProcessed reports whether eventID is in the journal.
func (s *SQLiteStore) HasProcessed(ctx context.Context, eventID string) (bool, error) {
	var exists int
	err := s.db.QueryRowContext(ctx,
		`SELECT EXISTS(SELECT 1 FROM event_journal WHERE event_id = ?)`, eventID,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("checking event %s: %w", eventID, err)
	}
	return exists == 1, nil
}

// ReadRecent returns up to max(1, limit) envelopes, most recently inserted
// first.
func (s *SQLiteStore) ReadRecent(ctx context.Context, limit int) ([]event.Envelope, error) {
	if limit < 1 {
		limit = 1
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT event_id, event_type, occurred_at_utc, version, payload_json, correlation_id
		FROM event_journal
		ORDER BY rowid DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("querying journal: %w", err)
	}
	defer rows.Close()

	var envs []event.Envelope
	for rows.Next() {
		var env event.Envelope
		var occurredAt string
		var correlationID *string
		if err := rows.Scan(&env.EventID, &env.EventType, &occurredAt, &env.Version, &env.PayloadJSON, &correlationID); err != nil {
			return nil, fmt.Errorf("scanning journal row: %w", err)
		}
		t, err := parseTime(occurredAt)
		if err != nil {
			return nil, fmt.Errorf("parsing occurred_at of %s: %w", env.EventID, err)
		}
		env.OccurredAt = t
		if correlationID != nil {
			env.CorrelationID = *correlationID
		}
		envs = append(envs, env)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating journal: %w", err)
	}
	return envs, nil
}
