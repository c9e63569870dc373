// ABOUTME: Mutation audit trail for operator actions taken through the control client.
// ABOUTME: Records who did what to which target; callers redact details before recording.

package store

import (
	"context"
	"fmt"

	"github.com/google/uuid"
)

const (
	defaultAuditLimit = 100
	maxAuditLimit     = 1000
)

// RecordMutation appends an audit entry.
func (s *SQLiteStore) RecordMutation(ctx context.Context, actor, action, target, details string) error {
	id := uuid.New().String()
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO mutation_audit (id, actor, action, target, details, created_at_utc)
		VALUES (?, ?, ?, ?, ?, ?)
	`, id, actor, action, target, details, formatTime(s.now()))
	if err != nil {
		return fmt.Errorf("inserting audit entry: %w", err)
	}

	s.logger.Debug("recorded mutation",
		"id", id,
		"actor", actor,
		"action", action,
		"target", target,
	)
	return nil
}

// ListAudit returns entries newest first. limit defaults to 100, capped at 1000.
func (s *SQLiteStore) ListAudit(ctx context.Context, limit int) ([]AuditEntry, error) {
	limit = normalizeLimit(limit, defaultAuditLimit, maxAuditLimit)

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, actor, action, target, details, created_at_utc
		FROM mutation_audit
		ORDER BY created_at_utc DESC, rowid DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("querying audit trail: %w", err)
	}
	defer rows.Close()

	var entries []AuditEntry
	for rows.Next() {
		var e AuditEntry
		var createdAt string
		if err := rows.Scan(&e.ID, &e.Actor, &e.Action, &e.Target, &e.Details, &createdAt); err != nil {
			return nil, fmt.Errorf("scanning audit entry: %w", err)
		}
		if e.CreatedAt, err = parseTime(createdAt); err != nil {
			return nil, fmt.Errorf("parsing audit timestamp: %w", err)
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}
