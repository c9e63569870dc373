// ABOUTME: Last-known gateway state on SQLite for offline display.
// ABOUTME: Status is a single upserted row; agents and projects are replaced in one transaction.

package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/2389/coven-control/internal/gatewayapi"
)

// SaveStatus upserts the single status row.
func (s *SQLiteStore) SaveStatus(ctx context.Context, status gatewayapi.Status) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO gateway_status (id, version, environment, server_time_utc, cached_at_utc)
		VALUES (1, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			version = excluded.version,
			environment = excluded.environment,
			server_time_utc = excluded.server_time_utc,
			cached_at_utc = excluded.cached_at_utc
	`, status.Version, status.Environment, formatTime(status.ServerTime), formatTime(s.now()))
	if err != nil {
		return fmt.Errorf("saving gateway status: %w", err)
	}
	return nil
}

// ReadStatus returns ErrNotFound until a status was saved.
func (s *SQLiteStore) ReadStatus(ctx context.Context) (*CachedStatus, error) {
	var cs CachedStatus
	var serverTime, cachedAt string
	err := s.db.QueryRowContext(ctx, `
		SELECT version, environment, server_time_utc, cached_at_utc
		FROM gateway_status WHERE id = 1
	`).Scan(&cs.Version, &cs.Environment, &serverTime, &cachedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("reading gateway status: %w", err)
	}
	if cs.ServerTime, err = parseTime(serverTime); err != nil {
		return nil, fmt.Errorf("parsing server time: %w", err)
	}
	if cs.CachedAt, err = parseTime(cachedAt); err != nil {
		return nil, fmt.Errorf("parsing cached_at: %w", err)
	}
	return &cs, nil
}

// SaveAgents replaces all cached agents.
func (s *SQLiteStore) SaveAgents(ctx context.Context, agents []gatewayapi.AgentSummary) error {
	return s.replace(ctx, "cache_agents", func(tx *sql.Tx) error {
		stmt, err := tx.PrepareContext(ctx,
			`INSERT OR REPLACE INTO cache_agents (id, name, status, last_heartbeat_utc) VALUES (?, ?, ?, ?)`)
		if err != nil {
			return err
		}
		defer stmt.Close()

		for _, a := range agents {
			var heartbeat sql.NullString
			if !a.LastHeartbeat.IsZero() {
				heartbeat = nullString(formatTime(a.LastHeartbeat))
			}
			if _, err := stmt.ExecContext(ctx, a.ID, a.Name, a.Status, heartbeat); err != nil {
				return fmt.Errorf("inserting agent %s: %w", a.ID, err)
			}
		}
		return nil
	})
}

// ReadAgents returns cached agents ordered by name.
func (s *SQLiteStore) ReadAgents(ctx context.Context) ([]gatewayapi.AgentSummary, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, name, status, last_heartbeat_utc FROM cache_agents ORDER BY name, id`)
	if err != nil {
		return nil, fmt.Errorf("querying cached agents: %w", err)
	}
	defer rows.Close()

	agents := []gatewayapi.AgentSummary{}
	for rows.Next() {
		var a gatewayapi.AgentSummary
		var heartbeat sql.NullString
		if err := rows.Scan(&a.ID, &a.Name, &a.Status, &heartbeat); err != nil {
			return nil, fmt.Errorf("scanning cached agent: %w", err)
		}
		if heartbeat.Valid {
			if a.LastHeartbeat, err = parseTime(heartbeat.String); err != nil {
				return nil, fmt.Errorf("parsing heartbeat of %s: %w", a.ID, err)
			}
		}
		agents = append(agents, a)
	}
	return agents, rows.Err()
}

// SaveProjects replaces all cached projects.
func (s *SQLiteStore) SaveProjects(ctx context.Context, projects []gatewayapi.ProjectSummary) error {
	return s.replace(ctx, "cache_projects", func(tx *sql.Tx) error {
		stmt, err := tx.PrepareContext(ctx,
			`INSERT OR REPLACE INTO cache_projects (id, name, branch, commit_sha, health) VALUES (?, ?, ?, ?, ?)`)
		if err != nil {
			return err
		}
		defer stmt.Close()

		for _, p := range projects {
			if _, err := stmt.ExecContext(ctx, p.ID, p.Name, p.Branch, p.CommitSHA, p.Health); err != nil {
				return fmt.Errorf("inserting project %s: %w", p.ID, err)
			}
		}
		return nil
	})
}

// ReadProjects returns cached projects ordered by name.
func (s *SQLiteStore) ReadProjects(ctx context.Context) ([]gatewayapi.ProjectSummary, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, name, branch, commit_sha, health FROM cache_projects ORDER BY name, id`)
	if err != nil {
		return nil, fmt.Errorf("querying cached projects: %w", err)
	}
	defer rows.Close()

	projects := []gatewayapi.ProjectSummary{}
	for rows.Next() {
		var p gatewayapi.ProjectSummary
		if err := rows.Scan(&p.ID, &p.Name, &p.Branch, &p.CommitSHA, &p.Health); err != nil {
			return nil, fmt.Errorf("scanning cached project: %w", err)
		}
		projects = append(projects, p)
	}
	return projects, rows.Err()
}

// replace clears table and refills it inside one transaction. table is
// always a package constant.
func (s *SQLiteStore) replace(ctx context.Context, table string, fill func(*sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning %s replace: %w", table, err)
	}
	defer tx.Rollback() //nolint:errcheck

	if _, err := tx.ExecContext(ctx, "DELETE FROM "+table); err != nil {
		return fmt.Errorf("clearing %s: %w", table, err)
	}
	if err := fill(tx); err != nil {
		return fmt.Errorf("filling %s: %w", table, err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing %s replace: %w", table, err)
	}
	s.logger.Debug("replaced cache table", "table", table)
	return nil
}
