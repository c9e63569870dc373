// ABOUTME: SQLite implementation of the store interfaces using modernc.org/sqlite.
// ABOUTME: Opens the database with WAL and a busy timeout and creates the schema.

package store

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

const memoryPath = ":memory:"

// SQLiteStore implements Journal, SnapshotCache, AuditTrail and SecretStore.
type SQLiteStore struct {
	db        *sql.DB
	logger    *slog.Logger
	secretKey *[32]byte
	now       func() time.Time
}

// Option configures a SQLiteStore.
type Option func(*SQLiteStore)

// WithSecretKey enables the secret store.
func WithSecretKey(key [32]byte) Option {
	return func(s *SQLiteStore) { s.secretKey = &key }
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *SQLiteStore) { s.logger = logger }
}

// WithClock overrides the time source for written timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *SQLiteStore) { s.now = now }
}

// NewSQLiteStore opens or creates the database at path. Parent directories
// are created if needed. ":memory:" opens a private in-memory database.
func NewSQLiteStore(path string, opts ...Option) (*SQLiteStore, error) {
	s := &SQLiteStore{
		logger: slog.Default(),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = s.logger.With("component", "store")

	dsn := "file::memory:?_pragma=busy_timeout(5000)"
	if path != memoryPath {
		if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
			return nil, fmt.Errorf("creating database directory: %w", err)
		}
		dsn = "file:" + path + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	if path == memoryPath {
		// Every pooled connection would otherwise see its own empty database.
		db.SetMaxOpenConns(1)
	}
	s.db = db

	if err := s.createSchema(context.Background()); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}

	s.logger.Info("SQLite store initialized", "path", path)
	return s, nil
}

func (s *SQLiteStore) createSchema(ctx context.Context) error {
	schema := `
		CREATE TABLE IF NOT EXISTS event_journal (
			event_id        TEXT PRIMARY KEY,
			event_type      TEXT NOT NULL,
			occurred_at_utc TEXT NOT NULL,
			version         INTEGER NOT NULL,
			payload_json    TEXT NOT NULL,
			correlation_id  TEXT,
			inserted_at_utc TEXT NOT NULL
		);

		CREATE TABLE IF NOT EXISTS gateway_status (
			id              INTEGER PRIMARY KEY CHECK (id = 1),
			version         TEXT NOT NULL,
			environment     TEXT NOT NULL,
			server_time_utc TEXT NOT NULL,
			cached_at_utc   TEXT NOT NULL
		);

		CREATE TABLE IF NOT EXISTS cache_agents (
			id                 TEXT PRIMARY KEY,
			name               TEXT NOT NULL,
			status             TEXT NOT NULL,
			last_heartbeat_utc TEXT
		);

		CREATE TABLE IF NOT EXISTS cache_projects (
			id         TEXT PRIMARY KEY,
			name       TEXT NOT NULL,
			branch     TEXT NOT NULL,
			commit_sha TEXT NOT NULL,
			health     TEXT NOT NULL
		);

		CREATE TABLE IF NOT EXISTS mutation_audit (
			id             TEXT PRIMARY KEY,
			actor          TEXT NOT NULL,
			action         TEXT NOT NULL,
			target         TEXT NOT NULL,
			details        TEXT NOT NULL,
			created_at_utc TEXT NOT NULL
		);

		CREATE INDEX IF NOT EXISTS idx_mutation_audit_created
			ON mutation_audit(created_at_utc);

		CREATE TABLE IF NOT EXISTS secrets (
			key            TEXT PRIMARY KEY,
			nonce          BLOB NOT NULL,
			sealed         BLOB NOT NULL,
			updated_at_utc TEXT NOT NULL
		);
	`
	_, err := s.db.ExecContext(ctx, schema)
	return err
}

// Health runs a trivial query and returns "ok" or "degraded".
func (s *SQLiteStore) Health(ctx context.Context) string {
	var result string
	if err := s.db.QueryRowContext(ctx, "SELECT 'ok'").Scan(&result); err != nil {
		s.logger.Warn("store health check failed", "error", err)
		return "degraded"
	}
	return result
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

func parseTime(s string) (time.Time, error) {
	return time.Parse(time.RFC3339Nano, s)
}

// nullString converts a string to sql.NullString, empty meaning NULL.
func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

var (
	_ Journal       = (*SQLiteStore)(nil)
	_ SnapshotCache = (*SQLiteStore)(nil)
	_ AuditTrail    = (*SQLiteStore)(nil)
	_ SecretStore   = (*SQLiteStore)(nil)
)
