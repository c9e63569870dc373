// ABOUTME: Interfaces and sentinel errors for control client persistence.
// ABOUTME: Consumers take these interfaces; SQLiteStore and MockStore implement them.

package store

import (
	"context"
	"errors"
	"time"

	"github.com/2389/coven-control/internal/event"
	"github.com/2389/coven-control/internal/gatewayapi"
)

// ErrNotFound is returned when a requested entity does not exist.
var ErrNotFound = errors.New("not found")

// ErrInvalidEnvelope is returned when an envelope cannot be journaled.
var ErrInvalidEnvelope = errors.New("invalid envelope")

// ErrSecretsLocked is returned when no encryption key was configured.
var ErrSecretsLocked = errors.New("secret store has no encryption key")

// Journal is the durable authority on which envelopes were applied.
type Journal interface {
	// Append stores env unless its EventID is already present. inserted
	// reports whether a row was written; a duplicate is not an error.
	Append(ctx context.Context, env event.Envelope) (inserted bool, err error)
	HasProcessed(ctx context.Context, eventID string) (bool, error)
	// ReadRecent returns up to max(1, limit) envelopes, newest insertion first.
	ReadRecent(ctx context.Context, limit int) ([]event.Envelope, error)
}

// SnapshotCache keeps the last known gateway state. Collections are
// replaced wholesale.
type SnapshotCache interface {
	SaveStatus(ctx context.Context, status gatewayapi.Status) error
	ReadStatus(ctx context.Context) (*CachedStatus, error)
	SaveAgents(ctx context.Context, agents []gatewayapi.AgentSummary) error
	ReadAgents(ctx context.Context) ([]gatewayapi.AgentSummary, error)
	SaveProjects(ctx context.Context, projects []gatewayapi.ProjectSummary) error
	ReadProjects(ctx context.Context) ([]gatewayapi.ProjectSummary, error)
}

// CachedStatus is a status snapshot and when it was written.
type CachedStatus struct {
	gatewayapi.Status
	CachedAt time.Time
}

// AuditEntry is one recorded mutation.
type AuditEntry struct {
	ID        string
	Actor     string
	Action    string
	Target    string
	Details   string
	CreatedAt time.Time
}

// AuditTrail records operator mutations.
type AuditTrail interface {
	RecordMutation(ctx context.Context, actor, action, target, details string) error
	ListAudit(ctx context.Context, limit int) ([]AuditEntry, error)
}

// SecretStore holds small secrets by key.
type SecretStore interface {
	StoreSecret(ctx context.Context, key, value string) error
	// RetrieveSecret reports ok=false when key is absent.
	RetrieveSecret(ctx context.Context, key string) (value string, ok bool, err error)
	DeleteSecret(ctx context.Context, key string) error
}

// normalizeLimit applies a default and a cap.
func normalizeLimit(limit, def, max int) int {
	if limit <= 0 {
		return def
	}
	if limit > max {
		return max
	}
	return limit
}
