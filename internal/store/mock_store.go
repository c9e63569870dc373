// ABOUTME: In-memory twin of SQLiteStore for service and engine tests.
// ABOUTME: Mirrors journal dedup, whole-collection cache replace and secret semantics.

package store

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/2389/coven-control/internal/event"
	"github.com/2389/coven-control/internal/gatewayapi"
)

// MockStore is an in-memory implementation of the store interfaces.
type MockStore struct {
	mu       sync.RWMutex
	journal  []event.Envelope    // insertion order
	eventIDs map[string]struct{} // journaled ids
	status   *CachedStatus
	agents   []gatewayapi.AgentSummary
	projects []gatewayapi.ProjectSummary
	audit    []AuditEntry
	secrets  map[string]string

	// Fail, when set, is returned by every method. Tests use it to simulate
	// a broken database.
	Fail error
}

// NewMockStore creates an empty MockStore.
func NewMockStore() *MockStore {
	return &MockStore{
		eventIDs: make(map[string]struct{}),
		secrets:  make(map[string]string),
	}
}

// Append stores env once.
func (m *MockStore) Append(_ context.Context, env event.Envelope) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Fail != nil {
		return false, m.Fail
	}
	if err := env.Validate(); err != nil {
		return false, fmt.Errorf("%w: %v", ErrInvalidEnvelope, err)
	}
	if _, ok := m.eventIDs[env.EventID]; ok {
		return false, nil
	}
	m.eventIDs[env.EventID] = struct{}{}
	m.journal = append(m.journal, env)
	return true, nil
}

// HasProcessed reports whether eventID was appended.
func (m *MockStore) HasProcessed(_ context.Context, eventID string) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.Fail != nil {
		return false, m.Fail
	}
	_, ok := m.eventIDs[eventID]
	return ok, nil
}

// ReadRecent returns newest insertions first.
func (m *MockStore) ReadRecent(_ context.Context, limit int) ([]event.Envelope, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.Fail != nil {
		return nil, m.Fail
	}
	if limit < 1 {
		limit = 1
	}
	var out []event.Envelope
	for i := len(m.journal) - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, m.journal[i])
	}
	return out, nil
}

// Journaled returns every journaled envelope in insertion order.
func (m *MockStore) Journaled() []event.Envelope {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]event.Envelope, len(m.journal))
	copy(out, m.journal)
	return out
}

// SaveStatus replaces the cached status.
func (m *MockStore) SaveStatus(_ context.Context, status gatewayapi.Status) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Fail != nil {
		return m.Fail
	}
	m.status = &CachedStatus{Status: status, CachedAt: time.Now().UTC()}
	return nil
}

// ReadStatus returns ErrNotFound until a status was saved.
func (m *MockStore) ReadStatus(_ context.Context) (*CachedStatus, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.Fail != nil {
		return nil, m.Fail
	}
	if m.status == nil {
		return nil, ErrNotFound
	}
	cs := *m.status
	return &cs, nil
}

// SaveAgents replaces cached agents.
func (m *MockStore) SaveAgents(_ context.Context, agents []gatewayapi.AgentSummary) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Fail != nil {
		return m.Fail
	}
	m.agents = append([]gatewayapi.AgentSummary(nil), agents...)
	return nil
}

// ReadAgents returns cached agents ordered by name.
func (m *MockStore) ReadAgents(_ context.Context) ([]gatewayapi.AgentSummary, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.Fail != nil {
		return nil, m.Fail
	}
	out := append([]gatewayapi.AgentSummary{}, m.agents...)
	sort.SliceStable(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

// SaveProjects replaces cached projects.
func (m *MockStore) SaveProjects(_ context.Context, projects []gatewayapi.ProjectSummary) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Fail != nil {
		return m.Fail
	}
	m.projects = append([]gatewayapi.ProjectSummary(nil), projects...)
	return nil
}

// ReadProjects returns cached projects ordered by name.
func (m *MockStore) ReadProjects(_ context.Context) ([]gatewayapi.ProjectSummary, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.Fail != nil {
		return nil, m.Fail
	}
	out := append([]gatewayapi.ProjectSummary{}, m.projects...)
	sort.SliceStable(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

// RecordMutation appends an audit entry.
func (m *MockStore) RecordMutation(_ context.Context, actor, action, target, details string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Fail != nil {
		return m.Fail
	}
	m.audit = append(m.audit, AuditEntry{
		ID:        fmt.Sprintf("audit-%d", len(m.audit)+1),
		Actor:     actor,
		Action:    action,
		Target:    target,
		Details:   details,
		CreatedAt: time.Now().UTC(),
	})
	return nil
}

// ListAudit returns entries newest first.
func (m *MockStore) ListAudit(_ context.Context, limit int) ([]AuditEntry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.Fail != nil {
		return nil, m.Fail
	}
	limit = normalizeLimit(limit, defaultAuditLimit, maxAuditLimit)
	var out []AuditEntry
	for i := len(m.audit) - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, m.audit[i])
	}
	return out, nil
}

// StoreSecret stores value under key.
func (m *MockStore) StoreSecret(_ context.Context, key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Fail != nil {
		return m.Fail
	}
	m.secrets[key] = value
	return nil
}

// RetrieveSecret returns ok=false for absent keys.
func (m *MockStore) RetrieveSecret(_ context.Context, key string) (string, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.Fail != nil {
		return "", false, m.Fail
	}
	v, ok := m.secrets[key]
	return v, ok, nil
}

// DeleteSecret removes key.
func (m *MockStore) DeleteSecret(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Fail != nil {
		return m.Fail
	}
	delete(m.secrets, key)
	return nil
}

var (
	_ Journal       = (*MockStore)(nil)
	_ SnapshotCache = (*MockStore)(nil)
	_ AuditTrail    = (*MockStore)(nil)
	_ SecretStore   = (*MockStore)(nil)
)
