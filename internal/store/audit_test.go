// ABOUTME: Tests for the mutation audit trail.

package store

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAudit_RecordAndList(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	s := setupTestStore(t, WithClock(func() time.Time {
		now = now.Add(time.Second)
		return now
	}))
	ctx := context.Background()

	require.NoError(t, s.RecordMutation(ctx, "operator", "reauth", "gateway.token", "passed"))
	require.NoError(t, s.RecordMutation(ctx, "operator", "cron.toggle", "digest", "enabled=true"))

	entries, err := s.ListAudit(ctx, 0)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "cron.toggle", entries[0].Action)
	assert.Equal(t, "digest", entries[0].Target)
	assert.Equal(t, "reauth", entries[1].Action)
	assert.NotEmpty(t, entries[1].ID)
	assert.NotEqual(t, entries[0].ID, entries[1].ID)

	entries, err = s.ListAudit(ctx, 1)
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}
