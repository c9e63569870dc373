// ABOUTME: Tests that MockStore matches SQLiteStore on the behaviors consumers rely on.

package store

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/2389/coven-control/internal/gatewayapi"
)

func TestMockStore_JournalDedup(t *testing.T) {
	m := NewMockStore()
	ctx := context.Background()

	ok, err := m.Append(ctx, envelope("a", time.Now()))
	require.NoError(t, err)
	assert.True(t, ok)
	ok, err = m.Append(ctx, envelope("a", time.Now()))
	require.NoError(t, err)
	assert.False(t, ok)
	_, _ = m.Append(ctx, envelope("b", time.Now()))

	recent, err := m.ReadRecent(ctx, 0)
	require.NoError(t, err)
	require.Len(t, recent, 1)
	assert.Equal(t, "b", recent[0].EventID)
	assert.Len(t, m.Journaled(), 2)
}

func TestMockStore_CacheOrdering(t *testing.T) {
	m := NewMockStore()
	ctx := context.Background()

	require.NoError(t, m.SaveAgents(ctx, []gatewayapi.AgentSummary{{ID: "2", Name: "b"}, {ID: "1", Name: "a"}}))
	agents, err := m.ReadAgents(ctx)
	require.NoError(t, err)
	assert.Equal(t, "a", agents[0].Name)

	_, err = m.ReadStatus(ctx)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMockStore_Fail(t *testing.T) {
	m := NewMockStore()
	m.Fail = errors.New("disk gone")

	_, err := m.HasProcessed(context.Background(), "x")
	assert.ErrorIs(t, err, m.Fail)
	assert.ErrorIs(t, m.RecordMutation(context.Background(), "a", "b", "c", "d"), m.Fail)
}
