package service

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/2389/coven-control/internal/event"
	"github.com/2389/coven-control/internal/gatewayapi"
	"github.com/2389/coven-control/internal/store"
)

func TestTasks_PassThrough(t *testing.T) {
	gw := healthyGateway()
	gw.runs = []gatewayapi.TaskRun{{ID: "r1", AgentName: "builder", State: "running", StartedAt: now}}
	gw.usage = gatewayapi.UsageSummary{PromptTokens: 10, CompletionTokens: 5, EstimatedCostUSD: 0.02}
	tasks := NewTasks(gw, store.NewMockStore())

	runs, err := tasks.ActiveRuns(context.Background())
	require.NoError(t, err)
	assert.Equal(t, gw.runs, runs)

	usage, err := tasks.Usage(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(15), usage.TotalTokens())
}

func TestTasks_RecentEventsDefaultLimit(t *testing.T) {
	journal := store.NewMockStore()
	ctx := context.Background()
	for i := 0; i < 30; i++ {
		_, err := journal.Append(ctx, event.Envelope{
			EventID:    fmt.Sprintf("e%02d", i),
			EventType:  "run.finished",
			OccurredAt: now.Add(time.Duration(i) * time.Second),
			Version:    1,
		})
		require.NoError(t, err)
	}

	tasks := NewTasks(healthyGateway(), journal)
	recent, err := tasks.RecentEvents(ctx, 0)
	require.NoError(t, err)
	require.Len(t, recent, DefaultRecentLimit)
	assert.Equal(t, "e29", recent[0].EventID)

	recent, err = tasks.RecentEvents(ctx, 3)
	require.NoError(t, err)
	assert.Len(t, recent, 3)
}
