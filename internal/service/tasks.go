// ABOUTME: Active runs, usage and the recent journal feed.

package service

import (
	"context"

	"github.com/2389/coven-control/internal/event"
	"github.com/2389/coven-control/internal/gatewayapi"
	"github.com/2389/coven-control/internal/store"
)

// DefaultRecentLimit is the journal page size when none is given.
const DefaultRecentLimit = 25

// Tasks serves run and usage views.
type Tasks struct {
	api     GatewayAPI
	journal store.Journal
}

// NewTasks creates a Tasks service.
func NewTasks(api GatewayAPI, journal store.Journal) *Tasks {
	return &Tasks{api: api, journal: journal}
}

func (s *Tasks) ActiveRuns(ctx context.Context) ([]gatewayapi.TaskRun, error) {
	return s.api.GetActiveRuns(ctx)
}

func (s *Tasks) Usage(ctx context.Context) (gatewayapi.UsageSummary, error) {
	return s.api.GetUsageSummary(ctx)
}

// RecentEvents returns the newest journaled envelopes. A non-positive
// limit selects DefaultRecentLimit.
func (s *Tasks) RecentEvents(ctx context.Context, limit int) ([]event.Envelope, error) {
	if limit <= 0 {
		limit = DefaultRecentLimit
	}
	return s.journal.ReadRecent(ctx, limit)
}
