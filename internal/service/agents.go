// ABOUTME: Agent listing with cache write-through and offline fallback.

package service

import (
	"context"
	"errors"
	"log/slog"

	"github.com/2389/coven-control/internal/fault"
	"github.com/2389/coven-control/internal/gatewayapi"
	"github.com/2389/coven-control/internal/store"
)

// AgentList is the result of Agents.List.
type AgentList struct {
	Agents    []gatewayapi.AgentSummary
	FromCache bool
}

// Agents serves the agent list.
type Agents struct {
	api    GatewayAPI
	cache  store.SnapshotCache
	logger *slog.Logger
}

// NewAgents creates an Agents service. logger may be nil.
func NewAgents(api GatewayAPI, cache store.SnapshotCache, logger *slog.Logger) *Agents {
	if logger == nil {
		logger = slog.Default()
	}
	return &Agents{api: api, cache: cache, logger: logger.With("component", "agents")}
}

// List fetches agents and caches them. When the gateway cannot be reached
// the cached list is returned with FromCache set; if the cache is also
// unavailable the gateway error is returned.
func (s *Agents) List(ctx context.Context) (*AgentList, error) {
	agents, err := optional(s.api.GetAgents(ctx))
	if err == nil {
		if err := s.cache.SaveAgents(ctx, agents); err != nil {
			s.logger.Warn("failed to cache agents", "error", err)
		}
		return &AgentList{Agents: agents}, nil
	}

	if !offline(err) {
		return nil, err
	}
	cached, cerr := s.cache.ReadAgents(ctx)
	if cerr != nil {
		s.logger.Warn("agent cache unavailable", "error", cerr)
		return nil, err
	}
	s.logger.Info("gateway unreachable, serving cached agents", "count", len(cached), "error", err)
	return &AgentList{Agents: cached, FromCache: true}, nil
}

func offline(err error) bool {
	return errors.Is(err, fault.ErrTransientNetwork) || errors.Is(err, fault.ErrCircuitOpen)
}
