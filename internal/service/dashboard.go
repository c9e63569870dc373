// ABOUTME: Dashboard snapshot: health tiles and needs-attention items.
// ABOUTME: Live snapshots refresh the cache; CachedSnapshot rebuilds the view offline.

package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"golang.org/x/sync/errgroup"

	"github.com/2389/coven-control/internal/fault"
	"github.com/2389/coven-control/internal/gatewayapi"
	"github.com/2389/coven-control/internal/store"
)

// StaleHeartbeat is how old an agent heartbeat may get before the agent
// needs attention.
const StaleHeartbeat = 5 * time.Minute

// Tile statuses.
const (
	TileHealthy = "healthy"
	TileWarning = "warning"
)

// HealthTile is one summary box on the dashboard.
type HealthTile struct {
	Title  string
	Value  string
	Status string
	Detail string
}

// AttentionItem is an agent or project that needs an operator.
type AttentionItem struct {
	Category   string
	Title      string
	Detail     string
	ObservedAt time.Time
}

// Snapshot is the dashboard view.
type Snapshot struct {
	Tiles          []HealthTile
	NeedsAttention []AttentionItem
	CapturedAt     time.Time
	FromCache      bool
}

// Dashboard builds snapshots from the gateway and the cache.
type Dashboard struct {
	api    GatewayAPI
	cache  store.SnapshotCache
	logger *slog.Logger
	now    func() time.Time
}

// NewDashboard creates a Dashboard. logger may be nil.
func NewDashboard(api GatewayAPI, cache store.SnapshotCache, logger *slog.Logger) *Dashboard {
	if logger == nil {
		logger = slog.Default()
	}
	return &Dashboard{
		api:    api,
		cache:  cache,
		logger: logger.With("component", "dashboard"),
		now:    time.Now,
	}
}

// Snapshot fetches status, agents and projects, writes them to the cache
// and builds the view. A status failure is returned; agents and projects
// degrade to empty when the gateway does not support them.
func (d *Dashboard) Snapshot(ctx context.Context) (*Snapshot, error) {
	status, err := d.api.GetStatus(ctx)
	if err != nil {
		return nil, err
	}

	var (
		agents   []gatewayapi.AgentSummary
		projects []gatewayapi.ProjectSummary
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		agents, err = optional(d.api.GetAgents(gctx))
		return err
	})
	g.Go(func() error {
		var err error
		projects, err = optional(d.api.GetProjects(gctx))
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	cacheTile := HealthTile{Title: "Cache", Value: "SQLite", Status: TileHealthy, Detail: "Synced"}
	if err := d.writeCache(ctx, *status, agents, projects); err != nil {
		d.logger.Warn("failed to refresh snapshot cache", "error", err)
		cacheTile.Status = TileWarning
		cacheTile.Detail = "Write failed"
	}

	return buildSnapshot(*status, agents, projects, cacheTile, d.now().UTC(), false), nil
}

// CachedSnapshot builds the view from the last cached state. It returns
// store.ErrNotFound when nothing has been cached yet.
func (d *Dashboard) CachedSnapshot(ctx context.Context) (*Snapshot, error) {
	cached, err := d.cache.ReadStatus(ctx)
	if err != nil {
		return nil, fmt.Errorf("reading cached status: %w", err)
	}
	agents, err := d.cache.ReadAgents(ctx)
	if err != nil {
		return nil, fmt.Errorf("reading cached agents: %w", err)
	}
	projects, err := d.cache.ReadProjects(ctx)
	if err != nil {
		return nil, fmt.Errorf("reading cached projects: %w", err)
	}

	now := d.now().UTC()
	cacheTile := HealthTile{
		Title:  "Cache",
		Value:  "SQLite",
		Status: TileWarning,
		Detail: "Offline, cached " + humanize.RelTime(cached.CachedAt, now, "ago", "from now"),
	}
	return buildSnapshot(cached.Status, agents, projects, cacheTile, now, true), nil
}

func (d *Dashboard) writeCache(ctx context.Context, status gatewayapi.Status, agents []gatewayapi.AgentSummary, projects []gatewayapi.ProjectSummary) error {
	if err := d.cache.SaveStatus(ctx, status); err != nil {
		return err
	}
	if err := d.cache.SaveAgents(ctx, agents); err != nil {
		return err
	}
	return d.cache.SaveProjects(ctx, projects)
}

func buildSnapshot(status gatewayapi.Status, agents []gatewayapi.AgentSummary, projects []gatewayapi.ProjectSummary, cacheTile HealthTile, now time.Time, fromCache bool) *Snapshot {
	var staleAgents []gatewayapi.AgentSummary
	for _, a := range agents {
		if !healthyAgent(a, now) {
			staleAgents = append(staleAgents, a)
		}
	}
	var badProjects []gatewayapi.ProjectSummary
	for _, p := range projects {
		if !strings.EqualFold(p.Health, "ok") {
			badProjects = append(badProjects, p)
		}
	}
	sort.SliceStable(staleAgents, func(i, j int) bool { return staleAgents[i].Name < staleAgents[j].Name })
	sort.SliceStable(badProjects, func(i, j int) bool { return badProjects[i].Name < badProjects[j].Name })

	agentTile := HealthTile{
		Title:  "Agents",
		Value:  fmt.Sprintf("%d/%d", len(agents)-len(staleAgents), len(agents)),
		Status: TileHealthy,
		Detail: "All active",
	}
	if len(staleAgents) > 0 {
		agentTile.Status = TileWarning
		agentTile.Detail = fmt.Sprintf("%d needs attention", len(staleAgents))
	}

	projectTile := HealthTile{
		Title:  "Projects",
		Value:  strconv.Itoa(len(projects)),
		Status: TileHealthy,
		Detail: "All healthy",
	}
	if len(badProjects) > 0 {
		projectTile.Status = TileWarning
		projectTile.Detail = fmt.Sprintf("%d unhealthy", len(badProjects))
	}

	snap := &Snapshot{
		Tiles: []HealthTile{
			{Title: "Gateway", Value: status.Environment, Status: TileHealthy, Detail: "v" + status.Version},
			agentTile,
			projectTile,
			cacheTile,
		},
		NeedsAttention: make([]AttentionItem, 0, len(staleAgents)+len(badProjects)),
		CapturedAt:     now,
		FromCache:      fromCache,
	}
	for _, a := range staleAgents {
		snap.NeedsAttention = append(snap.NeedsAttention, AttentionItem{
			Category:   "agent",
			Title:      a.Name,
			Detail:     fmt.Sprintf("Status %s; heartbeat %s", a.Status, heartbeatAge(a.LastHeartbeat, now)),
			ObservedAt: now,
		})
	}
	for _, p := range badProjects {
		snap.NeedsAttention = append(snap.NeedsAttention, AttentionItem{
			Category:   "project",
			Title:      p.Name,
			Detail:     fmt.Sprintf("Health is %s on %s", p.Health, p.Branch),
			ObservedAt: now,
		})
	}
	return snap
}

func healthyAgent(a gatewayapi.AgentSummary, now time.Time) bool {
	if !strings.EqualFold(a.Status, "online") && !strings.EqualFold(a.Status, "active") {
		return false
	}
	return now.Sub(a.LastHeartbeat) <= StaleHeartbeat
}

func heartbeatAge(t, now time.Time) string {
	if t.IsZero() {
		return "never"
	}
	return humanize.RelTime(t, now, "ago", "from now")
}

// optional turns an incompatible-API failure into an empty result.
func optional[T any](items []T, err error) ([]T, error) {
	if errors.Is(err, fault.ErrIncompatibleAPI) {
		return []T{}, nil
	}
	return items, err
}
