// ABOUTME: Typed gateway read operations built on Invoke.
// ABOUTME: List-style reads degrade to empty results when a tool is incompatible.

package gatewayapi

import (
	"context"
	"errors"
	"fmt"

	"github.com/tidwall/gjson"

	"github.com/2389/coven-control/internal/fault"
)

// Tool names understood by the gateway.
const (
	ToolStatus     = "gateway_status"
	ToolAgents     = "agents_list"
	ToolProjects   = "projects_list"
	ToolActiveRuns = "sessions_list"
	ToolUsage      = "usage_summary"
	ToolCron       = "cron"
	ToolSkills     = "skills_list"
	ToolConfig     = "config_get"
)

// GetStatus is foundational: every failure propagates.
func (c *Client) GetStatus(ctx context.Context) (*Status, error) {
	result, err := c.Invoke(ctx, ToolStatus, nil)
	if err != nil {
		return nil, fmt.Errorf("getting gateway status: %w", err)
	}
	if !result.IsObject() {
		return nil, fault.Incompatible(ToolStatus, "status result is not an object", nil)
	}
	status := mapStatus(result, c.now())
	return &status, nil
}

// GetAgents lists agents.
func (c *Client) GetAgents(ctx context.Context) ([]AgentSummary, error) {
	return listOf(ctx, c, ToolAgents, nil, agentFields.list, mapAgent)
}

// GetProjects lists projects.
func (c *Client) GetProjects(ctx context.Context) ([]ProjectSummary, error) {
	return listOf(ctx, c, ToolProjects, nil, projectFields.list, mapProject)
}

// GetActiveRuns lists runs that have not finished.
func (c *Client) GetActiveRuns(ctx context.Context) ([]TaskRun, error) {
	return listOf(ctx, c, ToolActiveRuns, map[string]any{"activeOnly": true}, runFields.list, mapRun)
}

// GetCronJobs lists scheduled jobs.
func (c *Client) GetCronJobs(ctx context.Context) ([]CronJob, error) {
	return listOf(ctx, c, ToolCron, map[string]any{"action": "list"}, cronFields.list, mapCronJob)
}

// GetSkills lists installed skills.
func (c *Client) GetSkills(ctx context.Context) ([]Skill, error) {
	return listOf(ctx, c, ToolSkills, nil, skillFields.list, mapSkill)
}

// GetUsageSummary returns zero usage when the gateway cannot report it.
func (c *Client) GetUsageSummary(ctx context.Context) (UsageSummary, error) {
	result, err := c.Invoke(ctx, ToolUsage, nil)
	if err != nil {
		if errors.Is(err, fault.ErrIncompatibleAPI) {
			c.logger.Info("usage unavailable on gateway", "error", err)
			return UsageSummary{}, nil
		}
		return UsageSummary{}, fmt.Errorf("getting usage summary: %w", err)
	}
	return mapUsage(result), nil
}

// GetConfigEntries returns the flattened gateway configuration.
func (c *Client) GetConfigEntries(ctx context.Context) ([]ConfigEntry, error) {
	result, err := c.Invoke(ctx, ToolConfig, nil)
	if err != nil {
		if errors.Is(err, fault.ErrIncompatibleAPI) {
			c.logger.Info("config unavailable on gateway", "error", err)
			return []ConfigEntry{}, nil
		}
		return nil, fmt.Errorf("getting config: %w", err)
	}
	result = unwrapConfig(result)
	if result.Type == gjson.String && gjson.Valid(result.Str) {
		return FlattenConfig(result.Str), nil
	}
	return FlattenConfig(result.Raw), nil
}

func listOf[T any](ctx context.Context, c *Client, tool string, args map[string]any, wrappers fields, mapItem func(gjson.Result) T) ([]T, error) {
	result, err := c.Invoke(ctx, tool, args)
	if err == nil {
		items, ok := listItems(result, wrappers)
		if ok {
			out := make([]T, 0, len(items))
			for _, item := range items {
				if !item.IsObject() {
					continue
				}
				out = append(out, mapItem(item))
			}
			return out, nil
		}
		err = fault.Incompatible(tool, "result is not a list", nil)
	}

	if errors.Is(err, fault.ErrIncompatibleAPI) {
		c.logger.Info("feature unavailable on gateway, showing empty list", "tool", tool, "error", err)
		return []T{}, nil
	}
	return nil, fmt.Errorf("invoking %s: %w", tool, err)
}
