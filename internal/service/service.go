// ABOUTME: Consumer-side gateway interface shared by the application services.
// ABOUTME: *gatewayapi.Client satisfies it.

package service

import (
	"context"

	"github.com/2389/coven-control/internal/gatewayapi"
)

// GatewayAPI is the subset of the gateway adapter the services read from.
type GatewayAPI interface {
	GetStatus(ctx context.Context) (*gatewayapi.Status, error)
	GetAgents(ctx context.Context) ([]gatewayapi.AgentSummary, error)
	GetProjects(ctx context.Context) ([]gatewayapi.ProjectSummary, error)
	GetActiveRuns(ctx context.Context) ([]gatewayapi.TaskRun, error)
	GetUsageSummary(ctx context.Context) (gatewayapi.UsageSummary, error)
}

var _ GatewayAPI = (*gatewayapi.Client)(nil)
