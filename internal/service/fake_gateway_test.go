// ABOUTME: Scriptable GatewayAPI used by the service tests.

package service

import (
	"context"
	"sync/atomic"

	"github.com/2389/coven-control/internal/gatewayapi"
)

type fakeGateway struct {
	status    *gatewayapi.Status
	statusErr error
	agents    []gatewayapi.AgentSummary
	agentsErr error
	projects  []gatewayapi.ProjectSummary
	projErr   error
	runs      []gatewayapi.TaskRun
	usage     gatewayapi.UsageSummary

	agentCalls atomic.Int32
}

func (f *fakeGateway) GetStatus(context.Context) (*gatewayapi.Status, error) {
	if f.statusErr != nil {
		return nil, f.statusErr
	}
	return f.status, nil
}

func (f *fakeGateway) GetAgents(context.Context) ([]gatewayapi.AgentSummary, error) {
	f.agentCalls.Add(1)
	return f.agents, f.agentsErr
}

func (f *fakeGateway) GetProjects(context.Context) ([]gatewayapi.ProjectSummary, error) {
	return f.projects, f.projErr
}

func (f *fakeGateway) GetActiveRuns(context.Context) ([]gatewayapi.TaskRun, error) {
	return f.runs, nil
}

func (f *fakeGateway) GetUsageSummary(context.Context) (gatewayapi.UsageSummary, error) {
	return f.usage, nil
}
