// ABOUTME: Tests for the per-field fallback tables, independent of transport.

package gatewayapi

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/tidwall/gjson"
)

func TestMapAgentNameFallsBackToID(t *testing.T) {
	a := mapAgent(gjson.Parse(`{"agentId":"scout-1","state":"IDLE","lastSeen":1767225600000}`))

	assert.Equal(t, "scout-1", a.ID)
	assert.Equal(t, "scout-1", a.Name)
	assert.Equal(t, "idle", a.Status)
	assert.Equal(t, time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC), a.LastHeartbeat)
}

func TestMapAgentDefaults(t *testing.T) {
	a := mapAgent(gjson.Parse(`{"displayName":"Worker"}`))
	assert.Equal(t, "Worker", a.ID)
	assert.Equal(t, "unknown", a.Status)
	assert.True(t, a.LastHeartbeat.IsZero())
}

func TestMapProjectCommitDefaultsUnknown(t *testing.T) {
	p := mapProject(gjson.Parse(`{"id":"p1","title":"Site","git":{"branch":"main"},"status":"OK"}`))

	assert.Equal(t, "Site", p.Name)
	assert.Equal(t, "main", p.Branch)
	assert.Equal(t, "unknown", p.CommitSHA)
	assert.Equal(t, "ok", p.Health)
}

func TestMapCronScheduleAndEnabledFallbacks(t *testing.T) {
	tests := []struct {
		name     string
		raw      string
		schedule string
		enabled  bool
	}{
		{"schedule string", `{"id":"j1","name":"digest","schedule":"0 9 * * *","enabled":true}`, "0 9 * * *", true},
		{"schedule object", `{"id":"j2","schedule":{"kind":"cron","expr":"*/5 * * * *"},"eligible":true}`, "*/5 * * * *", true},
		{"legacy cron field", `{"id":"j3","cron":"@daily","enabled":false,"eligible":true}`, "@daily", false},
		{"nothing", `{"id":"j4"}`, "", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			job := mapCronJob(gjson.Parse(tt.raw))
			assert.Equal(t, tt.schedule, job.Schedule)
			assert.Equal(t, tt.enabled, job.Enabled)
		})
	}
}

func TestMapCronLastRun(t *testing.T) {
	job := mapCronJob(gjson.Parse(`{"name":"digest","state":{"lastRunAtMs":1767225600000}}`))
	assert.Equal(t, "digest", job.ID, "id falls back to name")
	if assert.NotNil(t, job.LastRun) {
		assert.Equal(t, 2026, job.LastRun.Year())
	}

	never := mapCronJob(gjson.Parse(`{"id":"x"}`))
	assert.Nil(t, never.LastRun)
}

func TestMapSkillEligible(t *testing.T) {
	s := mapSkill(gjson.Parse(`{"skillKey":"weather","eligible":"true","origin":"bundled"}`))
	assert.Equal(t, "weather", s.ID)
	assert.Equal(t, "weather", s.Name)
	assert.True(t, s.Enabled)
	assert.Equal(t, "bundled", s.Source)
	assert.Equal(t, "unknown", s.Health)
}

func TestMapUsageAlternateShapes(t *testing.T) {
	u := mapUsage(gjson.Parse(`{"totals":{"input":1200,"output":300,"cost":0.42}}`))
	assert.Equal(t, UsageSummary{PromptTokens: 1200, CompletionTokens: 300, EstimatedCostUSD: 0.42}, u)
	assert.Equal(t, int64(1500), u.TotalTokens())
}

func TestMapStatusDefaults(t *testing.T) {
	now := time.Date(2026, 2, 2, 2, 2, 2, 0, time.UTC)
	s := mapStatus(gjson.Parse(`{"gatewayVersion":"1.4.0"}`), now)

	assert.Equal(t, "1.4.0", s.Version)
	assert.Equal(t, "unknown", s.Environment)
	assert.Equal(t, now, s.ServerTime)
}

func TestMapRunDefaults(t *testing.T) {
	r := mapRun(gjson.Parse(`{"sessionId":"s-1","startedAt":"2026-03-01T10:00:00+02:00"}`))
	assert.Equal(t, "s-1", r.ID)
	assert.Equal(t, "unknown", r.AgentName)
	assert.Equal(t, "running", r.State)
	assert.Equal(t, 8, r.StartedAt.Hour())
}

func TestListItemsSkipsScalars(t *testing.T) {
	items, ok := listItems(gjson.Parse(`{"items":[1,{"id":"a"}]}`), agentFields.list)
	assert.True(t, ok)
	assert.Len(t, items, 2)

	_, ok = listItems(gjson.Parse(`"nope"`), agentFields.list)
	assert.False(t, ok)
}
