// ABOUTME: Read-only snapshots returned by the gateway adapter.
// ABOUTME: Built fresh on every call and never mutated afterwards.

package gatewayapi

import "time"

// Status describes the gateway process.
type Status struct {
	Version     string    `json:"version"`
	Environment string    `json:"environment"`
	ServerTime  time.Time `json:"serverTimeUtc"`
}

// AgentSummary is one connected or known agent.
type AgentSummary struct {
	ID            string    `json:"id"`
	Name          string    `json:"name"`
	Status        string    `json:"status"`
	LastHeartbeat time.Time `json:"lastHeartbeatUtc"`
}

// ProjectSummary is one workspace tracked by the gateway.
type ProjectSummary struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Branch    string `json:"branch"`
	CommitSHA string `json:"commitSha"`
	Health    string `json:"health"`
}

// TaskRun is an in-flight agent run.
type TaskRun struct {
	ID        string    `json:"id"`
	AgentName string    `json:"agentName"`
	State     string    `json:"state"`
	StartedAt time.Time `json:"startedAtUtc"`
}

// UsageSummary aggregates token usage and cost.
type UsageSummary struct {
	PromptTokens     int64   `json:"promptTokens"`
	CompletionTokens int64   `json:"completionTokens"`
	EstimatedCostUSD float64 `json:"estimatedCostUsd"`
}

// TotalTokens sums prompt and completion tokens.
func (u UsageSummary) TotalTokens() int64 {
	return u.PromptTokens + u.CompletionTokens
}

// CronJob is a scheduled job. LastRun is nil when it has never run.
type CronJob struct {
	ID       string     `json:"id"`
	Name     string     `json:"name"`
	Enabled  bool       `json:"enabled"`
	Schedule string     `json:"schedule"`
	LastRun  *time.Time `json:"lastRunUtc,omitempty"`
}

// Skill is an installed agent skill.
type Skill struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Enabled bool   `json:"enabled"`
	Source  string `json:"source"`
	Health  string `json:"health"`
}

// ConfigEntry is one flattened leaf of the gateway configuration.
type ConfigEntry struct {
	Key         string `json:"key"`
	Value       string `json:"value"`
	IsSensitive bool   `json:"isSensitive"`
	Source      string `json:"source"`
}

// DisplayValue masks sensitive values.
func (e ConfigEntry) DisplayValue() string {
	if e.IsSensitive {
		return "********"
	}
	return e.Value
}
