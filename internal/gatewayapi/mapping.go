// ABOUTME: Pure mapping from gateway JSON results to typed snapshots.
// ABOUTME: Each logical field lists its candidate JSON paths in fallback order.

package gatewayapi

import (
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/tidwall/gjson"
)

// fields is an ordered list of gjson paths tried for one logical attribute.
type fields []string

var statusFields = struct {
	version, environment, serverTime fields
}{
	version:     fields{"version", "gatewayVersion", "build.version"},
	environment: fields{"environment", "env", "mode"},
	serverTime:  fields{"serverTimeUtc", "serverTime", "time", "now"},
}

var agentFields = struct {
	list                             fields
	id, name, status, lastHeartbeat fields
}{
	list:          fields{"agents", "items", "data"},
	id:            fields{"id", "agentId", "agent_id"},
	name:          fields{"name", "displayName", "display_name"},
	status:        fields{"status", "state"},
	lastHeartbeat: fields{"lastHeartbeatUtc", "lastHeartbeat", "last_heartbeat", "lastSeen", "updatedAt"},
}

var projectFields = struct {
	list                                fields
	id, name, branch, commitSHA, health fields
}{
	list:      fields{"projects", "items", "data"},
	id:        fields{"id", "projectId", "slug"},
	name:      fields{"name", "title"},
	branch:    fields{"branch", "gitBranch", "git.branch"},
	commitSHA: fields{"commitSha", "commit", "commitHash", "sha", "git.commit"},
	health:    fields{"health", "status"},
}

var runFields = struct {
	list                          fields
	id, agentName, state, started fields
}{
	list:      fields{"runs", "sessions", "items", "data"},
	id:        fields{"id", "runId", "sessionId", "key"},
	agentName: fields{"agentName", "agent", "agentId"},
	state:     fields{"state", "status"},
	started:   fields{"startedAtUtc", "startedAt", "createdAt", "updatedAt"},
}

var usageFields = struct {
	prompt, completion, cost fields
}{
	prompt:     fields{"promptTokens", "inputTokens", "totals.input", "usage.prompt_tokens"},
	completion: fields{"completionTokens", "outputTokens", "totals.output", "usage.completion_tokens"},
	cost:       fields{"estimatedCostUsd", "costUsd", "totals.cost", "cost"},
}

var cronFields = struct {
	list                                 fields
	id, name, enabled, schedule, lastRun fields
}{
	list:     fields{"jobs", "cron", "items", "data"},
	id:       fields{"id", "jobId"},
	name:     fields{"name", "id"},
	enabled:  fields{"enabled", "eligible"},
	schedule: fields{"schedule", "schedule.expr", "cron"},
	lastRun:  fields{"lastRunUtc", "lastRunAt", "state.lastRunAtMs", "lastRun"},
}

var skillFields = struct {
	list                                fields
	id, name, enabled, source, health fields
}{
	list:    fields{"skills", "items", "data"},
	id:      fields{"id", "skillKey", "key"},
	name:    fields{"name", "id", "skillKey"},
	enabled: fields{"enabled", "eligible"},
	source:  fields{"source", "origin"},
	health:  fields{"health", "status"},
}

var configFields = struct {
	wrapper, envelope fields
}{
	wrapper:  fields{"config", "parsed"},
	envelope: fields{"hash", "raw", "path", "valid", "exists"},
}

// unwrapConfig returns the inner config object when result is a response
// envelope: every key is a wrapper or known metadata. A document that merely
// has a "config" section among its own settings is returned unchanged.
func unwrapConfig(result gjson.Result) gjson.Result {
	if !result.IsObject() {
		return result
	}
	envelope := true
	result.ForEach(func(key, _ gjson.Result) bool {
		name := key.String()
		if !slices.Contains(configFields.wrapper, name) && !slices.Contains(configFields.envelope, name) {
			envelope = false
		}
		return envelope
	})
	if !envelope {
		return result
	}
	for _, path := range configFields.wrapper {
		if inner := result.Get(path); inner.IsObject() {
			return inner
		}
	}
	return result
}

const unknown = "unknown"

// pickString returns the first scalar candidate rendered as text. Objects,
// arrays, nulls and empty strings do not match.
func pickString(v gjson.Result, candidates fields, fallback string) string {
	for _, path := range candidates {
		r := v.Get(path)
		switch r.Type {
		case gjson.String:
			if s := strings.TrimSpace(r.Str); s != "" {
				return s
			}
		case gjson.Number:
			return r.Raw
		case gjson.True, gjson.False:
			return r.Raw
		}
	}
	return fallback
}

func pickBool(v gjson.Result, candidates fields, fallback bool) bool {
	for _, path := range candidates {
		r := v.Get(path)
		switch r.Type {
		case gjson.True:
			return true
		case gjson.False:
			return false
		case gjson.String:
			if b, err := strconv.ParseBool(strings.TrimSpace(r.Str)); err == nil {
				return b
			}
		case gjson.Number:
			return r.Num != 0
		}
	}
	return fallback
}

func pickInt(v gjson.Result, candidates fields) int64 {
	for _, path := range candidates {
		r := v.Get(path)
		switch r.Type {
		case gjson.Number:
			return r.Int()
		case gjson.String:
			if n, err := strconv.ParseInt(strings.TrimSpace(r.Str), 10, 64); err == nil {
				return n
			}
		}
	}
	return 0
}

func pickFloat(v gjson.Result, candidates fields) float64 {
	for _, path := range candidates {
		r := v.Get(path)
		switch r.Type {
		case gjson.Number:
			return r.Float()
		case gjson.String:
			if f, err := strconv.ParseFloat(strings.TrimSpace(r.Str), 64); err == nil {
				return f
			}
		}
	}
	return 0
}

// pickTime accepts RFC 3339 strings and unix timestamps in seconds or
// milliseconds.
func pickTime(v gjson.Result, candidates fields) (time.Time, bool) {
	for _, path := range candidates {
		r := v.Get(path)
		switch r.Type {
		case gjson.String:
			if t, err := time.Parse(time.RFC3339Nano, strings.TrimSpace(r.Str)); err == nil {
				return t.UTC(), true
			}
		case gjson.Number:
			n := r.Int()
			if n <= 0 {
				continue
			}
			if n > 1e12 {
				return time.UnixMilli(n).UTC(), true
			}
			return time.Unix(n, 0).UTC(), true
		}
	}
	return time.Time{}, false
}

// listItems accepts a bare array or an object wrapping one under any of the
// candidate keys.
func listItems(result gjson.Result, candidates fields) ([]gjson.Result, bool) {
	if result.IsArray() {
		return result.Array(), true
	}
	if result.IsObject() {
		for _, path := range candidates {
			if r := result.Get(path); r.IsArray() {
				return r.Array(), true
			}
		}
	}
	return nil, false
}

func mapStatus(v gjson.Result, now time.Time) Status {
	serverTime, ok := pickTime(v, statusFields.serverTime)
	if !ok {
		serverTime = now.UTC()
	}
	return Status{
		Version:     pickString(v, statusFields.version, unknown),
		Environment: pickString(v, statusFields.environment, unknown),
		ServerTime:  serverTime,
	}
}

func mapAgent(v gjson.Result) AgentSummary {
	id := pickString(v, agentFields.id, "")
	name := pickString(v, agentFields.name, id)
	if id == "" {
		id = name
	}
	heartbeat, _ := pickTime(v, agentFields.lastHeartbeat)
	return AgentSummary{
		ID:            id,
		Name:          name,
		Status:        strings.ToLower(pickString(v, agentFields.status, unknown)),
		LastHeartbeat: heartbeat,
	}
}

func mapProject(v gjson.Result) ProjectSummary {
	id := pickString(v, projectFields.id, "")
	name := pickString(v, projectFields.name, id)
	if id == "" {
		id = name
	}
	return ProjectSummary{
		ID:        id,
		Name:      name,
		Branch:    pickString(v, projectFields.branch, unknown),
		CommitSHA: pickString(v, projectFields.commitSHA, unknown),
		Health:    strings.ToLower(pickString(v, projectFields.health, unknown)),
	}
}

func mapRun(v gjson.Result) TaskRun {
	started, _ := pickTime(v, runFields.started)
	return TaskRun{
		ID:        pickString(v, runFields.id, ""),
		AgentName: pickString(v, runFields.agentName, unknown),
		State:     pickString(v, runFields.state, "running"),
		StartedAt: started,
	}
}

func mapUsage(v gjson.Result) UsageSummary {
	return UsageSummary{
		PromptTokens:     pickInt(v, usageFields.prompt),
		CompletionTokens: pickInt(v, usageFields.completion),
		EstimatedCostUSD: pickFloat(v, usageFields.cost),
	}
}

func mapCronJob(v gjson.Result) CronJob {
	job := CronJob{
		ID:       pickString(v, cronFields.id, ""),
		Name:     pickString(v, cronFields.name, ""),
		Enabled:  pickBool(v, cronFields.enabled, false),
		Schedule: pickString(v, cronFields.schedule, ""),
	}
	if job.ID == "" {
		job.ID = job.Name
	}
	if last, ok := pickTime(v, cronFields.lastRun); ok {
		job.LastRun = &last
	}
	return job
}

func mapSkill(v gjson.Result) Skill {
	return Skill{
		ID:      pickString(v, skillFields.id, ""),
		Name:    pickString(v, skillFields.name, ""),
		Enabled: pickBool(v, skillFields.enabled, false),
		Source:  pickString(v, skillFields.source, unknown),
		Health:  pickString(v, skillFields.health, unknown),
	}
}
