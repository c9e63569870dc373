// ABOUTME: Tests for CLI helpers: error messages, backlog parsing and the log handler

package main

import (
	"bytes"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/fatih/color"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/2389/coven-control/internal/fault"
)

func TestErrorMessage(t *testing.T) {
	plain := errors.New("loading config: permission denied")
	assert.Equal(t, plain.Error(), errorMessage(plain, "http://gw:18789/"))

	refused := &fault.Error{Kind: fault.KindTransientNetwork, Message: "refused", Refused: true}
	msg := errorMessage(refused, "http://gw:18789/")
	assert.Contains(t, msg, "Could not connect to the gateway at http://gw:18789/")

	assert.Contains(t, errorMessage(fault.Unsupported("agents_list"), "http://gw:18789/"), "compatible dashboard API")
}

func TestReadBacklog(t *testing.T) {
	path := filepath.Join(t.TempDir(), "backlog.json")
	require.NoError(t, os.WriteFile(path, []byte(`[
		{"eventId":"evt-2","eventType":"run.finished","occurredAtUtc":"2026-03-01T12:00:02Z","version":1,"payloadJson":"{}"},
		{"eventId":"evt-1","eventType":"run.started","occurredAtUtc":"2026-03-01T12:00:01Z","version":1,"payloadJson":"{}","correlationId":"c-1"}
	]`), 0o600))

	backlog, err := readBacklog(path)
	require.NoError(t, err)
	require.Len(t, backlog, 2)
	assert.Equal(t, "evt-2", backlog[0].EventID)
	assert.Equal(t, "c-1", backlog[1].CorrelationID)
	assert.Equal(t, 1, backlog[1].OccurredAt.Second())
}

func TestReadBacklog_RejectsMissingID(t *testing.T) {
	path := filepath.Join(t.TempDir(), "backlog.json")
	require.NoError(t, os.WriteFile(path, []byte(`[{"eventType":"x","occurredAtUtc":"2026-03-01T12:00:00Z"}]`), 0o600))

	_, err := readBacklog(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "backlog entry 0")
}

func TestReadBacklog_Malformed(t *testing.T) {
	path := filepath.Join(t.TempDir(), "backlog.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"not":"an array"}`), 0o600))

	_, err := readBacklog(path)
	assert.Error(t, err)
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, slog.LevelDebug, parseLevel("DEBUG"))
	assert.Equal(t, slog.LevelWarn, parseLevel("warn"))
	assert.Equal(t, slog.LevelError, parseLevel("error"))
	assert.Equal(t, slog.LevelInfo, parseLevel(""))
}

func TestColorHandler(t *testing.T) {
	color.NoColor = true
	t.Cleanup(func() { color.NoColor = false })

	var buf bytes.Buffer
	h := &colorHandler{out: &buf, mu: &sync.Mutex{}, level: slog.LevelInfo}
	logger := slog.New(h).With("component", "sync").WithGroup("req")

	logger.Debug("hidden")
	logger.Warn("reconnecting", "attempt", 2)

	out := buf.String()
	assert.NotContains(t, out, "hidden")
	assert.Contains(t, out, "WRN reconnecting")
	assert.Contains(t, out, "component=sync")
	assert.Contains(t, out, "req.attempt=2")
}
