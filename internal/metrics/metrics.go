// ABOUTME: Prometheus collectors for gateway calls, the governor, the transport and sync.
// ABOUTME: Registered on the default registry; the CLI exposes them with promhttp.

// Package metrics records sync core activity as Prometheus metrics.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	gatewayCallDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "coven_control_gateway_call_duration_seconds",
		Help:    "Duration of gateway tool invocations",
		Buckets: []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
	}, []string{"tool", "outcome"})

	gatewayCallTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "coven_control_gateway_calls_total",
		Help: "Gateway tool invocations grouped by tool and outcome",
	}, []string{"tool", "outcome"})

	retryAttempts = promauto.NewCounter(prometheus.CounterOpts{
		Name: "coven_control_retry_attempts_total",
		Help: "Retries scheduled by the reliability governor",
	})

	circuitRejections = promauto.NewCounter(prometheus.CounterOpts{
		Name: "coven_control_circuit_rejections_total",
		Help: "Operations refused because the circuit was open",
	})

	consecutiveFailures = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "coven_control_consecutive_failures",
		Help: "Current consecutive failure count of the reliability governor",
	})

	eventsApplied = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "coven_control_events_applied_total",
		Help: "Envelopes newly written to the journal grouped by source",
	}, []string{"source"})

	eventsDuplicate = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "coven_control_events_duplicate_total",
		Help: "Envelopes skipped because the journal already held them",
	}, []string{"source"})

	framesDropped = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "coven_control_realtime_frames_dropped_total",
		Help: "Realtime frames that could not be decoded into an envelope",
	}, []string{"mode"})

	transportConnections = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "coven_control_realtime_connections_total",
		Help: "Realtime connections established grouped by transport mode",
	}, []string{"mode"})

	transportFallbacks = promauto.NewCounter(prometheus.CounterOpts{
		Name: "coven_control_realtime_fallbacks_total",
		Help: "Times the socket transport failed and the event stream was used instead",
	})

	syncReconnects = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "coven_control_sync_reconnects_total",
		Help: "Sync session reconnects grouped by cause",
	}, []string{"cause"})

	syncState = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "coven_control_sync_state",
		Help: "Sync session state (0 idle, 1 connected, 2 reconnecting, 3 failed, 4 cancelled)",
	})
)

// Event sources.
const (
	SourceLive    = "live"
	SourceBacklog = "backlog"
)

// ObserveGatewayCall records one tool invocation.
func ObserveGatewayCall(tool, outcome string, duration time.Duration) {
	if tool == "" {
		tool = "unknown"
	}
	if outcome == "" {
		outcome = "unknown"
	}
	gatewayCallDuration.WithLabelValues(tool, outcome).Observe(duration.Seconds())
	gatewayCallTotal.WithLabelValues(tool, outcome).Inc()
}

// RetryScheduled counts one retry.
func RetryScheduled() { retryAttempts.Inc() }

// CircuitRejected counts one fail-fast refusal.
func CircuitRejected() { circuitRejections.Inc() }

// SetConsecutiveFailures publishes the governor's failure counter.
func SetConsecutiveFailures(n int64) { consecutiveFailures.Set(float64(n)) }

// EventApplied counts an envelope newly journaled from source.
func EventApplied(source string) { eventsApplied.WithLabelValues(source).Inc() }

// EventDuplicate counts an envelope skipped as already journaled.
func EventDuplicate(source string) { eventsDuplicate.WithLabelValues(source).Inc() }

// FrameDropped counts an undecodable realtime frame.
func FrameDropped(mode string) { framesDropped.WithLabelValues(mode).Inc() }

// TransportConnected counts an established realtime connection.
func TransportConnected(mode string) { transportConnections.WithLabelValues(mode).Inc() }

// TransportFellBack counts a socket-to-stream fallback.
func TransportFellBack() { transportFallbacks.Inc() }

// SyncReconnect counts a reconnect; cause is "ended" or "error".
func SyncReconnect(cause string) { syncReconnects.WithLabelValues(cause).Inc() }

// SetSyncState publishes the sync session state.
func SetSyncState(state int) { syncState.Set(float64(state)) }

// Handler serves the default registry.
func Handler() http.Handler { return promhttp.Handler() }
