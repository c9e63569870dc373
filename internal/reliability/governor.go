// ABOUTME: Retry with linear backoff, trip-once circuit breaker and idempotency keys.
// ABOUTME: One Governor instance is shared by all callers of a gateway.

package reliability

import (
	"context"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/2389/coven-control/internal/dedupe"
	"github.com/2389/coven-control/internal/fault"
	"github.com/2389/coven-control/internal/metrics"
)

// Defaults.
const (
	DefaultBaseDelay          = 100 * time.Millisecond
	DefaultIdempotencyTTL     = 24 * time.Hour
	DefaultIdempotencyMaxKeys = 10_000
)

// Governor holds circuit state and the idempotency registry.
type Governor struct {
	failures    atomic.Int64
	lastFailure atomic.Int64 // unix nanos
	probing     atomic.Bool

	baseDelay time.Duration
	cooldown  time.Duration
	keyTTL    time.Duration
	maxKeys   int
	now       func() time.Time
	logger    *slog.Logger

	keys *dedupe.Registry
}

// Option configures a Governor.
type Option func(*Governor)

// WithBaseDelay sets the per-attempt backoff unit.
func WithBaseDelay(d time.Duration) Option {
	return func(g *Governor) { g.baseDelay = d }
}

// WithCooldown lets one probe through an open circuit once d has passed
// since the last failure. Zero keeps the circuit open until Reset.
func WithCooldown(d time.Duration) Option {
	return func(g *Governor) { g.cooldown = d }
}

// WithIdempotency sets the idempotency key lifetime and bound.
func WithIdempotency(ttl time.Duration, maxKeys int) Option {
	return func(g *Governor) {
		g.keyTTL = ttl
		g.maxKeys = maxKeys
	}
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(g *Governor) { g.now = now }
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(g *Governor) { g.logger = logger }
}

// NewGovernor creates a governor. Close releases the idempotency sweeper.
func NewGovernor(opts ...Option) *Governor {
	g := &Governor{
		baseDelay: DefaultBaseDelay,
		keyTTL:    DefaultIdempotencyTTL,
		maxKeys:   DefaultIdempotencyMaxKeys,
		now:       time.Now,
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(g)
	}
	g.logger = g.logger.With("component", "reliability")
	g.keys = dedupe.New(g.keyTTL, g.maxKeys, dedupe.WithClock(g.now))
	return g
}

// ConsecutiveFailures returns the shared failure counter.
func (g *Governor) ConsecutiveFailures() int64 {
	return g.failures.Load()
}

// Reset closes the circuit.
func (g *Governor) Reset() {
	g.failures.Store(0)
	g.probing.Store(false)
	metrics.SetConsecutiveFailures(0)
}

// TryRegisterIdempotencyKey reports whether this is the first registration
// of key.
func (g *Governor) TryRegisterIdempotencyKey(key string) bool {
	return g.keys.Claim(key)
}

// ReleaseIdempotencyKey forgets key so the guarded operation can be retried.
func (g *Governor) ReleaseIdempotencyKey(key string) {
	g.keys.Forget(key)
}

// Close stops background work.
func (g *Governor) Close() {
	g.keys.Close()
}

// admit decides whether an attempt may start. It reports probe=true when the
// circuit is open but the cooldown allows a single trial call.
func (g *Governor) admit(maxAttempts int) (ok, probe bool) {
	if g.failures.Load() < int64(maxAttempts) {
		return true, false
	}
	if g.cooldown <= 0 {
		return false, false
	}
	since := g.now().Sub(time.Unix(0, g.lastFailure.Load()))
	if since < g.cooldown {
		return false, false
	}
	if !g.probing.CompareAndSwap(false, true) {
		return false, false
	}
	return true, true
}

func (g *Governor) recordFailure() int64 {
	g.lastFailure.Store(g.now().UnixNano())
	n := g.failures.Add(1)
	metrics.SetConsecutiveFailures(n)
	return n
}

func (g *Governor) recordSuccess() {
	if g.failures.Swap(0) != 0 {
		metrics.SetConsecutiveFailures(0)
	}
}

// Execute runs op with retry through g. A nil governor runs op once.
func Execute[T any](ctx context.Context, g *Governor, maxAttempts int, op func(context.Context) (T, error)) (T, error) {
	var zero T
	if g == nil {
		return op(ctx)
	}
	if maxAttempts < 1 {
		return zero, fault.Validation("maxAttempts must be at least 1")
	}

	ok, probe := g.admit(maxAttempts)
	if !ok {
		metrics.CircuitRejected()
		return zero, fault.CircuitOpen()
	}
	if probe {
		defer g.probing.Store(false)
		g.logger.Info("circuit cooldown elapsed, probing gateway")
		// A probe gets exactly one attempt.
		maxAttempts = 1
	}

	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return zero, fault.Cancelled(err)
		}

		v, err := op(ctx)
		if err == nil {
			g.recordSuccess()
			return v, nil
		}
		if ctx.Err() != nil || fault.KindOf(err) == fault.KindCancelled {
			return zero, fault.Cancelled(err)
		}
		if !fault.Retryable(err) {
			return zero, err
		}

		lastErr = err
		failures := g.recordFailure()
		if attempt == maxAttempts {
			break
		}

		delay := g.baseDelay * time.Duration(attempt)
		g.logger.Debug("operation failed, retrying",
			"attempt", attempt,
			"max_attempts", maxAttempts,
			"consecutive_failures", failures,
			"delay", delay,
			"error", err,
		)
		metrics.RetryScheduled()

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return zero, fault.Cancelled(ctx.Err())
		case <-timer.C:
		}
	}

	g.logger.Warn("operation failed after retries",
		"max_attempts", maxAttempts,
		"consecutive_failures", g.failures.Load(),
		"error", lastErr,
	)
	return zero, lastErr
}
