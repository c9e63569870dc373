// ABOUTME: Sync session state machine: RunOnce, RunWithReconnect and backlog Reconcile.
// ABOUTME: The journal decides what is new; the engine only counts and sequences.

package reconcile

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/2389/coven-control/internal/event"
	"github.com/2389/coven-control/internal/fault"
	"github.com/2389/coven-control/internal/metrics"
	"github.com/2389/coven-control/internal/realtime"
	"github.com/2389/coven-control/internal/store"
)

// State of a sync session.
type State int32

const (
	StateIdle State = iota
	StateConnected
	StateReconnecting
	StateFailed
	StateCancelled
)

func (s State) String() string {
	switch s {
	case StateConnected:
		return "connected"
	case StateReconnecting:
		return "reconnecting"
	case StateFailed:
		return "failed"
	case StateCancelled:
		return "cancelled"
	default:
		return "idle"
	}
}

// Source opens realtime streams. *realtime.Transport implements it.
type Source interface {
	Connect(ctx context.Context, subs []event.Subscription) *realtime.Stream
}

// Engine applies envelopes to a journal.
type Engine struct {
	source  Source
	journal store.Journal
	logger  *slog.Logger
	state   atomic.Int32

	// OnApplied, when set, is called after each newly journaled envelope.
	OnApplied func(event.Envelope)
}

// NewEngine creates an engine. logger may be nil.
func NewEngine(source Source, journal store.Journal, logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{
		source:  source,
		journal: journal,
		logger:  logger.With("component", "reconcile"),
	}
}

// State returns the current session state.
func (e *Engine) State() State {
	return State(e.state.Load())
}

func (e *Engine) setState(s State) {
	if State(e.state.Swap(int32(s))) != s {
		e.logger.Debug("sync state changed", "state", s.String())
	}
	metrics.SetSyncState(int(s))
}

// RunOnce consumes one transport connection until it ends and returns the
// number of newly journaled envelopes.
func (e *Engine) RunOnce(ctx context.Context, subs []event.Subscription) (int, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	stream := e.source.Connect(ctx, subs)
	e.setState(StateConnected)

	applied := 0
	for env := range stream.Events() {
		ok, err := e.apply(ctx, env, metrics.SourceLive)
		if err != nil {
			return applied, err
		}
		if ok {
			applied++
		}
	}
	if err := stream.Err(); err != nil {
		return applied, err
	}
	return applied, nil
}

// RunWithReconnect repeats RunOnce until ctx is cancelled. A clean stream
// end resets the attempt counter; a failure increments it. Once attempts
// exceed maxReconnectAttempts the last error is returned together with the
// total applied so far. Cancellation returns the total and a nil error.
func (e *Engine) RunWithReconnect(ctx context.Context, subs []event.Subscription, maxReconnectAttempts int, reconnectDelay time.Duration) (int, error) {
	total, attempts := 0, 0
	for {
		if ctx.Err() != nil {
			e.setState(StateCancelled)
			return total, nil
		}

		n, err := e.RunOnce(ctx, subs)
		total += n

		switch {
		case err == nil:
			attempts = 0
			e.logger.Info("realtime stream ended, reconnecting", "applied", n, "total", total)
			metrics.SyncReconnect("ended")
		case ctx.Err() != nil || errors.Is(err, fault.ErrCancelled):
			e.setState(StateCancelled)
			return total, nil
		default:
			attempts++
			if attempts > maxReconnectAttempts {
				e.setState(StateFailed)
				e.logger.Error("sync session giving up",
					"attempts", attempts,
					"total", total,
					"error", err,
				)
				return total, fmt.Errorf("sync failed after %d reconnect attempts: %w", maxReconnectAttempts, err)
			}
			e.logger.Warn("realtime session failed, reconnecting",
				"attempt", attempts,
				"max_attempts", maxReconnectAttempts,
				"delay", reconnectDelay,
				"error", err,
			)
			metrics.SyncReconnect("error")
		}

		e.setState(StateReconnecting)
		if !sleep(ctx, reconnectDelay) {
			e.setState(StateCancelled)
			return total, nil
		}
	}
}

// Reconcile applies backlog in ascending OccurredAt order, skipping
// envelopes already journaled, and returns how many were newly applied.
func (e *Engine) Reconcile(ctx context.Context, backlog []event.Envelope) (int, error) {
	applied := 0
	for _, env := range event.SortByOccurred(backlog) {
		if err := ctx.Err(); err != nil {
			return applied, fault.Cancelled(err)
		}
		ok, err := e.apply(ctx, env, metrics.SourceBacklog)
		if err != nil {
			return applied, err
		}
		if ok {
			applied++
		}
	}
	e.logger.Info("backlog reconciled", "received", len(backlog), "applied", applied)
	return applied, nil
}

func (e *Engine) apply(ctx context.Context, env event.Envelope, source string) (bool, error) {
	seen, err := e.journal.HasProcessed(ctx, env.EventID)
	if err != nil {
		return false, fmt.Errorf("checking %s: %w", env.EventID, err)
	}
	if seen {
		metrics.EventDuplicate(source)
		return false, nil
	}

	inserted, err := e.journal.Append(ctx, env)
	if err != nil {
		return false, fmt.Errorf("journaling %s: %w", env.EventID, err)
	}
	if !inserted {
		// Another session journaled it between the check and the insert.
		metrics.EventDuplicate(source)
		return false, nil
	}

	metrics.EventApplied(source)
	if e.OnApplied != nil {
		e.OnApplied(env)
	}
	return true, nil
}

func sleep(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}
