// Package reliability wraps fallible gateway operations with bounded retry,
// a shared circuit breaker and an idempotency key registry.
//
// # Retry
//
// Execute runs an operation up to maxAttempts times, waiting
// baseDelay × attempt between attempts (100ms, 200ms, ... by default).
// Cancellation is checked before every attempt. Only retryable failures
// (transient network and unclassified errors) are retried or counted
// against the circuit.
//
// # Circuit
//
// One Governor is shared by every caller of a gateway. Once its
// consecutive-failure counter reaches the caller's maxAttempts, Execute
// fails with fault.ErrCircuitOpen without running the operation. A success
// resets the counter. With a cooldown configured a single probe is let
// through after the cooldown has passed since the last failure.
//
// # Runtime mode and cache integrity
//
// EvaluateRuntimeMode and the file hash helpers summarize whether the
// client is working against a live gateway or a local cache, and whether
// that cache file is intact.
package reliability
