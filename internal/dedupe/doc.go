// Package dedupe provides a bounded, expiring registry of opaque keys with
// first-registration-wins semantics.
//
// # Overview
//
// The reliability governor uses a Registry to make effectful operations
// (reauthorization prompts, user-confirmed mutations) run at most once per
// idempotency key. Keys are remembered for a TTL measured from their first
// registration; when the registry reaches its size bound the oldest key is
// evicted so the set cannot grow without limit.
//
// A TTL of zero keeps keys until they are evicted by the size bound. A size
// bound of zero disables eviction.
package dedupe
