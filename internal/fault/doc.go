// Package fault defines the error taxonomy shared by the gateway adapter,
// the reliability governor, the realtime transport and the sync engine.
//
// # Kinds
//
//   - IncompatibleAPI: the gateway answered, but not with the tool API this
//     client understands. Never retried. List-style callers degrade to an
//     empty result.
//   - TransientNetwork: connection refused, timeouts, 5xx. Retried by the
//     governor within its attempt budget.
//   - CircuitOpen: the governor refused to attempt the call.
//   - Cancelled: the caller's context ended. Never counted as a failure.
//   - Validation: malformed input supplied to an adapter call.
//
// Raw transport errors are classified once with FromTransport; higher layers
// only branch on Kind or on the sentinel errors via errors.Is.
package fault
