// Package realtime streams event envelopes from the gateway.
//
// # Transports
//
// Connect first dials the persistent socket endpoint, sends the
// subscription list as one JSON text frame and then decodes one envelope per
// inbound text frame until the server closes the connection. If the socket
// cannot be established, or fails before any envelope reached the consumer,
// the whole subscription is retried over the event-stream endpoint: the
// subscriptions are POSTed and every "data:" line of the response carries
// one envelope.
//
// A failure after envelopes were delivered is not retried here. Delivery is
// at-least-once and the journal deduplicates, so the sync engine's reconnect
// loop recovers without a second transport racing the first.
//
// # Streaming
//
// Envelopes are handed to the consumer through a channel as they arrive.
// The consumer ranges over Stream.Events and then checks Stream.Err.
// Cancelling the context passed to Connect stops the reader.
package realtime
