// Package reconcile drives realtime sessions into the event journal and
// merges out-of-band backlogs.
//
// An Engine consumes one transport stream at a time. Every envelope is
// checked against the journal and appended only if it has not been seen,
// so redelivery from socket retransmits, stream replays and backlogs is
// harmless. RunWithReconnect keeps a session alive across clean stream
// ends and transient failures until the caller cancels or the reconnect
// budget is exhausted.
package reconcile
