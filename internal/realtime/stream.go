// ABOUTME: Channel-backed stream of envelopes produced by a transport reader.
// ABOUTME: Err reports why the stream ended once Events has been drained.

package realtime

import (
	"context"

	"github.com/2389/coven-control/internal/event"
)

// Stream delivers envelopes in the order the transport received them.
type Stream struct {
	events chan event.Envelope
	done   chan struct{}
	err    error
}

func newStream() *Stream {
	return &Stream{
		events: make(chan event.Envelope),
		done:   make(chan struct{}),
	}
}

// Events is closed when the stream ends.
func (s *Stream) Events() <-chan event.Envelope {
	return s.events
}

// Err blocks until the stream has ended and returns the terminal error, or
// nil when the server closed the stream normally.
func (s *Stream) Err() error {
	<-s.done
	return s.err
}

// emit hands env to the consumer, giving up when ctx ends.
func (s *Stream) emit(ctx context.Context, env event.Envelope) bool {
	select {
	case s.events <- env:
		return true
	case <-ctx.Done():
		return false
	}
}

func (s *Stream) finish(err error) {
	s.err = err
	close(s.events)
	close(s.done)
}

// Replay returns a stream that yields envs and then ends with err. It lets
// an already materialized sequence flow through code written for live
// streams.
func Replay(envs []event.Envelope, err error) *Stream {
	s := &Stream{
		events: make(chan event.Envelope, len(envs)),
		done:   make(chan struct{}),
	}
	for _, env := range envs {
		s.events <- env
	}
	s.finish(err)
	return s
}
