// ABOUTME: Realtime wire types: subscriptions sent to the gateway and envelopes received.
// ABOUTME: Envelope.EventID is the only deduplication key across socket, stream and backlog.

// Package event defines the realtime envelope and subscription wire types.
package event

import (
	"errors"
	"sort"
	"time"
)

// ErrMissingEventID marks an envelope that cannot be deduplicated.
var ErrMissingEventID = errors.New("envelope has no event id")

// Subscription asks for a channel's events, optionally resuming after Cursor.
type Subscription struct {
	Channel string `json:"channel"`
	Cursor  string `json:"cursor,omitempty"`
}

// Envelope is one realtime event.
type Envelope struct {
	EventID       string    `json:"eventId"`
	EventType     string    `json:"eventType"`
	OccurredAt    time.Time `json:"occurredAtUtc"`
	Version       int       `json:"version"`
	PayloadJSON   string    `json:"payloadJson"`
	CorrelationID string    `json:"correlationId,omitempty"`
}

// Validate checks the fields the journal relies on.
func (e Envelope) Validate() error {
	if e.EventID == "" {
		return ErrMissingEventID
	}
	return nil
}

// SortByOccurred returns a copy of envs ordered by OccurredAt ascending.
// Envelopes with equal timestamps keep their input order.
func SortByOccurred(envs []Envelope) []Envelope {
	sorted := make([]Envelope, len(envs))
	copy(sorted, envs)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].OccurredAt.Before(sorted[j].OccurredAt)
	})
	return sorted
}

// Subscriptions builds one subscription per channel without cursors.
func Subscriptions(channels ...string) []Subscription {
	subs := make([]Subscription, 0, len(channels))
	for _, ch := range channels {
		if ch == "" {
			continue
		}
		subs = append(subs, Subscription{Channel: ch})
	}
	return subs
}
