// ABOUTME: Tests for the realtime transport against httptest socket and event-stream servers.
// ABOUTME: Covers socket delivery, fallback rules, malformed frames and cancellation.

package realtime

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/2389/coven-control/internal/connection"
	"github.com/2389/coven-control/internal/event"
	"github.com/2389/coven-control/internal/fault"
)

func envelopeJSON(id string) string {
	return fmt.Sprintf(`{"eventId":%q,"eventType":"agent.updated","occurredAtUtc":"2026-03-01T10:00:00Z","version":1,"payloadJson":"{}"}`, id)
}

func newTestTransport(t *testing.T, baseURL string, opts ...Option) *Transport {
	t.Helper()
	o, err := connection.NewOptions(baseURL, "tok")
	require.NoError(t, err)
	return NewTransport(connection.NewContext(o), opts...)
}

func collect(t *testing.T, s *Stream) ([]string, error) {
	t.Helper()
	var ids []string
	timeout := time.After(5 * time.Second)
	for {
		select {
		case env, ok := <-s.Events():
			if !ok {
				return ids, s.Err()
			}
			ids = append(ids, env.EventID)
		case <-timeout:
			t.Fatal("stream did not end")
		}
	}
}

func TestSocketDeliversFramesInOrder(t *testing.T) {
	var gotSubs []event.Subscription
	var gotAuth string
	mux := http.NewServeMux()
	mux.HandleFunc("/realtime", func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		c, err := websocket.Accept(w, r, nil)
		if err != nil {
			return
		}
		defer c.CloseNow()
		if err := wsjson.Read(r.Context(), c, &gotSubs); err != nil {
			return
		}
		ctx := r.Context()
		_ = c.Write(ctx, websocket.MessageText, []byte(envelopeJSON("e1")))
		_ = c.Write(ctx, websocket.MessageText, []byte(`{not json`))
		_ = c.Write(ctx, websocket.MessageText, []byte(`{"eventType":"no.id"}`))
		_ = c.Write(ctx, websocket.MessageText, []byte(envelopeJSON("e2")))
		_ = c.Close(websocket.StatusNormalClosure, "done")
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	tr := newTestTransport(t, srv.URL)
	ids, err := collect(t, tr.Connect(context.Background(), event.Subscriptions("agents", "projects")))

	require.NoError(t, err)
	assert.Equal(t, []string{"e1", "e2"}, ids)
	assert.Equal(t, []event.Subscription{{Channel: "agents"}, {Channel: "projects"}}, gotSubs)
	assert.Equal(t, "Bearer tok", gotAuth)
}

func TestFallsBackToEventStreamWhenSocketUnavailable(t *testing.T) {
	var gotBody, gotAuth string
	mux := http.NewServeMux()
	mux.HandleFunc("/realtime", http.NotFound)
	mux.HandleFunc("/realtime/sse", func(w http.ResponseWriter, r *http.Request) {
		raw, _ := io.ReadAll(r.Body)
		gotBody = string(raw)
		gotAuth = r.Header.Get("Authorization")
		w.Header().Set("Content-Type", "text/event-stream")
		_, _ = io.WriteString(w, ": keepalive\n")
		_, _ = io.WriteString(w, "event: envelope\n")
		_, _ = io.WriteString(w, "data: "+envelopeJSON("s1")+"\n\n")
		_, _ = io.WriteString(w, "data:\n")
		_, _ = io.WriteString(w, "data:   "+envelopeJSON("s2")+"   \n\n")
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	tr := newTestTransport(t, srv.URL)
	ids, err := collect(t, tr.Connect(context.Background(), []event.Subscription{{Channel: "runs", Cursor: "c-1"}}))

	require.NoError(t, err)
	assert.Equal(t, []string{"s1", "s2"}, ids)
	assert.JSONEq(t, `[{"channel":"runs","cursor":"c-1"}]`, gotBody)
	assert.Equal(t, "Bearer tok", gotAuth)
}

func TestNoFallbackAfterSocketDelivered(t *testing.T) {
	var streamHits atomic.Int32
	mux := http.NewServeMux()
	mux.HandleFunc("/realtime", func(w http.ResponseWriter, r *http.Request) {
		c, err := websocket.Accept(w, r, nil)
		if err != nil {
			return
		}
		defer c.CloseNow()
		var subs []event.Subscription
		_ = wsjson.Read(r.Context(), c, &subs)
		_ = c.Write(r.Context(), websocket.MessageText, []byte(envelopeJSON("e1")))
		_ = c.Close(websocket.StatusInternalError, "gateway restarting")
	})
	mux.HandleFunc("/realtime/sse", func(w http.ResponseWriter, _ *http.Request) {
		streamHits.Add(1)
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	tr := newTestTransport(t, srv.URL)
	ids, err := collect(t, tr.Connect(context.Background(), event.Subscriptions("agents")))

	assert.Equal(t, []string{"e1"}, ids)
	require.Error(t, err)
	assert.NotErrorIs(t, err, fault.ErrCancelled)
	assert.Equal(t, int32(0), streamHits.Load())
}

func TestFallbackStreamIncompatible(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	defer srv.Close()

	tr := newTestTransport(t, srv.URL)
	ids, err := collect(t, tr.Connect(context.Background(), nil))

	assert.Empty(t, ids)
	assert.ErrorIs(t, err, fault.ErrIncompatibleAPI)
}

func TestFallbackStreamServerErrorIsTransient(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/realtime/sse", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	tr := newTestTransport(t, srv.URL)
	_, err := collect(t, tr.Connect(context.Background(), nil))

	assert.ErrorIs(t, err, fault.ErrTransientNetwork)
}

func TestEndpointOverrides(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/custom/events", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = io.WriteString(w, "data: "+envelopeJSON("o1")+"\n")
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	tr := newTestTransport(t, "http://127.0.0.1:1/",
		WithSocketURL("ws"+srv.URL[len("http"):]+"/custom/socket"),
		WithStreamURL(srv.URL+"/custom/events"),
	)
	ids, err := collect(t, tr.Connect(context.Background(), nil))

	require.NoError(t, err)
	assert.Equal(t, []string{"o1"}, ids)
}

func TestCancelStopsSocketReader(t *testing.T) {
	connected := make(chan struct{})
	mux := http.NewServeMux()
	mux.HandleFunc("/realtime", func(w http.ResponseWriter, r *http.Request) {
		c, err := websocket.Accept(w, r, nil)
		if err != nil {
			return
		}
		defer c.CloseNow()
		var subs []event.Subscription
		_ = wsjson.Read(r.Context(), c, &subs)
		close(connected)
		_, _, _ = c.Read(context.Background())
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	tr := newTestTransport(t, srv.URL)
	s := tr.Connect(ctx, event.Subscriptions("agents"))

	<-connected
	cancel()
	ids, err := collect(t, s)

	assert.Empty(t, ids)
	assert.True(t, errors.Is(err, fault.ErrCancelled))
}

func TestReplay(t *testing.T) {
	boom := errors.New("boom")
	s := Replay([]event.Envelope{{EventID: "a"}, {EventID: "b"}}, boom)

	ids, err := collect(t, s)
	assert.Equal(t, []string{"a", "b"}, ids)
	assert.Same(t, boom, err)
}
