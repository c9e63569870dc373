// ABOUTME: Socket-first realtime transport with an event-stream fallback.
// ABOUTME: Reads endpoint and token from the connection context at connect time.

package realtime

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"

	"github.com/2389/coven-control/internal/connection"
	"github.com/2389/coven-control/internal/event"
	"github.com/2389/coven-control/internal/fault"
	"github.com/2389/coven-control/internal/metrics"
)

// Transport modes, used in logs and metrics.
const (
	ModeSocket = "socket"
	ModeStream = "stream"
)

const (
	maxFrameSize       = 1 << 20
	defaultDialTimeout = 10 * time.Second
)

// Transport opens realtime streams against the gateway.
type Transport struct {
	conn        *connection.Context
	http        *http.Client
	socketURL   string
	streamURL   string
	dialTimeout time.Duration
	logger      *slog.Logger
}

// Option configures a Transport.
type Option func(*Transport)

// WithSocketURL overrides the socket endpoint derived from the base URL.
func WithSocketURL(u string) Option {
	return func(t *Transport) { t.socketURL = u }
}

// WithStreamURL overrides the event-stream endpoint derived from the base URL.
func WithStreamURL(u string) Option {
	return func(t *Transport) { t.streamURL = u }
}

// WithHTTPClient sets the client used for the event stream. It must not set
// an overall Timeout, since the response body stays open for the session.
func WithHTTPClient(hc *http.Client) Option {
	return func(t *Transport) { t.http = hc }
}

// WithDialTimeout bounds socket connection setup.
func WithDialTimeout(d time.Duration) Option {
	return func(t *Transport) { t.dialTimeout = d }
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(t *Transport) { t.logger = logger }
}

// NewTransport creates a transport bound to conn.
func NewTransport(conn *connection.Context, opts ...Option) *Transport {
	t := &Transport{
		conn:        conn,
		http:        &http.Client{},
		dialTimeout: defaultDialTimeout,
		logger:      slog.Default(),
	}
	for _, opt := range opts {
		opt(t)
	}
	t.logger = t.logger.With("component", "realtime")
	return t
}

// Connect starts reading envelopes for subs. The returned stream ends when
// the server closes it, on an unrecoverable error, or when ctx is cancelled.
func (t *Transport) Connect(ctx context.Context, subs []event.Subscription) *Stream {
	s := newStream()
	go func() {
		s.finish(t.run(ctx, subs, s))
	}()
	return s
}

func (t *Transport) run(ctx context.Context, subs []event.Subscription, s *Stream) error {
	opts := t.conn.Current()
	socketURL := firstNonEmpty(t.socketURL, opts.SocketURL())
	streamURL := firstNonEmpty(t.streamURL, opts.StreamURL())

	delivered, err := t.readSocket(ctx, socketURL, opts, subs, s)
	if err == nil {
		return nil
	}
	if ctx.Err() != nil {
		return fault.Cancelled(ctx.Err())
	}
	if delivered > 0 {
		return fault.FromTransport(fmt.Errorf("socket stream interrupted: %w", err))
	}

	t.logger.Warn("socket transport unavailable, falling back to event stream",
		"socket_url", socketURL,
		"stream_url", streamURL,
		"error", err,
	)
	metrics.TransportFellBack()

	if _, err := t.readEventStream(ctx, streamURL, opts, subs, s); err != nil {
		if ctx.Err() != nil {
			return fault.Cancelled(ctx.Err())
		}
		return fault.FromTransport(err)
	}
	return nil
}

// readSocket returns the number of envelopes delivered and nil on a normal
// close.
func (t *Transport) readSocket(ctx context.Context, url string, opts connection.Options, subs []event.Subscription, s *Stream) (int, error) {
	header := http.Header{}
	if auth := opts.AuthorizationHeader(); auth != "" {
		header.Set("Authorization", auth)
	}

	dialCtx, cancel := context.WithTimeout(ctx, t.dialTimeout)
	c, _, err := websocket.Dial(dialCtx, url, &websocket.DialOptions{HTTPHeader: header})
	cancel()
	if err != nil {
		return 0, fmt.Errorf("dialing %s: %w", url, err)
	}
	defer c.CloseNow()
	c.SetReadLimit(maxFrameSize)

	if err := wsjson.Write(ctx, c, subscriptionList(subs)); err != nil {
		return 0, fmt.Errorf("sending subscriptions: %w", err)
	}
	metrics.TransportConnected(ModeSocket)
	t.logger.Info("realtime socket connected", "url", url, "subscriptions", len(subs))

	delivered := 0
	for {
		typ, data, err := c.Read(ctx)
		if err != nil {
			switch websocket.CloseStatus(err) {
			case websocket.StatusNormalClosure, websocket.StatusGoingAway:
				t.logger.Info("realtime socket closed by gateway", "delivered", delivered)
				return delivered, nil
			}
			return delivered, fmt.Errorf("reading frame: %w", err)
		}
		if typ != websocket.MessageText {
			continue
		}

		env, ok := t.decode(ModeSocket, data)
		if !ok {
			continue
		}
		if !s.emit(ctx, env) {
			return delivered, ctx.Err()
		}
		delivered++
	}
}

// readEventStream returns the number of envelopes delivered and nil when the
// server ends the response.
func (t *Transport) readEventStream(ctx context.Context, url string, opts connection.Options, subs []event.Subscription, s *Stream) (int, error) {
	body, err := json.Marshal(subscriptionList(subs))
	if err != nil {
		return 0, fmt.Errorf("encoding subscriptions: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return 0, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "text/event-stream")
	if auth := opts.AuthorizationHeader(); auth != "" {
		req.Header.Set("Authorization", auth)
	}

	resp, err := t.http.Do(req)
	if err != nil {
		return 0, fmt.Errorf("opening event stream: %w", err)
	}
	defer resp.Body.Close()

	if err := checkStreamResponse(resp); err != nil {
		return 0, err
	}
	metrics.TransportConnected(ModeStream)
	t.logger.Info("realtime event stream connected", "url", url, "subscriptions", len(subs))

	return t.scanDataLines(ctx, resp.Body, s)
}

func (t *Transport) scanDataLines(ctx context.Context, body io.Reader, s *Stream) (int, error) {
	scanner := bufio.NewScanner(body)
	scanner.Buffer(make([]byte, 0, 64*1024), maxFrameSize)

	delivered := 0
	for scanner.Scan() {
		if err := ctx.Err(); err != nil {
			return delivered, err
		}

		line := scanner.Text()
		if !strings.HasPrefix(line, "data:") {
			continue
		}
		payload := strings.TrimSpace(strings.TrimPrefix(line, "data:"))
		if payload == "" {
			continue
		}

		env, ok := t.decode(ModeStream, []byte(payload))
		if !ok {
			continue
		}
		if !s.emit(ctx, env) {
			return delivered, ctx.Err()
		}
		delivered++
	}
	if err := scanner.Err(); err != nil {
		return delivered, fmt.Errorf("reading event stream: %w", err)
	}
	return delivered, nil
}

// decode drops frames that are not envelopes. The journal keys on EventID,
// so an envelope without one cannot be applied safely.
func (t *Transport) decode(mode string, data []byte) (event.Envelope, bool) {
	var env event.Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		t.logger.Warn("dropping undecodable realtime frame", "mode", mode, "error", err)
		metrics.FrameDropped(mode)
		return env, false
	}
	if err := env.Validate(); err != nil {
		t.logger.Warn("dropping realtime frame", "mode", mode, "error", err)
		metrics.FrameDropped(mode)
		return env, false
	}
	return env, true
}

func checkStreamResponse(resp *http.Response) error {
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		if strings.Contains(strings.ToLower(resp.Header.Get("Content-Type")), "text/html") {
			return fault.Incompatible("", "event stream endpoint returned an HTML page", nil)
		}
		return nil
	}
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
	if resp.StatusCode >= 500 || resp.StatusCode == http.StatusTooManyRequests {
		return fault.Transient(fmt.Sprintf("event stream returned HTTP %d", resp.StatusCode), nil)
	}
	return fault.Incompatible("", fmt.Sprintf("event stream returned HTTP %d", resp.StatusCode), nil)
}

// subscriptionList guarantees a JSON array even with no subscriptions.
func subscriptionList(subs []event.Subscription) []event.Subscription {
	if subs == nil {
		return []event.Subscription{}
	}
	return subs
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
