// ABOUTME: HTTP client for the gateway tool-invoke endpoint.
// ABOUTME: Applies the protocol tolerance rules and classifies every failure.

package gatewayapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/tidwall/gjson"

	"github.com/2389/coven-control/internal/connection"
	"github.com/2389/coven-control/internal/fault"
	"github.com/2389/coven-control/internal/metrics"
	"github.com/2389/coven-control/internal/reliability"
)

const (
	invokePath      = "tools/invoke"
	maxResponseSize = 8 << 20

	// DefaultMaxAttempts is the retry budget per call when a governor is attached.
	DefaultMaxAttempts = 3
)

// Client invokes gateway tools.
type Client struct {
	conn        *connection.Context
	http        *http.Client
	governor    *reliability.Governor
	maxAttempts int
	now         func() time.Time
	logger      *slog.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// WithGovernor routes every invocation through g with maxAttempts tries.
func WithGovernor(g *reliability.Governor, maxAttempts int) Option {
	return func(c *Client) {
		c.governor = g
		c.maxAttempts = maxAttempts
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) { c.logger = logger }
}

// WithClock overrides the time source used for defaults.
func WithClock(now func() time.Time) Option {
	return func(c *Client) { c.now = now }
}

// NewClient creates a client bound to conn. The base URL and token are read
// from conn on every call.
func NewClient(conn *connection.Context, opts ...Option) *Client {
	c := &Client{
		conn:        conn,
		http:        &http.Client{Timeout: 15 * time.Second},
		maxAttempts: DefaultMaxAttempts,
		now:         time.Now,
		logger:      slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.logger = c.logger.With("component", "gatewayapi")
	return c
}

// Endpoint returns the base URL currently in use.
func (c *Client) Endpoint() string {
	return c.conn.Current().BaseURL
}

// Invoke calls tool with args and returns the raw result value.
func (c *Client) Invoke(ctx context.Context, tool string, args map[string]any) (gjson.Result, error) {
	tool = strings.TrimSpace(tool)
	if tool == "" {
		return gjson.Result{}, fault.Validation("tool name is required")
	}
	if _, ok := args["tool"]; ok {
		return gjson.Result{}, fault.Validation(`args must not contain "tool"`)
	}

	return reliability.Execute(ctx, c.governor, c.maxAttempts, func(ctx context.Context) (gjson.Result, error) {
		start := time.Now()
		result, err := c.invokeOnce(ctx, tool, args)
		metrics.ObserveGatewayCall(tool, outcome(err), time.Since(start))
		return result, err
	})
}

func (c *Client) invokeOnce(ctx context.Context, tool string, args map[string]any) (gjson.Result, error) {
	opts := c.conn.Current()

	payload := make(map[string]any, len(args)+1)
	for k, v := range args {
		payload[k] = v
	}
	payload["tool"] = tool

	body, err := json.Marshal(payload)
	if err != nil {
		return gjson.Result{}, fault.Validation(fmt.Sprintf("encoding arguments for %s: %v", tool, err))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, opts.Endpoint(invokePath), bytes.NewReader(body))
	if err != nil {
		return gjson.Result{}, fmt.Errorf("creating request: %w", err)
	}
	requestID := uuid.NewString()
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Request-ID", requestID)
	if auth := opts.AuthorizationHeader(); auth != "" {
		req.Header.Set("Authorization", auth)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return gjson.Result{}, fault.FromTransport(err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return gjson.Result{}, fault.FromTransport(err)
	}

	result, err := interpret(tool, resp.StatusCode, resp.Header.Get("Content-Type"), raw)
	if err != nil {
		c.logger.Debug("tool invocation failed",
			"tool", tool,
			"status", resp.StatusCode,
			"request_id", requestID,
			"error", err,
		)
	}
	return result, err
}

// interpret applies the tolerance rules to one HTTP response.
func interpret(tool string, status int, contentType string, body []byte) (gjson.Result, error) {
	if isHTML(contentType) {
		return gjson.Result{}, fault.Incompatible("", "gateway returned an HTML page instead of the tools API", nil)
	}
	if status == http.StatusNotFound {
		return gjson.Result{}, fault.Unsupported(tool)
	}

	if !gjson.ValidBytes(body) {
		return gjson.Result{}, malformed(tool, status)
	}
	doc := gjson.ParseBytes(body)
	ok := doc.Get("ok")
	if !doc.IsObject() || (ok.Type != gjson.True && ok.Type != gjson.False) {
		return gjson.Result{}, malformed(tool, status)
	}

	if !ok.Bool() {
		errType := doc.Get("error.type").String()
		if errType == "not_found" {
			return gjson.Result{}, fault.Unsupported(tool)
		}
		msg := strings.TrimSpace(doc.Get("error.message").String())
		if msg == "" {
			msg = "gateway rejected the request"
		}
		return gjson.Result{}, fault.Incompatible(tool, msg, nil)
	}

	return doc.Get("result"), nil
}

func malformed(tool string, status int) error {
	if status >= http.StatusInternalServerError || status == http.StatusTooManyRequests {
		return fault.Transient(fmt.Sprintf("gateway returned HTTP %d", status), nil)
	}
	return fault.Incompatible(tool, "gateway response is not a tool result envelope", nil)
}

func isHTML(contentType string) bool {
	if contentType == "" {
		return false
	}
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return strings.Contains(strings.ToLower(contentType), "html")
	}
	return mediaType == "text/html" || mediaType == "application/xhtml+xml"
}

func outcome(err error) string {
	if err == nil {
		return "ok"
	}
	return fault.KindOf(err).String()
}
