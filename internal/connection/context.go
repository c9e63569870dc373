// ABOUTME: Thread-safe holder of the current gateway base URL and bearer token.
// ABOUTME: Options are normalized on construction and swapped as a whole value.

package connection

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"sync"
)

// DefaultBaseURL is where a stock gateway listens.
const DefaultBaseURL = "http://localhost:18789/"

// ErrInvalidBaseURL is returned for base URLs that are not absolute http(s) URLs.
var ErrInvalidBaseURL = errors.New("invalid gateway base url")

// Options is an immutable snapshot of connection settings. BaseURL is
// always absolute and ends with "/".
type Options struct {
	BaseURL string
	Token   string
}

// NewOptions normalizes baseURL and pairs it with token.
func NewOptions(baseURL, token string) (Options, error) {
	normalized, err := NormalizeBaseURL(baseURL)
	if err != nil {
		return Options{}, err
	}
	return Options{BaseURL: normalized, Token: strings.TrimSpace(token)}, nil
}

// NormalizeBaseURL validates raw and guarantees a trailing slash.
func NormalizeBaseURL(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", fmt.Errorf("%w: empty", ErrInvalidBaseURL)
	}
	u, err := url.Parse(raw)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidBaseURL, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return "", fmt.Errorf("%w: scheme must be http or https, got %q", ErrInvalidBaseURL, u.Scheme)
	}
	if u.Host == "" {
		return "", fmt.Errorf("%w: missing host", ErrInvalidBaseURL)
	}
	u.RawQuery = ""
	u.Fragment = ""
	if !strings.HasSuffix(u.Path, "/") {
		u.Path += "/"
	}
	return u.String(), nil
}

// Endpoint resolves rel against the base URL.
func (o Options) Endpoint(rel string) string {
	return o.BaseURL + strings.TrimPrefix(rel, "/")
}

// SocketURL is the persistent realtime endpoint derived from the base URL.
func (o Options) SocketURL() string {
	u := o.Endpoint("realtime")
	switch {
	case strings.HasPrefix(u, "https://"):
		return "wss://" + strings.TrimPrefix(u, "https://")
	case strings.HasPrefix(u, "http://"):
		return "ws://" + strings.TrimPrefix(u, "http://")
	}
	return u
}

// StreamURL is the fallback event-stream endpoint derived from the base URL.
func (o Options) StreamURL() string {
	return o.Endpoint("realtime/sse")
}

// AuthorizationHeader returns the bearer header value, or "" without a token.
func (o Options) AuthorizationHeader() string {
	if o.Token == "" {
		return ""
	}
	return "Bearer " + o.Token
}

// Context guards the current Options.
type Context struct {
	mu      sync.RWMutex
	current Options
}

// NewContext creates a context holding opts.
func NewContext(opts Options) *Context {
	return &Context{current: opts}
}

// Current returns a consistent snapshot.
func (c *Context) Current() Options {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.current
}

// Update replaces the current options after normalizing the base URL. On
// error the previous options stay in effect.
func (c *Context) Update(opts Options) error {
	normalized, err := NewOptions(opts.BaseURL, opts.Token)
	if err != nil {
		return err
	}
	c.mu.Lock()
	c.current = normalized
	c.mu.Unlock()
	return nil
}
