// ABOUTME: Tests for failure classification and operator-facing messages.
// ABOUTME: Uses real dial failures and wrapped errors to exercise the classifier.

package fault

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestErrorIsMatchesSentinelForKind(t *testing.T) {
	err := fmt.Errorf("loading agents: %w", Unsupported("agents_list"))

	assert.True(t, errors.Is(err, ErrIncompatibleAPI))
	assert.False(t, errors.Is(err, ErrTransientNetwork))
	assert.Equal(t, KindIncompatibleAPI, KindOf(err))
	assert.Contains(t, err.Error(), "agents_list")
}

func TestKindOfBareContextCancel(t *testing.T) {
	assert.Equal(t, KindCancelled, KindOf(context.Canceled))
	assert.Equal(t, KindUnknown, KindOf(errors.New("boom")))
	assert.Equal(t, KindUnknown, KindOf(nil))
}

func TestRetryable(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"transient", Transient("down", nil), true},
		{"unknown", errors.New("flaky"), true},
		{"incompatible", Incompatible("", "html", nil), false},
		{"circuit", CircuitOpen(), false},
		{"cancelled", Cancelled(context.Canceled), false},
		{"validation", Validation("empty tool"), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Retryable(tt.err))
		})
	}
}

func TestFromTransportRefusedConnection(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := ln.Addr().String()
	require.NoError(t, ln.Close())

	_, err = http.Get("http://" + addr + "/tools/invoke")
	require.Error(t, err)

	classified := FromTransport(err)
	var fe *Error
	require.True(t, errors.As(classified, &fe))
	assert.Equal(t, KindTransientNetwork, fe.Kind)
	assert.True(t, fe.Refused)
}

func TestFromTransportDeadline(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Nanosecond)
	defer cancel()
	<-ctx.Done()

	classified := FromTransport(fmt.Errorf("read: %w", ctx.Err()))
	var fe *Error
	require.True(t, errors.As(classified, &fe))
	assert.True(t, fe.Timeout)
}

func TestFromTransportPassesThroughClassified(t *testing.T) {
	orig := Validation("bad")
	assert.Same(t, orig, FromTransport(orig))
	assert.Nil(t, FromTransport(nil))
	assert.Equal(t, KindCancelled, KindOf(FromTransport(context.Canceled)))
}

func TestUserMessage(t *testing.T) {
	endpoint := "http://gw.local:18789/"

	refused := &Error{Kind: KindTransientNetwork, Refused: true}
	assert.Contains(t, UserMessage(refused, endpoint), "Could not connect to the gateway at http://gw.local:18789/")
	assert.Contains(t, UserMessage(refused, endpoint), "default: http://localhost:18789")

	timeout := &Error{Kind: KindTransientNetwork, Timeout: true}
	assert.Contains(t, UserMessage(timeout, endpoint), "did not respond in time")

	incompatible := Incompatible("", "gateway returned HTML", nil)
	assert.Contains(t, UserMessage(incompatible, endpoint), "not serving a compatible dashboard API")

	msg := UserMessage(errors.New("sql: database is closed"), endpoint)
	assert.Contains(t, msg, "could not load dashboard data")
	assert.NotContains(t, msg, "sql")
}

func TestUserMessageDefaultsEndpoint(t *testing.T) {
	msg := UserMessage(&Error{Kind: KindTransientNetwork, Refused: true}, "  ")
	assert.Contains(t, msg, "gateway at "+DefaultGatewayURL)
}
