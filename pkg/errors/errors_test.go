package errors

import (
	"fmt"
	"io"
	"net/http"
	"syscall"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewAdapterCallError_Retryability(t *testing.T) {
	tests := []struct {
		name      string
		status    int
		retryable bool
	}{
		{"rate limit", http.StatusTooManyRequests, true},
		{"bad gateway", http.StatusBadGateway, true},
		{"service unavailable", http.StatusServiceUnavailable, true},
		{"gateway timeout", http.StatusGatewayTimeout, true},
		{"internal error", http.StatusInternalServerError, true},
		{"bad request", http.StatusBadRequest, false},
		{"unauthorized", http.StatusUnauthorized, false},
		{"not found", http.StatusNotFound, false},
		{"no status", 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := NewAdapterCallError("openai", "gpt-4o", tt.status, "boom")
			assert.Equal(t, tt.retryable, err.Retryable)
		})
	}
}

func TestWrapAdapterCallError_Unwraps(t *testing.T) {
	cause := fmt.Errorf("connection refused")
	err := WrapAdapterCallError("qwen", "qwen-max", cause)

	assert.False(t, err.Retryable)
	assert.ErrorIs(t, err, cause)
}

func TestWrapTransportError_Retryability(t *testing.T) {
	refused := fmt.Errorf("dial tcp 127.0.0.1:1: %w", syscall.ECONNREFUSED)
	err := WrapTransportError("openai", "gpt-4o", refused)
	assert.True(t, err.Retryable)
	assert.ErrorIs(t, err, syscall.ECONNREFUSED)

	handshake := fmt.Errorf("tls handshake failure")
	assert.False(t, WrapTransportError("openai", "gpt-4o", handshake).Retryable)
}

func TestIsTransientNetwork(t *testing.T) {
	tests := []struct {
		name      string
		err       error
		transient bool
	}{
		{"nil", nil, false},
		{"connection refused errno", syscall.ECONNREFUSED, true},
		{"connection reset errno", syscall.ECONNRESET, true},
		{"truncated body", io.ErrUnexpectedEOF, true},
		{"refused by message", fmt.Errorf("dial: connection refused"), true},
		{"reset by message", fmt.Errorf("read: connection reset by peer"), true},
		{"plain failure", fmt.Errorf("tls handshake failure"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.transient, IsTransientNetwork(tt.err))
		})
	}
}

func TestErrorClassifiers(t *testing.T) {
	routing := NewRoutingError("gpt-4o", "no adapters registered")
	validation := NewValidationError("messages", "must not be empty")
	config := NewConfigurationError("openai", "api_key is required")

	wrapped := fmt.Errorf("chat: %w", routing)

	assert.True(t, IsRoutingError(routing))
	assert.True(t, IsRoutingError(wrapped))
	assert.False(t, IsRoutingError(validation))
	assert.True(t, IsValidationError(validation))
	assert.True(t, IsConfigurationError(config))
	assert.False(t, IsConfigurationError(routing))
}

func TestErrorMessages(t *testing.T) {
	assert.Contains(t, NewRoutingError("", "no adapters registered").Error(), "no adapters registered")
	assert.Contains(t, NewConfigurationError("claude", "missing key").Error(), `"claude"`)

	cacheErr := &CacheError{Op: "set", Err: fmt.Errorf("full")}
	assert.Contains(t, cacheErr.Error(), "cache set failed")
}
