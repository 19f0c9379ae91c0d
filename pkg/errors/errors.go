// Package errors defines the typed error taxonomy for gateway operations.
// Every public entry point surfaces one of these types so callers can
// distinguish "nothing available" from "call failed after retries" from
// "bad input".
package errors

import (
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"syscall"
)

// ConfigurationError reports bad or missing adapter configuration.
// It is fatal at construction time and never retried.
type ConfigurationError struct {
	Adapter string
	Reason  string
}

func (e *ConfigurationError) Error() string {
	if e.Adapter == "" {
		return fmt.Sprintf("configuration error: %s", e.Reason)
	}
	return fmt.Sprintf("configuration error for adapter %q: %s", e.Adapter, e.Reason)
}

// NewConfigurationError creates a construction-time configuration error.
func NewConfigurationError(adapter, reason string) *ConfigurationError {
	return &ConfigurationError{Adapter: adapter, Reason: reason}
}

// AdapterCallError reports a provider or transport failure during an adapter
// call. StatusCode is zero when the failure never reached HTTP. Retryable
// encodes whether the retry layer may attempt the call again.
type AdapterCallError struct {
	Adapter    string
	Model      string
	StatusCode int
	Message    string
	Retryable  bool
	Err        error
}

func (e *AdapterCallError) Error() string {
	return fmt.Sprintf("adapter %s call failed (model=%s, code=%d): %s",
		e.Adapter, e.Model, e.StatusCode, e.Message)
}

func (e *AdapterCallError) Unwrap() error { return e.Err }

// NewAdapterCallError creates an adapter call error with retryability derived
// from the HTTP status code: 429 and 5xx are retryable, other 4xx are not,
// and a zero status (non-HTTP failure) is not.
func NewAdapterCallError(adapter, model string, statusCode int, message string) *AdapterCallError {
	return &AdapterCallError{
		Adapter:    adapter,
		Model:      model,
		StatusCode: statusCode,
		Message:    message,
		Retryable:  RetryableStatus(statusCode),
	}
}

// WrapAdapterCallError wraps a non-HTTP failure (marshal error, connection
// setup, unexpected payload) as a non-retryable adapter call error.
func WrapAdapterCallError(adapter, model string, err error) *AdapterCallError {
	return &AdapterCallError{
		Adapter: adapter,
		Model:   model,
		Message: err.Error(),
		Err:     err,
	}
}

// WrapTransportError wraps a failure from the HTTP round trip as an adapter
// call error, retryable when the cause is a transient network failure. The
// cause stays in the unwrap chain so context cancellation is still visible
// to the retry layer.
func WrapTransportError(adapter, model string, err error) *AdapterCallError {
	return &AdapterCallError{
		Adapter:   adapter,
		Model:     model,
		Message:   err.Error(),
		Retryable: IsTransientNetwork(err),
		Err:       err,
	}
}

// RetryableStatus reports whether an HTTP status code indicates a transient
// failure worth retrying.
func RetryableStatus(statusCode int) bool {
	if statusCode == http.StatusTooManyRequests {
		return true
	}
	return statusCode >= 500
}

// IsTransientNetwork reports whether err looks like a transient network
// failure: a timeout, a refused or reset connection, or a truncated
// response.
func IsTransientNetwork(err error) bool {
	if err == nil {
		return false
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}
	if errors.Is(err, syscall.ECONNREFUSED) || errors.Is(err, syscall.ECONNRESET) {
		return true
	}
	if errors.Is(err, io.ErrUnexpectedEOF) {
		return true
	}

	msg := err.Error()
	return strings.Contains(msg, "connection refused") ||
		strings.Contains(msg, "connection reset")
}

// RoutingError reports that no adapter could be selected: either none are
// registered or no candidate survives filtering. Retrying cannot succeed,
// so it is surfaced immediately.
type RoutingError struct {
	Model  string
	Reason string
}

func (e *RoutingError) Error() string {
	if e.Model == "" {
		return fmt.Sprintf("routing failed: %s", e.Reason)
	}
	return fmt.Sprintf("routing failed for model %q: %s", e.Model, e.Reason)
}

// NewRoutingError creates a routing error.
func NewRoutingError(model, reason string) *RoutingError {
	return &RoutingError{Model: model, Reason: reason}
}

// CacheError reports an internal cache or deduplication failure. It must
// never abort a request; the orchestrator bypasses the cache and calls
// through directly.
type CacheError struct {
	Op  string
	Err error
}

func (e *CacheError) Error() string {
	return fmt.Sprintf("cache %s failed: %v", e.Op, e.Err)
}

func (e *CacheError) Unwrap() error { return e.Err }

// ValidationError reports bad input rejected before any network attempt.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid request: %s: %s", e.Field, e.Reason)
}

// NewValidationError creates a validation error.
func NewValidationError(field, reason string) *ValidationError {
	return &ValidationError{Field: field, Reason: reason}
}

// IsRoutingError reports whether err is (or wraps) a RoutingError.
func IsRoutingError(err error) bool {
	var re *RoutingError
	return errors.As(err, &re)
}

// IsValidationError reports whether err is (or wraps) a ValidationError.
func IsValidationError(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

// IsConfigurationError reports whether err is (or wraps) a ConfigurationError.
func IsConfigurationError(err error) bool {
	var ce *ConfigurationError
	return errors.As(err, &ce)
}
