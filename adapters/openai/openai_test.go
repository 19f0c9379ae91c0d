package openai

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/modelgate/modelgate/pkg/adapter"
	"github.com/modelgate/modelgate/pkg/errors"
	"github.com/modelgate/modelgate/pkg/types"
)

func newTestAdapter(t *testing.T, url string) adapter.Adapter {
	t.Helper()
	a, err := New(adapter.Config{
		Name:    "openai-test",
		Type:    ProviderName,
		APIKey:  "sk-test",
		BaseURL: url,
	})
	require.NoError(t, err)
	return a
}

func TestNewRequiresAPIKey(t *testing.T) {
	_, err := New(adapter.Config{Name: "openai", Type: ProviderName})
	require.Error(t, err)
	assert.True(t, errors.IsConfigurationError(err))
}

func TestCallSuccess(t *testing.T) {
	var gotAuth string
	var gotBody map[string]any
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/chat/completions", r.URL.Path)
		gotAuth = r.Header.Get("Authorization")
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))

		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, `{
			"id": "chatcmpl-1",
			"model": "gpt-4o",
			"created": 1756500000,
			"choices": [{"message": {"role": "assistant", "content": "hello there"}, "finish_reason": "stop"}],
			"usage": {"prompt_tokens": 9, "completion_tokens": 3, "total_tokens": 12}
		}`)
	}))
	defer server.Close()

	a := newTestAdapter(t, server.URL)
	resp, err := a.Call(context.Background(), &types.ChatRequest{
		Model:    "gpt-4o",
		Messages: []types.ChatMessage{types.UserMessage("hi")},
	})
	require.NoError(t, err)

	assert.Equal(t, "Bearer sk-test", gotAuth)
	assert.Equal(t, "gpt-4o", gotBody["model"])
	assert.Equal(t, "hello there", resp.Content)
	assert.Equal(t, "stop", resp.Metadata["finish_reason"])
	require.NotNil(t, resp.Usage)
	assert.Equal(t, 12, resp.Usage.TotalTokens)
}

func TestCallMapsProviderError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		io.WriteString(w, `{"error": {"message": "rate limit exceeded", "type": "rate_limit_error"}}`)
	}))
	defer server.Close()

	a := newTestAdapter(t, server.URL)
	_, err := a.Call(context.Background(), &types.ChatRequest{
		Model:    "gpt-4o",
		Messages: []types.ChatMessage{types.UserMessage("hi")},
	})
	require.Error(t, err)

	var callErr *errors.AdapterCallError
	require.ErrorAs(t, err, &callErr)
	assert.Equal(t, http.StatusTooManyRequests, callErr.StatusCode)
	assert.True(t, callErr.Retryable)
	assert.Contains(t, callErr.Message, "rate limit exceeded")
}

func TestCallNonRetryableClientError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		io.WriteString(w, `{"error": {"message": "model not supported"}}`)
	}))
	defer server.Close()

	a := newTestAdapter(t, server.URL)
	_, err := a.Call(context.Background(), &types.ChatRequest{Model: "nope"})
	require.Error(t, err)

	var callErr *errors.AdapterCallError
	require.ErrorAs(t, err, &callErr)
	assert.False(t, callErr.Retryable)
}

func TestCallWrapsTransportError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	server.Close()

	a := newTestAdapter(t, server.URL)
	_, err := a.Call(context.Background(), &types.ChatRequest{
		Model:    "gpt-4o",
		Messages: []types.ChatMessage{types.UserMessage("hi")},
	})
	require.Error(t, err)

	var callErr *errors.AdapterCallError
	require.ErrorAs(t, err, &callErr)
	assert.Equal(t, 0, callErr.StatusCode)
	assert.True(t, callErr.Retryable)
}

func TestStreamCall(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, true, body["stream"])

		w.Header().Set("Content-Type", "text/event-stream")
		io.WriteString(w, "data: {\"id\":\"c1\",\"model\":\"gpt-4o\",\"choices\":[{\"delta\":{\"content\":\"hel\"}}]}\n\n")
		io.WriteString(w, "data: {\"id\":\"c1\",\"model\":\"gpt-4o\",\"choices\":[{\"delta\":{\"content\":\"lo\"},\"finish_reason\":\"stop\"}]}\n\n")
		io.WriteString(w, "data: [DONE]\n\n")
	}))
	defer server.Close()

	a := newTestAdapter(t, server.URL)
	stream, err := a.StreamCall(context.Background(), &types.ChatRequest{
		Model:    "gpt-4o",
		Messages: []types.ChatMessage{types.UserMessage("hi")},
		Stream:   true,
	})
	require.NoError(t, err)
	defer stream.Close()

	first, err := stream.Next()
	require.NoError(t, err)
	assert.Equal(t, "hel", first.Delta)
	assert.False(t, first.Done)

	second, err := stream.Next()
	require.NoError(t, err)
	assert.Equal(t, "lo", second.Delta)
	assert.True(t, second.Done)

	_, err = stream.Next()
	assert.Equal(t, io.EOF, err)
}

func TestHealthCheck(t *testing.T) {
	healthyServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/models", r.URL.Path)
		io.WriteString(w, `{"data": []}`)
	}))
	defer healthyServer.Close()

	a := newTestAdapter(t, healthyServer.URL)
	result := a.HealthCheck(context.Background())
	assert.Equal(t, types.HealthHealthy, result.Status)

	downServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	downServer.Close()

	b := newTestAdapter(t, downServer.URL)
	result = b.HealthCheck(context.Background())
	assert.Equal(t, types.HealthUnhealthy, result.Status)
	assert.NotEmpty(t, result.Message)
}

func TestCostPerKTokens(t *testing.T) {
	a := newTestAdapter(t, "https://api.openai.com/v1")

	rate, ok := a.CostPerKTokens("gpt-4o")
	require.True(t, ok)
	assert.Greater(t, rate.InputPer1K, 0.0)

	_, ok = a.CostPerKTokens("mystery-9000")
	assert.False(t, ok)
}
