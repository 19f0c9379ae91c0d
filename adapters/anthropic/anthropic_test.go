package anthropic

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
		Name:    "anthropic-test",
		Type:    ProviderName,
		APIKey:  "sk-ant-test",
		BaseURL: url,
	})
	require.NoError(t, err)
	return a
}

func TestCallMapsMessagesFormat(t *testing.T) {
	var gotBody map[string]any
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/v1/messages", r.URL.Path)
		assert.Equal(t, "sk-ant-test", r.Header.Get("x-api-key"))
		assert.Equal(t, apiVersion, r.Header.Get("anthropic-version"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))

		io.WriteString(w, `{
			"id": "msg-1",
			"model": "claude-sonnet-4",
			"content": [{"type": "text", "text": "hello "}, {"type": "text", "text": "world"}],
			"stop_reason": "end_turn",
			"usage": {"input_tokens": 10, "output_tokens": 4}
		}`)
	}))
	defer server.Close()

	a := newTestAdapter(t, server.URL)
	resp, err := a.Call(context.Background(), &types.ChatRequest{
		Model: "claude-sonnet-4",
		Messages: []types.ChatMessage{
			{Role: "system", Content: "be brief"},
			types.UserMessage("hi"),
		},
	})
	require.NoError(t, err)

	// The system message moves to the dedicated field.
	assert.Equal(t, "be brief", gotBody["system"])
	msgs, ok := gotBody["messages"].([]any)
	require.True(t, ok)
	assert.Len(t, msgs, 1)

	// max_tokens is always present, defaulted when unset.
	assert.Equal(t, float64(defaultMaxTokens), gotBody["max_tokens"])

	assert.Equal(t, "hello world", resp.Content)
	require.NotNil(t, resp.Usage)
	assert.Equal(t, 14, resp.Usage.TotalTokens)
	assert.Equal(t, "end_turn", resp.Metadata["stop_reason"])
}

func TestCallMapsOverloadedError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
		io.WriteString(w, `{"error": {"type": "overloaded_error", "message": "overloaded"}}`)
	}))
	defer server.Close()

	a := newTestAdapter(t, server.URL)
	_, err := a.Call(context.Background(), &types.ChatRequest{Model: "claude-sonnet-4"})
	require.Error(t, err)

	var callErr *errors.AdapterCallError
	require.ErrorAs(t, err, &callErr)
	assert.True(t, callErr.Retryable)
	assert.Contains(t, callErr.Message, "overloaded")
}

func TestStreamCallSingleChunk(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, `{
			"id": "msg-1",
			"model": "claude-sonnet-4",
			"content": [{"type": "text", "text": "full answer"}],
			"usage": {"input_tokens": 5, "output_tokens": 2}
		}`)
	}))
	defer server.Close()

	a := newTestAdapter(t, server.URL)
	stream, err := a.StreamCall(context.Background(), &types.ChatRequest{
		Model:    "claude-sonnet-4",
		Messages: []types.ChatMessage{types.UserMessage("hi")},
	})
	require.NoError(t, err)
	defer stream.Close()

	chunk, err := stream.Next()
	require.NoError(t, err)
	assert.Equal(t, "full answer", chunk.Delta)
	assert.True(t, chunk.Done)

	_, err = stream.Next()
	assert.Equal(t, io.EOF, err)
}

func TestCostPerKTokens(t *testing.T) {
	a := newTestAdapter(t, "https://api.anthropic.com")

	rate, ok := a.CostPerKTokens("claude-sonnet-4-20250514")
	require.True(t, ok)
	assert.InDelta(t, 0.003, rate.InputPer1K, 1e-9)
}
