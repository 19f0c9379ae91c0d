// Package qwen provides the Qwen (DashScope) adapter. DashScope exposes an
// OpenAI-compatible surface, so the wire format mirrors the OpenAI adapter;
// streaming is wrapped as a single chunk.
package qwen

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/goccy/go-json"

	"github.com/modelgate/modelgate/internal/cost"
	"github.com/modelgate/modelgate/pkg/adapter"
	"github.com/modelgate/modelgate/pkg/errors"
	"github.com/modelgate/modelgate/pkg/types"
)

const (
	// ProviderName is the identifier for this adapter type.
	ProviderName = "qwen"

	// DefaultBaseURL is DashScope's OpenAI-compatible endpoint.
	DefaultBaseURL = "https://dashscope.aliyuncs.com/compatible-mode/v1"

	defaultTimeout     = 60 * time.Second
	healthCheckTimeout = 5 * time.Second
)

// Adapter implements the Qwen chat API.
type Adapter struct {
	name    string
	apiKey  string
	baseURL string
	models  []string
	headers map[string]string
	timeout time.Duration
	clients adapter.HTTPClientProvider

	mu     sync.Mutex
	client *http.Client
}

// New creates a Qwen adapter from configuration.
func New(cfg adapter.Config) (adapter.Adapter, error) {
	if cfg.APIKey == "" {
		return nil, errors.NewConfigurationError(cfg.Name, "api key is required")
	}

	a := &Adapter{
		name:    cfg.Name,
		apiKey:  cfg.APIKey,
		baseURL: strings.TrimSuffix(cfg.BaseURL, "/"),
		models:  cfg.Models,
		headers: cfg.Headers,
		timeout: cfg.Timeout,
		clients: cfg.Clients,
	}
	if a.name == "" {
		a.name = ProviderName
	}
	if a.baseURL == "" {
		a.baseURL = DefaultBaseURL
	}
	if a.timeout <= 0 {
		a.timeout = defaultTimeout
	}
	return a, nil
}

// Name returns the adapter instance name.
func (a *Adapter) Name() string { return a.name }

// Provider returns the backend identifier.
func (a *Adapter) Provider() string { return ProviderName }

func (a *Adapter) httpClient() *http.Client {
	if a.clients != nil {
		return a.clients.GetClient(a.baseURL, a.headers)
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	if a.client == nil {
		a.client = &http.Client{Timeout: a.timeout}
	}
	return a.client
}

type wireRequest struct {
	Model       string              `json:"model"`
	Messages    []types.ChatMessage `json:"messages"`
	MaxTokens   int                 `json:"max_tokens,omitempty"`
	Temperature *float64            `json:"temperature,omitempty"`
	TopP        *float64            `json:"top_p,omitempty"`
	Stop        []string            `json:"stop,omitempty"`
}

type wireResponse struct {
	ID      string `json:"id"`
	Model   string `json:"model"`
	Created int64  `json:"created"`
	Choices []struct {
		Message struct {
			Role    string `json:"role"`
			Content string `json:"content"`
		} `json:"message"`
		FinishReason string `json:"finish_reason"`
	} `json:"choices"`
	Usage *types.Usage `json:"usage"`
}

// Call sends a chat completion request.
func (a *Adapter) Call(ctx context.Context, req *types.ChatRequest) (*types.ChatResponse, error) {
	body, err := json.Marshal(wireRequest{
		Model:       req.Model,
		Messages:    req.Messages,
		MaxTokens:   req.MaxTokens,
		Temperature: req.Temperature,
		TopP:        req.TopP,
		Stop:        req.Stop,
	})
	if err != nil {
		return nil, errors.WrapAdapterCallError(a.name, req.Model,
			fmt.Errorf("marshal request: %w", err))
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost,
		a.baseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return nil, errors.WrapAdapterCallError(a.name, req.Model,
			fmt.Errorf("create request: %w", err))
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+a.apiKey)
	for k, v := range a.headers {
		httpReq.Header.Set(k, v)
	}

	resp, err := a.httpClient().Do(httpReq)
	if err != nil {
		return nil, errors.WrapTransportError(a.name, req.Model, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, errors.WrapAdapterCallError(a.name, req.Model, err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, a.mapError(req.Model, resp.StatusCode, respBody)
	}

	var parsed wireResponse
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		return nil, errors.WrapAdapterCallError(a.name, req.Model,
			fmt.Errorf("unmarshal response: %w", err))
	}
	if len(parsed.Choices) == 0 {
		return nil, errors.WrapAdapterCallError(a.name, req.Model,
			fmt.Errorf("response contains no choices"))
	}

	return &types.ChatResponse{
		ID:      parsed.ID,
		Model:   parsed.Model,
		Content: parsed.Choices[0].Message.Content,
		Created: parsed.Created,
		Usage:   parsed.Usage,
		Metadata: map[string]string{
			"finish_reason": parsed.Choices[0].FinishReason,
			"adapter":       a.name,
		},
	}, nil
}

// StreamCall wraps Call into a single-chunk stream.
func (a *Adapter) StreamCall(ctx context.Context, req *types.ChatRequest) (adapter.Stream, error) {
	resp, err := a.Call(ctx, req)
	if err != nil {
		return nil, err
	}
	return adapter.SingleChunkStream(resp), nil
}

// HealthCheck probes the models endpoint with a short timeout.
func (a *Adapter) HealthCheck(ctx context.Context) types.HealthResult {
	ctx, cancel := context.WithTimeout(ctx, healthCheckTimeout)
	defer cancel()

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, a.baseURL+"/models", nil)
	if err != nil {
		return types.HealthResult{
			Status:    types.HealthUnknown,
			Message:   err.Error(),
			CheckedAt: time.Now(),
		}
	}
	httpReq.Header.Set("Authorization", "Bearer "+a.apiKey)

	resp, err := a.httpClient().Do(httpReq)
	if err != nil {
		return types.HealthResult{
			Status:    types.HealthUnhealthy,
			Message:   err.Error(),
			CheckedAt: time.Now(),
		}
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	if resp.StatusCode >= 500 {
		return types.HealthResult{
			Status:    types.HealthUnhealthy,
			Message:   fmt.Sprintf("status %d", resp.StatusCode),
			CheckedAt: time.Now(),
		}
	}
	return types.HealthResult{Status: types.HealthHealthy, CheckedAt: time.Now()}
}

// Capability returns the adapter's feature flags.
func (a *Adapter) Capability() types.Capability {
	return types.Capability{
		Creativity:    true,
		CostEffective: true,
		Fast:          true,
		Multilingual:  true,
	}
}

// CostPerKTokens resolves pricing from the built-in table.
func (a *Adapter) CostPerKTokens(model string) (types.CostRate, bool) {
	return cost.LookupRate(model)
}

func (a *Adapter) mapError(model string, statusCode int, body []byte) error {
	var errResp struct {
		Error struct {
			Message string `json:"message"`
			Code    string `json:"code"`
		} `json:"error"`
	}

	message := "unknown error"
	if err := json.Unmarshal(body, &errResp); err == nil && errResp.Error.Message != "" {
		message = errResp.Error.Message
	}
	return errors.NewAdapterCallError(a.name, model, statusCode, message)
}
