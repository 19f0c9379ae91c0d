// Package anthropic provides the Anthropic messages API adapter.
package anthropic

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
	ProviderName = "anthropic"

	// DefaultBaseURL is the default Anthropic API endpoint.
	DefaultBaseURL = "https://api.anthropic.com"

	apiVersion = "2023-06-01"

	defaultTimeout     = 60 * time.Second
	defaultMaxTokens   = 1024
	healthCheckTimeout = 5 * time.Second
)

// Adapter implements the Anthropic messages API.
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

// New creates an Anthropic adapter from configuration.
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

// wireRequest is the Anthropic messages request body. System prompts travel
// in a dedicated field, not the message list.
type wireRequest struct {
	Model       string              `json:"model"`
	Messages    []types.ChatMessage `json:"messages"`
	System      string              `json:"system,omitempty"`
	MaxTokens   int                 `json:"max_tokens"`
	Temperature *float64            `json:"temperature,omitempty"`
	TopP        *float64            `json:"top_p,omitempty"`
	Stop        []string            `json:"stop_sequences,omitempty"`
}

type wireResponse struct {
	ID      string `json:"id"`
	Model   string `json:"model"`
	Content []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
	StopReason string `json:"stop_reason"`
	Usage      struct {
		InputTokens  int `json:"input_tokens"`
		OutputTokens int `json:"output_tokens"`
	} `json:"usage"`
}

// Call sends a messages request and maps the response into the unified
// format.
func (a *Adapter) Call(ctx context.Context, req *types.ChatRequest) (*types.ChatResponse, error) {
	wire := wireRequest{
		Model:       req.Model,
		MaxTokens:   req.MaxTokens,
		Temperature: req.Temperature,
		TopP:        req.TopP,
		Stop:        req.Stop,
	}
	if wire.MaxTokens <= 0 {
		wire.MaxTokens = defaultMaxTokens
	}
	for _, msg := range req.Messages {
		if msg.Role == "system" {
			wire.System = msg.Content
			continue
		}
		wire.Messages = append(wire.Messages, msg)
	}

	body, err := json.Marshal(wire)
	if err != nil {
		return nil, errors.WrapAdapterCallError(a.name, req.Model,
			fmt.Errorf("marshal request: %w", err))
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost,
		a.baseURL+"/v1/messages", bytes.NewReader(body))
	if err != nil {
		return nil, errors.WrapAdapterCallError(a.name, req.Model,
			fmt.Errorf("create request: %w", err))
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("x-api-key", a.apiKey)
	httpReq.Header.Set("anthropic-version", apiVersion)
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

	var content strings.Builder
	for _, block := range parsed.Content {
		if block.Type == "text" {
			content.WriteString(block.Text)
		}
	}

	return &types.ChatResponse{
		ID:      parsed.ID,
		Model:   parsed.Model,
		Content: content.String(),
		Created: time.Now().Unix(),
		Usage: &types.Usage{
			PromptTokens:     parsed.Usage.InputTokens,
			CompletionTokens: parsed.Usage.OutputTokens,
			TotalTokens:      parsed.Usage.InputTokens + parsed.Usage.OutputTokens,
		},
		Metadata: map[string]string{
			"stop_reason": parsed.StopReason,
			"adapter":     a.name,
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

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, a.baseURL+"/v1/models", nil)
	if err != nil {
		return types.HealthResult{
			Status:    types.HealthUnknown,
			Message:   err.Error(),
			CheckedAt: time.Now(),
		}
	}
	httpReq.Header.Set("x-api-key", a.apiKey)
	httpReq.Header.Set("anthropic-version", apiVersion)

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
		Reasoning:       true,
		Creativity:      true,
		Multilingual:    true,
		Vision:          true,
		FunctionCalling: true,
	}
}

// CostPerKTokens resolves pricing from the built-in table.
func (a *Adapter) CostPerKTokens(model string) (types.CostRate, bool) {
	return cost.LookupRate(model)
}

func (a *Adapter) mapError(model string, statusCode int, body []byte) error {
	var errResp struct {
		Error struct {
			Type    string `json:"type"`
			Message string `json:"message"`
		} `json:"error"`
	}

	message := "unknown error"
	if err := json.Unmarshal(body, &errResp); err == nil && errResp.Error.Message != "" {
		message = errResp.Error.Message
	}
	return errors.NewAdapterCallError(a.name, model, statusCode, message)
}
