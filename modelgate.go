// Package modelgate provides a multi-provider LLM gateway as a Go library.
// It routes chat requests across backend adapters with health-aware
// strategies, caches and deduplicates identical requests, retries transient
// failures with exponential backoff, and tracks per-call spend.
//
// Basic usage:
//
//	client, err := modelgate.New(
//	    modelgate.WithAdapterConfig(modelgate.AdapterConfig{
//	        Name:   "openai-primary",
//	        Type:   "openai",
//	        APIKey: os.Getenv("OPENAI_API_KEY"),
//	        Models: []string{"gpt-4o", "gpt-4o-mini"},
//	    }),
//	    modelgate.WithRoutingStrategy(modelgate.StrategyCostFirst),
//	)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer client.Close()
//
//	resp, err := client.Chat(ctx, &modelgate.ChatRequest{
//	    Model: "gpt-4o",
//	    Messages: []modelgate.ChatMessage{
//	        {Role: "user", Content: "Hello!"},
//	    },
//	})
package modelgate

import (
	"github.com/modelgate/modelgate/internal/balancer"
	"github.com/modelgate/modelgate/internal/cost"
	"github.com/modelgate/modelgate/internal/router"
	"github.com/modelgate/modelgate/pkg/adapter"
	"github.com/modelgate/modelgate/pkg/types"
)

// Version is the current version of modelgate.
const Version = "0.1.0"

// Re-export core request/response types for convenience. Callers can use
// modelgate.ChatRequest instead of types.ChatRequest.
type (
	// ChatRequest is a chat completion request.
	ChatRequest = types.ChatRequest

	// ChatResponse is a unified chat completion response.
	ChatResponse = types.ChatResponse

	// ChatMessage is a single conversation message.
	ChatMessage = types.ChatMessage

	// StreamChunk is one streaming response delta.
	StreamChunk = types.StreamChunk

	// Usage holds token accounting for one call.
	Usage = types.Usage

	// Capability is the feature-flag set an adapter advertises.
	Capability = types.Capability

	// CostRate is per-1000-token pricing.
	CostRate = types.CostRate

	// HealthResult is one health probe verdict.
	HealthResult = types.HealthResult

	// AdapterConfig configures one adapter instance.
	AdapterConfig = adapter.Config

	// Adapter is the contract every backend binding implements.
	Adapter = adapter.Adapter

	// CostBudget configures spend limits.
	CostBudget = cost.Budget

	// CostStatisticsFilter narrows a cost statistics query.
	CostStatisticsFilter = cost.StatisticsFilter
)

// Routing strategy names.
const (
	StrategyCostFirst         = router.StrategyCostFirst
	StrategyPerformanceFirst  = router.StrategyPerformanceFirst
	StrategyAvailabilityFirst = router.StrategyAvailabilityFirst
	StrategyBalanced          = router.StrategyBalanced
	StrategyManual            = router.StrategyManual
)

// Load balancer strategy names.
const (
	BalanceRoundRobin         = balancer.RoundRobin
	BalanceWeightedRoundRobin = balancer.WeightedRoundRobin
	BalanceLeastConnections   = balancer.LeastConnections
	BalanceRandom             = balancer.Random
)

// Health statuses.
const (
	HealthHealthy   = types.HealthHealthy
	HealthUnhealthy = types.HealthUnhealthy
	HealthUnknown   = types.HealthUnknown
)
