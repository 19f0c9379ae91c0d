package cost

import (
	"strings"

	"github.com/modelgate/modelgate/pkg/types"
)

// defaultPricing maps model patterns to per-1K-token rates in USD. Patterns
// ending in "*" match any model with that prefix; the longest matching
// pattern wins.
var defaultPricing = map[string]types.CostRate{
	"gpt-4o":         {InputPer1K: 0.0025, OutputPer1K: 0.01},
	"gpt-4o-mini":    {InputPer1K: 0.00015, OutputPer1K: 0.0006},
	"gpt-4*":         {InputPer1K: 0.03, OutputPer1K: 0.06},
	"gpt-3.5*":       {InputPer1K: 0.0005, OutputPer1K: 0.0015},
	"o1*":            {InputPer1K: 0.015, OutputPer1K: 0.06},
	"claude-opus*":   {InputPer1K: 0.015, OutputPer1K: 0.075},
	"claude-sonnet*": {InputPer1K: 0.003, OutputPer1K: 0.015},
	"claude-haiku*":  {InputPer1K: 0.0008, OutputPer1K: 0.004},
	"claude*":        {InputPer1K: 0.003, OutputPer1K: 0.015},
	"qwen-turbo":     {InputPer1K: 0.00005, OutputPer1K: 0.0002},
	"qwen-plus":      {InputPer1K: 0.0001, OutputPer1K: 0.0003},
	"qwen*":          {InputPer1K: 0.0005, OutputPer1K: 0.0015},
	"deepseek*":      {InputPer1K: 0.00014, OutputPer1K: 0.00028},
}

// LookupRate resolves the default rate for a model. Exact entries win over
// wildcard entries; among wildcards the longest prefix wins.
func LookupRate(model string) (types.CostRate, bool) {
	if rate, ok := defaultPricing[model]; ok {
		return rate, true
	}

	var (
		best    types.CostRate
		bestLen = -1
	)
	for pattern, rate := range defaultPricing {
		if !strings.HasSuffix(pattern, "*") {
			continue
		}
		prefix := strings.TrimSuffix(pattern, "*")
		if strings.HasPrefix(model, prefix) && len(prefix) > bestLen {
			best = rate
			bestLen = len(prefix)
		}
	}
	return best, bestLen >= 0
}
