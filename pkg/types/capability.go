package types

// CapabilityFlag names one adapter capability for request-level filtering.
type CapabilityFlag string

const (
	CapReasoning       CapabilityFlag = "reasoning"
	CapCreativity      CapabilityFlag = "creativity"
	CapCostEffective   CapabilityFlag = "cost_effective"
	CapFast            CapabilityFlag = "fast"
	CapMultilingual    CapabilityFlag = "multilingual"
	CapVision          CapabilityFlag = "vision"
	CapFunctionCalling CapabilityFlag = "function_calling"
)

// Capability is the feature-flag set an adapter advertises.
type Capability struct {
	Reasoning       bool `json:"reasoning"`
	Creativity      bool `json:"creativity"`
	CostEffective   bool `json:"cost_effective"`
	Fast            bool `json:"fast"`
	Multilingual    bool `json:"multilingual"`
	Vision          bool `json:"vision"`
	FunctionCalling bool `json:"function_calling"`
}

// Has reports whether the capability set includes the given flag.
// Unknown flags report false.
func (c Capability) Has(flag CapabilityFlag) bool {
	switch flag {
	case CapReasoning:
		return c.Reasoning
	case CapCreativity:
		return c.Creativity
	case CapCostEffective:
		return c.CostEffective
	case CapFast:
		return c.Fast
	case CapMultilingual:
		return c.Multilingual
	case CapVision:
		return c.Vision
	case CapFunctionCalling:
		return c.FunctionCalling
	default:
		return false
	}
}

// CostRate is the per-1000-token price pair for a model, in USD.
type CostRate struct {
	InputPer1K  float64 `json:"input_per_1k"`
	OutputPer1K float64 `json:"output_per_1k"`
}

// Avg returns the average of the input and output rates, the comparison
// value used by cost-aware routing.
func (r CostRate) Avg() float64 {
	return (r.InputPer1K + r.OutputPer1K) / 2
}
