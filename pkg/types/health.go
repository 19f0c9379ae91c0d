package types

import "time"

// HealthStatus is an adapter health verdict. Probes return a status value,
// never an error, so routing decisions always complete.
type HealthStatus string

const (
	HealthHealthy   HealthStatus = "healthy"
	HealthUnhealthy HealthStatus = "unhealthy"
	HealthUnknown   HealthStatus = "unknown"
)

// Rank orders statuses for "best available" comparisons:
// healthy > unknown > unhealthy.
func (s HealthStatus) Rank() int {
	switch s {
	case HealthHealthy:
		return 2
	case HealthUnknown:
		return 1
	default:
		return 0
	}
}

// HealthResult is the outcome of one health probe.
type HealthResult struct {
	Status    HealthStatus `json:"status"`
	Message   string       `json:"message,omitempty"`
	CheckedAt time.Time    `json:"checked_at"`
}

// Healthy reports whether the result is a positive verdict.
func (r HealthResult) Healthy() bool {
	return r.Status == HealthHealthy
}
