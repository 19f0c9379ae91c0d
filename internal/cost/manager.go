// Package cost tracks per-call spend and enforces budget alerting.
package cost

import (
	"log/slog"
	"sync"
	"time"

	"github.com/modelgate/modelgate/pkg/types"
)

// Record is one billed call. Records are immutable once appended.
type Record struct {
	Adapter          string    `json:"adapter"`
	Model            string    `json:"model"`
	PromptTokens     int       `json:"prompt_tokens"`
	CompletionTokens int       `json:"completion_tokens"`
	InputCost        float64   `json:"input_cost"`
	OutputCost       float64   `json:"output_cost"`
	TotalCost        float64   `json:"total_cost"`
	Timestamp        time.Time `json:"timestamp"`
}

// Budget configures spend limits. Zero limits disable the corresponding
// check.
type Budget struct {
	Enabled        bool
	DailyLimit     float64
	MonthlyLimit   float64
	AlertThreshold float64
}

// AlertFunc receives budget alerts. Alerting is a hook point, not a
// transport.
type AlertFunc func(period string, spent, limit float64)

// Manager accumulates cost records under a mutex and raises at most one
// alert per budget period.
type Manager struct {
	mu      sync.Mutex
	records []Record
	budget  Budget
	onAlert AlertFunc
	alerted map[string]bool
	logger  *slog.Logger
	now     func() time.Time
}

// NewManager creates a cost manager. onAlert may be nil; alerts are then
// only logged.
func NewManager(budget Budget, onAlert AlertFunc, logger *slog.Logger) *Manager {
	if logger == nil {
		logger = slog.Default()
	}
	if budget.AlertThreshold <= 0 || budget.AlertThreshold > 1 {
		budget.AlertThreshold = 0.8
	}
	return &Manager{
		budget:  budget,
		onAlert: onAlert,
		alerted: make(map[string]bool),
		logger:  logger,
		now:     time.Now,
	}
}

// RecordUsage appends one cost record computed as (tokens/1000)*rate and
// returns it. Budget checks run inside the same critical section so the
// running totals are consistent.
func (m *Manager) RecordUsage(adapterName, model string, usage types.Usage, rate types.CostRate) Record {
	inputCost := float64(usage.PromptTokens) / 1000 * rate.InputPer1K
	outputCost := float64(usage.CompletionTokens) / 1000 * rate.OutputPer1K

	rec := Record{
		Adapter:          adapterName,
		Model:            model,
		PromptTokens:     usage.PromptTokens,
		CompletionTokens: usage.CompletionTokens,
		InputCost:        inputCost,
		OutputCost:       outputCost,
		TotalCost:        inputCost + outputCost,
		Timestamp:        m.now(),
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.records = append(m.records, rec)
	m.checkBudgetLocked(rec.Timestamp)
	return rec
}

// checkBudgetLocked recomputes the daily and monthly running totals and
// raises each period's alert once the usage ratio crosses the threshold.
func (m *Manager) checkBudgetLocked(now time.Time) {
	if !m.budget.Enabled {
		return
	}

	dayStart := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	monthStart := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())

	var daily, monthly float64
	for _, r := range m.records {
		if !r.Timestamp.Before(monthStart) {
			monthly += r.TotalCost
			if !r.Timestamp.Before(dayStart) {
				daily += r.TotalCost
			}
		}
	}

	m.maybeAlertLocked("daily:"+dayStart.Format("2006-01-02"), "daily", daily, m.budget.DailyLimit)
	m.maybeAlertLocked("monthly:"+monthStart.Format("2006-01"), "monthly", monthly, m.budget.MonthlyLimit)
}

func (m *Manager) maybeAlertLocked(key, period string, spent, limit float64) {
	if limit <= 0 || m.alerted[key] {
		return
	}
	if spent < limit*m.budget.AlertThreshold {
		return
	}
	m.alerted[key] = true

	m.logger.Warn("budget alert threshold crossed",
		slog.String("period", period),
		slog.Float64("spent", spent),
		slog.Float64("limit", limit))
	if m.onAlert != nil {
		m.onAlert(period, spent, limit)
	}
}

// StatisticsFilter narrows a statistics query. Zero values mean no filter.
type StatisticsFilter struct {
	Adapter string
	Model   string
	Since   time.Time
	Until   time.Time
}

// Statistics aggregates spend over a filtered window.
type Statistics struct {
	TotalCost        float64            `json:"total_cost"`
	TotalCalls       int                `json:"total_calls"`
	PromptTokens     int                `json:"prompt_tokens"`
	CompletionTokens int                `json:"completion_tokens"`
	ByAdapter        map[string]float64 `json:"by_adapter"`
	ByModel          map[string]float64 `json:"by_model"`
}

// GetStatistics aggregates totals and per-adapter/per-model breakdowns over
// the filtered window.
func (m *Manager) GetStatistics(filter StatisticsFilter) Statistics {
	m.mu.Lock()
	defer m.mu.Unlock()

	stats := Statistics{
		ByAdapter: make(map[string]float64),
		ByModel:   make(map[string]float64),
	}
	for _, r := range m.records {
		if filter.Adapter != "" && r.Adapter != filter.Adapter {
			continue
		}
		if filter.Model != "" && r.Model != filter.Model {
			continue
		}
		if !filter.Since.IsZero() && r.Timestamp.Before(filter.Since) {
			continue
		}
		if !filter.Until.IsZero() && r.Timestamp.After(filter.Until) {
			continue
		}
		stats.TotalCost += r.TotalCost
		stats.TotalCalls++
		stats.PromptTokens += r.PromptTokens
		stats.CompletionTokens += r.CompletionTokens
		stats.ByAdapter[r.Adapter] += r.TotalCost
		stats.ByModel[r.Model] += r.TotalCost
	}
	return stats
}

// Records returns a copy of all cost records.
func (m *Manager) Records() []Record {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]Record, len(m.records))
	copy(out, m.records)
	return out
}

// Clear purges all records and alert state.
func (m *Manager) Clear() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.records = nil
	m.alerted = make(map[string]bool)
}
