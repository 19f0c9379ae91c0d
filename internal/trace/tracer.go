// Package trace records per-request span trees in memory for debugging and
// introspection. Buffers are bounded and reset on process restart.
package trace

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

const (
	defaultMaxTraces = 1000
	defaultTraceTTL  = 10 * time.Minute
)

// Span is one traced operation. Duration is End minus Start once closed;
// a root span has no parent.
type Span struct {
	ID        string            `json:"id"`
	TraceID   string            `json:"trace_id"`
	ParentID  string            `json:"parent_id,omitempty"`
	Operation string            `json:"operation"`
	Start     time.Time         `json:"start"`
	End       time.Time         `json:"end,omitempty"`
	Tags      map[string]string `json:"tags,omitempty"`
	Err       string            `json:"error,omitempty"`
}

// Duration returns the span's elapsed time, or zero while it is open.
func (s *Span) Duration() time.Duration {
	if s.End.IsZero() {
		return 0
	}
	return s.End.Sub(s.Start)
}

type traceEntry struct {
	spans     []*Span
	startedAt time.Time
}

// Tracer owns the trace buffer. Traces are evicted by age once the buffer
// is full, and dropped outright past their TTL.
type Tracer struct {
	mu        sync.Mutex
	traces    map[string]*traceEntry
	maxTraces int
	ttl       time.Duration
	now       func() time.Time
}

// Options bounds the tracer's memory. Zero values use the defaults.
type Options struct {
	MaxTraces int
	TTL       time.Duration
}

// New creates a tracer.
func New(opts Options) *Tracer {
	if opts.MaxTraces <= 0 {
		opts.MaxTraces = defaultMaxTraces
	}
	if opts.TTL <= 0 {
		opts.TTL = defaultTraceTTL
	}
	return &Tracer{
		traces:    make(map[string]*traceEntry),
		maxTraces: opts.MaxTraces,
		ttl:       opts.TTL,
		now:       time.Now,
	}
}

// StartTrace opens a new trace and returns its root span.
func (t *Tracer) StartTrace(operation string) *Span {
	traceID := uuid.NewString()
	span := &Span{
		ID:        uuid.NewString(),
		TraceID:   traceID,
		Operation: operation,
		Start:     t.now(),
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	t.evictLocked()
	t.traces[traceID] = &traceEntry{
		spans:     []*Span{span},
		startedAt: span.Start,
	}
	return span
}

// StartSpan opens a child span under parent. An unknown trace returns a
// detached span that is never stored.
func (t *Tracer) StartSpan(parent *Span, operation string) *Span {
	span := &Span{
		ID:        uuid.NewString(),
		TraceID:   parent.TraceID,
		ParentID:  parent.ID,
		Operation: operation,
		Start:     t.now(),
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	if entry, ok := t.traces[parent.TraceID]; ok {
		entry.spans = append(entry.spans, span)
	}
	return span
}

// EndSpan closes a span, recording the error if any.
func (t *Tracer) EndSpan(span *Span, err error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	span.End = t.now()
	if err != nil {
		span.Err = err.Error()
	}
}

// SetTag attaches a key/value pair to a span.
func (t *Tracer) SetTag(span *Span, key, value string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if span.Tags == nil {
		span.Tags = make(map[string]string)
	}
	span.Tags[key] = value
}

// Spans returns a copy of all spans recorded for a trace.
func (t *Tracer) Spans(traceID string) []*Span {
	t.mu.Lock()
	defer t.mu.Unlock()

	entry, ok := t.traces[traceID]
	if !ok {
		return nil
	}
	out := make([]*Span, len(entry.spans))
	copy(out, entry.spans)
	return out
}

// Len returns the number of retained traces.
func (t *Tracer) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.traces)
}

// evictLocked drops expired traces, then the oldest trace if the buffer is
// still full.
func (t *Tracer) evictLocked() {
	now := t.now()
	for id, entry := range t.traces {
		if now.Sub(entry.startedAt) > t.ttl {
			delete(t.traces, id)
		}
	}
	if len(t.traces) < t.maxTraces {
		return
	}

	var (
		oldestID string
		oldestAt time.Time
	)
	for id, entry := range t.traces {
		if oldestID == "" || entry.startedAt.Before(oldestAt) {
			oldestID = id
			oldestAt = entry.startedAt
		}
	}
	if oldestID != "" {
		delete(t.traces, oldestID)
	}
}
