// Package pool manages shared HTTP clients keyed by endpoint, so adapters
// talking to the same backend reuse one bounded connection pool instead of
// opening fresh transports per request.
package pool

import (
	"crypto/sha256"
	"encoding/hex"
	"net/http"
	"sort"
	"strings"
	"sync"
	"time"
)

const (
	defaultMaxIdleConns        = 100
	defaultMaxIdleConnsPerHost = 10
	defaultIdleConnTimeout     = 90 * time.Second
	defaultRequestTimeout      = 60 * time.Second
)

// Options tunes the transports handed out by a Manager. Zero values fall
// back to the package defaults.
type Options struct {
	MaxIdleConns        int
	MaxIdleConnsPerHost int
	IdleConnTimeout     time.Duration
	RequestTimeout      time.Duration
}

func (o Options) withDefaults() Options {
	if o.MaxIdleConns <= 0 {
		o.MaxIdleConns = defaultMaxIdleConns
	}
	if o.MaxIdleConnsPerHost <= 0 {
		o.MaxIdleConnsPerHost = defaultMaxIdleConnsPerHost
	}
	if o.IdleConnTimeout <= 0 {
		o.IdleConnTimeout = defaultIdleConnTimeout
	}
	if o.RequestTimeout <= 0 {
		o.RequestTimeout = defaultRequestTimeout
	}
	return o
}

// Manager owns one HTTP client per (base URL, header set) pair. It is safe
// for concurrent use.
type Manager struct {
	mu      sync.Mutex
	opts    Options
	clients map[string]*http.Client
}

// NewManager creates an empty pool manager.
func NewManager(opts Options) *Manager {
	return &Manager{
		opts:    opts.withDefaults(),
		clients: make(map[string]*http.Client),
	}
}

// GetClient returns the shared client for the given endpoint, creating it on
// first use. Clients for the same normalized base URL and header set are
// identical across calls.
func (m *Manager) GetClient(baseURL string, headers map[string]string) *http.Client {
	key := clientKey(baseURL, headers)

	m.mu.Lock()
	defer m.mu.Unlock()

	if c, ok := m.clients[key]; ok {
		return c
	}

	c := &http.Client{
		Timeout: m.opts.RequestTimeout,
		Transport: &http.Transport{
			MaxIdleConns:        m.opts.MaxIdleConns,
			MaxIdleConnsPerHost: m.opts.MaxIdleConnsPerHost,
			IdleConnTimeout:     m.opts.IdleConnTimeout,
		},
	}
	m.clients[key] = c
	return c
}

// CloseClient drops the client for one endpoint and closes its idle
// connections. Unknown endpoints are a no-op.
func (m *Manager) CloseClient(baseURL string, headers map[string]string) {
	key := clientKey(baseURL, headers)

	m.mu.Lock()
	defer m.mu.Unlock()

	if c, ok := m.clients[key]; ok {
		closeIdle(c)
		delete(m.clients, key)
	}
}

// CloseAll closes idle connections on every pooled client and empties the
// pool. Subsequent GetClient calls start fresh.
func (m *Manager) CloseAll() {
	m.mu.Lock()
	defer m.mu.Unlock()

	for key, c := range m.clients {
		closeIdle(c)
		delete(m.clients, key)
	}
}

// Size returns the number of distinct pooled clients.
func (m *Manager) Size() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.clients)
}

func closeIdle(c *http.Client) {
	if t, ok := c.Transport.(*http.Transport); ok {
		t.CloseIdleConnections()
	}
}

// clientKey derives a stable key from the normalized base URL and a sorted
// digest of the header set, so header order never splits the pool.
func clientKey(baseURL string, headers map[string]string) string {
	normalized := strings.TrimRight(strings.ToLower(strings.TrimSpace(baseURL)), "/")
	if len(headers) == 0 {
		return normalized
	}

	keys := make([]string, 0, len(headers))
	for k := range headers {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	h := sha256.New()
	for _, k := range keys {
		h.Write([]byte(k))
		h.Write([]byte{0})
		h.Write([]byte(headers[k]))
		h.Write([]byte{0})
	}
	return normalized + "#" + hex.EncodeToString(h.Sum(nil))
}
