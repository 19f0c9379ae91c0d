package pool

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetClientReusesByEndpoint(t *testing.T) {
	m := NewManager(Options{})

	a := m.GetClient("https://api.example.com/v1", nil)
	b := m.GetClient("https://api.example.com/v1", nil)
	require.NotNil(t, a)
	assert.Same(t, a, b)
	assert.Equal(t, 1, m.Size())
}

func TestGetClientNormalizesBaseURL(t *testing.T) {
	m := NewManager(Options{})

	a := m.GetClient("https://API.Example.com/v1/", nil)
	b := m.GetClient("  https://api.example.com/v1", nil)
	assert.Same(t, a, b)
	assert.Equal(t, 1, m.Size())
}

func TestGetClientHeaderOrderIndependent(t *testing.T) {
	m := NewManager(Options{})

	a := m.GetClient("https://api.example.com", map[string]string{
		"X-Org": "acme", "X-Region": "eu",
	})
	b := m.GetClient("https://api.example.com", map[string]string{
		"X-Region": "eu", "X-Org": "acme",
	})
	assert.Same(t, a, b)
}

func TestGetClientDistinctHeadersDistinctClients(t *testing.T) {
	m := NewManager(Options{})

	a := m.GetClient("https://api.example.com", map[string]string{"X-Org": "acme"})
	b := m.GetClient("https://api.example.com", map[string]string{"X-Org": "umbrella"})
	assert.NotSame(t, a, b)
	assert.Equal(t, 2, m.Size())
}

func TestOptionsApplied(t *testing.T) {
	m := NewManager(Options{RequestTimeout: 5 * time.Second})

	c := m.GetClient("https://api.example.com", nil)
	assert.Equal(t, 5*time.Second, c.Timeout)
}

func TestCloseClientAndCloseAll(t *testing.T) {
	m := NewManager(Options{})

	m.GetClient("https://one.example.com", nil)
	m.GetClient("https://two.example.com", nil)
	require.Equal(t, 2, m.Size())

	m.CloseClient("https://one.example.com", nil)
	assert.Equal(t, 1, m.Size())

	// Closing an unknown endpoint is a no-op.
	m.CloseClient("https://three.example.com", nil)
	assert.Equal(t, 1, m.Size())

	m.CloseAll()
	assert.Equal(t, 0, m.Size())

	// Pool works again after CloseAll.
	c := m.GetClient("https://two.example.com", nil)
	assert.NotNil(t, c)
}
