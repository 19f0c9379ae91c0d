package dedup

import (
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConcurrentIdenticalPayloadsFetchOnce(t *testing.T) {
	d := New()
	payload := map[string]any{"model": "gpt-4o", "prompt": "hello"}

	var fetches atomic.Int64
	release := make(chan struct{})
	fetch := func() (any, error) {
		fetches.Add(1)
		<-release
		return "result", nil
	}

	const waiters = 10
	var wg sync.WaitGroup
	results := make([]any, waiters)
	shared := make([]bool, waiters)
	errs := make([]error, waiters)

	for i := 0; i < waiters; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], shared[i], errs[i] = d.Deduplicate(payload, fetch)
		}(i)
	}

	// Let every goroutine reach the in-flight handle before releasing.
	time.Sleep(50 * time.Millisecond)
	close(release)
	wg.Wait()

	assert.Equal(t, int64(1), fetches.Load())
	for i := 0; i < waiters; i++ {
		require.NoError(t, errs[i])
		assert.Equal(t, "result", results[i])
		assert.True(t, shared[i])
	}
}

func TestAllWaitersShareError(t *testing.T) {
	d := New()
	payload := map[string]any{"model": "gpt-4o"}

	release := make(chan struct{})
	fetch := func() (any, error) {
		<-release
		return nil, fmt.Errorf("backend down")
	}

	const waiters = 5
	var wg sync.WaitGroup
	errs := make([]error, waiters)
	for i := 0; i < waiters; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, _, errs[i] = d.Deduplicate(payload, fetch)
		}(i)
	}
	time.Sleep(50 * time.Millisecond)
	close(release)
	wg.Wait()

	for i := 0; i < waiters; i++ {
		require.Error(t, errs[i])
		assert.EqualError(t, errs[i], "backend down")
	}
}

func TestDistinctPayloadsFetchIndependently(t *testing.T) {
	d := New()

	var fetches atomic.Int64
	fetch := func() (any, error) {
		fetches.Add(1)
		return "r", nil
	}

	_, shared, err := d.Deduplicate(map[string]any{"prompt": "a"}, fetch)
	require.NoError(t, err)
	assert.False(t, shared)
	_, shared, err = d.Deduplicate(map[string]any{"prompt": "b"}, fetch)
	require.NoError(t, err)
	assert.False(t, shared)

	assert.Equal(t, int64(2), fetches.Load())
}

func TestSequentialCallsFetchAgain(t *testing.T) {
	d := New()
	payload := map[string]any{"prompt": "a"}

	var fetches atomic.Int64
	fetch := func() (any, error) {
		fetches.Add(1)
		return "r", nil
	}

	_, _, err := d.Deduplicate(payload, fetch)
	require.NoError(t, err)
	_, _, err = d.Deduplicate(payload, fetch)
	require.NoError(t, err)

	// The handle is removed once a fetch completes; sequential calls are
	// not memoized.
	assert.Equal(t, int64(2), fetches.Load())
}
