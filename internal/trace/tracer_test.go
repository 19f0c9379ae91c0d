package trace

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRootSpanHasNoParent(t *testing.T) {
	tr := New(Options{})

	root := tr.StartTrace("chat")
	assert.NotEmpty(t, root.ID)
	assert.NotEmpty(t, root.TraceID)
	assert.Empty(t, root.ParentID)
}

func TestChildSpanLinksToParent(t *testing.T) {
	tr := New(Options{})

	root := tr.StartTrace("chat")
	child := tr.StartSpan(root, "adapter_call")

	assert.Equal(t, root.TraceID, child.TraceID)
	assert.Equal(t, root.ID, child.ParentID)

	spans := tr.Spans(root.TraceID)
	require.Len(t, spans, 2)
}

func TestEndSpanRecordsDurationAndError(t *testing.T) {
	tr := New(Options{})
	current := time.Now()
	tr.now = func() time.Time { return current }

	span := tr.StartTrace("chat")
	assert.Zero(t, span.Duration())

	current = current.Add(250 * time.Millisecond)
	tr.EndSpan(span, fmt.Errorf("backend down"))

	assert.Equal(t, 250*time.Millisecond, span.Duration())
	assert.Equal(t, "backend down", span.Err)
}

func TestSetTag(t *testing.T) {
	tr := New(Options{})

	span := tr.StartTrace("chat")
	tr.SetTag(span, "adapter", "openai")
	tr.SetTag(span, "model", "gpt-4o")

	assert.Equal(t, "openai", span.Tags["adapter"])
	assert.Equal(t, "gpt-4o", span.Tags["model"])
}

func TestBufferBounded(t *testing.T) {
	tr := New(Options{MaxTraces: 5})

	for i := 0; i < 20; i++ {
		tr.StartTrace("chat")
	}
	assert.LessOrEqual(t, tr.Len(), 5)
}

func TestExpiredTracesDropped(t *testing.T) {
	tr := New(Options{TTL: time.Minute})
	current := time.Now()
	tr.now = func() time.Time { return current }

	old := tr.StartTrace("chat")
	current = current.Add(2 * time.Minute)
	tr.StartTrace("chat")

	assert.Nil(t, tr.Spans(old.TraceID))
	assert.Equal(t, 1, tr.Len())
}
