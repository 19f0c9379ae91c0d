package modelgate

import (
	"context"
	"sync"

	"github.com/modelgate/modelgate/internal/observability"
	"github.com/modelgate/modelgate/internal/retry"
	"github.com/modelgate/modelgate/pkg/adapter"
	"github.com/modelgate/modelgate/pkg/types"
)

// StreamReader iterates over streaming response chunks. It is not safe for
// concurrent use; one goroutine should own it.
type StreamReader struct {
	stream  adapter.Stream
	adapter string
	model   string

	closeOnce sync.Once
	onClose   func()
}

// Next returns the next chunk, or io.EOF when the stream is complete.
func (r *StreamReader) Next() (*types.StreamChunk, error) {
	return r.stream.Next()
}

// Close releases the underlying stream. Safe to call more than once.
func (r *StreamReader) Close() error {
	err := r.stream.Close()
	r.closeOnce.Do(func() {
		if r.onClose != nil {
			r.onClose()
		}
	})
	return err
}

// Adapter returns the name of the adapter serving this stream.
func (r *StreamReader) Adapter() string { return r.adapter }

// StreamChat sends a streaming chat request. Streams bypass the response
// cache and the deduplicator; each chunk is forwarded as it arrives.
func (c *Client) StreamChat(ctx context.Context, req *types.ChatRequest) (*StreamReader, error) {
	if err := c.validate(req); err != nil {
		return nil, err
	}
	if req.Model == "" {
		req.Model = c.cfg.DefaultModel
	}
	req.Stream = true

	span := c.tracer.StartTrace("stream_chat")
	c.tracer.SetTag(span, "model", req.Model)

	selected, err := c.selectAdapter(ctx, req)
	if err != nil {
		c.tracer.EndSpan(span, err)
		return nil, err
	}
	c.tracer.SetTag(span, "adapter", selected.Name())

	if err := c.limiter.Wait(ctx, selected.Name()); err != nil {
		c.tracer.EndSpan(span, err)
		return nil, err
	}

	ctx, otelSpan := observability.StartCallSpan(ctx, c.traces.Tracer(), "stream_chat",
		observability.CallSpanAttributes{
			Adapter:   selected.Name(),
			Model:     req.Model,
			Stream:    true,
			MaxTokens: req.MaxTokens,
		})
	defer otelSpan.End()

	// Retries apply only to opening the stream; once chunks flow, a broken
	// stream surfaces to the caller.
	var stream adapter.Stream
	err = retry.Do(ctx, c.retryPolicy, func(ctx context.Context) error {
		var callErr error
		stream, callErr = selected.StreamCall(ctx, req)
		return callErr
	})
	if err != nil {
		observability.RecordError(otelSpan, err)
		c.tracer.EndSpan(span, err)
		return nil, err
	}

	var closeStream func()
	if c.metrics != nil {
		closeStream = c.metrics.StreamOpened()
	}

	c.tracer.EndSpan(span, nil)
	return &StreamReader{
		stream:  stream,
		adapter: selected.Name(),
		model:   req.Model,
		onClose: closeStream,
	}, nil
}
