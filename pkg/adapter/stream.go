package adapter

import (
	"io"
	"sync"

	"github.com/modelgate/modelgate/pkg/types"
)

// SingleChunkStream wraps a complete response into a one-chunk stream so
// adapters without native streaming support can satisfy StreamCall.
func SingleChunkStream(resp *types.ChatResponse) Stream {
	return &singleChunkStream{resp: resp}
}

type singleChunkStream struct {
	mu   sync.Mutex
	resp *types.ChatResponse
	done bool
}

func (s *singleChunkStream) Next() (*types.StreamChunk, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.done || s.resp == nil {
		return nil, io.EOF
	}
	s.done = true
	return &types.StreamChunk{
		ID:      s.resp.ID,
		Model:   s.resp.Model,
		Delta:   s.resp.Content,
		Done:    true,
		Usage:   s.resp.Usage,
		Created: s.resp.Created,
	}, nil
}

func (s *singleChunkStream) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.done = true
	return nil
}
