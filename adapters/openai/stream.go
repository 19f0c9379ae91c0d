package openai

import (
	"bufio"
	"bytes"
	"io"
	"net/http"
	"sync"

	"github.com/goccy/go-json"

	"github.com/modelgate/modelgate/pkg/types"
)

var (
	dataPrefix = []byte("data: ")
	doneMarker = []byte("[DONE]")
)

// sseStream reads server-sent-events chunks from a streaming response.
type sseStream struct {
	resp    *http.Response
	scanner *bufio.Scanner

	mu     sync.Mutex
	closed bool
}

func newSSEStream(resp *http.Response) *sseStream {
	scanner := bufio.NewScanner(resp.Body)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	return &sseStream{resp: resp, scanner: scanner}
}

// wireChunk is one streaming delta in OpenAI's wire format.
type wireChunk struct {
	ID      string `json:"id"`
	Model   string `json:"model"`
	Created int64  `json:"created"`
	Choices []struct {
		Delta struct {
			Content string `json:"content"`
		} `json:"delta"`
		FinishReason string `json:"finish_reason"`
	} `json:"choices"`
	Usage *types.Usage `json:"usage"`
}

// Next returns the next chunk, or io.EOF once the stream completes.
func (s *sseStream) Next() (*types.StreamChunk, error) {
	s.mu.Lock()
	closed := s.closed
	s.mu.Unlock()
	if closed {
		return nil, io.EOF
	}

	for s.scanner.Scan() {
		line := bytes.TrimSpace(s.scanner.Bytes())
		if len(line) == 0 || !bytes.HasPrefix(line, dataPrefix) {
			continue
		}
		data := bytes.TrimPrefix(line, dataPrefix)
		if bytes.Equal(data, doneMarker) {
			s.Close()
			return nil, io.EOF
		}

		var wire wireChunk
		if err := json.Unmarshal(data, &wire); err != nil {
			// Skip malformed keep-alive noise rather than aborting the
			// whole stream.
			continue
		}

		chunk := &types.StreamChunk{
			ID:      wire.ID,
			Model:   wire.Model,
			Created: wire.Created,
			Usage:   wire.Usage,
		}
		if len(wire.Choices) > 0 {
			chunk.Delta = wire.Choices[0].Delta.Content
			chunk.Done = wire.Choices[0].FinishReason != ""
		}
		return chunk, nil
	}

	if err := s.scanner.Err(); err != nil {
		s.Close()
		return nil, err
	}
	s.Close()
	return nil, io.EOF
}

// Close drains and releases the underlying response body. Safe to call more
// than once.
func (s *sseStream) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}
	s.closed = true
	io.Copy(io.Discard, s.resp.Body)
	return s.resp.Body.Close()
}
