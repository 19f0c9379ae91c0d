package types

// ChatResponse is the unified chat completion response.
// Adapter responses of any provider format are normalized into this shape.
type ChatResponse struct {
	ID       string            `json:"id"`
	Model    string            `json:"model"`
	Content  string            `json:"content"`
	Created  int64             `json:"created"`
	Usage    *Usage            `json:"usage,omitempty"`
	Metadata map[string]string `json:"metadata,omitempty"`
}

// Usage contains token accounting for a completed call.
type Usage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// StreamChunk is one partial-content element of a streaming response.
type StreamChunk struct {
	ID      string `json:"id"`
	Model   string `json:"model"`
	Delta   string `json:"delta"`
	Done    bool   `json:"done,omitempty"`
	Usage   *Usage `json:"usage,omitempty"`
	Created int64  `json:"created,omitempty"`
}
