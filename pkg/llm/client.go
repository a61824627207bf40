// Package llm provides chat-model clients behind a single interface, with
// OpenAI-style HTTP and Anthropic SDK backends.
package llm

import "context"

// Client performs a single-turn chat completion.
type Client interface {
	ChatCompletion(ctx context.Context, req ChatRequest) (*ChatResponse, error)
}

// ChatRequest is a backend-neutral single-turn request.
type ChatRequest struct {
	Model       string
	System      string
	User        string
	Temperature float64
	MaxTokens   int
	// JSONResponse requests the backend's JSON output mode where available.
	JSONResponse bool
}

// ChatResponse is the assistant's reply.
type ChatResponse struct {
	Text  string
	Usage Usage
}

// Usage reports token consumption for one call.
type Usage struct {
	InputTokens  int
	OutputTokens int
}
