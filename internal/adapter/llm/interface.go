// Package llm provides an abstraction for the upstream completion service.
package llm

import (
	"context"

	"github.com/dstaulcu/skill-enabled-dept-website/internal/domain"
)

// LLMClient is the narrow capability the relay needs from an
// OpenAI-compatible completion service.
type LLMClient interface {
	// CreateChatCompletion sends a chat completion request (non-streaming).
	CreateChatCompletion(ctx context.Context, req *ChatCompletionRequest) (*ChatCompletionResponse, error)

	// CreateChatCompletionStream opens a streaming chat completion. The
	// returned stream is bound to ctx and must be closed by the caller.
	CreateChatCompletionStream(ctx context.Context, req *ChatCompletionRequest) (DeltaStream, error)
}

// DeltaStream yields incremental fragments of a streamed completion.
type DeltaStream interface {
	// Recv returns the next delta, or io.EOF after the upstream ends normally.
	Recv() (Delta, error)
	// Close releases the upstream connection.
	Close() error
}

// ChatCompletionRequest represents an upstream chat completion request.
type ChatCompletionRequest struct {
	Model       string
	Messages    []domain.Message
	Temperature float32
	MaxTokens   int
}

// ChatCompletionResponse represents the aggregated upstream reply.
type ChatCompletionResponse struct {
	Model        string
	Content      string
	FinishReason string
	Usage        *Usage
}

// Delta is one streamed fragment. Content may be empty, for example on
// role-only or usage-only chunks.
type Delta struct {
	Model        string
	Content      string
	FinishReason string
}

// Usage represents token usage information.
type Usage struct {
	PromptTokens     int
	CompletionTokens int
	TotalTokens      int
}

// Ensure implementations satisfy LLMClient.
var (
	_ LLMClient = (*Client)(nil)
	_ LLMClient = (*MockClient)(nil)
	_ LLMClient = (*ScriptedClient)(nil)
)
