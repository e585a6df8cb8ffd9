package llm

import (
	"context"
	"fmt"
	"io"
	"sync"

	"github.com/dstaulcu/skill-enabled-dept-website/internal/domain"
)

// MockClient is a canned LLMClient used when no upstream is reachable.
type MockClient struct{}

// NewMockClient creates a new mock LLM client.
func NewMockClient() *MockClient {
	return &MockClient{}
}

// CreateChatCompletion returns a mock response.
func (m *MockClient) CreateChatCompletion(ctx context.Context, req *ChatCompletionRequest) (*ChatCompletionResponse, error) {
	content := m.generateMockResponse(req)
	prompt := estimateTokens(req.Messages)

	return &ChatCompletionResponse{
		Model:        req.Model,
		Content:      content,
		FinishReason: "stop",
		Usage: &Usage{
			PromptTokens:     prompt,
			CompletionTokens: len(content) / 4,
			TotalTokens:      prompt + len(content)/4,
		},
	}, nil
}

// CreateChatCompletionStream streams the mock response in 10 byte chunks.
func (m *MockClient) CreateChatCompletionStream(ctx context.Context, req *ChatCompletionRequest) (DeltaStream, error) {
	return newSliceStream(ctx, req.Model, splitIntoChunks(m.generateMockResponse(req), 10), nil), nil
}

func (m *MockClient) generateMockResponse(req *ChatCompletionRequest) string {
	last := lastUserMessage(req.Messages)
	if last == "" {
		return "[MOCK] This is a mock response from the LLM client."
	}
	return fmt.Sprintf("[MOCK] Received your message: %q. This is a mock response.", truncate(last, 100))
}

// sliceStream replays a fixed list of deltas, then ends with tail
// (io.EOF when tail is nil).
type sliceStream struct {
	ctx    context.Context
	model  string
	chunks []string
	tail   error

	mu     sync.Mutex
	pos    int
	closed bool
}

func newSliceStream(ctx context.Context, model string, chunks []string, tail error) *sliceStream {
	if tail == nil {
		tail = io.EOF
	}
	return &sliceStream{ctx: ctx, model: model, chunks: chunks, tail: tail}
}

func (s *sliceStream) Recv() (Delta, error) {
	if err := s.ctx.Err(); err != nil {
		return Delta{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return Delta{}, io.ErrClosedPipe
	}
	if s.pos >= len(s.chunks) {
		return Delta{}, s.tail
	}
	d := Delta{Model: s.model, Content: s.chunks[s.pos]}
	s.pos++
	if s.pos == len(s.chunks) && s.tail == io.EOF {
		d.FinishReason = "stop"
	}
	return d, nil
}

func (s *sliceStream) Close() error {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
	return nil
}

func lastUserMessage(messages []domain.Message) string {
	for i := len(messages) - 1; i >= 0; i-- {
		if messages[i].Role == domain.RoleUser {
			return messages[i].Content
		}
	}
	return ""
}

// estimateTokens provides a rough token count estimate.
func estimateTokens(messages []domain.Message) int {
	total := 0
	for _, msg := range messages {
		total += len(msg.Content) / 4
	}
	return total
}

func splitIntoChunks(s string, chunkSize int) []string {
	var chunks []string
	for i := 0; i < len(s); i += chunkSize {
		end := min(i+chunkSize, len(s))
		chunks = append(chunks, s[i:end])
	}
	return chunks
}

func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}
