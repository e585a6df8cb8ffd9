package llm

import (
	"context"
	"io"
	"sync"

	"github.com/dstaulcu/skill-enabled-dept-website/internal/domain"
)

// ScriptedClient is a deterministic LLMClient for tests. Streams replay
// Deltas and then end with StreamErr (or io.EOF). With Hold set, the
// stream blocks after the last delta until its context is cancelled.
type ScriptedClient struct {
	Deltas     []string
	StreamErr  error
	OpenErr    error
	Hold       bool
	Reply      string
	ReplyModel string
	ReplyErr   error
	Usage      *Usage

	mu       sync.Mutex
	requests []ChatCompletionRequest
	streams  []*scriptedStream
}

// CreateChatCompletion returns Reply or ReplyErr.
func (s *ScriptedClient) CreateChatCompletion(ctx context.Context, req *ChatCompletionRequest) (*ChatCompletionResponse, error) {
	s.record(req)
	if s.ReplyErr != nil {
		return nil, s.ReplyErr
	}
	model := s.ReplyModel
	if model == "" {
		model = req.Model
	}
	return &ChatCompletionResponse{Model: model, Content: s.Reply, FinishReason: "stop", Usage: s.Usage}, nil
}

// CreateChatCompletionStream returns OpenErr or a stream over Deltas.
func (s *ScriptedClient) CreateChatCompletionStream(ctx context.Context, req *ChatCompletionRequest) (DeltaStream, error) {
	s.record(req)
	if s.OpenErr != nil {
		return nil, s.OpenErr
	}
	stream := &scriptedStream{
		ctx:   ctx,
		inner: newSliceStream(ctx, req.Model, s.Deltas, s.StreamErr),
		hold:  s.Hold,
	}
	s.mu.Lock()
	s.streams = append(s.streams, stream)
	s.mu.Unlock()
	return stream, nil
}

// Requests returns copies of every request received so far.
func (s *ScriptedClient) Requests() []ChatCompletionRequest {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]ChatCompletionRequest(nil), s.requests...)
}

// AllClosed reports whether every opened stream has been closed.
func (s *ScriptedClient) AllClosed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, st := range s.streams {
		if !st.isClosed() {
			return false
		}
	}
	return true
}

func (s *ScriptedClient) record(req *ChatCompletionRequest) {
	cp := *req
	cp.Messages = append([]domain.Message(nil), req.Messages...)
	s.mu.Lock()
	s.requests = append(s.requests, cp)
	s.mu.Unlock()
}

type scriptedStream struct {
	ctx   context.Context
	inner *sliceStream
	hold  bool

	mu     sync.Mutex
	closed bool
}

func (s *scriptedStream) Recv() (Delta, error) {
	d, err := s.inner.Recv()
	if err == io.EOF && s.hold {
		<-s.ctx.Done()
		return Delta{}, s.ctx.Err()
	}
	return d, err
}

func (s *scriptedStream) Close() error {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
	return s.inner.Close()
}

func (s *scriptedStream) isClosed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}
