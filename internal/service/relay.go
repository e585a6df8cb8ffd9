package service

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/dstaulcu/skill-enabled-dept-website/internal/adapter/llm"
	"github.com/dstaulcu/skill-enabled-dept-website/internal/domain"
	"github.com/dstaulcu/skill-enabled-dept-website/internal/metrics"
)

// Sampling parameters sent with every upstream call.
const (
	Temperature float32 = 0.7
	MaxTokens           = 500
)

const systemPromptTemplate = "You are a helpful AI assistant for a government department. You are currently assisting %s. Be concise and professional."

// SystemPrompt returns the instruction turn for identity.
func SystemPrompt(identity string) string {
	return fmt.Sprintf(systemPromptTemplate, identity)
}

// BuildAugmentedRequest returns a new slice with the system turn for
// identity at position 0 followed by messages. messages is not modified.
func BuildAugmentedRequest(messages []domain.Message, identity string) []domain.Message {
	out := make([]domain.Message, 0, len(messages)+1)
	out = append(out, domain.Message{Role: domain.RoleSystem, Content: SystemPrompt(identity)})
	return append(out, messages...)
}

// ResolveModel returns model, or the configured default when model is empty.
func (s *Service) ResolveModel(model string) string {
	if model != "" {
		return model
	}
	return s.config.OpenAIModel
}

// modelSource labels metrics without the caller's model string.
func (s *Service) modelSource(model string) string {
	if model == "" || model == s.config.OpenAIModel {
		return metrics.ModelDefault
	}
	return metrics.ModelOverride
}

func (s *Service) upstreamRequest(req *domain.ChatRequest, identity string) *llm.ChatCompletionRequest {
	return &llm.ChatCompletionRequest{
		Model:       s.ResolveModel(req.Model),
		Messages:    BuildAugmentedRequest(req.Messages, identity),
		Temperature: Temperature,
		MaxTokens:   MaxTokens,
	}
}

func newRequestID() string {
	return "chat_" + uuid.New().String()[:8]
}

// Complete relays a non-streaming chat. Upstream failures are returned
// as *domain.RelayError and are never retried.
func (s *Service) Complete(ctx context.Context, req *domain.ChatRequest, cred *domain.SessionCredential) (*domain.ChatResult, error) {
	upstreamReq := s.upstreamRequest(req, cred.Identity)
	requestID := newRequestID()
	startTime := s.now()

	s.recordStarted(ctx, requestID, cred, upstreamReq, false)

	resp, err := s.llmClient.CreateChatCompletion(ctx, upstreamReq)
	latency := s.now().Sub(startTime)

	if err != nil {
		s.logger.Warn("upstream completion failed",
			"request_id", requestID,
			"identity", cred.Identity,
			"model", upstreamReq.Model,
			"error", err,
		)
		s.metrics.RecordRelay("complete", s.modelSource(req.Model), "error", latency)
		s.recordDone(ctx, requestID, cred, domain.ChatDonePayload{
			Model:     upstreamReq.Model,
			LatencyMs: latency.Milliseconds(),
			Error:     err.Error(),
		})
		return nil, &domain.RelayError{Err: err}
	}

	s.metrics.RecordRelay("complete", s.modelSource(req.Model), "ok", latency)
	payload := domain.ChatDonePayload{
		Model:     upstreamReq.Model,
		LatencyMs: latency.Milliseconds(),
	}
	if resp.Usage != nil {
		payload.PromptTokens = resp.Usage.PromptTokens
		payload.CompletionTokens = resp.Usage.CompletionTokens
		payload.TotalTokens = resp.Usage.TotalTokens
	}
	s.recordDone(ctx, requestID, cred, payload)

	return &domain.ChatResult{
		Message: domain.Message{Role: domain.RoleAssistant, Content: resp.Content},
		Model:   upstreamReq.Model,
		User:    cred.Identity,
	}, nil
}

// Stream prepares a streamed relay. Nothing is sent upstream until the
// first call to Next on the returned stream.
func (s *Service) Stream(ctx context.Context, req *domain.ChatRequest, cred *domain.SessionCredential) *EventStream {
	return newEventStream(ctx, s, s.upstreamRequest(req, cred.Identity), cred, newRequestID(), s.config.StreamIdleTimeout)
}
