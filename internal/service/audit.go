package service

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"

	"github.com/dstaulcu/skill-enabled-dept-website/internal/adapter/llm"
	"github.com/dstaulcu/skill-enabled-dept-website/internal/domain"
	"github.com/dstaulcu/skill-enabled-dept-website/internal/repository"
)

// recordEvent records an audit event to the store.
func (s *Service) recordEvent(ctx context.Context, requestID string, cred *domain.SessionCredential, eventType domain.AuditEventType, payload any) error {
	if s.store == nil {
		return nil
	}
	payloadBytes, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal payload: %w", err)
	}

	event := &domain.AuditEvent{
		EventID:   "evt_" + uuid.New().String()[:8],
		RequestID: requestID,
		Identity:  cred.Identity,
		Mode:      cred.Mode,
		Ts:        s.now().UnixMilli(),
		Type:      eventType,
		Payload:   payloadBytes,
	}
	// The audit trail outlives a caller that hung up mid-stream.
	return s.store.CreateEvent(context.WithoutCancel(ctx), event)
}

func (s *Service) recordStarted(ctx context.Context, requestID string, cred *domain.SessionCredential, req *llm.ChatCompletionRequest, stream bool) {
	// The synthesized system turn is not counted.
	err := s.recordEvent(ctx, requestID, cred, domain.AuditEventChatStarted, domain.ChatStartedPayload{
		Model:    req.Model,
		Stream:   stream,
		Messages: len(req.Messages) - 1,
	})
	if err != nil {
		s.logger.Warn("failed to record chat_started event", "request_id", requestID, "error", err)
	}
}

func (s *Service) recordDone(ctx context.Context, requestID string, cred *domain.SessionCredential, payload domain.ChatDonePayload) {
	if err := s.recordEvent(ctx, requestID, cred, domain.AuditEventChatDone, payload); err != nil {
		s.logger.Warn("failed to record chat_done event", "request_id", requestID, "error", err)
	}
}

// ListAuditEvents returns the caller's own audit events, newest first.
func (s *Service) ListAuditEvents(ctx context.Context, cred *domain.SessionCredential, limit int) ([]domain.AuditEvent, error) {
	if s.store == nil {
		return []domain.AuditEvent{}, nil
	}
	if limit <= 0 || limit > repository.DefaultListLimit {
		limit = repository.DefaultListLimit
	}
	return s.store.ListEvents(ctx, repository.EventFilter{Identity: cred.Identity, Limit: limit})
}
