// Package repository persists relay audit events.
package repository

import (
	"context"

	"github.com/dstaulcu/skill-enabled-dept-website/internal/domain"
)

// Store is the audit event store used by the relay.
type Store interface {
	CreateEvent(ctx context.Context, event *domain.AuditEvent) error
	ListEvents(ctx context.Context, filter EventFilter) ([]domain.AuditEvent, error)
	Ping(ctx context.Context) error
	Close() error
}

// EventFilter narrows ListEvents. Zero fields are ignored.
type EventFilter struct {
	Identity  string
	RequestID string
	Types     []domain.AuditEventType
	AfterTs   int64
	Limit     int
}
