// Package domain defines the core domain models for the gateway.
package domain

// Mode is the authentication mode a caller was resolved under.
type Mode string

const (
	ModeDevelopment Mode = "development"
	ModeProduction  Mode = "production"
)

// ParseMode parses a mode claim. The empty string yields production.
func ParseMode(s string) (Mode, bool) {
	switch Mode(s) {
	case "", ModeProduction:
		return ModeProduction, true
	case ModeDevelopment:
		return ModeDevelopment, true
	default:
		return "", false
	}
}

// Role represents the author of a conversation turn.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	switch r {
	case RoleSystem, RoleUser, RoleAssistant:
		return true
	}
	return false
}

// EventType represents the type of a stream event.
type EventType string

const (
	EventTypeData  EventType = "data"
	EventTypeDone  EventType = "done"
	EventTypeError EventType = "error"
)

// AuditEventType represents the type of a relay audit event.
type AuditEventType string

const (
	AuditEventChatStarted AuditEventType = "chat_started"
	AuditEventChatDone    AuditEventType = "chat_done"
)
