package ws

import "github.com/dstaulcu/skill-enabled-dept-website/internal/domain"

// Message types from client to server
const (
	TypeChat   = "chat"
	TypeCancel = "cancel"
)

// Message types from server to client
const (
	TypeDelta = "delta"
	TypeDone  = "done"
	TypeError = "error"
)

// Error codes
const (
	ErrorCodeInvalidMessage = "invalid_message"
	ErrorCodeUpstream       = "upstream_error"
	ErrorCodeCancelled      = "cancelled"
)

// BaseMessage contains common fields for all messages.
type BaseMessage struct {
	Type      string `json:"type"`
	Ts        int64  `json:"ts,omitempty"`
	RequestID string `json:"request_id,omitempty"`
}

// ChatMessage is sent by the client to start a streamed relay.
type ChatMessage struct {
	BaseMessage
	Messages []domain.Message `json:"messages"`
	Model    string           `json:"model,omitempty"`
}

// DeltaMessage carries one fragment of the reply.
type DeltaMessage struct {
	BaseMessage
	Text string `json:"text"`
}

// DoneMessage ends a reply normally.
type DoneMessage struct {
	BaseMessage
}

// ErrorMessage ends a reply with a failure, or rejects a client message.
type ErrorMessage struct {
	BaseMessage
	Code    string `json:"code"`
	Message string `json:"message"`
}
