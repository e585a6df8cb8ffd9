package domain

import "encoding/json"

// AuditEvent is a relay audit record. It carries call metadata only,
// never conversation content.
type AuditEvent struct {
	EventID   string          `json:"event_id"`
	RequestID string          `json:"request_id"`
	Identity  string          `json:"identity"`
	Mode      Mode            `json:"mode"`
	Ts        int64           `json:"ts"`
	Type      AuditEventType  `json:"type"`
	Payload   json.RawMessage `json:"payload,omitempty"`
}

// ChatStartedPayload is the payload for chat_started.
type ChatStartedPayload struct {
	Model    string `json:"model"`
	Stream   bool   `json:"stream"`
	Messages int    `json:"messages"`
}

// ChatDonePayload is the payload for chat_done.
type ChatDonePayload struct {
	Model            string `json:"model"`
	Stream           bool   `json:"stream"`
	LatencyMs        int64  `json:"latency_ms"`
	Deltas           int    `json:"deltas,omitempty"`
	PromptTokens     int    `json:"prompt_tokens,omitempty"`
	CompletionTokens int    `json:"completion_tokens,omitempty"`
	TotalTokens      int    `json:"total_tokens,omitempty"`
	Cancelled        bool   `json:"cancelled,omitempty"`
	Error            string `json:"error,omitempty"`
}
