package domain

// Message is a single conversation turn.
type Message struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// ChatRequest is the inbound chat body.
// Stream is advisory only; the route decides between aggregated and streamed replies.
type ChatRequest struct {
	Messages []Message `json:"messages"`
	Stream   *bool     `json:"stream,omitempty"`
	Model    string    `json:"model,omitempty"`
}

// ChatResult is the aggregated reply of a non-streaming chat.
type ChatResult struct {
	Message Message `json:"message"`
	Model   string  `json:"model"`
	User    string  `json:"user"`
}

// Event is one element of a relayed stream: a text delta, the done
// sentinel, or a terminal error.
type Event struct {
	Type    EventType
	Text    string
	Message string
}

// DataEvent returns a delta event carrying text.
func DataEvent(text string) Event { return Event{Type: EventTypeData, Text: text} }

// DoneEvent returns the normal-termination sentinel.
func DoneEvent() Event { return Event{Type: EventTypeDone} }

// ErrorEvent returns the error sentinel carrying message.
func ErrorEvent(message string) Event { return Event{Type: EventTypeError, Message: message} }

// Terminal reports whether e ends a stream.
func (e Event) Terminal() bool {
	return e.Type == EventTypeDone || e.Type == EventTypeError
}
