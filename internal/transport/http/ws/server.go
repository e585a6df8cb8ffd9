// Package ws serves the streamed chat relay over a WebSocket.
package ws

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"slices"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"

	"github.com/dstaulcu/skill-enabled-dept-website/internal/auth"
	"github.com/dstaulcu/skill-enabled-dept-website/internal/domain"
	"github.com/dstaulcu/skill-enabled-dept-website/internal/service"
	"github.com/dstaulcu/skill-enabled-dept-website/internal/transport/http/chat"
)

// Connection settings.
const (
	MaxMessageSize = 1 << 20
	ReadTimeout    = 60 * time.Second
	WriteTimeout   = 10 * time.Second
	PingInterval   = (ReadTimeout * 9) / 10
)

// Server handles WebSocket chat connections.
type Server struct {
	service  *service.Service
	hub      *Hub
	logger   *slog.Logger
	upgrader websocket.Upgrader
}

// NewServer creates a WebSocket server that registers its connections
// with hub (a private one when nil). Browser upgrades are accepted only
// from allowedOrigins; non-browser clients send no Origin header.
func NewServer(svc *service.Service, hub *Hub, allowedOrigins []string, logger *slog.Logger) *Server {
	if hub == nil {
		hub = NewHub(nil)
	}
	return &Server{
		service: svc,
		hub:     hub,
		logger:  logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				origin := r.Header.Get("Origin")
				return origin == "" || slices.Contains(allowedOrigins, origin)
			},
		},
	}
}

// RegisterRoutes registers the WebSocket route on an authenticated group.
func (s *Server) RegisterRoutes(g *echo.Group) {
	g.GET("/chat/ws", s.HandleWebSocket)
}

// connection serializes writes and tracks the in-flight relay.
type connection struct {
	id   string
	conn *websocket.Conn
	cred *domain.SessionCredential
	stop context.CancelFunc

	mu     sync.Mutex
	cancel context.CancelFunc
}

func (c *connection) writeJSON(v any) error {
	c.conn.SetWriteDeadline(time.Now().Add(WriteTimeout))
	return c.conn.WriteJSON(v)
}

func (c *connection) setCancel(cancel context.CancelFunc) {
	c.mu.Lock()
	c.cancel = cancel
	c.mu.Unlock()
}

func (c *connection) cancelRelay() {
	c.mu.Lock()
	if c.cancel != nil {
		c.cancel()
	}
	c.mu.Unlock()
}

// HandleWebSocket upgrades the request and serves relays until the
// client disconnects. Relays run one at a time on this goroutine.
func (s *Server) HandleWebSocket(c echo.Context) error {
	cred, ok := auth.CredentialFrom(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, domain.ErrorResponse{Detail: domain.ErrAuthMissing.Detail})
	}

	ws, err := s.upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		// The upgrader has already written the HTTP error.
		s.logger.Warn("failed to upgrade websocket", "error", err)
		return nil
	}
	defer ws.Close()

	ctx, cancel := context.WithCancel(c.Request().Context())
	defer cancel()

	conn := &connection{conn: ws, cred: cred, stop: cancel}
	if !s.hub.register(conn) {
		ws.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutting down"),
			time.Now().Add(WriteTimeout))
		return nil
	}
	defer s.hub.unregister(conn)

	incoming := make(chan inbound, 8)

	go s.readPump(ctx, cancel, conn, incoming)
	go s.pingLoop(ctx, conn)

	s.logger.Info("websocket connected", "identity", cred.Identity, "connection_id", conn.id, "remote_ip", c.RealIP())
	for {
		select {
		case <-ctx.Done():
			s.logger.Info("websocket disconnected", "identity", cred.Identity, "connection_id", conn.id)
			return nil
		case in := <-incoming:
			var err error
			if in.reject != nil {
				err = conn.writeJSON(in.reject)
			} else {
				err = s.relay(ctx, conn, in.chat)
			}
			if err != nil {
				s.logger.Debug("websocket write failed", "identity", cred.Identity, "error", err)
				return nil
			}
		}
	}
}

// readPump reads client messages. A read failure (including a close
// frame) cancels the connection context, which stops any relay.
func (s *Server) readPump(ctx context.Context, cancel context.CancelFunc, conn *connection, incoming chan<- inbound) {
	defer cancel()

	conn.conn.SetReadLimit(MaxMessageSize)
	conn.conn.SetReadDeadline(time.Now().Add(ReadTimeout))
	conn.conn.SetPongHandler(func(string) error {
		conn.conn.SetReadDeadline(time.Now().Add(ReadTimeout))
		return nil
	})

	for {
		_, data, err := conn.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				s.logger.Warn("websocket read error", "identity", conn.cred.Identity, "error", err)
			}
			return
		}
		conn.conn.SetReadDeadline(time.Now().Add(ReadTimeout))

		var base BaseMessage
		if err := json.Unmarshal(data, &base); err != nil {
			if !enqueue(ctx, incoming, inbound{reject: errorMessage("", ErrorCodeInvalidMessage, "invalid JSON message")}) {
				return
			}
			continue
		}

		switch base.Type {
		case TypeCancel:
			conn.cancelRelay()
		case TypeChat:
			var msg ChatMessage
			if err := json.Unmarshal(data, &msg); err != nil {
				if !enqueue(ctx, incoming, inbound{reject: errorMessage(base.RequestID, ErrorCodeInvalidMessage, "invalid chat message")}) {
					return
				}
				continue
			}
			if !enqueue(ctx, incoming, inbound{chat: &msg}) {
				return
			}
		default:
			if !enqueue(ctx, incoming, inbound{reject: errorMessage(base.RequestID, ErrorCodeInvalidMessage, "unknown message type: "+base.Type)}) {
				return
			}
		}
	}
}

// inbound is one unit of work for the writer goroutine: a chat to relay
// or a rejection to send back. Only that goroutine writes data frames.
type inbound struct {
	chat   *ChatMessage
	reject *ErrorMessage
}

func enqueue(ctx context.Context, incoming chan<- inbound, in inbound) bool {
	select {
	case incoming <- in:
		return true
	case <-ctx.Done():
		return false
	}
}

func (s *Server) pingLoop(ctx context.Context, conn *connection) {
	ticker := time.NewTicker(PingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := conn.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(WriteTimeout)); err != nil {
				return
			}
		}
	}
}

// relay runs one chat to completion. It returns an error only when the
// connection can no longer be written to.
func (s *Server) relay(ctx context.Context, conn *connection, msg *ChatMessage) error {
	req := &domain.ChatRequest{Messages: msg.Messages, Model: msg.Model}
	if err := chat.ValidateChatRequest(req); err != nil {
		return conn.writeJSON(errorMessage(msg.RequestID, ErrorCodeInvalidMessage, err.Error()))
	}

	relayCtx, cancel := context.WithCancel(ctx)
	conn.setCancel(cancel)
	defer func() {
		conn.setCancel(nil)
		cancel()
	}()

	events := s.service.Stream(relayCtx, req, conn.cred)
	defer events.Close()

	requestID := msg.RequestID
	if requestID == "" {
		requestID = events.RequestID()
	}

	for {
		ev, ok := events.Next()
		if !ok {
			if relayCtx.Err() != nil && ctx.Err() == nil {
				return conn.writeJSON(errorMessage(requestID, ErrorCodeCancelled, "relay cancelled by client"))
			}
			return nil
		}
		if err := conn.writeJSON(frameFor(requestID, ev)); err != nil {
			return err
		}
		if ev.Terminal() {
			return nil
		}
	}
}

func frameFor(requestID string, ev domain.Event) any {
	base := BaseMessage{Ts: time.Now().UnixMilli(), RequestID: requestID}
	switch ev.Type {
	case domain.EventTypeDone:
		base.Type = TypeDone
		return DoneMessage{BaseMessage: base}
	case domain.EventTypeError:
		return errorMessage(requestID, ErrorCodeUpstream, ev.Message)
	default:
		base.Type = TypeDelta
		return DeltaMessage{BaseMessage: base, Text: ev.Text}
	}
}

func errorMessage(requestID, code, message string) *ErrorMessage {
	return &ErrorMessage{
		BaseMessage: BaseMessage{Type: TypeError, Ts: time.Now().UnixMilli(), RequestID: requestID},
		Code:        code,
		Message:     message,
	}
}
