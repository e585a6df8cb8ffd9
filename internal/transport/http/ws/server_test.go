package ws

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dstaulcu/skill-enabled-dept-website/internal/adapter/llm"
	"github.com/dstaulcu/skill-enabled-dept-website/internal/auth"
	"github.com/dstaulcu/skill-enabled-dept-website/internal/config"
	"github.com/dstaulcu/skill-enabled-dept-website/internal/domain"
	"github.com/dstaulcu/skill-enabled-dept-website/internal/service"
	"github.com/dstaulcu/skill-enabled-dept-website/tests/helpers"
)

func newTestServer(t *testing.T, client llm.LLMClient) string {
	t.Helper()
	url, _ := newTestServerWithHub(t, client, nil)
	return url
}

func newTestServerWithHub(t *testing.T, client llm.LLMClient, hub *Hub) (string, *Hub) {
	t.Helper()
	if hub == nil {
		hub = NewHub(nil)
	}
	logger := helpers.DiscardLogger()
	cfg := config.Default()
	cfg.StreamIdleTimeout = 5 * time.Second

	svc := service.New(client, nil, nil, cfg, logger)
	resolver := auth.NewResolver(auth.NewSigner("ws-test-secret"), domain.ModeDevelopment)

	e := echo.New()
	g := e.Group("/api", auth.Middleware(resolver, nil, logger))
	NewServer(svc, hub, cfg.CORSOrigins, logger).RegisterRoutes(g)

	server := httptest.NewServer(e)
	t.Cleanup(server.Close)
	return "ws" + strings.TrimPrefix(server.URL, "http") + "/api/chat/ws", hub
}

func dial(t *testing.T, url string, header http.Header) *websocket.Conn {
	t.Helper()
	conn, _, err := websocket.DefaultDialer.Dial(url, header)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	return conn
}

func asUser(name string) http.Header {
	h := http.Header{}
	h.Set(auth.HeaderMockUser, name)
	return h
}

type frame struct {
	Type      string `json:"type"`
	RequestID string `json:"request_id"`
	Text      string `json:"text"`
	Code      string `json:"code"`
	Message   string `json:"message"`
}

func readFrame(t *testing.T, conn *websocket.Conn) frame {
	t.Helper()
	var f frame
	require.NoError(t, conn.ReadJSON(&f))
	return f
}

func sendChat(t *testing.T, conn *websocket.Conn, requestID string) {
	t.Helper()
	require.NoError(t, conn.WriteJSON(ChatMessage{
		BaseMessage: BaseMessage{Type: TypeChat, RequestID: requestID},
		Messages:    []domain.Message{{Role: domain.RoleUser, Content: "hi"}},
	}))
}

func TestWebSocketRelay(t *testing.T) {
	client := &llm.ScriptedClient{Deltas: []string{"Hel", "lo", "!"}}
	conn := dial(t, newTestServer(t, client), asUser("alice"))

	sendChat(t, conn, "r1")
	var texts []string
	for {
		f := readFrame(t, conn)
		assert.Equal(t, "r1", f.RequestID)
		if f.Type == TypeDone {
			break
		}
		require.Equal(t, TypeDelta, f.Type)
		texts = append(texts, f.Text)
	}
	assert.Equal(t, []string{"Hel", "lo", "!"}, texts)

	// The connection serves further chats.
	sendChat(t, conn, "r2")
	assert.Equal(t, "Hel", readFrame(t, conn).Text)

	reqs := client.Requests()
	require.NotEmpty(t, reqs)
	assert.Contains(t, reqs[0].Messages[0].Content, "assisting alice.")
}

func TestWebSocketUpstreamError(t *testing.T) {
	client := &llm.ScriptedClient{Deltas: []string{"Hel"}, StreamErr: errors.New("connection reset")}
	conn := dial(t, newTestServer(t, client), asUser("alice"))

	sendChat(t, conn, "r1")
	assert.Equal(t, frame{Type: TypeDelta, RequestID: "r1", Text: "Hel"}, readFrame(t, conn))
	assert.Equal(t, frame{Type: TypeError, RequestID: "r1", Code: ErrorCodeUpstream, Message: "connection reset"}, readFrame(t, conn))
}

func TestWebSocketRequiresAuthentication(t *testing.T) {
	url := newTestServer(t, &llm.ScriptedClient{})

	_, resp, err := websocket.DefaultDialer.Dial(url, nil)
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestWebSocketRejectsForeignOrigin(t *testing.T) {
	url := newTestServer(t, &llm.ScriptedClient{})

	h := asUser("alice")
	h.Set("Origin", "http://evil.example")
	_, resp, err := websocket.DefaultDialer.Dial(url, h)
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
}

func TestWebSocketInvalidMessages(t *testing.T) {
	client := &llm.ScriptedClient{Deltas: []string{"ok"}}
	conn := dial(t, newTestServer(t, client), asUser("alice"))

	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte("not json")))
	f := readFrame(t, conn)
	assert.Equal(t, TypeError, f.Type)
	assert.Equal(t, ErrorCodeInvalidMessage, f.Code)

	require.NoError(t, conn.WriteJSON(map[string]string{"type": "shout", "request_id": "x"}))
	f = readFrame(t, conn)
	assert.Equal(t, "x", f.RequestID)
	assert.Contains(t, f.Message, "unknown message type")

	require.NoError(t, conn.WriteJSON(map[string]any{"type": TypeChat, "request_id": "y"}))
	f = readFrame(t, conn)
	assert.Equal(t, "y", f.RequestID)
	assert.Contains(t, f.Message, "messages: field required")

	assert.Empty(t, client.Requests())

	sendChat(t, conn, "z")
	assert.Equal(t, "ok", readFrame(t, conn).Text)
	assert.Equal(t, TypeDone, readFrame(t, conn).Type)
}

func TestWebSocketCancel(t *testing.T) {
	client := &llm.ScriptedClient{Deltas: []string{"Hel"}, Hold: true}
	conn := dial(t, newTestServer(t, client), asUser("alice"))

	sendChat(t, conn, "r1")
	assert.Equal(t, "Hel", readFrame(t, conn).Text)

	require.NoError(t, conn.WriteJSON(BaseMessage{Type: TypeCancel}))
	f := readFrame(t, conn)
	assert.Equal(t, TypeError, f.Type)
	assert.Equal(t, ErrorCodeCancelled, f.Code)
	assert.True(t, client.AllClosed())
}

func TestWebSocketDisconnectReleasesUpstream(t *testing.T) {
	client := &llm.ScriptedClient{Deltas: []string{"Hel"}, Hold: true}
	conn := dial(t, newTestServer(t, client), asUser("alice"))

	sendChat(t, conn, "r1")
	assert.Equal(t, "Hel", readFrame(t, conn).Text)
	require.NoError(t, conn.Close())

	assert.Eventually(t, client.AllClosed, 2*time.Second, 10*time.Millisecond)
}
