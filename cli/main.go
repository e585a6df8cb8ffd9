// Package main provides an interactive terminal client for the gateway's
// WebSocket chat endpoint.
package main

import (
	"bufio"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"sync"
	"time"

	"github.com/fatih/color"
	"github.com/gorilla/websocket"

	"github.com/dstaulcu/skill-enabled-dept-website/internal/auth"
	"github.com/dstaulcu/skill-enabled-dept-website/internal/domain"
	"github.com/dstaulcu/skill-enabled-dept-website/internal/transport/http/ws"
)

// frame is any server message; unused fields stay empty.
type frame struct {
	ws.BaseMessage
	Text    string `json:"text"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Client is a WebSocket chat client that keeps the conversation history.
type Client struct {
	conn    *websocket.Conn
	model   string
	history []domain.Message

	writeMu sync.Mutex
}

// NewClient connects to addr, authenticating with a mock identity or a
// bearer token.
func NewClient(addr, user, token, model string) (*Client, error) {
	header := http.Header{}
	switch {
	case user != "":
		header.Set(auth.HeaderMockUser, user)
	case token != "":
		header.Set(auth.HeaderAuthorization, "Bearer "+token)
	}

	conn, resp, err := websocket.DefaultDialer.Dial(addr, header)
	if err != nil {
		if resp != nil {
			body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
			return nil, fmt.Errorf("dial: %w (%s: %s)", err, resp.Status, strings.TrimSpace(string(body)))
		}
		return nil, fmt.Errorf("dial: %w", err)
	}
	return &Client{conn: conn, model: model}, nil
}

// Close closes the client connection.
func (c *Client) Close() error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	c.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
	return c.conn.Close()
}

func (c *Client) writeJSON(v any) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	return c.conn.WriteJSON(v)
}

// Cancel asks the server to stop the reply in progress.
func (c *Client) Cancel() error {
	return c.writeJSON(ws.BaseMessage{Type: ws.TypeCancel})
}

// Reset forgets the conversation history.
func (c *Client) Reset() {
	c.history = nil
}

// Ask sends content with the history so far and calls onDelta for each
// fragment of the reply. A completed reply is added to the history; a
// failed one is not, and neither is the question.
func (c *Client) Ask(content string, onDelta func(string)) (string, error) {
	messages := append(append([]domain.Message{}, c.history...), domain.Message{Role: domain.RoleUser, Content: content})
	requestID := fmt.Sprintf("req_%d", time.Now().UnixNano())

	err := c.writeJSON(ws.ChatMessage{
		BaseMessage: ws.BaseMessage{Type: ws.TypeChat, Ts: time.Now().UnixMilli(), RequestID: requestID},
		Messages:    messages,
		Model:       c.model,
	})
	if err != nil {
		return "", fmt.Errorf("write chat: %w", err)
	}

	var reply strings.Builder
	for {
		var f frame
		if err := c.conn.ReadJSON(&f); err != nil {
			return reply.String(), fmt.Errorf("read: %w", err)
		}
		if f.RequestID != "" && f.RequestID != requestID {
			continue
		}

		switch f.Type {
		case ws.TypeDelta:
			reply.WriteString(f.Text)
			onDelta(f.Text)
		case ws.TypeDone:
			c.history = append(messages, domain.Message{Role: domain.RoleAssistant, Content: reply.String()})
			return reply.String(), nil
		case ws.TypeError:
			return reply.String(), fmt.Errorf("%s: %s", f.Code, f.Message)
		}
	}
}

func main() {
	addr := flag.String("addr", "ws://localhost:8000/api/chat/ws", "gateway WebSocket address")
	user := flag.String("user", os.Getenv("USER"), "development identity sent as X-Mock-User")
	token := flag.String("token", "", "bearer token (used when -user is empty)")
	model := flag.String("model", "", "model override")
	flag.Parse()

	log.SetFlags(log.Ltime)

	boldGreen := color.New(color.FgGreen, color.Bold).SprintFunc()
	boldCyan := color.New(color.FgCyan, color.Bold).SprintFunc()
	red := color.New(color.FgRed).SprintFunc()
	faint := color.New(color.Faint).SprintFunc()

	fmt.Println(faint("Connecting to " + *addr + "..."))

	client, err := NewClient(*addr, *user, *token, *model)
	if err != nil {
		log.Fatalf("Failed to connect: %v", err)
	}
	defer client.Close()

	fmt.Println(faint("Connected. Commands: /reset to clear history, /quit to exit. Ctrl+C stops a reply."))
	fmt.Println()

	// Ctrl+C cancels the reply in progress; a second one while idle exits.
	var streaming sync.Mutex
	busy := false
	interrupt := make(chan os.Signal, 1)
	signal.Notify(interrupt, os.Interrupt)
	go func() {
		for range interrupt {
			streaming.Lock()
			active := busy
			streaming.Unlock()
			if !active {
				fmt.Println("\nBye!")
				client.Close()
				os.Exit(0)
			}
			if err := client.Cancel(); err != nil {
				log.Printf("Cancel failed: %v", err)
			}
		}
	}()

	scanner := bufio.NewScanner(os.Stdin)
	for {
		fmt.Print(boldGreen("You: "))
		if !scanner.Scan() {
			return
		}

		input := strings.TrimSpace(scanner.Text())
		switch input {
		case "":
			continue
		case "/quit":
			fmt.Println("Bye!")
			return
		case "/reset":
			client.Reset()
			fmt.Println(faint("History cleared."))
			continue
		}

		fmt.Print(boldCyan("Assistant: "))
		streaming.Lock()
		busy = true
		streaming.Unlock()

		_, err := client.Ask(input, func(text string) { fmt.Print(text) })

		streaming.Lock()
		busy = false
		streaming.Unlock()

		fmt.Println()
		if err != nil {
			fmt.Println(red("Error: " + err.Error()))
			var closeErr *websocket.CloseError
			if errors.As(err, &closeErr) || strings.HasPrefix(err.Error(), "read:") {
				return
			}
		}
		fmt.Println()
	}
}
