package llm

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/sashabaranov/go-openai"
)

// Client talks to an OpenAI-compatible endpoint such as OpenAI, Ollama or LiteLLM.
type Client struct {
	client  *openai.Client
	timeout time.Duration
}

// NewClient creates a client for baseURL (including the /v1 suffix).
// timeout bounds a whole non-streaming call and the wait for response
// headers of a streaming call; stream bodies are bounded by the relay.
func NewClient(baseURL, apiKey string, timeout time.Duration) *Client {
	cfg := openai.DefaultConfig(apiKey)
	cfg.BaseURL = strings.TrimSuffix(baseURL, "/")

	transport := http.DefaultTransport.(*http.Transport).Clone()
	transport.ResponseHeaderTimeout = timeout
	cfg.HTTPClient = &http.Client{Transport: transport}

	return &Client{
		client:  openai.NewClientWithConfig(cfg),
		timeout: timeout,
	}
}

// CreateChatCompletion sends a chat completion request (non-streaming).
func (c *Client) CreateChatCompletion(ctx context.Context, req *ChatCompletionRequest) (*ChatCompletionResponse, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	resp, err := c.client.CreateChatCompletion(ctx, toOpenAIRequest(req))
	if err != nil {
		return nil, err
	}
	if len(resp.Choices) == 0 {
		return nil, errors.New("upstream returned no choices")
	}

	out := &ChatCompletionResponse{
		Model:        resp.Model,
		Content:      resp.Choices[0].Message.Content,
		FinishReason: string(resp.Choices[0].FinishReason),
		Usage: &Usage{
			PromptTokens:     resp.Usage.PromptTokens,
			CompletionTokens: resp.Usage.CompletionTokens,
			TotalTokens:      resp.Usage.TotalTokens,
		},
	}
	return out, nil
}

// CreateChatCompletionStream opens a streaming chat completion.
func (c *Client) CreateChatCompletionStream(ctx context.Context, req *ChatCompletionRequest) (DeltaStream, error) {
	stream, err := c.client.CreateChatCompletionStream(ctx, toOpenAIRequest(req))
	if err != nil {
		return nil, err
	}
	return &openAIStream{stream: stream}, nil
}

type openAIStream struct {
	stream *openai.ChatCompletionStream
}

func (s *openAIStream) Recv() (Delta, error) {
	chunk, err := s.stream.Recv()
	if err != nil {
		return Delta{}, err
	}
	d := Delta{Model: chunk.Model}
	if len(chunk.Choices) > 0 {
		d.Content = chunk.Choices[0].Delta.Content
		d.FinishReason = string(chunk.Choices[0].FinishReason)
	}
	return d, nil
}

func (s *openAIStream) Close() error {
	return s.stream.Close()
}

func toOpenAIRequest(req *ChatCompletionRequest) openai.ChatCompletionRequest {
	messages := make([]openai.ChatCompletionMessage, 0, len(req.Messages))
	for _, m := range req.Messages {
		messages = append(messages, openai.ChatCompletionMessage{
			Role:    string(m.Role),
			Content: m.Content,
		})
	}
	return openai.ChatCompletionRequest{
		Model:       req.Model,
		Messages:    messages,
		Temperature: req.Temperature,
		MaxTokens:   req.MaxTokens,
	}
}
