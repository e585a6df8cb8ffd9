package llm

import (
	"log/slog"
	"time"
)

// NewLLMClient returns a MockClient when mock is set, otherwise a real
// Client for baseURL.
func NewLLMClient(logger *slog.Logger, mock bool, baseURL, apiKey string, timeout time.Duration) LLMClient {
	if mock {
		logger.Warn("GATEWAY_MODE=MOCK detected, using mock LLM client")
		return NewMockClient()
	}
	logger.Info("using upstream completion service", "base_url", baseURL, "timeout", timeout)
	return NewClient(baseURL, apiKey, timeout)
}
