// Package service implements the chat relay between authenticated
// callers and the upstream completion service.
package service

import (
	"log/slog"
	"time"

	"github.com/dstaulcu/skill-enabled-dept-website/internal/adapter/llm"
	"github.com/dstaulcu/skill-enabled-dept-website/internal/config"
	"github.com/dstaulcu/skill-enabled-dept-website/internal/metrics"
	"github.com/dstaulcu/skill-enabled-dept-website/internal/repository"
)

type Service struct {
	llmClient llm.LLMClient
	store     repository.Store
	metrics   *metrics.Collector
	config    *config.Config
	logger    *slog.Logger
	now       func() time.Time
}

// New creates the relay. store and collector may be nil.
func New(llmClient llm.LLMClient, store repository.Store, collector *metrics.Collector, cfg *config.Config, logger *slog.Logger) *Service {
	return &Service{
		llmClient: llmClient,
		store:     store,
		metrics:   collector,
		config:    cfg,
		logger:    logger,
		now:       time.Now,
	}
}
