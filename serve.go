package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/dstaulcu/skill-enabled-dept-website/internal/adapter/llm"
	"github.com/dstaulcu/skill-enabled-dept-website/internal/auth"
	"github.com/dstaulcu/skill-enabled-dept-website/internal/config"
	"github.com/dstaulcu/skill-enabled-dept-website/internal/domain"
	"github.com/dstaulcu/skill-enabled-dept-website/internal/logging"
	"github.com/dstaulcu/skill-enabled-dept-website/internal/metrics"
	"github.com/dstaulcu/skill-enabled-dept-website/internal/repository"
	"github.com/dstaulcu/skill-enabled-dept-website/internal/service"
	transport "github.com/dstaulcu/skill-enabled-dept-website/internal/transport/http"
	"github.com/dstaulcu/skill-enabled-dept-website/internal/transport/http/system"
	"github.com/dstaulcu/skill-enabled-dept-website/internal/transport/http/ws"
)

const shutdownTimeout = 10 * time.Second

var serveFlags struct {
	port     int
	logLevel string
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the gateway",
	Long: `Start the public API server and the ops server (health and metrics).

Examples:
  # Start with defaults (port 8000, ops port 8001)
  gateway serve

  # Use the canned upstream for local development
  GATEWAY_MODE=MOCK gateway serve --log-level debug`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	for _, cmd := range []*cobra.Command{rootCmd, serveCmd} {
		cmd.Flags().IntVarP(&serveFlags.port, "port", "p", 0, "override HTTP port")
		cmd.Flags().StringVar(&serveFlags.logLevel, "log-level", "", "override log level (debug, info, warn, error)")
	}
}

func loadConfig() (*config.Config, error) {
	cfg, err := config.LoadFile(cfgFile)
	if err != nil {
		return nil, err
	}
	if serveFlags.port > 0 {
		cfg.HTTPPort = serveFlags.port
	}
	if serveFlags.logLevel != "" {
		cfg.LogLevel = serveFlags.logLevel
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

func issueMode(cfg *config.Config) domain.Mode {
	if cfg.IssueDevelopmentTokens() {
		return domain.ModeDevelopment
	}
	return domain.ModeProduction
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	logger, err := logging.New(logging.Config{Level: cfg.LogLevel, Format: cfg.LogFormat})
	if err != nil {
		return err
	}
	slog.SetDefault(logger)

	logger.Info("starting gateway",
		"version", system.Version,
		"http_port", cfg.HTTPPort,
		"ops_port", cfg.OpsPort,
		"environment", cfg.Environment,
		"database", cfg.DatabaseURL,
		"openai_base_url", cfg.OpenAIBaseURL,
		"openai_model", cfg.OpenAIModel,
	)

	// Metrics
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	collector := metrics.NewCollector(registry)

	collector.SetInsecureSecret(cfg.InsecureSecret())
	if cfg.InsecureSecret() {
		logger.Warn("JWT_SECRET_KEY is the built-in placeholder; anyone can forge bearer tokens. Set a real secret before exposing this gateway",
			"environment", cfg.Environment)
	}

	// Initialize store
	db, err := repository.NewSQLiteStore(cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("failed to initialize store: %w", err)
	}
	defer db.Close()

	// Initialize components
	llmClient := llm.NewLLMClient(logger, cfg.MockUpstream(), cfg.OpenAIBaseURL, cfg.OpenAIAPIKey, cfg.UpstreamTimeout)
	resolver := auth.NewResolver(auth.NewSigner(cfg.JWTSecret), issueMode(cfg))
	svc := service.New(llmClient, db, collector, cfg, logger)
	hub := ws.NewHub(collector)

	deps := transport.Deps{
		Config:   cfg,
		Service:  svc,
		Resolver: resolver,
		Store:    db,
		Metrics:  collector,
		Hub:      hub,
		Gatherer: registry,
		Logger:   logger,
	}
	publicServer := transport.NewPublicServer(deps)
	opsServer := transport.NewOpsServer(deps)

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return start(logger, "public", publicServer, cfg.HTTPPort)
	})
	if cfg.OpsPort > 0 {
		g.Go(func() error {
			return start(logger, "ops", opsServer, cfg.OpsPort)
		})
	}
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down gateway")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		// Hijacked WebSocket connections outlive Shutdown, so close them first.
		if n := hub.CloseAll("server shutting down"); n > 0 {
			logger.Info("closing websocket connections", "count", n)
		}
		return errors.Join(
			hub.Wait(shutdownCtx),
			publicServer.Shutdown(shutdownCtx),
			opsServer.Shutdown(shutdownCtx),
		)
	})

	if err := g.Wait(); err != nil {
		return err
	}
	logger.Info("gateway stopped")
	return nil
}

func start(logger *slog.Logger, name string, e *echo.Echo, port int) error {
	addr := fmt.Sprintf(":%d", port)
	logger.Info("server listening", "server", name, "addr", addr)
	if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("%s server: %w", name, err)
	}
	return nil
}
