// Package http assembles the gateway's HTTP servers.
package http

import (
	"log/slog"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/dstaulcu/skill-enabled-dept-website/internal/auth"
	"github.com/dstaulcu/skill-enabled-dept-website/internal/config"
	"github.com/dstaulcu/skill-enabled-dept-website/internal/logging"
	"github.com/dstaulcu/skill-enabled-dept-website/internal/metrics"
	"github.com/dstaulcu/skill-enabled-dept-website/internal/repository"
	"github.com/dstaulcu/skill-enabled-dept-website/internal/service"
	"github.com/dstaulcu/skill-enabled-dept-website/internal/transport/http/chat"
	"github.com/dstaulcu/skill-enabled-dept-website/internal/transport/http/system"
	"github.com/dstaulcu/skill-enabled-dept-website/internal/transport/http/ws"
)

// Deps are the components the servers route to.
type Deps struct {
	Config   *config.Config
	Service  *service.Service
	Resolver *auth.Resolver
	Store    repository.Store
	Metrics  *metrics.Collector
	Hub      *ws.Hub
	Gatherer prometheus.Gatherer
	Logger   *slog.Logger
}

// NewPublicServer creates the caller-facing server: service info, the
// authenticated chat API, and CORS for the embedding sites.
func NewPublicServer(d Deps) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	// Middleware
	e.Use(middleware.RequestID())
	e.Use(logging.RequestLogger(d.Logger))
	e.Use(middleware.Recover())
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins:     d.Config.CORSOrigins,
		AllowMethods:     []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowHeaders:     []string{echo.HeaderContentType, echo.HeaderAuthorization, auth.HeaderMockUser},
		AllowCredentials: true,
	}))

	// Handlers
	systemHandler := system.NewHandler(d.Config, d.Store)
	chatHandler := chat.NewHandler(d.Service, d.Logger)
	wsServer := ws.NewServer(d.Service, d.Hub, d.Config.CORSOrigins, d.Logger)

	// Register Routes
	systemHandler.RegisterRoutes(e)
	api := e.Group("/api", auth.Middleware(d.Resolver, d.Metrics, d.Logger))
	chatHandler.RegisterRoutes(api)
	wsServer.RegisterRoutes(api)

	return e
}

// NewOpsServer creates the operator-facing server with health and
// Prometheus metrics. It is not meant to be exposed to callers.
func NewOpsServer(d Deps) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	e.Use(middleware.Recover())

	systemHandler := system.NewHandler(d.Config, d.Store)
	e.GET("/health", systemHandler.Health)
	e.GET("/metrics", echo.WrapHandler(promhttp.HandlerFor(d.Gatherer, promhttp.HandlerOpts{})))

	return e
}
