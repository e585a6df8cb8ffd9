// Package system serves the unauthenticated service endpoints.
package system

import (
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/dstaulcu/skill-enabled-dept-website/internal/auth"
	"github.com/dstaulcu/skill-enabled-dept-website/internal/config"
	"github.com/dstaulcu/skill-enabled-dept-website/internal/domain"
	"github.com/dstaulcu/skill-enabled-dept-website/internal/repository"
)

const (
	ServiceName = "Department AI Backend"
	Version     = "0.1.0"
)

// Handler handles service introspection requests.
type Handler struct {
	config *config.Config
	store  repository.Store
}

// NewHandler creates a new system handler. store may be nil.
func NewHandler(cfg *config.Config, store repository.Store) *Handler {
	return &Handler{config: cfg, store: store}
}

// RegisterRoutes registers the public routes.
func (h *Handler) RegisterRoutes(e *echo.Echo) {
	e.GET("/", h.Root)
	e.GET("/health", h.Health)
	e.GET("/api/config", h.Config)
}

// Root describes the service.
func (h *Handler) Root(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]any{
		"service": ServiceName,
		"status":  "running",
		"version": Version,
		"endpoints": map[string]string{
			"health":      "/health",
			"chat":        "/api/chat",
			"chat_stream": "/api/chat/stream",
			"chat_ws":     "/api/chat/ws",
			"audit":       "/api/audit/events",
		},
	})
}

// HealthResponse is the body of GET /health.
type HealthResponse struct {
	Status            string            `json:"status"`
	AuthMode          domain.Mode       `json:"auth_mode"`
	AuthenticatedUser string            `json:"authenticated_user"`
	SigningSecret     string            `json:"signing_secret"`
	Services          map[string]string `json:"services"`
}

// Health reports liveness. The auth fields only reflect whether a mock
// identity header was sent; nothing is verified here.
func (h *Handler) Health(c echo.Context) error {
	resp := HealthResponse{
		Status:            "healthy",
		AuthMode:          domain.ModeProduction,
		AuthenticatedUser: "anonymous",
		SigningSecret:     "configured",
		Services: map[string]string{
			"database": h.databaseStatus(c.Request().Context()),
			"openai":   "configured",
		},
	}
	if user := c.Request().Header.Get(auth.HeaderMockUser); user != "" {
		resp.AuthMode = domain.ModeDevelopment
		resp.AuthenticatedUser = user
	}
	if h.config.InsecureSecret() {
		resp.SigningSecret = "insecure_default"
	}
	if h.config.MockUpstream() {
		resp.Services["openai"] = "mock"
	}
	return c.JSON(http.StatusOK, resp)
}

func (h *Handler) databaseStatus(ctx context.Context) string {
	if h.store == nil {
		return "not_connected"
	}
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	if err := h.store.Ping(ctx); err != nil {
		return "unavailable"
	}
	return "connected"
}

// Config returns the non-secret part of the configuration.
func (h *Handler) Config(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{
		"openai_base_url": h.config.OpenAIBaseURL,
		"openai_model":    h.config.OpenAIModel,
		"environment":     h.config.Environment,
	})
}
