// Package chat serves the authenticated chat relay endpoints.
package chat

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/dstaulcu/skill-enabled-dept-website/internal/auth"
	"github.com/dstaulcu/skill-enabled-dept-website/internal/domain"
	"github.com/dstaulcu/skill-enabled-dept-website/internal/service"
)

// maxBodyBytes bounds a chat request body.
const maxBodyBytes = 1 << 20

// Handler handles chat HTTP requests.
type Handler struct {
	service *service.Service
	logger  *slog.Logger
}

// NewHandler creates a new chat handler.
func NewHandler(service *service.Service, logger *slog.Logger) *Handler {
	return &Handler{
		service: service,
		logger:  logger,
	}
}

// RegisterRoutes registers chat routes on a group that already runs
// auth.Middleware.
func (h *Handler) RegisterRoutes(g *echo.Group) {
	g.POST("/chat", h.Chat)
	g.POST("/chat/", h.Chat)
	g.POST("/chat/stream", h.Stream)
	g.GET("/audit/events", h.AuditEvents)
}

// Chat relays a conversation and returns the whole reply.
// POST /api/chat/
func (h *Handler) Chat(c echo.Context) error {
	cred, ok := auth.CredentialFrom(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, domain.ErrorResponse{Detail: domain.ErrAuthMissing.Detail})
	}
	req, err := DecodeChatRequest(c.Request().Body)
	if err != nil {
		return c.JSON(http.StatusUnprocessableEntity, domain.ErrorResponse{Detail: err.Error()})
	}

	result, err := h.service.Complete(c.Request().Context(), req, cred)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, domain.ErrorResponse{Detail: "Chat error: " + err.Error()})
	}
	return c.JSON(http.StatusOK, result)
}

// AuditEvents lists the caller's own relay audit events.
// GET /api/audit/events?limit=N
func (h *Handler) AuditEvents(c echo.Context) error {
	cred, ok := auth.CredentialFrom(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, domain.ErrorResponse{Detail: domain.ErrAuthMissing.Detail})
	}

	limit := 0
	if raw := c.QueryParam("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			return c.JSON(http.StatusBadRequest, domain.ErrorResponse{Detail: "limit must be a non-negative integer"})
		}
		limit = n
	}

	events, err := h.service.ListAuditEvents(c.Request().Context(), cred, limit)
	if err != nil {
		h.logger.Error("failed to list audit events", "identity", cred.Identity, "error", err)
		return c.JSON(http.StatusInternalServerError, domain.ErrorResponse{Detail: "failed to list audit events"})
	}
	return c.JSON(http.StatusOK, map[string]any{"events": events})
}

// DecodeChatRequest parses and validates a chat body. An empty message
// list is accepted; a missing one is not.
func DecodeChatRequest(r io.Reader) (*domain.ChatRequest, error) {
	var req domain.ChatRequest
	if err := json.NewDecoder(io.LimitReader(r, maxBodyBytes)).Decode(&req); err != nil {
		return nil, fmt.Errorf("invalid request body: %w", err)
	}
	if err := ValidateChatRequest(&req); err != nil {
		return nil, err
	}
	return &req, nil
}

// ValidateChatRequest checks the fields DecodeChatRequest cannot.
func ValidateChatRequest(req *domain.ChatRequest) error {
	if req.Messages == nil {
		return errors.New("messages: field required")
	}
	for i, m := range req.Messages {
		if !m.Role.Valid() {
			return fmt.Errorf("messages[%d].role: must be one of system, user, assistant", i)
		}
	}
	return nil
}
