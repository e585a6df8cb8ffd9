package chat

import (
	"io"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/dstaulcu/skill-enabled-dept-website/internal/auth"
	"github.com/dstaulcu/skill-enabled-dept-website/internal/domain"
)

// SSE sentinels.
const (
	DoneSentinel  = "[DONE]"
	ErrorSentinel = "[ERROR]"
)

// Stream relays a conversation as server-sent events.
// POST /api/chat/stream
func (h *Handler) Stream(c echo.Context) error {
	cred, ok := auth.CredentialFrom(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, domain.ErrorResponse{Detail: domain.ErrAuthMissing.Detail})
	}
	req, err := DecodeChatRequest(c.Request().Body)
	if err != nil {
		return c.JSON(http.StatusUnprocessableEntity, domain.ErrorResponse{Detail: err.Error()})
	}

	events := h.service.Stream(c.Request().Context(), req, cred)
	defer events.Close()

	res := c.Response()
	res.Header().Set(echo.HeaderContentType, "text/event-stream")
	res.Header().Set(echo.HeaderCacheControl, "no-cache")
	res.Header().Set(echo.HeaderConnection, "keep-alive")
	res.Header().Set("X-Accel-Buffering", "no")
	res.WriteHeader(http.StatusOK)
	res.Flush()

	for {
		ev, ok := events.Next()
		if !ok {
			return nil
		}
		if _, err := io.WriteString(res, FormatEvent(ev)); err != nil {
			// Caller went away; the deferred Close releases the upstream.
			h.logger.Debug("stream write failed", "request_id", events.RequestID(), "error", err)
			return nil
		}
		res.Flush()
	}
}

// FormatEvent renders one event as an SSE frame. Text containing line
// breaks is split over several data lines, which SSE clients rejoin
// with "\n".
func FormatEvent(ev domain.Event) string {
	switch ev.Type {
	case domain.EventTypeDone:
		return frame(DoneSentinel)
	case domain.EventTypeError:
		return frame(ErrorSentinel + " " + ev.Message)
	default:
		return frame(ev.Text)
	}
}

func frame(payload string) string {
	payload = strings.ReplaceAll(payload, "\r\n", "\n")
	payload = strings.ReplaceAll(payload, "\r", "\n")
	var b strings.Builder
	for _, line := range strings.Split(payload, "\n") {
		b.WriteString("data: ")
		b.WriteString(line)
		b.WriteString("\n")
	}
	b.WriteString("\n")
	return b.String()
}
