package auth

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/dstaulcu/skill-enabled-dept-website/internal/domain"
	"github.com/dstaulcu/skill-enabled-dept-website/internal/metrics"
)

const credentialKey = "session_credential"

// Middleware rejects unauthenticated requests with 401 before any handler
// runs, and stores the resolved credential on the echo context.
func Middleware(resolver *Resolver, collector *metrics.Collector, logger *slog.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			req := c.Request()
			cred, err := resolver.Resolve(HeadersFrom(req.Header))
			if err != nil {
				var authErr *domain.AuthError
				if !errors.As(err, &authErr) {
					logger.Error("failed to resolve identity", "error", err, "path", req.URL.Path)
					collector.RecordAuth("", "error")
					return c.JSON(http.StatusInternalServerError, domain.ErrorResponse{Detail: "Authentication error"})
				}
				logger.Warn("authentication failed",
					"kind", authErr.Kind,
					"error", err,
					"remote_addr", req.RemoteAddr,
					"path", req.URL.Path,
				)
				collector.RecordAuth("", string(authErr.Kind))
				return c.JSON(http.StatusUnauthorized, domain.ErrorResponse{Detail: authErr.Detail})
			}

			logger.Debug("caller authenticated", "identity", cred.Identity, "mode", cred.Mode, "path", req.URL.Path)
			collector.RecordAuth(string(cred.Mode), "ok")
			c.Set(credentialKey, cred)
			return next(c)
		}
	}
}

// CredentialFrom returns the credential stored by Middleware.
func CredentialFrom(c echo.Context) (*domain.SessionCredential, bool) {
	cred, ok := c.Get(credentialKey).(*domain.SessionCredential)
	return cred, ok
}
