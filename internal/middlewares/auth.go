package middlewares

import (
	"crypto/subtle"
	"fmt"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/onurcolak/wa-pairing-service/pkg/logger"
	"github.com/onurcolak/wa-pairing-service/pkg/response"
)

const (
	APIKeyHeader = "x-api-key"
	bearerPrefix = "Bearer "
)

// secureCompare compares two strings in a way that is safer against timing attacks.
func secureCompare(a, b string) bool {
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}

// requestKey reads the key from x-api-key, falling back to a bearer token.
func requestKey(c echo.Context) string {
	if key := c.Request().Header.Get(APIKeyHeader); key != "" {
		return key
	}
	auth := c.Request().Header.Get(echo.HeaderAuthorization)
	if strings.HasPrefix(auth, bearerPrefix) {
		return strings.TrimSpace(strings.TrimPrefix(auth, bearerPrefix))
	}
	return ""
}

// APIKeyAuth guards a route group with a static key. The pairing and admin
// groups are configured with different keys.
func APIKeyAuth(group, apiKey string) echo.MiddlewareFunc {
	// If the API key is not configured, treat this as a server-side misconfiguration.
	if apiKey == "" {
		logger.Warnf("No API key configured for %s endpoints; all requests will fail", group)
		return func(next echo.HandlerFunc) echo.HandlerFunc {
			return func(c echo.Context) error {
				return response.InternalServerError(
					c,
					fmt.Errorf("API key is not configured for %s endpoints", group),
				)
			}
		}
	}

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			token := requestKey(c)
			if token == "" || !secureCompare(token, apiKey) {
				logger.Warnf("Rejected %s request from %s: invalid API key", group, c.RealIP())
				return response.Unauthorized(c)
			}

			return next(c)
		}
	}
}
