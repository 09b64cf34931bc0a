package httpapi

import (
	"strconv"
	"strings"
	"time"

	"github.com/dmitrijs2005/gophvault/internal/common"
	"github.com/dmitrijs2005/gophvault/internal/logging"
	"github.com/dmitrijs2005/gophvault/internal/server/auth"
	"github.com/dmitrijs2005/gophvault/internal/telemetry"
	"github.com/labstack/echo/v4"
)

const (
	ctxKeyClaims      = "claims"
	ctxKeyAccessToken = "access_token"
)

func bearerToken(c echo.Context) (string, bool) {
	h := c.Request().Header.Get(echo.HeaderAuthorization)
	scheme, token, ok := strings.Cut(h, " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}

// RequireBearer only extracts the bearer token. Verification is left to the
// handler, which lets logout accept tokens that already expired.
func RequireBearer() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			token, ok := bearerToken(c)
			if !ok {
				return common.ErrorUnauthorized
			}
			c.Set(ctxKeyAccessToken, token)
			return next(c)
		}
	}
}

// RequireAuth verifies the bearer token, rejects revoked ones and stores the
// claims on the context.
func RequireAuth(gw AuthGateway) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			token, ok := bearerToken(c)
			if !ok {
				return common.ErrorUnauthorized
			}
			claims, err := gw.Authenticate(c.Request().Context(), token)
			if err != nil {
				return err
			}
			c.Set(ctxKeyAccessToken, token)
			c.Set(ctxKeyClaims, claims)
			return next(c)
		}
	}
}

func claimsFrom(c echo.Context) *auth.Claims {
	claims, _ := c.Get(ctxKeyClaims).(*auth.Claims)
	return claims
}

// RequestLogger logs one line per request and renders handler errors itself,
// so the status it logs is the one the client sees.
func RequestLogger(logger logging.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			err := next(c)
			if err != nil {
				c.Error(err)
			}

			req := c.Request()
			args := []any{
				"method", req.Method,
				"path", c.Path(),
				"status", c.Response().Status,
				"duration_ms", time.Since(start).Milliseconds(),
				"request_id", c.Response().Header().Get(echo.HeaderXRequestID),
			}

			status := c.Response().Status
			switch {
			case status >= 500:
				logger.Error(req.Context(), "request completed", append(args, "error", errString(err))...)
			case status >= 400:
				logger.Warn(req.Context(), "request completed", args...)
			default:
				logger.Info(req.Context(), "request completed", args...)
			}
			return nil
		}
	}
}

// Metrics records request counts and latencies labelled by route template.
func Metrics() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			err := next(c)
			if err != nil {
				c.Error(err)
			}

			path := c.Path()
			if path == "" {
				path = "unmatched"
			}
			method := c.Request().Method
			telemetry.HTTPRequestsTotal.WithLabelValues(method, path, strconv.Itoa(c.Response().Status)).Inc()
			telemetry.HTTPRequestDuration.WithLabelValues(method, path).Observe(time.Since(start).Seconds())
			return nil
		}
	}
}

func errString(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}
