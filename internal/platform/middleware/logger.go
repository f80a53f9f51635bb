package middleware

import (
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/zelalemgb/linkclinic/internal/platform/auth"
	"github.com/zelalemgb/linkclinic/internal/platform/db"
)

// Logger emits one structured line per request, tagged with the tenant and
// acting staff member when known. Health probes log at debug so load-balancer
// polling doesn't drown the request log.
func Logger(logger zerolog.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			req := c.Request()
			rid, _ := c.Get("request_id").(string)

			err := next(c)

			var evt *zerolog.Event
			switch {
			case err != nil:
				evt = logger.Error().Err(err)
			case strings.HasPrefix(req.URL.Path, "/health"):
				evt = logger.Debug()
			default:
				evt = logger.Info()
			}

			evt = evt.
				Str("request_id", rid).
				Str("method", req.Method).
				Str("path", req.URL.Path).
				Int("status", c.Response().Status).
				Int64("bytes_out", c.Response().Size).
				Dur("latency", time.Since(start)).
				Str("remote_ip", c.RealIP())

			ctx := req.Context()
			if uid := auth.UserIDFromContext(ctx); uid != "" {
				evt = evt.Str("user_id", uid)
			}
			if tid := db.TenantFromContext(ctx); tid != "" {
				evt = evt.Str("tenant_id", tid)
			}
			evt.Msg("request")

			return err
		}
	}
}
