package middleware

import (
	"fmt"
	"net/http"
	"runtime/debug"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"
)

// Recovery converts handler panics into plain 500 responses. The panic value
// and stack land in the log with the request that triggered them; the client
// never sees either.
func Recovery(logger zerolog.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) (err error) {
			defer func() {
				if r := recover(); r != nil {
					rid, _ := c.Get("request_id").(string)
					logger.Error().
						Str("request_id", rid).
						Str("method", c.Request().Method).
						Str("path", c.Request().URL.Path).
						Str("panic", fmt.Sprintf("%v", r)).
						Str("stack", string(debug.Stack())).
						Msg("panic recovered")

					err = echo.NewHTTPError(http.StatusInternalServerError, "internal server error")
				}
			}()
			return next(c)
		}
	}
}
