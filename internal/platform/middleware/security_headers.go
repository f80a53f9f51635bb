package middleware

import (
	"github.com/labstack/echo/v4"
)

// securityHeaders are fixed for every response. The API serves JSON with
// patient data to staff clients only: nothing may be framed, sniffed,
// cached, or loaded as a sub-resource.
var securityHeaders = map[string]string{
	"X-Content-Type-Options":    "nosniff",
	"X-Frame-Options":           "DENY",
	"X-XSS-Protection":          "0",
	"Content-Security-Policy":   "default-src 'none'; frame-ancestors 'none'",
	"Strict-Transport-Security": "max-age=31536000; includeSubDomains",
	"Referrer-Policy":           "no-referrer",
	"Permissions-Policy":        "camera=(), microphone=(), geolocation=()",
	"Cache-Control":             "no-store",
}

// SecurityHeaders sets the response headers above before the handler runs, so
// they are present on error responses too.
func SecurityHeaders() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			h := c.Response().Header()
			for name, value := range securityHeaders {
				h.Set(name, value)
			}
			return next(c)
		}
	}
}
