package middleware

import (
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/zelalemgb/linkclinic/internal/platform/auth"
)

// AuditEntry captures who touched what, when, from where, and how it went.
type AuditEntry struct {
	UserID     string
	UserRoles  []string
	Resource   string
	Action     string // read, create, update, delete
	IPAddress  string
	UserAgent  string
	Path       string
	Method     string
	Timestamp  time.Time
	RequestID  string
	StatusCode int
}

// AuditRecorder persists audit entries. Decoupled from any concrete sink so
// tests can provide a mock implementation.
type AuditRecorder interface {
	RecordAccess(entry AuditEntry) error
}

// AuditRecorderFunc is a function adapter for AuditRecorder.
type AuditRecorderFunc func(entry AuditEntry) error

func (f AuditRecorderFunc) RecordAccess(entry AuditEntry) error {
	return f(entry)
}

// Audit returns middleware that logs every /api/v1 access with the
// authenticated actor, resource, and response status. If no AuditRecorder is
// provided it falls back to structured zerolog logging only.
func Audit(logger zerolog.Logger, recorders ...AuditRecorder) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			req := c.Request()
			path := req.URL.Path

			if !strings.HasPrefix(path, "/api/v1/") {
				return next(c)
			}

			// Run the handler first so the response status is known.
			err := next(c)

			entry := AuditEntry{
				Timestamp:  time.Now().UTC(),
				Path:       path,
				Method:     req.Method,
				IPAddress:  c.RealIP(),
				UserAgent:  req.UserAgent(),
				StatusCode: c.Response().Status,
			}

			ctx := req.Context()
			entry.UserID = auth.UserIDFromContext(ctx)
			entry.UserRoles = auth.RolesFromContext(ctx)

			if rid, ok := c.Get("request_id").(string); ok {
				entry.RequestID = rid
			}

			entry.Action = httpMethodToAction(req.Method)
			entry.Resource = extractResource(path)

			if len(recorders) > 0 && recorders[0] != nil {
				if recErr := recorders[0].RecordAccess(entry); recErr != nil {
					logger.Error().Err(recErr).
						Str("request_id", entry.RequestID).
						Msg("failed to record audit entry")
				}
			}

			logger.Info().
				Str("type", "access_audit").
				Str("request_id", entry.RequestID).
				Str("user_id", entry.UserID).
				Strs("user_roles", entry.UserRoles).
				Str("resource", entry.Resource).
				Str("action", entry.Action).
				Str("method", entry.Method).
				Str("path", entry.Path).
				Str("remote_ip", entry.IPAddress).
				Int("status", entry.StatusCode).
				Msg("access")

			return err
		}
	}
}

// httpMethodToAction maps HTTP methods to audit action codes.
func httpMethodToAction(method string) string {
	switch method {
	case http.MethodGet, http.MethodHead:
		return "read"
	case http.MethodPost:
		return "create"
	case http.MethodPut, http.MethodPatch:
		return "update"
	case http.MethodDelete:
		return "delete"
	default:
		return "read"
	}
}

// extractResource parses the first path segment under /api/v1/.
//
//	/api/v1/encounters/123/advance -> encounters
func extractResource(path string) string {
	segments := strings.Split(strings.TrimPrefix(path, "/api/v1/"), "/")
	if len(segments) > 0 && segments[0] != "" {
		return segments[0]
	}
	return "unknown"
}
