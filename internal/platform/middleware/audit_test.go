package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/zelalemgb/linkclinic/internal/platform/auth"
)

func auditRequest(t *testing.T, method, path string, recorder AuditRecorder) AuditEntry {
	t.Helper()
	e := echo.New()
	req := httptest.NewRequest(method, path, nil)
	ctx := context.WithValue(req.Context(), auth.UserIDKey, "user-9")
	ctx = context.WithValue(ctx, auth.UserRolesKey, []string{"cashier"})
	req = req.WithContext(ctx)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.Set("request_id", "req-123")

	var captured AuditEntry
	capture := AuditRecorderFunc(func(entry AuditEntry) error {
		captured = entry
		if recorder != nil {
			return recorder.RecordAccess(entry)
		}
		return nil
	})

	handler := Audit(zerolog.Nop(), capture)(func(c echo.Context) error {
		return c.NoContent(http.StatusOK)
	})
	if err := handler(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	return captured
}

func TestAudit_RecordsAccess(t *testing.T) {
	entry := auditRequest(t, http.MethodPost, "/api/v1/charges/abc/settle", nil)

	if entry.UserID != "user-9" {
		t.Errorf("user id = %q", entry.UserID)
	}
	if len(entry.UserRoles) != 1 || entry.UserRoles[0] != "cashier" {
		t.Errorf("roles = %v", entry.UserRoles)
	}
	if entry.Resource != "charges" {
		t.Errorf("resource = %q", entry.Resource)
	}
	if entry.Action != "create" {
		t.Errorf("action = %q", entry.Action)
	}
	if entry.RequestID != "req-123" {
		t.Errorf("request id = %q", entry.RequestID)
	}
	if entry.StatusCode != http.StatusOK {
		t.Errorf("status = %d", entry.StatusCode)
	}
}

func TestAudit_SkipsNonAPIPaths(t *testing.T) {
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	called := false
	recorder := AuditRecorderFunc(func(entry AuditEntry) error {
		called = true
		return nil
	})

	handler := Audit(zerolog.Nop(), recorder)(func(c echo.Context) error {
		return c.NoContent(http.StatusOK)
	})
	if err := handler(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if called {
		t.Error("health checks should not be audited")
	}
}

func TestAudit_RecorderErrorDoesNotBreakRequest(t *testing.T) {
	failing := AuditRecorderFunc(func(entry AuditEntry) error {
		return errors.New("audit store down")
	})
	entry := auditRequest(t, http.MethodGet, "/api/v1/queues/cashier", failing)
	if entry.Resource != "queues" {
		t.Errorf("resource = %q", entry.Resource)
	}
}

func TestHttpMethodToAction(t *testing.T) {
	tests := []struct {
		method string
		want   string
	}{
		{http.MethodGet, "read"},
		{http.MethodHead, "read"},
		{http.MethodPost, "create"},
		{http.MethodPut, "update"},
		{http.MethodPatch, "update"},
		{http.MethodDelete, "delete"},
		{"TRACE", "read"},
	}
	for _, tt := range tests {
		if got := httpMethodToAction(tt.method); got != tt.want {
			t.Errorf("httpMethodToAction(%s) = %q, want %q", tt.method, got, tt.want)
		}
	}
}

func TestExtractResource(t *testing.T) {
	tests := []struct {
		path string
		want string
	}{
		{"/api/v1/encounters/123/advance", "encounters"},
		{"/api/v1/charges", "charges"},
		{"/api/v1/routing/awaiting", "routing"},
		{"/api/v1/", "unknown"},
	}
	for _, tt := range tests {
		if got := extractResource(tt.path); got != tt.want {
			t.Errorf("extractResource(%q) = %q, want %q", tt.path, got, tt.want)
		}
	}
}
