package middleware

import (
	"bytes"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/simp-lee/logger"

	"github.com/simp-lee/qrpromo/internal/session"
)

func setupLoggerRouter(log *slog.Logger, requestID gin.HandlerFunc) *gin.Engine {
	r := gin.New()
	r.Use(requestID)
	r.Use(Logger(log))

	r.GET("/winners/:id", func(c *gin.Context) {
		c.String(http.StatusOK, "ok")
	})
	r.GET("/not-found", func(c *gin.Context) {
		c.String(http.StatusNotFound, "not found")
	})
	r.GET("/error", func(c *gin.Context) {
		_ = c.Error(http.ErrHandlerTimeout)
		c.String(http.StatusBadGateway, "error")
	})
	r.POST("/admin/qr-codes", func(c *gin.Context) {
		c.Set(sessionContextKey, &session.Session{Token: "t", Email: "ops@example.com", ExpiresAt: time.Now().Add(time.Hour)})
		c.String(http.StatusCreated, "created")
	})
	return r
}

func TestLogger_LevelByStatus(t *testing.T) {
	tests := []struct {
		path      string
		wantLevel string
	}{
		{"/winners/7", "level=INFO"},
		{"/not-found", "level=WARN"},
		{"/error", "level=ERROR"},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			var logBuf bytes.Buffer
			r := setupLoggerRouter(newTestLogger(&logBuf), RequestID())
			serve(r, httptest.NewRequest(http.MethodGet, tt.path, nil))

			if out := logBuf.String(); !strings.Contains(out, tt.wantLevel) || !strings.Contains(out, "msg=request") {
				t.Errorf("expected %s request log, got:\n%s", tt.wantLevel, out)
			}
		})
	}
}

func TestLogger_ContainsExpectedFields(t *testing.T) {
	var logBuf bytes.Buffer
	r := setupLoggerRouter(newTestLogger(&logBuf), RequestID())

	req := httptest.NewRequest(http.MethodPost, "/admin/qr-codes", nil)
	req.Header.Set("HX-Request", "true")
	if w := serve(r, req); w.Code != http.StatusCreated {
		t.Fatalf("expected status 201, got %d", w.Code)
	}

	out := logBuf.String()
	for _, field := range []string{"method=POST", "path=/admin/qr-codes", "route=/admin/qr-codes", "status=201", "latency=", "client_ip=", "actor=ops@example.com", "htmx=true"} {
		if !strings.Contains(out, field) {
			t.Errorf("expected log to contain %q, got:\n%s", field, out)
		}
	}
}

func TestLogger_RouteTemplateAndErrors(t *testing.T) {
	var logBuf bytes.Buffer
	r := setupLoggerRouter(newTestLogger(&logBuf), RequestID())

	serve(r, httptest.NewRequest(http.MethodGet, "/winners/42", nil))
	serve(r, httptest.NewRequest(http.MethodGet, "/error", nil))

	out := logBuf.String()
	if !strings.Contains(out, "route=/winners/:id") {
		t.Errorf("expected route template in log, got:\n%s", out)
	}
	if strings.Contains(out, "actor=") {
		t.Errorf("anonymous requests should not log an actor:\n%s", out)
	}
	if !strings.Contains(out, "errors=") {
		t.Errorf("expected handler errors in log, got:\n%s", out)
	}
}

func TestLogger_IncludesRequestIDFromContext(t *testing.T) {
	var logBuf bytes.Buffer
	log, err := logger.New(
		logger.WithConsoleWriter(&logBuf),
		logger.WithConsoleFormat(logger.FormatText),
		logger.WithConsoleColor(false),
		logger.WithLevel(slog.LevelDebug),
		logger.WithMiddleware(logger.ContextMiddleware()),
	)
	if err != nil {
		t.Fatalf("logger.New error: %v", err)
	}
	defer log.Close()

	r := setupLoggerRouter(log.Logger, RequestIDWithConfig(RequestIDConfig{TrustUpstream: true}))

	req := httptest.NewRequest(http.MethodGet, "/winners/1", nil)
	req.Header.Set(requestIDHeader, "test-req-id-789")
	serve(r, req)

	if out := logBuf.String(); !strings.Contains(out, "test-req-id-789") {
		t.Errorf("expected log to contain request_id, got:\n%s", out)
	}
}
