package middleware

import (
	"log/slog"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/simp-lee/qrpromo/internal/pkg"
)

// Logger logs one line per request at a level derived from the status code:
// Info below 400, Warn for 4xx, Error for 5xx. Requests served to a signed-in
// admin carry an actor attribute, and htmx swaps are flagged.
//
// It logs through the Context-aware slog API so the request_id attached by
// RequestID is included.
func Logger(logger *slog.Logger) gin.HandlerFunc {
	if logger == nil {
		logger = slog.Default()
	}

	return func(c *gin.Context) {
		start := time.Now()

		c.Next()

		status := c.Writer.Status()
		attrs := []slog.Attr{
			slog.String("method", c.Request.Method),
			slog.String("path", c.Request.URL.Path),
			slog.String("route", c.FullPath()),
			slog.Int("status", status),
			slog.Duration("latency", time.Since(start)),
			slog.String("client_ip", c.ClientIP()),
		}
		if actor := Actor(c); actor != "" {
			attrs = append(attrs, slog.String("actor", actor))
		}
		if pkg.IsHTMX(c) {
			attrs = append(attrs, slog.Bool("htmx", true))
		}
		if len(c.Errors) > 0 {
			attrs = append(attrs, slog.String("errors", c.Errors.String()))
		}

		level := slog.LevelInfo
		switch {
		case status >= 500:
			level = slog.LevelError
		case status >= 400:
			level = slog.LevelWarn
		}
		logger.LogAttrs(c.Request.Context(), level, "request", attrs...)
	}
}
