package middleware

import (
	"log/slog"
	"net/http"
	"runtime/debug"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/simp-lee/qrpromo/internal/pkg"
)

// Recovery turns panics into a logged 500 response.
//
// Browsers (Accept: text/html) and htmx requests get the errors/500.html
// page; everything else gets the JSON envelope
//
//	{"code": 500, "message": "internal server error", "data": null}
func Recovery(logger *slog.Logger) gin.HandlerFunc {
	if logger == nil {
		logger = slog.Default()
	}

	return func(c *gin.Context) {
		defer func() {
			err := recover()
			if err == nil {
				return
			}

			logger.ErrorContext(c.Request.Context(), "panic recovered",
				slog.Any("panic", err),
				slog.String("method", c.Request.Method),
				slog.String("path", c.Request.URL.Path),
				slog.String("actor", Actor(c)),
				slog.String("stack", string(debug.Stack())),
			)

			if wantsHTML(c) {
				c.Abort()
				renderHTMLError(c)
				return
			}
			abortEnvelope(c, http.StatusInternalServerError, "internal server error")
		}()
		c.Next()
	}
}

// renderHTMLError renders errors/500.html, falling back to plain text when no
// renderer is configured or the template fails.
func renderHTMLError(c *gin.Context) {
	defer func() {
		if r := recover(); r != nil {
			c.Data(http.StatusInternalServerError, "text/plain; charset=utf-8", []byte("500 Internal Server Error"))
		}
	}()
	c.HTML(http.StatusInternalServerError, "errors/500.html", gin.H{})
}

func wantsHTML(c *gin.Context) bool {
	return pkg.IsHTMX(c) || strings.Contains(strings.ToLower(c.GetHeader("Accept")), "text/html")
}
