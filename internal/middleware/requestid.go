package middleware

import (
	"context"
	"crypto/rand"
	"encoding/binary"
	"encoding/hex"
	"log/slog"
	"regexp"
	"sync/atomic"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/simp-lee/logger"
)

const (
	requestIDHeader     = "X-Request-ID"
	requestIDContextKey = "request_id"
	requestIDLength     = 16
)

type requestIDKey struct{}

var requestIDPattern = regexp.MustCompile(`^[A-Za-z0-9-]{1,64}$`)

var requestIDFallbackCounter atomic.Uint64

// RequestIDConfig controls request-id reuse behavior.
type RequestIDConfig struct {
	// TrustUpstream reuses a well-formed incoming X-Request-ID, for
	// deployments behind a proxy that already assigns one.
	TrustUpstream bool
}

// RequestID assigns a fresh ID to every request.
func RequestID() gin.HandlerFunc {
	return RequestIDWithConfig(RequestIDConfig{})
}

// RequestIDWithConfig assigns a request ID and publishes it three ways: the
// X-Request-ID response header, the gin context, and the request context.
// The request context copy is picked up by the slog context middleware and
// forwarded by the backend client on outgoing calls.
func RequestIDWithConfig(cfg RequestIDConfig) gin.HandlerFunc {
	return func(c *gin.Context) {
		var id string
		if cfg.TrustUpstream {
			if upstream := c.GetHeader(requestIDHeader); requestIDPattern.MatchString(upstream) {
				id = upstream
			}
		}
		if id == "" {
			id = generateRequestID()
		}

		c.Set(requestIDContextKey, id)
		c.Header(requestIDHeader, id)

		ctx := context.WithValue(c.Request.Context(), requestIDKey{}, id)
		ctx = logger.WithContextAttrs(ctx, slog.String("request_id", id))
		c.Request = c.Request.WithContext(ctx)

		c.Next()
	}
}

// GetRequestID returns the request ID stored on c, or "".
func GetRequestID(c *gin.Context) string {
	return c.GetString(requestIDContextKey)
}

// RequestIDFromContext returns the request ID carried by ctx, or "".
func RequestIDFromContext(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey{}).(string)
	return id
}

func generateRequestID() string {
	b := make([]byte, requestIDLength)
	if _, err := rand.Read(b); err != nil {
		binary.BigEndian.PutUint64(b[:8], uint64(time.Now().UnixNano()))
		binary.BigEndian.PutUint64(b[8:], requestIDFallbackCounter.Add(1))
	}
	return hex.EncodeToString(b)
}
