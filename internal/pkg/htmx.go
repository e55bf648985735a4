package pkg

import (
	"github.com/gin-gonic/gin"
	"github.com/goccy/go-json"
)

// IsHTMX reports whether the request was issued by htmx.
func IsHTMX(c *gin.Context) bool {
	return c.GetHeader("HX-Request") == "true"
}

// SetToast sets the HX-Trigger response header with a showToast event, which
// the base layout turns into a toast notification.
func SetToast(c *gin.Context, message, kind string) {
	trigger, _ := json.Marshal(map[string]any{
		"showToast": map[string]string{
			"message": message,
			"type":    kind,
		},
	})
	c.Header("HX-Trigger", string(trigger))
}
