package app

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/simp-lee/qrpromo/internal/pkg"
)

// renderError answers a failed request in the form its caller can use:
//
//	/api/... or an explicit JSON Accept   JSON envelope
//	htmx swap                             status plus an error toast, no body
//	browser navigation                    the error page for code
//	anything else                         JSON envelope
func renderError(c *gin.Context, code int, message string) {
	switch {
	case isAPIPath(c.Request.URL.Path) || wantsJSON(c):
		c.JSON(code, pkg.Response{Code: code, Message: message})
	case pkg.IsHTMX(c):
		// htmx leaves the target alone on error statuses; the toast is all
		// the user sees.
		pkg.SetToast(c, message, "error")
		c.Status(code)
	case acceptsHTML(c):
		renderHTMLErrorPage(c, code)
	default:
		c.JSON(code, pkg.Response{Code: code, Message: message})
	}
}

func isAPIPath(path string) bool {
	return strings.HasPrefix(path, "/api/")
}

// wantsJSON is true when JSON is asked for and HTML is not. It is checked
// before acceptsHTML because "application/json, */*" also matches */*.
func wantsJSON(c *gin.Context) bool {
	accept := strings.ToLower(c.GetHeader("Accept"))
	return strings.Contains(accept, "application/json") && !strings.Contains(accept, "text/html")
}

// acceptsHTML matches text/html, */* and an empty Accept header.
func acceptsHTML(c *gin.Context) bool {
	accept := strings.ToLower(c.GetHeader("Accept"))
	return strings.Contains(accept, "text/html") ||
		strings.Contains(accept, "*/*") ||
		strings.TrimSpace(accept) == ""
}

// errorTemplate picks the page for code: 404 has its own, other client
// errors share 400 and everything else is a 500.
func errorTemplate(code int) string {
	switch {
	case code == http.StatusNotFound:
		return "errors/404.html"
	case code >= 400 && code < 500:
		return "errors/400.html"
	default:
		return "errors/500.html"
	}
}

// renderHTMLErrorPage falls back to plain text when the page cannot be
// rendered, e.g. no renderer is installed.
func renderHTMLErrorPage(c *gin.Context, code int) {
	defer func() {
		if r := recover(); r != nil {
			c.Data(code, "text/plain; charset=utf-8", []byte(fmt.Sprintf("%d %s", code, http.StatusText(code))))
		}
	}()
	c.HTML(code, errorTemplate(code), gin.H{"Title": http.StatusText(code)})
}
