package auth

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/simp-lee/qrpromo/internal/backend"
	"github.com/simp-lee/qrpromo/internal/domain"
	"github.com/simp-lee/qrpromo/internal/middleware"
	"github.com/simp-lee/qrpromo/internal/pkg"
	"github.com/simp-lee/qrpromo/internal/session"
)

const dashboardPath = "/admin"

// PageHandler serves the login form and logout.
type PageHandler struct {
	svc      Service
	sessions *session.Manager
}

// NewPageHandler creates a PageHandler.
func NewPageHandler(svc Service, sessions *session.Manager) *PageHandler {
	return &PageHandler{svc: svc, sessions: sessions}
}

// LoginPage renders the login form, or skips it for a signed-in admin.
// GET /admin/login
func (h *PageHandler) LoginPage(c *gin.Context) {
	next := safeNext(c.Query("next"))
	if _, err := h.sessions.Load(c); err == nil {
		c.Redirect(http.StatusSeeOther, next)
		return
	}
	h.render(c, http.StatusOK, "", "", next)
}

// Login handles the login form.
// POST /admin/login
func (h *PageHandler) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBind(&req); err != nil {
		slog.DebugContext(c.Request.Context(), "login: bind error", slog.Any("error", err))
	}
	next := safeNext(req.Next)

	sess, err := h.svc.Login(c.Request.Context(), req.Username, req.Password)
	if err != nil {
		msg := domain.UserMessage(err, backend.DefaultErrorMessage)
		if domain.IsUnauthorized(err) {
			msg = backend.InvalidCredentialsMessage
		}
		h.render(c, http.StatusOK, req.Username, msg, next)
		return
	}

	if err := h.sessions.Save(c, sess); err != nil {
		slog.ErrorContext(c.Request.Context(), "login: save session", slog.Any("error", err))
		h.render(c, http.StatusOK, req.Username, backend.DefaultErrorMessage, next)
		return
	}
	redirect(c, next)
}

// Logout clears the session.
// POST /admin/logout
func (h *PageHandler) Logout(c *gin.Context) {
	h.sessions.Clear(c)
	redirect(c, middleware.LoginPath)
}

func (h *PageHandler) render(c *gin.Context, status int, username, errMsg, next string) {
	c.HTML(status, "auth/login.html", gin.H{
		"Title":     "Admin login",
		"Username":  strings.TrimSpace(username),
		"Error":     errMsg,
		"Next":      next,
		"CSRFToken": middleware.GetCSRFToken(c),
	})
}

// redirect sends the browser to target: a full-page HX-Redirect for htmx,
// otherwise 303 See Other.
func redirect(c *gin.Context, target string) {
	if pkg.IsHTMX(c) {
		c.Header("HX-Redirect", target)
		c.Status(http.StatusOK)
		return
	}
	c.Redirect(http.StatusSeeOther, target)
}

// safeNext accepts only local admin paths, so ?next= cannot send the admin
// to another site.
func safeNext(next string) string {
	next = strings.TrimSpace(next)
	if next == "" || strings.HasPrefix(next, "//") || strings.ContainsAny(next, "\\\r\n") {
		return dashboardPath
	}
	if next != dashboardPath && !strings.HasPrefix(next, dashboardPath+"/") && !strings.HasPrefix(next, dashboardPath+"?") {
		return dashboardPath
	}
	if next == middleware.LoginPath || strings.HasPrefix(next, middleware.LoginPath+"?") {
		return dashboardPath
	}
	return next
}
