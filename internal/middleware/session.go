package middleware

import (
	"errors"
	"net/http"
	"net/url"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/simp-lee/qrpromo/internal/pkg"
	"github.com/simp-lee/qrpromo/internal/session"
)

const (
	sessionContextKey = "admin_session"
	// LoginPath is where unauthenticated page requests are sent.
	LoginPath = "/admin/login"
)

// RequireSession rejects requests without a live admin session.
//
// Page routes (api=false) are redirected to the login form, carrying the
// original path in ?next=. htmx requests get an HX-Redirect header instead so
// the whole page navigates. API routes (api=true) also accept
// "Authorization: Bearer <token>" and answer 401 with the JSON envelope.
//
// An expired or unreadable cookie is cleared on the way out.
func RequireSession(m *session.Manager, api bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		s, err := m.Load(c)
		if err != nil && api {
			if token, ok := bearerToken(c); ok {
				s, err = m.FromToken(token, "")
			}
		}
		if err == nil {
			c.Set(sessionContextKey, s)
			c.Next()
			return
		}

		if !errors.Is(err, session.ErrNoSession) || hasCookie(c, m) {
			m.Clear(c)
		}
		if api {
			abortEnvelope(c, http.StatusUnauthorized, "unauthorized")
			return
		}
		RedirectToLogin(c)
	}
}

// RedirectToLogin aborts c with a redirect to the login form.
func RedirectToLogin(c *gin.Context) {
	target := LoginPath
	if c.Request.Method == http.MethodGet && c.Request.URL.Path != LoginPath {
		target += "?next=" + url.QueryEscape(c.Request.URL.RequestURI())
	}
	if pkg.IsHTMX(c) {
		c.Header("HX-Redirect", target)
		c.AbortWithStatus(http.StatusUnauthorized)
		return
	}
	c.Redirect(http.StatusSeeOther, target)
	c.Abort()
}

// CurrentSession returns the session attached by RequireSession.
func CurrentSession(c *gin.Context) (*session.Session, bool) {
	v, ok := c.Get(sessionContextKey)
	if !ok {
		return nil, false
	}
	s, ok := v.(*session.Session)
	return s, ok && s != nil
}

// Actor returns the signed-in admin's email, or "".
func Actor(c *gin.Context) string {
	if s, ok := CurrentSession(c); ok {
		return s.Email
	}
	return ""
}

func bearerToken(c *gin.Context) (string, bool) {
	h := c.GetHeader("Authorization")
	scheme, token, ok := strings.Cut(h, " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}

func hasCookie(c *gin.Context, m *session.Manager) bool {
	_, err := c.Cookie(m.CookieName())
	return err == nil
}
