package middleware

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"encoding/hex"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

const (
	csrfCookieName = "_csrf_token"
	csrfFormField  = "_csrf_token"
	csrfHeaderName = "X-CSRF-Token"
	csrfContextKey = "CSRFToken"
)

// CSRFConfig configures the double-submit CSRF check.
type CSRFConfig struct {
	Secret string
	// Secure marks the token cookie HTTPS-only.
	Secure bool
}

// CSRF protects form and htmx submissions with a signed double-submit token.
//
// Token format: hex(nonce) + "." + base64url(HMAC-SHA256(nonce, secret)).
//
// Safe methods get a token cookie (readable by htmx, SameSite=Strict) and the
// token in the gin context for templates. Unsafe methods must echo the cookie
// in the "_csrf_token" form field or the X-CSRF-Token header, or they are
// rejected with 403. JSON API groups do not use this middleware.
func CSRF(cfg CSRFConfig) gin.HandlerFunc {
	secret := strings.TrimSpace(cfg.Secret)
	if secret == "" {
		return func(c *gin.Context) {
			abortEnvelope(c, http.StatusInternalServerError, "csrf secret is required")
		}
	}

	return func(c *gin.Context) {
		switch c.Request.Method {
		case http.MethodGet, http.MethodHead, http.MethodOptions:
			token, err := c.Cookie(csrfCookieName)
			if err != nil || !validToken(token, secret) {
				token, err = generateToken(secret)
				if err != nil {
					abortEnvelope(c, http.StatusInternalServerError, "failed to generate csrf token")
					return
				}
				setCSRFCookie(c, token, cfg.Secure)
			}
			c.Set(csrfContextKey, token)
			c.Next()
			return
		}

		cookieToken, _ := c.Cookie(csrfCookieName)
		requestToken := c.PostForm(csrfFormField)
		if requestToken == "" {
			requestToken = c.GetHeader(csrfHeaderName)
		}
		switch {
		case cookieToken == "" || requestToken == "":
			abortEnvelope(c, http.StatusForbidden, "csrf token missing")
		case !validToken(cookieToken, secret) || !tokensMatch(cookieToken, requestToken):
			abortEnvelope(c, http.StatusForbidden, "csrf token invalid")
		default:
			c.Set(csrfContextKey, cookieToken)
			c.Next()
		}
	}
}

// GetCSRFToken returns the token stored by CSRF, or "".
func GetCSRFToken(c *gin.Context) string {
	return c.GetString(csrfContextKey)
}

func generateToken(secret string) (string, error) {
	nonce := make([]byte, 32)
	if _, err := rand.Read(nonce); err != nil {
		return "", err
	}
	nonceHex := hex.EncodeToString(nonce)
	return nonceHex + "." + signNonce(nonceHex, secret), nil
}

func signNonce(nonce, secret string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(nonce))
	return base64.RawURLEncoding.EncodeToString(mac.Sum(nil))
}

func validToken(token, secret string) bool {
	nonce, sig, ok := strings.Cut(token, ".")
	if !ok || nonce == "" || sig == "" {
		return false
	}
	return tokensMatch(sig, signNonce(nonce, secret))
}

func tokensMatch(a, b string) bool {
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}

func setCSRFCookie(c *gin.Context, token string, secure bool) {
	http.SetCookie(c.Writer, &http.Cookie{
		Name:     csrfCookieName,
		Value:    token,
		Path:     "/",
		HttpOnly: false,
		Secure:   secure,
		SameSite: http.SameSiteStrictMode,
	})
}

func abortEnvelope(c *gin.Context, status int, message string) {
	c.AbortWithStatusJSON(status, gin.H{
		"code":    status,
		"message": message,
		"data":    nil,
	})
}
