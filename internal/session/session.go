// Package session keeps the admin identity token in a sealed browser cookie.
//
// The cookie value is base64url(nonce || secretbox(json(Session))) with a key
// derived from the configured secret, so the browser can neither read nor
// alter the token it carries. Nothing is stored server-side.
package session

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/goccy/go-json"
	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/nacl/secretbox"
)

const nonceSize = 24

var (
	// ErrNoSession is returned when the request carries no usable session.
	ErrNoSession = errors.New("session: none")
	// ErrExpired is returned for sessions or tokens past their expiry.
	ErrExpired = errors.New("session: expired")
	// ErrMalformedToken is returned when the identity token is not a JWT.
	ErrMalformedToken = errors.New("session: malformed token")
)

// Session is the signed-in admin.
type Session struct {
	Token     string    `json:"token"`
	Email     string    `json:"email"`
	ExpiresAt time.Time `json:"expires_at"`
}

// Expired reports whether the session is no longer valid at now.
func (s *Session) Expired(now time.Time) bool {
	return !now.Before(s.ExpiresAt)
}

// Manager seals, opens and writes session cookies.
type Manager struct {
	key        [32]byte
	cookieName string
	maxAge     time.Duration
	secure     bool
	now        func() time.Time
}

// Option customizes a Manager.
type Option func(*Manager)

// WithClock replaces time.Now, for tests.
func WithClock(now func() time.Time) Option {
	return func(m *Manager) { m.now = now }
}

// WithSecure sets the Secure cookie attribute.
func WithSecure(secure bool) Option {
	return func(m *Manager) { m.secure = secure }
}

// NewManager returns a Manager keyed by secret. maxAge bounds sessions whose
// token carries no expiry.
func NewManager(secret, cookieName string, maxAge time.Duration, opts ...Option) (*Manager, error) {
	secret = strings.TrimSpace(secret)
	if len(secret) < 32 {
		return nil, errors.New("session: secret must be at least 32 characters")
	}
	if cookieName == "" {
		return nil, errors.New("session: cookie name is required")
	}
	if maxAge <= 0 {
		return nil, errors.New("session: max age must be positive")
	}

	m := &Manager{
		key:        sha256.Sum256([]byte(secret)),
		cookieName: cookieName,
		maxAge:     maxAge,
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m, nil
}

// FromToken builds a session from an identity token. The token signature is
// not verified here: the backend verifies it on every call. The email claim
// wins over fallbackEmail, and the exp claim over the configured max age.
func (m *Manager) FromToken(token, fallbackEmail string) (*Session, error) {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedToken, err)
	}

	now := m.now()
	s := &Session{
		Token:     token,
		Email:     strings.TrimSpace(fallbackEmail),
		ExpiresAt: now.Add(m.maxAge),
	}
	if email, ok := claims["email"].(string); ok && email != "" {
		s.Email = email
	}
	if exp, err := claims.GetExpirationTime(); err == nil && exp != nil {
		s.ExpiresAt = exp.Time
	}
	if s.Expired(now) {
		return nil, ErrExpired
	}
	return s, nil
}

// Seal encrypts s into a cookie-safe string.
func (m *Manager) Seal(s *Session) (string, error) {
	plain, err := json.Marshal(s)
	if err != nil {
		return "", fmt.Errorf("session: encode: %w", err)
	}

	var nonce [nonceSize]byte
	if _, err := rand.Read(nonce[:]); err != nil {
		return "", fmt.Errorf("session: nonce: %w", err)
	}
	sealed := secretbox.Seal(nonce[:], plain, &nonce, &m.key)
	return base64.RawURLEncoding.EncodeToString(sealed), nil
}

// Open decrypts a value produced by Seal and rejects expired sessions.
func (m *Manager) Open(value string) (*Session, error) {
	raw, err := base64.RawURLEncoding.DecodeString(value)
	if err != nil || len(raw) < nonceSize+secretbox.Overhead {
		return nil, ErrNoSession
	}

	var nonce [nonceSize]byte
	copy(nonce[:], raw[:nonceSize])
	plain, ok := secretbox.Open(nil, raw[nonceSize:], &nonce, &m.key)
	if !ok {
		return nil, ErrNoSession
	}

	var s Session
	if err := json.Unmarshal(plain, &s); err != nil || s.Token == "" {
		return nil, ErrNoSession
	}
	if s.Expired(m.now()) {
		return nil, ErrExpired
	}
	return &s, nil
}

// Save writes s as the session cookie. The cookie lives until the session
// expires.
func (m *Manager) Save(c *gin.Context, s *Session) error {
	value, err := m.Seal(s)
	if err != nil {
		return err
	}
	maxAge := int(s.ExpiresAt.Sub(m.now()).Seconds())
	if maxAge < 1 {
		return ErrExpired
	}
	m.setCookie(c, value, maxAge)
	return nil
}

// CookieName returns the name of the session cookie.
func (m *Manager) CookieName() string {
	return m.cookieName
}

// Load reads the session cookie from the request.
func (m *Manager) Load(c *gin.Context) (*Session, error) {
	value, err := c.Cookie(m.cookieName)
	if err != nil || value == "" {
		return nil, ErrNoSession
	}
	return m.Open(value)
}

// Clear deletes the session cookie.
func (m *Manager) Clear(c *gin.Context) {
	m.setCookie(c, "", -1)
}

func (m *Manager) setCookie(c *gin.Context, value string, maxAge int) {
	http.SetCookie(c.Writer, &http.Cookie{
		Name:     m.cookieName,
		Value:    value,
		Path:     "/",
		MaxAge:   maxAge,
		HttpOnly: true,
		Secure:   m.secure,
		SameSite: http.SameSiteLaxMode,
	})
}
