package auth

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/simp-lee/qrpromo/internal/backend"
	"github.com/simp-lee/qrpromo/internal/domain"
	"github.com/simp-lee/qrpromo/internal/session"
)

// MissingCredentialsMessage is shown when either login field is blank.
const MissingCredentialsMessage = "Both email and password are required."

// Service defines the authentication operations.
type Service interface {
	Login(ctx context.Context, username, password string) (*session.Session, error)
}

type authService struct {
	idp      domain.IdentityProvider
	sessions *session.Manager
	activity domain.ActivityRecorder
}

// NewService creates an auth Service.
func NewService(idp domain.IdentityProvider, sessions *session.Manager, activity domain.ActivityRecorder) Service {
	return &authService{idp: idp, sessions: sessions, activity: activity}
}

// Login exchanges credentials for an identity token and turns it into a
// session. The password is never logged or stored.
func (s *authService) Login(ctx context.Context, username, password string) (*session.Session, error) {
	username = strings.TrimSpace(username)
	if username == "" || password == "" {
		return nil, domain.NewAppError(domain.CodeValidation, MissingCredentialsMessage, nil)
	}

	token, err := s.idp.Authenticate(ctx, username, password)
	if err != nil {
		slog.InfoContext(ctx, "login failed", slog.String("email", username), slog.Any("error", err))
		return nil, err
	}

	sess, err := s.sessions.FromToken(token, username)
	switch {
	case errors.Is(err, session.ErrExpired):
		return nil, domain.NewAppError(domain.CodeUnauthorized, backend.InvalidCredentialsMessage, err)
	case err != nil:
		return nil, domain.NewAppError(domain.CodeUpstream, backend.DefaultErrorMessage, err)
	}

	s.activity.Record(ctx, domain.ActionLogin, sess.Email, sess.Email, "")
	return sess, nil
}
