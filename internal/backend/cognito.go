package backend

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/goccy/go-json"

	"github.com/simp-lee/qrpromo/internal/domain"
)

// InvalidCredentialsMessage is shown for any failed sign-in.
const InvalidCredentialsMessage = "Invalid credentials. Please try again."

const (
	initiateAuthTarget = "AWSCognitoIdentityProviderService.InitiateAuth"
	amzJSONContentType = "application/x-amz-json-1.1"
)

// Cognito signs admins in through the Cognito InitiateAuth JSON API using
// the USER_PASSWORD_AUTH flow. It implements domain.IdentityProvider.
type Cognito struct {
	endpoint string
	clientID string
	http     *http.Client
	logger   *slog.Logger
}

var _ domain.IdentityProvider = (*Cognito)(nil)

// NewCognito returns a provider posting to endpoint for the app client clientID.
func NewCognito(endpoint, clientID string, timeout time.Duration, opts ...Option) *Cognito {
	o := buildOptions(timeout, opts)
	return &Cognito{
		endpoint: endpoint,
		clientID: clientID,
		http:     o.http,
		logger:   o.logger,
	}
}

type initiateAuthRequest struct {
	AuthFlow       string            `json:"AuthFlow"`
	ClientID       string            `json:"ClientId"`
	AuthParameters map[string]string `json:"AuthParameters"`
}

type initiateAuthResponse struct {
	ChallengeName        string `json:"ChallengeName"`
	AuthenticationResult *struct {
		IdToken     string `json:"IdToken"`
		AccessToken string `json:"AccessToken"`
		ExpiresIn   int    `json:"ExpiresIn"`
	} `json:"AuthenticationResult"`
}

// Authenticate exchanges credentials for an ID token. Rejected credentials and
// pending challenges both yield an unauthorized error with
// InvalidCredentialsMessage; transport and 5xx failures are upstream errors.
func (p *Cognito) Authenticate(ctx context.Context, username, password string) (string, error) {
	b, err := json.Marshal(initiateAuthRequest{
		AuthFlow: "USER_PASSWORD_AUTH",
		ClientID: p.clientID,
		AuthParameters: map[string]string{
			"USERNAME": username,
			"PASSWORD": password,
		},
	})
	if err != nil {
		return "", domain.NewAppError(domain.CodeInternal, "encode auth request", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.endpoint, bytes.NewReader(b))
	if err != nil {
		return "", domain.NewAppError(domain.CodeInternal, "build auth request", err)
	}
	req.Header.Set("Content-Type", amzJSONContentType)
	req.Header.Set("X-Amz-Target", initiateAuthTarget)

	resp, err := p.http.Do(req)
	if err != nil {
		return "", domain.NewAppError(domain.CodeUpstream, DefaultErrorMessage, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return "", domain.NewAppError(domain.CodeUpstream, DefaultErrorMessage, err)
	}

	if resp.StatusCode >= 500 {
		return "", domain.NewAppError(domain.CodeUpstream, DefaultErrorMessage, fmt.Errorf("identity provider status %d", resp.StatusCode))
	}
	if resp.StatusCode != http.StatusOK {
		p.logger.InfoContext(ctx, "sign-in rejected",
			slog.String("username", username),
			slog.String("reason", cognitoErrorType(raw)),
		)
		return "", domain.NewAppError(domain.CodeUnauthorized, InvalidCredentialsMessage, fmt.Errorf("identity provider status %d", resp.StatusCode))
	}

	var out initiateAuthResponse
	if err := json.Unmarshal(raw, &out); err != nil {
		return "", domain.NewAppError(domain.CodeUpstream, DefaultErrorMessage, err)
	}
	if out.AuthenticationResult == nil || out.AuthenticationResult.IdToken == "" {
		p.logger.InfoContext(ctx, "sign-in needs a challenge",
			slog.String("username", username),
			slog.String("challenge", out.ChallengeName),
		)
		return "", domain.NewAppError(domain.CodeUnauthorized, InvalidCredentialsMessage, fmt.Errorf("challenge %q", out.ChallengeName))
	}
	return out.AuthenticationResult.IdToken, nil
}

// cognitoErrorType extracts the short exception name from an error reply,
// e.g. "NotAuthorizedException".
func cognitoErrorType(raw []byte) string {
	var body struct {
		Type string `json:"__type"`
	}
	if err := json.Unmarshal(raw, &body); err != nil {
		return ""
	}
	if i := strings.LastIndex(body.Type, "#"); i >= 0 {
		return body.Type[i+1:]
	}
	return body.Type
}
