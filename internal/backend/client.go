// Package backend is the HTTP client for the campaign backend API and the
// identity provider that issues admin tokens.
package backend

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/goccy/go-json"

	"github.com/simp-lee/qrpromo/internal/domain"
	"github.com/simp-lee/qrpromo/internal/middleware"
)

// DefaultErrorMessage is shown when the backend fails without a message.
const DefaultErrorMessage = "An error occurred. Please try again."

const maxBodyBytes = 4 << 20

// Client calls the campaign backend. It implements domain.CampaignBackend
// and domain.AdminBackend.
type Client struct {
	baseURL string
	http    *http.Client
	logger  *slog.Logger
}

var (
	_ domain.CampaignBackend = (*Client)(nil)
	_ domain.AdminBackend    = (*Client)(nil)
)

// Option customizes a Client or a Cognito provider.
type Option func(*options)

type options struct {
	http   *http.Client
	logger *slog.Logger
}

// WithHTTPClient replaces the underlying *http.Client.
func WithHTTPClient(h *http.Client) Option {
	return func(o *options) { o.http = h }
}

// WithLogger sets the logger used for per-call debug lines.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) { o.logger = l }
}

func buildOptions(timeout time.Duration, opts []Option) options {
	o := options{}
	for _, opt := range opts {
		opt(&o)
	}
	if o.http == nil {
		o.http = &http.Client{Timeout: timeout}
	}
	if o.logger == nil {
		o.logger = slog.Default()
	}
	return o
}

// New returns a Client for the backend rooted at baseURL.
func New(baseURL string, timeout time.Duration, opts ...Option) *Client {
	o := buildOptions(timeout, opts)
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    o.http,
		logger:  o.logger,
	}
}

// Scan submits a code. A missing outcome is reported as domain.OutcomeNoPrize.
func (c *Client) Scan(ctx context.Context, code, userAgent string) (*domain.ScanResult, error) {
	var out domain.ScanResult
	body := map[string]string{"qr_code_id": code, "user_agent": userAgent}
	if err := c.do(ctx, http.MethodPost, "/scan", "", body, &out); err != nil {
		return nil, err
	}
	if out.Outcome == "" {
		out.Outcome = domain.OutcomeNoPrize
	}
	return &out, nil
}

// SubmitWinner sends the contact details for a winning code.
func (c *Client) SubmitWinner(ctx context.Context, claim domain.Claim) (*domain.ActionResult, error) {
	var out domain.ActionResult
	if err := c.do(ctx, http.MethodPost, "/submit-winner", "", claim, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) Reports(ctx context.Context, token string) (*domain.Reports, error) {
	var out domain.Reports
	if err := c.do(ctx, http.MethodGet, "/admin/reports", token, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) Winners(ctx context.Context, token string) ([]domain.Winner, error) {
	var out struct {
		Winners []domain.Winner `json:"winners"`
	}
	if err := c.do(ctx, http.MethodGet, "/admin/winners", token, nil, &out); err != nil {
		return nil, err
	}
	return out.Winners, nil
}

func (c *Client) QRCodes(ctx context.Context, token string) ([]domain.QRCode, error) {
	var out struct {
		QRCodes []domain.QRCode `json:"qr_codes"`
	}
	if err := c.do(ctx, http.MethodGet, "/admin/qr-codes", token, nil, &out); err != nil {
		return nil, err
	}
	return out.QRCodes, nil
}

// MarkDelivered stamps a winner's delivery date. Numeric ids are sent as JSON
// numbers, the way the backend lists them.
func (c *Client) MarkDelivered(ctx context.Context, token, winnerID string) (*domain.DeliveryResult, error) {
	var id any = winnerID
	if n, err := strconv.ParseInt(winnerID, 10, 64); err == nil {
		id = n
	}
	var out domain.DeliveryResult
	if err := c.do(ctx, http.MethodPost, "/admin/winners/delivery-date", token, map[string]any{"winner_id": id}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) GenerateQRCodes(ctx context.Context, token, prizeType string, count int) (*domain.ActionResult, error) {
	var out domain.ActionResult
	body := map[string]any{"prize_type": prizeType, "count": count}
	if err := c.do(ctx, http.MethodPost, "/generate-qrcodes", token, body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) UpdatePrize(ctx context.Context, token, qrCodeID, prizeType string) (*domain.ActionResult, error) {
	var out domain.ActionResult
	body := map[string]string{"qr_code_id": qrCodeID, "prize_type": prizeType}
	if err := c.do(ctx, http.MethodPost, "/update-prize", token, body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) do(ctx context.Context, method, path, token string, in, out any) error {
	var body io.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return domain.NewAppError(domain.CodeInternal, "encode request", err)
		}
		body = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return domain.NewAppError(domain.CodeInternal, "build request", err)
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	if id := middleware.RequestIDFromContext(ctx); id != "" {
		req.Header.Set("X-Request-ID", id)
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		c.logger.WarnContext(ctx, "backend call failed",
			slog.String("method", method), slog.String("path", path), slog.Any("error", err))
		return domain.NewAppError(domain.CodeUpstream, DefaultErrorMessage, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	c.logger.DebugContext(ctx, "backend call",
		slog.String("method", method),
		slog.String("path", path),
		slog.Int("status", resp.StatusCode),
		slog.Duration("latency", time.Since(start)),
	)
	if err != nil {
		return domain.NewAppError(domain.CodeUpstream, DefaultErrorMessage, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return statusError(resp.StatusCode, raw)
	}
	if out == nil || len(bytes.TrimSpace(raw)) == 0 {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return domain.NewAppError(domain.CodeUpstream, DefaultErrorMessage, fmt.Errorf("decode %s %s: %w", method, path, err))
	}
	return nil
}

// statusError maps a non-2xx backend reply onto an AppError carrying the
// backend's own message when it sent one.
func statusError(status int, raw []byte) error {
	msg := errorMessage(raw)
	cause := fmt.Errorf("backend status %d", status)

	switch {
	case status == http.StatusUnauthorized:
		return domain.NewAppError(domain.CodeUnauthorized, "Your session has expired. Please sign in again.", cause)
	case status == http.StatusNotFound && msg != "":
		return domain.NewAppError(domain.CodeNotFound, msg, cause)
	case status >= 400 && status < 500:
		if msg == "" {
			msg = DefaultErrorMessage
		}
		return domain.NewAppError(domain.CodeValidation, msg, cause)
	default:
		if msg == "" {
			msg = DefaultErrorMessage
		}
		return domain.NewAppError(domain.CodeUpstream, msg, cause)
	}
}

func errorMessage(raw []byte) string {
	var body struct {
		Message string `json:"message"`
		Error   string `json:"error"`
	}
	if err := json.Unmarshal(raw, &body); err != nil {
		return ""
	}
	if m := strings.TrimSpace(body.Message); m != "" {
		return m
	}
	return strings.TrimSpace(body.Error)
}
