package domain

import (
	"context"
	"strings"
)

// Scan outcomes reported by the backend.
const (
	OutcomeWinner  = "WINNER"
	OutcomeClaimed = "CLAIMED"
	OutcomeNoPrize = "NO_PRIZE"
)

// Winner is a claimed prize as returned by GET /admin/winners.
type Winner struct {
	WinnerID     Scalar  `json:"winner_id"`
	QRCodeID     Scalar  `json:"qr_code_id"`
	Name         string  `json:"name"`
	Email        string  `json:"email"`
	Phone        string  `json:"phone"`
	PrizeType    string  `json:"prize_type"`
	ClaimedAt    string  `json:"claimed_at"`
	DeliveryDate *string `json:"delivery_date"`
}

// Delivered reports whether the prize has a delivery date. A nil or blank
// date means the prize is still pending.
func (w Winner) Delivered() bool {
	return w.DeliveryDate != nil && strings.TrimSpace(*w.DeliveryDate) != ""
}

// DeliveredAt returns the delivery date text, or "" when not delivered.
func (w Winner) DeliveredAt() string {
	if !w.Delivered() {
		return ""
	}
	return *w.DeliveryDate
}

// QRCode is a printed campaign code as returned by GET /admin/qr-codes.
type QRCode struct {
	QRCodeID   Scalar `json:"qr_code_id"`
	PrizeType  string `json:"prize_type"`
	TotalScans Scalar `json:"total_scans"`
	Claimed    bool   `json:"claimed"`
	IsValid    bool   `json:"is_valid"`
}

// Reports holds the campaign totals shown on the dashboard.
type Reports struct {
	QRCodesTotal Scalar `json:"qr_codes_total"`
	ScansTotal   Scalar `json:"scans_total"`
	WinnersTotal Scalar `json:"winners_total"`
}

// ScanResult is the backend verdict for a submitted code.
type ScanResult struct {
	Message string `json:"message"`
	Outcome string `json:"outcome"`
}

// Claim holds the contact details a winner submits for a code.
type Claim struct {
	QRCodeID string `json:"qr_code_id"`
	Name     string `json:"name"`
	Phone    string `json:"phone"`
	Email    string `json:"email"`
}

// ActionResult is the generic {"message": ...} reply of backend mutations.
type ActionResult struct {
	Message string `json:"message"`
}

// DeliveryResult is the reply to marking a prize delivered.
type DeliveryResult struct {
	Message      string `json:"message"`
	WinnerID     Scalar `json:"winner_id"`
	DeliveryDate string `json:"delivery_date"`
}

// CampaignBackend covers the public endpoints used by participants.
type CampaignBackend interface {
	Scan(ctx context.Context, code, userAgent string) (*ScanResult, error)
	SubmitWinner(ctx context.Context, claim Claim) (*ActionResult, error)
}

// AdminBackend covers the endpoints that need an admin bearer token.
type AdminBackend interface {
	Reports(ctx context.Context, token string) (*Reports, error)
	Winners(ctx context.Context, token string) ([]Winner, error)
	QRCodes(ctx context.Context, token string) ([]QRCode, error)
	MarkDelivered(ctx context.Context, token, winnerID string) (*DeliveryResult, error)
	GenerateQRCodes(ctx context.Context, token, prizeType string, count int) (*ActionResult, error)
	UpdatePrize(ctx context.Context, token, qrCodeID, prizeType string) (*ActionResult, error)
}

// IdentityProvider exchanges admin credentials for an ID token.
type IdentityProvider interface {
	Authenticate(ctx context.Context, username, password string) (string, error)
}
