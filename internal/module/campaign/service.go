package campaign

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/simp-lee/qrpromo/internal/domain"
	"github.com/simp-lee/qrpromo/internal/pkg"
)

// Participant-facing messages.
const (
	EndedMessage        = "This promotion has ended."
	InvalidNameMessage  = "Name must contain letters and spaces only (max 100)."
	InvalidPhoneMessage = "Phone must be in XXX-XXX-XXXX format"
	InvalidEmailMessage = "Invalid email format"
)

const maxNameLength = 100

// Config is the campaign behavior taken from the campaign config section.
type Config struct {
	Active     bool
	CodePrefix string
	CodeLength int
}

// Placeholder returns the code pattern shown in the input, e.g. CHS-XXXXXXXXXX.
func (c Config) Placeholder() string {
	n := c.CodeLength - len(c.CodePrefix)
	if n < 0 {
		n = 0
	}
	return c.CodePrefix + strings.Repeat("X", n)
}

// Service runs the participant flow against the backend.
type Service interface {
	// Scan checks a flyer code. The returned code is the normalized one.
	Scan(ctx context.Context, code, userAgent string) (string, *domain.ScanResult, error)
	// Claim submits the winner's contact details for a code.
	Claim(ctx context.Context, claim domain.Claim) (*domain.ActionResult, error)
	// Active reports whether the promotion still accepts codes.
	Active() bool
}

type campaignService struct {
	backend domain.CampaignBackend
	cfg     Config
}

// NewService creates a campaign Service.
func NewService(backend domain.CampaignBackend, cfg Config) Service {
	return &campaignService{backend: backend, cfg: cfg}
}

func (s *campaignService) Active() bool {
	return s.cfg.Active
}

func (s *campaignService) Scan(ctx context.Context, code, userAgent string) (string, *domain.ScanResult, error) {
	code = NormalizeCode(code)
	if !s.cfg.Active {
		return code, nil, domain.NewAppError(domain.CodeValidation, EndedMessage, nil)
	}
	if !pkg.ValidPromoCode(code, s.cfg.CodePrefix, s.cfg.CodeLength) {
		return code, nil, domain.NewAppError(domain.CodeValidation, s.invalidCodeMessage(), nil)
	}

	res, err := s.backend.Scan(ctx, code, userAgent)
	if err != nil {
		return code, nil, err
	}
	res.Outcome = normalizeOutcome(res.Outcome)
	slog.DebugContext(ctx, "code scanned", slog.String("qr_code_id", code), slog.String("outcome", res.Outcome))
	return code, res, nil
}

func (s *campaignService) Claim(ctx context.Context, claim domain.Claim) (*domain.ActionResult, error) {
	if !s.cfg.Active {
		return nil, domain.NewAppError(domain.CodeValidation, EndedMessage, nil)
	}

	claim.QRCodeID = NormalizeCode(claim.QRCodeID)
	claim.Name = strings.Join(strings.Fields(claim.Name), " ")
	claim.Phone = pkg.FormatPhone(claim.Phone)
	claim.Email = strings.TrimSpace(claim.Email)

	switch {
	case !pkg.ValidPromoCode(claim.QRCodeID, s.cfg.CodePrefix, s.cfg.CodeLength):
		return nil, domain.NewAppError(domain.CodeValidation, s.invalidCodeMessage(), nil)
	case !pkg.ValidPersonName(claim.Name) || len([]rune(claim.Name)) > maxNameLength:
		return nil, domain.NewAppError(domain.CodeValidation, InvalidNameMessage, nil)
	case !pkg.ValidUSPhone(claim.Phone):
		return nil, domain.NewAppError(domain.CodeValidation, InvalidPhoneMessage, nil)
	case !pkg.ValidEmail(claim.Email):
		return nil, domain.NewAppError(domain.CodeValidation, InvalidEmailMessage, nil)
	}

	res, err := s.backend.SubmitWinner(ctx, claim)
	if err != nil {
		return nil, err
	}
	slog.InfoContext(ctx, "prize claimed",
		slog.String("qr_code_id", claim.QRCodeID),
		slog.String("email", claim.Email),
		slog.String("phone", claim.Phone))
	return res, nil
}

func (s *campaignService) invalidCodeMessage() string {
	return fmt.Sprintf("Please enter a valid code (%s).", s.cfg.Placeholder())
}

// NormalizeCode trims and upper-cases a typed code.
func NormalizeCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

func normalizeOutcome(outcome string) string {
	switch o := strings.ToUpper(strings.TrimSpace(outcome)); o {
	case domain.OutcomeWinner, domain.OutcomeClaimed:
		return o
	default:
		return domain.OutcomeNoPrize
	}
}
