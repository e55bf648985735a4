package admin

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/simp-lee/qrpromo/internal/domain"
	"github.com/simp-lee/qrpromo/internal/listquery"
	"github.com/simp-lee/qrpromo/internal/session"
)

// Panels of the dashboard.
const (
	PanelWinners = "winners"
	PanelQRCodes = "qrcodes"
)

// Admin-facing messages.
const (
	PrizeTypeRequiredMessage = "Prize type is required."
	CountInvalidMessage      = "Count must be a whole number greater than zero."
	CodeRequiredMessage      = "QR code ID is required."
	WinnerNotFoundMessage    = "Winner not found."
	AlreadyDeliveredMessage  = "This prize has already been marked as delivered."
)

// defaultRecentActivity is how many audit entries the dashboard shows when
// no limit is configured.
const defaultRecentActivity = 10

// ActivityFeed is the audit trail as the admin pages use it.
type ActivityFeed interface {
	domain.ActivityRecorder
	Recent(ctx context.Context, limit int) ([]domain.Activity, error)
}

// Dashboard is everything the dashboard page shows.
type Dashboard struct {
	Reports  *domain.Reports
	Panel    string
	Params   listquery.Params
	Winners  *listquery.Result[domain.Winner]
	QRCodes  *listquery.Result[domain.QRCode]
	Activity []domain.Activity
}

// Service wraps the admin backend calls for one signed-in admin.
type Service interface {
	Dashboard(ctx context.Context, s *session.Session, panel string, p listquery.Params) (*Dashboard, error)
	Reports(ctx context.Context, s *session.Session) (*domain.Reports, error)
	Winners(ctx context.Context, s *session.Session, p listquery.Params) (listquery.Result[domain.Winner], error)
	// ExportWinners returns every winner matching p, sorted, without paging.
	ExportWinners(ctx context.Context, s *session.Session, p listquery.Params) ([]domain.Winner, error)
	QRCodes(ctx context.Context, s *session.Session, p listquery.Params) (listquery.Result[domain.QRCode], error)
	MarkDelivered(ctx context.Context, s *session.Session, winnerID string) (*domain.DeliveryResult, error)
	GenerateQRCodes(ctx context.Context, s *session.Session, prizeType, count string) (*domain.ActionResult, error)
	UpdatePrize(ctx context.Context, s *session.Session, qrCodeID, prizeType string) (*domain.ActionResult, error)
}

type adminService struct {
	backend  domain.AdminBackend
	activity ActivityFeed
	recent   int
}

// NewService creates an admin Service. recent caps the activity entries on
// the dashboard; values below 1 use the default.
func NewService(backend domain.AdminBackend, activity ActivityFeed, recent int) Service {
	if recent < 1 {
		recent = defaultRecentActivity
	}
	return &adminService{backend: backend, activity: activity, recent: recent}
}

// NormalizePanel maps unknown panel names to no panel.
func NormalizePanel(panel string) string {
	switch panel = strings.ToLower(strings.TrimSpace(panel)); panel {
	case PanelWinners, PanelQRCodes:
		return panel
	default:
		return ""
	}
}

// Dashboard loads the reports, the selected panel's page and the recent
// activity concurrently. An activity failure only empties that section.
func (a *adminService) Dashboard(ctx context.Context, s *session.Session, panel string, p listquery.Params) (*Dashboard, error) {
	d := &Dashboard{Panel: NormalizePanel(panel), Params: p}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		reports, err := a.backend.Reports(gctx, s.Token)
		if err != nil {
			return err
		}
		d.Reports = reports
		return nil
	})
	switch d.Panel {
	case PanelWinners:
		g.Go(func() error {
			res, err := a.Winners(gctx, s, p)
			if err != nil {
				return err
			}
			d.Winners = &res
			return nil
		})
	case PanelQRCodes:
		g.Go(func() error {
			res, err := a.QRCodes(gctx, s, p)
			if err != nil {
				return err
			}
			d.QRCodes = &res
			return nil
		})
	}
	g.Go(func() error {
		recent, err := a.activity.Recent(gctx, a.recent)
		if err != nil {
			slog.WarnContext(ctx, "load recent activity failed", slog.Any("error", err))
			recent = []domain.Activity{}
		}
		d.Activity = recent
		return nil
	})

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return d, nil
}

func (a *adminService) Reports(ctx context.Context, s *session.Session) (*domain.Reports, error) {
	return a.backend.Reports(ctx, s.Token)
}

func (a *adminService) Winners(ctx context.Context, s *session.Session, p listquery.Params) (listquery.Result[domain.Winner], error) {
	winners, err := a.backend.Winners(ctx, s.Token)
	if err != nil {
		return listquery.Result[domain.Winner]{}, err
	}
	return listquery.Query(winners, listquery.Winners, p), nil
}

func (a *adminService) ExportWinners(ctx context.Context, s *session.Session, p listquery.Params) ([]domain.Winner, error) {
	winners, err := a.backend.Winners(ctx, s.Token)
	if err != nil {
		return nil, err
	}
	matched := listquery.Filter(winners, listquery.Winners, p.Search)
	listquery.Sort(matched, listquery.Winners, p.Sort, p.Dir)
	return matched, nil
}

func (a *adminService) QRCodes(ctx context.Context, s *session.Session, p listquery.Params) (listquery.Result[domain.QRCode], error) {
	codes, err := a.backend.QRCodes(ctx, s.Token)
	if err != nil {
		return listquery.Result[domain.QRCode]{}, err
	}
	return listquery.Query(codes, listquery.QRCodes, p), nil
}

// MarkDelivered sets the delivery date of a winner. The date is set at most
// once: a winner that already has one is refused without calling the backend.
func (a *adminService) MarkDelivered(ctx context.Context, s *session.Session, winnerID string) (*domain.DeliveryResult, error) {
	winnerID = strings.TrimSpace(winnerID)
	if winnerID == "" {
		return nil, domain.NewAppError(domain.CodeNotFound, WinnerNotFoundMessage, nil)
	}

	winners, err := a.backend.Winners(ctx, s.Token)
	if err != nil {
		return nil, err
	}
	var winner *domain.Winner
	for i := range winners {
		if winners[i].WinnerID.String() == winnerID {
			winner = &winners[i]
			break
		}
	}
	if winner == nil {
		return nil, domain.NewAppError(domain.CodeNotFound, WinnerNotFoundMessage, nil)
	}
	if winner.Delivered() {
		return nil, domain.NewAppError(domain.CodeAlreadyExists, AlreadyDeliveredMessage, nil)
	}

	res, err := a.backend.MarkDelivered(ctx, s.Token, winnerID)
	if err != nil {
		return nil, err
	}
	a.activity.Record(ctx, domain.ActionMarkDelivered, winnerID, s.Email,
		fmt.Sprintf("qr_code_id=%s delivery_date=%s", winner.QRCodeID, res.DeliveryDate))
	return res, nil
}

func (a *adminService) GenerateQRCodes(ctx context.Context, s *session.Session, prizeType, count string) (*domain.ActionResult, error) {
	prizeType = strings.TrimSpace(prizeType)
	if prizeType == "" {
		return nil, domain.NewAppError(domain.CodeValidation, PrizeTypeRequiredMessage, nil)
	}
	n, ok := parseCount(count)
	if !ok {
		return nil, domain.NewAppError(domain.CodeValidation, CountInvalidMessage, nil)
	}

	res, err := a.backend.GenerateQRCodes(ctx, s.Token, prizeType, n)
	if err != nil {
		return nil, err
	}
	a.activity.Record(ctx, domain.ActionGenerateCodes, prizeType, s.Email, fmt.Sprintf("count=%d", n))
	return res, nil
}

func (a *adminService) UpdatePrize(ctx context.Context, s *session.Session, qrCodeID, prizeType string) (*domain.ActionResult, error) {
	qrCodeID = strings.ToUpper(strings.TrimSpace(qrCodeID))
	prizeType = strings.TrimSpace(prizeType)
	if qrCodeID == "" {
		return nil, domain.NewAppError(domain.CodeValidation, CodeRequiredMessage, nil)
	}
	if prizeType == "" {
		return nil, domain.NewAppError(domain.CodeValidation, PrizeTypeRequiredMessage, nil)
	}

	res, err := a.backend.UpdatePrize(ctx, s.Token, qrCodeID, prizeType)
	if err != nil {
		return nil, err
	}
	a.activity.Record(ctx, domain.ActionUpdatePrize, qrCodeID, s.Email, "prize_type="+prizeType)
	return res, nil
}

// parseCount accepts digits only, greater than zero.
func parseCount(raw string) (int, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, false
	}
	for _, r := range raw {
		if r < '0' || r > '9' {
			return 0, false
		}
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n <= 0 {
		return 0, false
	}
	return n, true
}
