package admin

import (
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/simp-lee/qrpromo/internal/domain"
	"github.com/simp-lee/qrpromo/internal/listquery"
	"github.com/simp-lee/qrpromo/internal/middleware"
	"github.com/simp-lee/qrpromo/internal/pkg"
	"github.com/simp-lee/qrpromo/internal/session"
)

// Handler serves the admin JSON API.
type Handler struct {
	svc      Service
	sessions *session.Manager
	limits   pkg.PageLimits
}

// NewHandler creates a Handler.
func NewHandler(svc Service, sessions *session.Manager, limits pkg.PageLimits) *Handler {
	return &Handler{svc: svc, sessions: sessions, limits: limits}
}

// Reports returns the campaign totals.
// GET /api/v1/admin/reports
func (h *Handler) Reports(c *gin.Context) {
	s, ok := h.session(c)
	if !ok {
		return
	}
	reports, err := h.svc.Reports(c.Request.Context(), s)
	if err != nil {
		h.fail(c, err)
		return
	}
	pkg.Success(c, reports)
}

// Winners returns one page of winners.
// GET /api/v1/admin/winners
func (h *Handler) Winners(c *gin.Context) {
	s, ok := h.session(c)
	if !ok {
		return
	}
	result, err := h.svc.Winners(c.Request.Context(), s, winnerParams(c, h.limits))
	if err != nil {
		h.fail(c, err)
		return
	}
	pkg.List(c, result)
}

// QRCodes returns one page of QR codes.
// GET /api/v1/admin/qr-codes
func (h *Handler) QRCodes(c *gin.Context) {
	s, ok := h.session(c)
	if !ok {
		return
	}
	result, err := h.svc.QRCodes(c.Request.Context(), s, qrCodeParams(c, h.limits))
	if err != nil {
		h.fail(c, err)
		return
	}
	pkg.List(c, result)
}

// MarkDelivered sets a winner's delivery date.
// POST /api/v1/admin/winners/:id/delivery
func (h *Handler) MarkDelivered(c *gin.Context) {
	s, ok := h.session(c)
	if !ok {
		return
	}
	res, err := h.svc.MarkDelivered(c.Request.Context(), s, c.Param("id"))
	if err != nil {
		h.fail(c, err)
		return
	}
	pkg.Success(c, res)
}

// GenerateQRCodes creates new codes.
// POST /api/v1/admin/qr-codes
func (h *Handler) GenerateQRCodes(c *gin.Context) {
	s, ok := h.session(c)
	if !ok {
		return
	}
	var req GenerateQRCodesRequest
	if !pkg.BindAndValidate(c, &req) {
		return
	}
	res, err := h.svc.GenerateQRCodes(c.Request.Context(), s, req.PrizeType, strconv.Itoa(req.Count))
	if err != nil {
		h.fail(c, err)
		return
	}
	pkg.Success(c, res)
}

// UpdatePrize changes the prize of a code.
// PUT /api/v1/admin/qr-codes/:id
func (h *Handler) UpdatePrize(c *gin.Context) {
	s, ok := h.session(c)
	if !ok {
		return
	}
	var req UpdatePrizeRequest
	if !pkg.BindAndValidate(c, &req) {
		return
	}
	res, err := h.svc.UpdatePrize(c.Request.Context(), s, c.Param("id"), req.PrizeType)
	if err != nil {
		h.fail(c, err)
		return
	}
	pkg.Success(c, res)
}

func (h *Handler) session(c *gin.Context) (*session.Session, bool) {
	s, ok := middleware.CurrentSession(c)
	if !ok {
		pkg.Error(c, domain.ErrUnauthorized)
		return nil, false
	}
	return s, true
}

// fail writes err. A backend 401 means the token is no longer accepted, so
// the session cookie goes too.
func (h *Handler) fail(c *gin.Context, err error) {
	if domain.IsUnauthorized(err) {
		h.sessions.Clear(c)
	}
	pkg.Error(c, err)
}

func winnerParams(c *gin.Context, limits pkg.PageLimits) listquery.Params {
	s := listquery.Winners
	return pkg.ParseQueryParams(c, s.SortFields(), s.DefaultSort, s.DefaultDir, limits)
}

func qrCodeParams(c *gin.Context, limits pkg.PageLimits) listquery.Params {
	s := listquery.QRCodes
	return pkg.ParseQueryParams(c, s.SortFields(), s.DefaultSort, s.DefaultDir, limits)
}
