package admin

import (
	"encoding/csv"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/simp-lee/qrpromo/internal/backend"
	"github.com/simp-lee/qrpromo/internal/domain"
	"github.com/simp-lee/qrpromo/internal/listquery"
	"github.com/simp-lee/qrpromo/internal/middleware"
	"github.com/simp-lee/qrpromo/internal/pkg"
	"github.com/simp-lee/qrpromo/internal/session"
)

// Fallback messages when the backend gives no usable one.
const (
	reportsErrorMessage  = "Failed to fetch admin reports"
	deliveryErrorMessage = "Failed to update delivery date."
	createErrorMessage   = "Error creating QR Code"
	updateErrorMessage   = "Error updating QR Code"
	deliveredMessage     = "Prize marked as delivered."
)

var csvHeader = []string{"QR Code", "Name", "Email", "Phone", "Prize", "Claimed Date", "Delivered", "Delivered Date"}

// PageHandler serves the admin pages and their htmx fragments.
type PageHandler struct {
	svc      Service
	sessions *session.Manager
	limits   pkg.PageLimits
	loc      *time.Location
}

// NewPageHandler creates a PageHandler. loc is the display time zone for
// exported timestamps.
func NewPageHandler(svc Service, sessions *session.Manager, limits pkg.PageLimits, loc *time.Location) *PageHandler {
	if loc == nil {
		loc = time.UTC
	}
	return &PageHandler{svc: svc, sessions: sessions, limits: limits, loc: loc}
}

// Dashboard renders the stats, the selected panel and recent activity.
// GET /admin
func (h *PageHandler) Dashboard(c *gin.Context) {
	s, ok := h.session(c)
	if !ok {
		return
	}

	panel := NormalizePanel(c.Query("panel"))
	params := winnerParams(c, h.limits)
	if panel == PanelQRCodes {
		params = qrCodeParams(c, h.limits)
	}

	d, err := h.svc.Dashboard(c.Request.Context(), s, panel, params)
	if err != nil {
		if h.toLogin(c, err) {
			return
		}
		slog.WarnContext(c.Request.Context(), "dashboard load failed", slog.Any("error", err))
		d = &Dashboard{Panel: panel, Params: params, Activity: []domain.Activity{}}
		c.HTML(http.StatusOK, "admin/dashboard.html", h.data(c, gin.H{
			"Title":     "Admin Dashboard",
			"Dashboard": d,
			"Error":     domain.UserMessage(err, reportsErrorMessage),
		}))
		return
	}

	c.HTML(http.StatusOK, "admin/dashboard.html", h.data(c, gin.H{
		"Title":     "Admin Dashboard",
		"Dashboard": d,
	}))
}

// WinnersTable renders the winners table fragment. Plain requests land on
// the dashboard with the winners panel open.
// GET /admin/winners
func (h *PageHandler) WinnersTable(c *gin.Context) {
	params := winnerParams(c, h.limits)
	if !pkg.IsHTMX(c) {
		c.Redirect(http.StatusSeeOther, panelURL(PanelWinners, params))
		return
	}
	h.renderWinners(c, params)
}

// QRCodesTable renders the QR codes table fragment.
// GET /admin/qr-codes
func (h *PageHandler) QRCodesTable(c *gin.Context) {
	params := qrCodeParams(c, h.limits)
	if !pkg.IsHTMX(c) {
		c.Redirect(http.StatusSeeOther, panelURL(PanelQRCodes, params))
		return
	}

	s, ok := h.session(c)
	if !ok {
		return
	}
	result, err := h.svc.QRCodes(c.Request.Context(), s, params)
	if err != nil {
		if h.toLogin(c, err) {
			return
		}
		pkg.SetToast(c, domain.UserMessage(err, backend.DefaultErrorMessage), "error")
		c.Status(http.StatusNoContent)
		return
	}
	c.HTML(http.StatusOK, "admin/qrcodes_table.html", h.data(c, gin.H{
		"QRCodes": result,
		"Params":  params,
	}))
}

// MarkDelivered marks a prize delivered and re-renders the winners table
// with the query state carried in the request URL.
// POST /admin/winners/:id/delivery
func (h *PageHandler) MarkDelivered(c *gin.Context) {
	s, ok := h.session(c)
	if !ok {
		return
	}
	params := winnerParams(c, h.limits)

	_, err := h.svc.MarkDelivered(c.Request.Context(), s, c.Param("id"))
	if err != nil {
		if h.toLogin(c, err) {
			return
		}
		pkg.SetToast(c, domain.UserMessage(err, deliveryErrorMessage), "error")
	} else {
		pkg.SetToast(c, deliveredMessage, "success")
	}

	if !pkg.IsHTMX(c) {
		c.Redirect(http.StatusSeeOther, panelURL(PanelWinners, params))
		return
	}
	h.renderWinners(c, params)
}

// ExportWinners streams every winner matching the current search and sort
// as CSV.
// GET /admin/winners.csv
func (h *PageHandler) ExportWinners(c *gin.Context) {
	s, ok := h.session(c)
	if !ok {
		return
	}
	params := winnerParams(c, h.limits)

	winners, err := h.svc.ExportWinners(c.Request.Context(), s, params)
	if err != nil {
		if h.toLogin(c, err) {
			return
		}
		slog.WarnContext(c.Request.Context(), "winners export failed", slog.Any("error", err))
		c.Redirect(http.StatusSeeOther, panelURL(PanelWinners, params))
		return
	}

	filename := "winners-" + time.Now().In(h.loc).Format("20060102") + ".csv"
	c.Header("Content-Type", "text/csv; charset=utf-8")
	c.Header("Content-Disposition", `attachment; filename="`+filename+`"`)
	c.Status(http.StatusOK)

	w := csv.NewWriter(c.Writer)
	if err := w.Write(csvHeader); err != nil {
		slog.WarnContext(c.Request.Context(), "winners export write failed", slog.Any("error", err))
		return
	}
	for _, winner := range winners {
		record := []string{
			winner.QRCodeID.String(),
			winner.Name,
			winner.Email,
			winner.Phone,
			winner.PrizeType,
			domain.FormatTimestamp(winner.ClaimedAt, h.loc),
			listquery.DeliveryLabel(winner),
			domain.FormatTimestamp(winner.DeliveredAt(), h.loc),
		}
		if err := w.Write(record); err != nil {
			slog.WarnContext(c.Request.Context(), "winners export write failed", slog.Any("error", err))
			return
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		slog.WarnContext(c.Request.Context(), "winners export flush failed", slog.Any("error", err))
	}
}

// CreatePage renders the code generation form.
// GET /admin/create
func (h *PageHandler) CreatePage(c *gin.Context) {
	h.renderCreate(c, GenerateForm{}, "", "")
}

// Create generates codes.
// POST /admin/create
func (h *PageHandler) Create(c *gin.Context) {
	s, ok := h.session(c)
	if !ok {
		return
	}
	var form GenerateForm
	if err := c.ShouldBind(&form); err != nil {
		slog.DebugContext(c.Request.Context(), "create: bind error", slog.Any("error", err))
	}

	res, err := h.svc.GenerateQRCodes(c.Request.Context(), s, form.PrizeType, form.Count)
	if err != nil {
		if h.toLogin(c, err) {
			return
		}
		h.renderCreate(c, form, "", domain.UserMessage(err, createErrorMessage))
		return
	}
	pkg.SetToast(c, res.Message, "success")
	h.renderCreate(c, GenerateForm{}, res.Message, "")
}

// UpdatePage renders the prize update form.
// GET /admin/update
func (h *PageHandler) UpdatePage(c *gin.Context) {
	h.renderUpdate(c, UpdateForm{QRCodeID: c.Query("qr_code_id")}, "", "")
}

// Update changes a code's prize.
// POST /admin/update
func (h *PageHandler) Update(c *gin.Context) {
	s, ok := h.session(c)
	if !ok {
		return
	}
	var form UpdateForm
	if err := c.ShouldBind(&form); err != nil {
		slog.DebugContext(c.Request.Context(), "update: bind error", slog.Any("error", err))
	}

	res, err := h.svc.UpdatePrize(c.Request.Context(), s, form.QRCodeID, form.PrizeType)
	if err != nil {
		if h.toLogin(c, err) {
			return
		}
		h.renderUpdate(c, form, "", domain.UserMessage(err, updateErrorMessage))
		return
	}
	pkg.SetToast(c, res.Message, "success")
	h.renderUpdate(c, UpdateForm{}, res.Message, "")
}

func (h *PageHandler) renderWinners(c *gin.Context, params listquery.Params) {
	s, ok := h.session(c)
	if !ok {
		return
	}
	result, err := h.svc.Winners(c.Request.Context(), s, params)
	if err != nil {
		if h.toLogin(c, err) {
			return
		}
		pkg.SetToast(c, domain.UserMessage(err, backend.DefaultErrorMessage), "error")
		c.Status(http.StatusNoContent)
		return
	}
	c.HTML(http.StatusOK, "admin/winners_table.html", h.data(c, gin.H{
		"Winners": result,
		"Params":  params,
	}))
}

func (h *PageHandler) renderCreate(c *gin.Context, form GenerateForm, message, errMsg string) {
	c.HTML(http.StatusOK, "admin/create.html", h.data(c, gin.H{
		"Title":   "Create QR Code",
		"Form":    form,
		"Message": message,
		"Error":   errMsg,
	}))
}

func (h *PageHandler) renderUpdate(c *gin.Context, form UpdateForm, message, errMsg string) {
	c.HTML(http.StatusOK, "admin/update.html", h.data(c, gin.H{
		"Title":   "Update QR Code",
		"Form":    form,
		"Message": message,
		"Error":   errMsg,
	}))
}

func (h *PageHandler) data(c *gin.Context, data gin.H) gin.H {
	data["Admin"] = middleware.Actor(c)
	data["CSRFToken"] = middleware.GetCSRFToken(c)
	data["Path"] = c.Request.URL.Path
	return data
}

func (h *PageHandler) session(c *gin.Context) (*session.Session, bool) {
	s, ok := middleware.CurrentSession(c)
	if !ok {
		middleware.RedirectToLogin(c)
		return nil, false
	}
	return s, true
}

// toLogin handles a backend 401: the session is dropped and the admin sent
// back to the login form. It reports whether it did so.
func (h *PageHandler) toLogin(c *gin.Context, err error) bool {
	if !domain.IsUnauthorized(err) {
		return false
	}
	h.sessions.Clear(c)
	middleware.RedirectToLogin(c)
	return true
}

func panelURL(panel string, p listquery.Params) string {
	v := pkg.EncodeQueryParams(p)
	v.Set("panel", panel)
	return "/admin?" + v.Encode()
}
