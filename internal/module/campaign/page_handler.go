package campaign

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"

	"github.com/simp-lee/qrpromo/internal/backend"
	"github.com/simp-lee/qrpromo/internal/domain"
	"github.com/simp-lee/qrpromo/internal/middleware"
	"github.com/simp-lee/qrpromo/internal/pkg"
)

const claimedMessage = "Your prize has been claimed successfully!"

// claimFieldMessages replaces the generic rule messages for claim fields,
// keyed by struct field name. Missing values keep the generic message.
var claimFieldMessages = map[string]struct{ key, msg string }{
	"Name":  {"name", InvalidNameMessage},
	"Phone": {"phone", InvalidPhoneMessage},
	"Email": {"email", InvalidEmailMessage},
}

// PageHandler serves the participant pages and their htmx fragments.
type PageHandler struct {
	svc Service
	cfg Config
}

// NewPageHandler creates a PageHandler.
func NewPageHandler(svc Service, cfg Config) *PageHandler {
	return &PageHandler{svc: svc, cfg: cfg}
}

// Landing renders the code entry page, or the ended page once the promotion
// is over.
// GET /
func (h *PageHandler) Landing(c *gin.Context) {
	if !h.svc.Active() {
		c.HTML(http.StatusOK, "campaign/ended.html", gin.H{
			"Title": "Promoción finalizada",
		})
		return
	}
	c.HTML(http.StatusOK, "campaign/landing.html", h.data(c, gin.H{}))
}

// Scan checks a code and renders the verdict. A WINNER verdict includes the
// claim form.
// POST /scan
func (h *PageHandler) Scan(c *gin.Context) {
	if !h.svc.Active() {
		h.backToLanding(c)
		return
	}

	var req ScanRequest
	if err := c.ShouldBind(&req); err != nil {
		slog.DebugContext(c.Request.Context(), "scan: bind error", slog.Any("error", err))
	}

	code, res, err := h.svc.Scan(c.Request.Context(), req.Code, c.Request.UserAgent())
	if err != nil {
		h.render(c, gin.H{
			"Code":  code,
			"Error": domain.UserMessage(err, backend.DefaultErrorMessage),
		})
		return
	}

	h.render(c, gin.H{
		"Code":    code,
		"Message": res.Message,
		"Outcome": res.Outcome,
		"Claim":   domain.Claim{QRCodeID: code},
	})
}

// Claim submits the winner's details. Errors keep the form on screen with
// the typed values.
// POST /claim
func (h *PageHandler) Claim(c *gin.Context) {
	if !h.svc.Active() {
		h.backToLanding(c)
		return
	}

	var req ClaimRequest
	bindErr := c.ShouldBind(&req)
	claim := req.toClaim()
	claim.QRCodeID = NormalizeCode(claim.QRCodeID)

	formData := gin.H{
		"Code":    claim.QRCodeID,
		"Outcome": domain.OutcomeWinner,
		"Claim":   claim,
	}

	if bindErr != nil {
		slog.DebugContext(c.Request.Context(), "claim: bind error", slog.Any("error", bindErr))
		fields := claimFieldErrors(bindErr, &req)
		if len(fields) == 0 {
			formData["Error"] = backend.DefaultErrorMessage
		}
		formData["FieldErrors"] = fields
		h.render(c, formData)
		return
	}

	res, err := h.svc.Claim(c.Request.Context(), claim)
	if err != nil {
		formData["Error"] = domain.UserMessage(err, backend.DefaultErrorMessage)
		h.render(c, formData)
		return
	}

	msg := res.Message
	if msg == "" {
		msg = claimedMessage
	}
	pkg.SetToast(c, msg, "success")
	h.render(c, gin.H{
		"Code":    claim.QRCodeID,
		"Outcome": domain.OutcomeWinner,
		"Message": msg,
		"Claimed": true,
		"Claim":   claim,
	})
}

// render answers htmx with the result fragment and plain form posts with the
// whole landing page.
func (h *PageHandler) render(c *gin.Context, data gin.H) {
	name := "campaign/result.html"
	if !pkg.IsHTMX(c) {
		name = "campaign/landing.html"
	}
	c.HTML(http.StatusOK, name, h.data(c, data))
}

func (h *PageHandler) data(c *gin.Context, data gin.H) gin.H {
	data["Title"] = "Promotion"
	data["Placeholder"] = h.cfg.Placeholder()
	data["CodeLength"] = h.cfg.CodeLength
	data["CSRFToken"] = middleware.GetCSRFToken(c)
	return data
}

func (h *PageHandler) backToLanding(c *gin.Context) {
	if pkg.IsHTMX(c) {
		c.Header("HX-Redirect", "/")
		c.Status(http.StatusOK)
		return
	}
	c.Redirect(http.StatusSeeOther, "/")
}

func claimFieldErrors(err error, req *ClaimRequest) map[string]string {
	fields, ok := pkg.FieldErrors(err, req)
	if !ok {
		return nil
	}
	var ve validator.ValidationErrors
	if errors.As(err, &ve) {
		for _, fe := range ve {
			if fe.Tag() == "required" {
				continue
			}
			if m, ok := claimFieldMessages[fe.StructField()]; ok {
				fields[m.key] = m.msg
			}
		}
	}
	return fields
}
