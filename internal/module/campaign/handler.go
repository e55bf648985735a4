package campaign

import (
	"github.com/gin-gonic/gin"

	"github.com/simp-lee/qrpromo/internal/domain"
	"github.com/simp-lee/qrpromo/internal/pkg"
)

// Handler serves the JSON twins of the participant pages.
type Handler struct {
	svc Service
}

// NewHandler creates a Handler.
func NewHandler(svc Service) *Handler {
	return &Handler{svc: svc}
}

// Scan checks a code.
// POST /api/v1/scan
func (h *Handler) Scan(c *gin.Context) {
	var req ScanRequest
	if !pkg.BindAndValidate(c, &req) {
		return
	}

	code, res, err := h.svc.Scan(c.Request.Context(), req.Code, c.Request.UserAgent())
	if err != nil {
		pkg.Error(c, err)
		return
	}
	pkg.Success(c, ScanResponse{QRCodeID: code, Message: res.Message, Outcome: res.Outcome})
}

// Claim submits a winner's details.
// POST /api/v1/claim
func (h *Handler) Claim(c *gin.Context) {
	var req ClaimRequest
	if !pkg.BindAndValidate(c, &req) {
		return
	}

	res, err := h.svc.Claim(c.Request.Context(), req.toClaim())
	if err != nil {
		pkg.Error(c, err)
		return
	}
	pkg.Success(c, res)
}

func (r ClaimRequest) toClaim() domain.Claim {
	return domain.Claim{
		QRCodeID: r.QRCodeID,
		Name:     r.Name,
		Phone:    string(r.Phone),
		Email:    r.Email,
	}
}
