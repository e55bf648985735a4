package activity

import (
	"github.com/gin-gonic/gin"

	"github.com/simp-lee/qrpromo/internal/listquery"
	"github.com/simp-lee/qrpromo/internal/pkg"
)

// Handler serves the audit trail API.
type Handler struct {
	svc    *Service
	limits pkg.PageLimits
}

// NewHandler creates a Handler. limits bound page_size.
func NewHandler(svc *Service, limits pkg.PageLimits) *Handler {
	return &Handler{svc: svc, limits: limits}
}

// List handles GET /api/v1/admin/activity.
func (h *Handler) List(c *gin.Context) {
	p := pkg.ParseQueryParams(c, sortFields, "created_at", listquery.Desc, h.limits)

	result, err := h.svc.List(c.Request.Context(), p)
	if err != nil {
		pkg.Error(c, err)
		return
	}
	pkg.List(c, result)
}
