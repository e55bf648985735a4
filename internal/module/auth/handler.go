package auth

import (
	"github.com/gin-gonic/gin"

	"github.com/simp-lee/qrpromo/internal/pkg"
)

// Handler serves the JSON sign-in endpoint.
type Handler struct {
	svc Service
}

// NewHandler creates a Handler with the given service.
func NewHandler(svc Service) *Handler {
	return &Handler{svc: svc}
}

// Login handles POST /api/v1/auth/login. The token in the reply is sent back
// as "Authorization: Bearer <token>" on admin API calls.
func (h *Handler) Login(c *gin.Context) {
	var req LoginRequest
	if !pkg.BindAndValidate(c, &req) {
		return
	}

	sess, err := h.svc.Login(c.Request.Context(), req.Username, req.Password)
	if err != nil {
		pkg.Error(c, err)
		return
	}

	pkg.Success(c, TokenResponse{
		Token:     sess.Token,
		Email:     sess.Email,
		ExpiresAt: sess.ExpiresAt,
	})
}
