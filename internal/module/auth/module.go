package auth

import "github.com/gin-gonic/gin"

// Module implements the app.Module interface for admin sign-in.
type Module struct {
	handler     *Handler
	pageHandler *PageHandler
}

// NewModule creates a Module. Panics if h or ph is nil.
func NewModule(h *Handler, ph *PageHandler) *Module {
	if h == nil {
		panic("auth.NewModule: handler must not be nil")
	}
	if ph == nil {
		panic("auth.NewModule: pageHandler must not be nil")
	}
	return &Module{handler: h, pageHandler: ph}
}

// RegisterRoutes registers auth API and page routes.
func (m *Module) RegisterRoutes(api *gin.RouterGroup, pages *gin.RouterGroup) {
	api.POST("/auth/login", m.handler.Login)

	pages.GET("/admin/login", m.pageHandler.LoginPage)
	pages.POST("/admin/login", m.pageHandler.Login)
	pages.POST("/admin/logout", m.pageHandler.Logout)
}
