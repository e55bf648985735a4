package campaign

import "github.com/gin-gonic/gin"

// Module implements the app.Module interface for the participant pages.
type Module struct {
	handler     *Handler
	pageHandler *PageHandler
}

// NewModule creates a Module. Panics if h or ph is nil.
func NewModule(h *Handler, ph *PageHandler) *Module {
	if h == nil {
		panic("campaign.NewModule: handler must not be nil")
	}
	if ph == nil {
		panic("campaign.NewModule: pageHandler must not be nil")
	}
	return &Module{handler: h, pageHandler: ph}
}

// RegisterRoutes registers the participant API and page routes.
func (m *Module) RegisterRoutes(api *gin.RouterGroup, pages *gin.RouterGroup) {
	api.POST("/scan", m.handler.Scan)
	api.POST("/claim", m.handler.Claim)

	pages.GET("/", m.pageHandler.Landing)
	pages.POST("/scan", m.pageHandler.Scan)
	pages.POST("/claim", m.pageHandler.Claim)
}
