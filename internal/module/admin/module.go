package admin

import "github.com/gin-gonic/gin"

// Module implements the app.Module interface for the admin panel.
type Module struct {
	handler     *Handler
	pageHandler *PageHandler
	apiGuard    gin.HandlerFunc
	pageGuard   gin.HandlerFunc
}

// NewModule creates a Module. The guards run before every API and page
// route respectively. Panics if any argument is nil.
func NewModule(h *Handler, ph *PageHandler, apiGuard, pageGuard gin.HandlerFunc) *Module {
	if h == nil {
		panic("admin.NewModule: handler must not be nil")
	}
	if ph == nil {
		panic("admin.NewModule: pageHandler must not be nil")
	}
	if apiGuard == nil || pageGuard == nil {
		panic("admin.NewModule: guards must not be nil")
	}
	return &Module{handler: h, pageHandler: ph, apiGuard: apiGuard, pageGuard: pageGuard}
}

// RegisterRoutes registers admin API and page routes.
func (m *Module) RegisterRoutes(api *gin.RouterGroup, pages *gin.RouterGroup) {
	a := api.Group("/admin", m.apiGuard)
	a.GET("/reports", m.handler.Reports)
	a.GET("/winners", m.handler.Winners)
	a.POST("/winners/:id/delivery", m.handler.MarkDelivered)
	a.GET("/qr-codes", m.handler.QRCodes)
	a.POST("/qr-codes", m.handler.GenerateQRCodes)
	a.PUT("/qr-codes/:id", m.handler.UpdatePrize)

	p := pages.Group("/admin", m.pageGuard)
	p.GET("", m.pageHandler.Dashboard)
	p.GET("/winners", m.pageHandler.WinnersTable)
	p.GET("/winners.csv", m.pageHandler.ExportWinners)
	p.POST("/winners/:id/delivery", m.pageHandler.MarkDelivered)
	p.GET("/qr-codes", m.pageHandler.QRCodesTable)
	p.GET("/create", m.pageHandler.CreatePage)
	p.POST("/create", m.pageHandler.Create)
	p.GET("/update", m.pageHandler.UpdatePage)
	p.POST("/update", m.pageHandler.Update)
}
