package activity

import "github.com/gin-gonic/gin"

// Module implements the app.Module interface for the audit trail.
type Module struct {
	handler *Handler
	guard   gin.HandlerFunc
}

// NewModule creates a Module. guard protects every route; it is normally
// middleware.RequireSession in API mode. Panics if h or guard is nil.
func NewModule(h *Handler, guard gin.HandlerFunc) *Module {
	if h == nil {
		panic("activity.NewModule: handler must not be nil")
	}
	if guard == nil {
		panic("activity.NewModule: guard must not be nil")
	}
	return &Module{handler: h, guard: guard}
}

// RegisterRoutes registers the activity API. The dashboard renders recent
// entries itself, so there are no page routes.
func (m *Module) RegisterRoutes(api *gin.RouterGroup, _ *gin.RouterGroup) {
	api.GET("/admin/activity", m.guard, m.handler.List)
}
