package app

import "github.com/gin-gonic/gin"

// Module is a feature area (campaign, auth, admin, activity) that mounts its
// own handlers. api is /api/v1 and answers JSON; pages is / behind the CSRF
// check. Admin modules attach their session guard to the routes they add.
type Module interface {
	RegisterRoutes(api *gin.RouterGroup, pages *gin.RouterGroup)
}
