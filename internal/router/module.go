package router

import "github.com/gin-gonic/gin"

// Module is one routable slice of the service (public auth routes, the
// authenticated account routes, debug). Each module attaches its own routes
// and per-route middleware under the shared /api group.
type Module interface {
	Register(rg *gin.RouterGroup)
}
