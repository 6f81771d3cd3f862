package modules

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/yogaswara/account-service/internal/container"
	handlers "github.com/yogaswara/account-service/internal/interface/http"
	"github.com/yogaswara/account-service/internal/interface/middleware"
	"github.com/yogaswara/account-service/pkg/helpers"
)

// AccountModule wires the authenticated account routes behind session auth.
type AccountModule struct {
	Handler  *handlers.AccountHandler
	Sessions *helpers.SessionManager
}

func NewAccountModule(h *handlers.AccountHandler, sessions *helpers.SessionManager) *AccountModule {
	return &AccountModule{Handler: h, Sessions: sessions}
}

func (m *AccountModule) Register(rg *gin.RouterGroup) {
	auth := rg.Group("/")
	auth.Use(middleware.Auth(container.GetRedis(), m.Sessions))
	auth.Use(
		middleware.RateLimit(container.GetRedis(), 300, time.Minute, middleware.KeyByIP(), nil),
		middleware.RateLimit(container.GetRedis(), 120, time.Minute, middleware.KeyByAccountID(), nil),
	)
	{
		auth.GET("/profile", m.Handler.GetProfile)
		auth.PUT("/profile", m.Handler.UpdateProfile)
		auth.GET("/profile/orders", m.Handler.ListOrders)
		auth.POST("/profile/avatar", m.Handler.UploadAvatar)
		auth.POST("/password/confirm", m.Handler.ConfirmPassword)
		auth.PUT("/password", m.Handler.UpdatePassword)
		auth.DELETE("/account", m.Handler.DeleteAccount)
		auth.POST("/logout", m.Handler.Logout)
		auth.GET("/accounts/search", m.Handler.Search)
	}
}
