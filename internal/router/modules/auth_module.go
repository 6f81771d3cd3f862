package modules

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/yogaswara/account-service/internal/container"
	handlers "github.com/yogaswara/account-service/internal/interface/http"
	"github.com/yogaswara/account-service/internal/interface/middleware"
)

// AuthModule wires the public credential routes.
// POST /api/register, /api/register/guest, /api/login,
// /api/auth/reset/init, /api/auth/reset/confirm
type AuthModule struct {
	Handler *handlers.AuthHandler
}

func NewAuthModule(h *handlers.AuthHandler) *AuthModule {
	return &AuthModule{Handler: h}
}

func (m *AuthModule) Register(rg *gin.RouterGroup) {
	registerLimiter := middleware.RateLimit(container.GetRedis(), 10, time.Minute, middleware.KeyByIPAndPath(), nil)
	loginLimiter := middleware.RateLimit(container.GetRedis(), 10, time.Minute, middleware.KeyByIP(), nil)
	resetInitLimiter := middleware.RateLimit(container.GetRedis(), 5, time.Minute, middleware.KeyByIPAndPath(), nil)
	resetConfirmLimiter := middleware.RateLimit(container.GetRedis(), 30, time.Minute, middleware.KeyByIPAndPath(), nil)

	rg.POST("/register", registerLimiter, m.Handler.RegisterFull)
	rg.POST("/register/guest", registerLimiter, m.Handler.RegisterGuest)
	rg.POST("/login", loginLimiter, m.Handler.Login)
	rg.POST("/auth/reset/init", resetInitLimiter, m.Handler.ResetInit)
	rg.POST("/auth/reset/confirm", resetConfirmLimiter, m.Handler.ResetConfirm)
}
