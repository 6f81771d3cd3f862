package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/yogaswara/account-service/internal/application"
	"github.com/yogaswara/account-service/internal/domain/entity"
	"github.com/yogaswara/account-service/pkg/apperr"
	"github.com/yogaswara/account-service/pkg/helpers"
	"github.com/yogaswara/account-service/pkg/response"
	"github.com/yogaswara/account-service/pkg/validation"
)

// AuthHandler serves the public credential endpoints: registration, login and
// the password reset flow.
type AuthHandler struct {
	Svc     *application.Service
	Logger  *logrus.Logger
	Cookies *helpers.CookieManager
}

func NewAuthHandler(svc *application.Service, logger *logrus.Logger, cookieDomain string, cookieSecure bool) *AuthHandler {
	return &AuthHandler{Svc: svc, Logger: logger, Cookies: helpers.NewCookie(cookieDomain, cookieSecure)}
}

// fail maps a service error onto the response envelope unchanged.
func fail(c *gin.Context, err error) {
	response.Error[any](c, apperr.HTTPStatus(apperr.KindOf(err)), apperr.Message(err), nil)
}

func accountView(a *entity.Account) gin.H {
	return gin.H{
		"id":           a.ID,
		"display_name": a.DisplayName,
		"phone":        a.Phone,
		"email":        a.Email,
		"address":      a.Address,
		"role":         a.Role,
		"avatar_url":   a.AvatarURL,
		"has_password": a.HasPassword(),
		"created_at":   a.CreatedAt,
		"updated_at":   a.UpdatedAt,
	}
}

type registerGuestRequest struct {
	Phone       string `json:"phone" binding:"required,phone"`
	DisplayName string `json:"display_name"`
	Address     string `json:"address"`
}

// RegisterGuest POST /api/register/guest
func (h *AuthHandler) RegisterGuest(c *gin.Context) {
	var req registerGuestRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error[any](c, http.StatusBadRequest, "invalid payload", validation.ToDetails(err))
		return
	}
	a, err := h.Svc.RegisterGuest(c.Request.Context(), req.Phone, req.DisplayName, req.Address)
	if err != nil {
		fail(c, err)
		return
	}
	response.Success(c, http.StatusOK, accountView(a), "registered", nil)
}

type registerFullRequest struct {
	Phone       string `json:"phone" binding:"omitempty,phone"`
	DisplayName string `json:"display_name" binding:"required"`
	Password    string `json:"password" binding:"required,pwd"`
}

// RegisterFull POST /api/register
func (h *AuthHandler) RegisterFull(c *gin.Context) {
	var req registerFullRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error[any](c, http.StatusBadRequest, "invalid payload", validation.ToDetails(err))
		return
	}
	a, sess, err := h.Svc.RegisterFull(c.Request.Context(), req.Phone, req.DisplayName, req.Password)
	if err != nil {
		fail(c, err)
		return
	}
	h.Cookies.SetSession(c, sess.Token, sess.Expiry)
	response.Success(c, http.StatusCreated, gin.H{
		"account":       accountView(a),
		"session_token": sess.Token,
	}, "account created", map[string]any{"session_expires_at": sess.Expiry})
}

type loginRequest struct {
	Phone    string `json:"phone" binding:"required,phone"`
	Password string `json:"password" binding:"required"`
}

// Login POST /api/login
func (h *AuthHandler) Login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error[any](c, http.StatusBadRequest, "invalid payload", validation.ToDetails(err))
		return
	}
	res, err := h.Svc.Login(c.Request.Context(), req.Phone, req.Password)
	if err != nil {
		fail(c, err)
		return
	}
	if res.NoPassword {
		response.Success(c, http.StatusOK, gin.H{
			"account": accountView(res.Account),
		}, res.Message, nil)
		return
	}
	h.Cookies.SetSession(c, res.Session.Token, res.Session.Expiry)
	response.Success(c, http.StatusOK, gin.H{
		"account":       accountView(res.Account),
		"session_token": res.Session.Token,
	}, "login successful", map[string]any{"session_expires_at": res.Session.Expiry})
}

type resetInitRequest struct {
	Email string `json:"email" binding:"required,email"`
}

// ResetInit POST /api/auth/reset/init
func (h *AuthHandler) ResetInit(c *gin.Context) {
	var req resetInitRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error[any](c, http.StatusBadRequest, "invalid payload", validation.ToDetails(err))
		return
	}
	d, err := h.Svc.RequestReset(c.Request.Context(), req.Email)
	if err != nil {
		fail(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{
		"response": d.Response,
		"accepted": d.Accepted,
	}, "reset token sent", nil)
}

type resetConfirmRequest struct {
	Token       string `json:"token" binding:"required,len=32,hexadecimal"`
	NewPassword string `json:"new_password" binding:"required,pwd"`
}

// ResetConfirm POST /api/auth/reset/confirm
func (h *AuthHandler) ResetConfirm(c *gin.Context) {
	var req resetConfirmRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error[any](c, http.StatusBadRequest, "invalid payload", validation.ToDetails(err))
		return
	}
	a, err := h.Svc.ConsumeReset(c.Request.Context(), req.Token, req.NewPassword)
	if err != nil {
		fail(c, err)
		return
	}
	if h.Logger != nil {
		h.Logger.WithField("account_id", a.ID).Info("password reset completed")
	}
	response.Success[any](c, http.StatusOK, gin.H{"reset": true}, "password updated", nil)
}
