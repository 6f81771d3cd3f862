package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/yogaswara/account-service/internal/application"
	"github.com/yogaswara/account-service/internal/interface/middleware"
	"github.com/yogaswara/account-service/pkg/helpers"
	"github.com/yogaswara/account-service/pkg/response"
	"github.com/yogaswara/account-service/pkg/validation"
)

// AccountHandler serves the authenticated account endpoints.
type AccountHandler struct {
	Svc     *application.Service
	Logger  *logrus.Logger
	Cookies *helpers.CookieManager
}

func NewAccountHandler(svc *application.Service, logger *logrus.Logger, cookieDomain string, cookieSecure bool) *AccountHandler {
	return &AccountHandler{Svc: svc, Logger: logger, Cookies: helpers.NewCookie(cookieDomain, cookieSecure)}
}

// GetProfile GET /api/profile
func (h *AccountHandler) GetProfile(c *gin.Context) {
	id := c.GetString(middleware.CtxAccountIDKey)
	a, err := h.Svc.GetProfile(c.Request.Context(), id)
	if err != nil {
		fail(c, err)
		return
	}
	response.Success(c, http.StatusOK, accountView(a), "profile", nil)
}

type updateProfileRequest struct {
	DisplayName string  `json:"display_name" binding:"required"`
	Email       *string `json:"email" binding:"omitempty,email"`
	Address     *string `json:"address"`
}

// UpdateProfile PUT /api/profile
// The payload is a full replacement: omitted email/address are cleared.
func (h *AccountHandler) UpdateProfile(c *gin.Context) {
	id := c.GetString(middleware.CtxAccountIDKey)
	var req updateProfileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error[any](c, http.StatusBadRequest, "invalid payload", validation.ToDetails(err))
		return
	}
	a, err := h.Svc.UpdateProfile(c.Request.Context(), id, application.UpdateProfileInput{
		DisplayName: req.DisplayName,
		Email:       req.Email,
		Address:     req.Address,
	})
	if err != nil {
		fail(c, err)
		return
	}
	response.Success(c, http.StatusOK, accountView(a), "profile updated", nil)
}

// ListOrders GET /api/profile/orders
func (h *AccountHandler) ListOrders(c *gin.Context) {
	id := c.GetString(middleware.CtxAccountIDKey)
	orders, err := h.Svc.ListOrders(c.Request.Context(), id)
	if err != nil {
		fail(c, err)
		return
	}
	response.Success(c, http.StatusOK, orders, "orders", map[string]any{"count": len(orders)})
}

type confirmPasswordRequest struct {
	Password string `json:"password" binding:"required"`
}

// ConfirmPassword POST /api/password/confirm
func (h *AccountHandler) ConfirmPassword(c *gin.Context) {
	id := c.GetString(middleware.CtxAccountIDKey)
	var req confirmPasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error[any](c, http.StatusBadRequest, "invalid payload", validation.ToDetails(err))
		return
	}
	if err := h.Svc.ConfirmPassword(c.Request.Context(), id, req.Password); err != nil {
		fail(c, err)
		return
	}
	response.Success[any](c, http.StatusOK, gin.H{"confirmed": true}, "password confirmed", nil)
}

type updatePasswordRequest struct {
	NewPassword string `json:"new_password" binding:"required,pwd"`
}

// UpdatePassword PUT /api/password
func (h *AccountHandler) UpdatePassword(c *gin.Context) {
	id := c.GetString(middleware.CtxAccountIDKey)
	var req updatePasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error[any](c, http.StatusBadRequest, "invalid payload", validation.ToDetails(err))
		return
	}
	if err := h.Svc.UpdatePassword(c.Request.Context(), id, req.NewPassword); err != nil {
		fail(c, err)
		return
	}
	response.Success[any](c, http.StatusOK, gin.H{"updated": true}, "password updated", nil)
}

// DeleteAccount DELETE /api/account
func (h *AccountHandler) DeleteAccount(c *gin.Context) {
	id := c.GetString(middleware.CtxAccountIDKey)
	res, err := h.Svc.DeleteAccount(c.Request.Context(), id)
	if err != nil {
		fail(c, err)
		return
	}
	h.Cookies.Clear(c)
	response.Success(c, http.StatusOK, gin.H{
		"orders_deleted":  res.OrdersDeleted,
		"account_deleted": res.AccountDeleted,
	}, "account deleted", nil)
}

// UploadAvatar POST /api/profile/avatar (multipart field "avatar")
func (h *AccountHandler) UploadAvatar(c *gin.Context) {
	id := c.GetString(middleware.CtxAccountIDKey)
	fh, err := c.FormFile("avatar")
	if err != nil {
		response.Error[any](c, http.StatusBadRequest, "avatar file is required", nil)
		return
	}
	f, err := fh.Open()
	if err != nil {
		response.Error[any](c, http.StatusBadRequest, "cannot read avatar file", nil)
		return
	}
	defer func() { _ = f.Close() }()

	url, err := h.Svc.UploadAvatar(c.Request.Context(), id, f, fh.Filename, fh.Header.Get("Content-Type"))
	if err != nil {
		fail(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"avatar_url": url}, "avatar uploaded", nil)
}

// Logout POST /api/logout
// Clears the cookie and revokes the server-side session record so the token
// cannot be replayed.
func (h *AccountHandler) Logout(c *gin.Context) {
	id := c.GetString(middleware.CtxAccountIDKey)
	if err := h.Svc.Logout(c.Request.Context(), id); err != nil {
		fail(c, err)
		return
	}
	h.Cookies.Clear(c)
	response.Success[any](c, http.StatusOK, gin.H{"logged_out": true}, "logged out", nil)
}

// Search GET /api/accounts/search?q=&size=
func (h *AccountHandler) Search(c *gin.Context) {
	q := c.Query("q")
	if q == "" {
		response.Error[any](c, http.StatusBadRequest, "q is required", nil)
		return
	}
	size, _ := strconv.Atoi(c.DefaultQuery("size", "10"))
	hits, err := h.Svc.SearchAccounts(c.Request.Context(), q, size)
	if err != nil {
		response.Error[any](c, http.StatusInternalServerError, "search failed", nil)
		return
	}
	response.Success(c, http.StatusOK, hits, "search results", map[string]any{"count": len(hits)})
}
