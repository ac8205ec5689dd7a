package handlers

import (
	"net/http"

	"mentorhub_backend/internal/logger"
	"mentorhub_backend/internal/services"
	"mentorhub_backend/internal/services/dto"

	"github.com/gin-gonic/gin"
)

type AuthHandler struct {
	*BaseHandler
	authService     services.AuthService
	identityService services.IdentityService
}

func NewAuthHandler(base *BaseHandler, authService services.AuthService, identityService services.IdentityService) *AuthHandler {
	return &AuthHandler{
		BaseHandler:     base,
		authService:     authService,
		identityService: identityService,
	}
}

// RegisterRoutes регистрирует маршруты аутентификации.
// Публичная часть не требует токена, приватная получает authMW.
func (h *AuthHandler) RegisterRoutes(rg *gin.RouterGroup, authMW gin.HandlerFunc) {
	auth := rg.Group("/auth")
	{
		auth.POST("/login", h.Login)
		auth.POST("/refresh", h.RefreshToken)
		auth.POST("/logout", h.Logout)
		auth.POST("/password-reset/request", h.RequestPasswordReset)
		auth.POST("/password-reset/confirm", h.ResetPassword)
	}

	authed := rg.Group("/auth")
	authed.Use(authMW)
	{
		authed.GET("/me", h.Me)
		authed.POST("/change-password", h.ChangePassword)
	}
}

func (h *AuthHandler) Login(c *gin.Context) {
	var req dto.LoginRequest
	if !h.BindAndValidate_JSON(c, &req) {
		return
	}

	db := h.GetDB(c)

	response, err := h.authService.Login(db, &req)
	if err != nil {
		h.HandleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, response)
}

func (h *AuthHandler) RefreshToken(c *gin.Context) {
	var req dto.RefreshRequest
	if !h.BindAndValidate_JSON(c, &req) {
		return
	}

	db := h.GetDB(c)

	response, err := h.authService.RefreshToken(db, req.RefreshToken)
	if err != nil {
		h.HandleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, response)
}

func (h *AuthHandler) Logout(c *gin.Context) {
	var req dto.LogoutRequest
	if !h.BindAndValidate_JSON(c, &req) {
		return
	}

	db := h.GetDB(c)

	if err := h.authService.Logout(db, req.RefreshToken); err != nil {
		h.HandleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Successfully logged out",
	})
}

func (h *AuthHandler) RequestPasswordReset(c *gin.Context) {
	var req dto.ForgotPasswordRequest
	if !h.BindAndValidate_JSON(c, &req) {
		return
	}

	db := h.GetDB(c)

	// Ответ всегда одинаковый: существование email не раскрываем
	if err := h.authService.RequestPasswordReset(db, req.Email); err != nil {
		logger.CtxWarn(c.Request.Context(), "Password reset request failed (hiding from user)",
			"error", err.Error(),
		)
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "If the email exists, a password reset link has been sent",
	})
}

func (h *AuthHandler) ResetPassword(c *gin.Context) {
	var req dto.ResetPasswordRequest
	if !h.BindAndValidate_JSON(c, &req) {
		return
	}

	db := h.GetDB(c)

	if err := h.authService.ResetPassword(db, req.Token, req.NewPassword); err != nil {
		h.HandleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Password successfully reset",
	})
}

func (h *AuthHandler) ChangePassword(c *gin.Context) {
	identity, ok := h.GetAndAuthorizeIdentity(c)
	if !ok {
		return
	}

	var req dto.ChangePasswordRequest
	if !h.BindAndValidate_JSON(c, &req) {
		return
	}

	db := h.GetDB(c)

	if err := h.authService.ChangePassword(db, identity, &req); err != nil {
		h.HandleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Password successfully changed",
	})
}

func (h *AuthHandler) Me(c *gin.Context) {
	identity, ok := h.GetAndAuthorizeIdentity(c)
	if !ok {
		return
	}

	db := h.GetDB(c)

	resp := dto.IdentityResponseFrom(identity)
	if email, err := h.identityService.EmailFor(db, identity); err == nil {
		resp.Email = email
	}

	c.JSON(http.StatusOK, resp)
}
