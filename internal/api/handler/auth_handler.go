package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/mbwalabat/virtual-campus-tour-vcts/internal/dto"
	"github.com/mbwalabat/virtual-campus-tour-vcts/internal/service"
	"github.com/mbwalabat/virtual-campus-tour-vcts/pkg/response"
)

// AuthHandler account and session endpoints.
type AuthHandler struct {
	authSvc service.AuthService
}

// NewAuthHandler creates an AuthHandler.
func NewAuthHandler(authSvc service.AuthService) *AuthHandler {
	return &AuthHandler{authSvc: authSvc}
}

// Register self-registration.
// POST /api/auth/register
func (h *AuthHandler) Register(c *gin.Context) {
	var req dto.RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	result, err := h.authSvc.Register(c.Request.Context(), &req)
	if err != nil {
		respondError(c, err)
		return
	}

	response.Created(c, "User registered successfully", result)
}

// Login exchanges credentials for a token.
// POST /api/auth/login
func (h *AuthHandler) Login(c *gin.Context) {
	var req dto.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	result, err := h.authSvc.Login(c.Request.Context(), &req)
	if err != nil {
		respondError(c, err)
		return
	}

	response.OK(c, "Login successful", result)
}

// GetProfile GET /api/auth/profile
func (h *AuthHandler) GetProfile(c *gin.Context) {
	p, ok := MustGetPrincipal(c)
	if !ok {
		return
	}

	user, err := h.authSvc.GetProfile(c.Request.Context(), p.User.UserID)
	if err != nil {
		respondError(c, err)
		return
	}

	response.OK(c, "Profile retrieved successfully", user)
}

// UpdateProfile PUT /api/auth/profile
func (h *AuthHandler) UpdateProfile(c *gin.Context) {
	p, ok := MustGetPrincipal(c)
	if !ok {
		return
	}

	var req dto.UpdateProfileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	user, err := h.authSvc.UpdateProfile(c.Request.Context(), p.User.UserID, &req)
	if err != nil {
		respondError(c, err)
		return
	}

	response.OK(c, "Profile updated successfully", user)
}

// ChangePassword PUT /api/auth/change-password
func (h *AuthHandler) ChangePassword(c *gin.Context) {
	p, ok := MustGetPrincipal(c)
	if !ok {
		return
	}

	var req dto.ChangePasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	if err := h.authSvc.ChangePassword(c.Request.Context(), p.User.UserID, &req); err != nil {
		respondError(c, err)
		return
	}

	response.OK(c, "Password changed successfully", nil)
}

// Logout revokes the presented token.
// POST /api/auth/logout
func (h *AuthHandler) Logout(c *gin.Context) {
	p, ok := MustGetPrincipal(c)
	if !ok {
		return
	}

	if err := h.authSvc.Logout(c.Request.Context(), p.TokenID, p.ExpiresAt); err != nil {
		respondError(c, err)
		return
	}

	response.OK(c, "Logout successful", nil)
}
