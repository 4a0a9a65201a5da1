package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/mbwalabat/virtual-campus-tour-vcts/internal/dto"
	"github.com/mbwalabat/virtual-campus-tour-vcts/internal/service"
	"github.com/mbwalabat/virtual-campus-tour-vcts/pkg/response"
)

// UserHandler user administration endpoints.
type UserHandler struct {
	userSvc service.UserService
}

// NewUserHandler creates a UserHandler.
func NewUserHandler(userSvc service.UserService) *UserHandler {
	return &UserHandler{userSvc: userSvc}
}

// List GET /api/users
func (h *UserHandler) List(c *gin.Context) {
	var req dto.UserListRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		respondBindError(c, err)
		return
	}

	page, err := h.userSvc.List(c.Request.Context(), actorFrom(c), &req)
	if err != nil {
		respondError(c, err)
		return
	}

	response.OK(c, "Users retrieved successfully", gin.H{
		"users":      page.Items,
		"pagination": page.Pagination,
	})
}

// Stats GET /api/users/stats
func (h *UserHandler) Stats(c *gin.Context) {
	stats, err := h.userSvc.Stats(c.Request.Context(), actorFrom(c))
	if err != nil {
		respondError(c, err)
		return
	}

	response.OK(c, "User statistics retrieved successfully", stats)
}

// GetByID GET /api/users/:id
func (h *UserHandler) GetByID(c *gin.Context) {
	user, err := h.userSvc.GetByID(c.Request.Context(), actorFrom(c), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}

	response.OK(c, "User retrieved successfully", user)
}

// Create POST /api/users
func (h *UserHandler) Create(c *gin.Context) {
	var req dto.CreateUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	user, err := h.userSvc.Create(c.Request.Context(), actorFrom(c), &req)
	if err != nil {
		respondError(c, err)
		return
	}

	response.Created(c, "User created successfully", user)
}

// Update PUT /api/users/:id
func (h *UserHandler) Update(c *gin.Context) {
	var req dto.UpdateUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	user, err := h.userSvc.Update(c.Request.Context(), actorFrom(c), c.Param("id"), &req)
	if err != nil {
		respondError(c, err)
		return
	}

	response.OK(c, "User updated successfully", user)
}

// MakeActive PUT /api/users/:id/active
func (h *UserHandler) MakeActive(c *gin.Context) {
	h.setActive(c, true, "User marked as active")
}

// MakeInactive PUT /api/users/:id/inactive
func (h *UserHandler) MakeInactive(c *gin.Context) {
	h.setActive(c, false, "User marked as inactive")
}

func (h *UserHandler) setActive(c *gin.Context, active bool, msg string) {
	user, err := h.userSvc.SetActive(c.Request.Context(), actorFrom(c), c.Param("id"), active)
	if err != nil {
		respondError(c, err)
		return
	}

	response.OK(c, msg, user)
}

// Delete DELETE /api/users/:id
func (h *UserHandler) Delete(c *gin.Context) {
	if err := h.userSvc.Delete(c.Request.Context(), actorFrom(c), c.Param("id")); err != nil {
		respondError(c, err)
		return
	}

	response.OK(c, "User deleted successfully", nil)
}
