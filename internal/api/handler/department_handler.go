package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/mbwalabat/virtual-campus-tour-vcts/internal/dto"
	"github.com/mbwalabat/virtual-campus-tour-vcts/internal/service"
	"github.com/mbwalabat/virtual-campus-tour-vcts/pkg/response"
)

// DepartmentHandler department endpoints.
type DepartmentHandler struct {
	deptSvc service.DepartmentService
}

// NewDepartmentHandler creates a DepartmentHandler.
func NewDepartmentHandler(deptSvc service.DepartmentService) *DepartmentHandler {
	return &DepartmentHandler{deptSvc: deptSvc}
}

// List GET /api/departments
func (h *DepartmentHandler) List(c *gin.Context) {
	var req dto.DepartmentListRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		respondBindError(c, err)
		return
	}

	page, err := h.deptSvc.List(c.Request.Context(), &req)
	if err != nil {
		respondError(c, err)
		return
	}

	response.OK(c, "Departments retrieved successfully", gin.H{
		"departments": page.Items,
		"pagination":  page.Pagination,
	})
}

// Stats GET /api/departments/stats
func (h *DepartmentHandler) Stats(c *gin.Context) {
	stats, err := h.deptSvc.Stats(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}

	response.OK(c, "Department statistics retrieved successfully", stats)
}

// GetByID GET /api/departments/:id
func (h *DepartmentHandler) GetByID(c *gin.Context) {
	dept, err := h.deptSvc.GetByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}

	response.OK(c, "Department retrieved successfully", dept)
}

// Create POST /api/departments
func (h *DepartmentHandler) Create(c *gin.Context) {
	var req dto.CreateDepartmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	dept, err := h.deptSvc.Create(c.Request.Context(), actorFrom(c), &req)
	if err != nil {
		respondError(c, err)
		return
	}

	response.Created(c, "Department created successfully", dept)
}

// Update PUT /api/departments/:id
func (h *DepartmentHandler) Update(c *gin.Context) {
	var req dto.UpdateDepartmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	dept, err := h.deptSvc.Update(c.Request.Context(), actorFrom(c), c.Param("id"), &req)
	if err != nil {
		respondError(c, err)
		return
	}

	response.OK(c, "Department updated successfully", dept)
}

// Delete DELETE /api/departments/:id
func (h *DepartmentHandler) Delete(c *gin.Context) {
	if err := h.deptSvc.Delete(c.Request.Context(), actorFrom(c), c.Param("id")); err != nil {
		respondError(c, err)
		return
	}

	response.OK(c, "Department deleted successfully", nil)
}

// Users GET /api/departments/:id/users
func (h *DepartmentHandler) Users(c *gin.Context) {
	var req dto.PaginationRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		respondBindError(c, err)
		return
	}

	page, err := h.deptSvc.Users(c.Request.Context(), actorFrom(c), c.Param("id"), &req)
	if err != nil {
		respondError(c, err)
		return
	}

	response.OK(c, "Department users retrieved successfully", gin.H{
		"users":      page.Items,
		"pagination": page.Pagination,
	})
}

// Locations GET /api/departments/:id/locations
func (h *DepartmentHandler) Locations(c *gin.Context) {
	var req dto.PaginationRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		respondBindError(c, err)
		return
	}

	page, err := h.deptSvc.Locations(c.Request.Context(), actorFrom(c), c.Param("id"), &req)
	if err != nil {
		respondError(c, err)
		return
	}

	response.OK(c, "Department locations retrieved successfully", gin.H{
		"locations":  page.Items,
		"pagination": page.Pagination,
	})
}
