package dto

// ── department requests ──

// DepartmentListRequest GET /api/departments query.
type DepartmentListRequest struct {
	PaginationRequest
	Search   string `form:"search" binding:"omitempty,max=100"`
	IsActive *bool  `form:"isActive"`
}

// CreateDepartmentRequest POST /api/departments.
type CreateDepartmentRequest struct {
	Name        string  `json:"name"        binding:"required,min=2,max=100"`
	Description string  `json:"description" binding:"omitempty,max=500"`
	HeadID      *string `json:"headId"      binding:"omitempty,uuid"`
}

// UpdateDepartmentRequest PUT /api/departments/:id.
type UpdateDepartmentRequest struct {
	Name        *string `json:"name"        binding:"omitempty,min=2,max=100"`
	Description *string `json:"description" binding:"omitempty,max=500"`
	HeadID      *string `json:"headId"` // "" clears the head
	IsActive    *bool   `json:"isActive"`
}

// ── department responses ──

// DepartmentResponse department view.
type DepartmentResponse struct {
	ID          string   `json:"id"`
	Name        string   `json:"name"`
	Description string   `json:"description"`
	Head        *UserRef `json:"head,omitempty"`
	IsActive    bool     `json:"isActive"`
	CreatedAt   string   `json:"createdAt"`
	UpdatedAt   string   `json:"updatedAt"`
}

// DepartmentStat per-department counts.
type DepartmentStat struct {
	Department    string   `json:"department"`
	LocationCount int64    `json:"locationCount"`
	UserCount     int64    `json:"userCount"`
	Head          *UserRef `json:"head,omitempty"`
}

// DepartmentStatsResponse GET /api/departments/stats.
type DepartmentStatsResponse struct {
	TotalDepartments int64            `json:"totalDepartments"`
	DepartmentStats  []DepartmentStat `json:"departmentStats"`
}

// ── uploads ──

// SignUploadRequest POST /api/uploads/sign.
type SignUploadRequest struct {
	Folder string `json:"folder" binding:"omitempty,max=100,folder"`
}
