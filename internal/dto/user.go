package dto

// ── user requests ──

// UserListRequest GET /api/users query.
type UserListRequest struct {
	PaginationRequest
	Role       string `form:"role"       binding:"omitempty,oneof=user departmentAdmin superAdmin"`
	Department string `form:"department" binding:"omitempty,max=100"`
	Search     string `form:"search"     binding:"omitempty,max=100"`
	IsActive   *bool  `form:"isActive"`
}

// CreateUserRequest admin user creation.
type CreateUserRequest struct {
	Name              string   `json:"name"              binding:"required,min=2,max=100"`
	Email             string   `json:"email"             binding:"required,email"`
	Password          string   `json:"password"          binding:"required,min=6,max=72"`
	Role              string   `json:"role"              binding:"omitempty,oneof=user departmentAdmin superAdmin"`
	Department        *string  `json:"department"        binding:"omitempty,min=1,max=100"`
	Faculty           *string  `json:"faculty"           binding:"omitempty,min=1,max=100"`
	AssignedLocations []string `json:"assignedLocations" binding:"omitempty"`
	IsActive          *bool    `json:"isActive"`
}

// UpdateUserRequest partial admin update. Nil fields are left unchanged.
type UpdateUserRequest struct {
	Name              *string   `json:"name"              binding:"omitempty,min=2,max=100"`
	Email             *string   `json:"email"             binding:"omitempty,email"`
	Role              *string   `json:"role"              binding:"omitempty,oneof=user departmentAdmin superAdmin"`
	Department        *string   `json:"department"        binding:"omitempty,min=1,max=100"`
	Faculty           *string   `json:"faculty"           binding:"omitempty,min=1,max=100"`
	AssignedLocations *[]string `json:"assignedLocations" binding:"omitempty"`
	IsActive          *bool     `json:"isActive"`
}

// ── user responses ──

// UserResponse public user view. The password hash is never included.
type UserResponse struct {
	ID                string   `json:"id"`
	Name              string   `json:"name"`
	Email             string   `json:"email"`
	Role              string   `json:"role"`
	Department        *string  `json:"department,omitempty"`
	Faculty           *string  `json:"faculty,omitempty"`
	AssignedLocations []string `json:"assignedLocations"`
	IsActive          bool     `json:"isActive"`
	LastLogin         *string  `json:"lastLogin,omitempty"`
	CreatedAt         string   `json:"createdAt"`
	UpdatedAt         string   `json:"updatedAt"`
}

// UserRef is an embedded user summary.
type UserRef struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

// UserStatsResponse GET /api/users/stats.
type UserStatsResponse struct {
	TotalUsers       int64        `json:"totalUsers"`
	RoleDistribution []CountByKey `json:"roleDistribution"`
}
