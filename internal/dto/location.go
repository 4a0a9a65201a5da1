package dto

// ── location requests ──

// Coordinates latitude/longitude pair. Pointers so that 0 is a valid value.
type Coordinates struct {
	Latitude  *float64 `json:"latitude"  binding:"required,gte=-90,lte=90"`
	Longitude *float64 `json:"longitude" binding:"required,gte=-180,lte=180"`
}

// LocationListRequest GET /api/locations query.
type LocationListRequest struct {
	PaginationRequest
	Department string `form:"department" binding:"omitempty,max=100"`
	Search     string `form:"search"     binding:"omitempty,max=100"`
	IsActive   *bool  `form:"isActive"`
}

// CreateLocationRequest POST /api/locations.
type CreateLocationRequest struct {
	Name        string      `json:"name"        binding:"required,min=2,max=200"`
	Description string      `json:"description" binding:"required,min=10,max=1000"`
	Department  string      `json:"department"  binding:"required,min=1,max=100"`
	Category    string      `json:"category"    binding:"omitempty,oneof=academic administration research accommodation dining recreation events"`
	Coordinates Coordinates `json:"coordinates" binding:"required"`
	Images      []string    `json:"images"      binding:"omitempty,max=20,dive,mediaurl=images"`
	Audio       *string     `json:"audio"       binding:"omitempty,mediaurl=audio"`
	Video       *string     `json:"video"       binding:"omitempty,mediaurl=video"`
	View360     *string     `json:"view360"     binding:"omitempty,mediaurl=view360"`
}

// UpdateLocationRequest PUT /api/locations/:id. Nil fields are left unchanged.
type UpdateLocationRequest struct {
	Name        *string      `json:"name"        binding:"omitempty,min=2,max=200"`
	Description *string      `json:"description" binding:"omitempty,min=10,max=1000"`
	Department  *string      `json:"department"  binding:"omitempty,min=1,max=100"`
	Category    *string      `json:"category"    binding:"omitempty,oneof=academic administration research accommodation dining recreation events"`
	Coordinates *Coordinates `json:"coordinates" binding:"omitempty"`
	Images      []string     `json:"images"      binding:"omitempty,max=20,dive,mediaurl=images"`
	Audio       *string      `json:"audio"       binding:"omitempty,mediaurl=audio"`
	Video       *string      `json:"video"       binding:"omitempty,mediaurl=video"`
	View360     *string      `json:"view360"     binding:"omitempty,mediaurl=view360"`
	IsActive    *bool        `json:"isActive"`
}

// ── location responses ──

// CoordinatesResponse coordinates view.
type CoordinatesResponse struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// LocationResponse location view.
type LocationResponse struct {
	ID          string              `json:"id"`
	Name        string              `json:"name"`
	Description string              `json:"description"`
	Department  string              `json:"department"`
	Category    string              `json:"category"`
	Coordinates CoordinatesResponse `json:"coordinates"`
	Images      []string            `json:"images"`
	Audio       *string             `json:"audio,omitempty"`
	Video       *string             `json:"video,omitempty"`
	View360     *string             `json:"view360,omitempty"`
	IsActive    bool                `json:"isActive"`
	CreatedBy   *UserRef            `json:"createdBy,omitempty"`
	CreatedAt   string              `json:"createdAt"`
	UpdatedAt   string              `json:"updatedAt"`
}

// LocationStatsResponse GET /api/locations/stats.
type LocationStatsResponse struct {
	TotalLocations         int64        `json:"totalLocations"`
	DepartmentDistribution []CountByKey `json:"departmentDistribution"`
}

// UploadMediaResponse POST /api/locations/:id/upload.
type UploadMediaResponse struct {
	Location LocationResponse    `json:"location"`
	Uploaded map[string][]string `json:"uploaded"`
}
