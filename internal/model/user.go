package model

import "time"

// Roles.
const (
	RoleUser            = "user"
	RoleDepartmentAdmin = "departmentAdmin"
	RoleSuperAdmin      = "superAdmin"
)

// ValidRole reports whether r is a known role.
func ValidRole(r string) bool {
	switch r {
	case RoleUser, RoleDepartmentAdmin, RoleSuperAdmin:
		return true
	}
	return false
}

// User maps the users table.
type User struct {
	UserID            string      `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"id"`
	Name              string      `gorm:"type:varchar(100);not null"                     json:"name"`
	Email             string      `gorm:"type:varchar(255);not null"                     json:"email"`
	PasswordHash      string      `gorm:"type:varchar(255);not null"                     json:"-"`
	Role              string      `gorm:"type:varchar(20);not null;default:'user'"       json:"role"`
	Department        *string     `gorm:"type:varchar(100)"                              json:"department,omitempty"`
	Faculty           *string     `gorm:"type:varchar(100)"                              json:"faculty,omitempty"`
	AssignedLocations StringArray `gorm:"type:text[];not null;default:'{}'"              json:"assignedLocations"`
	IsActive          bool        `gorm:"not null"                                       json:"isActive"`
	LastLogin         *time.Time  `json:"lastLogin,omitempty"`
	BaseModel
}

// TableName table name.
func (User) TableName() string { return "users" }

// IsSuperAdmin reports whether the user holds the superAdmin role.
func (u *User) IsSuperAdmin() bool { return u.Role == RoleSuperAdmin }

// CheckAffiliation reports the first violation of the role/affiliation rule
// as a field name and message, or empty strings when the record is valid.
func (u *User) CheckAffiliation() (field, msg string) {
	if u.Role == RoleDepartmentAdmin {
		if u.Department == nil || *u.Department == "" {
			return "department", "Department is required for department admins"
		}
		if u.Faculty == nil || *u.Faculty == "" {
			return "faculty", "Faculty is required for department admins"
		}
		return "", ""
	}
	if u.Department != nil {
		return "department", "Department can only be set for department admins"
	}
	if u.Faculty != nil {
		return "faculty", "Faculty can only be set for department admins"
	}
	return "", ""
}

// NormalizeAffiliation clears affiliation fields that only department
// admins carry. Call after a role change away from departmentAdmin.
func (u *User) NormalizeAffiliation() {
	if u.Role == RoleDepartmentAdmin {
		return
	}
	u.Department = nil
	u.Faculty = nil
	u.AssignedLocations = StringArray{}
}
