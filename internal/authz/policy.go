package authz

import (
	pkgerrors "github.com/mbwalabat/virtual-campus-tour-vcts/pkg/errors"

	"github.com/mbwalabat/virtual-campus-tour-vcts/internal/model"
)

// Action names an operation subject to policy.
type Action string

const (
	ActionReadUsers      Action = "user:read"
	ActionCreateUser     Action = "user:create"
	ActionUpdateUser     Action = "user:update"
	ActionDeleteUser     Action = "user:delete"
	ActionActivateUser   Action = "user:activate"
	ActionDeactivateUser Action = "user:deactivate"

	ActionCreateLocation       Action = "location:create"
	ActionUpdateLocation       Action = "location:update"
	ActionDeleteLocation       Action = "location:delete"
	ActionUploadLocationMedia  Action = "location:upload"
	ActionReadManagedLocations Action = "location:managed"
	ActionExportLocations      Action = "location:export"

	ActionWriteDepartment       Action = "department:write"
	ActionReadDepartmentMembers Action = "department:members"

	ActionSignUpload Action = "upload:sign"
)

// LocationTarget is the stored location being acted on.
type LocationTarget struct {
	ID         string
	Department string
}

// LocationChange carries the fields of an update that policy inspects.
type LocationChange struct {
	Department *string
}

// UserTarget is the user being acted on. For creates it describes the
// user as requested.
type UserTarget struct {
	ID         string
	Role       string
	Department *string
}

// UserChange carries the policy-relevant parts of a user create or update.
type UserChange struct {
	Role              *string
	Department        *string
	AssignedLocations bool // the request sets assignedLocations
	IsActive          *bool
}

// Request is one authorization question.
type Request struct {
	Action         Action
	Location       *LocationTarget
	LocationChange *LocationChange
	User           *UserTarget
	UserChange     *UserChange
}

// Authorize returns nil when actor may perform req, otherwise an
// Unauthorized or Forbidden error. Rules are evaluated in order and the
// first match decides.
func Authorize(actor Actor, req Request) error {
	if actor == nil {
		return pkgerrors.Unauthorized("Authentication required")
	}

	// A superAdmin is never removed, switched off or demoted, by anyone.
	// Demotion counts as removal since a demoted account can then be deleted.
	if targetsSuperAdmin(req) && removesUser(req) {
		return pkgerrors.Forbidden("Super admin accounts cannot be deleted, deactivated or demoted")
	}

	switch a := actor.(type) {
	case SuperAdmin:
		return nil
	case DepartmentAdmin:
		return authorizeDepartmentAdmin(a, req)
	default:
		return pkgerrors.Forbidden("Access denied")
	}
}

func authorizeDepartmentAdmin(a DepartmentAdmin, req Request) error {
	switch req.Action {
	case ActionCreateLocation:
		return pkgerrors.Forbidden("Only super admins can create locations")

	case ActionUpdateLocation, ActionDeleteLocation, ActionUploadLocationMedia:
		if req.Location == nil {
			return pkgerrors.Forbidden("Access denied")
		}
		if req.Action == ActionUpdateLocation && req.LocationChange != nil {
			if d := req.LocationChange.Department; d != nil && *d != req.Location.Department {
				return pkgerrors.Forbidden("Department admins cannot change a location's department")
			}
		}
		if !a.Assigned(req.Location.ID) {
			return pkgerrors.Forbidden("You can only manage locations assigned to you")
		}
		return nil

	case ActionCreateUser, ActionUpdateUser:
		return authorizeUserWrite(a, req)

	case ActionDeleteUser, ActionActivateUser, ActionDeactivateUser:
		return pkgerrors.Forbidden("Only super admins can delete users or change their status")

	case ActionReadUsers, ActionReadManagedLocations, ActionReadDepartmentMembers, ActionSignUpload:
		return nil
	}

	return pkgerrors.Forbidden("Access denied")
}

func authorizeUserWrite(a DepartmentAdmin, req Request) error {
	if req.User == nil {
		return pkgerrors.Forbidden("Access denied")
	}
	if req.User.Role == model.RoleSuperAdmin {
		return pkgerrors.Forbidden("Department admins cannot manage super admins")
	}
	if !sameDepartment(req.User.Department, a.Department) {
		return pkgerrors.Forbidden("You can only manage users in your department")
	}

	ch := req.UserChange
	if ch == nil {
		return nil
	}
	if ch.Role != nil && *ch.Role == model.RoleSuperAdmin {
		return pkgerrors.Forbidden("Department admins cannot grant the super admin role")
	}
	if ch.Department != nil && *ch.Department != a.Department {
		return pkgerrors.Forbidden("You can only manage users in your department")
	}
	if ch.AssignedLocations {
		return pkgerrors.Forbidden("Only super admins can assign locations")
	}
	if ch.IsActive != nil {
		return pkgerrors.Forbidden("Only super admins can activate or deactivate users")
	}
	return nil
}

func sameDepartment(d *string, dept string) bool {
	return d != nil && *d == dept
}

func targetsSuperAdmin(req Request) bool {
	return req.User != nil && req.User.Role == model.RoleSuperAdmin
}

func removesUser(req Request) bool {
	switch req.Action {
	case ActionDeleteUser, ActionDeactivateUser:
		return true
	case ActionUpdateUser:
		ch := req.UserChange
		if ch == nil {
			return false
		}
		if ch.IsActive != nil && !*ch.IsActive {
			return true
		}
		return ch.Role != nil && *ch.Role != model.RoleSuperAdmin
	}
	return false
}
