// Package authz decides whether an authenticated actor may perform an
// action on a user or location. It performs no I/O.
package authz

import (
	"fmt"

	"github.com/mbwalabat/virtual-campus-tour-vcts/internal/model"
)

// Actor is the authenticated caller. Exactly one of SuperAdmin,
// DepartmentAdmin or Visitor; a nil Actor is an anonymous caller.
type Actor interface {
	ActorID() string
	Role() string
	isActor()
}

// SuperAdmin may do anything except remove another superAdmin.
type SuperAdmin struct {
	ID string
}

// DepartmentAdmin manages its department's users and its assigned locations.
type DepartmentAdmin struct {
	ID                string
	Department        string
	Faculty           string
	AssignedLocations []string
}

// Visitor is a plain registered user.
type Visitor struct {
	ID string
}

func (a SuperAdmin) ActorID() string      { return a.ID }
func (a DepartmentAdmin) ActorID() string { return a.ID }
func (a Visitor) ActorID() string         { return a.ID }

func (SuperAdmin) Role() string      { return model.RoleSuperAdmin }
func (DepartmentAdmin) Role() string { return model.RoleDepartmentAdmin }
func (Visitor) Role() string         { return model.RoleUser }

func (SuperAdmin) isActor()      {}
func (DepartmentAdmin) isActor() {}
func (Visitor) isActor()         {}

// Assigned reports whether locationID is in the admin's assignment list.
func (a DepartmentAdmin) Assigned(locationID string) bool {
	for _, id := range a.AssignedLocations {
		if id == locationID {
			return true
		}
	}
	return false
}

// ActorFor builds the actor for a stored user. A record that breaks the
// role/affiliation rule is rejected rather than guessed at.
func ActorFor(u *model.User) (Actor, error) {
	if u == nil {
		return nil, nil
	}
	switch u.Role {
	case model.RoleSuperAdmin:
		return SuperAdmin{ID: u.UserID}, nil
	case model.RoleDepartmentAdmin:
		if u.Department == nil || u.Faculty == nil {
			return nil, fmt.Errorf("user %s: department admin without department or faculty", u.UserID)
		}
		assigned := make([]string, len(u.AssignedLocations))
		copy(assigned, u.AssignedLocations)
		return DepartmentAdmin{
			ID:                u.UserID,
			Department:        *u.Department,
			Faculty:           *u.Faculty,
			AssignedLocations: assigned,
		}, nil
	case model.RoleUser:
		return Visitor{ID: u.UserID}, nil
	default:
		return nil, fmt.Errorf("user %s: unknown role %q", u.UserID, u.Role)
	}
}

// IsAdmin reports whether a is a superAdmin or departmentAdmin.
func IsAdmin(a Actor) bool {
	switch a.(type) {
	case SuperAdmin, DepartmentAdmin:
		return true
	}
	return false
}
