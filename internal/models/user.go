package models

import "strings"

type UserRole string
type Role = UserRole

const (
	RoleAdmin      UserRole = "admin"
	RoleSuperAdmin UserRole = "super_admin"
	RolePrincipal  UserRole = "principal"
	RoleTeacher    UserRole = "teacher"
	RoleParent     UserRole = "parent"
)

// ParseRole maps an external role string onto the internal role set.
// super_admin collapses to admin; unknown values map to parent, the least privileged role.
func ParseRole(value string) UserRole {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "admin", "administrator", "super_admin", "superadmin":
		return RoleAdmin
	case "principal", "director", "headmaster":
		return RolePrincipal
	case "teacher", "instructor", "educator":
		return RoleTeacher
	default:
		return RoleParent
	}
}

// Identity is the authenticated caller attached to a request by the auth gate.
type Identity struct {
	UserID      string   `json:"userId"`
	Username    string   `json:"username"`
	Role        UserRole `json:"role"`
	Tenant      string   `json:"tenant,omitempty"`
	Permissions []string `json:"permissions,omitempty"`
}

func (i *Identity) IsAdmin() bool {
	return i != nil && (i.Role == RoleAdmin || i.Role == RoleSuperAdmin)
}

// HasTokenPermission reports whether the permission was granted directly in the token.
func (i *Identity) HasTokenPermission(p Permission) bool {
	if i == nil {
		return false
	}
	for _, granted := range i.Permissions {
		if granted == string(p) {
			return true
		}
	}
	return false
}
