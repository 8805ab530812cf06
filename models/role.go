package models

import "fmt"

// Permission bits stored in the collaborators table.
// 4 = may change collaborators
// 2 = may write
// 1 = may read
const (
	PermissionManage = 4
	PermissionWrite  = 2
	PermissionRead   = 1
)

// Role is the named access level exposed at the API boundary.
type Role string

const (
	RoleManage Role = "manage"
	RoleEdit   Role = "edit"
	RoleView   Role = "view"
	RoleNone   Role = "none"
)

// ErrInvalidRole is returned by RoleBits for any symbol outside the
// fixed role enumeration.
var ErrInvalidRole = fmt.Errorf("invalid role")

// roleOrder lists the roles in descending power, used when resolving
// a permission value back to a role.
var roleOrder = []Role{RoleManage, RoleEdit, RoleView, RoleNone}

var roleBits = map[Role]int{
	RoleManage: PermissionManage | PermissionWrite | PermissionRead,
	RoleEdit:   PermissionWrite | PermissionRead,
	RoleView:   PermissionRead,
	RoleNone:   0,
}

// RoleBits converts a named role to its permission bits.
func RoleBits(role Role) (int, error) {
	bits, ok := roleBits[role]
	if !ok {
		return 0, fmt.Errorf("%w: %q", ErrInvalidRole, role)
	}
	return bits, nil
}

// RoleFromBits converts stored permission bits back to a role. Exact
// matches resolve directly; any other value resolves to the highest
// role whose bits are all present, falling back to none. Total over
// all integers.
func RoleFromBits(bits int) Role {
	for _, role := range roleOrder {
		if required := roleBits[role]; bits&required == required {
			return role
		}
	}
	return RoleNone
}

// ValidRole reports whether role is one of the named access levels.
func ValidRole(role Role) bool {
	_, ok := roleBits[role]
	return ok
}

// RoleNames returns the accepted role names for error messages.
func RoleNames() []string {
	names := make([]string, 0, len(roleOrder))
	for _, role := range roleOrder {
		names = append(names, string(role))
	}
	return names
}
