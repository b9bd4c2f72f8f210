package identity

import "strings"

// UserRole is the role embedded in issued tokens
type UserRole string

const (
	RoleUser  UserRole = "user"
	RoleAdmin UserRole = "admin"
)

// GetAllRoles returns all predefined roles in hierarchical order, lowest
// first.
func GetAllRoles() []UserRole {
	return []UserRole{
		RoleUser,
		RoleAdmin,
	}
}

// IsValid checks if the role is one of the predefined valid roles
func (r UserRole) IsValid() bool {
	return r.level() > 0
}

// IsAtLeast checks if this role meets the minimum required level
func (r UserRole) IsAtLeast(minRole UserRole) bool {
	current, required := r.level(), minRole.level()
	if current == 0 || required == 0 {
		return false
	}
	return current >= required
}

func (r UserRole) level() int {
	for i, role := range GetAllRoles() {
		if r == role {
			return i + 1
		}
	}
	return 0
}

// ParseRole parses a role claim or column value, ignoring case and
// surrounding space.
func ParseRole(roleStr string) (UserRole, bool) {
	role := UserRole(strings.ToLower(strings.TrimSpace(roleStr)))
	return role, role.IsValid()
}
