package enums

import "strings"

// UserRole is user_role_enum.
type UserRole string

const (
	UserRoleUser  UserRole = "user"
	UserRoleAdmin UserRole = "admin"
)

func (r UserRole) IsValid() bool { return r == UserRoleUser || r == UserRoleAdmin }

// ParseUserRole is case and whitespace insensitive.
func ParseUserRole(raw string) (UserRole, error) {
	return parse("user role", strings.ToLower(strings.TrimSpace(raw)), []UserRole{UserRoleUser, UserRoleAdmin})
}
