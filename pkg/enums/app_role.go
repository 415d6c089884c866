package enums

import "fmt"

// AppRole represents a platform-wide permissions role.
type AppRole string

const (
	AppRoleAdmin AppRole = "admin"
	AppRoleUser  AppRole = "user"
)

var validAppRoles = []AppRole{
	AppRoleAdmin,
	AppRoleUser,
}

// String implements fmt.Stringer.
func (r AppRole) String() string {
	return string(r)
}

// IsValid reports whether the value is a known AppRole.
func (r AppRole) IsValid() bool {
	for _, candidate := range validAppRoles {
		if candidate == r {
			return true
		}
	}
	return false
}

// ParseAppRole converts raw input into an AppRole.
func ParseAppRole(value string) (AppRole, error) {
	for _, candidate := range validAppRoles {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid app role %q", value)
}
