package user

import "time"

// Role classifies a marketplace user.
type Role string

const (
	RoleProvider      Role = "provider"
	RoleAdministrator Role = "administrator"
	RoleSeller        Role = "seller"
)

// User is a minimal projection of a marketplace user. Authentication lives
// outside the engine; only ownership and the administrator lookup need it.
type User struct {
	ID        string
	Name      string
	Role      Role
	CreatedAt time.Time
	UpdatedAt time.Time
}
