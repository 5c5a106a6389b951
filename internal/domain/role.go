package domain

// Role caller role resolved by the identity service
type Role string

const (
	RoleStudent Role = "student"
	RoleParent  Role = "parent"
	RoleTutor   Role = "tutor"
	RoleAdmin   Role = "admin"
)

// IsValid returns true for known roles
func (r Role) IsValid() bool {
	switch r {
	case RoleStudent, RoleParent, RoleTutor, RoleAdmin:
		return true
	}
	return false
}

// Caller verified (userId, role) pair
type Caller struct {
	UserID int64
	Role   Role
}

// IsAdmin returns true for administrators
func (c Caller) IsAdmin() bool {
	return c.Role == RoleAdmin
}
