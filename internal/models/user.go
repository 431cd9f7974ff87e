package models

// Role is the access level carried in an identity token
type Role string

const (
	RoleUser  Role = "user"
	RoleAdmin Role = "admin"
)

// Identity is the caller as described by a validated token. Accounts live
// with the external identity provider; only the claims reach this service.
type Identity struct {
	UserID string `json:"user_id"`
	Email  string `json:"email"`
	Role   Role   `json:"role"`
}

// IsAdmin checks if the identity has the admin role
func (i Identity) IsAdmin() bool {
	return i.Role == RoleAdmin
}
