// Package identity models the contract with the external identity
// collaborator. The service never stores credentials; it only consumes
// an authenticated user id and role.
package identity

import "github.com/google/uuid"

type Role string

const (
	RoleUser  Role = "user"
	RoleAdmin Role = "admin"
)

func (r Role) String() string {
	return string(r)
}

func (r Role) IsValid() bool {
	switch r {
	case RoleUser, RoleAdmin:
		return true
	default:
		return false
	}
}

// User is the current caller as resolved by the identity provider.
type User struct {
	ID   uuid.UUID
	Role Role
}
