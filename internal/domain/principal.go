package domain

import "slices"

// Role is an authorization claim held by a principal.
type Role string

const (
	// RoleCardOwner is required for every cash card operation.
	RoleCardOwner Role = "CARD-OWNER"
	RoleNonOwner  Role = "NON-OWNER"
)

// Principal is an authenticated actor.
type Principal struct {
	ID    PrincipalID
	Roles []Role
}

func (p Principal) HasRole(r Role) bool {
	return slices.Contains(p.Roles, r)
}
