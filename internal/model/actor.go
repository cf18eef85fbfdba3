package model

import "github.com/google/uuid"

// Role identifies who is performing an operation. Every service entry
// point takes an explicit Actor instead of reading an ambient session.
type Role string

const (
	RolePatient       Role = "patient"
	RoleSpecialist    Role = "specialist"
	RoleAdministrator Role = "administrator"
	// RoleSystem labels actions not attributable to a signed-in user,
	// e.g. notifications fanned out by a background process.
	RoleSystem Role = "system"
)

// Valid reports whether r is one of the roles the permission matrix knows.
func (r Role) Valid() bool {
	switch r {
	case RolePatient, RoleSpecialist, RoleAdministrator, RoleSystem:
		return true
	}
	return false
}

// Actor is the authenticated identity a request runs as.
// ID is the account id; ProfileID is the patient or specialist row the
// account is linked to, uuid.Nil for administrators.
type Actor struct {
	ID        uuid.UUID `json:"id"`
	Role      Role      `json:"role"`
	ProfileID uuid.UUID `json:"profile_id"`
}

// IsAdmin reports whether the actor may bypass participant checks.
func (a Actor) IsAdmin() bool {
	return a.Role == RoleAdministrator
}
