package model

import (
	"fmt"

	"github.com/google/uuid"
)

// Role is the closed set of actor roles the scheduler recognizes. The
// identity service supplies the role; this core only dispatches on it.
type Role string

const (
	RolePatient      Role = "patient"
	RoleDoctor       Role = "doctor"
	RoleReceptionist Role = "receptionist"
	RoleAdmin        Role = "admin"
)

func ParseRole(s string) (Role, error) {
	switch Role(s) {
	case RolePatient, RoleDoctor, RoleReceptionist, RoleAdmin:
		return Role(s), nil
	}
	return "", fmt.Errorf("unknown role %q", s)
}

// IsStaff reports whether the role may drive clinical transitions
// (in_progress, completed, no_show).
func (r Role) IsStaff() bool {
	switch r {
	case RoleDoctor, RoleReceptionist, RoleAdmin:
		return true
	case RolePatient:
		return false
	}
	return false
}

// Actor is the authenticated caller as supplied by the identity collaborator.
type Actor struct {
	ID   uuid.UUID
	Role Role
}
