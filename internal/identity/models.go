package identity

import (
	id "registre/pkg/domain"
)

// Role gates every workflow and access-rights decision.
type Role string

const (
	RoleReceptionist Role = "RECEPTIONIST"
	RoleAgent        Role = "AGENT"
	RoleDirector     Role = "DIRECTOR"
	RoleAdmin        Role = "ADMIN"
	RoleVisitor      Role = "VISITOR"
)

// Valid reports whether r is a known role.
func (r Role) Valid() bool {
	switch r {
	case RoleReceptionist, RoleAgent, RoleDirector, RoleAdmin, RoleVisitor:
		return true
	}
	return false
}

// Elevated reports whether the role carries implicit access to every item.
func (r Role) Elevated() bool {
	return r == RoleAdmin || r == RoleDirector
}

// User is immutable reference data, created at provisioning time and never
// mutated by the workflow.
type User struct {
	ID        id.UserID `json:"id"`
	FirstName string    `json:"first_name"`
	LastName  string    `json:"last_name"`
	Email     string    `json:"email"`
	Role      Role      `json:"role"`
	// Service is the organizational unit; empty for ADMIN.
	Service string `json:"service,omitempty"`
}

// DisplayName renders the user the way timeline and transfer views show it.
func (u User) DisplayName() string {
	return u.FirstName + " " + u.LastName
}
