package domain

import (
	"strings"
	"time"
)

// Role is the privilege level of a user.
type Role string

const (
	RolePuller  Role = "puller"
	RoleManager Role = "manager"
)

// ParseRole validates a role name.
func ParseRole(s string) (Role, error) {
	switch r := Role(strings.ToLower(strings.TrimSpace(s))); r {
	case RolePuller, RoleManager:
		return r, nil
	}
	return "", NewValidationError("role", "must be one of: puller, manager")
}

// User is an identity directory entry. Credentials are held by the external provider.
type User struct {
	Email          string    `bson:"_id" json:"email"`
	Role           Role      `bson:"role" json:"role"`
	Approved       bool      `bson:"approved" json:"approved"`
	ResetRequested bool      `bson:"resetRequested" json:"resetRequested"`
	CreatedAt      time.Time `bson:"createdAt" json:"createdAt"`
	UpdatedAt      time.Time `bson:"updatedAt" json:"updatedAt"`
}

// NormalizeEmail lowercases and trims an email.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// NewUser registers an unapproved user.
func NewUser(email string, role Role, now time.Time) (*User, error) {
	email = NormalizeEmail(email)
	if email == "" || !strings.Contains(email, "@") {
		return nil, NewValidationError("email", "must be a valid email address")
	}
	if _, err := ParseRole(string(role)); err != nil {
		return nil, err
	}
	return &User{Email: email, Role: role, CreatedAt: now, UpdatedAt: now}, nil
}

// Actor is the resolved caller of an operation.
type Actor struct {
	Email string
	Role  Role
}

// IsManager reports whether the actor holds the manager role.
func (a Actor) IsManager() bool {
	return a.Role == RoleManager
}

// Actor resolves the user into an operation caller. Unapproved users are unauthorized.
func (u *User) Actor() (Actor, error) {
	if !u.Approved {
		return Actor{}, ErrUnauthorized
	}
	return Actor{Email: u.Email, Role: u.Role}, nil
}
