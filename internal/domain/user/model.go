// Package user provides the User entity: the account that owns and
// creates tasks. Credential material is opaque to this layer; hashing and
// verification live at the boundary.
package user

import (
	"context"
	"strings"

	"taskhub/internal/core/apperror"
	"taskhub/internal/core/entity"
	"taskhub/internal/domain"
)

// Role enumerates user roles.
type Role string

const (
	RoleAdmin  Role = "ADMIN"
	RoleMember Role = "MEMBER"
)

// Valid reports whether the role is a known value.
func (r Role) Valid() bool {
	switch r {
	case RoleAdmin, RoleMember:
		return true
	}
	return false
}

// Status enumerates account states.
type Status string

const (
	StatusActive   Status = "ACTIVE"
	StatusInactive Status = "INACTIVE"
)

// Valid reports whether the status is a known value.
func (s Status) Valid() bool {
	switch s {
	case StatusActive, StatusInactive:
		return true
	}
	return false
}

// User represents an account. Email uniqueness is enforced by the store
// among non-soft-deleted rows only (partial unique index).
type User struct {
	entity.Record

	// Email is the unique login identifier, stored normalized
	Email string `db:"email" json:"email"`

	// Name is the display name
	Name string `db:"name" json:"name"`

	Role   Role   `db:"role" json:"role"`
	Status Status `db:"status" json:"status"`

	// PasswordHash is opaque credential material, never exposed
	PasswordHash string `db:"password_hash" json:"-"`
}

// NormalizeEmail lowercases and trims an email identifier.
// All lookups and uniqueness checks operate on the normalized form.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// New creates a User with a generated ID and defaults.
func New(email, name string, role Role) *User {
	return &User{
		Record: entity.NewRecord(),
		Email:  NormalizeEmail(email),
		Name:   name,
		Role:   role,
		Status: StatusActive,
	}
}

// Validate implements entity.Validatable.
func (u *User) Validate(ctx context.Context) error {
	if u.Email == "" || !strings.Contains(u.Email, "@") {
		return apperror.NewValidation("valid email is required").
			WithDetail("field", "email")
	}
	if u.Name == "" {
		return apperror.NewValidation("name is required").
			WithDetail("field", "name")
	}
	if !u.Role.Valid() {
		return apperror.NewValidation("unknown role").
			WithDetail("field", "role").
			WithDetail("value", string(u.Role))
	}
	if !u.Status.Valid() {
		return apperror.NewValidation("unknown status").
			WithDetail("field", "status").
			WithDetail("value", string(u.Status))
	}
	return nil
}

// UpdateInput describes a partial user update. Nil fields are untouched.
type UpdateInput struct {
	Email        *string `json:"email,omitempty"`
	Name         *string `json:"name,omitempty"`
	Role         *Role   `json:"role,omitempty"`
	Status       *Status `json:"status,omitempty"`
	PasswordHash *string `json:"-"`
}

// Patch converts the input into a column-keyed patch.
func (in UpdateInput) Patch() domain.Patch {
	patch := domain.Patch{}
	if in.Email != nil {
		patch["email"] = NormalizeEmail(*in.Email)
	}
	if in.Name != nil {
		patch["name"] = *in.Name
	}
	if in.Role != nil {
		patch["role"] = *in.Role
	}
	if in.Status != nil {
		patch["status"] = *in.Status
	}
	if in.PasswordHash != nil {
		patch["password_hash"] = *in.PasswordHash
	}
	return patch
}

// Validate checks the provided fields.
func (in UpdateInput) Validate(ctx context.Context) error {
	if in.Email != nil {
		norm := NormalizeEmail(*in.Email)
		if norm == "" || !strings.Contains(norm, "@") {
			return apperror.NewValidation("valid email is required").
				WithDetail("field", "email")
		}
	}
	if in.Name != nil && *in.Name == "" {
		return apperror.NewValidation("name must not be empty").
			WithDetail("field", "name")
	}
	if in.Role != nil && !in.Role.Valid() {
		return apperror.NewValidation("unknown role").
			WithDetail("field", "role").
			WithDetail("value", string(*in.Role))
	}
	if in.Status != nil && !in.Status.Valid() {
		return apperror.NewValidation("unknown status").
			WithDetail("field", "status").
			WithDetail("value", string(*in.Status))
	}
	return nil
}
