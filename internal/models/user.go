package models

import (
	"strings"
	"time"
)

// UserRole represents the available roles for the RBAC system.
type UserRole string

const (
	RoleAdmin   UserRole = "admin"
	RoleStudent UserRole = "student"
)

// Valid reports whether the role is supported.
func (r UserRole) Valid() bool {
	return r == RoleAdmin || r == RoleStudent
}

// ResolveSignupRole applies the signup convention: an empty or student role
// becomes admin when the email contains "admin", any other requested role
// is honoured as-is.
func ResolveSignupRole(requested UserRole, email string) UserRole {
	if requested == "" || requested == RoleStudent {
		if strings.Contains(strings.ToLower(email), "admin") {
			return RoleAdmin
		}
		return RoleStudent
	}
	return requested
}

// User represents an application user stored in the users table.
type User struct {
	ID           int64     `db:"id" json:"id"`
	Name         string    `db:"name" json:"name"`
	Email        string    `db:"email" json:"email"`
	Username     string    `db:"username" json:"user_name"`
	PasswordHash string    `db:"password_hash" json:"-"`
	Role         UserRole  `db:"role" json:"role"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
}

// UserFilter captures filtering criteria for listing users.
type UserFilter struct {
	Role *UserRole
}

// Pagination contains pagination metadata returned in list responses.
type Pagination struct {
	Page       int `json:"page"`
	PageSize   int `json:"page_size"`
	TotalCount int `json:"total_count"`
}
