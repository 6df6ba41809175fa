// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// Package models defines the data structures that map to database tables
// and provides the core types used throughout the application.
package models

import "time"

// Role represents a user's permission level in the system.
type Role string

const (
	RoleAdmin      Role = "admin"
	RoleEditor     Role = "editor"
	RoleAuthor     Role = "author"
	RoleSubscriber Role = "subscriber"
)

// Roles lists every assignable role, most privileged first.
var Roles = []Role{RoleAdmin, RoleEditor, RoleAuthor, RoleSubscriber}

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	switch r {
	case RoleAdmin, RoleEditor, RoleAuthor, RoleSubscriber:
		return true
	}
	return false
}

// User represents a registered account.
type User struct {
	ID           int64     `json:"id"`
	Username     string    `json:"username"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"` // Never serialize the hash
	Role         Role      `json:"role"`
	Active       bool      `json:"active"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// IsAdmin returns true if the user has the admin role.
func (u *User) IsAdmin() bool {
	return u.Role == RoleAdmin
}

// UserFilter narrows the admin user listing.
type UserFilter struct {
	Role   Role
	Active *bool
	Search string // matched against username and email
	Page   Page
}

// UserUpdate carries the fields an administrator may change on an account.
// A nil Password leaves the stored hash untouched.
type UserUpdate struct {
	Username string
	Email    string
	Role     Role
	Active   bool
	Password *string
}
