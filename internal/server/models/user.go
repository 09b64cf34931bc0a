// Package models defines server-side data models persisted in the database.
package models

import (
	"fmt"
	"strings"
	"time"
)

// Role is the closed set of principal roles.
type Role string

const (
	RoleUser  Role = "USER"
	RoleAdmin Role = "ADMIN"
)

// authorityPrefix is prepended to a role when it is exposed as an
// authorization claim (ROLE_USER, ROLE_ADMIN).
const authorityPrefix = "ROLE_"

// ParseRole accepts "USER"/"ADMIN" in any case, with or without the
// ROLE_ prefix. An empty string maps to RoleUser.
func ParseRole(s string) (Role, error) {
	s = strings.ToUpper(strings.TrimSpace(s))
	s = strings.TrimPrefix(s, authorityPrefix)
	switch Role(s) {
	case "", RoleUser:
		return RoleUser, nil
	case RoleAdmin:
		return RoleAdmin, nil
	default:
		return "", fmt.Errorf("unknown role %q", s)
	}
}

// Authority returns the prefixed claim form, e.g. "ROLE_ADMIN".
func (r Role) Authority() string {
	return authorityPrefix + string(r)
}

// User is a principal. PinHash is empty until a PIN has been configured.
type User struct {
	ID           string
	UserName     string
	Email        string
	PasswordHash string
	PinHash      string
	Role         Role
	CreatedAt    time.Time
}

// HasPin reports whether the user configured a reveal PIN.
func (u *User) HasPin() bool {
	return u.PinHash != ""
}
