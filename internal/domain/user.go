// Package domain contains entity without logic, just meta-data
package domain

import (
	"errors"
	"strings"
)

const (
	MaxUserIDLen  = 64
	MaxEventIDLen = 64
)

var (
	ErrUserIDEmpty   = errors.New("user id empty")
	ErrUserIDTooLong = errors.New("user id too long")
)

type UserID string

// Role is assigned by the token issuer; the core never upgrades it.
type Role string

const (
	RoleViewer Role = "viewer"
	RoleHost   Role = "host"
	RoleAdmin  Role = "admin"
)

// ParseRole maps unknown roles to RoleViewer.
func ParseRole(s string) Role {
	switch Role(strings.ToLower(strings.TrimSpace(s))) {
	case RoleHost:
		return RoleHost
	case RoleAdmin:
		return RoleAdmin
	default:
		return RoleViewer
	}
}

// CanHost reports whether the role may join a room as its host.
func (r Role) CanHost() bool { return r == RoleHost || r == RoleAdmin }

// Identity is the verified caller handed to the core by the token verifier.
type Identity struct {
	UserID UserID `json:"userId"`
	Email  string `json:"email"`
	Role   Role   `json:"role"`
}

func (id UserID) Validate() error {
	if len(id) == 0 {
		return ErrUserIDEmpty
	}
	if len(id) > MaxUserIDLen {
		return ErrUserIDTooLong
	}
	return nil
}
