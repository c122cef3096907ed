package core

import (
	"errors"
	"strings"
	"time"
)

const (
	RoleUser  Role = "user"
	RoleAdmin Role = "admin"
)

type Role string

func (r Role) IsValid() bool {
	return r == RoleUser || r == RoleAdmin
}

// ParseRole defaults a blank role to RoleUser.
func ParseRole(s string) (Role, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return RoleUser, nil
	}
	r := Role(s)
	if !r.IsValid() {
		return "", &ValidationError{Field: "role", Err: errors.New("role must be one of user, admin")}
	}
	return r, nil
}

// User is an account able to own expenses.
type User struct {
	ID           string    `json:"id"`
	Email        string    `json:"email"`
	Username     string    `json:"username"`
	PasswordHash string    `json:"-"`
	Role         Role      `json:"role"`
	CreatedAt    time.Time `json:"createdAt"`
}

// NormalizeEmail lowercases and trims an email so uniqueness is case-insensitive.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// Identity is the authenticated caller resolved from a bearer credential.
type Identity struct {
	OwnerID string `json:"ownerId"`
	Role    Role   `json:"role"`
}
