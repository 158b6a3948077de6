package domain

import (
	"errors"
	"time"
)

const (
	RoleFarmer = "farmer"
	RoleBuyer  = "buyer"
)

var ErrNoCredentials = errors.New("no stored credentials")
var ErrSessionExpired = errors.New("session expired")
var ErrInvalidCredentials = errors.New("invalid credentials")

// User is the marketplace profile returned by the auth endpoints.
type User struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
	Role  string `json:"role"`
}

// Credentials is the locally persisted session record. AccessToken and
// IssuedAt are always set together; absence of either means unauthenticated.
type Credentials struct {
	AccessToken string
	IssuedAt    time.Time
	User        User
}
