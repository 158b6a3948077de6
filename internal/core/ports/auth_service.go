package ports

import (
	"context"

	"github.com/ecosdelcampo/fieldsync/internal/core/domain"
)

// RegisterInput carries the fields of the register endpoint.
type RegisterInput struct {
	Name     string `validate:"required"`
	Email    string `validate:"required,email"`
	Password string `validate:"required,min=8"`
	Role     string `validate:"required,oneof=farmer buyer"`
}

// AuthService drives the session lifecycle against the auth endpoints.
type AuthService interface {
	Login(ctx context.Context, email, password string) (*domain.User, error)
	Register(ctx context.Context, input RegisterInput) (*domain.User, error)
	// Logout drops the server session best effort and always clears the
	// stored credentials, even offline.
	Logout(ctx context.Context) error
	// CurrentUser returns the stored profile, or domain.ErrNoCredentials.
	CurrentUser(ctx context.Context) (*domain.User, error)
}
