package ports

import (
	"context"

	"github.com/ecosdelcampo/fieldsync/internal/core/domain"
)

// CredentialStore persists the session record. It performs no network calls.
type CredentialStore interface {
	// Save stores the token with the current timestamp and the user profile,
	// overwriting any prior values.
	Save(ctx context.Context, token string, user domain.User) error

	// SaveToken replaces the token and its issuance timestamp, keeping the
	// stored user profile. Used by the refresh protocol.
	SaveToken(ctx context.Context, token string) error

	// Credentials returns the full record, or domain.ErrNoCredentials.
	Credentials(ctx context.Context) (*domain.Credentials, error)

	// Token returns the access token, or domain.ErrNoCredentials.
	Token(ctx context.Context) (string, error)

	// IsExpired reports whether the local TTL heuristic considers the token
	// stale. True when no issuance timestamp exists. Advisory only: the
	// server stays authoritative for actual token validity.
	IsExpired(ctx context.Context) (bool, error)

	// Clear removes token, timestamp and user profile atomically.
	Clear(ctx context.Context) error
}
