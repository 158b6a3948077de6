package service

import (
	"context"
	"fmt"
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"

	"github.com/ecosdelcampo/fieldsync/internal/core/domain"
	"github.com/ecosdelcampo/fieldsync/internal/core/ports"
)

// AuthService drives the session lifecycle against the auth endpoints and
// keeps the credential store in step.
type AuthService struct {
	gateway  ports.Gateway
	creds    ports.CredentialStore
	validate *validator.Validate
	log      zerolog.Logger
}

func NewAuthService(gw ports.Gateway, creds ports.CredentialStore, log zerolog.Logger) *AuthService {
	return &AuthService{gateway: gw, creds: creds, validate: validator.New(), log: log}
}

// Login authenticates and persists the returned token and profile.
func (s *AuthService) Login(ctx context.Context, email, password string) (*domain.User, error) {
	if email == "" || password == "" {
		return nil, domain.ErrInvalidCredentials
	}

	resp, err := s.gateway.Request(ctx, http.MethodPost, "/auth/login",
		map[string]string{"email": email, "password": password})
	if err != nil {
		return nil, err
	}
	return s.establishSession(ctx, resp)
}

// Register creates an account and persists the returned token and profile.
func (s *AuthService) Register(ctx context.Context, input ports.RegisterInput) (*domain.User, error) {
	if err := s.validate.Struct(input); err != nil {
		return nil, fmt.Errorf("invalid registration: %w", err)
	}

	resp, err := s.gateway.Request(ctx, http.MethodPost, "/auth/register", map[string]string{
		"name":     input.Name,
		"email":    input.Email,
		"password": input.Password,
		"role":     input.Role,
	})
	if err != nil {
		return nil, err
	}
	return s.establishSession(ctx, resp)
}

// Logout tells the server to drop the refresh cookie, best effort, then
// clears the stored credentials. The local clear succeeds even offline.
func (s *AuthService) Logout(ctx context.Context) error {
	if resp, err := s.gateway.Request(ctx, http.MethodPost, "/auth/logout", nil); err == nil && !resp.OK() {
		s.log.Debug().Int("status", resp.Status).Msg("server logout skipped")
	}

	if err := s.creds.Clear(ctx); err != nil {
		return err
	}
	s.log.Info().Msg("session cleared")
	return nil
}

// CurrentUser returns the stored profile without touching the network.
func (s *AuthService) CurrentUser(ctx context.Context) (*domain.User, error) {
	creds, err := s.creds.Credentials(ctx)
	if err != nil {
		return nil, err
	}
	return &creds.User, nil
}

func (s *AuthService) establishSession(ctx context.Context, resp *ports.Response) (*domain.User, error) {
	if resp.Unreachable() {
		return nil, domain.ErrOffline
	}
	if resp.Status == http.StatusUnauthorized {
		return nil, domain.ErrInvalidCredentials
	}
	if !resp.OK() {
		return nil, remoteError(resp)
	}

	var out struct {
		Token string      `json:"token"`
		User  domain.User `json:"user"`
	}
	if err := resp.DecodeJSON(&out); err != nil {
		return nil, fmt.Errorf("decode auth response: %w", err)
	}
	if out.Token == "" {
		return nil, fmt.Errorf("auth response missing token")
	}

	if err := s.creds.Save(ctx, out.Token, out.User); err != nil {
		return nil, fmt.Errorf("persist credentials: %w", err)
	}

	s.log.Info().Str("email", out.User.Email).Str("role", out.User.Role).Msg("session established")
	return &out.User, nil
}
