package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/ecosdelcampo/fieldsync/internal/core/domain"
	"github.com/ecosdelcampo/fieldsync/internal/infrastructure/crypto"
)

const (
	keyAccessToken = "access_token"
	keyIssuedAt    = "issued_at"
	keyUser        = "user"
)

// CredentialRepository persists the session record in a key/value table.
// The access token is sealed at rest; issuance timestamp and profile are not.
type CredentialRepository struct {
	db     *sql.DB
	sealer *crypto.Sealer
	ttl    time.Duration
	now    func() time.Time
}

func NewCredentialRepository(db *sql.DB, sealer *crypto.Sealer, ttl time.Duration) *CredentialRepository {
	if ttl <= 0 {
		ttl = 15 * time.Minute
	}
	return &CredentialRepository{db: db, sealer: sealer, ttl: ttl, now: time.Now}
}

// Save stores token, the current timestamp and the user profile in one
// transaction, overwriting any prior values.
func (r *CredentialRepository) Save(ctx context.Context, token string, user domain.User) error {
	userJSON, err := json.Marshal(user)
	if err != nil {
		return fmt.Errorf("credentials save: %w", err)
	}
	return r.save(ctx, token, userJSON)
}

// SaveToken replaces the token and its issuance timestamp, keeping the
// stored user profile.
func (r *CredentialRepository) SaveToken(ctx context.Context, token string) error {
	return r.save(ctx, token, nil)
}

func (r *CredentialRepository) save(ctx context.Context, token string, userJSON []byte) error {
	sealed, err := r.sealer.Seal([]byte(token))
	if err != nil {
		return fmt.Errorf("credentials save: %w", err)
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("credentials save: %w", err)
	}
	defer tx.Rollback()

	const upsert = `INSERT INTO credentials (k, v) VALUES (?, ?)
		ON CONFLICT(k) DO UPDATE SET v = excluded.v`

	if _, err := tx.ExecContext(ctx, upsert, keyAccessToken, sealed); err != nil {
		return fmt.Errorf("credentials save: %w", err)
	}
	issued := strconv.FormatInt(r.now().UTC().UnixMilli(), 10)
	if _, err := tx.ExecContext(ctx, upsert, keyIssuedAt, []byte(issued)); err != nil {
		return fmt.Errorf("credentials save: %w", err)
	}
	if userJSON != nil {
		if _, err := tx.ExecContext(ctx, upsert, keyUser, userJSON); err != nil {
			return fmt.Errorf("credentials save: %w", err)
		}
	}
	return tx.Commit()
}

// Credentials returns the full record, or domain.ErrNoCredentials when the
// token or its issuance timestamp is missing.
func (r *CredentialRepository) Credentials(ctx context.Context) (*domain.Credentials, error) {
	sealed, err := r.get(ctx, keyAccessToken)
	if err != nil {
		return nil, err
	}
	issuedRaw, err := r.get(ctx, keyIssuedAt)
	if err != nil {
		return nil, err
	}

	token, err := r.sealer.Open(sealed)
	if err != nil {
		return nil, fmt.Errorf("credentials read: %w", err)
	}

	issuedMillis, err := strconv.ParseInt(string(issuedRaw), 10, 64)
	if err != nil {
		return nil, fmt.Errorf("credentials read: %w", err)
	}

	creds := &domain.Credentials{
		AccessToken: string(token),
		IssuedAt:    time.UnixMilli(issuedMillis).UTC(),
	}

	if userRaw, err := r.get(ctx, keyUser); err == nil {
		if err := json.Unmarshal(userRaw, &creds.User); err != nil {
			return nil, fmt.Errorf("credentials read: %w", err)
		}
	} else if err != domain.ErrNoCredentials {
		return nil, err
	}

	return creds, nil
}

// Token returns the access token, or domain.ErrNoCredentials.
func (r *CredentialRepository) Token(ctx context.Context) (string, error) {
	sealed, err := r.get(ctx, keyAccessToken)
	if err != nil {
		return "", err
	}
	token, err := r.sealer.Open(sealed)
	if err != nil {
		return "", fmt.Errorf("credentials read: %w", err)
	}
	return string(token), nil
}

// IsExpired reports the local TTL heuristic. True when no issuance timestamp
// exists or the token is older than the configured TTL.
func (r *CredentialRepository) IsExpired(ctx context.Context) (bool, error) {
	issuedRaw, err := r.get(ctx, keyIssuedAt)
	if err == domain.ErrNoCredentials {
		return true, nil
	}
	if err != nil {
		return false, err
	}
	issuedMillis, err := strconv.ParseInt(string(issuedRaw), 10, 64)
	if err != nil {
		return true, nil
	}
	issuedAt := time.UnixMilli(issuedMillis)
	return r.now().Sub(issuedAt) >= r.ttl, nil
}

// Clear removes token, timestamp and user profile in one transaction.
func (r *CredentialRepository) Clear(ctx context.Context) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("credentials clear: %w", err)
	}
	defer tx.Rollback()

	for _, k := range []string{keyAccessToken, keyIssuedAt, keyUser} {
		if _, err := tx.ExecContext(ctx, `DELETE FROM credentials WHERE k = ?`, k); err != nil {
			return fmt.Errorf("credentials clear: %w", err)
		}
	}
	return tx.Commit()
}

func (r *CredentialRepository) get(ctx context.Context, key string) ([]byte, error) {
	var v []byte
	err := r.db.QueryRowContext(ctx, `SELECT v FROM credentials WHERE k = ?`, key).Scan(&v)
	if err == sql.ErrNoRows {
		return nil, domain.ErrNoCredentials
	}
	if err != nil {
		return nil, fmt.Errorf("credentials read: %w", err)
	}
	return v, nil
}
