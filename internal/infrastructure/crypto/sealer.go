// Package crypto seals small secrets at rest using AES-256-GCM with a
// PBKDF2-derived key. The passphrase is never stored; a fresh salt and nonce
// are generated for every Seal call and prepended to the ciphertext.
package crypto

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"errors"
	"fmt"
	"io"

	"golang.org/x/crypto/pbkdf2"
)

const (
	saltLength = 32
	keyLength  = 32
	iterations = 120_000
)

var ErrSealedDataCorrupt = errors.New("sealed data is corrupt or the key is wrong")

// Sealer encrypts and decrypts secrets with a passphrase-derived key.
type Sealer struct {
	passphrase []byte
}

// NewSealer creates a Sealer. The passphrase must be non-empty.
func NewSealer(passphrase string) (*Sealer, error) {
	if passphrase == "" {
		return nil, errors.New("crypto: empty sealing passphrase")
	}
	return &Sealer{passphrase: []byte(passphrase)}, nil
}

// Seal encrypts plain and returns salt || nonce || ciphertext.
func (s *Sealer) Seal(plain []byte) ([]byte, error) {
	salt := make([]byte, saltLength)
	if _, err := io.ReadFull(rand.Reader, salt); err != nil {
		return nil, fmt.Errorf("crypto: generate salt: %w", err)
	}

	gcm, err := s.aead(salt)
	if err != nil {
		return nil, err
	}

	nonce := make([]byte, gcm.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return nil, fmt.Errorf("crypto: generate nonce: %w", err)
	}

	out := make([]byte, 0, saltLength+len(nonce)+len(plain)+gcm.Overhead())
	out = append(out, salt...)
	out = append(out, nonce...)
	return gcm.Seal(out, nonce, plain, nil), nil
}

// Open decrypts data produced by Seal. Returns ErrSealedDataCorrupt when the
// blob is malformed or was sealed with a different passphrase.
func (s *Sealer) Open(sealed []byte) ([]byte, error) {
	if len(sealed) < saltLength {
		return nil, ErrSealedDataCorrupt
	}
	salt := sealed[:saltLength]

	gcm, err := s.aead(salt)
	if err != nil {
		return nil, err
	}

	rest := sealed[saltLength:]
	if len(rest) < gcm.NonceSize() {
		return nil, ErrSealedDataCorrupt
	}
	nonce, ciphertext := rest[:gcm.NonceSize()], rest[gcm.NonceSize():]

	plain, err := gcm.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return nil, ErrSealedDataCorrupt
	}
	return plain, nil
}

func (s *Sealer) aead(salt []byte) (cipher.AEAD, error) {
	key := pbkdf2.Key(s.passphrase, salt, iterations, keyLength, sha256.New)
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("crypto: new cipher: %w", err)
	}
	return cipher.NewGCM(block)
}
