// ABOUTME: Encrypted secret store on SQLite using NaCl secretbox.
// ABOUTME: The 32-byte key lives in a separate 0600 file created on first use.

package store

import (
	"context"
	"crypto/rand"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"golang.org/x/crypto/nacl/secretbox"
)

const keySize = 32

// LoadOrCreateKey reads the secret store key at path, generating and
// writing a new random key when the file does not exist.
func LoadOrCreateKey(path string) ([32]byte, error) {
	var key [32]byte

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if len(data) != keySize {
			return key, fmt.Errorf("secret key %s has %d bytes, want %d", path, len(data), keySize)
		}
		copy(key[:], data)
		return key, nil
	case !errors.Is(err, os.ErrNotExist):
		return key, fmt.Errorf("reading secret key: %w", err)
	}

	if _, err := io.ReadFull(rand.Reader, key[:]); err != nil {
		return key, fmt.Errorf("generating secret key: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return key, fmt.Errorf("creating key directory: %w", err)
	}
	if err := os.WriteFile(path, key[:], 0o600); err != nil {
		return key, fmt.Errorf("writing secret key: %w", err)
	}
	return key, nil
}

// StoreSecret seals value under key, replacing any previous value.
func (s *SQLiteStore) StoreSecret(ctx context.Context, key, value string) error {
	if s.secretKey == nil {
		return ErrSecretsLocked
	}

	var nonce [24]byte
	if _, err := io.ReadFull(rand.Reader, nonce[:]); err != nil {
		return fmt.Errorf("generating nonce: %w", err)
	}
	sealed := secretbox.Seal(nil, []byte(value), &nonce, s.secretKey)

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO secrets (key, nonce, sealed, updated_at_utc)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET
			nonce = excluded.nonce,
			sealed = excluded.sealed,
			updated_at_utc = excluded.updated_at_utc
	`, key, nonce[:], sealed, formatTime(s.now()))
	if err != nil {
		return fmt.Errorf("storing secret %s: %w", key, err)
	}

	s.logger.Debug("stored secret", "key", key)
	return nil
}

// RetrieveSecret opens the value stored under key.
func (s *SQLiteStore) RetrieveSecret(ctx context.Context, key string) (string, bool, error) {
	if s.secretKey == nil {
		return "", false, ErrSecretsLocked
	}

	var nonceBytes, sealed []byte
	err := s.db.QueryRowContext(ctx,
		`SELECT nonce, sealed FROM secrets WHERE key = ?`, key,
	).Scan(&nonceBytes, &sealed)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("reading secret %s: %w", key, err)
	}
	if len(nonceBytes) != 24 {
		return "", false, fmt.Errorf("secret %s has a malformed nonce", key)
	}

	var nonce [24]byte
	copy(nonce[:], nonceBytes)
	plain, ok := secretbox.Open(nil, sealed, &nonce, s.secretKey)
	if !ok {
		return "", false, fmt.Errorf("secret %s cannot be decrypted with the configured key", key)
	}
	return string(plain), true, nil
}

// DeleteSecret removes key. Deleting an absent key is not an error.
func (s *SQLiteStore) DeleteSecret(ctx context.Context, key string) error {
	if s.secretKey == nil {
		return ErrSecretsLocked
	}
	if _, err := s.db.ExecContext(ctx, `DELETE FROM secrets WHERE key = ?`, key); err != nil {
		return fmt.Errorf("deleting secret %s: %w", key, err)
	}
	return nil
}
