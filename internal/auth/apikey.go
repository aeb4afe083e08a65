// Package auth provides API key management and the bearer-token middleware
// that guards the HTTP API.
package auth

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"
)

const (
	apiKeyBytes  = 32 // 256-bit keys
	apiKeyPrefix = "fs_"
)

// ErrKeyNotFound is returned when deleting a key that does not exist.
var ErrKeyNotFound = errors.New("key not found")

// APIKey is the stored representation of an API key (no raw key).
type APIKey struct {
	ID         int64      `json:"id"`
	Name       string     `json:"name"`
	KeyPrefix  string     `json:"key_prefix"` // first 8 chars for identification
	CreatedAt  time.Time  `json:"created_at"`
	LastUsedAt *time.Time `json:"last_used_at,omitempty"`
}

// APIKeyStore manages API keys in SQLite.
type APIKeyStore struct {
	db  *sql.DB
	now func() time.Time
}

// NewAPIKeyStore creates an API key store.
func NewAPIKeyStore(db *sql.DB) *APIKeyStore {
	return &APIKeyStore{db: db, now: time.Now}
}

// Create generates a new API key with the given name.
// Returns the raw key (shown once to user) and the stored record.
func (s *APIKeyStore) Create(ctx context.Context, name string) (string, *APIKey, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", nil, errors.New("key name is required")
	}

	raw, err := generateAPIKey()
	if err != nil {
		return "", nil, fmt.Errorf("generating key: %w", err)
	}

	prefix := raw[:8]
	hash := hashAPIKey(raw)

	result, err := s.db.ExecContext(ctx,
		"INSERT INTO api_keys (name, key_prefix, key_hash) VALUES (?, ?, ?)",
		name, prefix, hash,
	)
	if err != nil {
		return "", nil, fmt.Errorf("storing key: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return "", nil, fmt.Errorf("getting key id: %w", err)
	}

	key := &APIKey{
		ID:        id,
		Name:      name,
		KeyPrefix: prefix,
		CreatedAt: s.now(),
	}

	return raw, key, nil
}

// List returns all API keys (without the raw key), newest first.
func (s *APIKeyStore) List(ctx context.Context) (keys []APIKey, err error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT id, name, key_prefix, created_at, last_used_at FROM api_keys ORDER BY created_at DESC, id DESC",
	)
	if err != nil {
		return nil, fmt.Errorf("querying keys: %w", err)
	}
	defer func() {
		if cerr := rows.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("closing rows: %w", cerr)
		}
	}()

	for rows.Next() {
		var k APIKey
		var lastUsed sql.NullTime
		if err := rows.Scan(&k.ID, &k.Name, &k.KeyPrefix, &k.CreatedAt, &lastUsed); err != nil {
			return nil, fmt.Errorf("scanning key: %w", err)
		}
		if lastUsed.Valid {
			k.LastUsedAt = &lastUsed.Time
		}
		keys = append(keys, k)
	}

	return keys, rows.Err()
}

// Delete removes an API key by ID.
func (s *APIKeyStore) Delete(ctx context.Context, id int64) error {
	result, err := s.db.ExecContext(ctx, "DELETE FROM api_keys WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("deleting key: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("checking affected rows: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("key %d: %w", id, ErrKeyNotFound)
	}

	return nil
}

// Validate checks a raw API key against stored hashes.
// Returns true if valid, and updates last_used_at.
func (s *APIKeyStore) Validate(ctx context.Context, rawKey string) (bool, error) {
	if !strings.HasPrefix(rawKey, apiKeyPrefix) {
		return false, nil
	}
	hash := hashAPIKey(rawKey)

	result, err := s.db.ExecContext(ctx,
		"UPDATE api_keys SET last_used_at = ? WHERE key_hash = ?",
		s.now().UTC(), hash,
	)
	if err != nil {
		return false, fmt.Errorf("validating key: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("checking affected rows: %w", err)
	}

	return rows > 0, nil
}

func generateAPIKey() (string, error) {
	b := make([]byte, apiKeyBytes)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return apiKeyPrefix + hex.EncodeToString(b), nil
}

func hashAPIKey(key string) string {
	h := sha256.Sum256([]byte(key))
	return hex.EncodeToString(h[:])
}
