// Copyright 2026 The VirtualStack Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/virtualstack/virtualstack/internal/apikey"
)

// APIKeyRepository implements apikey.Repository
type APIKeyRepository struct {
	db *DB
}

// NewAPIKeyRepository creates a new API key repository
func NewAPIKeyRepository(db *DB) *APIKeyRepository {
	return &APIKeyRepository{db: db}
}

const apiKeyColumns = `
	id, name, key_prefix, key_hash, description, is_active,
	expires_at, last_used_at, user_id, tenant_id, scope, created_at, updated_at`

// Create stores a new key record
func (r *APIKeyRepository) Create(ctx context.Context, key *apikey.Key) error {
	now := time.Now()
	_, err := r.db.pool.Exec(ctx, `
		INSERT INTO api_keys (id, name, key_prefix, key_hash, description, is_active,
			expires_at, user_id, tenant_id, scope, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`,
		key.ID, key.Name, key.KeyPrefix, key.KeyHash, key.Description, key.IsActive,
		key.ExpiresAt, key.UserID, key.TenantID, key.Scope, now, now,
	)
	if err != nil {
		return fmt.Errorf("failed to insert api key: %w", err)
	}

	key.CreatedAt = now
	key.UpdatedAt = now
	return nil
}

// GetByID retrieves a key by ID
func (r *APIKeyRepository) GetByID(ctx context.Context, id string) (*apikey.Key, error) {
	return r.scanOne(r.db.pool.QueryRow(ctx,
		`SELECT `+apiKeyColumns+` FROM api_keys WHERE id = $1`, id))
}

// GetActiveByPrefixHash retrieves an active key matching both the indexed
// prefix and the digest of the full key.
func (r *APIKeyRepository) GetActiveByPrefixHash(ctx context.Context, prefix, hash string) (*apikey.Key, error) {
	return r.scanOne(r.db.pool.QueryRow(ctx,
		`SELECT `+apiKeyColumns+` FROM api_keys
		 WHERE key_prefix = $1 AND key_hash = $2 AND is_active`, prefix, hash))
}

func (r *APIKeyRepository) scanOne(row pgx.Row) (*apikey.Key, error) {
	var key apikey.Key
	var expiresAt, lastUsedAt sql.NullTime

	err := row.Scan(
		&key.ID, &key.Name, &key.KeyPrefix, &key.KeyHash, &key.Description, &key.IsActive,
		&expiresAt, &lastUsedAt, &key.UserID, &key.TenantID, &key.Scope,
		&key.CreatedAt, &key.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apikey.ErrKeyNotFound
		}
		return nil, fmt.Errorf("failed to get api key: %w", err)
	}

	if expiresAt.Valid {
		key.ExpiresAt = &expiresAt.Time
	}
	if lastUsedAt.Valid {
		key.LastUsedAt = &lastUsedAt.Time
	}
	return &key, nil
}

// ListByUser retrieves keys owned by a user
func (r *APIKeyRepository) ListByUser(ctx context.Context, userID string, limit, offset int) ([]*apikey.Key, error) {
	return r.list(ctx,
		`SELECT `+apiKeyColumns+` FROM api_keys
		 WHERE user_id = $1 ORDER BY created_at LIMIT $2 OFFSET $3`,
		userID, limit, offset)
}

// ListByTenant retrieves keys scoped to a tenant
func (r *APIKeyRepository) ListByTenant(ctx context.Context, tenantID string, limit, offset int) ([]*apikey.Key, error) {
	return r.list(ctx,
		`SELECT `+apiKeyColumns+` FROM api_keys
		 WHERE tenant_id = $1 ORDER BY created_at LIMIT $2 OFFSET $3`,
		tenantID, limit, offset)
}

// ListAll retrieves all keys
func (r *APIKeyRepository) ListAll(ctx context.Context, limit, offset int) ([]*apikey.Key, error) {
	return r.list(ctx,
		`SELECT `+apiKeyColumns+` FROM api_keys ORDER BY created_at LIMIT $1 OFFSET $2`,
		limit, offset)
}

func (r *APIKeyRepository) list(ctx context.Context, query string, args ...any) ([]*apikey.Key, error) {
	rows, err := r.db.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list api keys: %w", err)
	}
	defer rows.Close()

	var keys []*apikey.Key
	for rows.Next() {
		var key apikey.Key
		var expiresAt, lastUsedAt sql.NullTime
		if err := rows.Scan(
			&key.ID, &key.Name, &key.KeyPrefix, &key.KeyHash, &key.Description, &key.IsActive,
			&expiresAt, &lastUsedAt, &key.UserID, &key.TenantID, &key.Scope,
			&key.CreatedAt, &key.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan api key: %w", err)
		}
		if expiresAt.Valid {
			key.ExpiresAt = &expiresAt.Time
		}
		if lastUsedAt.Valid {
			key.LastUsedAt = &lastUsedAt.Time
		}
		keys = append(keys, &key)
	}
	return keys, rows.Err()
}

// Update updates mutable key fields
func (r *APIKeyRepository) Update(ctx context.Context, key *apikey.Key) error {
	result, err := r.db.pool.Exec(ctx, `
		UPDATE api_keys SET name = $2, description = $3, is_active = $4, updated_at = NOW()
		WHERE id = $1
	`, key.ID, key.Name, key.Description, key.IsActive)
	if err != nil {
		return fmt.Errorf("failed to update api key: %w", err)
	}
	if result.RowsAffected() == 0 {
		return apikey.ErrKeyNotFound
	}
	return nil
}

// UpdateLastUsed records key usage
func (r *APIKeyRepository) UpdateLastUsed(ctx context.Context, keyID string, at time.Time) error {
	_, err := r.db.pool.Exec(ctx, `
		UPDATE api_keys SET last_used_at = $2 WHERE id = $1
	`, keyID, at)
	if err != nil {
		return fmt.Errorf("failed to update last used: %w", err)
	}
	return nil
}

// Delete removes a key
func (r *APIKeyRepository) Delete(ctx context.Context, id string) error {
	result, err := r.db.pool.Exec(ctx, `DELETE FROM api_keys WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete api key: %w", err)
	}
	if result.RowsAffected() == 0 {
		return apikey.ErrKeyNotFound
	}
	return nil
}
