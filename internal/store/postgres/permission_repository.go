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
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/virtualstack/virtualstack/internal/permission"
)

// PermissionRepository implements permission.Repository
type PermissionRepository struct {
	db *DB
}

// NewPermissionRepository creates a new permission repository
func NewPermissionRepository(db *DB) *PermissionRepository {
	return &PermissionRepository{db: db}
}

// Upsert inserts a catalog entry keyed on code. Seeding runs this on every
// deploy; existing entries keep their IDs.
func (r *PermissionRepository) Upsert(ctx context.Context, p *permission.Permission) error {
	_, err := r.db.pool.Exec(ctx, `
		INSERT INTO permissions (id, code, name, description, module, action)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (code) DO UPDATE
		SET name = EXCLUDED.name, description = EXCLUDED.description
	`, p.ID, p.Code, p.Name, p.Description, p.Module, p.Action)
	if err != nil {
		return fmt.Errorf("failed to upsert permission: %w", err)
	}
	return nil
}

// GetByCode retrieves a permission by code
func (r *PermissionRepository) GetByCode(ctx context.Context, code string) (*permission.Permission, error) {
	var p permission.Permission
	err := r.db.pool.QueryRow(ctx, `
		SELECT id, code, name, description, module, action, created_at
		FROM permissions
		WHERE code = $1
	`, code).Scan(&p.ID, &p.Code, &p.Name, &p.Description, &p.Module, &p.Action, &p.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, permission.ErrPermissionNotFound
		}
		return nil, fmt.Errorf("failed to get permission: %w", err)
	}
	return &p, nil
}

// List retrieves the full catalog ordered by module then action
func (r *PermissionRepository) List(ctx context.Context) ([]*permission.Permission, error) {
	return r.list(ctx, `
		SELECT id, code, name, description, module, action, created_at
		FROM permissions
		ORDER BY module, action
	`)
}

// ListByModule retrieves catalog entries for one module
func (r *PermissionRepository) ListByModule(ctx context.Context, module string) ([]*permission.Permission, error) {
	return r.list(ctx, `
		SELECT id, code, name, description, module, action, created_at
		FROM permissions
		WHERE module = $1
		ORDER BY action
	`, module)
}

func (r *PermissionRepository) list(ctx context.Context, query string, args ...any) ([]*permission.Permission, error) {
	rows, err := r.db.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list permissions: %w", err)
	}
	defer rows.Close()

	var perms []*permission.Permission
	for rows.Next() {
		var p permission.Permission
		if err := rows.Scan(&p.ID, &p.Code, &p.Name, &p.Description, &p.Module, &p.Action, &p.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan permission: %w", err)
		}
		perms = append(perms, &p)
	}
	return perms, rows.Err()
}
