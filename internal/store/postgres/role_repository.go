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
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/virtualstack/virtualstack/internal/role"
)

// RoleRepository implements role.Repository
type RoleRepository struct {
	db *DB
}

// NewRoleRepository creates a new role repository
func NewRoleRepository(db *DB) *RoleRepository {
	return &RoleRepository{db: db}
}

// Create creates a new role
func (r *RoleRepository) Create(ctx context.Context, ro *role.Role) error {
	now := time.Now()
	_, err := r.db.pool.Exec(ctx, `
		INSERT INTO roles (id, name, description, is_system_role, tenant_id, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, ro.ID, ro.Name, ro.Description, ro.IsSystemRole, ro.TenantID, now, now)
	if err != nil {
		return fmt.Errorf("failed to insert role: %w", err)
	}

	ro.CreatedAt = now
	ro.UpdatedAt = now
	return nil
}

// GetByID retrieves a role by ID
func (r *RoleRepository) GetByID(ctx context.Context, id string) (*role.Role, error) {
	return r.scanOne(r.db.pool.QueryRow(ctx, `
		SELECT id, name, description, is_system_role, tenant_id, created_at, updated_at
		FROM roles
		WHERE id = $1
	`, id))
}

// GetByName retrieves a role by name within a scope. A nil tenantID selects
// the system scope.
func (r *RoleRepository) GetByName(ctx context.Context, name string, tenantID *string) (*role.Role, error) {
	if tenantID == nil {
		return r.scanOne(r.db.pool.QueryRow(ctx, `
			SELECT id, name, description, is_system_role, tenant_id, created_at, updated_at
			FROM roles
			WHERE name = $1 AND tenant_id IS NULL
		`, name))
	}
	return r.scanOne(r.db.pool.QueryRow(ctx, `
		SELECT id, name, description, is_system_role, tenant_id, created_at, updated_at
		FROM roles
		WHERE name = $1 AND tenant_id = $2
	`, name, *tenantID))
}

func (r *RoleRepository) scanOne(row pgx.Row) (*role.Role, error) {
	var ro role.Role
	err := row.Scan(&ro.ID, &ro.Name, &ro.Description, &ro.IsSystemRole, &ro.TenantID, &ro.CreatedAt, &ro.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, role.ErrRoleNotFound
		}
		return nil, fmt.Errorf("failed to get role: %w", err)
	}
	return &ro, nil
}

// ListForTenant retrieves system roles plus the tenant's custom roles, each
// with its live member count within that tenant, in one query.
func (r *RoleRepository) ListForTenant(ctx context.Context, tenantID string) ([]*role.WithMemberCount, error) {
	rows, err := r.db.pool.Query(ctx, `
		SELECT ro.id, ro.name, ro.description, ro.is_system_role, ro.tenant_id,
			ro.created_at, ro.updated_at,
			COUNT(m.id) AS member_count
		FROM roles ro
		LEFT JOIN memberships m ON m.role_id = ro.id AND m.tenant_id = $1
		WHERE ro.tenant_id IS NULL OR ro.tenant_id = $1
		GROUP BY ro.id
		ORDER BY ro.is_system_role DESC, ro.name
	`, tenantID)
	if err != nil {
		return nil, fmt.Errorf("failed to list roles: %w", err)
	}
	defer rows.Close()

	var roles []*role.WithMemberCount
	for rows.Next() {
		var ro role.WithMemberCount
		if err := rows.Scan(
			&ro.ID, &ro.Name, &ro.Description, &ro.IsSystemRole, &ro.TenantID,
			&ro.CreatedAt, &ro.UpdatedAt, &ro.MemberCount,
		); err != nil {
			return nil, fmt.Errorf("failed to scan role: %w", err)
		}
		roles = append(roles, &ro)
	}
	return roles, rows.Err()
}

// Update updates mutable role fields
func (r *RoleRepository) Update(ctx context.Context, ro *role.Role) error {
	result, err := r.db.pool.Exec(ctx, `
		UPDATE roles SET name = $2, description = $3, updated_at = NOW()
		WHERE id = $1
	`, ro.ID, ro.Name, ro.Description)
	if err != nil {
		return fmt.Errorf("failed to update role: %w", err)
	}
	if result.RowsAffected() == 0 {
		return role.ErrRoleNotFound
	}
	return nil
}

// Delete removes a role; permission links cascade
func (r *RoleRepository) Delete(ctx context.Context, id string) error {
	result, err := r.db.pool.Exec(ctx, `DELETE FROM roles WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete role: %w", err)
	}
	if result.RowsAffected() == 0 {
		return role.ErrRoleNotFound
	}
	return nil
}

// CountMembers counts memberships holding the role across all tenants
func (r *RoleRepository) CountMembers(ctx context.Context, roleID string) (int, error) {
	var count int
	err := r.db.pool.QueryRow(ctx, `
		SELECT COUNT(*) FROM memberships WHERE role_id = $1
	`, roleID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count role members: %w", err)
	}
	return count, nil
}

// GetPermissionCodes retrieves the permission codes granted by a role
func (r *RoleRepository) GetPermissionCodes(ctx context.Context, roleID string) ([]string, error) {
	rows, err := r.db.pool.Query(ctx, `
		SELECT p.code
		FROM role_permissions rp
		JOIN permissions p ON p.id = rp.permission_id
		WHERE rp.role_id = $1
		ORDER BY p.code
	`, roleID)
	if err != nil {
		return nil, fmt.Errorf("failed to get role permissions: %w", err)
	}
	defer rows.Close()

	var codes []string
	for rows.Next() {
		var code string
		if err := rows.Scan(&code); err != nil {
			return nil, fmt.Errorf("failed to scan permission code: %w", err)
		}
		codes = append(codes, code)
	}
	return codes, rows.Err()
}

// SetPermissionCodes replaces the role's grants in one transaction. Codes
// that are not in the catalog are ignored by the join.
func (r *RoleRepository) SetPermissionCodes(ctx context.Context, roleID string, codes []string) error {
	tx, err := r.db.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `DELETE FROM role_permissions WHERE role_id = $1`, roleID); err != nil {
		return fmt.Errorf("failed to clear role permissions: %w", err)
	}

	if len(codes) > 0 {
		_, err = tx.Exec(ctx, `
			INSERT INTO role_permissions (role_id, permission_id)
			SELECT $1, p.id FROM permissions p WHERE p.code = ANY($2)
		`, roleID, codes)
		if err != nil {
			return fmt.Errorf("failed to set role permissions: %w", err)
		}
	}

	return tx.Commit(ctx)
}
