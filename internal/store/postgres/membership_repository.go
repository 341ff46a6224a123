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
	"fmt"

	"github.com/virtualstack/virtualstack/internal/id"
	"github.com/virtualstack/virtualstack/internal/membership"
)

// MembershipRepository implements membership.Repository
type MembershipRepository struct {
	db *DB
}

// NewMembershipRepository creates a new membership repository
func NewMembershipRepository(db *DB) *MembershipRepository {
	return &MembershipRepository{db: db}
}

// Insert stores a membership. Re-inserting an existing triple is a no-op;
// the ON CONFLICT clause keeps the original row and its created_at.
func (r *MembershipRepository) Insert(ctx context.Context, m *membership.Membership) (bool, error) {
	result, err := r.db.pool.Exec(ctx, `
		INSERT INTO memberships (id, user_id, role_id, tenant_id)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (user_id, role_id, tenant_id) DO NOTHING
	`, m.ID, m.UserID, m.RoleID, m.TenantID)
	if err != nil {
		return false, fmt.Errorf("failed to insert membership: %w", err)
	}
	return result.RowsAffected() > 0, nil
}

// Delete removes a membership triple
func (r *MembershipRepository) Delete(ctx context.Context, userID, roleID, tenantID string) (bool, error) {
	result, err := r.db.pool.Exec(ctx, `
		DELETE FROM memberships
		WHERE user_id = $1 AND role_id = $2 AND tenant_id = $3
	`, userID, roleID, tenantID)
	if err != nil {
		return false, fmt.Errorf("failed to delete membership: %w", err)
	}
	return result.RowsAffected() > 0, nil
}

// ListRolesForUser retrieves role IDs the user holds in a tenant
func (r *MembershipRepository) ListRolesForUser(ctx context.Context, userID, tenantID string) ([]string, error) {
	return r.listIDs(ctx, `
		SELECT role_id FROM memberships
		WHERE user_id = $1 AND tenant_id = $2
		ORDER BY created_at
	`, userID, tenantID)
}

// ListMembers retrieves user IDs holding a role in a tenant
func (r *MembershipRepository) ListMembers(ctx context.Context, roleID, tenantID string) ([]string, error) {
	return r.listIDs(ctx, `
		SELECT user_id FROM memberships
		WHERE role_id = $1 AND tenant_id = $2
		ORDER BY created_at
	`, roleID, tenantID)
}

// ListPermissionCodes computes the union of permission codes granted by
// every role the user holds in the tenant. One three-way join; DISTINCT
// collapses codes granted by several roles.
func (r *MembershipRepository) ListPermissionCodes(ctx context.Context, userID, tenantID string) ([]string, error) {
	return r.listIDs(ctx, `
		SELECT DISTINCT p.code
		FROM memberships m
		JOIN role_permissions rp ON rp.role_id = m.role_id
		JOIN permissions p ON p.id = rp.permission_id
		WHERE m.user_id = $1 AND m.tenant_id = $2
	`, userID, tenantID)
}

// IsMember reports whether the user holds any role in the tenant
func (r *MembershipRepository) IsMember(ctx context.Context, userID, tenantID string) (bool, error) {
	var exists bool
	err := r.db.pool.QueryRow(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM memberships WHERE user_id = $1 AND tenant_id = $2
		)
	`, userID, tenantID).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check membership: %w", err)
	}
	return exists, nil
}

// SetRoleMembers replaces the member set of a role in a tenant in one
// transaction. Users present in both the old and new set keep their rows.
func (r *MembershipRepository) SetRoleMembers(ctx context.Context, roleID, tenantID string, userIDs []string) ([]string, error) {
	tx, err := r.db.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	if len(userIDs) == 0 {
		if _, err := tx.Exec(ctx, `
			DELETE FROM memberships WHERE role_id = $1 AND tenant_id = $2
		`, roleID, tenantID); err != nil {
			return nil, fmt.Errorf("failed to clear role members: %w", err)
		}
	} else {
		if _, err := tx.Exec(ctx, `
			DELETE FROM memberships
			WHERE role_id = $1 AND tenant_id = $2 AND user_id != ALL($3)
		`, roleID, tenantID, userIDs); err != nil {
			return nil, fmt.Errorf("failed to remove role members: %w", err)
		}

		for _, userID := range userIDs {
			if _, err := tx.Exec(ctx, `
				INSERT INTO memberships (id, user_id, role_id, tenant_id)
				VALUES ($1, $2, $3, $4)
				ON CONFLICT (user_id, role_id, tenant_id) DO NOTHING
			`, id.NewUUIDv7(), userID, roleID, tenantID); err != nil {
				return nil, fmt.Errorf("failed to add role member: %w", err)
			}
		}
	}

	rows, err := tx.Query(ctx, `
		SELECT user_id FROM memberships
		WHERE role_id = $1 AND tenant_id = $2
		ORDER BY created_at
	`, roleID, tenantID)
	if err != nil {
		return nil, fmt.Errorf("failed to list role members: %w", err)
	}
	defer rows.Close()

	var final []string
	for rows.Next() {
		var userID string
		if err := rows.Scan(&userID); err != nil {
			return nil, fmt.Errorf("failed to scan member: %w", err)
		}
		final = append(final, userID)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	rows.Close()

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}
	return final, nil
}

func (r *MembershipRepository) listIDs(ctx context.Context, query string, args ...any) ([]string, error) {
	rows, err := r.db.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query memberships: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var v string
		if err := rows.Scan(&v); err != nil {
			return nil, fmt.Errorf("failed to scan membership row: %w", err)
		}
		ids = append(ids, v)
	}
	return ids, rows.Err()
}
