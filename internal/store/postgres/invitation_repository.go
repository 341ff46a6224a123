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
	"github.com/virtualstack/virtualstack/internal/id"
	"github.com/virtualstack/virtualstack/internal/invitation"
)

// InvitationRepository implements invitation.Repository
type InvitationRepository struct {
	db *DB
}

// NewInvitationRepository creates a new invitation repository
func NewInvitationRepository(db *DB) *InvitationRepository {
	return &InvitationRepository{db: db}
}

const invitationColumns = `
	id, email, tenant_id, role_id, token, status, invited_by, user_id,
	expires_at, accepted_at, created_at, updated_at`

// Create stores a new invitation
func (r *InvitationRepository) Create(ctx context.Context, inv *invitation.Invitation) error {
	now := time.Now()
	_, err := r.db.pool.Exec(ctx, `
		INSERT INTO invitations (id, email, tenant_id, role_id, token, status, invited_by,
			expires_at, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`,
		inv.ID, inv.Email, inv.TenantID, inv.RoleID, inv.Token, inv.Status,
		inv.InvitedBy, inv.ExpiresAt, now, now,
	)
	if err != nil {
		return fmt.Errorf("failed to insert invitation: %w", err)
	}

	inv.CreatedAt = now
	inv.UpdatedAt = now
	return nil
}

// GetByID retrieves an invitation by ID
func (r *InvitationRepository) GetByID(ctx context.Context, invID string) (*invitation.Invitation, error) {
	return r.scanOne(r.db.pool.QueryRow(ctx,
		`SELECT `+invitationColumns+` FROM invitations WHERE id = $1`, invID))
}

// GetByToken retrieves an invitation by its opaque token
func (r *InvitationRepository) GetByToken(ctx context.Context, token string) (*invitation.Invitation, error) {
	return r.scanOne(r.db.pool.QueryRow(ctx,
		`SELECT `+invitationColumns+` FROM invitations WHERE token = $1`, token))
}

// GetPendingByEmailTenant retrieves a PENDING invitation for the pair
func (r *InvitationRepository) GetPendingByEmailTenant(ctx context.Context, email, tenantID string) (*invitation.Invitation, error) {
	return r.scanOne(r.db.pool.QueryRow(ctx,
		`SELECT `+invitationColumns+` FROM invitations
		 WHERE email = $1 AND tenant_id = $2 AND status = 'PENDING'`, email, tenantID))
}

func (r *InvitationRepository) scanOne(row pgx.Row) (*invitation.Invitation, error) {
	var inv invitation.Invitation
	var acceptedAt sql.NullTime

	err := row.Scan(
		&inv.ID, &inv.Email, &inv.TenantID, &inv.RoleID, &inv.Token, &inv.Status,
		&inv.InvitedBy, &inv.UserID, &inv.ExpiresAt, &acceptedAt,
		&inv.CreatedAt, &inv.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, invitation.ErrInvitationNotFound
		}
		return nil, fmt.Errorf("failed to get invitation: %w", err)
	}

	if acceptedAt.Valid {
		inv.AcceptedAt = &acceptedAt.Time
	}
	return &inv, nil
}

// UpdateStatus transitions an invitation's status
func (r *InvitationRepository) UpdateStatus(ctx context.Context, invID string, status invitation.Status) error {
	result, err := r.db.pool.Exec(ctx, `
		UPDATE invitations SET status = $2, updated_at = NOW()
		WHERE id = $1
	`, invID, status)
	if err != nil {
		return fmt.Errorf("failed to update invitation status: %w", err)
	}
	if result.RowsAffected() == 0 {
		return invitation.ErrInvitationNotFound
	}
	return nil
}

// AcceptWithMembership marks the invitation ACCEPTED and, when it carries a
// role, inserts the membership row in the same transaction. The status
// predicate makes a second accept of the same token a no-op that errors.
func (r *InvitationRepository) AcceptWithMembership(ctx context.Context, invitationID, userID string, acceptedAt time.Time) error {
	tx, err := r.db.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	var tenantID string
	var roleID *string
	err = tx.QueryRow(ctx, `
		UPDATE invitations
		SET status = 'ACCEPTED', user_id = $2, accepted_at = $3, updated_at = NOW()
		WHERE id = $1 AND status = 'PENDING'
		RETURNING tenant_id, role_id
	`, invitationID, userID, acceptedAt).Scan(&tenantID, &roleID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return invitation.ErrInvitationNotPending
		}
		return fmt.Errorf("failed to accept invitation: %w", err)
	}

	if roleID != nil {
		if _, err := tx.Exec(ctx, `
			INSERT INTO memberships (id, user_id, role_id, tenant_id)
			VALUES ($1, $2, $3, $4)
			ON CONFLICT (user_id, role_id, tenant_id) DO NOTHING
		`, id.NewUUIDv7(), userID, *roleID, tenantID); err != nil {
			return fmt.Errorf("failed to grant invited role: %w", err)
		}
	}

	return tx.Commit(ctx)
}

// ListByTenant retrieves a tenant's invitations with pagination
func (r *InvitationRepository) ListByTenant(ctx context.Context, tenantID string, limit, offset int) ([]*invitation.Invitation, error) {
	return r.list(ctx,
		`SELECT `+invitationColumns+` FROM invitations
		 WHERE tenant_id = $1 ORDER BY created_at DESC LIMIT $2 OFFSET $3`,
		tenantID, limit, offset)
}

// ListPendingByTenant retrieves a tenant's PENDING invitations
func (r *InvitationRepository) ListPendingByTenant(ctx context.Context, tenantID string) ([]*invitation.Invitation, error) {
	return r.list(ctx,
		`SELECT `+invitationColumns+` FROM invitations
		 WHERE tenant_id = $1 AND status = 'PENDING' ORDER BY created_at DESC`,
		tenantID)
}

func (r *InvitationRepository) list(ctx context.Context, query string, args ...any) ([]*invitation.Invitation, error) {
	rows, err := r.db.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list invitations: %w", err)
	}
	defer rows.Close()

	var invs []*invitation.Invitation
	for rows.Next() {
		var inv invitation.Invitation
		var acceptedAt sql.NullTime
		if err := rows.Scan(
			&inv.ID, &inv.Email, &inv.TenantID, &inv.RoleID, &inv.Token, &inv.Status,
			&inv.InvitedBy, &inv.UserID, &inv.ExpiresAt, &acceptedAt,
			&inv.CreatedAt, &inv.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan invitation: %w", err)
		}
		if acceptedAt.Valid {
			inv.AcceptedAt = &acceptedAt.Time
		}
		invs = append(invs, &inv)
	}
	return invs, rows.Err()
}
