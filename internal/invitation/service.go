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

package invitation

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/virtualstack/virtualstack/internal/audit"
	"github.com/virtualstack/virtualstack/internal/id"
	"github.com/virtualstack/virtualstack/internal/identity"
	"github.com/virtualstack/virtualstack/internal/role"
)

// RoleGetter resolves the role an invitation would grant on acceptance.
type RoleGetter interface {
	GetByID(ctx context.Context, roleID string) (*role.Role, error)
}

// Service runs the invitation workflow: create, verify, accept, revoke.
type Service struct {
	repo        Repository
	roles       RoleGetter
	auditLogger audit.Logger
	ttl         time.Duration
	now         func() time.Time
}

// NewService creates a new invitation service. ttl is how long a fresh
// invitation stays acceptable.
func NewService(repo Repository, roles RoleGetter, auditLogger audit.Logger, ttl time.Duration) *Service {
	return &Service{
		repo:        repo,
		roles:       roles,
		auditLogger: auditLogger,
		ttl:         ttl,
		now:         time.Now,
	}
}

// WithClock overrides the clock, for expiry tests.
func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

// CreateInput carries the fields accepted at invitation creation
type CreateInput struct {
	Email     string
	TenantID  string
	RoleID    *string
	InvitedBy string
}

// Create invites an email into a tenant. While a live PENDING invitation
// exists for the same (email, tenant) pair, Create returns that invitation
// instead of minting a duplicate.
func (s *Service) Create(ctx context.Context, in CreateInput) (*Invitation, error) {
	email := identity.NormalizeEmail(in.Email)
	if email == "" {
		return nil, identity.ErrInvalidEmail
	}
	if err := s.validateRole(ctx, in.RoleID, in.TenantID); err != nil {
		return nil, err
	}

	if existing, err := s.repo.GetPendingByEmailTenant(ctx, email, in.TenantID); err == nil && existing != nil {
		if existing.ExpiresAt.After(s.now()) {
			return existing, nil
		}
		// The pending row has lapsed; persist the transition before
		// minting a replacement.
		if err := s.repo.UpdateStatus(ctx, existing.ID, StatusExpired); err != nil {
			return nil, fmt.Errorf("failed to expire invitation: %w", err)
		}
	}

	token, err := newToken()
	if err != nil {
		return nil, err
	}

	inv := &Invitation{
		ID:        id.NewUUIDv7(),
		Email:     email,
		TenantID:  in.TenantID,
		RoleID:    in.RoleID,
		Token:     token,
		Status:    StatusPending,
		InvitedBy: in.InvitedBy,
		ExpiresAt: s.now().Add(s.ttl),
	}

	if err := s.repo.Create(ctx, inv); err != nil {
		return nil, fmt.Errorf("failed to create invitation: %w", err)
	}

	s.auditLogger.Log(ctx, audit.Event{
		Type:     audit.TypeInvitationCreated,
		TenantID: in.TenantID,
		ActorID:  in.InvitedBy,
		Resource: "invitation",
		Metadata: map[string]any{audit.AttrInvitee: email},
	})

	return inv, nil
}

// Verify checks whether a token identifies an acceptable invitation. A
// PENDING invitation past its expiry is transitioned to EXPIRED and
// persisted before the failure is reported, so verification has a visible
// side effect.
func (s *Service) Verify(ctx context.Context, token string) (*Invitation, error) {
	inv, err := s.repo.GetByToken(ctx, token)
	if err != nil {
		return nil, ErrInvitationInvalid
	}

	if inv.Status != StatusPending {
		return nil, ErrInvitationInvalid
	}

	if !inv.ExpiresAt.After(s.now()) {
		if err := s.repo.UpdateStatus(ctx, inv.ID, StatusExpired); err != nil {
			return nil, fmt.Errorf("failed to expire invitation: %w", err)
		}
		inv.Status = StatusExpired
		return nil, ErrInvitationInvalid
	}

	return inv, nil
}

// Accept consumes an invitation on behalf of user. The user's email must
// match the invitee's. The status flip and the role grant land in one
// transaction; a second Accept with the same token fails because the
// invitation is no longer PENDING.
func (s *Service) Accept(ctx context.Context, token string, user *identity.User) (*Invitation, error) {
	inv, err := s.Verify(ctx, token)
	if err != nil {
		return nil, err
	}

	if identity.NormalizeEmail(user.Email) != inv.Email {
		return nil, ErrEmailMismatch
	}
	// Re-checked at acceptance: the role may have been deleted since the
	// invitation was created, and a stale row must never materialize a
	// grant outside its tenant.
	if err := s.validateRole(ctx, inv.RoleID, inv.TenantID); err != nil {
		return nil, err
	}

	acceptedAt := s.now()
	if err := s.repo.AcceptWithMembership(ctx, inv.ID, user.ID, acceptedAt); err != nil {
		return nil, fmt.Errorf("failed to accept invitation: %w", err)
	}

	inv.Status = StatusAccepted
	inv.UserID = &user.ID
	inv.AcceptedAt = &acceptedAt

	s.auditLogger.Log(ctx, audit.Event{
		Type:     audit.TypeInvitationAccepted,
		TenantID: inv.TenantID,
		ActorID:  user.ID,
		Resource: "invitation",
		Metadata: map[string]any{audit.AttrInvitee: inv.Email},
	})

	return inv, nil
}

// Revoke withdraws a PENDING invitation. Terminal invitations cannot be
// revoked.
func (s *Service) Revoke(ctx context.Context, invitationID, actorID string) error {
	inv, err := s.repo.GetByID(ctx, invitationID)
	if err != nil {
		return err
	}
	if inv.Status != StatusPending {
		return ErrInvitationNotPending
	}

	if err := s.repo.UpdateStatus(ctx, inv.ID, StatusRevoked); err != nil {
		return fmt.Errorf("failed to revoke invitation: %w", err)
	}

	s.auditLogger.Log(ctx, audit.Event{
		Type:     audit.TypeInvitationRevoked,
		TenantID: inv.TenantID,
		ActorID:  actorID,
		Resource: "invitation",
		Metadata: map[string]any{audit.AttrInvitee: inv.Email},
	})
	return nil
}

// Get retrieves an invitation by ID
func (s *Service) Get(ctx context.Context, invitationID string) (*Invitation, error) {
	return s.repo.GetByID(ctx, invitationID)
}

// ListByTenant lists a tenant's invitations with pagination
func (s *Service) ListByTenant(ctx context.Context, tenantID string, limit, offset int) ([]*Invitation, error) {
	return s.repo.ListByTenant(ctx, tenantID, limit, offset)
}

// ListPendingByTenant lists a tenant's PENDING invitations
func (s *Service) ListPendingByTenant(ctx context.Context, tenantID string) ([]*Invitation, error) {
	return s.repo.ListPendingByTenant(ctx, tenantID)
}

// validateRole enforces that a granted role is either a system role or owned
// by the invitation's tenant. A nil roleID grants nothing and is always valid.
func (s *Service) validateRole(ctx context.Context, roleID *string, tenantID string) error {
	if roleID == nil {
		return nil
	}
	r, err := s.roles.GetByID(ctx, *roleID)
	if err != nil {
		return ErrInviteRoleNotFound
	}
	if !r.IsSystemRole && (r.TenantID == nil || *r.TenantID != tenantID) {
		return ErrRoleTenantMismatch
	}
	return nil
}

func newToken() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("failed to generate invitation token: %w", err)
	}
	return hex.EncodeToString(buf), nil
}
