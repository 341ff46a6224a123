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

package membership

import (
	"context"
	"fmt"

	"github.com/virtualstack/virtualstack/internal/audit"
	"github.com/virtualstack/virtualstack/internal/id"
	"github.com/virtualstack/virtualstack/internal/identity"
	"github.com/virtualstack/virtualstack/internal/role"
	"github.com/virtualstack/virtualstack/internal/tenant"
)

// Service manages role membership inside tenants.
type Service struct {
	repo        Repository
	users       identity.Repository
	roles       role.Repository
	tenants     tenant.Repository
	auditLogger audit.Logger
}

// NewService creates a new membership service
func NewService(repo Repository, users identity.Repository, roles role.Repository, tenants tenant.Repository, auditLogger audit.Logger) *Service {
	return &Service{
		repo:        repo,
		users:       users,
		roles:       roles,
		tenants:     tenants,
		auditLogger: auditLogger,
	}
}

// Assign grants a role to a user in a tenant. Assigning an already-held
// role is a no-op, not an error. A custom role from another tenant is
// rejected before any write.
func (s *Service) Assign(ctx context.Context, userID, roleID, tenantID, actorID string) error {
	if _, err := s.tenants.GetByID(ctx, tenantID); err != nil {
		return ErrMemberTenantNotFound
	}
	if _, err := s.users.GetByID(ctx, userID); err != nil {
		return ErrMemberUserNotFound
	}
	r, err := s.roles.GetByID(ctx, roleID)
	if err != nil {
		return ErrMemberRoleNotFound
	}
	if !r.IsSystemRole && (r.TenantID == nil || *r.TenantID != tenantID) {
		return ErrRoleTenantMismatch
	}

	created, err := s.repo.Insert(ctx, &Membership{
		ID:       id.NewUUIDv7(),
		UserID:   userID,
		RoleID:   roleID,
		TenantID: tenantID,
	})
	if err != nil {
		return fmt.Errorf("failed to assign role: %w", err)
	}

	if created {
		s.auditLogger.Log(ctx, audit.Event{
			Type:     audit.TypeRoleAssigned,
			TenantID: tenantID,
			ActorID:  actorID,
			Resource: "membership",
			Metadata: map[string]any{audit.AttrUserID: userID, audit.AttrRoleID: roleID},
		})
	}
	return nil
}

// Revoke removes a role from a user in a tenant. Unlike Assign, revoking a
// grant that does not exist is an error: the caller asked to remove
// something that was never there.
func (s *Service) Revoke(ctx context.Context, userID, roleID, tenantID, actorID string) error {
	deleted, err := s.repo.Delete(ctx, userID, roleID, tenantID)
	if err != nil {
		return fmt.Errorf("failed to revoke role: %w", err)
	}
	if !deleted {
		return ErrMembershipNotFound
	}

	s.auditLogger.Log(ctx, audit.Event{
		Type:     audit.TypeRoleRevoked,
		TenantID: tenantID,
		ActorID:  actorID,
		Resource: "membership",
		Metadata: map[string]any{audit.AttrUserID: userID, audit.AttrRoleID: roleID},
	})
	return nil
}

// PermissionCodes returns the union of permission codes the user holds in
// the tenant.
func (s *Service) PermissionCodes(ctx context.Context, userID, tenantID string) ([]string, error) {
	return s.repo.ListPermissionCodes(ctx, userID, tenantID)
}

// IsMember reports whether the user holds any role in the tenant
func (s *Service) IsMember(ctx context.Context, userID, tenantID string) (bool, error) {
	return s.repo.IsMember(ctx, userID, tenantID)
}

// RolesForUser lists role IDs the user holds in the tenant
func (s *Service) RolesForUser(ctx context.Context, userID, tenantID string) ([]string, error) {
	return s.repo.ListRolesForUser(ctx, userID, tenantID)
}

// Members lists user IDs holding a role in a tenant
func (s *Service) Members(ctx context.Context, roleID, tenantID string) ([]string, error) {
	r, err := s.roles.GetByID(ctx, roleID)
	if err != nil {
		return nil, ErrMemberRoleNotFound
	}
	if !r.IsSystemRole && (r.TenantID == nil || *r.TenantID != tenantID) {
		return nil, ErrMemberRoleNotFound
	}
	return s.repo.ListMembers(ctx, roleID, tenantID)
}

// SetRoleMembers replaces the member set of a role in a tenant. Users in
// both the old and new set keep their original membership rows.
func (s *Service) SetRoleMembers(ctx context.Context, roleID, tenantID string, userIDs []string, actorID string) ([]string, error) {
	if _, err := s.tenants.GetByID(ctx, tenantID); err != nil {
		return nil, ErrMemberTenantNotFound
	}
	r, err := s.roles.GetByID(ctx, roleID)
	if err != nil {
		return nil, ErrMemberRoleNotFound
	}
	if !r.IsSystemRole && (r.TenantID == nil || *r.TenantID != tenantID) {
		return nil, ErrRoleTenantMismatch
	}
	for _, userID := range userIDs {
		if _, err := s.users.GetByID(ctx, userID); err != nil {
			return nil, ErrMemberUserNotFound
		}
	}

	final, err := s.repo.SetRoleMembers(ctx, roleID, tenantID, userIDs)
	if err != nil {
		return nil, fmt.Errorf("failed to set role members: %w", err)
	}

	s.auditLogger.Log(ctx, audit.Event{
		Type:     audit.TypeRoleAssigned,
		TenantID: tenantID,
		ActorID:  actorID,
		Resource: "membership",
		Metadata: map[string]any{audit.AttrRoleID: roleID, "member_count": len(final)},
	})
	return final, nil
}
