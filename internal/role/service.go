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

package role

import (
	"context"
	"fmt"
	"strings"

	"github.com/virtualstack/virtualstack/internal/audit"
	"github.com/virtualstack/virtualstack/internal/id"
)

// Service provides role management. Custom roles live inside one tenant;
// system roles are read-only here and only created by seeding.
type Service struct {
	repo        Repository
	auditLogger audit.Logger
}

// NewService creates a new role service
func NewService(repo Repository, auditLogger audit.Logger) *Service {
	return &Service{repo: repo, auditLogger: auditLogger}
}

// CreateInput carries the fields accepted at custom role creation
type CreateInput struct {
	TenantID    string
	Name        string
	Description string
	Permissions []string
	ActorID     string
}

// CreateCustomRole creates a tenant-owned role. Names are unique within the
// tenant; system role names are also off limits to avoid shadowing.
func (s *Service) CreateCustomRole(ctx context.Context, in CreateInput) (*Role, error) {
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return nil, ErrNameRequired
	}

	if existing, err := s.repo.GetByName(ctx, name, &in.TenantID); err == nil && existing != nil {
		return nil, ErrRoleNameTaken
	}
	if existing, err := s.repo.GetByName(ctx, name, nil); err == nil && existing != nil {
		return nil, ErrRoleNameTaken
	}

	r := &Role{
		ID:          id.NewUUIDv7(),
		Name:        name,
		Description: in.Description,
		TenantID:    &in.TenantID,
	}

	if err := s.repo.Create(ctx, r); err != nil {
		return nil, fmt.Errorf("failed to create role: %w", err)
	}

	if len(in.Permissions) > 0 {
		if err := s.repo.SetPermissionCodes(ctx, r.ID, in.Permissions); err != nil {
			return nil, fmt.Errorf("failed to grant permissions: %w", err)
		}
	}

	s.auditLogger.Log(ctx, audit.Event{
		Type:     audit.TypeRoleCreated,
		TenantID: in.TenantID,
		ActorID:  in.ActorID,
		Resource: "role",
		Metadata: map[string]any{"name": r.Name, audit.AttrRoleID: r.ID},
	})

	return r, nil
}

// Get retrieves a role visible from a tenant: a system role, or a custom
// role owned by that tenant. Custom roles of other tenants are reported as
// not found, never as forbidden.
func (s *Service) Get(ctx context.Context, tenantID, roleID string) (*Role, error) {
	r, err := s.repo.GetByID(ctx, roleID)
	if err != nil {
		return nil, err
	}
	if !r.IsSystemRole && (r.TenantID == nil || *r.TenantID != tenantID) {
		return nil, ErrRoleNotFound
	}
	return r, nil
}

// ListForTenant lists system roles plus the tenant's custom roles with live
// member counts.
func (s *Service) ListForTenant(ctx context.Context, tenantID string) ([]*WithMemberCount, error) {
	return s.repo.ListForTenant(ctx, tenantID)
}

// UpdateInput carries the mutable role fields
type UpdateInput struct {
	Name        *string
	Description *string
	Permissions []string
	ActorID     string
}

// UpdateCustomRole patches a custom role; system roles are immutable.
func (s *Service) UpdateCustomRole(ctx context.Context, tenantID, roleID string, in UpdateInput) (*Role, error) {
	r, err := s.Get(ctx, tenantID, roleID)
	if err != nil {
		return nil, err
	}
	if r.IsSystemRole {
		return nil, ErrSystemRoleImmutable
	}

	if in.Name != nil {
		name := strings.TrimSpace(*in.Name)
		if name != "" && name != r.Name {
			if existing, err := s.repo.GetByName(ctx, name, &tenantID); err == nil && existing != nil {
				return nil, ErrRoleNameTaken
			}
			r.Name = name
		}
	}
	if in.Description != nil {
		r.Description = *in.Description
	}

	if err := s.repo.Update(ctx, r); err != nil {
		return nil, fmt.Errorf("failed to update role: %w", err)
	}

	if in.Permissions != nil {
		if err := s.repo.SetPermissionCodes(ctx, r.ID, in.Permissions); err != nil {
			return nil, fmt.Errorf("failed to update permissions: %w", err)
		}
	}

	s.auditLogger.Log(ctx, audit.Event{
		Type:     audit.TypeRoleUpdated,
		TenantID: tenantID,
		ActorID:  in.ActorID,
		Resource: "role",
		Metadata: map[string]any{audit.AttrRoleID: r.ID},
	})

	return r, nil
}

// DeleteCustomRole removes a custom role. Deletion is blocked while any
// membership still holds the role; the membership check runs before the
// permission links are touched, so a blocked delete leaves no side effects.
func (s *Service) DeleteCustomRole(ctx context.Context, tenantID, roleID, actorID string) error {
	r, err := s.Get(ctx, tenantID, roleID)
	if err != nil {
		return err
	}
	if r.IsSystemRole {
		return ErrSystemRoleImmutable
	}

	count, err := s.repo.CountMembers(ctx, r.ID)
	if err != nil {
		return fmt.Errorf("failed to count role members: %w", err)
	}
	if count > 0 {
		return ErrRoleInUse
	}

	if err := s.repo.Delete(ctx, r.ID); err != nil {
		return fmt.Errorf("failed to delete role: %w", err)
	}

	s.auditLogger.Log(ctx, audit.Event{
		Type:     audit.TypeRoleDeleted,
		TenantID: tenantID,
		ActorID:  actorID,
		Resource: "role",
		Metadata: map[string]any{audit.AttrRoleID: r.ID, "name": r.Name},
	})
	return nil
}

// GetPermissions lists the permission codes a role grants
func (s *Service) GetPermissions(ctx context.Context, tenantID, roleID string) ([]string, error) {
	if _, err := s.Get(ctx, tenantID, roleID); err != nil {
		return nil, err
	}
	return s.repo.GetPermissionCodes(ctx, roleID)
}
