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

package tenant

import (
	"context"
	"fmt"
	"strings"

	"github.com/virtualstack/virtualstack/internal/audit"
	"github.com/virtualstack/virtualstack/internal/id"
)

// Service provides tenant management
type Service struct {
	repo        Repository
	auditLogger audit.Logger
}

// NewService creates a new tenant service
func NewService(repo Repository, auditLogger audit.Logger) *Service {
	return &Service{repo: repo, auditLogger: auditLogger}
}

// CreateInput carries the fields accepted at tenant creation
type CreateInput struct {
	Name        string
	Slug        string
	Description string
	ActorID     string
}

// Create creates a tenant. The slug is derived from the name when absent
// and must be unique across tenants.
func (s *Service) Create(ctx context.Context, in CreateInput) (*Tenant, error) {
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return nil, ErrNameRequired
	}

	slug := in.Slug
	if slug == "" {
		slug = Slugify(name)
	}

	if existing, err := s.repo.GetBySlug(ctx, slug); err == nil && existing != nil {
		return nil, ErrSlugTaken
	}

	t := &Tenant{
		ID:          id.NewUUIDv7(),
		Name:        name,
		Slug:        slug,
		Description: in.Description,
		IsActive:    true,
	}

	if err := s.repo.Create(ctx, t); err != nil {
		return nil, fmt.Errorf("failed to create tenant: %w", err)
	}

	s.auditLogger.Log(ctx, audit.Event{
		Type:     audit.TypeTenantCreated,
		TenantID: t.ID,
		ActorID:  in.ActorID,
		Resource: "tenant",
		Metadata: map[string]any{"name": t.Name, "slug": t.Slug},
	})

	return t, nil
}

// Get retrieves a tenant by ID
func (s *Service) Get(ctx context.Context, tenantID string) (*Tenant, error) {
	return s.repo.GetByID(ctx, tenantID)
}

// GetBySlug retrieves a tenant by slug
func (s *Service) GetBySlug(ctx context.Context, slug string) (*Tenant, error) {
	return s.repo.GetBySlug(ctx, slug)
}

// List lists tenants with pagination
func (s *Service) List(ctx context.Context, limit, offset int) ([]*Tenant, error) {
	return s.repo.List(ctx, limit, offset)
}

// UpdateInput carries the mutable tenant fields
type UpdateInput struct {
	Name        *string
	Description *string
}

// Update patches mutable tenant fields. The slug is fixed after creation so
// external references stay stable.
func (s *Service) Update(ctx context.Context, tenantID string, in UpdateInput) (*Tenant, error) {
	t, err := s.repo.GetByID(ctx, tenantID)
	if err != nil {
		return nil, err
	}

	if in.Name != nil {
		name := strings.TrimSpace(*in.Name)
		if name == "" {
			return nil, ErrNameRequired
		}
		t.Name = name
	}
	if in.Description != nil {
		t.Description = *in.Description
	}

	if err := s.repo.Update(ctx, t); err != nil {
		return nil, fmt.Errorf("failed to update tenant: %w", err)
	}
	return t, nil
}

// SetActive activates or deactivates a tenant. An inactive tenant still
// exists but every authorization decision against it denies.
func (s *Service) SetActive(ctx context.Context, tenantID string, active bool, actorID string) error {
	if _, err := s.repo.GetByID(ctx, tenantID); err != nil {
		return err
	}
	if err := s.repo.SetActive(ctx, tenantID, active); err != nil {
		return err
	}

	if !active {
		s.auditLogger.Log(ctx, audit.Event{
			Type:     audit.TypeTenantDeactivated,
			TenantID: tenantID,
			ActorID:  actorID,
			Resource: "tenant",
		})
	}
	return nil
}

// Delete removes a tenant; memberships, custom roles, tenant-scoped keys and
// invitations go with it via FK cascade.
func (s *Service) Delete(ctx context.Context, tenantID, actorID string) error {
	if _, err := s.repo.GetByID(ctx, tenantID); err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, tenantID); err != nil {
		return err
	}

	s.auditLogger.Log(ctx, audit.Event{
		Type:     audit.TypeTenantDeleted,
		TenantID: tenantID,
		ActorID:  actorID,
		Resource: "tenant",
	})
	return nil
}

// Slugify derives a URL-safe slug from a tenant name.
func Slugify(name string) string {
	var b strings.Builder
	prevDash := false
	for _, r := range strings.ToLower(strings.TrimSpace(name)) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
			prevDash = false
		default:
			if !prevDash && b.Len() > 0 {
				b.WriteByte('-')
				prevDash = true
			}
		}
	}
	return strings.TrimSuffix(b.String(), "-")
}
