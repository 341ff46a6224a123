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

package apikey

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
	"time"

	"github.com/virtualstack/virtualstack/internal/audit"
	"github.com/virtualstack/virtualstack/internal/id"
	"github.com/virtualstack/virtualstack/internal/identity"
)

const (
	// Marker prefixes every raw key so keys are recognizable in logs and
	// secret scanners.
	Marker = "vsak_"

	// PrefixLength is the indexed, non-secret leading slice of a raw key.
	PrefixLength = 8

	// rawEntropyBytes of randomness go into each key suffix.
	rawEntropyBytes = 32
)

// UserGetter resolves key owners. Satisfied by identity.Repository.
type UserGetter interface {
	GetByID(ctx context.Context, id string) (*identity.User, error)
}

// Service manages the API key lifecycle: generation, validation, listing
// and revocation.
type Service struct {
	repo        Repository
	users       UserGetter
	auditLogger audit.Logger
	now         func() time.Time
}

// NewService creates a new API key service
func NewService(repo Repository, users UserGetter, auditLogger audit.Logger) *Service {
	return &Service{
		repo:        repo,
		users:       users,
		auditLogger: auditLogger,
		now:         time.Now,
	}
}

// WithClock overrides the clock, for expiry tests.
func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

// Generate produces a raw key plus the two derived values that are allowed
// to persist: the lookup prefix and the one-way digest of the full key.
func Generate() (raw, prefix, hash string, err error) {
	buf := make([]byte, rawEntropyBytes)
	if _, err = rand.Read(buf); err != nil {
		return "", "", "", fmt.Errorf("failed to generate key material: %w", err)
	}
	raw = Marker + hex.EncodeToString(buf)
	return raw, raw[:PrefixLength], HashKey(raw), nil
}

// HashKey computes the storage digest of a raw key.
func HashKey(raw string) string {
	sum := sha256.Sum256([]byte(raw))
	return hex.EncodeToString(sum[:])
}

// CreateInput carries the fields accepted at key creation
type CreateInput struct {
	OwnerID     string
	Name        string
	Description string
	Scope       Scope
	TenantID    *string
	ExpiresAt   *time.Time
}

// Create generates and stores a new key. The returned raw key is the only
// time the cleartext value is ever available.
func (s *Service) Create(ctx context.Context, in CreateInput) (*Key, string, error) {
	switch in.Scope {
	case ScopeTenant:
		if in.TenantID == nil {
			return nil, "", ErrTenantRequired
		}
	case ScopeGlobal:
		if in.TenantID != nil {
			return nil, "", ErrTenantForbidden
		}
	default:
		return nil, "", ErrInvalidScope
	}

	raw, prefix, hash, err := Generate()
	if err != nil {
		return nil, "", err
	}

	key := &Key{
		ID:          id.NewUUIDv7(),
		Name:        in.Name,
		KeyPrefix:   prefix,
		KeyHash:     hash,
		Description: in.Description,
		IsActive:    true,
		ExpiresAt:   in.ExpiresAt,
		UserID:      in.OwnerID,
		TenantID:    in.TenantID,
		Scope:       in.Scope,
	}

	if err := s.repo.Create(ctx, key); err != nil {
		return nil, "", fmt.Errorf("failed to create api key: %w", err)
	}

	tenantID := ""
	if in.TenantID != nil {
		tenantID = *in.TenantID
	}
	s.auditLogger.Log(ctx, audit.Event{
		Type:     audit.TypeAPIKeyCreated,
		TenantID: tenantID,
		ActorID:  in.OwnerID,
		Resource: "api_key",
		Metadata: map[string]any{audit.AttrKeyName: in.Name},
	})

	return key, raw, nil
}

// Validate re-derives prefix and digest from the presented key and resolves
// the owning user. Every failure branch is a plain ErrInvalidKey: lookups
// never reveal whether the prefix, the digest, the expiry or the owner was
// the problem.
func (s *Service) Validate(ctx context.Context, raw string) (*Key, *identity.User, error) {
	if len(raw) < PrefixLength+1 || !strings.HasPrefix(raw, Marker) {
		return nil, nil, ErrInvalidKey
	}

	key, err := s.repo.GetActiveByPrefixHash(ctx, raw[:PrefixLength], HashKey(raw))
	if err != nil {
		return nil, nil, ErrInvalidKey
	}

	// Expiry is enforced here, lazily, not by a reaper.
	if key.ExpiresAt != nil && key.ExpiresAt.Before(s.now()) {
		return nil, nil, ErrInvalidKey
	}

	user, err := s.users.GetByID(ctx, key.UserID)
	if err != nil || user == nil || !user.IsActive {
		return nil, nil, ErrInvalidKey
	}

	// Best-effort usage timestamp; failure must not fail validation.
	_ = s.repo.UpdateLastUsed(ctx, key.ID, s.now())

	return key, user, nil
}

// List applies the visibility rule: owners see their own keys, superusers
// see everything and may narrow by tenant.
func (s *Service) List(ctx context.Context, caller *identity.User, tenantID *string, limit, offset int) ([]*Key, error) {
	if caller.IsSuperuser {
		if tenantID != nil {
			return s.repo.ListByTenant(ctx, *tenantID, limit, offset)
		}
		return s.repo.ListAll(ctx, limit, offset)
	}
	return s.repo.ListByUser(ctx, caller.ID, limit, offset)
}

// Get retrieves a key the caller is allowed to see
func (s *Service) Get(ctx context.Context, caller *identity.User, keyID string) (*Key, error) {
	key, err := s.repo.GetByID(ctx, keyID)
	if err != nil {
		return nil, err
	}
	if !caller.IsSuperuser && key.UserID != caller.ID {
		return nil, ErrKeyNotFound
	}
	return key, nil
}

// UpdateInput carries the mutable key fields
type UpdateInput struct {
	Name        *string
	Description *string
	IsActive    *bool
}

// Update patches a key the caller owns (or any key for superusers)
func (s *Service) Update(ctx context.Context, caller *identity.User, keyID string, in UpdateInput) (*Key, error) {
	key, err := s.Get(ctx, caller, keyID)
	if err != nil {
		return nil, err
	}

	if in.Name != nil {
		key.Name = *in.Name
	}
	if in.Description != nil {
		key.Description = *in.Description
	}
	if in.IsActive != nil {
		key.IsActive = *in.IsActive
	}

	if err := s.repo.Update(ctx, key); err != nil {
		return nil, fmt.Errorf("failed to update api key: %w", err)
	}
	return key, nil
}

// Delete removes a key the caller owns (or any key for superusers)
func (s *Service) Delete(ctx context.Context, caller *identity.User, keyID string) error {
	key, err := s.Get(ctx, caller, keyID)
	if err != nil {
		return err
	}

	if err := s.repo.Delete(ctx, key.ID); err != nil {
		return err
	}

	tenantID := ""
	if key.TenantID != nil {
		tenantID = *key.TenantID
	}
	s.auditLogger.Log(ctx, audit.Event{
		Type:     audit.TypeAPIKeyRevoked,
		TenantID: tenantID,
		ActorID:  caller.ID,
		Resource: "api_key",
		Metadata: map[string]any{audit.AttrKeyName: key.Name},
	})
	return nil
}
