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

package permission

import (
	"context"
	"fmt"
	"sync"
)

// Service serves the permission catalog. The catalog only changes at deploy
// time via seeding, so reads go through a process-wide cache that is filled
// on first use and invalidated manually.
type Service struct {
	repo Repository

	mu      sync.RWMutex
	byCode  map[string]*Permission
	ordered []*Permission
}

// NewService creates a new permission service
func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// List returns the full catalog
func (s *Service) List(ctx context.Context) ([]*Permission, error) {
	if err := s.ensureLoaded(ctx); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*Permission, len(s.ordered))
	copy(out, s.ordered)
	return out, nil
}

// ListByModule returns catalog entries for one module
func (s *Service) ListByModule(ctx context.Context, module string) ([]*Permission, error) {
	if err := s.ensureLoaded(ctx); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*Permission
	for _, p := range s.ordered {
		if p.Module == module {
			out = append(out, p)
		}
	}
	return out, nil
}

// GetByCode resolves a code against the cached catalog
func (s *Service) GetByCode(ctx context.Context, code string) (*Permission, error) {
	if err := s.ensureLoaded(ctx); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.byCode[code]
	if !ok {
		return nil, ErrPermissionNotFound
	}
	return p, nil
}

// Invalidate drops the cache; the next read reloads from the store.
func (s *Service) Invalidate() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.byCode = nil
	s.ordered = nil
}

func (s *Service) ensureLoaded(ctx context.Context) error {
	s.mu.RLock()
	loaded := s.byCode != nil
	s.mu.RUnlock()
	if loaded {
		return nil
	}

	perms, err := s.repo.List(ctx)
	if err != nil {
		return fmt.Errorf("failed to load permission catalog: %w", err)
	}

	byCode := make(map[string]*Permission, len(perms))
	for _, p := range perms {
		byCode[p.Code] = p
	}

	s.mu.Lock()
	s.byCode = byCode
	s.ordered = perms
	s.mu.Unlock()
	return nil
}
