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

package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/virtualstack/virtualstack/internal/audit"
	"github.com/virtualstack/virtualstack/internal/config"
	"github.com/virtualstack/virtualstack/internal/id"
	"github.com/virtualstack/virtualstack/internal/identity"
	"github.com/virtualstack/virtualstack/internal/permission"
	"github.com/virtualstack/virtualstack/internal/role"
	"github.com/virtualstack/virtualstack/internal/store/postgres"
)

// System roles created at seed time. Grants are expressed as code filters
// over the catalog, so new catalog entries flow into the roles on the next
// seed run.
var systemRoles = []struct {
	name        string
	description string
	grants      func(code string) bool
}{
	{
		name:        "admin",
		description: "Full access to every module within a tenant",
		grants:      func(code string) bool { return true },
	},
	{
		name:        "member",
		description: "Manage workloads, read everything else",
		grants: func(code string) bool {
			return strings.HasPrefix(code, permission.ModuleVM+":") ||
				strings.HasSuffix(code, ":"+permission.ActionRead)
		},
	},
	{
		name:        "viewer",
		description: "Read-only access",
		grants: func(code string) bool {
			return strings.HasSuffix(code, ":"+permission.ActionRead)
		},
	},
}

// runSeed populates the permission catalog and system roles, and optionally
// bootstraps a superuser from SEED_ADMIN_EMAIL / SEED_ADMIN_PASSWORD.
// Every step is an upsert keyed on natural uniqueness (permission code,
// role name, email), so re-running is always safe.
func runSeed(cfg *config.Config) error {
	ctx := context.Background()
	db, err := connect(cfg)
	if err != nil {
		return err
	}
	defer db.Close()

	permissionRepo := postgres.NewPermissionRepository(db)
	roleRepo := postgres.NewRoleRepository(db)

	catalog := permission.Catalog()
	for i := range catalog {
		p := catalog[i]
		p.ID = id.NewUUIDv7()
		if err := permissionRepo.Upsert(ctx, &p); err != nil {
			return fmt.Errorf("failed to seed permission %s: %w", p.Code, err)
		}
	}
	fmt.Printf("Seeded %d permissions.\n", len(catalog))

	for _, sr := range systemRoles {
		existing, err := roleRepo.GetByName(ctx, sr.name, nil)
		if err != nil && !errors.Is(err, role.ErrRoleNotFound) {
			return fmt.Errorf("failed to look up system role %s: %w", sr.name, err)
		}

		roleID := ""
		if existing != nil {
			roleID = existing.ID
		} else {
			r := &role.Role{
				ID:           id.NewUUIDv7(),
				Name:         sr.name,
				Description:  sr.description,
				IsSystemRole: true,
			}
			if err := roleRepo.Create(ctx, r); err != nil {
				return fmt.Errorf("failed to create system role %s: %w", sr.name, err)
			}
			roleID = r.ID
		}

		var codes []string
		for _, p := range catalog {
			if sr.grants(p.Code) {
				codes = append(codes, p.Code)
			}
		}
		if err := roleRepo.SetPermissionCodes(ctx, roleID, codes); err != nil {
			return fmt.Errorf("failed to grant system role %s: %w", sr.name, err)
		}
		fmt.Printf("Seeded system role %q with %d permissions.\n", sr.name, len(codes))
	}

	adminEmail := os.Getenv("SEED_ADMIN_EMAIL")
	adminPassword := os.Getenv("SEED_ADMIN_PASSWORD")
	if adminEmail == "" || adminPassword == "" {
		return nil
	}

	userRepo := postgres.NewUserRepository(db)
	hasher := identity.NewPasswordHasher(
		cfg.Security.Argon2Memory,
		cfg.Security.Argon2Iterations,
		cfg.Security.Argon2Parallelism,
		cfg.Security.Argon2SaltLength,
		cfg.Security.Argon2KeyLength,
	)
	identityService := identity.NewService(userRepo, hasher, audit.NewSlogLogger())

	if existing, err := identityService.GetByEmail(ctx, adminEmail); err == nil && existing != nil {
		fmt.Printf("Superuser %s already exists.\n", existing.Email)
		return nil
	}

	admin, err := identityService.CreateUser(ctx, identity.CreateUserInput{
		Email:       adminEmail,
		Password:    adminPassword,
		FullName:    "Platform Administrator",
		IsSuperuser: true,
	})
	if err != nil {
		return fmt.Errorf("failed to create superuser: %w", err)
	}
	fmt.Printf("Created superuser %s.\n", admin.Email)
	return nil
}
