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

// Package system holds cross-package scenario tests that wire real services
// over in-memory stores.
package system

import (
	"context"
	"errors"
	"sort"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/virtualstack/virtualstack/internal/audit"
	"github.com/virtualstack/virtualstack/internal/authz"
	"github.com/virtualstack/virtualstack/internal/id"
	"github.com/virtualstack/virtualstack/internal/identity"
	"github.com/virtualstack/virtualstack/internal/membership"
	"github.com/virtualstack/virtualstack/internal/permission"
	"github.com/virtualstack/virtualstack/internal/role"
	"github.com/virtualstack/virtualstack/internal/tenant"
)

// ---- in-memory stores ----

type memUsers struct{ users map[string]*identity.User }

func (m *memUsers) Create(ctx context.Context, u *identity.User) error { m.users[u.ID] = u; return nil }
func (m *memUsers) GetByID(ctx context.Context, userID string) (*identity.User, error) {
	u, ok := m.users[userID]
	if !ok {
		return nil, identity.ErrUserNotFound
	}
	return u, nil
}
func (m *memUsers) GetByEmail(ctx context.Context, email string) (*identity.User, error) {
	for _, u := range m.users {
		if u.Email == email {
			return u, nil
		}
	}
	return nil, identity.ErrUserNotFound
}
func (m *memUsers) Update(ctx context.Context, u *identity.User) error                 { return nil }
func (m *memUsers) UpdatePassword(ctx context.Context, userID, hash string) error      { return nil }
func (m *memUsers) UpdateLastLogin(ctx context.Context, id string, at time.Time) error { return nil }
func (m *memUsers) SetActive(ctx context.Context, userID string, active bool) error    { return nil }
func (m *memUsers) Delete(ctx context.Context, userID string) error                    { return nil }
func (m *memUsers) List(ctx context.Context, limit, offset int) ([]*identity.User, error) {
	return nil, nil
}

type memTenants struct{ tenants map[string]*tenant.Tenant }

func (m *memTenants) Create(ctx context.Context, t *tenant.Tenant) error { m.tenants[t.ID] = t; return nil }
func (m *memTenants) GetByID(ctx context.Context, tenantID string) (*tenant.Tenant, error) {
	t, ok := m.tenants[tenantID]
	if !ok {
		return nil, tenant.ErrTenantNotFound
	}
	return t, nil
}
func (m *memTenants) GetBySlug(ctx context.Context, slug string) (*tenant.Tenant, error) {
	return nil, tenant.ErrTenantNotFound
}
func (m *memTenants) List(ctx context.Context, limit, offset int) ([]*tenant.Tenant, error) {
	return nil, nil
}
func (m *memTenants) Update(ctx context.Context, t *tenant.Tenant) error              { return nil }
func (m *memTenants) SetActive(ctx context.Context, tenantID string, a bool) error    { return nil }
func (m *memTenants) Delete(ctx context.Context, tenantID string) error               { return nil }

type memRoles struct {
	roles map[string]*role.Role
	codes map[string][]string
}

func (m *memRoles) Create(ctx context.Context, r *role.Role) error { m.roles[r.ID] = r; return nil }
func (m *memRoles) GetByID(ctx context.Context, roleID string) (*role.Role, error) {
	r, ok := m.roles[roleID]
	if !ok {
		return nil, role.ErrRoleNotFound
	}
	return r, nil
}
func (m *memRoles) GetByName(ctx context.Context, name string, tenantID *string) (*role.Role, error) {
	return nil, role.ErrRoleNotFound
}
func (m *memRoles) ListForTenant(ctx context.Context, tenantID string) ([]*role.WithMemberCount, error) {
	return nil, nil
}
func (m *memRoles) Update(ctx context.Context, r *role.Role) error  { return nil }
func (m *memRoles) Delete(ctx context.Context, roleID string) error { return nil }
func (m *memRoles) CountMembers(ctx context.Context, roleID string) (int, error) {
	return 0, nil
}
func (m *memRoles) GetPermissionCodes(ctx context.Context, roleID string) ([]string, error) {
	return m.codes[roleID], nil
}
func (m *memRoles) SetPermissionCodes(ctx context.Context, roleID string, codes []string) error {
	m.codes[roleID] = codes
	return nil
}

type memMemberships struct {
	rows  map[string]*membership.Membership
	roles *memRoles
}

func (m *memMemberships) Insert(ctx context.Context, row *membership.Membership) (bool, error) {
	key := row.UserID + "/" + row.RoleID + "/" + row.TenantID
	if _, ok := m.rows[key]; ok {
		return false, nil
	}
	m.rows[key] = row
	return true, nil
}
func (m *memMemberships) Delete(ctx context.Context, userID, roleID, tenantID string) (bool, error) {
	key := userID + "/" + roleID + "/" + tenantID
	if _, ok := m.rows[key]; !ok {
		return false, nil
	}
	delete(m.rows, key)
	return true, nil
}
func (m *memMemberships) ListRolesForUser(ctx context.Context, userID, tenantID string) ([]string, error) {
	var out []string
	for _, r := range m.rows {
		if r.UserID == userID && r.TenantID == tenantID {
			out = append(out, r.RoleID)
		}
	}
	return out, nil
}
func (m *memMemberships) ListMembers(ctx context.Context, roleID, tenantID string) ([]string, error) {
	var out []string
	for _, r := range m.rows {
		if r.RoleID == roleID && r.TenantID == tenantID {
			out = append(out, r.UserID)
		}
	}
	return out, nil
}
func (m *memMemberships) ListPermissionCodes(ctx context.Context, userID, tenantID string) ([]string, error) {
	seen := make(map[string]struct{})
	for _, r := range m.rows {
		if r.UserID != userID || r.TenantID != tenantID {
			continue
		}
		for _, code := range m.roles.codes[r.RoleID] {
			seen[code] = struct{}{}
		}
	}
	out := make([]string, 0, len(seen))
	for code := range seen {
		out = append(out, code)
	}
	sort.Strings(out)
	return out, nil
}
func (m *memMemberships) IsMember(ctx context.Context, userID, tenantID string) (bool, error) {
	for _, r := range m.rows {
		if r.UserID == userID && r.TenantID == tenantID {
			return true, nil
		}
	}
	return false, nil
}
func (m *memMemberships) SetRoleMembers(ctx context.Context, roleID, tenantID string, userIDs []string) ([]string, error) {
	want := make(map[string]struct{}, len(userIDs))
	for _, u := range userIDs {
		want[u] = struct{}{}
	}
	for key, r := range m.rows {
		if r.RoleID == roleID && r.TenantID == tenantID {
			if _, keep := want[r.UserID]; !keep {
				delete(m.rows, key)
			}
		}
	}
	for _, u := range userIDs {
		_, _ = m.Insert(ctx, &membership.Membership{ID: id.NewUUIDv7(), UserID: u, RoleID: roleID, TenantID: tenantID})
	}
	return m.ListMembers(ctx, roleID, tenantID)
}

// TestPurpose: Validates end-to-end tenant isolation through the real membership service and decision engine.
// Scope: System Test
// Security: Horizontal isolation between tenants and the inactive-tenant kill switch
// Expected: A role grant in one tenant confers nothing in another; deactivating a tenant denies even superusers.
// Test Case ID: SYS-01
func TestSystem_TenantIsolation(t *testing.T) {
	ctx := context.Background()
	auditLogger := audit.NewSlogLogger()

	alice := &identity.User{ID: id.NewUUIDv7(), Email: "alice@example.com", IsActive: true}
	root := &identity.User{ID: id.NewUUIDv7(), Email: "root@example.com", IsActive: true, IsSuperuser: true}
	users := &memUsers{users: map[string]*identity.User{alice.ID: alice, root.ID: root}}

	acme := &tenant.Tenant{ID: id.NewUUIDv7(), Name: "Acme", Slug: "acme", IsActive: true}
	beta := &tenant.Tenant{ID: id.NewUUIDv7(), Name: "Beta", Slug: "beta", IsActive: true}
	tenants := &memTenants{tenants: map[string]*tenant.Tenant{acme.ID: acme, beta.ID: beta}}

	operator := &role.Role{ID: id.NewUUIDv7(), Name: "operator", TenantID: &acme.ID}
	roles := &memRoles{
		roles: map[string]*role.Role{operator.ID: operator},
		codes: map[string][]string{operator.ID: {permission.VMCreate, permission.VMRead}},
	}

	memberRepo := &memMemberships{rows: make(map[string]*membership.Membership), roles: roles}
	members := membership.NewService(memberRepo, users, roles, tenants, auditLogger)
	engine := authz.NewEngine(tenants, members, auditLogger)

	// Grant alice the operator role in Acme
	require.NoError(t, members.Assign(ctx, alice.ID, operator.ID, acme.ID, root.ID))

	// Alice operates in Acme
	d, err := engine.Decide(ctx, alice, acme.ID, []string{permission.VMCreate}, authz.ModeAll)
	require.NoError(t, err)
	assert.True(t, d.Allowed)
	assert.False(t, d.Superuser)

	// The same grant confers nothing in Beta
	_, err = engine.Decide(ctx, alice, beta.ID, []string{permission.VMCreate}, authz.ModeAll)
	assert.ErrorIs(t, err, authz.ErrPermissionDenied)

	// The Acme-owned role cannot even be assigned in Beta
	err = members.Assign(ctx, alice.ID, operator.ID, beta.ID, root.ID)
	assert.ErrorIs(t, err, membership.ErrRoleTenantMismatch)

	// Superusers pass everywhere the tenant is live
	d, err = engine.Decide(ctx, root, beta.ID, []string{permission.TenantDelete}, authz.ModeAll)
	require.NoError(t, err)
	assert.True(t, d.Superuser)

	// Deactivation shuts the tenant for everyone
	beta.IsActive = false
	_, err = engine.Decide(ctx, root, beta.ID, []string{permission.TenantRead}, authz.ModeAll)
	assert.ErrorIs(t, err, authz.ErrPermissionDenied)
}

// TestPurpose: Validates that revoking a role strips its permissions on the next decision.
// Scope: System Test
// Security: No session-cached permissions survive a revocation
// Expected: The same operation flips from allowed to denied immediately after Revoke.
// Test Case ID: SYS-02
func TestSystem_RevocationTakesEffectImmediately(t *testing.T) {
	ctx := context.Background()
	auditLogger := audit.NewSlogLogger()

	alice := &identity.User{ID: id.NewUUIDv7(), Email: "alice@example.com", IsActive: true}
	users := &memUsers{users: map[string]*identity.User{alice.ID: alice}}

	acme := &tenant.Tenant{ID: id.NewUUIDv7(), Name: "Acme", Slug: "acme", IsActive: true}
	tenants := &memTenants{tenants: map[string]*tenant.Tenant{acme.ID: acme}}

	viewer := &role.Role{ID: id.NewUUIDv7(), Name: "viewer", TenantID: &acme.ID}
	roles := &memRoles{
		roles: map[string]*role.Role{viewer.ID: viewer},
		codes: map[string][]string{viewer.ID: {permission.VMRead}},
	}

	memberRepo := &memMemberships{rows: make(map[string]*membership.Membership), roles: roles}
	members := membership.NewService(memberRepo, users, roles, tenants, auditLogger)
	engine := authz.NewEngine(tenants, members, auditLogger)

	require.NoError(t, members.Assign(ctx, alice.ID, viewer.ID, acme.ID, alice.ID))

	d, err := engine.Decide(ctx, alice, acme.ID, []string{permission.VMRead}, authz.ModeAll)
	require.NoError(t, err)
	assert.True(t, d.Allowed)

	require.NoError(t, members.Revoke(ctx, alice.ID, viewer.ID, acme.ID, alice.ID))

	_, err = engine.Decide(ctx, alice, acme.ID, []string{permission.VMRead}, authz.ModeAll)
	assert.True(t, errors.Is(err, authz.ErrPermissionDenied))
}
