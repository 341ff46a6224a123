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
	"sort"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/virtualstack/virtualstack/internal/audit"
	"github.com/virtualstack/virtualstack/internal/id"
	"github.com/virtualstack/virtualstack/internal/identity"
	"github.com/virtualstack/virtualstack/internal/role"
	"github.com/virtualstack/virtualstack/internal/tenant"
)

// MockMembershipRepository is a simple in-memory implementation of Repository.
// Role permission codes are injected through roleCodes to back
// ListPermissionCodes the way the store's join would.
type MockMembershipRepository struct {
	rows      map[string]*Membership
	roleCodes map[string][]string
}

func NewMockMembershipRepository() *MockMembershipRepository {
	return &MockMembershipRepository{
		rows:      make(map[string]*Membership),
		roleCodes: make(map[string][]string),
	}
}

func tripleKey(userID, roleID, tenantID string) string {
	return userID + "/" + roleID + "/" + tenantID
}

func (m *MockMembershipRepository) Insert(ctx context.Context, mem *Membership) (bool, error) {
	key := tripleKey(mem.UserID, mem.RoleID, mem.TenantID)
	if _, ok := m.rows[key]; ok {
		return false, nil
	}
	cp := *mem
	m.rows[key] = &cp
	return true, nil
}

func (m *MockMembershipRepository) Delete(ctx context.Context, userID, roleID, tenantID string) (bool, error) {
	key := tripleKey(userID, roleID, tenantID)
	if _, ok := m.rows[key]; !ok {
		return false, nil
	}
	delete(m.rows, key)
	return true, nil
}

func (m *MockMembershipRepository) ListRolesForUser(ctx context.Context, userID, tenantID string) ([]string, error) {
	var out []string
	for _, r := range m.rows {
		if r.UserID == userID && r.TenantID == tenantID {
			out = append(out, r.RoleID)
		}
	}
	return out, nil
}

func (m *MockMembershipRepository) ListMembers(ctx context.Context, roleID, tenantID string) ([]string, error) {
	var out []string
	for _, r := range m.rows {
		if r.RoleID == roleID && r.TenantID == tenantID {
			out = append(out, r.UserID)
		}
	}
	return out, nil
}

func (m *MockMembershipRepository) ListPermissionCodes(ctx context.Context, userID, tenantID string) ([]string, error) {
	seen := make(map[string]struct{})
	for _, r := range m.rows {
		if r.UserID != userID || r.TenantID != tenantID {
			continue
		}
		for _, code := range m.roleCodes[r.RoleID] {
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

func (m *MockMembershipRepository) IsMember(ctx context.Context, userID, tenantID string) (bool, error) {
	for _, r := range m.rows {
		if r.UserID == userID && r.TenantID == tenantID {
			return true, nil
		}
	}
	return false, nil
}

func (m *MockMembershipRepository) SetRoleMembers(ctx context.Context, roleID, tenantID string, userIDs []string) ([]string, error) {
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
		_, _ = m.Insert(ctx, &Membership{ID: id.NewUUIDv7(), UserID: u, RoleID: roleID, TenantID: tenantID})
	}
	return m.ListMembers(ctx, roleID, tenantID)
}

// MockUserRepository implements identity.Repository over a map
type MockUserRepository struct {
	users map[string]*identity.User
}

func (m *MockUserRepository) Create(ctx context.Context, u *identity.User) error {
	m.users[u.ID] = u
	return nil
}

func (m *MockUserRepository) GetByID(ctx context.Context, userID string) (*identity.User, error) {
	u, ok := m.users[userID]
	if !ok {
		return nil, identity.ErrUserNotFound
	}
	return u, nil
}

func (m *MockUserRepository) GetByEmail(ctx context.Context, email string) (*identity.User, error) {
	for _, u := range m.users {
		if u.Email == email {
			return u, nil
		}
	}
	return nil, identity.ErrUserNotFound
}

func (m *MockUserRepository) Update(ctx context.Context, u *identity.User) error { return nil }
func (m *MockUserRepository) UpdatePassword(ctx context.Context, userID, hash string) error {
	return nil
}
func (m *MockUserRepository) UpdateLastLogin(ctx context.Context, userID string, at time.Time) error {
	return nil
}
func (m *MockUserRepository) SetActive(ctx context.Context, userID string, active bool) error {
	return nil
}
func (m *MockUserRepository) Delete(ctx context.Context, userID string) error { return nil }
func (m *MockUserRepository) List(ctx context.Context, limit, offset int) ([]*identity.User, error) {
	return nil, nil
}

// MockRoleRepository implements role.Repository over a map
type MockRoleRepository struct {
	roles map[string]*role.Role
}

func (m *MockRoleRepository) Create(ctx context.Context, r *role.Role) error {
	m.roles[r.ID] = r
	return nil
}

func (m *MockRoleRepository) GetByID(ctx context.Context, roleID string) (*role.Role, error) {
	r, ok := m.roles[roleID]
	if !ok {
		return nil, role.ErrRoleNotFound
	}
	return r, nil
}

func (m *MockRoleRepository) GetByName(ctx context.Context, name string, tenantID *string) (*role.Role, error) {
	return nil, role.ErrRoleNotFound
}
func (m *MockRoleRepository) ListForTenant(ctx context.Context, tenantID string) ([]*role.WithMemberCount, error) {
	return nil, nil
}
func (m *MockRoleRepository) Update(ctx context.Context, r *role.Role) error { return nil }
func (m *MockRoleRepository) Delete(ctx context.Context, roleID string) error {
	delete(m.roles, roleID)
	return nil
}
func (m *MockRoleRepository) CountMembers(ctx context.Context, roleID string) (int, error) {
	return 0, nil
}
func (m *MockRoleRepository) GetPermissionCodes(ctx context.Context, roleID string) ([]string, error) {
	return nil, nil
}
func (m *MockRoleRepository) SetPermissionCodes(ctx context.Context, roleID string, codes []string) error {
	return nil
}

// MockTenantRepository implements tenant.Repository over a map
type MockTenantRepository struct {
	tenants map[string]*tenant.Tenant
}

func (m *MockTenantRepository) Create(ctx context.Context, t *tenant.Tenant) error {
	m.tenants[t.ID] = t
	return nil
}

func (m *MockTenantRepository) GetByID(ctx context.Context, tenantID string) (*tenant.Tenant, error) {
	t, ok := m.tenants[tenantID]
	if !ok {
		return nil, tenant.ErrTenantNotFound
	}
	return t, nil
}

func (m *MockTenantRepository) GetBySlug(ctx context.Context, slug string) (*tenant.Tenant, error) {
	return nil, tenant.ErrTenantNotFound
}
func (m *MockTenantRepository) List(ctx context.Context, limit, offset int) ([]*tenant.Tenant, error) {
	return nil, nil
}
func (m *MockTenantRepository) Update(ctx context.Context, t *tenant.Tenant) error { return nil }
func (m *MockTenantRepository) SetActive(ctx context.Context, tenantID string, active bool) error {
	return nil
}
func (m *MockTenantRepository) Delete(ctx context.Context, tenantID string) error { return nil }

type memFixture struct {
	service  *Service
	repo     *MockMembershipRepository
	tenantID string
	userID   string
	roleID   string
	actorID  string
}

func newMemFixture() *memFixture {
	f := &memFixture{
		repo:     NewMockMembershipRepository(),
		tenantID: id.NewUUIDv7(),
		userID:   id.NewUUIDv7(),
		roleID:   id.NewUUIDv7(),
		actorID:  id.NewUUIDv7(),
	}

	users := &MockUserRepository{users: map[string]*identity.User{
		f.userID: {ID: f.userID, Email: "alice@example.com", IsActive: true},
	}}
	roles := &MockRoleRepository{roles: map[string]*role.Role{
		f.roleID: {ID: f.roleID, Name: "operator", TenantID: &f.tenantID},
	}}
	tenants := &MockTenantRepository{tenants: map[string]*tenant.Tenant{
		f.tenantID: {ID: f.tenantID, Name: "Acme", IsActive: true},
	}}

	f.service = NewService(f.repo, users, roles, tenants, audit.NewSlogLogger())
	return f
}

// TestPurpose: Validates that assigning an already-held role is a no-op, not an error.
// Scope: Unit Test
// Expected: Both Assign calls succeed and exactly one membership row exists.
// Test Case ID: MEM-01
func TestMembership_Assign_Idempotent(t *testing.T) {
	f := newMemFixture()
	ctx := context.Background()

	require.NoError(t, f.service.Assign(ctx, f.userID, f.roleID, f.tenantID, f.actorID))
	require.NoError(t, f.service.Assign(ctx, f.userID, f.roleID, f.tenantID, f.actorID))
	assert.Len(t, f.repo.rows, 1)

	ok, err := f.service.IsMember(ctx, f.userID, f.tenantID)
	require.NoError(t, err)
	assert.True(t, ok)
}

// TestPurpose: Validates the assign/revoke asymmetry: revoking an absent grant is an error.
// Scope: Unit Test
// Expected: Revoke of a held role succeeds; revoking it again returns ErrMembershipNotFound.
// Test Case ID: MEM-02
func TestMembership_Revoke_AbsentGrant(t *testing.T) {
	f := newMemFixture()
	ctx := context.Background()

	require.NoError(t, f.service.Assign(ctx, f.userID, f.roleID, f.tenantID, f.actorID))
	require.NoError(t, f.service.Revoke(ctx, f.userID, f.roleID, f.tenantID, f.actorID))

	err := f.service.Revoke(ctx, f.userID, f.roleID, f.tenantID, f.actorID)
	assert.ErrorIs(t, err, ErrMembershipNotFound)
}

// TestPurpose: Validates that a custom role cannot be assigned outside its owning tenant.
// Scope: Unit Test
// Security: Tenant isolation for role definitions
// Expected: Assign returns ErrRoleTenantMismatch before any write.
// Test Case ID: MEM-03
func TestMembership_Assign_CrossTenantRole(t *testing.T) {
	f := newMemFixture()
	ctx := context.Background()

	otherTenant := id.NewUUIDv7()
	f.service.tenants.(*MockTenantRepository).tenants[otherTenant] = &tenant.Tenant{ID: otherTenant, IsActive: true}

	err := f.service.Assign(ctx, f.userID, f.roleID, otherTenant, f.actorID)
	assert.ErrorIs(t, err, ErrRoleTenantMismatch)
	assert.Empty(t, f.repo.rows)
}

// TestPurpose: Validates reference checks run in tenant, user, role order.
// Scope: Unit Test
// Expected: Each missing reference yields its own error.
// Test Case ID: MEM-04
func TestMembership_Assign_MissingReferences(t *testing.T) {
	f := newMemFixture()
	ctx := context.Background()
	missing := id.NewUUIDv7()

	assert.ErrorIs(t, f.service.Assign(ctx, f.userID, f.roleID, missing, f.actorID), ErrMemberTenantNotFound)
	assert.ErrorIs(t, f.service.Assign(ctx, missing, f.roleID, f.tenantID, f.actorID), ErrMemberUserNotFound)
	assert.ErrorIs(t, f.service.Assign(ctx, f.userID, missing, f.tenantID, f.actorID), ErrMemberRoleNotFound)
}

// TestPurpose: Validates that the effective permission set is the union across held roles.
// Scope: Unit Test
// Expected: PermissionCodes returns each code once, combined from every role the user holds.
// Test Case ID: MEM-05
func TestMembership_PermissionCodes_Union(t *testing.T) {
	f := newMemFixture()
	ctx := context.Background()

	secondRole := id.NewUUIDv7()
	f.service.roles.(*MockRoleRepository).roles[secondRole] = &role.Role{ID: secondRole, Name: "auditor", TenantID: &f.tenantID}
	f.repo.roleCodes[f.roleID] = []string{"vm:create", "vm:read"}
	f.repo.roleCodes[secondRole] = []string{"vm:read", "role:read"}

	require.NoError(t, f.service.Assign(ctx, f.userID, f.roleID, f.tenantID, f.actorID))
	require.NoError(t, f.service.Assign(ctx, f.userID, secondRole, f.tenantID, f.actorID))

	codes, err := f.service.PermissionCodes(ctx, f.userID, f.tenantID)
	require.NoError(t, err)
	assert.Equal(t, []string{"role:read", "vm:create", "vm:read"}, codes)
}

// TestPurpose: Validates member set replacement through SetRoleMembers.
// Scope: Unit Test
// Expected: The final member set matches the requested set; removed users lose the role.
// Test Case ID: MEM-06
func TestMembership_SetRoleMembers_Replaces(t *testing.T) {
	f := newMemFixture()
	ctx := context.Background()

	bob := id.NewUUIDv7()
	f.service.users.(*MockUserRepository).users[bob] = &identity.User{ID: bob, Email: "bob@example.com", IsActive: true}

	require.NoError(t, f.service.Assign(ctx, f.userID, f.roleID, f.tenantID, f.actorID))

	final, err := f.service.SetRoleMembers(ctx, f.roleID, f.tenantID, []string{bob}, f.actorID)
	require.NoError(t, err)
	assert.Equal(t, []string{bob}, final)

	held, err := f.service.IsMember(ctx, f.userID, f.tenantID)
	require.NoError(t, err)
	assert.False(t, held)
}
