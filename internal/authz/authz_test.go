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

package authz_test

import (
	"context"
	"errors"
	"testing"

	"github.com/virtualstack/virtualstack/internal/audit"
	"github.com/virtualstack/virtualstack/internal/authz"
	"github.com/virtualstack/virtualstack/internal/id"
	"github.com/virtualstack/virtualstack/internal/identity"
	"github.com/virtualstack/virtualstack/internal/tenant"
)

// MockTenantGetter implements authz.TenantGetter for testing
type MockTenantGetter struct {
	tenants map[string]*tenant.Tenant
	err     error
}

func (m *MockTenantGetter) GetByID(ctx context.Context, tenantID string) (*tenant.Tenant, error) {
	if m.err != nil {
		return nil, m.err
	}
	t, ok := m.tenants[tenantID]
	if !ok {
		return nil, tenant.ErrTenantNotFound
	}
	return t, nil
}

// MockPermissionSource implements authz.PermissionSource for testing.
// Keys are userID + "/" + tenantID.
type MockPermissionSource struct {
	grants map[string][]string
	err    error
}

func (m *MockPermissionSource) PermissionCodes(ctx context.Context, userID, tenantID string) ([]string, error) {
	if m.err != nil {
		return nil, m.err
	}
	return m.grants[userID+"/"+tenantID], nil
}

type fixture struct {
	engine      *authz.Engine
	tenants     *MockTenantGetter
	permissions *MockPermissionSource
	tenantID    string
	member      *identity.User
	superuser   *identity.User
}

func newFixture() *fixture {
	tenantID := id.NewUUIDv7()
	member := &identity.User{ID: id.NewUUIDv7(), Email: "alice@example.com", IsActive: true}
	superuser := &identity.User{ID: id.NewUUIDv7(), Email: "root@example.com", IsActive: true, IsSuperuser: true}

	tenants := &MockTenantGetter{tenants: map[string]*tenant.Tenant{
		tenantID: {ID: tenantID, Name: "Acme", Slug: "acme", IsActive: true},
	}}
	permissions := &MockPermissionSource{grants: map[string][]string{
		member.ID + "/" + tenantID: {"vm:create", "vm:read", "role:read"},
	}}

	return &fixture{
		engine:      authz.NewEngine(tenants, permissions, audit.NewSlogLogger()),
		tenants:     tenants,
		permissions: permissions,
		tenantID:    tenantID,
		member:      member,
		superuser:   superuser,
	}
}

// TestPurpose: Validates that an unauthenticated caller is rejected before any store access.
// Scope: Unit Test
// Security: Authentication precedes authorization
// Expected: Decide returns ErrNotAuthenticated for a nil principal.
// Test Case ID: AUZ-01
func TestAuthz_Decide_NilPrincipal(t *testing.T) {
	f := newFixture()

	_, err := f.engine.Decide(context.Background(), nil, f.tenantID, []string{"vm:read"}, authz.ModeAll)
	if !errors.Is(err, authz.ErrNotAuthenticated) {
		t.Fatalf("expected ErrNotAuthenticated, got %v", err)
	}
}

// TestPurpose: Validates that a syntactically invalid tenant ID is rejected as malformed context.
// Scope: Unit Test
// Security: Input validation before store access
// Expected: Decide returns ErrMalformedContext for empty and non-UUID tenant IDs.
// Test Case ID: AUZ-02
func TestAuthz_Decide_MalformedTenantID(t *testing.T) {
	f := newFixture()

	for _, tenantID := range []string{"", "not-a-uuid", "12345"} {
		_, err := f.engine.Decide(context.Background(), f.member, tenantID, []string{"vm:read"}, authz.ModeAll)
		if !errors.Is(err, authz.ErrMalformedContext) {
			t.Fatalf("tenantID %q: expected ErrMalformedContext, got %v", tenantID, err)
		}
	}
}

// TestPurpose: Validates that tenant existence is checked before the superuser bypass.
// Scope: Unit Test
// Security: Superusers cannot probe for tenants that do not exist
// Expected: Decide returns ErrTenantNotFound even for a superuser.
// Test Case ID: AUZ-03
func TestAuthz_Decide_UnknownTenant_BeatsSuperuserBypass(t *testing.T) {
	f := newFixture()
	unknown := id.NewUUIDv7()

	_, err := f.engine.Decide(context.Background(), f.superuser, unknown, []string{"vm:read"}, authz.ModeAll)
	if !errors.Is(err, authz.ErrTenantNotFound) {
		t.Fatalf("expected ErrTenantNotFound, got %v", err)
	}
}

// TestPurpose: Validates that an inactive tenant denies every caller, including superusers.
// Scope: Unit Test
// Security: Tenant deactivation is an absolute kill switch
// Expected: Decide returns ErrPermissionDenied for a superuser in a deactivated tenant.
// Test Case ID: AUZ-04
func TestAuthz_Decide_InactiveTenant_DeniesSuperuser(t *testing.T) {
	f := newFixture()
	f.tenants.tenants[f.tenantID].IsActive = false

	_, err := f.engine.Decide(context.Background(), f.superuser, f.tenantID, []string{"vm:read"}, authz.ModeAll)
	if !errors.Is(err, authz.ErrPermissionDenied) {
		t.Fatalf("expected ErrPermissionDenied, got %v", err)
	}

	_, err = f.engine.Decide(context.Background(), f.member, f.tenantID, []string{"vm:read"}, authz.ModeAll)
	if !errors.Is(err, authz.ErrPermissionDenied) {
		t.Fatalf("expected ErrPermissionDenied for member, got %v", err)
	}
}

// TestPurpose: Validates the superuser bypass, including permission codes that are not in any catalog.
// Scope: Unit Test
// Security: Platform operators retain access in live tenants
// Expected: Decision is allowed with Superuser=true regardless of the required codes or mode.
// Test Case ID: AUZ-05
func TestAuthz_Decide_SuperuserBypass(t *testing.T) {
	f := newFixture()

	for _, mode := range []authz.Mode{authz.ModeAll, authz.ModeAny} {
		d, err := f.engine.Decide(context.Background(), f.superuser, f.tenantID,
			[]string{"no_such_module:no_such_action"}, mode)
		if err != nil {
			t.Fatalf("mode %v: unexpected error: %v", mode, err)
		}
		if !d.Allowed || !d.Superuser {
			t.Fatalf("mode %v: expected superuser allow, got %+v", mode, d)
		}
	}
}

// TestPurpose: Validates ALL semantics: every required permission must be held.
// Scope: Unit Test
// Security: Least privilege enforcement
// Expected: Allowed when all codes are held, denied when any is missing.
// Test Case ID: AUZ-06
func TestAuthz_Decide_ModeAll(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	d, err := f.engine.Decide(ctx, f.member, f.tenantID, []string{"vm:create", "vm:read"}, authz.ModeAll)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !d.Allowed || d.Superuser {
		t.Fatalf("expected plain allow, got %+v", d)
	}

	_, err = f.engine.Decide(ctx, f.member, f.tenantID, []string{"vm:read", "vm:delete"}, authz.ModeAll)
	if !errors.Is(err, authz.ErrPermissionDenied) {
		t.Fatalf("expected ErrPermissionDenied, got %v", err)
	}
}

// TestPurpose: Validates ANY semantics: one held permission out of several suffices.
// Scope: Unit Test
// Expected: Allowed when at least one code is held, denied when none are.
// Test Case ID: AUZ-07
func TestAuthz_Decide_ModeAny(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	d, err := f.engine.Decide(ctx, f.member, f.tenantID, []string{"vm:delete", "vm:read"}, authz.ModeAny)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !d.Allowed {
		t.Fatalf("expected allow, got %+v", d)
	}

	_, err = f.engine.Decide(ctx, f.member, f.tenantID, []string{"vm:delete", "tenant:delete"}, authz.ModeAny)
	if !errors.Is(err, authz.ErrPermissionDenied) {
		t.Fatalf("expected ErrPermissionDenied, got %v", err)
	}
}

// TestPurpose: Validates that requiring nothing admits any authenticated principal in a live tenant.
// Scope: Unit Test
// Expected: Decision allowed with an empty required slice.
// Test Case ID: AUZ-08
func TestAuthz_Decide_EmptyRequired(t *testing.T) {
	f := newFixture()
	stranger := &identity.User{ID: id.NewUUIDv7(), Email: "nobody@example.com", IsActive: true}

	d, err := f.engine.Decide(context.Background(), stranger, f.tenantID, nil, authz.ModeAll)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !d.Allowed {
		t.Fatalf("expected allow, got %+v", d)
	}
}

// TestPurpose: Validates that permissions never cross tenant boundaries.
// Scope: Unit Test
// Security: Tenant isolation (prevents horizontal privilege escalation)
// Expected: A user with grants in tenant A is denied the same operation in tenant B.
// Test Case ID: AUZ-09
func TestAuthz_Decide_TenantIsolation(t *testing.T) {
	f := newFixture()
	otherID := id.NewUUIDv7()
	f.tenants.tenants[otherID] = &tenant.Tenant{ID: otherID, Name: "Beta", Slug: "beta", IsActive: true}

	_, err := f.engine.Decide(context.Background(), f.member, otherID, []string{"vm:read"}, authz.ModeAll)
	if !errors.Is(err, authz.ErrPermissionDenied) {
		t.Fatalf("expected ErrPermissionDenied in foreign tenant, got %v", err)
	}
}

// TestPurpose: Validates that store failures deny rather than default-allow.
// Scope: Unit Test
// Security: Fail-closed on infrastructure errors
// Expected: Decide returns ErrPermissionDenied when either lookup fails.
// Test Case ID: AUZ-10
func TestAuthz_Decide_StoreFailure_FailsClosed(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	f.permissions.err = errors.New("connection reset")
	_, err := f.engine.Decide(ctx, f.member, f.tenantID, []string{"vm:read"}, authz.ModeAll)
	if !errors.Is(err, authz.ErrPermissionDenied) {
		t.Fatalf("expected ErrPermissionDenied on permission store failure, got %v", err)
	}

	f.permissions.err = nil
	f.tenants.err = errors.New("connection reset")
	_, err = f.engine.Decide(ctx, f.member, f.tenantID, []string{"vm:read"}, authz.ModeAll)
	if !errors.Is(err, authz.ErrPermissionDenied) {
		t.Fatalf("expected ErrPermissionDenied on tenant store failure, got %v", err)
	}
}
