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

// Package authz is the authorization decision engine. Every protected
// operation funnels through Decide, which evaluates a principal's effective
// permissions inside one tenant and fails closed on any uncertainty.
package authz

import (
	"context"
	"errors"
	"log/slog"

	"github.com/virtualstack/virtualstack/internal/audit"
	"github.com/virtualstack/virtualstack/internal/id"
	"github.com/virtualstack/virtualstack/internal/identity"
	"github.com/virtualstack/virtualstack/internal/tenant"
)

// Domain errors
var (
	ErrNotAuthenticated = errors.New("authentication required")
	ErrMalformedContext = errors.New("malformed tenant context")
	ErrTenantNotFound   = errors.New("tenant not found")
	ErrPermissionDenied = errors.New("permission denied")
)

// Mode selects how multiple required permissions combine.
type Mode int

const (
	// ModeAll requires every listed permission.
	ModeAll Mode = iota
	// ModeAny requires at least one listed permission.
	ModeAny
)

// Decision is the outcome of one authorization check.
type Decision struct {
	Allowed bool
	// Superuser is set when the allow came from the superuser bypass
	// rather than from membership-derived permissions.
	Superuser bool
}

// TenantGetter resolves tenants. Satisfied by tenant.Repository.
type TenantGetter interface {
	GetByID(ctx context.Context, id string) (*tenant.Tenant, error)
}

// PermissionSource computes the union of permission codes a user holds in a
// tenant. Satisfied by the membership service.
type PermissionSource interface {
	PermissionCodes(ctx context.Context, userID, tenantID string) ([]string, error)
}

// Engine makes authorization decisions.
type Engine struct {
	tenants     TenantGetter
	permissions PermissionSource
	auditLogger audit.Logger
}

// NewEngine creates a new decision engine
func NewEngine(tenants TenantGetter, permissions PermissionSource, auditLogger audit.Logger) *Engine {
	return &Engine{
		tenants:     tenants,
		permissions: permissions,
		auditLogger: auditLogger,
	}
}

// Decide evaluates whether principal may perform an operation requiring the
// given permissions inside tenantID.
//
// The checks run in a fixed order: tenant context shape, tenant existence,
// tenant liveness, superuser bypass, then membership permissions. Tenant
// existence is checked before the superuser bypass, so even a superuser
// gets ErrTenantNotFound for a tenant that does not exist.
func (e *Engine) Decide(ctx context.Context, principal *identity.User, tenantID string, required []string, mode Mode) (Decision, error) {
	if principal == nil {
		return Decision{}, ErrNotAuthenticated
	}

	if tenantID == "" || !id.Valid(tenantID) {
		return Decision{}, ErrMalformedContext
	}

	t, err := e.tenants.GetByID(ctx, tenantID)
	if err != nil {
		if errors.Is(err, tenant.ErrTenantNotFound) {
			return Decision{}, ErrTenantNotFound
		}
		// Store failure: deny, never default-allow.
		slog.ErrorContext(ctx, "tenant lookup failed during authorization",
			slog.String("tenant_id", tenantID), slog.Any("error", err))
		return Decision{}, ErrPermissionDenied
	}

	if !t.IsActive {
		e.logDenied(ctx, principal, tenantID, required, "tenant_inactive")
		return Decision{}, ErrPermissionDenied
	}

	if principal.IsSuperuser {
		return Decision{Allowed: true, Superuser: true}, nil
	}

	if len(required) == 0 {
		// Nothing specific required; membership alone is not demanded
		// either, so an authenticated principal in a live tenant passes.
		return Decision{Allowed: true}, nil
	}

	held, err := e.permissions.PermissionCodes(ctx, principal.ID, tenantID)
	if err != nil {
		slog.ErrorContext(ctx, "permission lookup failed during authorization",
			slog.String("tenant_id", tenantID), slog.Any("error", err))
		return Decision{}, ErrPermissionDenied
	}

	heldSet := make(map[string]struct{}, len(held))
	for _, code := range held {
		heldSet[code] = struct{}{}
	}

	var missing []string
	for _, code := range required {
		if _, ok := heldSet[code]; !ok {
			missing = append(missing, code)
		}
	}

	allowed := false
	switch mode {
	case ModeAny:
		allowed = len(missing) < len(required)
	default:
		allowed = len(missing) == 0
	}

	if !allowed {
		e.logDenied(ctx, principal, tenantID, missing, "missing_permissions")
		return Decision{}, ErrPermissionDenied
	}

	return Decision{Allowed: true}, nil
}

// logDenied records a denial with the exact missing codes. The detail stays
// in the audit trail; callers only ever see ErrPermissionDenied.
func (e *Engine) logDenied(ctx context.Context, principal *identity.User, tenantID string, missing []string, reason string) {
	e.auditLogger.Log(ctx, audit.Event{
		Type:     audit.TypeAccessDenied,
		TenantID: tenantID,
		ActorID:  principal.ID,
		Resource: "authorization",
		Metadata: map[string]any{
			audit.AttrReason:  reason,
			audit.AttrMissing: missing,
		},
	})
}
