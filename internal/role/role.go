package role

import (
	"context"
	"errors"
	"time"
)

// Domain errors
var (
	ErrRoleNotFound        = errors.New("role not found")
	ErrRoleNameTaken       = errors.New("role name already in use")
	ErrSystemRoleImmutable = errors.New("system roles cannot be modified")
	ErrRoleInUse           = errors.New("role still has members")
	ErrNameRequired        = errors.New("role name is required")
)

// Role is either a system role (TenantID nil, shared across all tenants) or
// a custom role owned by exactly one tenant.
type Role struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	Description  string    `json:"description,omitempty"`
	IsSystemRole bool      `json:"is_system_role"`
	TenantID     *string   `json:"tenant_id,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// WithMemberCount pairs a role with its live member count in one tenant.
type WithMemberCount struct {
	Role
	MemberCount int `json:"member_count"`
}

// Repository defines the interface for role persistence
type Repository interface {
	// Create stores a new role
	Create(ctx context.Context, r *Role) error

	// GetByID retrieves a role by ID
	GetByID(ctx context.Context, id string) (*Role, error)

	// GetByName retrieves a role by name within a scope; tenantID nil means
	// the system scope
	GetByName(ctx context.Context, name string, tenantID *string) (*Role, error)

	// ListForTenant retrieves system roles plus the tenant's custom roles,
	// each with its member count inside that tenant
	ListForTenant(ctx context.Context, tenantID string) ([]*WithMemberCount, error)

	// Update updates mutable role fields
	Update(ctx context.Context, r *Role) error

	// Delete removes a role
	Delete(ctx context.Context, id string) error

	// CountMembers counts memberships holding the role across all tenants
	CountMembers(ctx context.Context, roleID string) (int, error)

	// GetPermissionCodes retrieves the permission codes granted by a role
	GetPermissionCodes(ctx context.Context, roleID string) ([]string, error)

	// SetPermissionCodes replaces the role's permission grants in one tx
	SetPermissionCodes(ctx context.Context, roleID string, codes []string) error
}
