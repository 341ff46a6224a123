package membership

import (
	"context"
	"errors"
	"time"
)

// Domain errors
var (
	ErrMembershipNotFound   = errors.New("membership not found")
	ErrRoleTenantMismatch   = errors.New("role does not belong to this tenant")
	ErrMemberUserNotFound   = errors.New("user not found")
	ErrMemberRoleNotFound   = errors.New("role not found")
	ErrMemberTenantNotFound = errors.New("tenant not found")
)

// Membership grants one role to one user inside one tenant. The triple
// (UserID, RoleID, TenantID) is unique; holding several roles in a tenant
// means several rows.
type Membership struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	RoleID    string    `json:"role_id"`
	TenantID  string    `json:"tenant_id"`
	CreatedAt time.Time `json:"created_at"`
}

// Repository defines the interface for membership persistence
type Repository interface {
	// Insert stores a membership; inserting an existing triple is a no-op
	// and reports created=false
	Insert(ctx context.Context, m *Membership) (created bool, err error)

	// Delete removes a membership triple; reports whether a row existed
	Delete(ctx context.Context, userID, roleID, tenantID string) (deleted bool, err error)

	// ListRolesForUser retrieves role IDs the user holds in a tenant
	ListRolesForUser(ctx context.Context, userID, tenantID string) ([]string, error)

	// ListMembers retrieves user IDs holding a role in a tenant
	ListMembers(ctx context.Context, roleID, tenantID string) ([]string, error)

	// ListPermissionCodes computes the union of permission codes granted by
	// every role the user holds in the tenant, in a single query
	ListPermissionCodes(ctx context.Context, userID, tenantID string) ([]string, error)

	// IsMember reports whether the user holds any role in the tenant
	IsMember(ctx context.Context, userID, tenantID string) (bool, error)

	// SetRoleMembers replaces the member set of a role in a tenant in one
	// transaction. Rows for users in both the old and new set are untouched
	// so their CreatedAt survives. Returns the final member IDs.
	SetRoleMembers(ctx context.Context, roleID, tenantID string, userIDs []string) ([]string, error)
}
