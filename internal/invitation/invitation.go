package invitation

import (
	"context"
	"errors"
	"time"
)

// Domain errors
var (
	ErrInvitationNotFound   = errors.New("invitation not found")
	ErrInvitationInvalid    = errors.New("invitation is not valid")
	ErrInvitationNotPending = errors.New("invitation is not pending")
	ErrEmailMismatch        = errors.New("invitation was issued to a different email")
	ErrInviteRoleNotFound   = errors.New("role not found")
	ErrRoleTenantMismatch   = errors.New("role does not belong to this tenant")
)

// Status is the invitation lifecycle state. ACCEPTED, EXPIRED and REVOKED
// are terminal.
type Status string

const (
	StatusPending  Status = "PENDING"
	StatusAccepted Status = "ACCEPTED"
	StatusExpired  Status = "EXPIRED"
	StatusRevoked  Status = "REVOKED"
)

// Invitation invites an email address into a tenant, optionally carrying a
// role to grant on acceptance. The token is a random opaque secret handed
// to the invitee out of band.
type Invitation struct {
	ID         string     `json:"id"`
	Email      string     `json:"email"`
	TenantID   string     `json:"tenant_id"`
	RoleID     *string    `json:"role_id,omitempty"`
	Token      string     `json:"-"`
	Status     Status     `json:"status"`
	InvitedBy  string     `json:"invited_by"`
	UserID     *string    `json:"user_id,omitempty"`
	ExpiresAt  time.Time  `json:"expires_at"`
	AcceptedAt *time.Time `json:"accepted_at,omitempty"`
	CreatedAt  time.Time  `json:"created_at"`
	UpdatedAt  time.Time  `json:"updated_at"`
}

// Repository defines the interface for invitation persistence
type Repository interface {
	// Create stores a new invitation
	Create(ctx context.Context, inv *Invitation) error

	// GetByID retrieves an invitation by ID
	GetByID(ctx context.Context, id string) (*Invitation, error)

	// GetByToken retrieves an invitation by its opaque token
	GetByToken(ctx context.Context, token string) (*Invitation, error)

	// GetPendingByEmailTenant retrieves a PENDING invitation for the pair
	GetPendingByEmailTenant(ctx context.Context, email, tenantID string) (*Invitation, error)

	// UpdateStatus transitions an invitation's status
	UpdateStatus(ctx context.Context, id string, status Status) error

	// AcceptWithMembership marks the invitation ACCEPTED for userID and,
	// when the invitation carries a role, inserts the membership row in the
	// same transaction
	AcceptWithMembership(ctx context.Context, invitationID, userID string, acceptedAt time.Time) error

	// ListByTenant retrieves a tenant's invitations with pagination
	ListByTenant(ctx context.Context, tenantID string, limit, offset int) ([]*Invitation, error)

	// ListPendingByTenant retrieves a tenant's PENDING invitations
	ListPendingByTenant(ctx context.Context, tenantID string) ([]*Invitation, error)
}
