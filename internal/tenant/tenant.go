package tenant

import (
	"context"
	"errors"
	"time"
)

// Domain errors
var (
	ErrTenantNotFound = errors.New("tenant not found")
	ErrSlugTaken      = errors.New("tenant slug already in use")
	ErrNameRequired   = errors.New("tenant name is required")
	ErrTenantInactive = errors.New("tenant is inactive")
)

// Tenant is an isolation boundary. Roles, memberships and invitations all
// hang off a tenant; deleting one cascades through them.
type Tenant struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Slug        string    `json:"slug"`
	Description string    `json:"description,omitempty"`
	IsActive    bool      `json:"is_active"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Repository defines the interface for tenant persistence
type Repository interface {
	// Create stores a new tenant
	Create(ctx context.Context, t *Tenant) error

	// GetByID retrieves a tenant by ID
	GetByID(ctx context.Context, id string) (*Tenant, error)

	// GetBySlug retrieves a tenant by its URL slug
	GetBySlug(ctx context.Context, slug string) (*Tenant, error)

	// List retrieves tenants with pagination
	List(ctx context.Context, limit, offset int) ([]*Tenant, error)

	// Update updates mutable tenant fields
	Update(ctx context.Context, t *Tenant) error

	// SetActive toggles the active flag
	SetActive(ctx context.Context, id string, active bool) error

	// Delete removes a tenant and everything scoped to it
	Delete(ctx context.Context, id string) error
}
