package apikey

import (
	"context"
	"errors"
	"time"
)

// Domain errors
var (
	ErrKeyNotFound     = errors.New("api key not found")
	ErrInvalidKey      = errors.New("invalid api key")
	ErrTenantRequired  = errors.New("tenant-scoped api key requires a tenant")
	ErrTenantForbidden = errors.New("global api key must not carry a tenant")
	ErrInvalidScope    = errors.New("invalid api key scope")
)

// Scope determines whether a key is bound to one tenant or usable anywhere
// the owner is.
type Scope string

const (
	ScopeGlobal Scope = "GLOBAL"
	ScopeTenant Scope = "TENANT"
)

// Key is the persisted form of an API key. The raw key value is returned
// exactly once at creation; only the prefix and a one-way digest survive.
type Key struct {
	ID          string     `json:"id"`
	Name        string     `json:"name"`
	KeyPrefix   string     `json:"key_prefix"`
	KeyHash     string     `json:"-"`
	Description string     `json:"description,omitempty"`
	IsActive    bool       `json:"is_active"`
	ExpiresAt   *time.Time `json:"expires_at,omitempty"`
	LastUsedAt  *time.Time `json:"last_used_at,omitempty"`
	UserID      string     `json:"user_id"`
	TenantID    *string    `json:"tenant_id,omitempty"`
	Scope       Scope      `json:"scope"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

// Repository defines the interface for API key persistence
type Repository interface {
	// Create stores a new key record
	Create(ctx context.Context, key *Key) error

	// GetByID retrieves a key by ID
	GetByID(ctx context.Context, id string) (*Key, error)

	// GetActiveByPrefixHash retrieves an active key matching both the
	// indexed prefix and the digest of the full key
	GetActiveByPrefixHash(ctx context.Context, prefix, hash string) (*Key, error)

	// ListByUser retrieves keys owned by a user
	ListByUser(ctx context.Context, userID string, limit, offset int) ([]*Key, error)

	// ListByTenant retrieves keys scoped to a tenant
	ListByTenant(ctx context.Context, tenantID string, limit, offset int) ([]*Key, error)

	// ListAll retrieves all keys
	ListAll(ctx context.Context, limit, offset int) ([]*Key, error)

	// Update updates mutable key fields (name, description, is_active)
	Update(ctx context.Context, key *Key) error

	// UpdateLastUsed records key usage
	UpdateLastUsed(ctx context.Context, keyID string, at time.Time) error

	// Delete removes a key
	Delete(ctx context.Context, id string) error
}
