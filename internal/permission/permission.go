package permission

import (
	"context"
	"errors"
	"time"
)

// Domain errors
var (
	ErrPermissionNotFound = errors.New("permission not found")
)

// Permission is a catalog entry. The code is `<module>:<action>` and is the
// stable identifier everything else references; the UUID is internal.
type Permission struct {
	ID          string    `json:"id"`
	Code        string    `json:"code"`
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	Module      string    `json:"module"`
	Action      string    `json:"action"`
	CreatedAt   time.Time `json:"created_at"`
}

// Repository defines the interface for permission catalog persistence
type Repository interface {
	// Upsert inserts a catalog entry, keyed on code
	Upsert(ctx context.Context, p *Permission) error

	// GetByCode retrieves a permission by its code
	GetByCode(ctx context.Context, code string) (*Permission, error)

	// List retrieves the full catalog
	List(ctx context.Context) ([]*Permission, error)

	// ListByModule retrieves catalog entries for one module
	ListByModule(ctx context.Context, module string) ([]*Permission, error)
}
