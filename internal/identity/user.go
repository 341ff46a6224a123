package identity

import (
	"context"
	"errors"
	"time"
)

// Domain errors
var (
	ErrUserNotFound       = errors.New("user not found")
	ErrEmailTaken         = errors.New("email already registered")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrInvalidEmail       = errors.New("invalid email address")
	ErrWeakPassword       = errors.New("password does not meet security requirements")
	ErrUserInactive       = errors.New("user is inactive")
)

// User is a single global identity. A user may hold role assignments in any
// number of tenants; IsSuperuser bypasses every permission check.
type User struct {
	ID           string     `json:"id"`
	Email        string     `json:"email"`
	PasswordHash string     `json:"-"`
	FullName     string     `json:"full_name,omitempty"`
	IsActive     bool       `json:"is_active"`
	IsSuperuser  bool       `json:"is_superuser"`
	LastLogin    *time.Time `json:"last_login,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
}

// Repository defines the interface for user persistence
type Repository interface {
	// Create creates a new user
	Create(ctx context.Context, user *User) error

	// GetByID retrieves a user by ID
	GetByID(ctx context.Context, id string) (*User, error)

	// GetByEmail retrieves a user by normalized email
	GetByEmail(ctx context.Context, email string) (*User, error)

	// Update updates user profile fields
	Update(ctx context.Context, user *User) error

	// UpdatePassword replaces the stored password hash
	UpdatePassword(ctx context.Context, userID, passwordHash string) error

	// UpdateLastLogin records a successful authentication
	UpdateLastLogin(ctx context.Context, userID string, at time.Time) error

	// SetActive toggles the active flag
	SetActive(ctx context.Context, userID string, active bool) error

	// Delete removes a user
	Delete(ctx context.Context, id string) error

	// List retrieves users with pagination
	List(ctx context.Context, limit, offset int) ([]*User, error)
}
