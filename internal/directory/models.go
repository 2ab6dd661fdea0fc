package directory

import (
	"context"
	"errors"
	"time"
)

// Principal is a user or application the API issues tokens for.
// Username equals Email for accounts created through the API.
type Principal struct {
	ID        string    `json:"id" db:"id"`
	Username  string    `json:"username" db:"username"`
	Email     string    `json:"email" db:"email"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

var (
	ErrNotFound        = errors.New("directory: not found")
	ErrConflict        = errors.New("directory: already exists")
	ErrInvalidArgument = errors.New("directory: invalid argument")
)

// Directory is the identity and role store. The session core only reads from it;
// account management writes through it.
type Directory interface {
	FindPrincipalByEmail(ctx context.Context, email string) (Principal, error)
	FindPrincipalByID(ctx context.Context, id string) (Principal, error)
	// ValidateCredentials reports whether password matches the principal's stored hash.
	ValidateCredentials(ctx context.Context, principalID, password string) (bool, error)
	// GetRoles returns the principal's roles, unique and sorted by name.
	GetRoles(ctx context.Context, principalID string) ([]string, error)
	AddRole(ctx context.Context, principalID, role string) error
	RemoveRole(ctx context.Context, principalID, role string) error
	CreatePrincipal(ctx context.Context, email, password string) (Principal, error)
	DeletePrincipal(ctx context.Context, id string) error

	CreateRole(ctx context.Context, name string) error
	DeleteRole(ctx context.Context, name string) error
	RoleExists(ctx context.Context, name string) (bool, error)
}
