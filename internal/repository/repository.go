package repository

import (
	"context"

	"github.com/sheetalMehta7/chillTube-backend/internal/domain"
)

// UserRepository defines the interface for user persistence operations.
// The storage layer enforces uniqueness on username and email itself, so a
// concurrent duplicate insert surfaces as a conflict regardless of any
// application-level pre-check.
type UserRepository interface {
	// Create inserts a new user into the store. Returns a conflict error
	// when the username or email is already taken.
	Create(ctx context.Context, user *domain.User) error

	// GetByID retrieves a user by their unique identifier.
	GetByID(ctx context.Context, id string) (*domain.User, error)

	// GetByIdentity retrieves a user matching either the username or the
	// email. Empty arguments do not match anything.
	GetByIdentity(ctx context.Context, username, email string) (*domain.User, error)

	// UpdateRefreshToken overwrites the single refresh-token slot for the
	// user. A nil token clears the slot (logout).
	UpdateRefreshToken(ctx context.Context, id string, token *string) error

	// UpdatePasswordHash replaces the stored password hash for the user.
	UpdatePasswordHash(ctx context.Context, id, hash string) error
}
