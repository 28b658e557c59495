package user

import (
	"context"

	"taskhub/internal/core/id"
	"taskhub/internal/domain"
)

// Repository defines storage operations for users.
type Repository interface {
	domain.Repository[*User]

	// FindByEmail retrieves a live user by normalized email.
	FindByEmail(ctx context.Context, email string) (*User, error)

	// FindByIDs retrieves the live users among the given IDs in one
	// round-trip. Missing or soft-deleted IDs are silently absent.
	FindByIDs(ctx context.Context, ids []id.ID) ([]*User, error)

	// ExistsByEmail checks whether a live user other than excludeID holds
	// the normalized email. Pass id.Nil() to check without exclusion.
	ExistsByEmail(ctx context.Context, email string, excludeID id.ID) (bool, error)
}
