package task

import (
	"context"

	"taskhub/internal/core/id"
	"taskhub/internal/domain"
)

// Repository defines storage operations for tasks.
type Repository interface {
	domain.Repository[*Task]

	// FindByOwner retrieves tasks assigned to the given owner.
	FindByOwner(ctx context.Context, ownerID id.ID, opts domain.ListOptions) (domain.Page[*Task], error)

	// FindUnassigned retrieves tasks without an owner.
	FindUnassigned(ctx context.Context, opts domain.ListOptions) (domain.Page[*Task], error)

	// FindByStatus retrieves tasks in the given lifecycle state.
	FindByStatus(ctx context.Context, status Status, opts domain.ListOptions) (domain.Page[*Task], error)

	// FindOverdue retrieves active tasks whose due date has passed.
	FindOverdue(ctx context.Context, opts domain.ListOptions) (domain.Page[*Task], error)

	// OwnerStats aggregates the owner's live tasks by lifecycle state.
	OwnerStats(ctx context.Context, ownerID id.ID) (Stats, error)
}
