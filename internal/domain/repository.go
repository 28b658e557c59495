// Package domain provides core business logic interfaces and types.
package domain

import (
	"context"
	"slices"
	"sort"

	"taskhub/internal/core/entity"
	"taskhub/internal/core/id"
	"taskhub/internal/domain/filter"
)

// --- Pagination & Filtering ---

const (
	// DefaultLimit is applied when the caller does not specify a page size.
	DefaultLimit = 20

	// MaxLimit caps the page size a caller may request.
	MaxLimit = 100
)

// ListOptions contains common filtering and pagination options for list
// operations. Page is 1-based; Limit is clamped to [1, MaxLimit].
type ListOptions struct {
	// Page is the 1-based page number
	Page int `json:"page"`

	// Limit is the page size
	Limit int `json:"limit"`

	// Search performs a substring match on searchable fields
	Search string `json:"search,omitempty"`

	// Filters is a list of declarative column conditions
	Filters []filter.Item `json:"filters,omitempty"`

	// OrderBy specifies sorting (e.g. "title", "-created_at")
	OrderBy string `json:"orderBy,omitempty"`

	// IncludeDeleted includes soft-deleted records
	IncludeDeleted bool `json:"includeDeleted,omitempty"`

	// Expand names related records to attach to each item (entity-specific,
	// e.g. "owner"). Expansion is applied after cache retrieval, so it is
	// excluded from serialization and does not split cache keys.
	Expand []string `json:"-"`
}

// DefaultListOptions returns sensible defaults.
func DefaultListOptions() ListOptions {
	return ListOptions{
		Page:    1,
		Limit:   DefaultLimit,
		OrderBy: "-created_at",
	}
}

// Normalize clamps pagination bounds and fills defaults.
func (o ListOptions) Normalize() ListOptions {
	if o.Page < 1 {
		o.Page = 1
	}
	if o.Limit < 1 {
		o.Limit = DefaultLimit
	}
	if o.Limit > MaxLimit {
		o.Limit = MaxLimit
	}
	if o.OrderBy == "" {
		o.OrderBy = "-created_at"
	}
	if len(o.Expand) > 1 {
		expand := append([]string(nil), o.Expand...)
		sort.Strings(expand)
		o.Expand = slices.Compact(expand)
	}
	return o
}

// Expands reports whether the caller asked for the named relation.
func (o ListOptions) Expands(name string) bool {
	return slices.Contains(o.Expand, name)
}

// Offset returns the row offset for the normalized options.
func (o ListOptions) Offset() int {
	return (o.Page - 1) * o.Limit
}

// Pagination describes the position of a page within the full result set.
type Pagination struct {
	Total       int64 `json:"total"`
	Page        int   `json:"page"`
	Limit       int   `json:"limit"`
	TotalPages  int   `json:"totalPages"`
	HasNext     bool  `json:"hasNext"`
	HasPrevious bool  `json:"hasPrevious"`
}

// NewPagination computes page metadata from a total row count.
func NewPagination(total int64, page, limit int) Pagination {
	totalPages := int((total + int64(limit) - 1) / int64(limit))
	return Pagination{
		Total:       total,
		Page:        page,
		Limit:       limit,
		TotalPages:  totalPages,
		HasNext:     page < totalPages,
		HasPrevious: page > 1,
	}
}

// Page contains one page of results.
type Page[T any] struct {
	Items      []T        `json:"items"`
	Pagination Pagination `json:"pagination"`
}

// Patch is a column-keyed partial update merged onto the live row.
// Keys are validated against the entity's column set by the repository.
type Patch = map[string]any

// --- Repository Interface ---

// Repository defines generic CRUD, pagination and soft-delete operations
// over one record table. Concrete entity repositories embed this contract
// and add entity-specific queries.
//
// Failure semantics: a backend-connectivity failure yields
// apperror.CodeUnavailable (fatal to the call, not retried here); a missing
// row yields CodeNotFound; a uniqueness violation yields CodeDuplicate.
type Repository[T entity.Keyed] interface {
	// FindByID retrieves a live (non-soft-deleted) record by ID.
	FindByID(ctx context.Context, id id.ID) (T, error)

	// List retrieves records with filtering and offset pagination.
	// No snapshot isolation is provided across successive calls.
	List(ctx context.Context, opts ListOptions) (Page[T], error)

	// Create inserts a new record; id and timestamps are assigned.
	Create(ctx context.Context, record T) (T, error)

	// Update merges patch onto the live row and refreshes updated_at.
	// Last write wins; there is no version check.
	Update(ctx context.Context, id id.ID, patch Patch) (T, error)

	// SoftDelete sets deleted_at; reports whether a row was affected.
	SoftDelete(ctx context.Context, id id.ID) (bool, error)

	// HardDelete physically removes the row regardless of soft-delete state.
	HardDelete(ctx context.Context, id id.ID) (bool, error)

	// Restore clears deleted_at; false if the row was not soft-deleted.
	Restore(ctx context.Context, id id.ID) (bool, error)

	// Count returns the number of matching live rows.
	Count(ctx context.Context, opts ListOptions) (int64, error)

	// Exists checks whether a live row with the given ID exists.
	Exists(ctx context.Context, id id.ID) (bool, error)
}
