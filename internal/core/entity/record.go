// Package entity contains the base record shape shared by all persisted types.
package entity

import (
	"context"
	"time"

	"taskhub/internal/core/id"
)

// Validatable is implemented by entities that support self-validation.
// Validation checks internal invariants (without database access).
type Validatable interface {
	// Validate checks entity invariants.
	// Returns nil if valid, AppError with details otherwise.
	Validate(ctx context.Context) error
}

// Keyed is the minimal capability the generic repository requires:
// a primary key and a soft-delete marker.
type Keyed interface {
	GetID() id.ID
	IsDeleted() bool
}

// Record contains the common fields of every persisted entity.
// Timestamps are store-managed: created_at/updated_at are stamped by
// PostgreSQL, deleted_at is the soft-delete marker.
type Record struct {
	// ID is the primary key (UUIDv7)
	ID id.ID `db:"id" json:"id"`

	// CreatedAt is set by the store on insert
	CreatedAt time.Time `db:"created_at" json:"createdAt"`

	// UpdatedAt is refreshed by the store on every update
	UpdatedAt time.Time `db:"updated_at" json:"updatedAt"`

	// DeletedAt marks the record soft-deleted when non-nil
	DeletedAt *time.Time `db:"deleted_at" json:"deletedAt,omitempty"`
}

// NewRecord creates a Record with a generated ID.
// Timestamps are left zero; the store assigns them.
func NewRecord() Record {
	return Record{ID: id.New()}
}

// GetID implements Keyed.
func (r *Record) GetID() id.ID {
	return r.ID
}

// IsDeleted implements Keyed.
func (r *Record) IsDeleted() bool {
	return r.DeletedAt != nil
}
