// Package task provides the Task entity: a unit of work created by a user
// and optionally assigned to an owner.
package task

import (
	"context"
	"time"

	"taskhub/internal/core/apperror"
	"taskhub/internal/core/entity"
	"taskhub/internal/core/id"
	"taskhub/internal/domain"
	"taskhub/internal/domain/user"
)

// Status enumerates the task lifecycle. The order is
// TODO -> IN_PROGRESS -> DONE -> ARCHIVED, but the repository layer does
// not reject backward or skipped transitions; permissiveness is intentional.
type Status string

const (
	StatusTodo       Status = "TODO"
	StatusInProgress Status = "IN_PROGRESS"
	StatusDone       Status = "DONE"
	StatusArchived   Status = "ARCHIVED"
)

// Valid reports whether the status is a known value.
func (s Status) Valid() bool {
	switch s {
	case StatusTodo, StatusInProgress, StatusDone, StatusArchived:
		return true
	}
	return false
}

// Terminal reports whether the status ends the active lifecycle.
func (s Status) Terminal() bool {
	return s == StatusDone || s == StatusArchived
}

// Priority enumerates task priorities.
type Priority string

const (
	PriorityLow    Priority = "LOW"
	PriorityMedium Priority = "MEDIUM"
	PriorityHigh   Priority = "HIGH"
)

// Valid reports whether the priority is a known value.
func (p Priority) Valid() bool {
	switch p {
	case PriorityLow, PriorityMedium, PriorityHigh:
		return true
	}
	return false
}

// Task represents a unit of work. OwnerID is nil while unassigned.
// CreatorID must reference an existing user at creation time; it is not
// re-validated when users are deleted, so dangling references are accepted.
type Task struct {
	entity.Record

	Title       string `db:"title" json:"title"`
	Description string `db:"description" json:"description"`

	Status   Status   `db:"status" json:"status"`
	Priority Priority `db:"priority" json:"priority"`

	DueDate *time.Time `db:"due_date" json:"dueDate,omitempty"`

	// OwnerID is the assignee, nil when unassigned
	OwnerID *id.ID `db:"owner_id" json:"ownerId,omitempty"`

	// CreatorID is the user who created the task
	CreatorID id.ID `db:"creator_id" json:"creatorId"`

	// Owner and Creator hold the referenced users when the caller asks for
	// them via ListOptions.Expand. Never persisted; nil for a dangling or
	// unrequested reference.
	Owner   *user.User `db:"-" json:"owner,omitempty"`
	Creator *user.User `db:"-" json:"creator,omitempty"`
}

// Relation names accepted by ListOptions.Expand for tasks.
const (
	ExpandOwner   = "owner"
	ExpandCreator = "creator"
)

// New creates a Task with a generated ID and defaults.
func New(title, description string, creatorID id.ID) *Task {
	return &Task{
		Record:      entity.NewRecord(),
		Title:       title,
		Description: description,
		Status:      StatusTodo,
		Priority:    PriorityMedium,
		CreatorID:   creatorID,
	}
}

// Overdue reports whether the task is past due and still active.
func (t *Task) Overdue(now time.Time) bool {
	return t.DueDate != nil && t.DueDate.Before(now) && !t.Status.Terminal()
}

// Validate implements entity.Validatable.
func (t *Task) Validate(ctx context.Context) error {
	if t.Title == "" {
		return apperror.NewValidation("title is required").
			WithDetail("field", "title")
	}
	if !t.Status.Valid() {
		return apperror.NewValidation("unknown status").
			WithDetail("field", "status").
			WithDetail("value", string(t.Status))
	}
	if !t.Priority.Valid() {
		return apperror.NewValidation("unknown priority").
			WithDetail("field", "priority").
			WithDetail("value", string(t.Priority))
	}
	if id.IsNil(t.CreatorID) {
		return apperror.NewValidation("creator is required").
			WithDetail("field", "creatorId")
	}
	return nil
}

// UpdateInput describes a partial task update. Nil fields are untouched.
// Assignment and status changes go through their dedicated operations so
// invalidation can see the previous owner.
type UpdateInput struct {
	Title       *string    `json:"title,omitempty"`
	Description *string    `json:"description,omitempty"`
	Priority    *Priority  `json:"priority,omitempty"`
	DueDate     *time.Time `json:"dueDate,omitempty"`

	// ClearDueDate removes the due date; wins over DueDate
	ClearDueDate bool `json:"clearDueDate,omitempty"`
}

// Patch converts the input into a column-keyed patch.
func (in UpdateInput) Patch() domain.Patch {
	patch := domain.Patch{}
	if in.Title != nil {
		patch["title"] = *in.Title
	}
	if in.Description != nil {
		patch["description"] = *in.Description
	}
	if in.Priority != nil {
		patch["priority"] = *in.Priority
	}
	if in.ClearDueDate {
		patch["due_date"] = nil
	} else if in.DueDate != nil {
		patch["due_date"] = *in.DueDate
	}
	return patch
}

// Validate checks the provided fields.
func (in UpdateInput) Validate(ctx context.Context) error {
	if in.Title != nil && *in.Title == "" {
		return apperror.NewValidation("title must not be empty").
			WithDetail("field", "title")
	}
	if in.Priority != nil && !in.Priority.Valid() {
		return apperror.NewValidation("unknown priority").
			WithDetail("field", "priority").
			WithDetail("value", string(*in.Priority))
	}
	return nil
}

// Stats aggregates a single owner's tasks by lifecycle state.
type Stats struct {
	Total      int64 `db:"total" json:"total"`
	Todo       int64 `db:"todo" json:"todo"`
	InProgress int64 `db:"in_progress" json:"inProgress"`
	Done       int64 `db:"done" json:"done"`
	Overdue    int64 `db:"overdue" json:"overdue"`
}
