package postgres

import (
	"context"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"

	"taskhub/internal/core/id"
	"taskhub/internal/domain"
	"taskhub/internal/domain/task"
)

const taskTable = "tasks"

// TaskRepo implements task.Repository.
type TaskRepo struct {
	*BaseRepo[*task.Task]
}

// NewTaskRepo creates a task repository over the pool.
func NewTaskRepo(db Querier) *TaskRepo {
	return &TaskRepo{
		BaseRepo: NewBaseRepo[*task.Task](
			db, "task", taskTable,
			func() *task.Task { return &task.Task{} },
		).WithSearch("title", "description"),
	}
}

// FindByOwner retrieves tasks assigned to the given owner.
func (r *TaskRepo) FindByOwner(ctx context.Context, ownerID id.ID, opts domain.ListOptions) (domain.Page[*task.Task], error) {
	return r.ListWhere(ctx, opts, squirrel.Eq{"owner_id": ownerID})
}

// FindUnassigned retrieves tasks without an owner.
func (r *TaskRepo) FindUnassigned(ctx context.Context, opts domain.ListOptions) (domain.Page[*task.Task], error) {
	return r.ListWhere(ctx, opts, squirrel.Eq{"owner_id": nil})
}

// FindByStatus retrieves tasks in the given lifecycle state.
func (r *TaskRepo) FindByStatus(ctx context.Context, status task.Status, opts domain.ListOptions) (domain.Page[*task.Task], error) {
	return r.ListWhere(ctx, opts, squirrel.Eq{"status": status})
}

// FindOverdue retrieves tasks past their due date that are still active.
func (r *TaskRepo) FindOverdue(ctx context.Context, opts domain.ListOptions) (domain.Page[*task.Task], error) {
	return r.ListWhere(ctx, opts,
		squirrel.Expr("due_date < now()"),
		squirrel.NotEq{"status": []task.Status{task.StatusDone, task.StatusArchived}},
	)
}

// OwnerStats aggregates the owner's live tasks by lifecycle state in a
// single round-trip.
func (r *TaskRepo) OwnerStats(ctx context.Context, ownerID id.ID) (task.Stats, error) {
	ctx, span := r.startSpan(ctx, "owner_stats")
	defer span.End()

	const query = `
		SELECT COUNT(*)                                                                  AS total,
		       COUNT(*) FILTER (WHERE status = 'TODO')                                   AS todo,
		       COUNT(*) FILTER (WHERE status = 'IN_PROGRESS')                            AS in_progress,
		       COUNT(*) FILTER (WHERE status = 'DONE')                                   AS done,
		       COUNT(*) FILTER (WHERE due_date < now()
		                          AND status NOT IN ('DONE', 'ARCHIVED'))                AS overdue
		FROM tasks
		WHERE owner_id = $1 AND deleted_at IS NULL
	`

	var stats task.Stats
	if err := pgxscan.Get(ctx, r.db, &stats, query, ownerID); err != nil {
		return task.Stats{}, translateError(err, "task", ownerID.String())
	}
	return stats, nil
}
