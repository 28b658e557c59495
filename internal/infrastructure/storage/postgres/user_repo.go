package postgres

import (
	"context"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"
	"github.com/jackc/pgx/v5"

	"taskhub/internal/core/id"
	"taskhub/internal/domain/user"
)

const userTable = "users"

// UserRepo implements user.Repository.
type UserRepo struct {
	*BaseRepo[*user.User]
}

// NewUserRepo creates a user repository over the pool.
func NewUserRepo(db Querier) *UserRepo {
	return &UserRepo{
		BaseRepo: NewBaseRepo[*user.User](
			db, "user", userTable,
			func() *user.User { return &user.User{} },
		).WithSearch("email", "name"),
	}
}

// FindByEmail retrieves a live user by normalized email.
func (r *UserRepo) FindByEmail(ctx context.Context, email string) (*user.User, error) {
	norm := user.NormalizeEmail(email)
	return r.GetWhere(ctx, norm, squirrel.Eq{"email": norm})
}

// FindByIDs retrieves the live users among the given IDs in a single
// query. Missing or soft-deleted IDs are silently absent from the result.
func (r *UserRepo) FindByIDs(ctx context.Context, ids []id.ID) ([]*user.User, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	q := r.baseSelect().
		Where(squirrel.Eq{"id": ids}).
		Where("deleted_at IS NULL")

	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var users []*user.User
	if err := pgxscan.Select(ctx, r.db, &users, sql, args...); err != nil {
		return nil, translateError(err, "user", nil)
	}
	return users, nil
}

// ExistsByEmail checks whether a live user other than excludeID holds the
// normalized email. Uniqueness only spans non-soft-deleted rows; the
// partial unique index enforces the same scope at the store.
func (r *UserRepo) ExistsByEmail(ctx context.Context, email string, excludeID id.ID) (bool, error) {
	q := r.Builder().
		Select("1").
		From(userTable).
		Where(squirrel.Eq{"email": user.NormalizeEmail(email)}).
		Where("deleted_at IS NULL").
		Limit(1)
	if !id.IsNil(excludeID) {
		q = q.Where(squirrel.NotEq{"id": excludeID})
	}

	sql, args, err := q.ToSql()
	if err != nil {
		return false, fmt.Errorf("build query: %w", err)
	}

	var one int
	err = r.db.QueryRow(ctx, sql, args...).Scan(&one)
	if err == pgx.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, translateError(err, "user", email)
	}
	return true, nil
}
