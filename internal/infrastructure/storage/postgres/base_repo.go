package postgres

import (
	"context"
	"fmt"
	"strings"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"
	"github.com/jackc/pgx/v5"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"taskhub/internal/core/entity"
	"taskhub/internal/core/id"
	"taskhub/internal/domain"
	"taskhub/internal/domain/filter"
)

var tracer = otel.Tracer("taskhub/storage/postgres")

// BaseRepo provides generic CRUD, pagination and soft-delete operations
// for one record table. Embed it in concrete entity repositories.
//
// Soft-delete scope: every read excludes rows with deleted_at set unless
// the caller opts in via ListOptions.IncludeDeleted. Writes never retry;
// connectivity failures surface as BACKEND_UNAVAILABLE.
type BaseRepo[T entity.Keyed] struct {
	db         Querier
	entityName string
	tableName  string
	columns    []string
	columnSet  map[string]bool
	searchCols []string
	newFn      func() T
}

// NewBaseRepo creates a base repository over the given table.
// Column mapping is extracted once from the entity's "db" tags.
func NewBaseRepo[T entity.Keyed](db Querier, entityName, tableName string, newFn func() T) *BaseRepo[T] {
	columns := ExtractDBColumns[T]()
	columnSet := make(map[string]bool, len(columns))
	for _, col := range columns {
		columnSet[col] = true
	}
	return &BaseRepo[T]{
		db:         db,
		entityName: entityName,
		tableName:  tableName,
		columns:    columns,
		columnSet:  columnSet,
		newFn:      newFn,
	}
}

// WithSearch sets the columns matched by ListOptions.Search.
func (r *BaseRepo[T]) WithSearch(cols ...string) *BaseRepo[T] {
	r.searchCols = cols
	return r
}

// Builder returns a squirrel builder with PostgreSQL placeholders.
func (r *BaseRepo[T]) Builder() squirrel.StatementBuilderType {
	return squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)
}

func (r *BaseRepo[T]) baseSelect() squirrel.SelectBuilder {
	return r.Builder().
		Select(r.columns...).
		From(r.tableName)
}

func (r *BaseRepo[T]) startSpan(ctx context.Context, op string) (context.Context, trace.Span) {
	return tracer.Start(ctx, "repo."+op, trace.WithAttributes(
		attribute.String("db.table", r.tableName),
	))
}

// FindByID retrieves a live record by ID.
func (r *BaseRepo[T]) FindByID(ctx context.Context, entityID id.ID) (T, error) {
	ctx, span := r.startSpan(ctx, "find_by_id")
	defer span.End()

	return r.GetWhere(ctx, entityID.String(), squirrel.Eq{"id": entityID})
}

// GetWhere retrieves a single live record matching the conditions.
// The key is only used for the not-found error detail.
func (r *BaseRepo[T]) GetWhere(ctx context.Context, key any, conds ...squirrel.Sqlizer) (T, error) {
	record := r.newFn()

	q := r.baseSelect().
		Where("deleted_at IS NULL").
		Limit(1)
	for _, cond := range conds {
		q = q.Where(cond)
	}

	sql, args, err := q.ToSql()
	if err != nil {
		return record, fmt.Errorf("build query: %w", err)
	}

	if err := pgxscan.Get(ctx, r.db, record, sql, args...); err != nil {
		if pgxscan.NotFound(err) {
			return record, translateError(pgx.ErrNoRows, r.entityName, key)
		}
		return record, translateError(err, r.entityName, key)
	}

	return record, nil
}

// List retrieves records with filtering and offset pagination.
func (r *BaseRepo[T]) List(ctx context.Context, opts domain.ListOptions) (domain.Page[T], error) {
	return r.ListWhere(ctx, opts)
}

// ListWhere retrieves a page of records matching both the options and any
// extra conditions a concrete repository supplies. The total is counted
// before pagination; there is no snapshot isolation between the count and
// the page read, or between successive page reads.
func (r *BaseRepo[T]) ListWhere(ctx context.Context, opts domain.ListOptions, conds ...squirrel.Sqlizer) (domain.Page[T], error) {
	ctx, span := r.startSpan(ctx, "list")
	defer span.End()

	opts = opts.Normalize()
	var page domain.Page[T]

	q := r.baseSelect()
	q, err := r.applyOptions(q, opts, conds)
	if err != nil {
		return page, err
	}

	// Total over the filtered set, before limit/offset
	countQ := r.Builder().
		Select("COUNT(*)").
		FromSelect(q, "sub")

	countSQL, countArgs, err := countQ.ToSql()
	if err != nil {
		return page, fmt.Errorf("build count query: %w", err)
	}

	var total int64
	if err := r.db.QueryRow(ctx, countSQL, countArgs...).Scan(&total); err != nil {
		return page, translateError(err, r.entityName, nil)
	}

	orderBy, err := r.parseOrderBy(opts.OrderBy)
	if err != nil {
		return page, err
	}
	q = q.OrderBy(orderBy).
		Limit(uint64(opts.Limit)).
		Offset(uint64(opts.Offset()))

	sql, args, err := q.ToSql()
	if err != nil {
		return page, fmt.Errorf("build query: %w", err)
	}

	items := make([]T, 0, opts.Limit)
	if err := pgxscan.Select(ctx, r.db, &items, sql, args...); err != nil {
		return page, translateError(err, r.entityName, nil)
	}

	page.Items = items
	page.Pagination = domain.NewPagination(total, opts.Page, opts.Limit)
	return page, nil
}

// Create inserts a new record using its "db" tags and returns the stored
// row, picking up store-assigned timestamps via RETURNING.
func (r *BaseRepo[T]) Create(ctx context.Context, record T) (T, error) {
	ctx, span := r.startSpan(ctx, "create")
	defer span.End()

	created := r.newFn()

	data := StructToMap(record)
	if len(data) == 0 {
		return created, fmt.Errorf("no db tags found in entity")
	}

	values := make(map[string]any, len(r.columns))
	for _, col := range r.columns {
		// created_at/updated_at are store-managed defaults
		if col == "created_at" || col == "updated_at" {
			continue
		}
		if val, ok := data[col]; ok {
			values[col] = val
		}
	}

	q := r.Builder().
		Insert(r.tableName).
		SetMap(values).
		Suffix("RETURNING " + strings.Join(r.columns, ", "))

	sql, args, err := q.ToSql()
	if err != nil {
		return created, fmt.Errorf("build insert: %w", err)
	}

	if err := pgxscan.Get(ctx, r.db, created, sql, args...); err != nil {
		return created, translateError(err, r.entityName, record.GetID())
	}

	return created, nil
}

// Update merges the patch onto the live row, refreshes updated_at and
// returns the stored row. Patch keys outside the entity's column set are
// ignored; id, deleted_at and the created_at stamp are never patchable.
// Last write wins: there is no version check.
func (r *BaseRepo[T]) Update(ctx context.Context, entityID id.ID, patch domain.Patch) (T, error) {
	ctx, span := r.startSpan(ctx, "update")
	defer span.End()

	updated := r.newFn()

	values := make(map[string]any, len(patch))
	for col, val := range patch {
		if !r.columnSet[col] {
			continue
		}
		if col == "id" || col == "created_at" || col == "updated_at" || col == "deleted_at" {
			continue
		}
		values[col] = val
	}
	if len(values) == 0 {
		return updated, translateError(pgx.ErrNoRows, r.entityName, entityID.String())
	}

	q := r.Builder().
		Update(r.tableName).
		SetMap(values).
		Set("updated_at", squirrel.Expr("now()")).
		Where(squirrel.Eq{"id": entityID}).
		Where("deleted_at IS NULL").
		Suffix("RETURNING " + strings.Join(r.columns, ", "))

	sql, args, err := q.ToSql()
	if err != nil {
		return updated, fmt.Errorf("build update: %w", err)
	}

	if err := pgxscan.Get(ctx, r.db, updated, sql, args...); err != nil {
		if pgxscan.NotFound(err) {
			return updated, translateError(pgx.ErrNoRows, r.entityName, entityID.String())
		}
		return updated, translateError(err, r.entityName, entityID.String())
	}

	return updated, nil
}

// SoftDelete sets deleted_at on a live row.
func (r *BaseRepo[T]) SoftDelete(ctx context.Context, entityID id.ID) (bool, error) {
	ctx, span := r.startSpan(ctx, "soft_delete")
	defer span.End()

	q := r.Builder().
		Update(r.tableName).
		Set("deleted_at", squirrel.Expr("now()")).
		Set("updated_at", squirrel.Expr("now()")).
		Where(squirrel.Eq{"id": entityID}).
		Where("deleted_at IS NULL")

	return r.execAffected(ctx, q)
}

// Restore clears deleted_at on a soft-deleted row.
func (r *BaseRepo[T]) Restore(ctx context.Context, entityID id.ID) (bool, error) {
	ctx, span := r.startSpan(ctx, "restore")
	defer span.End()

	q := r.Builder().
		Update(r.tableName).
		Set("deleted_at", nil).
		Set("updated_at", squirrel.Expr("now()")).
		Where(squirrel.Eq{"id": entityID}).
		Where("deleted_at IS NOT NULL")

	return r.execAffected(ctx, q)
}

// HardDelete physically removes the row regardless of soft-delete state.
// Administrative use only; irreversible.
func (r *BaseRepo[T]) HardDelete(ctx context.Context, entityID id.ID) (bool, error) {
	ctx, span := r.startSpan(ctx, "hard_delete")
	defer span.End()

	q := r.Builder().
		Delete(r.tableName).
		Where(squirrel.Eq{"id": entityID})

	sql, args, err := q.ToSql()
	if err != nil {
		return false, fmt.Errorf("build delete: %w", err)
	}

	result, err := r.db.Exec(ctx, sql, args...)
	if err != nil {
		return false, translateError(err, r.entityName, entityID.String())
	}
	return result.RowsAffected() > 0, nil
}

func (r *BaseRepo[T]) execAffected(ctx context.Context, q squirrel.UpdateBuilder) (bool, error) {
	sql, args, err := q.ToSql()
	if err != nil {
		return false, fmt.Errorf("build update: %w", err)
	}

	result, err := r.db.Exec(ctx, sql, args...)
	if err != nil {
		return false, translateError(err, r.entityName, nil)
	}
	return result.RowsAffected() > 0, nil
}

// Count returns the number of matching rows (live by default).
func (r *BaseRepo[T]) Count(ctx context.Context, opts domain.ListOptions) (int64, error) {
	return r.CountWhere(ctx, opts)
}

// CountWhere counts rows matching the options plus extra conditions.
func (r *BaseRepo[T]) CountWhere(ctx context.Context, opts domain.ListOptions, conds ...squirrel.Sqlizer) (int64, error) {
	ctx, span := r.startSpan(ctx, "count")
	defer span.End()

	q := r.Builder().
		Select("COUNT(*)").
		From(r.tableName)
	q, err := r.applyOptions(q, opts, conds)
	if err != nil {
		return 0, err
	}

	sql, args, err := q.ToSql()
	if err != nil {
		return 0, fmt.Errorf("build count query: %w", err)
	}

	var total int64
	if err := r.db.QueryRow(ctx, sql, args...).Scan(&total); err != nil {
		return 0, translateError(err, r.entityName, nil)
	}
	return total, nil
}

// Exists checks whether a live row with the given ID exists.
func (r *BaseRepo[T]) Exists(ctx context.Context, entityID id.ID) (bool, error) {
	ctx, span := r.startSpan(ctx, "exists")
	defer span.End()

	q := r.Builder().
		Select("1").
		From(r.tableName).
		Where(squirrel.Eq{"id": entityID}).
		Where("deleted_at IS NULL").
		Limit(1)

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
		return false, translateError(err, r.entityName, entityID.String())
	}
	return true, nil
}

// applyOptions applies soft-delete scope, search, declarative filters and
// extra conditions to a select builder.
func (r *BaseRepo[T]) applyOptions(q squirrel.SelectBuilder, opts domain.ListOptions, conds []squirrel.Sqlizer) (squirrel.SelectBuilder, error) {
	if !opts.IncludeDeleted {
		q = q.Where("deleted_at IS NULL")
	}

	if opts.Search != "" && len(r.searchCols) > 0 {
		pattern := "%" + opts.Search + "%"
		or := make(squirrel.Or, 0, len(r.searchCols))
		for _, col := range r.searchCols {
			or = append(or, squirrel.ILike{col: pattern})
		}
		q = q.Where(or)
	}

	var err error
	q, err = r.applyFilters(q, opts.Filters)
	if err != nil {
		return q, err
	}

	for _, cond := range conds {
		q = q.Where(cond)
	}
	return q, nil
}

// applyFilters applies declarative filter items to the query.
// Field names are checked against the entity's column set to guard
// against SQL injection.
func (r *BaseRepo[T]) applyFilters(q squirrel.SelectBuilder, items []filter.Item) (squirrel.SelectBuilder, error) {
	for _, item := range items {
		if !r.columnSet[item.Field] {
			return q, fmt.Errorf("invalid filter column: %s", item.Field)
		}

		switch item.Operator {
		case filter.Equal:
			q = q.Where(squirrel.Eq{item.Field: item.Value})
		case filter.NotEqual:
			q = q.Where(squirrel.NotEq{item.Field: item.Value})
		case filter.Less:
			q = q.Where(squirrel.Lt{item.Field: item.Value})
		case filter.Greater:
			q = q.Where(squirrel.Gt{item.Field: item.Value})
		case filter.LessOrEqual:
			q = q.Where(squirrel.LtOrEq{item.Field: item.Value})
		case filter.GreaterOrEqual:
			q = q.Where(squirrel.GtOrEq{item.Field: item.Value})
		case filter.InList:
			q = q.Where(squirrel.Eq{item.Field: item.Value})
		case filter.NotInList:
			q = q.Where(squirrel.NotEq{item.Field: item.Value})
		case filter.IsNull:
			q = q.Where(squirrel.Eq{item.Field: nil})
		case filter.IsNotNull:
			q = q.Where(squirrel.NotEq{item.Field: nil})
		case filter.Contains:
			q = q.Where(squirrel.ILike{item.Field: fmt.Sprintf("%%%v%%", item.Value)})
		case filter.NotContains:
			q = q.Where(squirrel.NotILike{item.Field: fmt.Sprintf("%%%v%%", item.Value)})
		default:
			return q, fmt.Errorf("unsupported filter operator: %s", item.Operator)
		}
	}
	return q, nil
}

// parseOrderBy converts "-col" style sort keys into SQL, validating the
// column against the entity's column set.
func (r *BaseRepo[T]) parseOrderBy(orderBy string) (string, error) {
	col := orderBy
	dir := "ASC"
	if strings.HasPrefix(orderBy, "-") {
		col = orderBy[1:]
		dir = "DESC"
	}
	if !r.columnSet[col] {
		return "", fmt.Errorf("invalid sort column: %s", col)
	}
	return col + " " + dir, nil
}
