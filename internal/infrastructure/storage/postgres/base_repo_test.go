package postgres

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"taskhub/internal/domain"
	"taskhub/internal/domain/filter"
)

func newTestRepo() *BaseRepo[*mockEntity] {
	return NewBaseRepo[*mockEntity](nil, "mock", "mock_entities",
		func() *mockEntity { return &mockEntity{} },
	).WithSearch("title")
}

func TestBaseRepo_ApplyFilters_Operators(t *testing.T) {
	repo := newTestRepo()

	tests := []struct {
		name     string
		item     filter.Item
		wantSQL  string
		wantArgs []any
	}{
		{
			name:     "equal",
			item:     filter.Eq("title", "a"),
			wantSQL:  "SELECT id, created_at, updated_at, deleted_at, title FROM mock_entities WHERE title = $1",
			wantArgs: []any{"a"},
		},
		{
			name:     "greater",
			item:     filter.Item{Field: "created_at", Operator: filter.Greater, Value: 10},
			wantSQL:  "SELECT id, created_at, updated_at, deleted_at, title FROM mock_entities WHERE created_at > $1",
			wantArgs: []any{10},
		},
		{
			name:     "is null",
			item:     filter.Item{Field: "deleted_at", Operator: filter.IsNull},
			wantSQL:  "SELECT id, created_at, updated_at, deleted_at, title FROM mock_entities WHERE deleted_at IS NULL",
			wantArgs: nil,
		},
		{
			name:     "contains",
			item:     filter.Item{Field: "title", Operator: filter.Contains, Value: "go"},
			wantSQL:  "SELECT id, created_at, updated_at, deleted_at, title FROM mock_entities WHERE title ILIKE $1",
			wantArgs: []any{"%go%"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q, err := repo.applyFilters(repo.baseSelect(), []filter.Item{tt.item})
			require.NoError(t, err)

			sql, args, err := q.ToSql()
			require.NoError(t, err)
			assert.Equal(t, tt.wantSQL, sql)
			assert.Equal(t, tt.wantArgs, args)
		})
	}
}

func TestBaseRepo_ApplyFilters_RejectsUnknownColumn(t *testing.T) {
	repo := newTestRepo()

	_, err := repo.applyFilters(repo.baseSelect(), []filter.Item{
		{Field: "title; DROP TABLE users", Operator: filter.Equal, Value: "x"},
	})
	assert.Error(t, err)
}

func TestBaseRepo_ApplyOptions_SoftDeleteScope(t *testing.T) {
	repo := newTestRepo()

	q, err := repo.applyOptions(repo.baseSelect(), domain.ListOptions{}.Normalize(), nil)
	require.NoError(t, err)
	sql, _, err := q.ToSql()
	require.NoError(t, err)
	assert.Contains(t, sql, "deleted_at IS NULL")

	q, err = repo.applyOptions(repo.baseSelect(), domain.ListOptions{IncludeDeleted: true}.Normalize(), nil)
	require.NoError(t, err)
	sql, _, err = q.ToSql()
	require.NoError(t, err)
	assert.NotContains(t, sql, "deleted_at IS NULL")
}

func TestBaseRepo_ApplyOptions_Search(t *testing.T) {
	repo := newTestRepo()

	opts := domain.ListOptions{Search: "report"}.Normalize()
	q, err := repo.applyOptions(repo.baseSelect(), opts, nil)
	require.NoError(t, err)

	sql, args, err := q.ToSql()
	require.NoError(t, err)
	assert.Contains(t, sql, "title ILIKE")
	assert.Contains(t, args, "%report%")
}

func TestBaseRepo_ParseOrderBy(t *testing.T) {
	repo := newTestRepo()

	orderBy, err := repo.parseOrderBy("title")
	require.NoError(t, err)
	assert.Equal(t, "title ASC", orderBy)

	orderBy, err = repo.parseOrderBy("-created_at")
	require.NoError(t, err)
	assert.Equal(t, "created_at DESC", orderBy)

	_, err = repo.parseOrderBy("no_such_column")
	assert.Error(t, err)

	_, err = repo.parseOrderBy("title; --")
	assert.Error(t, err)
}
