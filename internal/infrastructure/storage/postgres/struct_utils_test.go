package postgres

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"taskhub/internal/core/entity"
	"taskhub/internal/core/id"
)

type mockEntity struct {
	entity.Record
	Title  string `db:"title" json:"title"`
	Hidden string `db:"-"`
	NoTag  string
}

func TestExtractDBColumns_EmbeddedRecord(t *testing.T) {
	cols := ExtractDBColumns[*mockEntity]()

	expected := []string{"id", "created_at", "updated_at", "deleted_at", "title"}
	for _, col := range expected {
		assert.Contains(t, cols, col)
	}
	assert.NotContains(t, cols, "-")
	assert.Len(t, cols, len(expected))
}

func TestStructToMap_EmbeddedRecord(t *testing.T) {
	now := time.Now().UTC()
	e := mockEntity{
		Record: entity.Record{
			ID:        id.New(),
			CreatedAt: now,
			UpdatedAt: now,
			DeletedAt: &now,
		},
		Title:  "write tests",
		Hidden: "nope",
		NoTag:  "nope",
	}

	m := StructToMap(&e)

	assert.Equal(t, e.ID, m["id"])
	assert.Equal(t, now, m["created_at"])
	assert.Equal(t, now, m["updated_at"])
	assert.Equal(t, &now, m["deleted_at"])
	assert.Equal(t, "write tests", m["title"])
	assert.Len(t, m, 5)
}

func TestStructToMap_NonStruct(t *testing.T) {
	assert.Nil(t, StructToMap(42))
	assert.Nil(t, StructToMap("nope"))
}
