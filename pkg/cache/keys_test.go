package cache

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKey(t *testing.T) {
	assert.Equal(t, "user:42", Key("user", "42"))
	assert.Equal(t, "tasks:list:abc", Key("tasks", "list", "abc"))
	assert.Equal(t, "solo", Key("solo"))
}

func TestHashOptions_Deterministic(t *testing.T) {
	type opts struct {
		Page  int    `json:"page"`
		Query string `json:"query"`
	}

	a := HashOptions(opts{Page: 1, Query: "x"})
	b := HashOptions(opts{Page: 1, Query: "x"})
	c := HashOptions(opts{Page: 2, Query: "x"})

	assert.Equal(t, a, b)
	assert.NotEqual(t, a, c)
	assert.NotEmpty(t, a)
}

func TestHashOptions_MapKeyOrder(t *testing.T) {
	a := HashOptions(map[string]int{"a": 1, "b": 2})
	b := HashOptions(map[string]int{"b": 2, "a": 1})
	assert.Equal(t, a, b)
}
