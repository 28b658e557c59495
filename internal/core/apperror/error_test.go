package apperror

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAppError_ErrorString(t *testing.T) {
	err := NewNotFound("user", "42")
	assert.Contains(t, err.Error(), CodeNotFound)
	assert.Contains(t, err.Error(), "user not found")

	wrapped := NewInternal(errors.New("boom"))
	assert.Contains(t, wrapped.Error(), "boom")
}

func TestAppError_Unwrap(t *testing.T) {
	cause := errors.New("connection refused")
	err := NewUnavailable("postgres", cause)

	assert.True(t, errors.Is(err, cause))

	var appErr *AppError
	assert.True(t, errors.As(fmt.Errorf("query: %w", err), &appErr))
	assert.Equal(t, CodeUnavailable, appErr.Code)
}

func TestAppError_HTTPStatus(t *testing.T) {
	tests := []struct {
		err    *AppError
		status int
	}{
		{NewNotFound("task", "x"), http.StatusNotFound},
		{NewConflict("email taken"), http.StatusConflict},
		{NewDuplicate("user", "email", "a@b.c"), http.StatusConflict},
		{NewValidation("bad input"), http.StatusBadRequest},
		{NewUnavailable("redis", nil), http.StatusServiceUnavailable},
		{NewInternal(errors.New("x")), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.status, GetHTTPStatus(tt.err), tt.err.Code)
	}

	assert.Equal(t, http.StatusInternalServerError, GetHTTPStatus(errors.New("plain")))
}

func TestAppError_Helpers(t *testing.T) {
	assert.True(t, IsNotFound(NewNotFound("user", "1")))
	assert.False(t, IsNotFound(NewConflict("x")))

	assert.True(t, IsConflict(NewConflict("x")))
	assert.True(t, IsConflict(NewDuplicate("user", "email", "e")))
	assert.False(t, IsConflict(NewValidation("x")))

	assert.True(t, IsUnavailable(NewUnavailable("postgres", nil)))
	assert.True(t, IsRetryable(NewUnavailable("postgres", nil)))
	assert.False(t, IsRetryable(NewNotFound("user", "1")))
}

func TestAppError_WithDetail(t *testing.T) {
	err := NewValidation("title is required").
		WithDetail("field", "title")

	assert.Equal(t, "title", err.Details["field"])
}

func TestAppError_WrappedThroughChain(t *testing.T) {
	inner := NewNotFound("task", "abc")
	outer := fmt.Errorf("get task: %w", inner)

	assert.True(t, IsNotFound(outer))
	appErr, ok := AsAppError(outer)
	assert.True(t, ok)
	assert.Equal(t, CodeNotFound, appErr.Code)
}
