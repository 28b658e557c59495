package appctx

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWithTrace(t *testing.T) {
	ctx := context.Background()
	assert.Nil(t, GetTrace(ctx))

	trace := NewTraceContext()
	ctx = WithTrace(ctx, trace)

	got := GetTrace(ctx)
	require.NotNil(t, got)
	assert.Equal(t, trace.TraceID, got.TraceID)
	assert.Equal(t, trace.RequestID, got.RequestID)
}

func TestGetTraceID(t *testing.T) {
	trace := NewTraceContext()
	ctx := WithTrace(context.Background(), trace)
	assert.Equal(t, trace.TraceID, GetTraceID(ctx))

	// Without a stamped trace a fresh ID is generated per call.
	a := GetTraceID(context.Background())
	b := GetTraceID(context.Background())
	assert.NotEmpty(t, a)
	assert.NotEqual(t, a, b)
}

func TestGetRequestID(t *testing.T) {
	trace := NewTraceContext()
	ctx := WithTrace(context.Background(), trace)
	assert.Equal(t, trace.RequestID, GetRequestID(ctx))

	assert.Empty(t, GetRequestID(context.Background()))
}

func TestNewTraceContext(t *testing.T) {
	trace := NewTraceContext()
	assert.NotEmpty(t, trace.TraceID)
	assert.NotEmpty(t, trace.RequestID)
	assert.Len(t, trace.SpanID, 16)
}
