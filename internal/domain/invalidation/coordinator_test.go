package invalidation

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"taskhub/internal/core/id"
	"taskhub/internal/domain"
	"taskhub/pkg/cache"
	"taskhub/pkg/logger"
)

func newTestCoordinator(t *testing.T) (*Coordinator, *cache.Service) {
	t.Helper()
	backend := cache.NewMemoryBackend(time.Minute)
	svc := cache.NewService(backend, logger.Default())
	t.Cleanup(func() { _ = svc.Close() })
	return NewCoordinator(svc, logger.Default()), svc
}

func seed(t *testing.T, svc *cache.Service, keys ...string) {
	t.Helper()
	ctx := context.Background()
	for _, key := range keys {
		require.True(t, svc.SetRaw(ctx, key, "cached", time.Minute))
	}
}

func TestCoordinator_UserMutated(t *testing.T) {
	ctx := context.Background()
	coord, svc := newTestCoordinator(t)

	userID := id.New()
	otherID := id.New()
	opts := domain.ListOptions{Page: 1, Limit: 20}

	seed(t, svc,
		UserKey(userID),
		OwnerStatsKey(userID),
		UserListKey(opts),
		UserListKey(domain.ListOptions{Page: 2, Limit: 20}),
		OwnerItemsKey(userID, opts),
		// Unrelated entries must survive.
		UserKey(otherID),
		OwnerItemsKey(otherID, opts),
		TaskKey(id.New()),
	)

	coord.UserMutated(ctx, userID)

	assert.False(t, svc.Exists(ctx, UserKey(userID)))
	assert.False(t, svc.Exists(ctx, OwnerStatsKey(userID)))
	assert.False(t, svc.Exists(ctx, UserListKey(opts)))
	assert.False(t, svc.Exists(ctx, UserListKey(domain.ListOptions{Page: 2, Limit: 20})))
	assert.False(t, svc.Exists(ctx, OwnerItemsKey(userID, opts)))

	assert.True(t, svc.Exists(ctx, UserKey(otherID)))
	assert.True(t, svc.Exists(ctx, OwnerItemsKey(otherID, opts)))
}

func TestCoordinator_TaskMutated_NoOwner(t *testing.T) {
	ctx := context.Background()
	coord, svc := newTestCoordinator(t)

	taskID := id.New()
	opts := domain.ListOptions{Page: 1, Limit: 20}

	seed(t, svc,
		TaskKey(taskID),
		TaskListKey("all", opts),
		TaskListKey("unassigned", opts),
		TaskListKey("status:DONE", opts),
		UserKey(id.New()),
	)

	coord.TaskMutated(ctx, taskID)

	assert.False(t, svc.Exists(ctx, TaskKey(taskID)))
	assert.False(t, svc.Exists(ctx, TaskListKey("all", opts)))
	assert.False(t, svc.Exists(ctx, TaskListKey("unassigned", opts)))
	assert.False(t, svc.Exists(ctx, TaskListKey("status:DONE", opts)))
}

func TestCoordinator_TaskMutated_BothOwnersOnReassignment(t *testing.T) {
	ctx := context.Background()
	coord, svc := newTestCoordinator(t)

	taskID := id.New()
	oldOwner := id.New()
	newOwner := id.New()
	bystander := id.New()
	opts := domain.ListOptions{Page: 1, Limit: 20}

	seed(t, svc,
		TaskKey(taskID),
		OwnerItemsKey(oldOwner, opts),
		OwnerStatsKey(oldOwner),
		OwnerItemsKey(newOwner, opts),
		OwnerStatsKey(newOwner),
		OwnerItemsKey(bystander, opts),
		OwnerStatsKey(bystander),
	)

	coord.TaskMutated(ctx, taskID, &oldOwner, &newOwner)

	assert.False(t, svc.Exists(ctx, OwnerItemsKey(oldOwner, opts)))
	assert.False(t, svc.Exists(ctx, OwnerStatsKey(oldOwner)))
	assert.False(t, svc.Exists(ctx, OwnerItemsKey(newOwner, opts)))
	assert.False(t, svc.Exists(ctx, OwnerStatsKey(newOwner)))

	assert.True(t, svc.Exists(ctx, OwnerItemsKey(bystander, opts)))
	assert.True(t, svc.Exists(ctx, OwnerStatsKey(bystander)))
}

func TestCoordinator_TaskMutated_DeduplicatesOwners(t *testing.T) {
	ctx := context.Background()
	coord, svc := newTestCoordinator(t)

	taskID := id.New()
	owner := id.New()
	opts := domain.ListOptions{Page: 1, Limit: 20}

	seed(t, svc, OwnerStatsKey(owner), OwnerItemsKey(owner, opts))

	// Same owner before and after the mutation, plus a nil entry.
	coord.TaskMutated(ctx, taskID, &owner, &owner, nil)

	assert.False(t, svc.Exists(ctx, OwnerStatsKey(owner)))
	assert.False(t, svc.Exists(ctx, OwnerItemsKey(owner, opts)))
}

func TestSweepPrefixesEndWithSeparator(t *testing.T) {
	ownerID := id.New()

	assert.Equal(t, "users:", userListSweepPrefix())
	assert.Equal(t, "tasks:", taskListSweepPrefix())
	assert.Equal(t, "owner_items:"+ownerID.String()+":", ownerItemsSweepPrefix(ownerID))

	// "task:{id}" must not be caught by the "tasks:" sweep.
	assert.NotContains(t, TaskKey(ownerID), taskListSweepPrefix())
}
