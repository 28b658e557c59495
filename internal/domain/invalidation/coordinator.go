package invalidation

import (
	"context"

	"taskhub/internal/core/id"
	"taskhub/pkg/cache"
	"taskhub/pkg/logger"
)

// Coordinator purges every cache entry a mutation could have made stale.
// It is invoked after each mutating repository call, once the write has
// committed. Policy bias: when the blast radius is ambiguous, invalidate
// the superset — a spurious miss costs one extra store read, a missed
// invalidation costs a stale read until TTL expiry.
type Coordinator struct {
	cache *cache.Service
	log   *logger.Logger
}

// NewCoordinator creates the coordinator over the cache layer.
func NewCoordinator(c *cache.Service, log *logger.Logger) *Coordinator {
	return &Coordinator{
		cache: c,
		log:   log.WithComponent("invalidation"),
	}
}

// UserMutated clears the user's record entry, every user list page, and
// the owner-scoped task entries keyed by the user's id.
func (c *Coordinator) UserMutated(ctx context.Context, userID id.ID) {
	c.cache.Delete(ctx, UserKey(userID), OwnerStatsKey(userID))
	c.cache.DeleteByPrefix(ctx, userListSweepPrefix())
	c.cache.DeleteByPrefix(ctx, ownerItemsSweepPrefix(userID))
	c.log.Debugw("invalidated user cache", "user_id", userID)
}

// TaskMutated clears the task's record entry and every task list page,
// then clears the owner-scoped entries of each affected owner. Callers
// pass both the pre-mutation and post-mutation owner when an assignment
// changes; nil entries (unassigned) are skipped, duplicates collapsed.
func (c *Coordinator) TaskMutated(ctx context.Context, taskID id.ID, owners ...*id.ID) {
	c.cache.Delete(ctx, TaskKey(taskID))
	c.cache.DeleteByPrefix(ctx, taskListSweepPrefix())

	seen := make(map[id.ID]bool, len(owners))
	for _, owner := range owners {
		if owner == nil || seen[*owner] {
			continue
		}
		seen[*owner] = true
		c.cache.Delete(ctx, OwnerStatsKey(*owner))
		c.cache.DeleteByPrefix(ctx, ownerItemsSweepPrefix(*owner))
	}
	c.log.Debugw("invalidated task cache", "task_id", taskID, "owners", len(seen))
}
