// Package invalidation maps entity mutations onto the cache keys they
// could have made stale. Key layout: {prefix}:{id} for single records and
// {prefix}:{id}:{hash-of-options} for parameterized list entries, so a
// prefix sweep can clear every list variant for a record.
package invalidation

import (
	"taskhub/internal/core/id"
	"taskhub/pkg/cache"
)

const (
	userPrefix       = "user"
	userListPrefix   = "users"
	taskPrefix       = "task"
	taskListPrefix   = "tasks"
	ownerItemsPrefix = "owner_items"
	ownerStatsPrefix = "item_stats"
)

// UserKey is the single-record cache key for a user.
func UserKey(userID id.ID) string {
	return cache.Key(userPrefix, userID.String())
}

// UserListKey is the parameterized key for a page of users.
func UserListKey(opts any) string {
	return cache.Key(userListPrefix, cache.HashOptions(opts))
}

// TaskKey is the single-record cache key for a task.
func TaskKey(taskID id.ID) string {
	return cache.Key(taskPrefix, taskID.String())
}

// TaskListKey is the parameterized key for a page of tasks of the given
// kind ("all", "unassigned", "overdue", "status:DONE", ...).
func TaskListKey(kind string, opts any) string {
	return cache.Key(taskListPrefix, kind, cache.HashOptions(opts))
}

// OwnerItemsKey is the parameterized key for one owner's task page.
func OwnerItemsKey(ownerID id.ID, opts any) string {
	return cache.Key(ownerItemsPrefix, ownerID.String(), cache.HashOptions(opts))
}

// OwnerStatsKey is the statistics key for one owner.
func OwnerStatsKey(ownerID id.ID) string {
	return cache.Key(ownerStatsPrefix, ownerID.String())
}

// Sweep prefixes. Each ends with the separator so a sweep cannot match an
// unrelated prefix sharing the same leading characters.

func userListSweepPrefix() string {
	return userListPrefix + cache.Separator
}

func taskListSweepPrefix() string {
	return taskListPrefix + cache.Separator
}

func ownerItemsSweepPrefix(ownerID id.ID) string {
	return cache.Key(ownerItemsPrefix, ownerID.String()) + cache.Separator
}
