package task

import (
	"context"
	"time"

	"taskhub/internal/core/apperror"
	"taskhub/internal/core/id"
	"taskhub/internal/domain"
	"taskhub/internal/domain/invalidation"
	"taskhub/internal/domain/user"
	"taskhub/pkg/cache"
)

// Service provides business logic for tasks. Reads are cache-aside with
// the repository as producer; every mutation commits to the store first,
// then the coordinator purges the task's entry, the task list pages and
// the owner-scoped entries of every owner the mutation could affect —
// both the previous and the new owner when an assignment changes.
type Service struct {
	repo  Repository
	users user.Repository
	cache *cache.Service
	inval *invalidation.Coordinator
	ttl   time.Duration
}

// ServiceConfig configures the task service.
type ServiceConfig struct {
	Repo        Repository
	Users       user.Repository
	Cache       *cache.Service
	Invalidator *invalidation.Coordinator

	// CacheTTL bounds staleness of cached reads; 0 uses the cache default.
	CacheTTL time.Duration
}

// NewService creates a task service.
func NewService(cfg ServiceConfig) *Service {
	return &Service{
		repo:  cfg.Repo,
		users: cfg.Users,
		cache: cfg.Cache,
		inval: cfg.Invalidator,
		ttl:   cfg.CacheTTL,
	}
}

// CreateInput describes a new task.
type CreateInput struct {
	Title       string     `json:"title"`
	Description string     `json:"description,omitempty"`
	Priority    Priority   `json:"priority,omitempty"`
	DueDate     *time.Time `json:"dueDate,omitempty"`
	OwnerID     *id.ID     `json:"ownerId,omitempty"`
	CreatorID   id.ID      `json:"creatorId"`
}

// Create inserts a new task. The creator must reference an existing live
// user at creation time; the reference is not re-validated later, so a
// subsequently deleted creator leaves an accepted dangling reference.
func (s *Service) Create(ctx context.Context, in CreateInput) (*Task, error) {
	t := New(in.Title, in.Description, in.CreatorID)
	if in.Priority != "" {
		t.Priority = in.Priority
	}
	t.DueDate = in.DueDate
	t.OwnerID = in.OwnerID
	if err := t.Validate(ctx); err != nil {
		return nil, err
	}

	if err := s.ensureUserExists(ctx, in.CreatorID); err != nil {
		return nil, err
	}
	if in.OwnerID != nil {
		if err := s.ensureUserExists(ctx, *in.OwnerID); err != nil {
			return nil, err
		}
	}

	created, err := s.repo.Create(ctx, t)
	if err != nil {
		return nil, err
	}

	s.inval.TaskMutated(ctx, created.ID, created.OwnerID)
	return created, nil
}

// GetByID retrieves a task, cache-aside.
func (s *Service) GetByID(ctx context.Context, taskID id.ID) (*Task, error) {
	return cache.GetOrSet(ctx, s.cache, invalidation.TaskKey(taskID), s.ttl,
		func(ctx context.Context) (*Task, error) {
			return s.repo.FindByID(ctx, taskID)
		})
}

// List retrieves a page of tasks, cache-aside per normalized options.
func (s *Service) List(ctx context.Context, opts domain.ListOptions) (domain.Page[*Task], error) {
	opts = opts.Normalize()
	page, err := cache.GetOrSet(ctx, s.cache, invalidation.TaskListKey("all", opts), s.ttl,
		func(ctx context.Context) (domain.Page[*Task], error) {
			return s.repo.List(ctx, opts)
		})
	if err != nil {
		return page, err
	}
	return page, s.attachRelations(ctx, page.Items, opts)
}

// FindByOwner retrieves the owner's tasks, cached under the owner's
// prefix so a single sweep clears every page/filter variant.
func (s *Service) FindByOwner(ctx context.Context, ownerID id.ID, opts domain.ListOptions) (domain.Page[*Task], error) {
	opts = opts.Normalize()
	page, err := cache.GetOrSet(ctx, s.cache, invalidation.OwnerItemsKey(ownerID, opts), s.ttl,
		func(ctx context.Context) (domain.Page[*Task], error) {
			return s.repo.FindByOwner(ctx, ownerID, opts)
		})
	if err != nil {
		return page, err
	}
	return page, s.attachRelations(ctx, page.Items, opts)
}

// FindUnassigned retrieves tasks without an owner.
func (s *Service) FindUnassigned(ctx context.Context, opts domain.ListOptions) (domain.Page[*Task], error) {
	opts = opts.Normalize()
	page, err := cache.GetOrSet(ctx, s.cache, invalidation.TaskListKey("unassigned", opts), s.ttl,
		func(ctx context.Context) (domain.Page[*Task], error) {
			return s.repo.FindUnassigned(ctx, opts)
		})
	if err != nil {
		return page, err
	}
	return page, s.attachRelations(ctx, page.Items, opts)
}

// FindByStatus retrieves tasks in the given lifecycle state.
func (s *Service) FindByStatus(ctx context.Context, status Status, opts domain.ListOptions) (domain.Page[*Task], error) {
	if !status.Valid() {
		return domain.Page[*Task]{}, apperror.NewValidation("unknown status").
			WithDetail("value", string(status))
	}
	opts = opts.Normalize()
	page, err := cache.GetOrSet(ctx, s.cache, invalidation.TaskListKey("status:"+string(status), opts), s.ttl,
		func(ctx context.Context) (domain.Page[*Task], error) {
			return s.repo.FindByStatus(ctx, status, opts)
		})
	if err != nil {
		return page, err
	}
	return page, s.attachRelations(ctx, page.Items, opts)
}

// FindOverdue retrieves active tasks past their due date. The result is
// time-dependent, so staleness is bounded by the cache TTL.
func (s *Service) FindOverdue(ctx context.Context, opts domain.ListOptions) (domain.Page[*Task], error) {
	opts = opts.Normalize()
	page, err := cache.GetOrSet(ctx, s.cache, invalidation.TaskListKey("overdue", opts), s.ttl,
		func(ctx context.Context) (domain.Page[*Task], error) {
			return s.repo.FindOverdue(ctx, opts)
		})
	if err != nil {
		return page, err
	}
	return page, s.attachRelations(ctx, page.Items, opts)
}

// attachRelations populates Owner/Creator on each task per opts.Expand,
// batch-loading the referenced users in one query per page. It runs after
// cache retrieval: cached pages never embed user records, so user
// mutations cannot leave stale users inside task entries, and the
// attached users are always an authoritative read. A dangling reference
// (deleted user) leaves the field nil.
func (s *Service) attachRelations(ctx context.Context, items []*Task, opts domain.ListOptions) error {
	wantOwner := opts.Expands(ExpandOwner)
	wantCreator := opts.Expands(ExpandCreator)
	if (!wantOwner && !wantCreator) || len(items) == 0 {
		return nil
	}

	idSet := make(map[id.ID]bool)
	for _, t := range items {
		if wantOwner && t.OwnerID != nil {
			idSet[*t.OwnerID] = true
		}
		if wantCreator {
			idSet[t.CreatorID] = true
		}
	}
	if len(idSet) == 0 {
		return nil
	}

	ids := make([]id.ID, 0, len(idSet))
	for userID := range idSet {
		ids = append(ids, userID)
	}

	found, err := s.users.FindByIDs(ctx, ids)
	if err != nil {
		return err
	}
	byID := make(map[id.ID]*user.User, len(found))
	for _, u := range found {
		byID[u.ID] = u
	}

	for _, t := range items {
		if wantOwner && t.OwnerID != nil {
			t.Owner = byID[*t.OwnerID]
		}
		if wantCreator {
			t.Creator = byID[t.CreatorID]
		}
	}
	return nil
}

// OwnerStats aggregates the owner's live tasks, cache-aside.
func (s *Service) OwnerStats(ctx context.Context, ownerID id.ID) (Stats, error) {
	return cache.GetOrSet(ctx, s.cache, invalidation.OwnerStatsKey(ownerID), s.ttl,
		func(ctx context.Context) (Stats, error) {
			return s.repo.OwnerStats(ctx, ownerID)
		})
}

// Update applies a partial update. The pre-mutation row is loaded first so
// invalidation can see the owner the cached entries belong to.
func (s *Service) Update(ctx context.Context, taskID id.ID, in UpdateInput) (*Task, error) {
	if err := in.Validate(ctx); err != nil {
		return nil, err
	}

	current, err := s.repo.FindByID(ctx, taskID)
	if err != nil {
		return nil, err
	}

	patch := in.Patch()
	if len(patch) == 0 {
		return current, nil
	}

	updated, err := s.repo.Update(ctx, taskID, patch)
	if err != nil {
		return nil, err
	}

	s.inval.TaskMutated(ctx, taskID, current.OwnerID, updated.OwnerID)
	return updated, nil
}

// UpdateStatus moves the task to the given lifecycle state. Backward and
// skipped transitions are permitted from any non-archived state.
func (s *Service) UpdateStatus(ctx context.Context, taskID id.ID, status Status) (*Task, error) {
	if !status.Valid() {
		return nil, apperror.NewValidation("unknown status").
			WithDetail("value", string(status))
	}

	current, err := s.repo.FindByID(ctx, taskID)
	if err != nil {
		return nil, err
	}

	updated, err := s.repo.Update(ctx, taskID, domain.Patch{"status": status})
	if err != nil {
		return nil, err
	}

	s.inval.TaskMutated(ctx, taskID, current.OwnerID)
	return updated, nil
}

// Assign sets the task's owner. Both the previous and the new owner's
// cached lists and statistics are invalidated.
func (s *Service) Assign(ctx context.Context, taskID, ownerID id.ID) (*Task, error) {
	if err := s.ensureUserExists(ctx, ownerID); err != nil {
		return nil, err
	}

	current, err := s.repo.FindByID(ctx, taskID)
	if err != nil {
		return nil, err
	}

	updated, err := s.repo.Update(ctx, taskID, domain.Patch{"owner_id": ownerID})
	if err != nil {
		return nil, err
	}

	s.inval.TaskMutated(ctx, taskID, current.OwnerID, &ownerID)
	return updated, nil
}

// Unassign clears the task's owner.
func (s *Service) Unassign(ctx context.Context, taskID id.ID) (*Task, error) {
	current, err := s.repo.FindByID(ctx, taskID)
	if err != nil {
		return nil, err
	}

	updated, err := s.repo.Update(ctx, taskID, domain.Patch{"owner_id": nil})
	if err != nil {
		return nil, err
	}

	s.inval.TaskMutated(ctx, taskID, current.OwnerID)
	return updated, nil
}

// SoftDelete marks the task deleted and purges its cache entries.
func (s *Service) SoftDelete(ctx context.Context, taskID id.ID) error {
	current, err := s.repo.FindByID(ctx, taskID)
	if err != nil {
		return err
	}

	affected, err := s.repo.SoftDelete(ctx, taskID)
	if err != nil {
		return err
	}
	if !affected {
		return apperror.NewNotFound("task", taskID.String())
	}

	s.inval.TaskMutated(ctx, taskID, current.OwnerID)
	return nil
}

// Restore clears the task's soft-delete marker.
func (s *Service) Restore(ctx context.Context, taskID id.ID) error {
	affected, err := s.repo.Restore(ctx, taskID)
	if err != nil {
		return err
	}
	if !affected {
		return apperror.NewNotFound("task", taskID.String()).
			WithDetail("reason", "not soft-deleted")
	}

	restored, err := s.repo.FindByID(ctx, taskID)
	if err != nil {
		s.inval.TaskMutated(ctx, taskID)
		return nil
	}

	s.inval.TaskMutated(ctx, taskID, restored.OwnerID)
	return nil
}

// HardDelete physically removes the task. Administrative only; bypasses
// soft-delete entirely.
func (s *Service) HardDelete(ctx context.Context, taskID id.ID) error {
	// Best-effort owner lookup before the row disappears; the sweep of
	// task list pages happens regardless.
	var owner *id.ID
	if current, err := s.repo.FindByID(ctx, taskID); err == nil {
		owner = current.OwnerID
	}

	affected, err := s.repo.HardDelete(ctx, taskID)
	if err != nil {
		return err
	}
	if !affected {
		return apperror.NewNotFound("task", taskID.String())
	}

	s.inval.TaskMutated(ctx, taskID, owner)
	return nil
}

func (s *Service) ensureUserExists(ctx context.Context, userID id.ID) error {
	exists, err := s.users.Exists(ctx, userID)
	if err != nil {
		return err
	}
	if !exists {
		return apperror.NewNotFound("user", userID.String())
	}
	return nil
}
