package user

import (
	"context"
	"time"

	"taskhub/internal/core/apperror"
	"taskhub/internal/core/id"
	"taskhub/internal/domain"
	"taskhub/internal/domain/invalidation"
	"taskhub/pkg/cache"
)

// Service provides business logic for users, composing the repository
// with the cache-aside layer. Reads go through getOrSet with the
// repository as the authoritative producer; every mutation writes to the
// store first, then lets the coordinator purge affected cache entries.
type Service struct {
	repo  Repository
	cache *cache.Service
	inval *invalidation.Coordinator
	ttl   time.Duration
}

// ServiceConfig configures the user service.
type ServiceConfig struct {
	Repo        Repository
	Cache       *cache.Service
	Invalidator *invalidation.Coordinator

	// CacheTTL bounds staleness of cached reads; 0 uses the cache default.
	CacheTTL time.Duration
}

// NewService creates a user service.
func NewService(cfg ServiceConfig) *Service {
	return &Service{
		repo:  cfg.Repo,
		cache: cfg.Cache,
		inval: cfg.Invalidator,
		ttl:   cfg.CacheTTL,
	}
}

// CreateInput describes a new account. PasswordHash arrives pre-hashed;
// credential handling lives at the boundary.
type CreateInput struct {
	Email        string `json:"email"`
	Name         string `json:"name"`
	Role         Role   `json:"role,omitempty"`
	PasswordHash string `json:"-"`
}

// Create registers a new user. Email uniqueness is checked against live
// rows; the store's partial unique index backs the same rule, surfacing
// DUPLICATE_ENTRY if a concurrent create wins the race.
func (s *Service) Create(ctx context.Context, in CreateInput) (*User, error) {
	role := in.Role
	if role == "" {
		role = RoleMember
	}

	u := New(in.Email, in.Name, role)
	u.PasswordHash = in.PasswordHash
	if err := u.Validate(ctx); err != nil {
		return nil, err
	}

	taken, err := s.repo.ExistsByEmail(ctx, u.Email, id.Nil())
	if err != nil {
		return nil, err
	}
	if taken {
		return nil, apperror.NewDuplicate("user", "email", u.Email)
	}

	created, err := s.repo.Create(ctx, u)
	if err != nil {
		return nil, err
	}

	s.inval.UserMutated(ctx, created.ID)
	return created, nil
}

// GetByID retrieves a user, cache-aside.
func (s *Service) GetByID(ctx context.Context, userID id.ID) (*User, error) {
	return cache.GetOrSet(ctx, s.cache, invalidation.UserKey(userID), s.ttl,
		func(ctx context.Context) (*User, error) {
			return s.repo.FindByID(ctx, userID)
		})
}

// GetByEmail retrieves a user by email. Always an authoritative store
// read: email-keyed entries would need their own invalidation path on
// email changes, which is not worth the staleness risk.
func (s *Service) GetByEmail(ctx context.Context, email string) (*User, error) {
	return s.repo.FindByEmail(ctx, email)
}

// List retrieves a page of users, cache-aside per normalized options.
func (s *Service) List(ctx context.Context, opts domain.ListOptions) (domain.Page[*User], error) {
	opts = opts.Normalize()
	return cache.GetOrSet(ctx, s.cache, invalidation.UserListKey(opts), s.ttl,
		func(ctx context.Context) (domain.Page[*User], error) {
			return s.repo.List(ctx, opts)
		})
}

// Update applies a partial update and invalidates the user's cache entries.
func (s *Service) Update(ctx context.Context, userID id.ID, in UpdateInput) (*User, error) {
	if err := in.Validate(ctx); err != nil {
		return nil, err
	}

	if in.Email != nil {
		taken, err := s.repo.ExistsByEmail(ctx, *in.Email, userID)
		if err != nil {
			return nil, err
		}
		if taken {
			return nil, apperror.NewDuplicate("user", "email", NormalizeEmail(*in.Email))
		}
	}

	patch := in.Patch()
	if len(patch) == 0 {
		return s.repo.FindByID(ctx, userID)
	}

	updated, err := s.repo.Update(ctx, userID, patch)
	if err != nil {
		return nil, err
	}

	s.inval.UserMutated(ctx, userID)
	return updated, nil
}

// SoftDelete marks the user deleted and purges its cache entries.
func (s *Service) SoftDelete(ctx context.Context, userID id.ID) error {
	affected, err := s.repo.SoftDelete(ctx, userID)
	if err != nil {
		return err
	}
	if !affected {
		return apperror.NewNotFound("user", userID.String())
	}

	s.inval.UserMutated(ctx, userID)
	return nil
}

// Restore clears the user's soft-delete marker.
func (s *Service) Restore(ctx context.Context, userID id.ID) error {
	affected, err := s.repo.Restore(ctx, userID)
	if err != nil {
		return err
	}
	if !affected {
		return apperror.NewNotFound("user", userID.String()).
			WithDetail("reason", "not soft-deleted")
	}

	s.inval.UserMutated(ctx, userID)
	return nil
}

// HardDelete physically removes the user. Administrative only.
func (s *Service) HardDelete(ctx context.Context, userID id.ID) error {
	affected, err := s.repo.HardDelete(ctx, userID)
	if err != nil {
		return err
	}
	if !affected {
		return apperror.NewNotFound("user", userID.String())
	}

	s.inval.UserMutated(ctx, userID)
	return nil
}

// Count returns the number of live users matching the options.
func (s *Service) Count(ctx context.Context, opts domain.ListOptions) (int64, error) {
	return s.repo.Count(ctx, opts)
}

// Exists checks whether a live user exists.
func (s *Service) Exists(ctx context.Context, userID id.ID) (bool, error) {
	return s.repo.Exists(ctx, userID)
}
