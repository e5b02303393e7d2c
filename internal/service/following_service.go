package service

import (
	"context"
	"errors"
	"time"

	"github.com/dom/sleeplog/internal/cache"
	"github.com/dom/sleeplog/internal/domain"
	"github.com/dom/sleeplog/internal/repository"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// FollowingService manages follow edges and the cached view of the graph.
// Every edge change drops the cached graph keys of both users before
// returning, so the next read on either side is recomputed.
type FollowingService struct {
	follows repository.FollowRepository
	users   repository.UserRepository
	store   *cache.Store
	ttl     time.Duration
}

func NewFollowingService(follows repository.FollowRepository, users repository.UserRepository, store *cache.Store, ttl time.Duration) *FollowingService {
	return &FollowingService{
		follows: follows,
		users:   users,
		store:   store,
		ttl:     ttl,
	}
}

// Follow adds the edge follower -> followed. It reports false without an
// error for a self-follow or an existing edge, and returns
// domain.ErrUserNotFound when followed does not exist.
func (s *FollowingService) Follow(ctx context.Context, followerID, followedID uuid.UUID) (bool, error) {
	if followerID == followedID {
		return false, nil
	}

	if _, err := s.users.GetByID(ctx, followedID); err != nil {
		return false, err
	}

	err := s.follows.Create(ctx, followerID, followedID)
	switch {
	case errors.Is(err, domain.ErrAlreadyFollowing), errors.Is(err, domain.ErrCannotFollowSelf):
		return false, nil
	case err != nil:
		return false, err
	}

	s.invalidate(ctx, followerID, followedID)
	return true, nil
}

// Unfollow removes the edge. It reports false when there was none.
func (s *FollowingService) Unfollow(ctx context.Context, followerID, followedID uuid.UUID) (bool, error) {
	removed, err := s.follows.Delete(ctx, followerID, followedID)
	if err != nil || !removed {
		return false, err
	}

	s.invalidate(ctx, followerID, followedID)
	return true, nil
}

func (s *FollowingService) IsFollowing(ctx context.Context, followerID, followedID uuid.UUID) (bool, error) {
	return s.follows.Exists(ctx, followerID, followedID)
}

// FollowingIDs returns the ids userID follows, from cache when present.
func (s *FollowingService) FollowingIDs(ctx context.Context, userID uuid.UUID) ([]uuid.UUID, error) {
	key := cache.FollowingIDsKey(userID)

	var ids []uuid.UUID
	err := s.store.Get(ctx, key, &ids)
	if err == nil {
		return ids, nil
	}
	if !errors.Is(err, cache.ErrMiss) {
		degraded(ctx, "following_ids_get", err)
	}

	ids, err = s.follows.FollowingIDs(ctx, userID)
	if err != nil {
		return nil, err
	}
	if ids == nil {
		ids = []uuid.UUID{}
	}
	if err := s.store.Set(ctx, key, ids, s.ttl); err != nil {
		degraded(ctx, "following_ids_set", err)
	}
	return ids, nil
}

// FollowingCount is derived from the cached id list.
func (s *FollowingService) FollowingCount(ctx context.Context, userID uuid.UUID) (int64, error) {
	ids, err := s.FollowingIDs(ctx, userID)
	if err != nil {
		return 0, err
	}
	return int64(len(ids)), nil
}

func (s *FollowingService) FollowersCount(ctx context.Context, userID uuid.UUID) (int64, error) {
	key := cache.FollowersCountKey(userID)

	var count int64
	err := s.store.Get(ctx, key, &count)
	if err == nil {
		return count, nil
	}
	if !errors.Is(err, cache.ErrMiss) {
		degraded(ctx, "followers_count_get", err)
	}

	count, err = s.follows.CountFollowers(ctx, userID)
	if err != nil {
		return 0, err
	}
	if err := s.store.Set(ctx, key, count, s.ttl); err != nil {
		degraded(ctx, "followers_count_set", err)
	}
	return count, nil
}

func (s *FollowingService) invalidate(ctx context.Context, userIDs ...uuid.UUID) {
	for _, id := range userIDs {
		if err := s.store.DeletePrefix(ctx, cache.GraphPrefix(id)); err != nil {
			// The stale entry expires with the graph TTL.
			degraded(ctx, "graph_invalidate", err)
			zerolog.Ctx(ctx).Error().Err(err).Str("user_id", id.String()).Msg("invalidate graph cache")
		}
	}
}
