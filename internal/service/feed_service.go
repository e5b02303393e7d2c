package service

import (
	"context"
	"errors"
	"slices"
	"time"

	"github.com/dom/sleeplog/internal/cache"
	"github.com/dom/sleeplog/internal/domain"
	"github.com/dom/sleeplog/internal/repository"
	"github.com/dom/sleeplog/internal/telemetry"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/attribute"
)

// feedBatchSize bounds how many followed users are resolved per query.
const feedBatchSize = 100

type Feed struct {
	WeekKey string
	Entries []domain.FeedEntry
}

// FeedService merges the weekly buckets of followed users. It reads only
// the cache; a session shows up once its aggregation task has run.
type FeedService struct {
	following *FollowingService
	users     repository.UserRepository
	store     *cache.Store
	now       func() time.Time
}

func NewFeedService(following *FollowingService, users repository.UserRepository, store *cache.Store) *FeedService {
	return &FeedService{
		following: following,
		users:     users,
		store:     store,
		now:       time.Now,
	}
}

func (s *FeedService) SetClock(now func() time.Time) {
	s.now = now
}

// PreviousWeek returns the feed for the calendar week before the current one.
func (s *FeedService) PreviousWeek(ctx context.Context, userID uuid.UUID) (*Feed, error) {
	return s.ForWeek(ctx, userID, domain.PreviousWeekKey(s.now()))
}

// ForWeek returns every followed user's entries for weekKey, sorted by
// duration descending.
func (s *FeedService) ForWeek(ctx context.Context, userID uuid.UUID, weekKey string) (*Feed, error) {
	ctx, span := telemetry.StartSpan(ctx, "FeedService.ForWeek")
	defer span.End()

	ids, err := s.following.FollowingIDs(ctx, userID)
	if err != nil {
		return nil, err
	}
	span.SetAttributes(
		attribute.String("week", weekKey),
		attribute.Int("following", len(ids)),
	)

	entries := []domain.FeedEntry{}
	for batch := range slices.Chunk(ids, feedBatchSize) {
		users, err := s.users.GetByIDs(ctx, batch)
		if err != nil {
			return nil, err
		}

		for _, u := range users {
			bucket, err := readBucket(ctx, s.store, u.ID, weekKey)
			if err != nil {
				zerolog.Ctx(ctx).Warn().Err(err).
					Str("user_id", u.ID.String()).
					Str("week", weekKey).
					Msg("weekly bucket unreadable, skipping")
				continue
			}
			summary := u.Summary()
			for _, e := range bucket {
				entries = append(entries, domain.FeedEntry{WeeklyEntry: e, User: summary})
			}
		}
	}

	domain.SortFeed(entries)
	return &Feed{WeekKey: weekKey, Entries: entries}, nil
}

// readBucket treats a miss as an empty bucket.
func readBucket(ctx context.Context, store *cache.Store, userID uuid.UUID, weekKey string) ([]domain.WeeklyEntry, error) {
	var bucket []domain.WeeklyEntry
	err := store.Get(ctx, cache.WeeklyKey(userID, weekKey), &bucket)
	if errors.Is(err, cache.ErrMiss) {
		return nil, nil
	}
	if err != nil {
		degraded(ctx, "weekly_get", err)
		return nil, err
	}
	return bucket, nil
}
