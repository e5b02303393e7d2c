package service

import (
	"context"
	"fmt"
	"slices"
	"time"

	"github.com/dom/sleeplog/internal/cache"
	"github.com/dom/sleeplog/internal/domain"
	"github.com/dom/sleeplog/internal/queue"
	"github.com/dom/sleeplog/internal/repository"
	"github.com/dom/sleeplog/internal/telemetry"
	"github.com/dom/sleeplog/internal/websocket"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/attribute"
)

// AggregationService folds completed sessions into per-user weekly buckets.
// Tasks are delivered at least once; folding the same session twice leaves
// the bucket unchanged.
type AggregationService struct {
	store    *cache.Store
	follows  repository.FollowRepository
	notifier Notifier
	ttl      time.Duration
}

func NewAggregationService(store *cache.Store, follows repository.FollowRepository, notifier Notifier, ttl time.Duration) *AggregationService {
	return &AggregationService{
		store:    store,
		follows:  follows,
		notifier: notifier,
		ttl:      ttl,
	}
}

// Handle is the queue handler for domain.AggregationTaskKind jobs.
func (s *AggregationService) Handle(ctx context.Context, job *domain.Job) error {
	task, err := queue.Decode[domain.AggregationTask](job)
	if err != nil {
		return err
	}
	return s.Aggregate(ctx, task)
}

// Aggregate upserts the task's session into the bucket of the week its
// clock-in falls in. The read-modify-write is atomic in the cache backend.
func (s *AggregationService) Aggregate(ctx context.Context, task domain.AggregationTask) error {
	ctx, span := telemetry.StartSpan(ctx, "AggregationService.Aggregate")
	defer span.End()

	if task.UserID == uuid.Nil || task.Session.ID == uuid.Nil {
		return fmt.Errorf("%w: aggregation task needs a user and a session", domain.ErrValidation)
	}

	weekKey := domain.WeekKey(task.Session.ClockInTime)
	logger := zerolog.Ctx(ctx).With().
		Str("user_id", task.UserID.String()).
		Str("session_id", task.Session.ID.String()).
		Str("week", weekKey).
		Logger()
	if task.WeekKey != "" && task.WeekKey != weekKey {
		logger.Warn().Str("task_week", task.WeekKey).Msg("task week differs from clock-in week, using clock-in week")
	}
	span.SetAttributes(
		attribute.String("user.id", task.UserID.String()),
		attribute.String("session.id", task.Session.ID.String()),
		attribute.String("week", weekKey),
	)

	var rank, size int
	key := cache.WeeklyKey(task.UserID, weekKey)
	err := cache.Update(ctx, s.store, key, s.ttl, func(current []domain.WeeklyEntry, _ bool) ([]domain.WeeklyEntry, error) {
		next := domain.UpsertRanked(current, task.Session)
		rank = slices.IndexFunc(next, func(e domain.WeeklyEntry) bool { return e.ID == task.Session.ID }) + 1
		size = len(next)
		return next, nil
	})
	if err != nil {
		span.RecordError(err)
		return fmt.Errorf("update %s: %w", key, err)
	}

	logger.Debug().Int("rank", rank).Int("entries", size).Msg("weekly bucket updated")
	s.notify(ctx, task, weekKey, rank, size)
	return nil
}

// ReadWeek returns a user's bucket, empty when absent.
func (s *AggregationService) ReadWeek(ctx context.Context, userID uuid.UUID, weekKey string) ([]domain.WeeklyEntry, error) {
	return readBucket(ctx, s.store, userID, weekKey)
}

func (s *AggregationService) notify(ctx context.Context, task domain.AggregationTask, weekKey string, rank, size int) {
	if s.notifier == nil {
		return
	}

	s.notifier.Publish([]uuid.UUID{task.UserID}, websocket.MessageTypeSessionAggregated, websocket.SessionAggregatedPayload{
		SessionID: task.Session.ID,
		WeekKey:   weekKey,
		Rank:      rank,
		Entries:   size,
	})

	followers, err := s.follows.FollowerIDs(ctx, task.UserID)
	if err != nil {
		zerolog.Ctx(ctx).Warn().Err(err).Msg("load followers for notification")
		return
	}
	s.notifier.Publish(followers, websocket.MessageTypeFeedUpdated, websocket.FeedUpdatedPayload{
		UserID:    task.UserID,
		WeekKey:   weekKey,
		SessionID: task.Session.ID,
		Duration:  task.Session.Duration,
	})
}
