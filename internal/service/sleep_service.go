package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dom/sleeplog/internal/domain"
	"github.com/dom/sleeplog/internal/metrics"
	"github.com/dom/sleeplog/internal/repository"
	"github.com/dom/sleeplog/internal/telemetry"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// SleepService drives the open/closed state machine of sleep sessions.
// Correctness under concurrent requests rests on the store: the partial
// unique index admits one open session per user, and CloseIfOpen admits one
// close per session.
type SleepService struct {
	sessions repository.SleepSessionRepository
	cache    *SessionCache
	jobs     JobFactory
	now      func() time.Time
}

func NewSleepService(sessions repository.SleepSessionRepository, cache *SessionCache, jobs JobFactory) *SleepService {
	return &SleepService{
		sessions: sessions,
		cache:    cache,
		jobs:     jobs,
		now:      time.Now,
	}
}

// SetClock replaces the time source. Tests use it to control durations.
func (s *SleepService) SetClock(now func() time.Time) {
	s.now = now
}

// Timestamps are stored at postgres precision so a session read back from
// the store compares equal to the one returned here.
func (s *SleepService) timestamp() time.Time {
	return s.now().UTC().Truncate(time.Microsecond)
}

// ClockIn opens a new session starting now. It fails with
// domain.ErrSessionAlreadyOpen while the user has an open session.
func (s *SleepService) ClockIn(ctx context.Context, userID uuid.UUID) (_ *domain.SleepSession, err error) {
	ctx, span := telemetry.StartSpan(ctx, "SleepService.ClockIn")
	span.SetAttributes(attribute.String("user.id", userID.String()))
	defer func() { finish(span, "clock_in", err) }()

	if userID == uuid.Nil {
		return nil, fmt.Errorf("%w: user id is required", domain.ErrValidation)
	}

	now := s.timestamp()
	session := &domain.SleepSession{
		ID:          uuid.New(),
		UserID:      userID,
		ClockInTime: now,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := session.Validate(); err != nil {
		return nil, err
	}

	if err := s.sessions.Create(ctx, session); err != nil {
		return nil, err
	}

	s.cache.Remember(ctx, session)

	zerolog.Ctx(ctx).Info().
		Str("session_id", session.ID.String()).
		Str("user_id", userID.String()).
		Msg("clocked in")
	return session, nil
}

// ClockOut closes the user's current session and queues its weekly
// aggregation in the same transaction. The candidate is the cached open session when the store
// confirms it, otherwise the user's most recent session.
func (s *SleepService) ClockOut(ctx context.Context, userID uuid.UUID) (_ *domain.SleepSession, err error) {
	ctx, span := telemetry.StartSpan(ctx, "SleepService.ClockOut")
	span.SetAttributes(attribute.String("user.id", userID.String()))
	defer func() { finish(span, "clock_out", err) }()

	candidate, err := s.candidate(ctx, userID)
	if err != nil {
		if errors.Is(err, domain.ErrSessionNotFound) {
			return nil, domain.ErrNoSessionToClose
		}
		return nil, err
	}
	span.SetAttributes(attribute.String("session.id", candidate.ID.String()))

	if candidate.Completed() {
		return nil, domain.ErrSessionCompleted
	}

	now := s.timestamp()
	closed, err := candidate.CloseAt(now)
	if err != nil {
		return nil, err
	}

	job, err := s.aggregationJob(closed)
	if err != nil {
		return nil, err
	}

	won, err := s.sessions.CloseIfOpenWithJob(ctx, closed.ID, *closed.ClockOutTime, closed.Duration, job)
	if err != nil {
		return nil, err
	}
	if !won {
		// A concurrent request closed it first.
		return nil, domain.ErrSessionCompleted
	}
	closed.UpdatedAt = now
	metrics.JobsEnqueued.WithLabelValues(job.Kind, "ok").Inc()

	s.cache.Forget(ctx, userID, closed.ID)

	zerolog.Ctx(ctx).Info().
		Str("session_id", closed.ID.String()).
		Str("user_id", userID.String()).
		Int64("duration", closed.Duration).
		Msg("clocked out")
	return closed, nil
}

func (s *SleepService) candidate(ctx context.Context, userID uuid.UUID) (*domain.SleepSession, error) {
	if id, ok := s.cache.Lookup(ctx, userID); ok {
		session, err := s.sessions.GetByID(ctx, id)
		switch {
		case err == nil && session.UserID == userID && !session.Completed():
			return session, nil
		case err != nil && !errors.Is(err, domain.ErrSessionNotFound):
			return nil, err
		}
	}
	return s.sessions.FindLatestByUser(ctx, userID)
}

// aggregationJob is committed with the close itself, so a closed session
// always has its aggregation queued.
func (s *SleepService) aggregationJob(closed *domain.SleepSession) (*domain.Job, error) {
	task, err := domain.NewAggregationTask(closed)
	if err != nil {
		return nil, err
	}
	return s.jobs.NewJob(domain.AggregationTaskKind, task)
}

// List returns the user's sessions, newest first.
func (s *SleepService) List(ctx context.Context, userID uuid.UUID, limit, offset int) ([]*domain.SleepSession, error) {
	return s.sessions.ListByUser(ctx, userID, limit, offset)
}

func finish(span trace.Span, operation string, err error) {
	metrics.ClockOperations.WithLabelValues(operation, resultLabel(err)).Inc()
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}

func resultLabel(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, domain.ErrValidation):
		return "invalid"
	case errors.Is(err, domain.ErrNotFound):
		return "not_found"
	case errors.Is(err, domain.ErrConflict):
		return "conflict"
	default:
		return "error"
	}
}
