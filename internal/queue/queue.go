// Package queue runs background jobs stored in postgres. Delivery is
// at-least-once: a job whose worker dies is handed out again once its lock is
// older than the visibility timeout, so handlers must be idempotent.
package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/dom/sleeplog/internal/domain"
	"github.com/dom/sleeplog/internal/metrics"
	"github.com/dom/sleeplog/internal/repository"
	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// Queue enqueues jobs.
type Queue struct {
	repo        repository.JobRepository
	maxAttempts int
	now         func() time.Time
}

func New(repo repository.JobRepository, maxAttempts int) *Queue {
	return &Queue{
		repo:        repo,
		maxAttempts: maxAttempts,
		now:         time.Now,
	}
}

// NewJob builds a pending job of the given kind, runnable now, without
// storing it. Callers that must commit the job together with their own write
// hand it to the repository inside that write's transaction.
func (q *Queue) NewJob(kind string, payload any) (*domain.Job, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("encode %s payload: %w", kind, err)
	}
	return &domain.Job{
		ID:          uuid.New(),
		Kind:        kind,
		Payload:     datatypes.JSON(raw),
		Status:      domain.JobStatusPending,
		MaxAttempts: q.maxAttempts,
		RunAt:       q.now(),
	}, nil
}

// Enqueue stores payload as a pending job of the given kind, runnable now.
func (q *Queue) Enqueue(ctx context.Context, kind string, payload any) error {
	job, err := q.NewJob(kind, payload)
	if err != nil {
		metrics.JobsEnqueued.WithLabelValues(kind, "error").Inc()
		return err
	}
	if err := q.repo.Enqueue(ctx, job); err != nil {
		metrics.JobsEnqueued.WithLabelValues(kind, "error").Inc()
		return fmt.Errorf("enqueue %s: %w", kind, err)
	}

	metrics.JobsEnqueued.WithLabelValues(kind, "ok").Inc()
	return nil
}

// Decode unmarshals a job payload.
func Decode[T any](job *domain.Job) (T, error) {
	var v T
	if err := json.Unmarshal(job.Payload, &v); err != nil {
		return v, fmt.Errorf("decode %s payload: %w", job.Kind, err)
	}
	return v, nil
}
