package postgres

import (
	"context"
	"time"

	"github.com/dom/sleeplog/internal/domain"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type jobRepository struct {
	db *gorm.DB
}

func NewJobRepository(db *gorm.DB) *jobRepository {
	return &jobRepository{db: db}
}

func (r *jobRepository) Enqueue(ctx context.Context, job *domain.Job) error {
	return r.db.WithContext(ctx).Create(job).Error
}

// Claim selects runnable rows with FOR UPDATE SKIP LOCKED so concurrent
// workers never claim the same job, then marks them running.
func (r *jobRepository) Claim(ctx context.Context, limit int, staleAfter time.Duration) ([]*domain.Job, error) {
	var jobs []*domain.Job

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		now := time.Now()
		err := tx.
			Clauses(clause.Locking{Strength: "UPDATE", Options: "SKIP LOCKED"}).
			Where("(status = ? AND run_at <= ?) OR (status = ? AND locked_at < ?)",
				domain.JobStatusPending, now,
				domain.JobStatusRunning, now.Add(-staleAfter)).
			Order("run_at ASC").
			Limit(limit).
			Find(&jobs).Error
		if err != nil || len(jobs) == 0 {
			return err
		}

		ids := make([]uuid.UUID, len(jobs))
		for i, j := range jobs {
			ids[i] = j.ID
			j.Status = domain.JobStatusRunning
			j.LockedAt = &now
			j.Attempts++
		}

		return tx.Model(&domain.Job{}).
			Where("id IN ?", ids).
			Updates(map[string]any{
				"status":    domain.JobStatusRunning,
				"locked_at": now,
				"attempts":  gorm.Expr("attempts + 1"),
			}).Error
	})
	if err != nil {
		return nil, err
	}
	return jobs, nil
}

func (r *jobRepository) Complete(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Delete(&domain.Job{}, "id = ?", id).Error
}

func (r *jobRepository) Fail(ctx context.Context, job *domain.Job, cause error, retryAt time.Time) error {
	status := domain.JobStatusPending
	if job.Attempts >= job.MaxAttempts {
		status = domain.JobStatusFailed
	}
	return r.db.WithContext(ctx).
		Model(&domain.Job{}).
		Where("id = ?", job.ID).
		Updates(map[string]any{
			"status":     status,
			"run_at":     retryAt,
			"locked_at":  nil,
			"last_error": cause.Error(),
		}).Error
}

func (r *jobRepository) CountByStatus(ctx context.Context, status domain.JobStatus) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&domain.Job{}).
		Where("status = ?", status).
		Count(&count).Error
	return count, err
}
