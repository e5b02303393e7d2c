package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/dom/sleeplog/internal/domain"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type sleepSessionRepository struct {
	db *gorm.DB
}

func NewSleepSessionRepository(db *gorm.DB) *sleepSessionRepository {
	return &sleepSessionRepository{db: db}
}

// Create relies on idx_sleep_sessions_one_open: a second open session for the
// same user violates the partial unique index.
func (r *sleepSessionRepository) Create(ctx context.Context, session *domain.SleepSession) error {
	err := r.db.WithContext(ctx).Create(session).Error
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return domain.ErrSessionAlreadyOpen
	}
	if errors.Is(err, gorm.ErrForeignKeyViolated) {
		return domain.ErrUserNotFound
	}
	return err
}

func (r *sleepSessionRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.SleepSession, error) {
	var session domain.SleepSession
	err := r.db.WithContext(ctx).First(&session, "id = ?", id).Error
	if err != nil {
		return nil, notFound(err)
	}
	return &session, nil
}

func (r *sleepSessionRepository) CloseIfOpen(ctx context.Context, id uuid.UUID, clockOut time.Time, duration int64) (bool, error) {
	return r.CloseIfOpenWithJob(ctx, id, clockOut, duration, nil)
}

func (r *sleepSessionRepository) CloseIfOpenWithJob(ctx context.Context, id uuid.UUID, clockOut time.Time, duration int64, job *domain.Job) (bool, error) {
	var closed bool
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		result := tx.Model(&domain.SleepSession{}).
			Where("id = ? AND clock_out_time IS NULL", id).
			Updates(map[string]any{
				"clock_out_time": clockOut,
				"duration":       duration,
			})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected != 1 {
			return nil
		}
		if job != nil {
			if err := tx.Create(job).Error; err != nil {
				return err
			}
		}
		closed = true
		return nil
	})
	if err != nil {
		return false, err
	}
	return closed, nil
}

func (r *sleepSessionRepository) FindLatestByUser(ctx context.Context, userID uuid.UUID) (*domain.SleepSession, error) {
	var session domain.SleepSession
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC, id DESC").
		First(&session).Error
	if err != nil {
		return nil, notFound(err)
	}
	return &session, nil
}

func (r *sleepSessionRepository) FindOpenByUser(ctx context.Context, userID uuid.UUID) (*domain.SleepSession, error) {
	var session domain.SleepSession
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND clock_out_time IS NULL", userID).
		Order("created_at DESC").
		First(&session).Error
	if err != nil {
		return nil, notFound(err)
	}
	return &session, nil
}

func (r *sleepSessionRepository) ListByUser(ctx context.Context, userID uuid.UUID, limit, offset int) ([]*domain.SleepSession, error) {
	var sessions []*domain.SleepSession
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Limit(limit).
		Offset(offset).
		Find(&sessions).Error
	if err != nil {
		return nil, err
	}
	return sessions, nil
}

func notFound(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return domain.ErrSessionNotFound
	}
	return err
}
