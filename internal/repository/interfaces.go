package repository

import (
	"context"
	"time"

	"github.com/dom/sleeplog/internal/domain"
	"github.com/google/uuid"
)

type UserRepository interface {
	Create(ctx context.Context, user *domain.User) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.User, error)
	GetByIDs(ctx context.Context, ids []uuid.UUID) ([]*domain.User, error)
	GetByDisplayName(ctx context.Context, displayName string) (*domain.User, error)
	List(ctx context.Context, limit, offset int) ([]*domain.User, error)
}

// SleepSessionRepository is the authoritative session store.
type SleepSessionRepository interface {
	// Create inserts an open session. It returns domain.ErrSessionAlreadyOpen
	// when the user already has one.
	Create(ctx context.Context, session *domain.SleepSession) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.SleepSession, error)
	// CloseIfOpen sets clock_out_time and duration only while clock_out_time
	// is still null. It reports whether this call closed the session.
	CloseIfOpen(ctx context.Context, id uuid.UUID, clockOut time.Time, duration int64) (bool, error)
	// CloseIfOpenWithJob is CloseIfOpen that also inserts job in the same
	// transaction when, and only when, this call closed the session.
	CloseIfOpenWithJob(ctx context.Context, id uuid.UUID, clockOut time.Time, duration int64, job *domain.Job) (bool, error)
	// FindLatestByUser returns the most recently created session, open or not.
	FindLatestByUser(ctx context.Context, userID uuid.UUID) (*domain.SleepSession, error)
	FindOpenByUser(ctx context.Context, userID uuid.UUID) (*domain.SleepSession, error)
	ListByUser(ctx context.Context, userID uuid.UUID, limit, offset int) ([]*domain.SleepSession, error)
}

// FollowRepository stores directed follow edges.
type FollowRepository interface {
	Exists(ctx context.Context, followerID, followedID uuid.UUID) (bool, error)
	// Create returns domain.ErrAlreadyFollowing when the edge exists.
	Create(ctx context.Context, followerID, followedID uuid.UUID) error
	// Delete reports whether an edge was removed.
	Delete(ctx context.Context, followerID, followedID uuid.UUID) (bool, error)
	CountFollowing(ctx context.Context, userID uuid.UUID) (int64, error)
	CountFollowers(ctx context.Context, userID uuid.UUID) (int64, error)
	FollowingIDs(ctx context.Context, userID uuid.UUID) ([]uuid.UUID, error)
	FollowerIDs(ctx context.Context, userID uuid.UUID) ([]uuid.UUID, error)
}

// JobRepository is the durable backing of the task queue.
type JobRepository interface {
	Enqueue(ctx context.Context, job *domain.Job) error
	// Claim locks up to limit runnable jobs: pending jobs whose run_at has
	// passed, and running jobs whose lock is older than staleAfter.
	Claim(ctx context.Context, limit int, staleAfter time.Duration) ([]*domain.Job, error)
	Complete(ctx context.Context, id uuid.UUID) error
	// Fail records the error and reschedules the job at retryAt, or marks it
	// failed when it has no attempts left.
	Fail(ctx context.Context, job *domain.Job, cause error, retryAt time.Time) error
	CountByStatus(ctx context.Context, status domain.JobStatus) (int64, error)
}

type Repositories struct {
	User         UserRepository
	SleepSession SleepSessionRepository
	Follow       FollowRepository
	Job          JobRepository
}
