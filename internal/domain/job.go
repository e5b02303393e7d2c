package domain

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

type JobStatus string

const (
	JobStatusPending JobStatus = "pending"
	JobStatusRunning JobStatus = "running"
	JobStatusFailed  JobStatus = "failed"
)

// Job is a durable queue row. Succeeded jobs are deleted.
type Job struct {
	ID          uuid.UUID      `json:"id" gorm:"type:uuid;primary_key;default:gen_random_uuid()"`
	Kind        string         `json:"kind" gorm:"not null;index"`
	Payload     datatypes.JSON `json:"payload" gorm:"type:jsonb;not null"`
	Status      JobStatus      `json:"status" gorm:"not null;default:'pending';index:idx_jobs_status_run_at,priority:1"`
	Attempts    int            `json:"attempts" gorm:"not null;default:0"`
	MaxAttempts int            `json:"maxAttempts" gorm:"not null;default:5"`
	RunAt       time.Time      `json:"runAt" gorm:"not null;index:idx_jobs_status_run_at,priority:2"`
	LockedAt    *time.Time     `json:"lockedAt"`
	LastError   string         `json:"lastError"`
	CreatedAt   time.Time      `json:"createdAt"`
	UpdatedAt   time.Time      `json:"updatedAt"`
}
