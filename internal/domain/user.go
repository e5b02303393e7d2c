package domain

import (
	"time"

	"github.com/google/uuid"
)

type User struct {
	ID           uuid.UUID `json:"id" gorm:"type:uuid;primary_key;default:gen_random_uuid()"`
	PasswordHash string    `json:"-" gorm:"not null"`
	DisplayName  string    `json:"displayName" gorm:"uniqueIndex;not null"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`

	// Relations
	SleepSessions []SleepSession `json:"-" gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE"`
}

// UserSummary is the identity attached to feed entries at merge time.
type UserSummary struct {
	ID          uuid.UUID `json:"id"`
	DisplayName string    `json:"displayName"`
}

func (u *User) Summary() UserSummary {
	return UserSummary{ID: u.ID, DisplayName: u.DisplayName}
}
