package domain

import (
	"time"

	"github.com/google/uuid"
)

// Follow is a directed edge follower -> followed. The pair is the primary key.
type Follow struct {
	FollowerID uuid.UUID `json:"followerId" gorm:"type:uuid;primaryKey;check:chk_follows_not_self,follower_id <> followed_id"`
	FollowedID uuid.UUID `json:"followedId" gorm:"type:uuid;primaryKey;index"`
	CreatedAt  time.Time `json:"createdAt"`

	// Relations
	Follower *User `json:"-" gorm:"foreignKey:FollowerID;constraint:OnDelete:CASCADE"`
	Followed *User `json:"-" gorm:"foreignKey:FollowedID;constraint:OnDelete:CASCADE"`
}
