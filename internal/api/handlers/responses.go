package handlers

import (
	"time"

	"github.com/dom/sleeplog/internal/domain"
	"github.com/dom/sleeplog/internal/service"
)

type UserResponse struct {
	ID          string `json:"id"`
	DisplayName string `json:"displayName"`
}

type UserProfileResponse struct {
	ID             string `json:"id"`
	DisplayName    string `json:"displayName"`
	FollowingCount int64  `json:"followingCount"`
	FollowersCount int64  `json:"followersCount"`
}

type SleepSessionResponse struct {
	ID           string     `json:"id"`
	UserID       string     `json:"userId"`
	ClockInTime  time.Time  `json:"clockInTime"`
	ClockOutTime *time.Time `json:"clockOutTime"`
	Duration     int64      `json:"duration"`
	Completed    bool       `json:"completed"`
	CreatedAt    time.Time  `json:"createdAt"`
}

type FeedEntryResponse struct {
	ID           string       `json:"id"`
	User         UserResponse `json:"user"`
	ClockInTime  time.Time    `json:"clockInTime"`
	ClockOutTime time.Time    `json:"clockOutTime"`
	Duration     int64        `json:"duration"`
	CreatedAt    time.Time    `json:"createdAt"`
}

type FeedResponse struct {
	WeekKey string              `json:"weekKey"`
	Entries []FeedEntryResponse `json:"entries"`
}

func toUserResponse(u *domain.User) UserResponse {
	return UserResponse{
		ID:          u.ID.String(),
		DisplayName: u.DisplayName,
	}
}

func toUserProfileResponse(p *service.UserProfile) UserProfileResponse {
	return UserProfileResponse{
		ID:             p.User.ID.String(),
		DisplayName:    p.User.DisplayName,
		FollowingCount: p.FollowingCount,
		FollowersCount: p.FollowersCount,
	}
}

func toSleepSessionResponse(s *domain.SleepSession) SleepSessionResponse {
	return SleepSessionResponse{
		ID:           s.ID.String(),
		UserID:       s.UserID.String(),
		ClockInTime:  s.ClockInTime,
		ClockOutTime: s.ClockOutTime,
		Duration:     s.Duration,
		Completed:    s.Completed(),
		CreatedAt:    s.CreatedAt,
	}
}

func toFeedResponse(f *service.Feed) FeedResponse {
	entries := make([]FeedEntryResponse, 0, len(f.Entries))
	for _, e := range f.Entries {
		entries = append(entries, FeedEntryResponse{
			ID: e.ID.String(),
			User: UserResponse{
				ID:          e.User.ID.String(),
				DisplayName: e.User.DisplayName,
			},
			ClockInTime:  e.ClockInTime,
			ClockOutTime: e.ClockOutTime,
			Duration:     e.Duration,
			CreatedAt:    e.CreatedAt,
		})
	}
	return FeedResponse{WeekKey: f.WeekKey, Entries: entries}
}
