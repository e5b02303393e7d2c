package service

import (
	"context"

	"github.com/dom/sleeplog/internal/domain"
	"github.com/dom/sleeplog/internal/repository"
	"github.com/google/uuid"
)

// UserProfile is a user with graph counters.
type UserProfile struct {
	User           *domain.User
	FollowingCount int64
	FollowersCount int64
}

type UserService struct {
	users     repository.UserRepository
	following *FollowingService
}

func NewUserService(users repository.UserRepository, following *FollowingService) *UserService {
	return &UserService{users: users, following: following}
}

func (s *UserService) Get(ctx context.Context, id uuid.UUID) (*UserProfile, error) {
	user, err := s.users.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return s.profile(ctx, user)
}

func (s *UserService) List(ctx context.Context, limit, offset int) ([]*UserProfile, error) {
	users, err := s.users.List(ctx, limit, offset)
	if err != nil {
		return nil, err
	}

	profiles := make([]*UserProfile, 0, len(users))
	for _, u := range users {
		p, err := s.profile(ctx, u)
		if err != nil {
			return nil, err
		}
		profiles = append(profiles, p)
	}
	return profiles, nil
}

func (s *UserService) profile(ctx context.Context, user *domain.User) (*UserProfile, error) {
	following, err := s.following.FollowingCount(ctx, user.ID)
	if err != nil {
		return nil, err
	}
	followers, err := s.following.FollowersCount(ctx, user.ID)
	if err != nil {
		return nil, err
	}
	return &UserProfile{
		User:           user,
		FollowingCount: following,
		FollowersCount: followers,
	}, nil
}
