package service

import (
	"github.com/dom/sleeplog/internal/cache"
	"github.com/dom/sleeplog/internal/config"
	"github.com/dom/sleeplog/internal/domain"
	"github.com/dom/sleeplog/internal/repository"
	"github.com/dom/sleeplog/internal/websocket"
	"github.com/google/uuid"
)

// JobFactory builds background jobs for callers that store them alongside
// their own writes. *queue.Queue implements it.
type JobFactory interface {
	NewJob(kind string, payload any) (*domain.Job, error)
}

// Notifier pushes realtime events to connected users. *websocket.Hub
// implements it.
type Notifier interface {
	Publish(userIDs []uuid.UUID, msgType websocket.MessageType, payload any)
}

type Services struct {
	Auth        *AuthService
	Sleep       *SleepService
	Aggregation *AggregationService
	Following   *FollowingService
	Feed        *FeedService
	Users       *UserService
}

func NewServices(repos *repository.Repositories, store *cache.Store, jobs JobFactory, notifier Notifier, cfg *config.Config) *Services {
	following := NewFollowingService(repos.Follow, repos.User, store, cfg.GraphCacheTTL)
	sessionCache := NewSessionCache(store, cfg.OpenSessionTTL)

	return &Services{
		Auth:        NewAuthService(repos.User, cfg),
		Sleep:       NewSleepService(repos.SleepSession, sessionCache, jobs),
		Aggregation: NewAggregationService(store, repos.Follow, notifier, cfg.WeeklyBucketTTL),
		Following:   following,
		Feed:        NewFeedService(following, repos.User, store),
		Users:       NewUserService(repos.User, following),
	}
}
