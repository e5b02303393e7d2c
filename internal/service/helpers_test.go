package service_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/dom/sleeplog/internal/cache"
	"github.com/dom/sleeplog/internal/domain"
	"github.com/dom/sleeplog/internal/queue"
	"github.com/dom/sleeplog/internal/repository"
	"github.com/dom/sleeplog/internal/repository/postgres"
	"github.com/dom/sleeplog/internal/service"
	"github.com/dom/sleeplog/internal/testutil"
	"github.com/dom/sleeplog/internal/websocket"
	"github.com/google/uuid"
)

// fixture wires the services over a real postgres and an in-memory cache.
type fixture struct {
	db       *testutil.TestDB
	repos    *repository.Repositories
	backend  *cache.Memory
	store    *cache.Store
	services *service.Services
	worker   *queue.Worker
	notifier *recordingNotifier
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	testDB := testutil.NewTestDB(t)
	cfg := testutil.TestConfig()
	repos := postgres.NewRepositories(testDB.DB)
	backend := cache.NewMemory()
	store := cache.NewStore(backend)
	notifier := &recordingNotifier{}

	services := service.NewServices(repos, store, queue.New(repos.Job, cfg.JobMaxAttempts), notifier, cfg)
	worker := queue.NewWorker(repos.Job, queue.WorkerConfig{
		Concurrency:       cfg.WorkerConcurrency,
		PollInterval:      cfg.WorkerPollInterval,
		VisibilityTimeout: cfg.JobVisibilityTimeout,
	})
	worker.Register(domain.AggregationTaskKind, services.Aggregation.Handle)

	return &fixture{
		db:       testDB,
		repos:    repos,
		backend:  backend,
		store:    store,
		services: services,
		worker:   worker,
		notifier: notifier,
	}
}

func (f *fixture) drain(t *testing.T) int {
	t.Helper()
	n, err := f.worker.Drain(context.Background())
	if err != nil {
		t.Fatalf("drain: %v", err)
	}
	return n
}

// clock is a settable time source.
type clock struct {
	mu  sync.Mutex
	now time.Time
}

func newClock(t time.Time) *clock { return &clock{now: t} }

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *clock) Set(t time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = t
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type publication struct {
	userIDs []uuid.UUID
	msgType websocket.MessageType
	payload any
}

type recordingNotifier struct {
	mu   sync.Mutex
	sent []publication
}

func (n *recordingNotifier) Publish(userIDs []uuid.UUID, msgType websocket.MessageType, payload any) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.sent = append(n.sent, publication{userIDs: userIDs, msgType: msgType, payload: payload})
}

func (n *recordingNotifier) ofType(msgType websocket.MessageType) []publication {
	n.mu.Lock()
	defer n.mu.Unlock()
	var out []publication
	for _, p := range n.sent {
		if p.msgType == msgType {
			out = append(out, p)
		}
	}
	return out
}

var errCacheDown = errors.New("cache down")

// brokenBackend fails every call, like an unreachable redis.
type brokenBackend struct{}

func (brokenBackend) Get(context.Context, string) ([]byte, error) { return nil, errCacheDown }

func (brokenBackend) Set(context.Context, string, []byte, time.Duration) error { return errCacheDown }

func (brokenBackend) Delete(context.Context, ...string) error { return errCacheDown }

func (brokenBackend) DeletePrefix(context.Context, string) error { return errCacheDown }

func (brokenBackend) Update(context.Context, string, time.Duration, func([]byte, bool) ([]byte, error)) error {
	return errCacheDown
}

func (brokenBackend) Close() error { return nil }
