package testutil

import (
	"context"
	"fmt"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/dom/sleeplog/internal/api"
	"github.com/dom/sleeplog/internal/cache"
	"github.com/dom/sleeplog/internal/config"
	"github.com/dom/sleeplog/internal/domain"
	"github.com/dom/sleeplog/internal/logging"
	"github.com/dom/sleeplog/internal/queue"
	"github.com/dom/sleeplog/internal/repository"
	repoPostgres "github.com/dom/sleeplog/internal/repository/postgres"
	"github.com/dom/sleeplog/internal/service"
	"github.com/dom/sleeplog/internal/websocket"
	goredis "github.com/redis/go-redis/v9"
	"github.com/testcontainers/testcontainers-go"
	tcPostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	tcRedis "github.com/testcontainers/testcontainers-go/modules/redis"
	"github.com/testcontainers/testcontainers-go/wait"
	gormPostgres "gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// TestDB manages a testcontainers PostgreSQL instance
type TestDB struct {
	Container testcontainers.Container
	DB        *gorm.DB
	DSN       string
}

// NewTestDB creates a new PostgreSQL testcontainer and returns a connection
func NewTestDB(t *testing.T) *TestDB {
	t.Helper()

	ctx := context.Background()

	container, err := tcPostgres.Run(ctx,
		"postgres:15-alpine",
		tcPostgres.WithDatabase("test_sleeplog"),
		tcPostgres.WithUsername("test"),
		tcPostgres.WithPassword("test"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second),
		),
	)
	if err != nil {
		t.Fatalf("failed to start postgres container: %v", err)
	}

	dsn, err := container.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		t.Fatalf("failed to get connection string: %v", err)
	}

	db, err := gorm.Open(gormPostgres.Open(dsn), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	if err != nil {
		t.Fatalf("failed to connect to database: %v", err)
	}

	if err := repoPostgres.Migrate(db); err != nil {
		t.Fatalf("failed to run migrations: %v", err)
	}

	testDB := &TestDB{
		Container: container,
		DB:        db,
		DSN:       dsn,
	}

	t.Cleanup(func() {
		testDB.Cleanup()
	})

	return testDB
}

// Cleanup terminates the container
func (tdb *TestDB) Cleanup() {
	if tdb.Container != nil {
		ctx := context.Background()
		tdb.Container.Terminate(ctx)
	}
}

// Truncate clears all tables for test isolation
func (tdb *TestDB) Truncate(t *testing.T) {
	t.Helper()

	tables := []string{
		"jobs",
		"follows",
		"sleep_sessions",
		"users",
	}

	for _, table := range tables {
		if err := tdb.DB.Exec(fmt.Sprintf("TRUNCATE TABLE %s CASCADE", table)).Error; err != nil {
			t.Logf("warning: failed to truncate %s: %v", table, err)
		}
	}
}

// TestRedis manages a testcontainers Redis instance
type TestRedis struct {
	Container testcontainers.Container
	Client    *goredis.Client
	URL       string
}

// NewTestRedis starts a Redis container and returns a connected client
func NewTestRedis(t *testing.T) *TestRedis {
	t.Helper()

	ctx := context.Background()

	container, err := tcRedis.Run(ctx, "redis:7-alpine")
	if err != nil {
		t.Fatalf("failed to start redis container: %v", err)
	}

	url, err := container.ConnectionString(ctx)
	if err != nil {
		t.Fatalf("failed to get redis connection string: %v", err)
	}

	client, err := cache.NewRedisClient(ctx, url)
	if err != nil {
		t.Fatalf("failed to connect to redis: %v", err)
	}

	tr := &TestRedis{Container: container, Client: client, URL: url}
	t.Cleanup(func() {
		client.Close()
		container.Terminate(context.Background())
	})

	return tr
}

// TestConfig returns a configuration suitable for testing
func TestConfig() *config.Config {
	return &config.Config{
		Port:                 "0", // Random port
		Environment:          "test",
		JWTSecret:            "test-jwt-secret-key-for-testing-only",
		JWTExpirationHours:   1,
		LogLevel:             "disabled",
		CacheBackend:         "memory",
		CacheKeyPrefix:       "test:",
		OpenSessionTTL:       24 * time.Hour,
		WeeklyBucketTTL:      30 * 24 * time.Hour,
		GraphCacheTTL:        6 * time.Hour,
		WorkerConcurrency:    2,
		WorkerPollInterval:   10 * time.Millisecond,
		JobMaxAttempts:       3,
		JobVisibilityTimeout: time.Minute,
		RateLimitRPS:         1000,
		RateLimitBurst:       1000,
	}
}

// TestServer holds all components for integration testing
type TestServer struct {
	Server   *httptest.Server
	DB       *TestDB
	Cache    *cache.Memory
	Repos    *repository.Repositories
	Services *service.Services
	Worker   *queue.Worker
	Hub      *websocket.Hub
	Config   *config.Config
}

// NewTestServer creates a complete test server with all dependencies. The
// aggregation worker is not started; tests call Worker.Drain to run queued
// jobs deterministically.
func NewTestServer(t *testing.T) *TestServer {
	t.Helper()

	testDB := NewTestDB(t)
	cfg := TestConfig()
	logging.Setup(cfg.LogLevel, false)

	repos := repoPostgres.NewRepositories(testDB.DB)
	backend := cache.NewMemory()
	store := cache.NewStore(backend)

	hub := websocket.NewHub()
	go hub.Run()

	jobs := queue.New(repos.Job, cfg.JobMaxAttempts)
	services := service.NewServices(repos, store, jobs, hub, cfg)

	worker := queue.NewWorker(repos.Job, queue.WorkerConfig{
		Concurrency:       cfg.WorkerConcurrency,
		PollInterval:      cfg.WorkerPollInterval,
		VisibilityTimeout: cfg.JobVisibilityTimeout,
	})
	worker.Register(domain.AggregationTaskKind, services.Aggregation.Handle)

	router := api.NewRouter(services, hub, cfg)
	server := httptest.NewServer(router)

	ts := &TestServer{
		Server:   server,
		DB:       testDB,
		Cache:    backend,
		Repos:    repos,
		Services: services,
		Worker:   worker,
		Hub:      hub,
		Config:   cfg,
	}

	t.Cleanup(func() {
		server.Close()
		hub.Stop()
	})

	return ts
}

// BaseURL returns the test server's base URL
func (ts *TestServer) BaseURL() string {
	return ts.Server.URL
}

// APIURL returns the full API URL for a given path
func (ts *TestServer) APIURL(path string) string {
	return fmt.Sprintf("%s/api/v1%s", ts.Server.URL, path)
}

// WebSocketURL returns the WebSocket URL with token
func (ts *TestServer) WebSocketURL(token string) string {
	wsURL := "ws" + ts.Server.URL[4:] // Replace "http" with "ws"
	return fmt.Sprintf("%s/api/v1/ws?token=%s", wsURL, token)
}

// DrainJobs runs every queued job and fails the test on error
func (ts *TestServer) DrainJobs(t *testing.T) int {
	t.Helper()

	n, err := ts.Worker.Drain(context.Background())
	if err != nil {
		t.Fatalf("failed to drain jobs: %v", err)
	}
	return n
}
