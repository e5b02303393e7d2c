package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dom/sleeplog/internal/api"
	"github.com/dom/sleeplog/internal/cache"
	"github.com/dom/sleeplog/internal/config"
	"github.com/dom/sleeplog/internal/domain"
	"github.com/dom/sleeplog/internal/logging"
	"github.com/dom/sleeplog/internal/queue"
	"github.com/dom/sleeplog/internal/repository/postgres"
	"github.com/dom/sleeplog/internal/service"
	"github.com/dom/sleeplog/internal/telemetry"
	"github.com/dom/sleeplog/internal/websocket"
	"github.com/rs/zerolog/log"
	"github.com/spf13/pflag"
	"golang.org/x/sync/errgroup"
	"gorm.io/gorm/logger"
)

const (
	roleAll    = "all"
	roleAPI    = "api"
	roleWorker = "worker"
)

func main() {
	role := pflag.String("role", roleAll, "process role: all, api or worker")
	envFile := pflag.String("env-file", ".env", "optional dotenv file loaded before the environment")
	pflag.Parse()

	cfg, err := config.Load(*envFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}
	logging.Setup(cfg.LogLevel, cfg.LogPretty)

	switch *role {
	case roleAll, roleAPI, roleWorker:
	default:
		log.Fatal().Str("role", *role).Msg("unknown role")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, *role); err != nil {
		log.Fatal().Err(err).Msg("server exited")
	}
	log.Info().Msg("server stopped")
}

func run(ctx context.Context, cfg *config.Config, role string) error {
	if cfg.TracingEnabled {
		tp, err := telemetry.InitTracing(ctx, cfg.TracingEndpoint, cfg.Environment, cfg.TracingSampleRate)
		if err != nil {
			return err
		}
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := tp.Shutdown(shutdownCtx); err != nil {
				log.Warn().Err(err).Msg("tracer shutdown")
			}
		}()
	}

	// Initialize database
	db, err := postgres.NewConnection(cfg.DatabaseURL, logger.Warn)
	if err != nil {
		return fmt.Errorf("connect to database: %w", err)
	}

	// Initialize cache
	backend, err := newCacheBackend(ctx, cfg)
	if err != nil {
		return err
	}
	defer backend.Close()
	store := cache.NewStore(backend)

	// Initialize repositories
	repos := postgres.NewRepositories(db)

	// Initialize WebSocket hub. Worker-only processes have no clients, so
	// their notifications are dropped.
	hub := websocket.NewHub()
	go hub.Run()
	defer hub.Stop()

	// Initialize services
	jobs := queue.New(repos.Job, cfg.JobMaxAttempts)
	services := service.NewServices(repos, store, jobs, hub, cfg)

	g, ctx := errgroup.WithContext(ctx)

	if role == roleAll || role == roleWorker {
		worker := queue.NewWorker(repos.Job, queue.WorkerConfig{
			Concurrency:       cfg.WorkerConcurrency,
			PollInterval:      cfg.WorkerPollInterval,
			VisibilityTimeout: cfg.JobVisibilityTimeout,
		})
		worker.Register(domain.AggregationTaskKind, services.Aggregation.Handle)

		g.Go(func() error {
			return worker.Run(ctx)
		})
	}

	if role == roleAll || role == roleAPI {
		srv := &http.Server{
			Addr:         "0.0.0.0:" + cfg.Port,
			Handler:      api.NewRouter(services, hub, cfg),
			ReadTimeout:  15 * time.Second,
			WriteTimeout: 15 * time.Second,
			IdleTimeout:  60 * time.Second,
		}

		g.Go(func() error {
			log.Info().Str("port", cfg.Port).Msg("server starting")
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("listen: %w", err)
			}
			return nil
		})

		g.Go(func() error {
			<-ctx.Done()
			log.Info().Msg("shutting down server")

			// Graceful shutdown with timeout
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		})
	}

	return g.Wait()
}

func newCacheBackend(ctx context.Context, cfg *config.Config) (cache.Backend, error) {
	switch cfg.CacheBackend {
	case "memory":
		mem := cache.NewMemory()
		go mem.RunSweeper(ctx, time.Minute)
		log.Warn().Msg("using in-process cache; state is not shared between processes")
		return mem, nil
	default:
		client, err := cache.NewRedisClient(ctx, cfg.RedisURL)
		if err != nil {
			return nil, fmt.Errorf("connect to redis: %w", err)
		}
		return cache.NewRedis(client, cfg.CacheKeyPrefix), nil
	}
}
