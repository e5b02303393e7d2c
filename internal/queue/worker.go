package queue

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/dom/sleeplog/internal/domain"
	"github.com/dom/sleeplog/internal/metrics"
	"github.com/dom/sleeplog/internal/repository"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
)

// Handler processes one job. A returned error schedules a retry.
type Handler func(ctx context.Context, job *domain.Job) error

const (
	baseBackoff = time.Second
	maxBackoff  = 5 * time.Minute
)

// ErrNoHandler is recorded on jobs whose kind has no registered handler.
var ErrNoHandler = errors.New("no handler registered")

type WorkerConfig struct {
	Concurrency       int
	PollInterval      time.Duration
	VisibilityTimeout time.Duration
}

// Worker claims due jobs and runs them on a bounded pool.
type Worker struct {
	repo     repository.JobRepository
	cfg      WorkerConfig
	handlers map[string]Handler
	mu       sync.RWMutex
	now      func() time.Time
}

func NewWorker(repo repository.JobRepository, cfg WorkerConfig) *Worker {
	if cfg.Concurrency < 1 {
		cfg.Concurrency = 1
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = time.Second
	}
	return &Worker{
		repo:     repo,
		cfg:      cfg,
		handlers: make(map[string]Handler),
		now:      time.Now,
	}
}

func (w *Worker) Register(kind string, h Handler) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.handlers[kind] = h
}

// Run polls until ctx is cancelled. In-flight jobs finish before it returns.
func (w *Worker) Run(ctx context.Context) error {
	ticker := time.NewTicker(w.cfg.PollInterval)
	defer ticker.Stop()

	log.Info().
		Int("concurrency", w.cfg.Concurrency).
		Dur("poll_interval", w.cfg.PollInterval).
		Msg("job worker started")

	for {
		// Keep claiming while batches come back full.
		for {
			n, err := w.runBatch(ctx)
			if err != nil && ctx.Err() == nil {
				log.Error().Err(err).Msg("claim jobs")
			}
			if n < w.cfg.Concurrency || ctx.Err() != nil {
				break
			}
		}

		select {
		case <-ctx.Done():
			log.Info().Msg("job worker stopped")
			return nil
		case <-ticker.C:
		}
	}
}

// Drain processes jobs until none are runnable and reports how many ran.
// Jobs rescheduled into the future are left for later.
func (w *Worker) Drain(ctx context.Context) (int, error) {
	total := 0
	for {
		n, err := w.runBatch(ctx)
		total += n
		if err != nil {
			return total, err
		}
		if n == 0 {
			return total, nil
		}
	}
}

// runBatch claims up to Concurrency jobs and waits for all of them.
func (w *Worker) runBatch(ctx context.Context) (int, error) {
	jobs, err := w.repo.Claim(ctx, w.cfg.Concurrency, w.cfg.VisibilityTimeout)
	if err != nil {
		return 0, fmt.Errorf("claim: %w", err)
	}
	if len(jobs) == 0 {
		return 0, nil
	}

	g := new(errgroup.Group)
	g.SetLimit(w.cfg.Concurrency)
	for _, job := range jobs {
		g.Go(func() error {
			w.process(context.WithoutCancel(ctx), job)
			return nil
		})
	}
	return len(jobs), g.Wait()
}

func (w *Worker) process(ctx context.Context, job *domain.Job) {
	logger := log.With().
		Str("job_id", job.ID.String()).
		Str("kind", job.Kind).
		Int("attempt", job.Attempts).
		Logger()
	ctx = logger.WithContext(ctx)

	w.mu.RLock()
	handler, ok := w.handlers[job.Kind]
	w.mu.RUnlock()

	start := w.now()
	var err error
	if !ok {
		err = fmt.Errorf("%w for kind %q", ErrNoHandler, job.Kind)
	} else {
		err = safeRun(ctx, handler, job)
	}
	metrics.JobDuration.WithLabelValues(job.Kind).Observe(w.now().Sub(start).Seconds())

	if err == nil {
		if cerr := w.repo.Complete(ctx, job.ID); cerr != nil {
			// The lock expires and the job runs again; handlers are idempotent.
			logger.Error().Err(cerr).Msg("complete job")
		}
		metrics.JobsProcessed.WithLabelValues(job.Kind, "ok").Inc()
		return
	}

	retryAt := w.now().Add(Backoff(job.Attempts))
	if ferr := w.repo.Fail(ctx, job, err, retryAt); ferr != nil {
		logger.Error().Err(ferr).Msg("record job failure")
	}

	result := "retry"
	if job.Attempts >= job.MaxAttempts {
		result = "failed"
	}
	metrics.JobsProcessed.WithLabelValues(job.Kind, result).Inc()
	logger.Warn().Err(err).Str("result", result).Time("retry_at", retryAt).Msg("job failed")
}

func safeRun(ctx context.Context, h Handler, job *domain.Job) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	return h(ctx, job)
}

// Backoff returns the delay before the next attempt: 1s doubled per attempt,
// capped at five minutes.
func Backoff(attempts int) time.Duration {
	if attempts < 1 {
		attempts = 1
	}
	d := baseBackoff
	for i := 1; i < attempts; i++ {
		d *= 2
		if d >= maxBackoff {
			return maxBackoff
		}
	}
	return d
}
