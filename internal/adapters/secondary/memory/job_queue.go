package memory

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/chiillbro/aether-incident-response-sub000/internal/core/domain"
	"github.com/chiillbro/aether-incident-response-sub000/internal/core/ports"
)

// ErrQueueClosed is returned by Submit after Stop.
var ErrQueueClosed = errors.New("job queue is closed")

// Config tunes the in-process queue.
type Config struct {
	Workers    int
	Buffer     int
	JobTimeout time.Duration
	Retry      domain.RetryPolicy
}

const (
	defaultWorkers    = 4
	defaultBuffer     = 1024
	defaultJobTimeout = 30 * time.Second
)

type delivery struct {
	job     *domain.NotificationJob
	attempt int
}

// JobQueue runs notification jobs on a pool of goroutines with retry and
// backoff. Nothing survives a restart.
type JobQueue struct {
	processor ports.JobProcessor
	cfg       Config
	logger    *slog.Logger

	jobs     chan delivery
	stopping chan struct{}
	stopOnce sync.Once

	mu     sync.RWMutex
	closed bool

	timersMu sync.Mutex
	timers   map[*time.Timer]struct{}

	workers sync.WaitGroup
}

var _ ports.JobQueue = (*JobQueue)(nil)

func NewJobQueue(processor ports.JobProcessor, cfg Config, logger *slog.Logger) *JobQueue {
	if cfg.Workers <= 0 {
		cfg.Workers = defaultWorkers
	}
	if cfg.Buffer <= 0 {
		cfg.Buffer = defaultBuffer
	}
	if cfg.JobTimeout <= 0 {
		cfg.JobTimeout = defaultJobTimeout
	}
	return &JobQueue{
		processor: processor,
		cfg:       cfg,
		logger:    logger.With("component", "memory_job_queue"),
		jobs:      make(chan delivery, cfg.Buffer),
		stopping:  make(chan struct{}),
		timers:    make(map[*time.Timer]struct{}),
	}
}

// Start launches the workers. ctx bounds every job attempt.
func (q *JobQueue) Start(ctx context.Context) {
	for i := 0; i < q.cfg.Workers; i++ {
		q.workers.Add(1)
		go q.work(ctx, i)
	}
	q.logger.Info("job queue started", "workers", q.cfg.Workers)
}

// Submit enqueues job for its first attempt.
func (q *JobQueue) Submit(ctx context.Context, job *domain.NotificationJob) error {
	if err := q.enqueue(ctx, delivery{job: job, attempt: 1}); err != nil {
		return fmt.Errorf("submit job %s: %w", job.ID, err)
	}
	q.logger.DebugContext(ctx, "job queued", "job_id", job.ID, "type", job.Kind)
	return nil
}

func (q *JobQueue) enqueue(ctx context.Context, d delivery) error {
	q.mu.RLock()
	defer q.mu.RUnlock()
	if q.closed {
		return ErrQueueClosed
	}

	select {
	case q.jobs <- d:
		return nil
	case <-q.stopping:
		return ErrQueueClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (q *JobQueue) work(ctx context.Context, worker int) {
	defer q.workers.Done()
	for d := range q.jobs {
		q.run(ctx, worker, d)
	}
}

func (q *JobQueue) run(ctx context.Context, worker int, d delivery) {
	logger := q.logger.With("job_id", d.job.ID, "type", d.job.Kind, "attempt", d.attempt)
	logger.DebugContext(ctx, "job active", "worker", worker)

	jobCtx, cancel := context.WithTimeout(ctx, q.cfg.JobTimeout)
	err := q.process(jobCtx, d.job)
	cancel()

	switch q.cfg.Retry.Decide(err, d.attempt) {
	case domain.JobCompleted:
		logger.DebugContext(ctx, "job completed")
	case domain.JobRetry:
		delay := q.cfg.Retry.Backoff(d.attempt)
		logger.WarnContext(ctx, "job failed", "retry_in", delay, "error", err)
		q.scheduleRetry(delivery{job: d.job, attempt: d.attempt + 1}, delay)
	default:
		logger.ErrorContext(ctx, "job dead", "error", err)
	}
}

// process shields the worker from a panicking processor.
func (q *JobQueue) process(ctx context.Context, job *domain.NotificationJob) (err error) {
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("job panicked: %v", p)
		}
	}()
	return q.processor.Process(ctx, job)
}

func (q *JobQueue) scheduleRetry(d delivery, delay time.Duration) {
	q.timersMu.Lock()
	defer q.timersMu.Unlock()

	var timer *time.Timer
	timer = time.AfterFunc(delay, func() {
		q.timersMu.Lock()
		delete(q.timers, timer)
		q.timersMu.Unlock()

		if err := q.enqueue(context.Background(), d); err != nil {
			q.logger.Warn("job dropped", "job_id", d.job.ID, "attempt", d.attempt, "error", err)
		}
	})
	q.timers[timer] = struct{}{}
}

// Stop rejects new jobs, cancels pending retries and waits for the workers
// to drain jobs already queued.
func (q *JobQueue) Stop(ctx context.Context) error {
	q.stopOnce.Do(func() {
		close(q.stopping)

		q.mu.Lock()
		q.closed = true
		close(q.jobs)
		q.mu.Unlock()

		q.timersMu.Lock()
		dropped := len(q.timers)
		for timer := range q.timers {
			timer.Stop()
		}
		q.timers = map[*time.Timer]struct{}{}
		q.timersMu.Unlock()

		if dropped > 0 {
			q.logger.Warn("pending retries dropped on shutdown", "count", dropped)
		}
	})

	done := make(chan struct{})
	go func() {
		q.workers.Wait()
		close(done)
	}()

	select {
	case <-done:
		q.logger.Info("job queue stopped")
		return nil
	case <-ctx.Done():
		return fmt.Errorf("stop job queue: %w", ctx.Err())
	}
}

// Pending returns the number of jobs waiting for a worker.
func (q *JobQueue) Pending() int {
	return len(q.jobs)
}
