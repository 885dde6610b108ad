package messaging

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nuid"

	"github.com/chiillbro/aether-incident-response-sub000/internal/core/domain"
	apperrors "github.com/chiillbro/aether-incident-response-sub000/internal/core/errors"
	"github.com/chiillbro/aether-incident-response-sub000/internal/core/ports"
)

// QueueConfig tunes the JetStream job consumer.
type QueueConfig struct {
	Workers    int
	Durable    string
	JobTimeout time.Duration
	Retry      domain.RetryPolicy
}

const (
	defaultQueueWorkers = 4
	defaultDurable      = "notification-workers"
	defaultJobTimeout   = 30 * time.Second
)

type ackAction int

const (
	actionAck ackAction = iota
	actionNak
	actionTerm
)

// JobQueue persists notification jobs on JetStream and consumes them with a
// queue group. Redelivery counts drive the retry policy.
type JobQueue struct {
	js        nats.JetStreamContext
	processor ports.JobProcessor
	cfg       QueueConfig
	logger    *slog.Logger

	mu   sync.Mutex
	subs []*nats.Subscription

	inflight sync.WaitGroup
}

var _ ports.JobQueue = (*JobQueue)(nil)

func NewJobQueue(js nats.JetStreamContext, processor ports.JobProcessor, cfg QueueConfig, logger *slog.Logger) *JobQueue {
	if cfg.Workers <= 0 {
		cfg.Workers = defaultQueueWorkers
	}
	if cfg.Durable == "" {
		cfg.Durable = defaultDurable
	}
	if cfg.JobTimeout <= 0 {
		cfg.JobTimeout = defaultJobTimeout
	}
	if cfg.Retry.MaxAttempts <= 0 {
		cfg.Retry.MaxAttempts = domain.DefaultMaxAttempts
	}
	return &JobQueue{
		js:        js,
		processor: processor,
		cfg:       cfg,
		logger:    logger.With("component", "jetstream_job_queue"),
	}
}

// Submit publishes job. The job ID doubles as the JetStream message ID so a
// resubmitted job is stored once.
func (q *JobQueue) Submit(ctx context.Context, job *domain.NotificationJob) error {
	if job.ID == "" {
		job.ID = nuid.Next()
	}
	data, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("encode job %s: %w", job.ID, err)
	}
	if _, err := q.js.Publish(JobSubject(job.Kind), data, nats.MsgId(job.ID), nats.Context(ctx)); err != nil {
		return fmt.Errorf("publish job %s: %w", job.ID, err)
	}
	q.logger.DebugContext(ctx, "job queued", "job_id", job.ID, "type", job.Kind)
	return nil
}

// Start binds Workers subscriptions to the durable queue group.
func (q *JobQueue) Start(ctx context.Context) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.subs) > 0 {
		return nil
	}

	for i := 0; i < q.cfg.Workers; i++ {
		sub, err := q.js.QueueSubscribe(JobSubjectPrefix+">", q.cfg.Durable, func(msg *nats.Msg) {
			q.onMessage(ctx, msg)
		},
			nats.Durable(q.cfg.Durable),
			nats.ManualAck(),
			nats.AckExplicit(),
			nats.MaxDeliver(q.cfg.Retry.MaxAttempts),
			nats.AckWait(q.cfg.JobTimeout+5*time.Second),
		)
		if err != nil {
			for _, s := range q.subs {
				_ = s.Unsubscribe()
			}
			q.subs = nil
			return fmt.Errorf("subscribe job queue: %w", err)
		}
		q.subs = append(q.subs, sub)
	}
	q.logger.Info("job queue started", "workers", q.cfg.Workers, "durable", q.cfg.Durable)
	return nil
}

func (q *JobQueue) onMessage(ctx context.Context, msg *nats.Msg) {
	q.inflight.Add(1)
	defer q.inflight.Done()

	attempt := 1
	if meta, err := msg.Metadata(); err == nil {
		attempt = int(meta.NumDelivered)
	}

	action, delay := q.handle(ctx, msg.Data, attempt)
	switch action {
	case actionAck:
		_ = msg.Ack()
	case actionNak:
		_ = msg.NakWithDelay(delay)
	default:
		_ = msg.Term()
	}
}

// handle runs one attempt and decides how the message is settled.
func (q *JobQueue) handle(ctx context.Context, data []byte, attempt int) (ackAction, time.Duration) {
	var job domain.NotificationJob
	if err := json.Unmarshal(data, &job); err != nil {
		q.logger.ErrorContext(ctx, "job dead", "attempt", attempt, "error", fmt.Errorf("%w: %v", apperrors.ErrInvalidJob, err))
		return actionTerm, 0
	}

	logger := q.logger.With("job_id", job.ID, "type", job.Kind, "attempt", attempt)
	logger.DebugContext(ctx, "job active")

	jobCtx, cancel := context.WithTimeout(ctx, q.cfg.JobTimeout)
	err := q.process(jobCtx, &job)
	cancel()

	switch q.cfg.Retry.Decide(err, attempt) {
	case domain.JobCompleted:
		logger.DebugContext(ctx, "job completed")
		return actionAck, 0
	case domain.JobRetry:
		delay := q.cfg.Retry.Backoff(attempt)
		logger.WarnContext(ctx, "job failed", "retry_in", delay, "error", err)
		return actionNak, delay
	default:
		logger.ErrorContext(ctx, "job dead", "error", err)
		return actionTerm, 0
	}
}

func (q *JobQueue) process(ctx context.Context, job *domain.NotificationJob) (err error) {
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("job panicked: %v", p)
		}
	}()
	return q.processor.Process(ctx, job)
}

// Stop drains the subscriptions and waits for in-flight jobs.
func (q *JobQueue) Stop(ctx context.Context) error {
	q.mu.Lock()
	subs := q.subs
	q.subs = nil
	q.mu.Unlock()

	var errs []error
	for _, sub := range subs {
		if err := sub.Drain(); err != nil && !errors.Is(err, nats.ErrConnectionClosed) {
			errs = append(errs, err)
		}
	}

	done := make(chan struct{})
	go func() {
		q.inflight.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-ctx.Done():
		errs = append(errs, fmt.Errorf("stop job queue: %w", ctx.Err()))
	}
	if len(errs) == 0 {
		q.logger.Info("job queue stopped")
	}
	return errors.Join(errs...)
}
