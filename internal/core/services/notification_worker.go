package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/chiillbro/aether-incident-response-sub000/internal/core/domain"
	apperrors "github.com/chiillbro/aether-incident-response-sub000/internal/core/errors"
	"github.com/chiillbro/aether-incident-response-sub000/internal/core/ports"
)

// NotificationWorker delivers queued notification jobs to their channels.
// Jobs may be delivered more than once; publishing is safe to repeat.
type NotificationWorker struct {
	teams     ports.TeamRepository
	publisher ports.NotificationPublisher
	now       func() time.Time
	logger    *slog.Logger
}

var _ ports.JobProcessor = (*NotificationWorker)(nil)

func NewNotificationWorker(teams ports.TeamRepository, publisher ports.NotificationPublisher, logger *slog.Logger) *NotificationWorker {
	return &NotificationWorker{
		teams:     teams,
		publisher: publisher,
		now:       time.Now,
		logger:    logger.With("component", "notification_worker"),
	}
}

// Process runs one attempt of job. Errors wrapping ErrInvalidJob are
// permanent; anything else should be retried.
func (w *NotificationWorker) Process(ctx context.Context, job *domain.NotificationJob) error {
	payload := job.Payload(w.now())

	switch job.Kind {
	case domain.JobKindUser:
		if job.UserID == nil {
			return fmt.Errorf("%w: user job %s has no user", apperrors.ErrInvalidJob, job.ID)
		}
		return w.publisher.Publish(ctx, domain.UserNotificationChannel(*job.UserID), payload)

	case domain.JobKindTeam:
		if job.TeamID == nil {
			return fmt.Errorf("%w: team job %s has no team", apperrors.ErrInvalidJob, job.ID)
		}
		return w.fanOut(ctx, job, payload)

	case domain.JobKindBroadcast:
		return w.publisher.Publish(ctx, domain.BroadcastNotificationChannel, payload)

	default:
		w.logger.WarnContext(ctx, "unknown notification job type",
			"job_id", job.ID,
			"type", job.Kind,
		)
		return nil
	}
}

// fanOut publishes to every team member but the actor. One failed publish
// fails the job and the whole fan-out is retried.
func (w *NotificationWorker) fanOut(ctx context.Context, job *domain.NotificationJob, payload domain.NotificationPayload) error {
	members, err := w.teams.FetchTeamMemberIDs(ctx, *job.TeamID)
	if err != nil {
		return fmt.Errorf("%w: team %s: %v", apperrors.ErrRosterUnavailable, *job.TeamID, err)
	}

	g, gctx := errgroup.WithContext(ctx)
	recipients := 0
	for _, memberID := range members {
		if job.ActorID != nil && memberID == *job.ActorID {
			continue
		}
		channel := domain.UserNotificationChannel(memberID)
		recipients++
		g.Go(func() error {
			if err := w.publisher.Publish(gctx, channel, payload); err != nil {
				return fmt.Errorf("publish to %s: %w", channel, err)
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return err
	}

	w.logger.DebugContext(ctx, "team notification delivered",
		"job_id", job.ID,
		"team_id", *job.TeamID,
		"recipients", recipients,
	)
	return nil
}
