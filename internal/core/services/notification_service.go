package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/chiillbro/aether-incident-response-sub000/internal/core/domain"
	"github.com/chiillbro/aether-incident-response-sub000/internal/core/ports"
)

// NotificationService turns notification requests into queued jobs.
type NotificationService struct {
	queue  ports.JobQueue
	now    func() time.Time
	logger *slog.Logger
}

var _ ports.NotificationService = (*NotificationService)(nil)

func NewNotificationService(queue ports.JobQueue, logger *slog.Logger) *NotificationService {
	return &NotificationService{
		queue:  queue,
		now:    time.Now,
		logger: logger.With("component", "notification_service"),
	}
}

func (s *NotificationService) SendNotification(ctx context.Context, userID uuid.UUID, title, message string) error {
	return s.submit(ctx, &domain.NotificationJob{
		Kind:    domain.JobKindUser,
		UserID:  &userID,
		Title:   title,
		Message: message,
	})
}

// SendNotificationToTeam notifies every member of the team except actorID.
func (s *NotificationService) SendNotificationToTeam(ctx context.Context, teamID uuid.UUID, title, message string, actorID *uuid.UUID) error {
	return s.submit(ctx, &domain.NotificationJob{
		Kind:    domain.JobKindTeam,
		TeamID:  &teamID,
		Title:   title,
		Message: message,
		ActorID: actorID,
	})
}

func (s *NotificationService) Broadcast(ctx context.Context, title, message string) error {
	return s.submit(ctx, &domain.NotificationJob{
		Kind:    domain.JobKindBroadcast,
		Title:   title,
		Message: message,
	})
}

func (s *NotificationService) submit(ctx context.Context, job *domain.NotificationJob) error {
	job.ID = uuid.NewString()
	job.EnqueuedAt = s.now().UTC()

	if err := job.Validate(); err != nil {
		return err
	}
	if err := s.queue.Submit(ctx, job); err != nil {
		return fmt.Errorf("submit %s notification: %w", job.Kind, err)
	}

	s.logger.DebugContext(ctx, "notification job submitted",
		"job_id", job.ID,
		"type", job.Kind,
	)
	return nil
}
