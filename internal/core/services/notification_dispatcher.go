package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/chiillbro/aether-incident-response-sub000/internal/core/domain"
	"github.com/chiillbro/aether-incident-response-sub000/internal/core/ports"
)

// NotificationDispatcher decides who hears about each domain event.
// Users are never notified about their own actions, except on TaskCreated
// where the assignee is always told.
type NotificationDispatcher struct {
	notifications ports.NotificationService
	logger        *slog.Logger
}

func NewNotificationDispatcher(notifications ports.NotificationService, logger *slog.Logger) *NotificationDispatcher {
	return &NotificationDispatcher{
		notifications: notifications,
		logger:        logger.With("component", "notification_dispatcher"),
	}
}

// Subscribe registers the dispatcher on the bus.
func (d *NotificationDispatcher) Subscribe(bus ports.EventBus) func() {
	names := []domain.EventName{
		domain.IncidentCreatedEvent,
		domain.IncidentStatusUpdatedEvent,
		domain.TaskCreatedEvent,
		domain.TaskAssignedEvent,
		domain.TaskStatusUpdatedEvent,
	}

	unsubscribers := make([]func(), 0, len(names))
	for _, name := range names {
		unsubscribers = append(unsubscribers, bus.Subscribe(name, d.Handle))
	}
	return func() {
		for _, unsubscribe := range unsubscribers {
			unsubscribe()
		}
	}
}

// Handle computes recipients for evt and submits the notifications.
func (d *NotificationDispatcher) Handle(ctx context.Context, evt domain.DomainEvent) error {
	switch e := evt.(type) {
	case domain.IncidentCreated:
		return d.incidentCreated(ctx, e)
	case domain.IncidentStatusUpdated:
		return d.incidentStatusUpdated(ctx, e)
	case domain.TaskCreated:
		return d.taskCreated(ctx, e)
	case domain.TaskAssigned:
		return d.taskAssigned(ctx, e)
	case domain.TaskStatusUpdated:
		return d.taskStatusUpdated(ctx, e)
	default:
		return nil
	}
}

func (d *NotificationDispatcher) incidentCreated(ctx context.Context, e domain.IncidentCreated) error {
	actorID := e.Actor.ID
	message := fmt.Sprintf("New %s incident %q reported by %s", e.Incident.Severity, e.Incident.Title, displayName(e.Actor))
	return d.notifications.SendNotificationToTeam(ctx, e.Incident.TeamID, "New incident", message, &actorID)
}

func (d *NotificationDispatcher) incidentStatusUpdated(ctx context.Context, e domain.IncidentStatusUpdated) error {
	actorID := e.Actor.ID
	message := fmt.Sprintf("Incident %q changed from %s to %s by %s",
		e.Incident.Title, e.PreviousStatus, e.Incident.Status, displayName(e.Actor))
	return d.notifications.SendNotificationToTeam(ctx, e.Incident.TeamID, "Incident status updated", message, &actorID)
}

func (d *NotificationDispatcher) taskCreated(ctx context.Context, e domain.TaskCreated) error {
	if e.Task.AssigneeID == nil {
		return nil
	}
	message := fmt.Sprintf("You have been assigned task %q on incident %s", e.Task.Title, e.Task.IncidentID)
	return d.notifications.SendNotification(ctx, *e.Task.AssigneeID, "New task assigned", message)
}

func (d *NotificationDispatcher) taskAssigned(ctx context.Context, e domain.TaskAssigned) error {
	previous := e.PreviousAssigneeID
	next := e.Task.AssigneeID
	if sameAssignee(previous, next) {
		return nil
	}

	var errs []error
	if previous != nil && *previous != e.Actor.ID {
		message := fmt.Sprintf("You have been unassigned from task %q on incident %s", e.Task.Title, e.Task.IncidentID)
		errs = append(errs, d.notifications.SendNotification(ctx, *previous, "Task unassigned", message))
	}
	if next != nil && *next != e.Actor.ID {
		message := fmt.Sprintf("You have been assigned task %q on incident %s by %s", e.Task.Title, e.Task.IncidentID, displayName(e.Actor))
		errs = append(errs, d.notifications.SendNotification(ctx, *next, "Task assigned", message))
	}
	return errors.Join(errs...)
}

func (d *NotificationDispatcher) taskStatusUpdated(ctx context.Context, e domain.TaskStatusUpdated) error {
	assignee := e.Task.AssigneeID
	if assignee == nil || *assignee == e.Actor.ID {
		return nil
	}
	message := fmt.Sprintf("Task %q changed from %s to %s by %s",
		e.Task.Title, e.PreviousStatus, e.Task.Status, displayName(e.Actor))
	return d.notifications.SendNotification(ctx, *assignee, "Task status updated", message)
}

func sameAssignee(a, b *uuid.UUID) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

func displayName(u domain.UserRef) string {
	if u.Name != "" {
		return u.Name
	}
	if u.Email != "" {
		return u.Email
	}
	return "someone"
}
