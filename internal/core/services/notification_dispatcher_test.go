package services_test

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/chiillbro/aether-incident-response-sub000/internal/core/domain"
	"github.com/chiillbro/aether-incident-response-sub000/internal/core/events"
	"github.com/chiillbro/aether-incident-response-sub000/internal/core/mocks"
	"github.com/chiillbro/aether-incident-response-sub000/internal/core/services"
)

func newDispatcher() (*services.NotificationDispatcher, *mocks.MockNotificationService) {
	notifications := mocks.NewMockNotificationService()
	return services.NewNotificationDispatcher(notifications, discardLogger()), notifications
}

func TestNotificationDispatcher_Incidents(t *testing.T) {
	ctx := context.Background()
	teamID := uuid.New()
	actor := domain.UserRef{ID: uuid.New(), Name: "Grace"}
	incident := domain.Incident{
		ID:       "INC-1",
		Title:    "Checkout latency",
		Severity: domain.SeverityHigh,
		Status:   domain.IncidentInvestigating,
		TeamID:   teamID,
	}

	t.Run("created notifies the team except the creator", func(t *testing.T) {
		d, notifications := newDispatcher()
		notifications.On("SendNotificationToTeam", ctx, teamID, "New incident",
			`New HIGH incident "Checkout latency" reported by Grace`, &actor.ID).Return(nil)

		require.NoError(t, d.Handle(ctx, domain.IncidentCreated{Incident: incident, Actor: actor}))
		notifications.AssertExpectations(t)
	})

	t.Run("status update cites old and new status", func(t *testing.T) {
		d, notifications := newDispatcher()
		notifications.On("SendNotificationToTeam", ctx, teamID, "Incident status updated",
			`Incident "Checkout latency" changed from OPEN to INVESTIGATING by Grace`, &actor.ID).Return(nil)

		evt := domain.IncidentStatusUpdated{Incident: incident, PreviousStatus: domain.IncidentOpen, Actor: actor}
		require.NoError(t, d.Handle(ctx, evt))
		notifications.AssertExpectations(t)
	})
}

func TestNotificationDispatcher_TaskCreated(t *testing.T) {
	ctx := context.Background()
	assignee := uuid.New()

	t.Run("assigned task notifies the assignee", func(t *testing.T) {
		d, notifications := newDispatcher()
		notifications.On("SendNotification", ctx, assignee, "New task assigned", mock.Anything).Return(nil)

		task := domain.Task{ID: "T-1", IncidentID: "INC-1", Title: "Failover", AssigneeID: &assignee}
		require.NoError(t, d.Handle(ctx, domain.TaskCreated{Task: task}))
		notifications.AssertExpectations(t)
	})

	t.Run("unassigned task notifies nobody", func(t *testing.T) {
		d, notifications := newDispatcher()

		require.NoError(t, d.Handle(ctx, domain.TaskCreated{Task: domain.Task{ID: "T-1", IncidentID: "INC-1"}}))
		notifications.AssertNotCalled(t, "SendNotification", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})
}

func TestNotificationDispatcher_TaskAssigned(t *testing.T) {
	ctx := context.Background()
	u1, u2, u3 := uuid.New(), uuid.New(), uuid.New()

	t.Run("self assignment produces nothing", func(t *testing.T) {
		d, notifications := newDispatcher()

		evt := domain.TaskAssigned{
			Task:  domain.Task{ID: "T-1", IncidentID: "INC-1", AssigneeID: &u1},
			Actor: domain.UserRef{ID: u1},
		}
		require.NoError(t, d.Handle(ctx, evt))
		notifications.AssertNotCalled(t, "SendNotification", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("reassignment by a third user notifies both", func(t *testing.T) {
		d, notifications := newDispatcher()
		notifications.On("SendNotification", ctx, u1, "Task unassigned", mock.Anything).Return(nil).Once()
		notifications.On("SendNotification", ctx, u2, "Task assigned", mock.Anything).Return(nil).Once()

		evt := domain.TaskAssigned{
			Task:               domain.Task{ID: "T-1", IncidentID: "INC-1", AssigneeID: &u2},
			PreviousAssigneeID: &u1,
			Actor:              domain.UserRef{ID: u3},
		}
		require.NoError(t, d.Handle(ctx, evt))
		notifications.AssertExpectations(t)
		notifications.AssertNumberOfCalls(t, "SendNotification", 2)
	})

	t.Run("previous assignee handing off is not told", func(t *testing.T) {
		d, notifications := newDispatcher()
		notifications.On("SendNotification", ctx, u2, "Task assigned", mock.Anything).Return(nil).Once()

		evt := domain.TaskAssigned{
			Task:               domain.Task{ID: "T-1", IncidentID: "INC-1", AssigneeID: &u2},
			PreviousAssigneeID: &u1,
			Actor:              domain.UserRef{ID: u1},
		}
		require.NoError(t, d.Handle(ctx, evt))
		notifications.AssertNumberOfCalls(t, "SendNotification", 1)
	})

	t.Run("unassigning notifies the previous assignee", func(t *testing.T) {
		d, notifications := newDispatcher()
		notifications.On("SendNotification", ctx, u1, "Task unassigned", mock.Anything).Return(nil).Once()

		evt := domain.TaskAssigned{
			Task:               domain.Task{ID: "T-1", IncidentID: "INC-1"},
			PreviousAssigneeID: &u1,
			Actor:              domain.UserRef{ID: u3},
		}
		require.NoError(t, d.Handle(ctx, evt))
		notifications.AssertExpectations(t)
	})

	t.Run("unchanged assignee produces nothing", func(t *testing.T) {
		d, notifications := newDispatcher()

		evt := domain.TaskAssigned{
			Task:               domain.Task{ID: "T-1", IncidentID: "INC-1", AssigneeID: &u2},
			PreviousAssigneeID: &u2,
			Actor:              domain.UserRef{ID: u3},
		}
		require.NoError(t, d.Handle(ctx, evt))
		notifications.AssertNotCalled(t, "SendNotification", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})
}

func TestNotificationDispatcher_TaskStatusUpdated(t *testing.T) {
	ctx := context.Background()
	assignee := uuid.New()
	task := domain.Task{ID: "T-1", IncidentID: "INC-1", Title: "Failover", Status: domain.TaskDone, AssigneeID: &assignee}

	t.Run("someone else updates", func(t *testing.T) {
		d, notifications := newDispatcher()
		notifications.On("SendNotification", ctx, assignee, "Task status updated",
			`Task "Failover" changed from IN_PROGRESS to DONE by lead`).Return(nil)

		evt := domain.TaskStatusUpdated{Task: task, PreviousStatus: domain.TaskInProgress, Actor: domain.UserRef{ID: uuid.New(), Name: "lead"}}
		require.NoError(t, d.Handle(ctx, evt))
		notifications.AssertExpectations(t)
	})

	t.Run("assignee updates own task", func(t *testing.T) {
		d, notifications := newDispatcher()

		evt := domain.TaskStatusUpdated{Task: task, PreviousStatus: domain.TaskInProgress, Actor: domain.UserRef{ID: assignee}}
		require.NoError(t, d.Handle(ctx, evt))
		notifications.AssertNotCalled(t, "SendNotification", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})
}

func TestNotificationDispatcher_SubscribesToBus(t *testing.T) {
	ctx := context.Background()
	d, notifications := newDispatcher()
	bus := events.NewBus(discardLogger())
	unsubscribe := d.Subscribe(bus)

	assignee := uuid.New()
	notifications.On("SendNotification", ctx, assignee, "New task assigned", mock.Anything).Return(nil).Once()

	bus.Publish(ctx, domain.TaskCreated{Task: domain.Task{ID: "T-1", IncidentID: "INC-1", AssigneeID: &assignee}})
	notifications.AssertExpectations(t)

	unsubscribe()
	assert.Equal(t, 0, bus.SubscriptionCount())
}
