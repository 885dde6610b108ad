package subscriber

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chiillbro/aether-incident-response-sub000/internal/core/domain"
	apperrors "github.com/chiillbro/aether-incident-response-sub000/internal/core/errors"
	"github.com/chiillbro/aether-incident-response-sub000/internal/core/events"
	"github.com/chiillbro/aether-incident-response-sub000/internal/core/ports"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type published struct {
	channel string
	event   string
	payload interface{}
}

// recordingRegistry captures Publish calls. The remaining methods are unused.
type recordingRegistry struct {
	ports.ChannelRegistry
	mu   sync.Mutex
	sent []published
}

func (r *recordingRegistry) Publish(channel, event string, payload interface{}) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sent = append(r.sent, published{channel, event, payload})
}

func (r *recordingRegistry) calls() []published {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]published(nil), r.sent...)
}

func TestNotificationRelay_UserChannel(t *testing.T) {
	reg := &recordingRegistry{}
	relay := NewNotificationRelay(reg, discardLogger())
	userID := uuid.New()
	payload := domain.NotificationPayload{Title: "Paged", Message: "hi", Type: "user"}

	require.NoError(t, relay.Publish(context.Background(), domain.UserNotificationChannel(userID), payload))

	calls := reg.calls()
	require.Len(t, calls, 1)
	assert.Equal(t, domain.UserChannel(userID), calls[0].channel)
	assert.Equal(t, domain.EventNotification, calls[0].event)
	assert.Equal(t, payload, calls[0].payload)
}

func TestNotificationRelay_BroadcastChannel(t *testing.T) {
	reg := &recordingRegistry{}
	relay := NewNotificationRelay(reg, discardLogger())

	require.NoError(t, relay.Publish(context.Background(), domain.BroadcastNotificationChannel, domain.NotificationPayload{Message: "all"}))

	calls := reg.calls()
	require.Len(t, calls, 1)
	assert.Equal(t, domain.BroadcastChannel, calls[0].channel)
}

func TestNotificationRelay_RejectsUnknownChannel(t *testing.T) {
	reg := &recordingRegistry{}
	relay := NewNotificationRelay(reg, discardLogger())

	err := relay.Publish(context.Background(), "user-notifications:not-a-uuid", domain.NotificationPayload{})
	assert.Error(t, err)
	assert.Empty(t, reg.calls())
}

func TestNotificationRelay_RelayDecodesSubject(t *testing.T) {
	reg := &recordingRegistry{}
	relay := NewNotificationRelay(reg, discardLogger())
	userID := uuid.New()

	data, err := json.Marshal(domain.NotificationPayload{Title: "Paged", Message: "hi"})
	require.NoError(t, err)
	relay.relay("user-notifications."+userID.String(), data)
	relay.relay("user-notifications."+userID.String(), []byte("{bad"))

	calls := reg.calls()
	require.Len(t, calls, 1)
	assert.Equal(t, domain.UserChannel(userID), calls[0].channel)
}

func TestDomainEventConsumer_PublishesDecodedEvent(t *testing.T) {
	bus := events.NewBus(discardLogger())
	consumer := NewDomainEventConsumer(bus, discardLogger())

	got := make(chan domain.DomainEvent, 1)
	bus.Subscribe(domain.IncidentDeletedEvent, func(_ context.Context, evt domain.DomainEvent) error {
		got <- evt
		return nil
	})

	data, err := domain.EncodeDomainEvent(domain.IncidentDeleted{IncidentID: "INC-3", TeamID: uuid.New()}, time.Now())
	require.NoError(t, err)
	require.NoError(t, consumer.Ingest(context.Background(), data))

	select {
	case evt := <-got:
		deleted, ok := evt.(domain.IncidentDeleted)
		require.True(t, ok)
		assert.Equal(t, "INC-3", deleted.IncidentID)
	default:
		t.Fatal("event not published")
	}
}

func TestDomainEventConsumer_RejectsInvalidEnvelopes(t *testing.T) {
	bus := events.NewBus(discardLogger())
	consumer := NewDomainEventConsumer(bus, discardLogger())

	tests := []struct {
		name string
		data string
		want error
	}{
		{"not json", `{oops`, apperrors.ErrInvalidPayload},
		{"unknown type", `{"type":"Nope","payload":{}}`, apperrors.ErrUnknownEvent},
		{"missing incident", `{"type":"IncidentDeleted","payload":{}}`, apperrors.ErrIncidentRequired},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := consumer.Ingest(context.Background(), []byte(tt.data))
			require.Error(t, err)
			assert.ErrorIs(t, err, tt.want)
			assert.True(t, permanent(err))
		})
	}
}

func TestDomainEventConsumer_SurfacesHandlerFailures(t *testing.T) {
	bus := events.NewBus(discardLogger())
	consumer := NewDomainEventConsumer(bus, discardLogger())

	queueErr := errors.New("queue full")
	bus.Subscribe(domain.IncidentDeletedEvent, func(context.Context, domain.DomainEvent) error {
		return queueErr
	})
	bus.Subscribe(domain.IncidentDeletedEvent, func(context.Context, domain.DomainEvent) error {
		return apperrors.ErrInvalidPayload
	})

	data, err := domain.EncodeDomainEvent(domain.IncidentDeleted{IncidentID: "INC-4"}, time.Now())
	require.NoError(t, err)

	err = consumer.Ingest(context.Background(), data)
	require.Error(t, err)
	assert.ErrorIs(t, err, queueErr)
	assert.False(t, permanent(err), "handler failures must be redelivered")
}
