package subscriber

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/nats-io/nats.go"

	"github.com/chiillbro/aether-incident-response-sub000/internal/adapters/secondary/messaging"
	"github.com/chiillbro/aether-incident-response-sub000/internal/core/domain"
	"github.com/chiillbro/aether-incident-response-sub000/internal/core/ports"
)

// NotificationRelay delivers notification payloads to the sockets that
// joined the matching user or broadcast channel.
type NotificationRelay struct {
	registry ports.ChannelRegistry
	logger   *slog.Logger
}

var _ ports.NotificationPublisher = (*NotificationRelay)(nil)

func NewNotificationRelay(registry ports.ChannelRegistry, logger *slog.Logger) *NotificationRelay {
	return &NotificationRelay{
		registry: registry,
		logger:   logger.With("component", "notification_relay"),
	}
}

// Publish emits payload on the hub channel that maps to notification channel.
func (r *NotificationRelay) Publish(ctx context.Context, channel string, payload domain.NotificationPayload) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	target, err := hubChannel(channel)
	if err != nil {
		return err
	}
	r.registry.Publish(target, domain.EventNotification, payload)
	return nil
}

func hubChannel(channel string) (string, error) {
	if channel == domain.BroadcastNotificationChannel {
		return domain.BroadcastChannel, nil
	}
	if userID, ok := domain.ParseUserNotificationChannel(channel); ok {
		return domain.UserChannel(userID), nil
	}
	return "", fmt.Errorf("unknown notification channel %q", channel)
}

// Attach subscribes to the notification subjects so payloads published by
// any worker process reach sockets held by this one.
func (r *NotificationRelay) Attach(conn *nats.Conn) ([]*nats.Subscription, error) {
	subjects := []string{
		messaging.UserNotificationSubjects,
		messaging.SubjectForChannel(domain.BroadcastNotificationChannel),
	}

	subs := make([]*nats.Subscription, 0, len(subjects))
	for _, subject := range subjects {
		sub, err := conn.Subscribe(subject, func(msg *nats.Msg) {
			r.relay(msg.Subject, msg.Data)
		})
		if err != nil {
			for _, s := range subs {
				_ = s.Unsubscribe()
			}
			return nil, fmt.Errorf("subscribe %s: %w", subject, err)
		}
		subs = append(subs, sub)
	}
	r.logger.Info("notification relay attached", "subjects", subjects)
	return subs, nil
}

func (r *NotificationRelay) relay(subject string, data []byte) {
	var payload domain.NotificationPayload
	if err := json.Unmarshal(data, &payload); err != nil {
		r.logger.Warn("discarding invalid notification", "subject", subject, "error", err)
		return
	}
	if err := r.Publish(context.Background(), messaging.ChannelForSubject(subject), payload); err != nil {
		r.logger.Warn("notification not relayed", "subject", subject, "error", err)
	}
}
