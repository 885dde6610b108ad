package subscriber

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/chiillbro/aether-incident-response-sub000/internal/adapters/secondary/messaging"
	"github.com/chiillbro/aether-incident-response-sub000/internal/core/domain"
	apperrors "github.com/chiillbro/aether-incident-response-sub000/internal/core/errors"
	"github.com/chiillbro/aether-incident-response-sub000/internal/core/ports"
)

const (
	eventConsumerGroup = "realtime-events"
	eventHandleTimeout = 10 * time.Second
)

// DomainEventConsumer feeds domain events published by other services into
// the in-process event bus.
type DomainEventConsumer struct {
	bus    ports.EventBus
	logger *slog.Logger
	sub    *nats.Subscription
}

func NewDomainEventConsumer(bus ports.EventBus, logger *slog.Logger) *DomainEventConsumer {
	return &DomainEventConsumer{
		bus:    bus,
		logger: logger.With("component", "domain_event_consumer"),
	}
}

var errDispatch = errors.New("event handlers failed")

var _ ports.EventIngester = (*DomainEventConsumer)(nil)

// Ingest decodes one envelope and dispatches it on the bus. Handler failures
// come back joined so a redelivering caller can retry.
func (c *DomainEventConsumer) Ingest(ctx context.Context, data []byte) error {
	evt, err := domain.DecodeDomainEvent(data)
	if err != nil {
		return err
	}
	c.logger.DebugContext(ctx, "domain event received", "event", evt.EventName())
	if err := c.bus.Dispatch(ctx, evt); err != nil {
		return fmt.Errorf("%w: %s: %w", errDispatch, evt.EventName(), err)
	}
	return nil
}

// Start binds a durable queue subscription on the domain event stream.
func (c *DomainEventConsumer) Start(ctx context.Context, js nats.JetStreamContext) error {
	sub, err := js.QueueSubscribe(messaging.EventSubjectPrefix+">", eventConsumerGroup, func(msg *nats.Msg) {
		handleCtx, cancel := context.WithTimeout(ctx, eventHandleTimeout)
		defer cancel()

		if err := c.Ingest(handleCtx, msg.Data); err != nil {
			if permanent(err) {
				c.logger.Warn("discarding domain event", "subject", msg.Subject, "error", err)
				_ = msg.Term()
				return
			}
			c.logger.Error("domain event failed", "subject", msg.Subject, "error", err)
			_ = msg.Nak()
			return
		}
		_ = msg.Ack()
	}, nats.Durable(eventConsumerGroup), nats.ManualAck(), nats.DeliverNew())
	if err != nil {
		return fmt.Errorf("subscribe domain events: %w", err)
	}
	c.sub = sub
	c.logger.Info("domain event consumer listening", "subject", sub.Subject)
	return nil
}

// Stop drains the subscription.
func (c *DomainEventConsumer) Stop() error {
	if c.sub == nil {
		return nil
	}
	return c.sub.Drain()
}

// permanent reports whether redelivery cannot fix err. Dispatch failures are
// retried even when a handler wrapped a client error.
func permanent(err error) bool {
	if errors.Is(err, errDispatch) {
		return false
	}
	return apperrors.IsClientError(err)
}
