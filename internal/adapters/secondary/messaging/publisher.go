package messaging

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/chiillbro/aether-incident-response-sub000/internal/core/domain"
	"github.com/chiillbro/aether-incident-response-sub000/internal/core/ports"
)

// Publisher writes notification payloads to core NATS subjects.
type Publisher struct {
	conn *nats.Conn
}

var _ ports.NotificationPublisher = (*Publisher)(nil)

func NewPublisher(conn *nats.Conn) *Publisher {
	return &Publisher{conn: conn}
}

func (p *Publisher) Publish(ctx context.Context, channel string, payload domain.NotificationPayload) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("encode notification: %w", err)
	}
	if err := p.conn.Publish(SubjectForChannel(channel), data); err != nil {
		return fmt.Errorf("publish %s: %w", channel, err)
	}
	return nil
}

// PublishEvent puts a domain event envelope on its JetStream subject.
func PublishEvent(ctx context.Context, js nats.JetStreamContext, evt domain.DomainEvent) error {
	data, err := domain.EncodeDomainEvent(evt, time.Now())
	if err != nil {
		return err
	}
	if _, err := js.Publish(EventSubject(evt.EventName()), data, nats.Context(ctx)); err != nil {
		return fmt.Errorf("publish %s: %w", evt.EventName(), err)
	}
	return nil
}

// EventForwarder validates envelopes received over HTTP and puts them on the
// domain event stream, where the consumer group picks them up.
type EventForwarder struct {
	js nats.JetStreamContext
}

var _ ports.EventIngester = (*EventForwarder)(nil)

func NewEventForwarder(js nats.JetStreamContext) *EventForwarder {
	return &EventForwarder{js: js}
}

func (f *EventForwarder) Ingest(ctx context.Context, data []byte) error {
	evt, err := domain.DecodeDomainEvent(data)
	if err != nil {
		return err
	}
	return PublishEvent(ctx, f.js, evt)
}
