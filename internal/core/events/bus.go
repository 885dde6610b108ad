package events

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime/debug"
	"sync"
	"sync/atomic"

	"github.com/chiillbro/aether-incident-response-sub000/internal/core/domain"
	"github.com/chiillbro/aether-incident-response-sub000/internal/core/ports"
)

// wildcard subscribers receive every event.
const wildcard domain.EventName = "*"

type subscription struct {
	id      uint64
	handler ports.EventHandler
}

// Bus is a synchronous in-process domain event bus.
// A failing or panicking handler never stops the remaining handlers.
type Bus struct {
	mu            sync.RWMutex
	subscriptions map[domain.EventName][]subscription
	nextID        atomic.Uint64
	logger        *slog.Logger
}

var _ ports.EventBus = (*Bus)(nil)

func NewBus(logger *slog.Logger) *Bus {
	return &Bus{
		subscriptions: make(map[domain.EventName][]subscription),
		logger:        logger.With("component", "event_bus"),
	}
}

// Subscribe registers handler for name and returns a function that removes it.
func (b *Bus) Subscribe(name domain.EventName, handler ports.EventHandler) func() {
	b.mu.Lock()
	defer b.mu.Unlock()

	id := b.nextID.Add(1)
	b.subscriptions[name] = append(b.subscriptions[name], subscription{id: id, handler: handler})

	var once sync.Once
	return func() {
		once.Do(func() { b.unsubscribe(name, id) })
	}
}

// SubscribeAll registers handler for every event name.
func (b *Bus) SubscribeAll(handler ports.EventHandler) func() {
	return b.Subscribe(wildcard, handler)
}

func (b *Bus) unsubscribe(name domain.EventName, id uint64) {
	b.mu.Lock()
	defer b.mu.Unlock()

	subs := b.subscriptions[name]
	for i, sub := range subs {
		if sub.id == id {
			b.subscriptions[name] = append(subs[:i:i], subs[i+1:]...)
			return
		}
	}
}

// Publish dispatches evt and logs handler failures.
func (b *Bus) Publish(ctx context.Context, evt domain.DomainEvent) {
	_ = b.Dispatch(ctx, evt)
}

// Dispatch runs specific handlers in registration order, then wildcard
// handlers, and returns every handler failure joined. A failing or
// panicking handler does not stop the rest.
func (b *Bus) Dispatch(ctx context.Context, evt domain.DomainEvent) error {
	name := evt.EventName()

	b.mu.RLock()
	specific := append([]subscription(nil), b.subscriptions[name]...)
	all := append([]subscription(nil), b.subscriptions[wildcard]...)
	b.mu.RUnlock()

	var errs []error
	for _, sub := range specific {
		errs = append(errs, b.safeCall(ctx, sub.handler, evt))
	}
	for _, sub := range all {
		errs = append(errs, b.safeCall(ctx, sub.handler, evt))
	}
	return errors.Join(errs...)
}

func (b *Bus) safeCall(ctx context.Context, handler ports.EventHandler, evt domain.DomainEvent) (err error) {
	defer func() {
		if r := recover(); r != nil {
			b.logger.ErrorContext(ctx, "event handler panicked",
				"event", evt.EventName(),
				"panic", fmt.Sprint(r),
				"stack", string(debug.Stack()),
			)
			err = fmt.Errorf("%s handler panicked: %v", evt.EventName(), r)
		}
	}()

	if err = handler(ctx, evt); err != nil {
		b.logger.ErrorContext(ctx, "event handler failed",
			"event", evt.EventName(),
			"error", err,
		)
	}
	return err
}

// SubscriptionCount returns the number of active subscriptions.
func (b *Bus) SubscriptionCount() int {
	b.mu.RLock()
	defer b.mu.RUnlock()

	count := 0
	for _, subs := range b.subscriptions {
		count += len(subs)
	}
	return count
}
