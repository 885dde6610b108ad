package websocket

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/chiillbro/aether-incident-response-sub000/internal/core/domain"
	apperrors "github.com/chiillbro/aether-incident-response-sub000/internal/core/errors"
	"github.com/chiillbro/aether-incident-response-sub000/internal/core/ports"
	"github.com/chiillbro/aether-incident-response-sub000/internal/infrastructure/logging"
)

// HandlerFunc handles one inbound event. A returned error is sent back to
// the caller as an exception; the connection stays open.
type HandlerFunc func(ctx context.Context, conn ports.Connection, payload json.RawMessage) error

// Route binds an inbound event name to its handler.
type Route struct {
	Event   string
	Handler HandlerFunc
}

// Router is the explicit dispatch table for inbound events.
type Router struct {
	handlers map[string]HandlerFunc
	logger   *slog.Logger
}

// NewRouter validates routes and builds the table. Empty names, nil
// handlers and duplicates are rejected.
func NewRouter(routes []Route, logger *slog.Logger) (*Router, error) {
	handlers := make(map[string]HandlerFunc, len(routes))
	for _, r := range routes {
		if r.Event == "" {
			return nil, fmt.Errorf("route with empty event name")
		}
		if r.Handler == nil {
			return nil, fmt.Errorf("route %q has no handler", r.Event)
		}
		if _, dup := handlers[r.Event]; dup {
			return nil, fmt.Errorf("duplicate route %q", r.Event)
		}
		handlers[r.Event] = r.Handler
	}
	return &Router{
		handlers: handlers,
		logger:   logger.With("component", "websocket_router"),
	}, nil
}

// IncidentRoutes maps every inbound chat event onto the channel service.
func IncidentRoutes(svc ports.IncidentChannelService) []Route {
	return []Route{
		{domain.EventJoinIncidentRoom, incidentRoute(svc.JoinRoom)},
		{domain.EventLeaveIncidentRoom, incidentRoute(svc.LeaveRoom)},
		{domain.EventSendIncidentMessage, func(ctx context.Context, conn ports.Connection, raw json.RawMessage) error {
			p, err := decode[domain.SendMessagePayload](raw)
			if err != nil {
				return err
			}
			return svc.SendMessage(logging.WithIncidentID(ctx, p.IncidentID), conn, p)
		}},
		{domain.EventTyping, incidentRoute(svc.Typing)},
		{domain.EventStopTyping, incidentRoute(svc.StopTyping)},
		{domain.EventJoinTeamRoom, func(ctx context.Context, conn ports.Connection, raw json.RawMessage) error {
			p, err := decode[domain.TeamRoomRequest](raw)
			if err != nil {
				return err
			}
			return svc.JoinTeamRoom(ctx, conn, p.TeamID)
		}},
		{domain.EventLeaveTeamRoom, func(ctx context.Context, conn ports.Connection, raw json.RawMessage) error {
			p, err := decode[domain.TeamRoomRequest](raw)
			if err != nil {
				return err
			}
			return svc.LeaveTeamRoom(ctx, conn, p.TeamID)
		}},
		{domain.EventPing, func(ctx context.Context, conn ports.Connection, raw json.RawMessage) error {
			conn.Emit(domain.EventPong, nil)
			return nil
		}},
	}
}

// incidentRoute decodes an {incidentId} payload and tags the context with it
// before calling fn.
func incidentRoute(fn func(ctx context.Context, conn ports.Connection, incidentID string) error) HandlerFunc {
	return func(ctx context.Context, conn ports.Connection, raw json.RawMessage) error {
		p, err := decode[domain.IncidentRoomPayload](raw)
		if err != nil {
			return err
		}
		return fn(logging.WithIncidentID(ctx, p.IncidentID), conn, p.IncidentID)
	}
}

func decode[T any](raw json.RawMessage) (T, error) {
	var v T
	if len(raw) == 0 || string(raw) == "null" {
		return v, apperrors.ErrInvalidPayload
	}
	if err := json.Unmarshal(raw, &v); err != nil {
		return v, fmt.Errorf("%w: %v", apperrors.ErrInvalidPayload, err)
	}
	return v, nil
}

// Dispatch runs the handler for event and reports failures to conn.
func (r *Router) Dispatch(ctx context.Context, conn ports.Connection, event string, payload json.RawMessage) {
	ctx = logging.WithEvent(ctx, event)
	handler, ok := r.handlers[event]
	if !ok {
		r.reject(ctx, conn, event, apperrors.ErrUnknownEvent)
		return
	}

	if err := handler(ctx, conn, payload); err != nil {
		r.reject(ctx, conn, event, err)
	}
}

func (r *Router) reject(ctx context.Context, conn ports.Connection, event string, err error) {
	code := apperrors.CodeOf(err)
	message := err.Error()
	if !apperrors.IsClientError(err) {
		r.logger.ErrorContext(ctx, "event handler failed", "error", err)
		message = apperrors.ErrInternal.Error()
	} else {
		r.logger.WarnContext(ctx, "event rejected", "code", code, "error", err)
	}

	conn.Emit(domain.EventException, domain.ExceptionPayload{
		Event:   event,
		Code:    code,
		Message: message,
	})
}

// Events returns the registered event names.
func (r *Router) Events() []string {
	names := make([]string, 0, len(r.handlers))
	for name := range r.handlers {
		names = append(names, name)
	}
	return names
}
