package domain

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	apperrors "github.com/chiillbro/aether-incident-response-sub000/internal/core/errors"
)

// EventName identifies a domain event on the event bus.
type EventName string

const (
	IncidentCreatedEvent       EventName = "IncidentCreated"
	IncidentStatusUpdatedEvent EventName = "IncidentStatusUpdated"
	IncidentDeletedEvent       EventName = "IncidentDeleted"
	TaskCreatedEvent           EventName = "TaskCreated"
	TaskAssignedEvent          EventName = "TaskAssigned"
	TaskStatusUpdatedEvent     EventName = "TaskStatusUpdated"
	TaskUpdatedEvent           EventName = "TaskUpdated"
	TaskDeletedEvent           EventName = "TaskDeleted"
)

// DomainEvent is a business state change published after a write commits.
type DomainEvent interface {
	EventName() EventName
	Validate() error
}

type IncidentCreated struct {
	Incident Incident `json:"incident"`
	Actor    UserRef  `json:"actor"`
}

func (IncidentCreated) EventName() EventName { return IncidentCreatedEvent }

func (e IncidentCreated) Validate() error {
	if e.Incident.ID == "" {
		return apperrors.ErrIncidentRequired
	}
	return nil
}

type IncidentStatusUpdated struct {
	Incident       Incident       `json:"incident"`
	PreviousStatus IncidentStatus `json:"previousStatus"`
	Actor          UserRef        `json:"actor"`
}

func (IncidentStatusUpdated) EventName() EventName { return IncidentStatusUpdatedEvent }

func (e IncidentStatusUpdated) Validate() error {
	if e.Incident.ID == "" {
		return apperrors.ErrIncidentRequired
	}
	return nil
}

type IncidentDeleted struct {
	IncidentID string    `json:"incidentId"`
	TeamID     uuid.UUID `json:"teamId"`
	Actor      UserRef   `json:"actor"`
}

func (IncidentDeleted) EventName() EventName { return IncidentDeletedEvent }

func (e IncidentDeleted) Validate() error {
	if e.IncidentID == "" {
		return apperrors.ErrIncidentRequired
	}
	return nil
}

type TaskCreated struct {
	Task  Task    `json:"task"`
	Actor UserRef `json:"actor"`
}

func (TaskCreated) EventName() EventName { return TaskCreatedEvent }

func (e TaskCreated) Validate() error { return validateTask(&e.Task) }

// TaskAssigned carries the new assignee in Task.AssigneeID.
type TaskAssigned struct {
	Task               Task       `json:"task"`
	PreviousAssigneeID *uuid.UUID `json:"previousAssigneeId"`
	Actor              UserRef    `json:"actor"`
}

func (TaskAssigned) EventName() EventName { return TaskAssignedEvent }

func (e TaskAssigned) Validate() error { return validateTask(&e.Task) }

type TaskStatusUpdated struct {
	Task           Task       `json:"task"`
	PreviousStatus TaskStatus `json:"previousStatus"`
	Actor          UserRef    `json:"actor"`
}

func (TaskStatusUpdated) EventName() EventName { return TaskStatusUpdatedEvent }

func (e TaskStatusUpdated) Validate() error { return validateTask(&e.Task) }

type TaskUpdated struct {
	Task  Task    `json:"task"`
	Actor UserRef `json:"actor"`
}

func (TaskUpdated) EventName() EventName { return TaskUpdatedEvent }

func (e TaskUpdated) Validate() error { return validateTask(&e.Task) }

type TaskDeleted struct {
	TaskID     string  `json:"taskId"`
	IncidentID string  `json:"incidentId"`
	Actor      UserRef `json:"actor"`
}

func (TaskDeleted) EventName() EventName { return TaskDeletedEvent }

func (e TaskDeleted) Validate() error {
	if e.TaskID == "" || e.IncidentID == "" {
		return apperrors.ErrInvalidPayload
	}
	return nil
}

func validateTask(t *Task) error {
	if t.ID == "" || t.IncidentID == "" {
		return apperrors.ErrInvalidPayload
	}
	return nil
}

// EventEnvelope is the wire form of a domain event published by other services.
type EventEnvelope struct {
	Type       EventName       `json:"type"`
	OccurredAt time.Time       `json:"occurredAt"`
	Payload    json.RawMessage `json:"payload"`
}

var eventFactories = map[EventName]func() DomainEvent{
	IncidentCreatedEvent:       func() DomainEvent { return &IncidentCreated{} },
	IncidentStatusUpdatedEvent: func() DomainEvent { return &IncidentStatusUpdated{} },
	IncidentDeletedEvent:       func() DomainEvent { return &IncidentDeleted{} },
	TaskCreatedEvent:           func() DomainEvent { return &TaskCreated{} },
	TaskAssignedEvent:          func() DomainEvent { return &TaskAssigned{} },
	TaskStatusUpdatedEvent:     func() DomainEvent { return &TaskStatusUpdated{} },
	TaskUpdatedEvent:           func() DomainEvent { return &TaskUpdated{} },
	TaskDeletedEvent:           func() DomainEvent { return &TaskDeleted{} },
}

// EncodeDomainEvent wraps evt in an envelope.
func EncodeDomainEvent(evt DomainEvent, occurredAt time.Time) ([]byte, error) {
	payload, err := json.Marshal(evt)
	if err != nil {
		return nil, fmt.Errorf("marshal %s: %w", evt.EventName(), err)
	}
	return json.Marshal(EventEnvelope{
		Type:       evt.EventName(),
		OccurredAt: occurredAt.UTC(),
		Payload:    payload,
	})
}

// DecodeDomainEvent parses an envelope into a validated event value.
func DecodeDomainEvent(data []byte) (DomainEvent, error) {
	var env EventEnvelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("%w: %v", apperrors.ErrInvalidPayload, err)
	}

	factory, ok := eventFactories[EventName(strings.TrimSpace(string(env.Type)))]
	if !ok {
		return nil, fmt.Errorf("%w: %q", apperrors.ErrUnknownEvent, env.Type)
	}

	ptr := factory()
	if err := json.Unmarshal(env.Payload, ptr); err != nil {
		return nil, fmt.Errorf("%w: %v", apperrors.ErrInvalidPayload, err)
	}

	evt := derefEvent(ptr)
	if err := evt.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", env.Type, err)
	}
	return evt, nil
}

// derefEvent returns the value form so subscribers can type-switch on values.
func derefEvent(evt DomainEvent) DomainEvent {
	switch e := evt.(type) {
	case *IncidentCreated:
		return *e
	case *IncidentStatusUpdated:
		return *e
	case *IncidentDeleted:
		return *e
	case *TaskCreated:
		return *e
	case *TaskAssigned:
		return *e
	case *TaskStatusUpdated:
		return *e
	case *TaskUpdated:
		return *e
	case *TaskDeleted:
		return *e
	}
	return evt
}
