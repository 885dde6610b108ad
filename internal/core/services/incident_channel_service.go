package services

import (
	"context"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	"github.com/chiillbro/aether-incident-response-sub000/internal/core/domain"
	apperrors "github.com/chiillbro/aether-incident-response-sub000/internal/core/errors"
	"github.com/chiillbro/aether-incident-response-sub000/internal/core/ports"
)

const (
	DefaultHistoryLimit = 50
	maxRecentLimit      = 200
)

// ChatConfig holds the limits of the incident chat.
type ChatConfig struct {
	HistoryLimit     int
	MaxMessageLength int
}

// IncidentChannelService coordinates incident rooms, team rooms and
// the outbound incident and task events.
type IncidentChannelService struct {
	registry ports.ChannelRegistry
	messages ports.MessageRepository
	typing   *TypingTracker
	cfg      ChatConfig
	logger   *slog.Logger
}

var _ ports.IncidentChannelService = (*IncidentChannelService)(nil)

func NewIncidentChannelService(
	registry ports.ChannelRegistry,
	messages ports.MessageRepository,
	typing *TypingTracker,
	cfg ChatConfig,
	logger *slog.Logger,
) *IncidentChannelService {
	if cfg.HistoryLimit <= 0 {
		cfg.HistoryLimit = DefaultHistoryLimit
	}
	if cfg.MaxMessageLength <= 0 {
		cfg.MaxMessageLength = domain.DefaultMaxMessageLength
	}
	return &IncidentChannelService{
		registry: registry,
		messages: messages,
		typing:   typing,
		cfg:      cfg,
		logger:   logger.With("component", "incident_channel"),
	}
}

func requireIdentity(conn ports.Connection) (*domain.Identity, error) {
	identity, ok := conn.Identity()
	if !ok || identity == nil {
		return nil, apperrors.ErrNotAuthenticated
	}
	return identity, nil
}

func normalizeIncidentID(incidentID string) (string, error) {
	id := strings.TrimSpace(incidentID)
	if id == "" {
		return "", apperrors.ErrIncidentRequired
	}
	return id, nil
}

func parseTeamID(teamID string) (uuid.UUID, error) {
	raw := strings.TrimSpace(teamID)
	if raw == "" {
		return uuid.Nil, apperrors.ErrTeamRequired
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, apperrors.ErrInvalidPayload
	}
	return id, nil
}

// Connected joins an authenticated connection to its private user channel
// and the broadcast channel.
func (s *IncidentChannelService) Connected(conn ports.Connection) {
	identity, err := requireIdentity(conn)
	if err != nil {
		return
	}
	s.registry.Join(domain.UserChannel(identity.ID), conn)
	s.registry.Join(domain.BroadcastChannel, conn)
}

// JoinRoom seats conn in the incident room and replays recent history.
// A history failure is reported to the caller only; the join stands.
func (s *IncidentChannelService) JoinRoom(ctx context.Context, conn ports.Connection, incidentID string) error {
	identity, err := requireIdentity(conn)
	if err != nil {
		return err
	}
	id, err := normalizeIncidentID(incidentID)
	if err != nil {
		return err
	}

	room := domain.IncidentChannel(id)
	s.registry.Join(room, conn)
	conn.Emit(domain.EventJoinedRoom, domain.RoomPayload{IncidentID: id, Room: room})

	s.logger.DebugContext(ctx, "joined incident room",
		"connection_id", conn.ID(),
		"user_id", identity.ID,
		"room", room,
	)

	history, err := s.messages.FetchMessageHistory(ctx, id, s.cfg.HistoryLimit)
	if err != nil {
		s.logger.ErrorContext(ctx, "failed to fetch message history",
			"incident_id", id,
			"error", err,
		)
		conn.Emit(domain.EventJoinRoomError, domain.JoinRoomErrorPayload{
			IncidentID: id,
			Error:      apperrors.ErrHistoryUnavailable.Error(),
		})
		return nil
	}
	if history == nil {
		history = []*domain.Message{}
	}

	conn.Emit(domain.EventMessageHistory, domain.MessageHistoryPayload{IncidentID: id, Messages: history})
	return nil
}

// LeaveRoom removes conn from the incident room and ends typing there.
func (s *IncidentChannelService) LeaveRoom(ctx context.Context, conn ports.Connection, incidentID string) error {
	identity, err := requireIdentity(conn)
	if err != nil {
		return err
	}
	id, err := normalizeIncidentID(incidentID)
	if err != nil {
		return err
	}

	room := domain.IncidentChannel(id)
	s.typing.Stop(identity.ID, id)
	s.registry.Leave(room, conn)
	conn.Emit(domain.EventLeftRoom, domain.RoomPayload{IncidentID: id, Room: room})

	s.logger.DebugContext(ctx, "left incident room",
		"connection_id", conn.ID(),
		"user_id", identity.ID,
		"room", room,
	)
	return nil
}

// SendMessage persists a chat message and broadcasts it to the room.
// Typing is cleared before the store is called. A store failure is
// reported to the sender only.
func (s *IncidentChannelService) SendMessage(ctx context.Context, conn ports.Connection, payload domain.SendMessagePayload) error {
	identity, err := requireIdentity(conn)
	if err != nil {
		return err
	}

	// 1. Validate
	msg, err := domain.NewMessage(domain.MessageParams{
		IncidentID: payload.IncidentID,
		Content:    payload.Content,
		Sender:     identity.Ref(),
		MaxLength:  s.cfg.MaxMessageLength,
	})
	if err != nil {
		return err
	}

	// 2. Clear typing
	s.typing.Stop(identity.ID, msg.IncidentID)

	// 3. Persist
	saved, err := s.messages.SaveMessage(ctx, msg)
	if err != nil {
		s.logger.ErrorContext(ctx, "failed to save message",
			"incident_id", msg.IncidentID,
			"user_id", identity.ID,
			"error", err,
		)
		conn.Emit(domain.EventSendMessageError, domain.SendMessageErrorPayload{
			Error:           apperrors.ErrMessageNotSaved.Error(),
			OriginalPayload: payload,
		})
		return nil
	}

	// 4. Broadcast
	s.registry.Publish(domain.IncidentChannel(saved.IncidentID), domain.EventNewIncidentMessage, saved)
	return nil
}

// Typing records a typing signal for the incident.
func (s *IncidentChannelService) Typing(ctx context.Context, conn ports.Connection, incidentID string) error {
	identity, err := requireIdentity(conn)
	if err != nil {
		return err
	}
	id, err := normalizeIncidentID(incidentID)
	if err != nil {
		return err
	}

	s.typing.Start(identity, id)
	return nil
}

// StopTyping ends typing in the incident, if that is the current scope.
func (s *IncidentChannelService) StopTyping(ctx context.Context, conn ports.Connection, incidentID string) error {
	identity, err := requireIdentity(conn)
	if err != nil {
		return err
	}
	id, err := normalizeIncidentID(incidentID)
	if err != nil {
		return err
	}

	s.typing.Stop(identity.ID, id)
	return nil
}

// JoinTeamRoom admits ADMIN users and members of the team.
func (s *IncidentChannelService) JoinTeamRoom(ctx context.Context, conn ports.Connection, teamID string) error {
	identity, err := requireIdentity(conn)
	if err != nil {
		return err
	}
	id, err := parseTeamID(teamID)
	if err != nil {
		return err
	}

	if !identity.CanJoinTeam(id) {
		s.logger.WarnContext(ctx, "team room join denied",
			"connection_id", conn.ID(),
			"user_id", identity.ID,
			"team_id", id,
		)
		return apperrors.ErrNotAuthorized
	}

	s.registry.Join(domain.TeamChannel(id), conn)
	conn.Emit(domain.EventJoinedTeamRoom, domain.TeamRoomPayload{TeamID: id.String()})
	return nil
}

func (s *IncidentChannelService) LeaveTeamRoom(ctx context.Context, conn ports.Connection, teamID string) error {
	if _, err := requireIdentity(conn); err != nil {
		return err
	}
	id, err := parseTeamID(teamID)
	if err != nil {
		return err
	}

	s.registry.Leave(domain.TeamChannel(id), conn)
	conn.Emit(domain.EventLeftTeamRoom, domain.TeamRoomPayload{TeamID: id.String()})
	return nil
}

// Disconnect ends the user's typing state and drops every membership of conn.
func (s *IncidentChannelService) Disconnect(conn ports.Connection) {
	if identity, ok := conn.Identity(); ok && identity != nil {
		s.typing.StopAll(identity.ID)
	}
	s.registry.Unregister(conn)
}

// RecentMessages returns the newest messages of an incident, newest first.
func (s *IncidentChannelService) RecentMessages(ctx context.Context, incidentID string, limit int) ([]*domain.Message, error) {
	id, err := normalizeIncidentID(incidentID)
	if err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = s.cfg.HistoryLimit
	}
	if limit > maxRecentLimit {
		limit = maxRecentLimit
	}
	return s.messages.ListRecentMessages(ctx, id, limit)
}

// EmitIncidentCreated announces a new incident to its team room.
func (s *IncidentChannelService) EmitIncidentCreated(incident domain.Incident) {
	s.registry.Publish(domain.TeamChannel(incident.TeamID), domain.EventIncidentCreated, incident)
}

func (s *IncidentChannelService) EmitIncidentStatusUpdated(incidentID string, status domain.IncidentStatus, updatedBy domain.UserRef) {
	s.registry.Publish(domain.IncidentChannel(incidentID), domain.EventIncidentStatusUpdated, domain.IncidentStatusPayload{
		IncidentID: incidentID,
		Status:     status,
		UpdatedBy:  updatedBy,
	})
}

func (s *IncidentChannelService) EmitTaskCreated(task domain.Task) {
	s.registry.Publish(domain.IncidentChannel(task.IncidentID), domain.EventTaskCreated, task)
}

func (s *IncidentChannelService) EmitTaskUpdated(task domain.Task) {
	s.registry.Publish(domain.IncidentChannel(task.IncidentID), domain.EventTaskUpdated, task)
}

func (s *IncidentChannelService) EmitTaskDeleted(incidentID, taskID string) {
	s.registry.Publish(domain.IncidentChannel(incidentID), domain.EventTaskDeleted, domain.TaskDeletedPayload{TaskID: taskID})
}

// EmitIncidentDeleted notifies the room, then evicts everyone in it.
func (s *IncidentChannelService) EmitIncidentDeleted(incidentID string) {
	room := domain.IncidentChannel(incidentID)
	s.registry.Publish(room, domain.EventIncidentDeleted, domain.IncidentDeletedPayload{IncidentID: incidentID})
	s.registry.DisconnectAll(room, "incident deleted")
}

// Subscribe routes domain events from the bus to the Emit methods.
func (s *IncidentChannelService) Subscribe(bus ports.EventBus) func() {
	names := []domain.EventName{
		domain.IncidentCreatedEvent,
		domain.IncidentStatusUpdatedEvent,
		domain.IncidentDeletedEvent,
		domain.TaskCreatedEvent,
		domain.TaskAssignedEvent,
		domain.TaskStatusUpdatedEvent,
		domain.TaskUpdatedEvent,
		domain.TaskDeletedEvent,
	}

	unsubscribers := make([]func(), 0, len(names))
	for _, name := range names {
		unsubscribers = append(unsubscribers, bus.Subscribe(name, s.onEvent))
	}
	return func() {
		for _, unsubscribe := range unsubscribers {
			unsubscribe()
		}
	}
}

func (s *IncidentChannelService) onEvent(ctx context.Context, evt domain.DomainEvent) error {
	switch e := evt.(type) {
	case domain.IncidentCreated:
		s.EmitIncidentCreated(e.Incident)
	case domain.IncidentStatusUpdated:
		s.EmitIncidentStatusUpdated(e.Incident.ID, e.Incident.Status, e.Actor)
	case domain.IncidentDeleted:
		s.EmitIncidentDeleted(e.IncidentID)
	case domain.TaskCreated:
		s.EmitTaskCreated(e.Task)
	case domain.TaskAssigned:
		s.EmitTaskUpdated(e.Task)
	case domain.TaskStatusUpdated:
		s.EmitTaskUpdated(e.Task)
	case domain.TaskUpdated:
		s.EmitTaskUpdated(e.Task)
	case domain.TaskDeleted:
		s.EmitTaskDeleted(e.IncidentID, e.TaskID)
	}
	return nil
}
