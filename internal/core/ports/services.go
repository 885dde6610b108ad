package ports

import (
	"context"

	"github.com/google/uuid"

	"github.com/chiillbro/aether-incident-response-sub000/internal/core/domain"
)

// Connection is one live real-time session as seen by the core.
type Connection interface {
	ID() string
	// Identity returns the attached identity once the connection is authenticated.
	Identity() (*domain.Identity, bool)
	SetIdentity(identity *domain.Identity)
	// Emit queues an event for this connection only. It never blocks.
	Emit(event string, payload interface{})
	Close(reason string)
}

// ChannelRegistry maps channel names to the live connections that joined them.
type ChannelRegistry interface {
	Register(conn Connection)
	// Unregister drops conn from every channel it joined.
	Unregister(conn Connection)
	Join(channel string, conn Connection)
	Leave(channel string, conn Connection)
	IsMember(channel string, conn Connection) bool
	Publish(channel, event string, payload interface{})
	// PublishExcept skips every connection authenticated as excludeUserID.
	PublishExcept(channel string, excludeUserID uuid.UUID, event string, payload interface{})
	// DisconnectAll closes every connection currently in channel.
	DisconnectAll(channel, reason string)
}

// TokenVerifier validates a bearer credential and returns its subject.
type TokenVerifier interface {
	VerifySubject(token string) (uuid.UUID, error)
}

// TokenIssuer mints bearer credentials for an identity.
type TokenIssuer interface {
	GenerateToken(identity domain.Identity) (string, error)
}

// Gatekeeper authenticates a connection from its handshake credential.
type Gatekeeper interface {
	Authenticate(ctx context.Context, conn Connection, credential string) (*domain.Identity, error)
}

// IncidentChannelService coordinates incident and team rooms.
type IncidentChannelService interface {
	JoinRoom(ctx context.Context, conn Connection, incidentID string) error
	LeaveRoom(ctx context.Context, conn Connection, incidentID string) error
	SendMessage(ctx context.Context, conn Connection, payload domain.SendMessagePayload) error
	Typing(ctx context.Context, conn Connection, incidentID string) error
	StopTyping(ctx context.Context, conn Connection, incidentID string) error
	JoinTeamRoom(ctx context.Context, conn Connection, teamID string) error
	LeaveTeamRoom(ctx context.Context, conn Connection, teamID string) error
	// Connected is called once a connection has been authenticated.
	Connected(conn Connection)
	Disconnect(conn Connection)
	RecentMessages(ctx context.Context, incidentID string, limit int) ([]*domain.Message, error)
}

// NotificationService submits notification jobs.
type NotificationService interface {
	SendNotification(ctx context.Context, userID uuid.UUID, title, message string) error
	SendNotificationToTeam(ctx context.Context, teamID uuid.UUID, title, message string, actorID *uuid.UUID) error
	Broadcast(ctx context.Context, title, message string) error
}

// JobQueue accepts notification jobs for at-least-once processing.
type JobQueue interface {
	Submit(ctx context.Context, job *domain.NotificationJob) error
}

// JobProcessor handles one delivery attempt of a job. A returned error asks
// the queue to retry.
type JobProcessor interface {
	Process(ctx context.Context, job *domain.NotificationJob) error
}

// NotificationPublisher writes a payload onto a notification channel.
type NotificationPublisher interface {
	Publish(ctx context.Context, channel string, payload domain.NotificationPayload) error
}

// EventHandler handles one domain event.
type EventHandler func(ctx context.Context, evt domain.DomainEvent) error

// EventBus is the in-process domain event bus.
type EventBus interface {
	Publish(ctx context.Context, evt domain.DomainEvent)
	// Dispatch is Publish that also returns the joined handler errors.
	Dispatch(ctx context.Context, evt domain.DomainEvent) error
	Subscribe(name domain.EventName, handler EventHandler) (unsubscribe func())
}

// EventIngester accepts one encoded domain event envelope from outside the
// process.
type EventIngester interface {
	Ingest(ctx context.Context, data []byte) error
}
