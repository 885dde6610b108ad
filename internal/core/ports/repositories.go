package ports

import (
	"context"

	"github.com/google/uuid"

	"github.com/chiillbro/aether-incident-response-sub000/internal/core/domain"
)

// MessageRepository is the message-store collaborator.
type MessageRepository interface {
	SaveMessage(ctx context.Context, msg *domain.Message) (*domain.Message, error)
	// FetchMessageHistory returns the most recent limit messages in ascending order.
	FetchMessageHistory(ctx context.Context, incidentID string, limit int) ([]*domain.Message, error)
	// ListRecentMessages returns the most recent limit messages, newest first.
	ListRecentMessages(ctx context.Context, incidentID string, limit int) ([]*domain.Message, error)
}

// UserRepository is the identity-store collaborator.
type UserRepository interface {
	GetByID(ctx context.Context, id uuid.UUID) (*domain.User, error)
	// Create assigns an ID when user has none and fills CreatedAt.
	Create(ctx context.Context, user *domain.User) (*domain.User, error)
}

// TeamRepository is the team-membership collaborator.
type TeamRepository interface {
	FetchTeamMemberIDs(ctx context.Context, teamID uuid.UUID) ([]uuid.UUID, error)
	Create(ctx context.Context, name string) (uuid.UUID, error)
}

// TransactionManager runs fn as one unit of work. Repository calls made with
// the ctx passed to fn join it.
type TransactionManager interface {
	WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}

// HealthChecker is implemented by infrastructure that can be checked for readiness.
type HealthChecker interface {
	Ping(ctx context.Context) error
}
