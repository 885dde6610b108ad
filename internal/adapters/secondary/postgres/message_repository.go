package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/chiillbro/aether-incident-response-sub000/internal/core/domain"
	"github.com/chiillbro/aether-incident-response-sub000/internal/core/ports"
)

// MessageRepository stores incident chat messages.
type MessageRepository struct {
	pool *pgxpool.Pool
}

var _ ports.MessageRepository = (*MessageRepository)(nil)

func NewMessageRepository(pool *pgxpool.Pool) *MessageRepository {
	return &MessageRepository{pool: pool}
}

const saveMessageSQL = `
WITH inserted AS (
    INSERT INTO messages (id, incident_id, sender_id, content, created_at)
    VALUES ($1, $2, $3, $4, $5)
    RETURNING id, incident_id, sender_id, content, created_at
)
SELECT i.id, i.incident_id, i.sender_id, i.content, i.created_at, u.full_name, u.email
FROM inserted i
JOIN users u ON u.id = i.sender_id`

const listRecentMessagesSQL = `
SELECT m.id, m.incident_id, m.sender_id, m.content, m.created_at, u.full_name, u.email
FROM messages m
JOIN users u ON u.id = m.sender_id
WHERE m.incident_id = $1
ORDER BY m.created_at DESC, m.id DESC
LIMIT $2`

const fetchMessageHistorySQL = `
SELECT * FROM (` + listRecentMessagesSQL + `
) recent
ORDER BY created_at ASC, id ASC`

// SaveMessage persists msg and returns it with the sender resolved.
func (r *MessageRepository) SaveMessage(ctx context.Context, msg *domain.Message) (*domain.Message, error) {
	id := msg.ID
	if id == uuid.Nil {
		id = uuid.New()
	}
	createdAt := msg.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}

	rows, err := GetDBTX(ctx, r.pool).Query(ctx, saveMessageSQL, id, msg.IncidentID, msg.SenderID, msg.Content, createdAt)
	if err != nil {
		return nil, fmt.Errorf("save message: %w", err)
	}

	saved, err := pgx.CollectExactlyOneRow(rows, scanMessage)
	if err != nil {
		return nil, fmt.Errorf("save message: %w", err)
	}
	return saved, nil
}

// FetchMessageHistory returns the newest limit messages, oldest first.
func (r *MessageRepository) FetchMessageHistory(ctx context.Context, incidentID string, limit int) ([]*domain.Message, error) {
	return r.list(ctx, fetchMessageHistorySQL, incidentID, limit)
}

// ListRecentMessages returns the newest limit messages, newest first.
func (r *MessageRepository) ListRecentMessages(ctx context.Context, incidentID string, limit int) ([]*domain.Message, error) {
	return r.list(ctx, listRecentMessagesSQL, incidentID, limit)
}

func (r *MessageRepository) list(ctx context.Context, query, incidentID string, limit int) ([]*domain.Message, error) {
	rows, err := GetDBTX(ctx, r.pool).Query(ctx, query, incidentID, limit)
	if err != nil {
		return nil, fmt.Errorf("list messages for %s: %w", incidentID, err)
	}

	messages, err := pgx.CollectRows(rows, scanMessage)
	if err != nil {
		return nil, fmt.Errorf("scan messages for %s: %w", incidentID, err)
	}
	return messages, nil
}

func scanMessage(row pgx.CollectableRow) (*domain.Message, error) {
	var msg domain.Message
	if err := row.Scan(
		&msg.ID,
		&msg.IncidentID,
		&msg.SenderID,
		&msg.Content,
		&msg.CreatedAt,
		&msg.Sender.Name,
		&msg.Sender.Email,
	); err != nil {
		return nil, err
	}
	msg.Sender.ID = msg.SenderID
	msg.CreatedAt = msg.CreatedAt.UTC()
	return &msg, nil
}
