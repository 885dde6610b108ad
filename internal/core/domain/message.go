package domain

import (
	"strings"
	"time"

	"github.com/google/uuid"

	apperrors "github.com/chiillbro/aether-incident-response-sub000/internal/core/errors"
)

// DefaultMaxMessageLength bounds chat content when no limit is configured.
const DefaultMaxMessageLength = 4000

// Message is a persisted chat entry in an incident room.
type Message struct {
	ID         uuid.UUID `json:"id"`
	Content    string    `json:"content"`
	IncidentID string    `json:"incidentId"`
	SenderID   uuid.UUID `json:"senderId"`
	Sender     UserRef   `json:"sender"`
	CreatedAt  time.Time `json:"createdAt"`
}

// MessageParams holds the input for a new chat message.
type MessageParams struct {
	IncidentID string
	Content    string
	Sender     UserRef
	MaxLength  int
}

// NewMessage validates params and builds an unsaved message.
// Content is stored trimmed.
func NewMessage(params MessageParams) (*Message, error) {
	incidentID := strings.TrimSpace(params.IncidentID)
	if incidentID == "" {
		return nil, apperrors.ErrIncidentRequired
	}
	if params.Sender.ID == uuid.Nil {
		return nil, apperrors.ErrSenderRequired
	}

	content := strings.TrimSpace(params.Content)
	if content == "" {
		return nil, apperrors.ErrEmptyContent
	}

	maxLength := params.MaxLength
	if maxLength <= 0 {
		maxLength = DefaultMaxMessageLength
	}
	if len([]rune(content)) > maxLength {
		return nil, apperrors.ErrContentTooLong
	}

	return &Message{
		ID:         uuid.New(),
		Content:    content,
		IncidentID: incidentID,
		SenderID:   params.Sender.ID,
		Sender:     params.Sender,
		CreatedAt:  time.Now().UTC(),
	}, nil
}
