package domain

import (
	"strings"
	"time"

	"github.com/google/uuid"

	apperrors "github.com/chiillbro/aether-incident-response-sub000/internal/core/errors"
)

// JobKind selects how a notification job picks its recipients.
type JobKind string

const (
	JobKindUser      JobKind = "user"
	JobKindTeam      JobKind = "team"
	JobKindBroadcast JobKind = "broadcast"
)

// NotificationJob is a unit of deferred notification work.
type NotificationJob struct {
	ID         string     `json:"id"`
	Kind       JobKind    `json:"type"`
	UserID     *uuid.UUID `json:"userId,omitempty"`
	TeamID     *uuid.UUID `json:"teamId,omitempty"`
	Title      string     `json:"title"`
	Message    string     `json:"message"`
	ActorID    *uuid.UUID `json:"actorId,omitempty"`
	EnqueuedAt time.Time  `json:"enqueuedAt"`
}

// Validate checks the job carries the selector its kind needs.
// Unknown kinds pass so the worker can log and drop them.
func (j *NotificationJob) Validate() error {
	if strings.TrimSpace(j.Message) == "" {
		return apperrors.ErrInvalidJob
	}
	switch j.Kind {
	case JobKindUser:
		if j.UserID == nil || *j.UserID == uuid.Nil {
			return apperrors.ErrInvalidJob
		}
	case JobKindTeam:
		if j.TeamID == nil || *j.TeamID == uuid.Nil {
			return apperrors.ErrInvalidJob
		}
	}
	return nil
}

// Payload builds what is published to a recipient's notification channel.
// The timestamp is the enqueue time, so every retry carries the same value.
// now only stands in for jobs that were never stamped.
func (j *NotificationJob) Payload(now time.Time) NotificationPayload {
	ts := j.EnqueuedAt
	if ts.IsZero() {
		ts = now
	}
	return NotificationPayload{
		Title:     j.Title,
		Message:   j.Message,
		Type:      string(j.Kind),
		Timestamp: ts.UTC(),
	}
}

// NotificationPayload is what subscribers of a notification channel receive.
type NotificationPayload struct {
	Title     string    `json:"title"`
	Message   string    `json:"message"`
	Type      string    `json:"type"`
	Timestamp time.Time `json:"timestamp"`
}
