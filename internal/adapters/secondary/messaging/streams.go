package messaging

import (
	"errors"
	"strings"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/chiillbro/aether-incident-response-sub000/internal/core/domain"
)

const (
	jobsStream   = "NOTIFICATION_JOBS"
	eventsStream = "INCIDENT_EVENTS"

	// JobSubjectPrefix carries notification jobs, one subject per kind.
	JobSubjectPrefix = "notifications.job."
	// EventSubjectPrefix carries domain events from the CRUD service.
	EventSubjectPrefix = "incidents.event."

	// UserNotificationSubjects matches every per-user notification subject.
	UserNotificationSubjects = "user-notifications.*"

	jobsRetention   = 24 * time.Hour
	eventsRetention = 72 * time.Hour
)

// EnsureStreams creates the job and domain event streams when missing.
func EnsureStreams(js nats.JetStreamContext) error {
	streams := []*nats.StreamConfig{
		{
			Name:      jobsStream,
			Subjects:  []string{JobSubjectPrefix + ">"},
			Retention: nats.WorkQueuePolicy,
			Storage:   nats.FileStorage,
			MaxAge:    jobsRetention,
			Replicas:  1,
		},
		{
			Name:      eventsStream,
			Subjects:  []string{EventSubjectPrefix + ">"},
			Retention: nats.LimitsPolicy,
			Storage:   nats.FileStorage,
			MaxAge:    eventsRetention,
			Replicas:  1,
		},
	}
	for _, cfg := range streams {
		if _, err := js.StreamInfo(cfg.Name); err != nil {
			if !errors.Is(err, nats.ErrStreamNotFound) {
				return err
			}
			if _, err := js.AddStream(cfg); err != nil {
				return err
			}
		}
	}
	return nil
}

// JobSubject is where jobs of kind are published.
func JobSubject(kind domain.JobKind) string {
	if kind == "" {
		kind = "unknown"
	}
	return JobSubjectPrefix + string(kind)
}

// EventSubject is where a domain event of the given name is published.
func EventSubject(name domain.EventName) string {
	return EventSubjectPrefix + string(name)
}

// SubjectForChannel maps a notification channel to a NATS subject.
// "user-notifications:{id}" becomes "user-notifications.{id}".
func SubjectForChannel(channel string) string {
	return strings.ReplaceAll(channel, ":", ".")
}

// ChannelForSubject reverses SubjectForChannel.
func ChannelForSubject(subject string) string {
	if subject == domain.BroadcastNotificationChannel {
		return subject
	}
	if rest, ok := strings.CutPrefix(subject, "user-notifications."); ok {
		return "user-notifications:" + rest
	}
	return subject
}
