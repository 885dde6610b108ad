package domain

import (
	"strings"

	"github.com/google/uuid"
)

// Channel name prefixes for the connection registry.
const (
	incidentChannelPrefix = "incident-"
	teamChannelPrefix     = "team-"
	userChannelPrefix     = "user-"

	// BroadcastChannel is joined by every authenticated connection.
	BroadcastChannel = "broadcast"
)

// Notification transport channels.
const (
	userNotificationPrefix = "user-notifications:"

	BroadcastNotificationChannel = "broadcast-notifications"
)

func IncidentChannel(incidentID string) string {
	return incidentChannelPrefix + incidentID
}

func TeamChannel(teamID uuid.UUID) string {
	return teamChannelPrefix + teamID.String()
}

func UserChannel(userID uuid.UUID) string {
	return userChannelPrefix + userID.String()
}

// UserNotificationChannel is the notification stream of a single user.
func UserNotificationChannel(userID uuid.UUID) string {
	return userNotificationPrefix + userID.String()
}

// ParseUserNotificationChannel extracts the user id from a
// user-notifications:{id} channel name.
func ParseUserNotificationChannel(channel string) (uuid.UUID, bool) {
	raw, ok := strings.CutPrefix(channel, userNotificationPrefix)
	if !ok {
		return uuid.Nil, false
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, false
	}
	return id, true
}

// IncidentIDFromChannel reverses IncidentChannel.
func IncidentIDFromChannel(channel string) (string, bool) {
	id, ok := strings.CutPrefix(channel, incidentChannelPrefix)
	return id, ok && id != ""
}
