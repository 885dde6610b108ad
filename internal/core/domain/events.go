package domain

// Inbound websocket events.
const (
	EventJoinIncidentRoom    = "joinIncidentRoom"
	EventLeaveIncidentRoom   = "leaveIncidentRoom"
	EventSendIncidentMessage = "sendIncidentMessage"
	EventTyping              = "typing"
	EventStopTyping          = "stopTyping"
	EventJoinTeamRoom        = "joinTeamRoom"
	EventLeaveTeamRoom       = "leaveTeamRoom"
	EventPing                = "ping"
)

// Outbound websocket events.
const (
	EventAuthenticated         = "authenticated"
	EventError                 = "error"
	EventException             = "exception"
	EventPong                  = "pong"
	EventJoinedRoom            = "joinedRoom"
	EventMessageHistory        = "messageHistory"
	EventJoinRoomError         = "joinRoomError"
	EventLeftRoom              = "leftRoom"
	EventNewIncidentMessage    = "newIncidentMessage"
	EventSendMessageError      = "sendMessageError"
	EventUserTyping            = "userTyping"
	EventUserStoppedTyping     = "userStoppedTyping"
	EventJoinedTeamRoom        = "joinedTeamRoom"
	EventLeftTeamRoom          = "leftTeamRoom"
	EventIncidentCreated       = "incidentCreated"
	EventIncidentStatusUpdated = "incidentStatusUpdated"
	EventTaskCreated           = "taskCreated"
	EventTaskUpdated           = "taskUpdated"
	EventTaskDeleted           = "taskDeleted"
	EventIncidentDeleted       = "incidentDeleted"
	EventNotification          = "notification"
)

// Event is the envelope written to and read from a websocket.
type Event struct {
	Type    string      `json:"type"`
	Payload interface{} `json:"payload"`
}

// Outbound payloads.

type AuthenticatedPayload struct {
	User Identity `json:"user"`
}

type AuthErrorPayload struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

type ExceptionPayload struct {
	Event   string `json:"event"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

type RoomPayload struct {
	IncidentID string `json:"incidentId"`
	Room       string `json:"room"`
}

type MessageHistoryPayload struct {
	IncidentID string     `json:"incidentId"`
	Messages   []*Message `json:"messages"`
}

type JoinRoomErrorPayload struct {
	IncidentID string `json:"incidentId"`
	Error      string `json:"error"`
}

type SendMessageErrorPayload struct {
	Error           string             `json:"error"`
	OriginalPayload SendMessagePayload `json:"originalPayload"`
}

type UserTypingPayload struct {
	UserID   string `json:"userId"`
	UserName string `json:"userName"`
}

type UserStoppedTypingPayload struct {
	UserID string `json:"userId"`
}

type TeamRoomPayload struct {
	TeamID string `json:"teamId"`
}

type IncidentStatusPayload struct {
	IncidentID string         `json:"incidentId"`
	Status     IncidentStatus `json:"status"`
	UpdatedBy  UserRef        `json:"updatedBy"`
}

type TaskDeletedPayload struct {
	TaskID string `json:"taskId"`
}

type IncidentDeletedPayload struct {
	IncidentID string `json:"incidentId"`
}

// Inbound payloads.

type IncidentRoomPayload struct {
	IncidentID string `json:"incidentId"`
}

type SendMessagePayload struct {
	IncidentID string `json:"incidentId"`
	Content    string `json:"content"`
}

type TeamRoomRequest struct {
	TeamID string `json:"teamId"`
}
