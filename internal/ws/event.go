package ws

import (
	"github.com/globalmoves/community/internal/model"
)

type EventType string

// Commands accepted from clients.
const (
	CommandJoinRoom    EventType = "join_room"
	CommandLeaveRoom   EventType = "leave_room"
	CommandSendMessage EventType = "send_message"
)

// Events pushed to clients.
const (
	EventMessageNew        EventType = "message_new"
	EventOpportunityShared EventType = "opportunity_shared"
	EventPresenceSync      EventType = "presence_sync"
	EventPresenceJoin      EventType = "presence_join"
	EventPresenceLeave     EventType = "presence_leave"
	EventRoomDeleted       EventType = "room_deleted"
	EventError             EventType = "error"
)

// IncomingMessage is what the client sends to the server.
type IncomingMessage struct {
	Type    EventType `json:"type"`
	RoomID  string    `json:"room_id,omitempty"`
	Content string    `json:"content,omitempty"`
}

// OutgoingMessage is what the server sends to the client.
// Payload uses typed structs to avoid heap-heavy map[string]any.
type OutgoingMessage struct {
	Type    EventType `json:"type"`
	Payload any       `json:"payload"`
}

// PresenceEntry is one user in a room roster.
type PresenceEntry struct {
	UserID      string `json:"user_id"`
	DisplayName string `json:"display_name"`
}

// PresenceSyncPayload is sent to a client right after it joins a room.
type PresenceSyncPayload struct {
	RoomID string          `json:"room_id"`
	Users  []PresenceEntry `json:"users"`
}

// PresenceJoinPayload is broadcast when a user becomes present in a room.
type PresenceJoinPayload struct {
	RoomID string        `json:"room_id"`
	User   PresenceEntry `json:"user"`
}

// PresenceLeavePayload is broadcast when a user loses presence in a room.
type PresenceLeavePayload struct {
	RoomID string `json:"room_id"`
	UserID string `json:"user_id"`
}

// RoomDeletedPayload is broadcast to a room before its subscriptions are torn down.
type RoomDeletedPayload struct {
	RoomID string `json:"room_id"`
}

// ErrorPayload is sent to a single client when a command fails.
type ErrorPayload struct {
	Message string `json:"message"`
}

// SharedOpportunityPayload wraps a share for the opportunity_shared event.
type SharedOpportunityPayload struct {
	RoomID string                  `json:"room_id"`
	Share  *model.SharedOpportunity `json:"share"`
}
