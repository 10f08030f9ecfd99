package model

import "time"

type InvitationStatus string

const (
	InvitationPending  InvitationStatus = "pending"
	InvitationAccepted InvitationStatus = "accepted"
	InvitationDeclined InvitationStatus = "declined"
)

type Invitation struct {
	ID            string           `json:"id"`
	RoomID        string           `json:"room_id"`
	InvitedUserID string           `json:"invited_user_id"`
	InvitedBy     *string          `json:"invited_by,omitempty"`
	Message       string           `json:"message,omitempty"`
	Status        InvitationStatus `json:"status"`
	CreatedAt     time.Time        `json:"created_at"`
	RespondedAt   *time.Time       `json:"responded_at,omitempty"`
}

// InvitationView is an invitation as seen in the invitee's inbox.
type InvitationView struct {
	Invitation  Invitation `json:"invitation"`
	RoomName    string     `json:"room_name"`
	RoomField   string     `json:"room_field"`
	InviterName string     `json:"inviter_name,omitempty"`
}
