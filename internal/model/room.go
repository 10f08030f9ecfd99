package model

import "time"

type RoomRole string

const (
	RoomRoleOwner  RoomRole = "owner"
	RoomRoleMember RoomRole = "member"
)

type Room struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Field       string    `json:"field"`
	Description string    `json:"description"`
	IsPrivate   bool      `json:"is_private"`
	MaxMembers  *int      `json:"max_members,omitempty"`
	CreatedBy   *string   `json:"created_by,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

type RoomMember struct {
	RoomID   string   `json:"room_id"`
	UserID   string   `json:"user_id"`
	Role     RoomRole `json:"role"`
	JoinedAt time.Time `json:"joined_at"`
}

// RoomSummary is a room as seen in the listing: the row itself plus what
// the viewing user needs to render it.
type RoomSummary struct {
	Room        Room      `json:"room"`
	MemberCount int       `json:"member_count"`
	IsMember    bool      `json:"is_member"`
	Role        *RoomRole `json:"role,omitempty"`
	FieldMatch  bool      `json:"field_match"`
}

type RoomMemberInfo struct {
	User     UserPublic `json:"user"`
	Role     RoomRole   `json:"role"`
	JoinedAt time.Time  `json:"joined_at"`
}
