package service

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"

	"github.com/globalmoves/community/internal/model"
	"github.com/globalmoves/community/internal/repository"
)

// MessageStore is the slice of the message repository the chat service needs.
type MessageStore interface {
	Create(ctx context.Context, m *model.Message) error
	ListByRoom(ctx context.Context, roomID string) ([]model.Message, error)
}

// ChatService owns the append-only message log and the room access rule shared
// by chat, shares and the realtime hub: public rooms are open to any
// authenticated user, private rooms to members only.
type ChatService struct {
	rooms    RoomStore
	members  MemberStore
	messages MessageStore
	users    UserStore
}

func NewChatService(rooms RoomStore, members MemberStore, messages MessageStore, users UserStore) *ChatService {
	return &ChatService{rooms: rooms, members: members, messages: messages, users: users}
}

// Authorize checks read/post access to a room for the user.
func (s *ChatService) Authorize(ctx context.Context, userID, roomID string) error {
	rm, err := s.rooms.GetByID(ctx, roomID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return NotFoundf("room not found")
		}
		return err
	}
	if !rm.IsPrivate {
		return nil
	}
	isMember, err := s.members.IsMember(ctx, roomID, userID)
	if err != nil {
		return err
	}
	if !isMember {
		return Permissionf("you are not a member of this room")
	}
	return nil
}

// SenderName resolves the author's display name best-effort; a failed lookup
// degrades to the placeholder instead of failing the post.
func (s *ChatService) SenderName(ctx context.Context, userID string) string {
	u, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return "Anonymous"
	}
	return DisplayName(u)
}

// Post appends a message to the room and returns it with the server-assigned
// id and timestamp. Content must be non-empty after trimming.
func (s *ChatService) Post(ctx context.Context, userID, roomID, content string) (*model.Message, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return nil, Validationf("message content cannot be empty")
	}
	if err := s.Authorize(ctx, userID, roomID); err != nil {
		return nil, err
	}
	m := &model.Message{
		ID:         uuid.New().String(),
		RoomID:     roomID,
		SenderID:   userID,
		SenderName: s.SenderName(ctx, userID),
		Content:    content,
	}
	if err := s.messages.Create(ctx, m); err != nil {
		return nil, err
	}
	return m, nil
}

// History returns the room's full message log in createdAt ascending order.
func (s *ChatService) History(ctx context.Context, userID, roomID string) ([]model.Message, error) {
	if err := s.Authorize(ctx, userID, roomID); err != nil {
		return nil, err
	}
	return s.messages.ListByRoom(ctx, roomID)
}
