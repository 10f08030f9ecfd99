package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/globalmoves/community/internal/model"
	"github.com/globalmoves/community/internal/repository"
)

// MemberStore is the slice of the member repository the services need.
type MemberStore interface {
	Add(ctx context.Context, roomID, userID string, role model.RoomRole) error
	Remove(ctx context.Context, roomID, userID string) error
	GetRole(ctx context.Context, roomID, userID string) (model.RoomRole, error)
	IsMember(ctx context.Context, roomID, userID string) (bool, error)
	Count(ctx context.Context, roomID string) (int, error)
	List(ctx context.Context, roomID string) ([]model.RoomMemberInfo, error)
}

// InvitationStore is the slice of the invitation repository the services need.
type InvitationStore interface {
	Create(ctx context.Context, inv *model.Invitation) error
	GetByID(ctx context.Context, id string) (*model.Invitation, error)
	ExistsForUser(ctx context.Context, roomID, userID string) (bool, error)
	ListPendingForUser(ctx context.Context, userID string) ([]model.InvitationView, error)
	Accept(ctx context.Context, invitationID, roomID, userID string) error
	Decline(ctx context.Context, invitationID string) error
}

// MembershipService owns the invite/respond/leave/remove workflow for private rooms.
type MembershipService struct {
	rooms       RoomStore
	members     MemberStore
	invitations InvitationStore
	users       UserStore
}

func NewMembershipService(rooms RoomStore, members MemberStore, invitations InvitationStore, users UserStore) *MembershipService {
	return &MembershipService{rooms: rooms, members: members, invitations: invitations, users: users}
}

func (s *MembershipService) getRoom(ctx context.Context, roomID string) (*model.Room, error) {
	rm, err := s.rooms.GetByID(ctx, roomID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, NotFoundf("room not found")
		}
		return nil, err
	}
	return rm, nil
}

// Invite creates a pending invitation addressed to the user with the given
// email. Owner only. Any existing invitation for the pair blocks a new one,
// whatever its status.
func (s *MembershipService) Invite(ctx context.Context, actorID, roomID, inviteEmail, message string) (*model.Invitation, error) {
	inviteEmail = strings.TrimSpace(strings.ToLower(inviteEmail))
	if inviteEmail == "" {
		return nil, Validationf("email is required")
	}
	rm, err := s.getRoom(ctx, roomID)
	if err != nil {
		return nil, err
	}
	if !rm.IsPrivate {
		return nil, Validationf("public rooms are open to everyone, no invitation needed")
	}
	role, err := s.members.GetRole(ctx, roomID, actorID)
	if err != nil && !errors.Is(err, repository.ErrNotFound) {
		return nil, err
	}
	if role != model.RoomRoleOwner {
		return nil, Permissionf("only the room owner can invite")
	}

	invited, err := s.users.GetByEmail(ctx, inviteEmail)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, NotFoundf("no member found with that email")
		}
		return nil, err
	}
	isMember, err := s.members.IsMember(ctx, roomID, invited.ID)
	if err != nil {
		return nil, err
	}
	if isMember {
		return nil, Conflictf("%s is already a member of this room", DisplayName(invited))
	}
	if rm.MaxMembers != nil {
		count, err := s.members.Count(ctx, roomID)
		if err != nil {
			return nil, err
		}
		if count >= *rm.MaxMembers {
			return nil, Conflictf("room is full")
		}
	}
	exists, err := s.invitations.ExistsForUser(ctx, roomID, invited.ID)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, Conflictf("%s has already been invited to this room", DisplayName(invited))
	}

	inv := &model.Invitation{
		ID:            uuid.New().String(),
		RoomID:        roomID,
		InvitedUserID: invited.ID,
		InvitedBy:     &actorID,
		Message:       strings.TrimSpace(message),
		Status:        model.InvitationPending,
		CreatedAt:     time.Now().UTC(),
	}
	if err := s.invitations.Create(ctx, inv); err != nil {
		if errors.Is(err, repository.ErrConflict) {
			// Lost a race with a concurrent invite
			return nil, Conflictf("%s has already been invited to this room", DisplayName(invited))
		}
		return nil, err
	}
	return inv, nil
}

// Respond accepts or declines a pending invitation. Only the addressed user
// may respond; accepting creates the membership atomically with the status flip.
func (s *MembershipService) Respond(ctx context.Context, userID, invitationID string, accept bool) (*model.Invitation, error) {
	inv, err := s.invitations.GetByID(ctx, invitationID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, NotFoundf("invitation not found")
		}
		return nil, err
	}
	if inv.InvitedUserID != userID {
		return nil, Permissionf("this invitation is addressed to someone else")
	}
	if inv.Status != model.InvitationPending {
		return nil, Statef("invitation has already been %s", inv.Status)
	}

	if accept {
		err = s.invitations.Accept(ctx, invitationID, inv.RoomID, userID)
	} else {
		err = s.invitations.Decline(ctx, invitationID)
	}
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrRoomFull):
			return nil, Conflictf("room is full")
		case errors.Is(err, repository.ErrConflict):
			return nil, Statef("invitation has already been answered")
		case errors.Is(err, repository.ErrNotFound):
			return nil, NotFoundf("room not found")
		}
		return nil, err
	}
	return s.invitations.GetByID(ctx, invitationID)
}

// Inbox returns the caller's pending invitations with room and inviter resolved.
func (s *MembershipService) Inbox(ctx context.Context, userID string) ([]model.InvitationView, error) {
	return s.invitations.ListPendingForUser(ctx, userID)
}

// Leave removes the caller's own membership. The owner cannot leave.
func (s *MembershipService) Leave(ctx context.Context, userID, roomID string) error {
	if _, err := s.getRoom(ctx, roomID); err != nil {
		return err
	}
	role, err := s.members.GetRole(ctx, roomID, userID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return Statef("you are not a member of this room")
		}
		return err
	}
	if role == model.RoomRoleOwner {
		return Permissionf("the room owner cannot leave; delete the room instead")
	}
	if err := s.members.Remove(ctx, roomID, userID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return Statef("you are not a member of this room")
		}
		return err
	}
	return nil
}

// RemoveMember lets the owner remove a member. The owner membership itself is untouchable.
func (s *MembershipService) RemoveMember(ctx context.Context, actorID, roomID, targetID string) error {
	if _, err := s.getRoom(ctx, roomID); err != nil {
		return err
	}
	actorRole, err := s.members.GetRole(ctx, roomID, actorID)
	if err != nil && !errors.Is(err, repository.ErrNotFound) {
		return err
	}
	if actorRole != model.RoomRoleOwner {
		return Permissionf("only the room owner can remove members")
	}
	targetRole, err := s.members.GetRole(ctx, roomID, targetID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return NotFoundf("membership not found")
		}
		return err
	}
	if targetRole == model.RoomRoleOwner {
		return Permissionf("the room owner cannot be removed")
	}
	if err := s.members.Remove(ctx, roomID, targetID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return NotFoundf("membership not found")
		}
		return err
	}
	return nil
}

// Members returns the roster of a room. Private rooms are visible to members only.
func (s *MembershipService) Members(ctx context.Context, viewerID, roomID string) ([]model.RoomMemberInfo, error) {
	rm, err := s.getRoom(ctx, roomID)
	if err != nil {
		return nil, err
	}
	if rm.IsPrivate {
		isMember, err := s.members.IsMember(ctx, roomID, viewerID)
		if err != nil {
			return nil, err
		}
		if !isMember {
			return nil, Permissionf("you are not a member of this room")
		}
	}
	return s.members.List(ctx, roomID)
}
