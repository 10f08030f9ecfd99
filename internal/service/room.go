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

const (
	defaultMaxMembers = 10
	minMaxMembers     = 2
	maxMaxMembers     = 50
)

// RoomStore is the slice of the room repository the services need.
type RoomStore interface {
	Create(ctx context.Context, rm *model.Room) error
	CreateWithOwner(ctx context.Context, rm *model.Room, ownerID string) error
	GetByID(ctx context.Context, id string) (*model.Room, error)
	Delete(ctx context.Context, id string) error
	ListVisible(ctx context.Context, viewerID string) ([]model.RoomSummary, error)
}

// RoleStore answers community-wide role checks.
type RoleStore interface {
	HasRole(ctx context.Context, userID string, role model.Role) (bool, error)
}

type RoomService struct {
	rooms RoomStore
	users UserStore
	roles RoleStore
}

func NewRoomService(rooms RoomStore, users UserStore, roles RoleStore) *RoomService {
	return &RoomService{rooms: rooms, users: users, roles: roles}
}

// List returns the rooms visible to the viewer, public first then by name,
// with the rooms matching the viewer's field of work marked. The field match
// is advisory and degrades silently when the profile lookup fails.
func (s *RoomService) List(ctx context.Context, viewerID string) ([]model.RoomSummary, error) {
	rooms, err := s.rooms.ListVisible(ctx, viewerID)
	if err != nil {
		return nil, err
	}
	if viewer, err := s.users.GetByID(ctx, viewerID); err == nil && viewer.FieldOfWork != "" {
		for i := range rooms {
			rooms[i].FieldMatch = strings.EqualFold(rooms[i].Room.Field, viewer.FieldOfWork)
		}
	}
	return rooms, nil
}

func (s *RoomService) Get(ctx context.Context, id string) (*model.Room, error) {
	rm, err := s.rooms.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, NotFoundf("room not found")
		}
		return nil, err
	}
	return rm, nil
}

// CreatePrivate creates an invite-only room and its owner membership atomically.
func (s *RoomService) CreatePrivate(ctx context.Context, ownerID, name, field, description string, maxMembers *int) (*model.Room, error) {
	name = strings.TrimSpace(name)
	field = strings.TrimSpace(field)
	if name == "" {
		return nil, Validationf("room name is required")
	}
	if field == "" {
		return nil, Validationf("room field is required")
	}
	limit := defaultMaxMembers
	if maxMembers != nil {
		limit = *maxMembers
	}
	if limit < minMaxMembers || limit > maxMaxMembers {
		return nil, Validationf("max members must be between %d and %d", minMaxMembers, maxMaxMembers)
	}
	rm := &model.Room{
		ID:          uuid.New().String(),
		Name:        name,
		Field:       field,
		Description: strings.TrimSpace(description),
		IsPrivate:   true,
		MaxMembers:  &limit,
		CreatedBy:   &ownerID,
		CreatedAt:   time.Now().UTC(),
	}
	if err := s.rooms.CreateWithOwner(ctx, rm, ownerID); err != nil {
		return nil, err
	}
	return rm, nil
}

// CreatePublic seeds an open room. Admin only; public rooms carry no owner,
// no capacity and no membership rows.
func (s *RoomService) CreatePublic(ctx context.Context, actorID, name, field, description string) (*model.Room, error) {
	isAdmin, err := s.roles.HasRole(ctx, actorID, model.RoleAdmin)
	if err != nil {
		return nil, err
	}
	if !isAdmin {
		return nil, Permissionf("only admins can create public rooms")
	}
	name = strings.TrimSpace(name)
	field = strings.TrimSpace(field)
	if name == "" {
		return nil, Validationf("room name is required")
	}
	if field == "" {
		return nil, Validationf("room field is required")
	}
	rm := &model.Room{
		ID:          uuid.New().String(),
		Name:        name,
		Field:       field,
		Description: strings.TrimSpace(description),
		IsPrivate:   false,
		CreatedAt:   time.Now().UTC(),
	}
	if err := s.rooms.Create(ctx, rm); err != nil {
		return nil, err
	}
	return rm, nil
}

// Delete removes a private room and everything in it. Only the creator may
// delete; public rooms have no owner-based deletion. Returns the deleted room
// so the caller can notify live subscribers.
func (s *RoomService) Delete(ctx context.Context, actorID, roomID string) (*model.Room, error) {
	rm, err := s.Get(ctx, roomID)
	if err != nil {
		return nil, err
	}
	if !rm.IsPrivate || rm.CreatedBy == nil {
		return nil, Permissionf("this room cannot be deleted")
	}
	if *rm.CreatedBy != actorID {
		return nil, Permissionf("only the room owner can delete it")
	}
	if err := s.rooms.Delete(ctx, roomID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, NotFoundf("room not found")
		}
		return nil, err
	}
	return rm, nil
}
