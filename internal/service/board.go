package service

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"

	"github.com/globalmoves/community/internal/model"
	"github.com/globalmoves/community/internal/repository"
)

// OpportunityStore reads the external opportunity catalog.
type OpportunityStore interface {
	GetByID(ctx context.Context, id string) (*model.Opportunity, error)
	ListActive(ctx context.Context) ([]model.Opportunity, error)
}

// ShareStore is the slice of the share repository the board service needs.
type ShareStore interface {
	Create(ctx context.Context, s *model.SharedOpportunity) error
	ListByRoom(ctx context.Context, roomID string) ([]model.SharedOpportunity, error)
}

// RoomAccess answers whether a user may read a room. Implemented by ChatService.
type RoomAccess interface {
	Authorize(ctx context.Context, userID, roomID string) error
}

// BoardService owns the per-room feed of shared opportunities.
type BoardService struct {
	access        RoomAccess
	opportunities OpportunityStore
	shares        ShareStore
	users         UserStore
}

func NewBoardService(access RoomAccess, opportunities OpportunityStore, shares ShareStore, users UserStore) *BoardService {
	return &BoardService{access: access, opportunities: opportunities, shares: shares, users: users}
}

// Share pins an active catalog opportunity to a room's board. A repeat share
// of the same pair is a conflict.
func (s *BoardService) Share(ctx context.Context, userID, roomID, opportunityID, message string) (*model.SharedOpportunity, error) {
	if opportunityID == "" {
		return nil, Validationf("opportunity id is required")
	}
	if err := s.access.Authorize(ctx, userID, roomID); err != nil {
		return nil, err
	}
	opp, err := s.opportunities.GetByID(ctx, opportunityID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, NotFoundf("opportunity not found")
		}
		return nil, err
	}
	if !opp.IsActive {
		return nil, Statef("opportunity is no longer active")
	}

	share := &model.SharedOpportunity{
		ID:            uuid.New().String(),
		RoomID:        roomID,
		OpportunityID: opportunityID,
		SharedBy:      &userID,
		Message:       strings.TrimSpace(message),
		Opportunity:   opp,
	}
	if u, err := s.users.GetByID(ctx, userID); err == nil {
		share.SharedByName = DisplayName(u)
	} else {
		share.SharedByName = "Anonymous"
	}
	if err := s.shares.Create(ctx, share); err != nil {
		if errors.Is(err, repository.ErrConflict) {
			return nil, Conflictf("this opportunity has already been shared to the room")
		}
		return nil, err
	}
	return share, nil
}

// List returns the room's board newest first.
func (s *BoardService) List(ctx context.Context, userID, roomID string) ([]model.SharedOpportunity, error) {
	if err := s.access.Authorize(ctx, userID, roomID); err != nil {
		return nil, err
	}
	return s.shares.ListByRoom(ctx, roomID)
}

// Catalog returns the active opportunities ordered by title.
func (s *BoardService) Catalog(ctx context.Context) ([]model.Opportunity, error) {
	return s.opportunities.ListActive(ctx)
}

// CatalogItem returns one catalog entry.
func (s *BoardService) CatalogItem(ctx context.Context, id string) (*model.Opportunity, error) {
	opp, err := s.opportunities.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, NotFoundf("opportunity not found")
		}
		return nil, err
	}
	return opp, nil
}
