package service

import (
	"context"
	"errors"
	"strings"

	"github.com/globalmoves/community/internal/model"
	"github.com/globalmoves/community/internal/repository"
)

// UserStore is the slice of the user repository the services need.
type UserStore interface {
	GetByID(ctx context.Context, id string) (*model.User, error)
	GetByEmail(ctx context.Context, email string) (*model.User, error)
	UpdateProfile(ctx context.Context, userID string, upd model.ProfileUpdate) error
}

// DisplayName resolves the name shown next to messages and shares:
// display name, then the email local part, then "Anonymous".
func DisplayName(u *model.User) string {
	if u == nil {
		return "Anonymous"
	}
	if name := strings.TrimSpace(u.DisplayName); name != "" {
		return name
	}
	if at := strings.Index(u.Email, "@"); at > 0 {
		return u.Email[:at]
	}
	return "Anonymous"
}

type ProfileService struct {
	users UserStore
}

func NewProfileService(users UserStore) *ProfileService {
	return &ProfileService{users: users}
}

func (s *ProfileService) Get(ctx context.Context, userID string) (*model.User, error) {
	u, err := s.users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, NotFoundf("profile not found")
		}
		return nil, err
	}
	return u, nil
}

func (s *ProfileService) Update(ctx context.Context, userID string, upd model.ProfileUpdate) (*model.User, error) {
	if upd.DisplayName != nil && strings.TrimSpace(*upd.DisplayName) == "" {
		return nil, Validationf("display name cannot be empty")
	}
	if err := s.users.UpdateProfile(ctx, userID, upd); err != nil {
		return nil, err
	}
	return s.Get(ctx, userID)
}
