package service

import (
	"context"
	"errors"

	"github.com/globalmoves/community/internal/model"
	"github.com/globalmoves/community/internal/repository"
)

// RoleAdminStore extends RoleStore with grant management.
type RoleAdminStore interface {
	RoleStore
	Grant(ctx context.Context, userID string, role model.Role) error
	Revoke(ctx context.Context, userID string, role model.Role) error
}

// RoleService manages community-wide roles. All operations are admin only.
type RoleService struct {
	roles RoleAdminStore
	users UserStore
}

func NewRoleService(roles RoleAdminStore, users UserStore) *RoleService {
	return &RoleService{roles: roles, users: users}
}

func parseRole(s string) (model.Role, error) {
	switch model.Role(s) {
	case model.RoleAdmin:
		return model.RoleAdmin, nil
	case model.RoleModerator:
		return model.RoleModerator, nil
	}
	return "", Validationf("unknown role %q", s)
}

func (s *RoleService) requireAdmin(ctx context.Context, actorID string) error {
	isAdmin, err := s.roles.HasRole(ctx, actorID, model.RoleAdmin)
	if err != nil {
		return err
	}
	if !isAdmin {
		return Permissionf("only admins can manage roles")
	}
	return nil
}

// Grant gives targetID a community-wide role. Granting a role the user
// already holds is a no-op.
func (s *RoleService) Grant(ctx context.Context, actorID, targetID, roleName string) error {
	role, err := parseRole(roleName)
	if err != nil {
		return err
	}
	if err := s.requireAdmin(ctx, actorID); err != nil {
		return err
	}
	if _, err := s.users.GetByID(ctx, targetID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return NotFoundf("user not found")
		}
		return err
	}
	return s.roles.Grant(ctx, targetID, role)
}

// Revoke removes a community-wide role. An admin cannot revoke their own
// admin role, so the community always keeps at least the acting admin.
func (s *RoleService) Revoke(ctx context.Context, actorID, targetID, roleName string) error {
	role, err := parseRole(roleName)
	if err != nil {
		return err
	}
	if err := s.requireAdmin(ctx, actorID); err != nil {
		return err
	}
	if actorID == targetID && role == model.RoleAdmin {
		return Statef("admins cannot revoke their own admin role")
	}
	if _, err := s.users.GetByID(ctx, targetID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return NotFoundf("user not found")
		}
		return err
	}
	return s.roles.Revoke(ctx, targetID, role)
}
