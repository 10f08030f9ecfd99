package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/globalmoves/community/internal/logger"
	"github.com/globalmoves/community/internal/model"
)

type RoleRepository struct {
	pool *pgxpool.Pool
}

func NewRoleRepository(pool *pgxpool.Pool) *RoleRepository {
	return &RoleRepository{pool: pool}
}

// HasRole reports whether the user holds the community-wide role. A user with
// no user_roles rows simply has none, that is not an error.
func (r *RoleRepository) HasRole(ctx context.Context, userID string, role model.Role) (bool, error) {
	defer logger.DeferLogDuration("role.HasRole", time.Now())()
	var exists bool
	err := r.pool.QueryRow(ctx,
		`SELECT EXISTS(SELECT 1 FROM user_roles WHERE user_id = $1 AND role = $2)`,
		userID, role,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("roleRepo.HasRole: %w", err)
	}
	return exists, nil
}

// Grant gives the user a role; granting an already-held role is a no-op.
func (r *RoleRepository) Grant(ctx context.Context, userID string, role model.Role) error {
	defer logger.DeferLogDuration("role.Grant", time.Now())()
	_, err := r.pool.Exec(ctx,
		`INSERT INTO user_roles (user_id, role) VALUES ($1, $2) ON CONFLICT DO NOTHING`,
		userID, role,
	)
	if err != nil {
		return fmt.Errorf("roleRepo.Grant: %w", err)
	}
	return nil
}

// Revoke removes a role from the user.
func (r *RoleRepository) Revoke(ctx context.Context, userID string, role model.Role) error {
	defer logger.DeferLogDuration("role.Revoke", time.Now())()
	_, err := r.pool.Exec(ctx,
		`DELETE FROM user_roles WHERE user_id = $1 AND role = $2`,
		userID, role,
	)
	if err != nil {
		return fmt.Errorf("roleRepo.Revoke: %w", err)
	}
	return nil
}
