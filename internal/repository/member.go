package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/globalmoves/community/internal/logger"
	"github.com/globalmoves/community/internal/model"
)

type MemberRepository struct {
	pool *pgxpool.Pool
}

func NewMemberRepository(pool *pgxpool.Pool) *MemberRepository {
	return &MemberRepository{pool: pool}
}

func (r *MemberRepository) Add(ctx context.Context, roomID, userID string, role model.RoomRole) error {
	defer logger.DeferLogDuration("member.Add", time.Now())()
	_, err := r.pool.Exec(ctx,
		`INSERT INTO room_members (room_id, user_id, role) VALUES ($1, $2, $3)`,
		roomID, userID, role,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrConflict
		}
		return fmt.Errorf("memberRepo.Add: %w", err)
	}
	return nil
}

func (r *MemberRepository) Remove(ctx context.Context, roomID, userID string) error {
	defer logger.DeferLogDuration("member.Remove", time.Now())()
	tag, err := r.pool.Exec(ctx,
		`DELETE FROM room_members WHERE room_id = $1 AND user_id = $2`,
		roomID, userID,
	)
	if err != nil {
		return fmt.Errorf("memberRepo.Remove: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *MemberRepository) GetRole(ctx context.Context, roomID, userID string) (model.RoomRole, error) {
	defer logger.DeferLogDuration("member.GetRole", time.Now())()
	var role model.RoomRole
	err := r.pool.QueryRow(ctx,
		`SELECT role FROM room_members WHERE room_id = $1 AND user_id = $2`,
		roomID, userID,
	).Scan(&role)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("memberRepo.GetRole: %w", err)
	}
	return role, nil
}

func (r *MemberRepository) IsMember(ctx context.Context, roomID, userID string) (bool, error) {
	defer logger.DeferLogDuration("member.IsMember", time.Now())()
	var exists bool
	err := r.pool.QueryRow(ctx,
		`SELECT EXISTS(SELECT 1 FROM room_members WHERE room_id = $1 AND user_id = $2)`,
		roomID, userID,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("memberRepo.IsMember: %w", err)
	}
	return exists, nil
}

func (r *MemberRepository) Count(ctx context.Context, roomID string) (int, error) {
	defer logger.DeferLogDuration("member.Count", time.Now())()
	var count int
	err := r.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM room_members WHERE room_id = $1`, roomID,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("memberRepo.Count: %w", err)
	}
	return count, nil
}

func (r *MemberRepository) List(ctx context.Context, roomID string) ([]model.RoomMemberInfo, error) {
	defer logger.DeferLogDuration("member.List", time.Now())()
	rows, err := r.pool.Query(ctx,
		`SELECT u.id, u.display_name, u.field_of_work, u.country, COALESCE(u.avatar_url,''), rm.role, rm.joined_at
		 FROM room_members rm
		 JOIN users u ON u.id = rm.user_id
		 WHERE rm.room_id = $1
		 ORDER BY rm.joined_at`, roomID,
	)
	if err != nil {
		return nil, fmt.Errorf("memberRepo.List query: %w", err)
	}
	defer rows.Close()

	out := make([]model.RoomMemberInfo, 0, 8)
	for rows.Next() {
		var m model.RoomMemberInfo
		if err := rows.Scan(&m.User.ID, &m.User.DisplayName, &m.User.FieldOfWork, &m.User.Country, &m.User.AvatarURL, &m.Role, &m.JoinedAt); err != nil {
			return nil, fmt.Errorf("memberRepo.List scan: %w", err)
		}
		out = append(out, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("memberRepo.List rows: %w", err)
	}
	return out, nil
}
