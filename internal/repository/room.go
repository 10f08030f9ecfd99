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

const roomCols = `id, name, field, description, is_private, max_members, created_by, created_at`

type RoomRepository struct {
	pool *pgxpool.Pool
}

func NewRoomRepository(pool *pgxpool.Pool) *RoomRepository {
	return &RoomRepository{pool: pool}
}

func scanRoom(s interface{ Scan(dest ...any) error }, rm *model.Room) error {
	return s.Scan(&rm.ID, &rm.Name, &rm.Field, &rm.Description, &rm.IsPrivate, &rm.MaxMembers, &rm.CreatedBy, &rm.CreatedAt)
}

// Create inserts a room without any membership rows (public rooms).
func (r *RoomRepository) Create(ctx context.Context, rm *model.Room) error {
	defer logger.DeferLogDuration("room.Create", time.Now())()
	_, err := r.pool.Exec(ctx,
		`INSERT INTO breakout_rooms (id, name, field, description, is_private, max_members, created_by, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		rm.ID, rm.Name, rm.Field, rm.Description, rm.IsPrivate, rm.MaxMembers, rm.CreatedBy, rm.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("roomRepo.Create: %w", err)
	}
	return nil
}

// CreateWithOwner inserts a private room and its owner membership in one transaction.
func (r *RoomRepository) CreateWithOwner(ctx context.Context, rm *model.Room, ownerID string) error {
	defer logger.DeferLogDuration("room.CreateWithOwner", time.Now())()
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("roomRepo.CreateWithOwner begin: %w", err)
	}
	defer tx.Rollback(ctx)

	_, err = tx.Exec(ctx,
		`INSERT INTO breakout_rooms (id, name, field, description, is_private, max_members, created_by, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		rm.ID, rm.Name, rm.Field, rm.Description, rm.IsPrivate, rm.MaxMembers, rm.CreatedBy, rm.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("roomRepo.CreateWithOwner room: %w", err)
	}
	_, err = tx.Exec(ctx,
		`INSERT INTO room_members (room_id, user_id, role) VALUES ($1, $2, $3)`,
		rm.ID, ownerID, model.RoomRoleOwner,
	)
	if err != nil {
		return fmt.Errorf("roomRepo.CreateWithOwner owner: %w", err)
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("roomRepo.CreateWithOwner commit: %w", err)
	}
	return nil
}

func (r *RoomRepository) GetByID(ctx context.Context, id string) (*model.Room, error) {
	defer logger.DeferLogDuration("room.GetByID", time.Now())()
	rm := &model.Room{}
	row := r.pool.QueryRow(ctx, `SELECT `+roomCols+` FROM breakout_rooms WHERE id = $1`, id)
	if err := scanRoom(row, rm); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("roomRepo.GetByID: %w", err)
	}
	return rm, nil
}

// Delete removes a room; memberships, invitations, messages and shares go with
// it via ON DELETE CASCADE.
func (r *RoomRepository) Delete(ctx context.Context, id string) error {
	defer logger.DeferLogDuration("room.Delete", time.Now())()
	tag, err := r.pool.Exec(ctx, `DELETE FROM breakout_rooms WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("roomRepo.Delete: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// ListVisible returns every public room plus the private rooms the viewer
// belongs to, public first then by name, with member counts and the viewer's role.
func (r *RoomRepository) ListVisible(ctx context.Context, viewerID string) ([]model.RoomSummary, error) {
	defer logger.DeferLogDuration("room.ListVisible", time.Now())()
	rows, err := r.pool.Query(ctx,
		`SELECT r.id, r.name, r.field, r.description, r.is_private, r.max_members, r.created_by, r.created_at,
		        (SELECT COUNT(*) FROM room_members m WHERE m.room_id = r.id),
		        rm.role
		 FROM breakout_rooms r
		 LEFT JOIN room_members rm ON rm.room_id = r.id AND rm.user_id = $1
		 WHERE r.is_private = FALSE OR rm.user_id IS NOT NULL
		 ORDER BY r.is_private, r.name`, viewerID,
	)
	if err != nil {
		return nil, fmt.Errorf("roomRepo.ListVisible query: %w", err)
	}
	defer rows.Close()

	out := make([]model.RoomSummary, 0, 16)
	for rows.Next() {
		var s model.RoomSummary
		var role *string
		if err := rows.Scan(&s.Room.ID, &s.Room.Name, &s.Room.Field, &s.Room.Description, &s.Room.IsPrivate,
			&s.Room.MaxMembers, &s.Room.CreatedBy, &s.Room.CreatedAt, &s.MemberCount, &role); err != nil {
			return nil, fmt.Errorf("roomRepo.ListVisible scan: %w", err)
		}
		if role != nil {
			rr := model.RoomRole(*role)
			s.IsMember = true
			s.Role = &rr
		}
		out = append(out, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("roomRepo.ListVisible rows: %w", err)
	}
	return out, nil
}
