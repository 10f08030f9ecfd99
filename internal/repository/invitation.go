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

const invitationCols = `id, room_id, invited_user_id, invited_by, message, status, created_at, responded_at`

type InvitationRepository struct {
	pool *pgxpool.Pool
}

func NewInvitationRepository(pool *pgxpool.Pool) *InvitationRepository {
	return &InvitationRepository{pool: pool}
}

func scanInvitation(s interface{ Scan(dest ...any) error }, inv *model.Invitation) error {
	return s.Scan(&inv.ID, &inv.RoomID, &inv.InvitedUserID, &inv.InvitedBy, &inv.Message, &inv.Status, &inv.CreatedAt, &inv.RespondedAt)
}

// Create inserts a pending invitation. The unique index on
// (room_id, invited_user_id) makes any second invitation a conflict,
// whatever the status of the first one.
func (r *InvitationRepository) Create(ctx context.Context, inv *model.Invitation) error {
	defer logger.DeferLogDuration("invitation.Create", time.Now())()
	_, err := r.pool.Exec(ctx,
		`INSERT INTO room_invitations (id, room_id, invited_user_id, invited_by, message, status, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		inv.ID, inv.RoomID, inv.InvitedUserID, inv.InvitedBy, inv.Message, inv.Status, inv.CreatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrConflict
		}
		return fmt.Errorf("invitationRepo.Create: %w", err)
	}
	return nil
}

func (r *InvitationRepository) GetByID(ctx context.Context, id string) (*model.Invitation, error) {
	defer logger.DeferLogDuration("invitation.GetByID", time.Now())()
	inv := &model.Invitation{}
	row := r.pool.QueryRow(ctx, `SELECT `+invitationCols+` FROM room_invitations WHERE id = $1`, id)
	if err := scanInvitation(row, inv); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("invitationRepo.GetByID: %w", err)
	}
	return inv, nil
}

// ExistsForUser reports whether any invitation row exists for the pair,
// regardless of status.
func (r *InvitationRepository) ExistsForUser(ctx context.Context, roomID, userID string) (bool, error) {
	defer logger.DeferLogDuration("invitation.ExistsForUser", time.Now())()
	var exists bool
	err := r.pool.QueryRow(ctx,
		`SELECT EXISTS(SELECT 1 FROM room_invitations WHERE room_id = $1 AND invited_user_id = $2)`,
		roomID, userID,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("invitationRepo.ExistsForUser: %w", err)
	}
	return exists, nil
}

// ListPendingForUser returns the invitee's inbox, resolved against the room
// and the inviter's profile.
func (r *InvitationRepository) ListPendingForUser(ctx context.Context, userID string) ([]model.InvitationView, error) {
	defer logger.DeferLogDuration("invitation.ListPendingForUser", time.Now())()
	rows, err := r.pool.Query(ctx,
		`SELECT i.id, i.room_id, i.invited_user_id, i.invited_by, i.message, i.status, i.created_at, i.responded_at,
		        r.name, r.field, COALESCE(u.display_name, '')
		 FROM room_invitations i
		 JOIN breakout_rooms r ON r.id = i.room_id
		 LEFT JOIN users u ON u.id = i.invited_by
		 WHERE i.invited_user_id = $1 AND i.status = 'pending'
		 ORDER BY i.created_at DESC`, userID,
	)
	if err != nil {
		return nil, fmt.Errorf("invitationRepo.ListPendingForUser query: %w", err)
	}
	defer rows.Close()

	out := make([]model.InvitationView, 0, 8)
	for rows.Next() {
		var v model.InvitationView
		if err := rows.Scan(&v.Invitation.ID, &v.Invitation.RoomID, &v.Invitation.InvitedUserID, &v.Invitation.InvitedBy,
			&v.Invitation.Message, &v.Invitation.Status, &v.Invitation.CreatedAt, &v.Invitation.RespondedAt,
			&v.RoomName, &v.RoomField, &v.InviterName); err != nil {
			return nil, fmt.Errorf("invitationRepo.ListPendingForUser scan: %w", err)
		}
		out = append(out, v)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("invitationRepo.ListPendingForUser rows: %w", err)
	}
	return out, nil
}

// Accept flips a pending invitation to accepted and creates the membership in
// one transaction. The room row is locked so the capacity check and the
// membership insert cannot race with a concurrent accept.
func (r *InvitationRepository) Accept(ctx context.Context, invitationID, roomID, userID string) error {
	defer logger.DeferLogDuration("invitation.Accept", time.Now())()
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("invitationRepo.Accept begin: %w", err)
	}
	defer tx.Rollback(ctx)

	var maxMembers *int
	err = tx.QueryRow(ctx,
		`SELECT max_members FROM breakout_rooms WHERE id = $1 FOR UPDATE`, roomID,
	).Scan(&maxMembers)
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("invitationRepo.Accept lock room: %w", err)
	}

	if maxMembers != nil {
		var count int
		if err := tx.QueryRow(ctx,
			`SELECT COUNT(*) FROM room_members WHERE room_id = $1`, roomID,
		).Scan(&count); err != nil {
			return fmt.Errorf("invitationRepo.Accept count: %w", err)
		}
		if count >= *maxMembers {
			return ErrRoomFull
		}
	}

	if _, err := tx.Exec(ctx,
		`INSERT INTO room_members (room_id, user_id, role) VALUES ($1, $2, $3)`,
		roomID, userID, model.RoomRoleMember,
	); err != nil {
		if isUniqueViolation(err) {
			return ErrConflict
		}
		return fmt.Errorf("invitationRepo.Accept member: %w", err)
	}

	tag, err := tx.Exec(ctx,
		`UPDATE room_invitations SET status = 'accepted', responded_at = NOW()
		 WHERE id = $1 AND status = 'pending'`, invitationID,
	)
	if err != nil {
		return fmt.Errorf("invitationRepo.Accept status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		// Already answered by a concurrent call
		return ErrConflict
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("invitationRepo.Accept commit: %w", err)
	}
	return nil
}

// Decline flips a pending invitation to declined.
func (r *InvitationRepository) Decline(ctx context.Context, invitationID string) error {
	defer logger.DeferLogDuration("invitation.Decline", time.Now())()
	tag, err := r.pool.Exec(ctx,
		`UPDATE room_invitations SET status = 'declined', responded_at = NOW()
		 WHERE id = $1 AND status = 'pending'`, invitationID,
	)
	if err != nil {
		return fmt.Errorf("invitationRepo.Decline: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrConflict
	}
	return nil
}
