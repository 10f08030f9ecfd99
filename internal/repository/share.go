package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/globalmoves/community/internal/logger"
	"github.com/globalmoves/community/internal/model"
)

type ShareRepository struct {
	pool *pgxpool.Pool
}

func NewShareRepository(pool *pgxpool.Pool) *ShareRepository {
	return &ShareRepository{pool: pool}
}

// Create pins an opportunity to a room's board. The unique index on
// (room_id, opportunity_id) rejects a repeat share.
func (r *ShareRepository) Create(ctx context.Context, s *model.SharedOpportunity) error {
	defer logger.DeferLogDuration("share.Create", time.Now())()
	err := r.pool.QueryRow(ctx,
		`INSERT INTO room_shared_opportunities (id, room_id, opportunity_id, shared_by, message)
		 VALUES ($1, $2, $3, $4, $5)
		 RETURNING created_at`,
		s.ID, s.RoomID, s.OpportunityID, s.SharedBy, s.Message,
	).Scan(&s.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrConflict
		}
		return fmt.Errorf("shareRepo.Create: %w", err)
	}
	return nil
}

// ListByRoom returns a room's board newest first, each entry resolved against
// the catalog and the sharer's profile.
func (r *ShareRepository) ListByRoom(ctx context.Context, roomID string) ([]model.SharedOpportunity, error) {
	defer logger.DeferLogDuration("share.ListByRoom", time.Now())()
	rows, err := r.pool.Query(ctx,
		`SELECT s.id, s.room_id, s.opportunity_id, s.shared_by, s.message, s.created_at,
		        COALESCE(NULLIF(u.display_name, ''), NULLIF(split_part(u.email, '@', 1), ''), 'Anonymous'),
		        o.id, o.title, o.description, o.field, o.country, COALESCE(o.url,''), o.deadline, o.is_active, o.created_at
		 FROM room_shared_opportunities s
		 JOIN opportunities o ON o.id = s.opportunity_id
		 LEFT JOIN users u ON u.id = s.shared_by
		 WHERE s.room_id = $1
		 ORDER BY s.created_at DESC, s.id`, roomID,
	)
	if err != nil {
		return nil, fmt.Errorf("shareRepo.ListByRoom query: %w", err)
	}
	defer rows.Close()

	out := make([]model.SharedOpportunity, 0, 16)
	for rows.Next() {
		var s model.SharedOpportunity
		var o model.Opportunity
		if err := rows.Scan(&s.ID, &s.RoomID, &s.OpportunityID, &s.SharedBy, &s.Message, &s.CreatedAt, &s.SharedByName,
			&o.ID, &o.Title, &o.Description, &o.Field, &o.Country, &o.URL, &o.Deadline, &o.IsActive, &o.CreatedAt); err != nil {
			return nil, fmt.Errorf("shareRepo.ListByRoom scan: %w", err)
		}
		s.Opportunity = &o
		out = append(out, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("shareRepo.ListByRoom rows: %w", err)
	}
	return out, nil
}
