package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/globalmoves/community/internal/logger"
	"github.com/globalmoves/community/internal/model"
)

type MessageRepository struct {
	pool *pgxpool.Pool
}

func NewMessageRepository(pool *pgxpool.Pool) *MessageRepository {
	return &MessageRepository{pool: pool}
}

// Create appends a message. created_at is assigned by the database so room
// order follows insertion order.
func (r *MessageRepository) Create(ctx context.Context, m *model.Message) error {
	defer logger.DeferLogDuration("msg.Create", time.Now())()
	err := r.pool.QueryRow(ctx,
		`INSERT INTO room_messages (id, room_id, user_id, content)
		 VALUES ($1, $2, $3, $4)
		 RETURNING created_at`,
		m.ID, m.RoomID, m.SenderID, m.Content,
	).Scan(&m.CreatedAt)
	if err != nil {
		return fmt.Errorf("msgRepo.Create: %w", err)
	}
	return nil
}

// ListByRoom returns the full history of a room in created_at ascending order,
// with sender names resolved (display name, falling back to the email local part).
func (r *MessageRepository) ListByRoom(ctx context.Context, roomID string) ([]model.Message, error) {
	defer logger.DeferLogDuration("msg.ListByRoom", time.Now())()
	rows, err := r.pool.Query(ctx,
		`SELECT m.id, m.room_id, m.user_id,
		        COALESCE(NULLIF(u.display_name, ''), NULLIF(split_part(u.email, '@', 1), ''), 'Anonymous'),
		        m.content, m.created_at
		 FROM room_messages m
		 LEFT JOIN users u ON u.id = m.user_id
		 WHERE m.room_id = $1
		 ORDER BY m.created_at, m.id`, roomID,
	)
	if err != nil {
		return nil, fmt.Errorf("msgRepo.ListByRoom query: %w", err)
	}
	defer rows.Close()

	msgs := make([]model.Message, 0, 64)
	for rows.Next() {
		var m model.Message
		if err := rows.Scan(&m.ID, &m.RoomID, &m.SenderID, &m.SenderName, &m.Content, &m.CreatedAt); err != nil {
			return nil, fmt.Errorf("msgRepo.ListByRoom scan: %w", err)
		}
		msgs = append(msgs, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("msgRepo.ListByRoom rows: %w", err)
	}
	return msgs, nil
}
