package repository

import (
	"errors"

	"github.com/jackc/pgx/v5/pgconn"
)

var (
	ErrNotFound = errors.New("not found")
	// ErrConflict is returned when a unique index rejects a write
	// (duplicate membership, invitation or share).
	ErrConflict = errors.New("conflict")
	// ErrRoomFull is returned when a membership write would exceed max_members.
	ErrRoomFull = errors.New("room is full")
)

// isUniqueViolation reports whether err is a Postgres unique_violation (23505).
func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
