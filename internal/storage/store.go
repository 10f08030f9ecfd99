package storage

import (
	"context"
	"time"
)

// SessionStore holds sign-in codes, their rate limits and session secrets.
// Implementations: redis.Client, memory.Client (for -dev without Redis),
// devstore.Client (secrets in the database).
type SessionStore interface {
	SetSignInCode(ctx context.Context, email, code string) error
	GetSignInCode(ctx context.Context, email string) (string, error)
	GetSignInCodeTTL(ctx context.Context, email string) (time.Duration, error)
	DeleteSignInCode(ctx context.Context, email string) error
	CheckRateLimit(ctx context.Context, email string) (allowed bool, err error)
	SetSessionSecret(ctx context.Context, sessionID, secret string) error
	GetSessionSecret(ctx context.Context, sessionID string) (string, error)
	DeleteSessionSecret(ctx context.Context, sessionID string) error
	Close() error
}
