package devstore

import (
	"context"
	"time"

	"github.com/globalmoves/community/internal/repository"
	"github.com/globalmoves/community/internal/storage/memory"
)

// Client implements SessionStore for -dev mode: sign-in codes and rate limits
// live in memory, session secrets in the database so sessions survive an auth
// service restart.
type Client struct {
	mem  *memory.Client
	repo *repository.SessionRepository
}

func New(repo *repository.SessionRepository) *Client {
	return &Client{mem: memory.New(), repo: repo}
}

func (c *Client) Close() error { return c.mem.Close() }

func (c *Client) SetSignInCode(ctx context.Context, email, code string) error {
	return c.mem.SetSignInCode(ctx, email, code)
}
func (c *Client) GetSignInCode(ctx context.Context, email string) (string, error) {
	return c.mem.GetSignInCode(ctx, email)
}
func (c *Client) GetSignInCodeTTL(ctx context.Context, email string) (time.Duration, error) {
	return c.mem.GetSignInCodeTTL(ctx, email)
}
func (c *Client) DeleteSignInCode(ctx context.Context, email string) error {
	return c.mem.DeleteSignInCode(ctx, email)
}
func (c *Client) CheckRateLimit(ctx context.Context, email string) (bool, error) {
	return c.mem.CheckRateLimit(ctx, email)
}

func (c *Client) SetSessionSecret(ctx context.Context, sessionID, secret string) error {
	return c.repo.SetSessionSecret(ctx, sessionID, secret)
}
func (c *Client) GetSessionSecret(ctx context.Context, sessionID string) (string, error) {
	return c.repo.GetSessionSecret(ctx, sessionID)
}
func (c *Client) DeleteSessionSecret(ctx context.Context, sessionID string) error {
	return c.repo.ClearSessionSecret(ctx, sessionID)
}
