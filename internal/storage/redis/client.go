package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Sign-in code TTL is 5 minutes (time to type the code); rate limit is
// 10 requests per 10 minutes per email.
const (
	SignInCodeTTL       = 300
	CodeRateLimitWindow = 600 // 10 minutes
	CodeRateLimitMax    = 10  // code requests per window
	SessionSecretTTL    = 30 * 24 * 3600
)

type Client struct {
	cli *redis.Client
}

func New(ctx context.Context, url string) (*Client, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("redis parse url: %w", err)
	}
	cli := redis.NewClient(opts)
	if err := cli.Ping(ctx).Err(); err != nil {
		if closeErr := cli.Close(); closeErr != nil {
			return nil, fmt.Errorf("redis ping: %w (close: %v)", err, closeErr)
		}
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return &Client{cli: cli}, nil
}

func (c *Client) Close() error {
	return c.cli.Close()
}

// SetSignInCode stores the code (6 digits) under signin_code:{email}, TTL 5 min.
// The code is stored as-is for reliable verification.
func (c *Client) SetSignInCode(ctx context.Context, email, code string) error {
	return c.cli.Set(ctx, "signin_code:"+email, code, SignInCodeTTL*time.Second).Err()
}

// GetSignInCode returns the code for the email (the key is kept; it is deleted
// only after a successful verification).
func (c *Client) GetSignInCode(ctx context.Context, email string) (string, error) {
	val, err := c.cli.Get(ctx, "signin_code:"+email).Result()
	if err == redis.Nil {
		return "", nil
	}
	return val, err
}

// GetSignInCodeTTL returns the remaining TTL of the code key, 0 when absent.
func (c *Client) GetSignInCodeTTL(ctx context.Context, email string) (time.Duration, error) {
	d, err := c.cli.TTL(ctx, "signin_code:"+email).Result()
	if err != nil || d < 0 {
		return 0, err
	}
	return d, nil
}

// DeleteSignInCode removes the code after a successful verification (single use).
func (c *Client) DeleteSignInCode(ctx context.Context, email string) error {
	return c.cli.Del(ctx, "signin_code:"+email).Err()
}

// CheckRateLimit checks signin_limit:{email}: at most CodeRateLimitMax requests
// per window. Exceeding it yields HTTP 429.
func (c *Client) CheckRateLimit(ctx context.Context, email string) (allowed bool, err error) {
	key := "signin_limit:" + email
	n, err := c.cli.Incr(ctx, key).Result()
	if err != nil {
		return false, err
	}
	if n == 1 {
		c.cli.Expire(ctx, key, CodeRateLimitWindow*time.Second)
	}
	return n <= int64(CodeRateLimitMax), nil
}

func (c *Client) SetSessionSecret(ctx context.Context, sessionID, secret string) error {
	return c.cli.Set(ctx, "session_secret:"+sessionID, secret, SessionSecretTTL*time.Second).Err()
}

func (c *Client) GetSessionSecret(ctx context.Context, sessionID string) (string, error) {
	val, err := c.cli.Get(ctx, "session_secret:"+sessionID).Result()
	if err == redis.Nil {
		return "", nil
	}
	return val, err
}

func (c *Client) DeleteSessionSecret(ctx context.Context, sessionID string) error {
	return c.cli.Del(ctx, "session_secret:"+sessionID).Err()
}

// FlushDB clears the current Redis database (resets codes, rate limits and
// session secrets for tests or a restart).
func (c *Client) FlushDB(ctx context.Context) error {
	return c.cli.FlushDB(ctx).Err()
}
