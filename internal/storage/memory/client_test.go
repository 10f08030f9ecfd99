package memory

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/globalmoves/community/internal/storage"
)

var _ storage.SessionStore = (*Client)(nil)

func TestSignInCodes(t *testing.T) {
	c := New()
	ctx := context.Background()

	code, err := c.GetSignInCode(ctx, "a@example.com")
	require.NoError(t, err)
	assert.Empty(t, code)

	require.NoError(t, c.SetSignInCode(ctx, "a@example.com", "123456"))
	code, err = c.GetSignInCode(ctx, "a@example.com")
	require.NoError(t, err)
	assert.Equal(t, "123456", code)

	ttl, err := c.GetSignInCodeTTL(ctx, "a@example.com")
	require.NoError(t, err)
	assert.Greater(t, ttl.Seconds(), 0.0)

	require.NoError(t, c.DeleteSignInCode(ctx, "a@example.com"))
	code, err = c.GetSignInCode(ctx, "a@example.com")
	require.NoError(t, err)
	assert.Empty(t, code)
}

func TestCheckRateLimit(t *testing.T) {
	c := New()
	ctx := context.Background()

	for i := 0; i < codeRateLimitMax; i++ {
		ok, err := c.CheckRateLimit(ctx, "a@example.com")
		require.NoError(t, err)
		assert.True(t, ok)
	}
	ok, err := c.CheckRateLimit(ctx, "a@example.com")
	require.NoError(t, err)
	assert.False(t, ok, "request over the window limit is rejected")

	// A different address has its own counter.
	ok, err = c.CheckRateLimit(ctx, "b@example.com")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestSessionSecrets(t *testing.T) {
	c := New()
	ctx := context.Background()

	require.NoError(t, c.SetSessionSecret(ctx, "sess1", "secret-b64"))
	got, err := c.GetSessionSecret(ctx, "sess1")
	require.NoError(t, err)
	assert.Equal(t, "secret-b64", got)

	require.NoError(t, c.DeleteSessionSecret(ctx, "sess1"))
	got, err = c.GetSessionSecret(ctx, "sess1")
	require.NoError(t, err)
	assert.Empty(t, got)
}
