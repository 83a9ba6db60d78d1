package ratelimit

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestLimiter(t *testing.T, max int) (*Login, *miniredis.Miniredis) {
	t.Helper()

	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	return NewLogin(rdb, LoginConfig{MaxAttempts: max, Cooldown: time.Minute}), mr
}

func TestLoginLimiterBlocksAfterMaxFailures(t *testing.T) {
	ctx := context.Background()
	l, _ := newTestLimiter(t, 3)

	for range 3 {
		require.NoError(t, l.Check(ctx, "admin", "10.0.0.1"))
		require.NoError(t, l.Fail(ctx, "admin", "10.0.0.1"))
	}

	assert.ErrorIs(t, l.Check(ctx, "admin", "10.0.0.1"), ErrRateLimited)
	assert.ErrorIs(t, l.Check(ctx, "other", "10.0.0.1"), ErrRateLimited, "same ip")
	assert.NoError(t, l.Check(ctx, "other", "10.0.0.2"))
}

func TestLoginLimiterUsernameLock(t *testing.T) {
	ctx := context.Background()
	l, _ := newTestLimiter(t, 3)

	for i := range 3 {
		require.NoError(t, l.Fail(ctx, "admin", fmt.Sprintf("10.0.1.%d", i)))
	}

	assert.NoError(t, l.Check(ctx, "admin", "10.0.0.9"), "clean peer")

	require.NoError(t, l.Fail(ctx, "Admin", "10.0.0.9"))
	assert.ErrorIs(t, l.Check(ctx, "ADMIN", "10.0.0.9"), ErrRateLimited, "username is case-insensitive")
	assert.ErrorIs(t, l.Check(ctx, "admin", ""), ErrRateLimited, "unknown peer")
	assert.NoError(t, l.Check(ctx, "other", "10.0.0.9"))
}

func TestLoginLimiterReset(t *testing.T) {
	ctx := context.Background()
	l, _ := newTestLimiter(t, 1)

	require.NoError(t, l.Fail(ctx, "admin", "10.0.0.1"))
	require.ErrorIs(t, l.Check(ctx, "admin", "10.0.0.1"), ErrRateLimited)

	require.NoError(t, l.Reset(ctx, "admin", "10.0.0.1"))
	assert.NoError(t, l.Check(ctx, "admin", "10.0.0.1"))
}

func TestLoginLimiterWindowExpires(t *testing.T) {
	ctx := context.Background()
	l, mr := newTestLimiter(t, 1)

	require.NoError(t, l.Fail(ctx, "admin", ""))
	require.ErrorIs(t, l.Check(ctx, "admin", ""), ErrRateLimited)

	mr.FastForward(2 * time.Minute)
	assert.NoError(t, l.Check(ctx, "admin", ""))
}

func TestLoginLimiterUnavailable(t *testing.T) {
	ctx := context.Background()
	l, mr := newTestLimiter(t, 1)
	mr.Close()

	assert.ErrorIs(t, l.Check(ctx, "admin", "10.0.0.1"), ErrUnavailable)
	assert.ErrorIs(t, l.Fail(ctx, "admin", "10.0.0.1"), ErrUnavailable)
}

func TestNop(t *testing.T) {
	ctx := context.Background()
	var l Nop

	assert.NoError(t, l.Fail(ctx, "admin", "10.0.0.1"))
	assert.NoError(t, l.Check(ctx, "admin", "10.0.0.1"))
	assert.NoError(t, l.Reset(ctx, "admin", "10.0.0.1"))
}
