package redis

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestHitCountsWithinWindow(t *testing.T) {
	ctx := context.Background()
	fake := newFakeRedis()
	client := &Client{cmds: fake}

	first, err := client.Hit(ctx, "checkins:user:u1", 2, time.Minute)
	require.NoError(t, err)
	require.True(t, first.Allowed)
	require.EqualValues(t, 1, first.Count)
	require.EqualValues(t, 1, first.Remaining())
	require.Equal(t, time.Minute, first.ResetIn)
	require.Equal(t, 1, fake.expires)

	fake.ttls["st:rate_limit:checkins:user:u1"] = 40 * time.Second
	second, err := client.Hit(ctx, "checkins:user:u1", 2, time.Minute)
	require.NoError(t, err)
	require.True(t, second.Allowed)
	require.Equal(t, 40*time.Second, second.ResetIn)
	require.Equal(t, 1, fake.expires)

	third, err := client.Hit(ctx, "checkins:user:u1", 2, time.Minute)
	require.NoError(t, err)
	require.False(t, third.Allowed)
	require.EqualValues(t, 3, third.Count)
	require.Zero(t, third.Remaining())
}

func TestHitRearmsMissingExpiry(t *testing.T) {
	ctx := context.Background()
	fake := newFakeRedis()
	fake.counter["st:rate_limit:stale"] = 4
	client := &Client{cmds: fake}

	w, err := client.Hit(ctx, "stale", 10, 30*time.Second)
	require.NoError(t, err)
	require.EqualValues(t, 5, w.Count)
	require.Equal(t, 30*time.Second, w.ResetIn)
	require.Equal(t, 1, fake.expires)
	require.Equal(t, 30*time.Second, fake.ttls["st:rate_limit:stale"])
}

func TestHitRejectsBadPolicy(t *testing.T) {
	client := &Client{cmds: newFakeRedis()}
	_, err := client.Hit(context.Background(), "s", 0, time.Minute)
	require.Error(t, err)
	_, err = client.Hit(context.Background(), "s", 1, 0)
	require.Error(t, err)
}

func TestHitSurfacesIncrFailure(t *testing.T) {
	fake := newFakeRedis()
	fake.incrErr = errors.New("connection reset")
	client := &Client{cmds: fake}

	_, err := client.Hit(context.Background(), "s", 1, time.Minute)
	require.ErrorIs(t, err, fake.incrErr)
}
