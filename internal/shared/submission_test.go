package shared

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSubmissionGuard(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	guard := NewSubmissionGuard(client, time.Minute)
	ctx := context.Background()
	key := SubmissionKey("deposits", "7")

	release, err := guard.Acquire(ctx, key)
	require.NoError(t, err)

	_, err = guard.Acquire(ctx, key)
	assert.ErrorIs(t, err, ErrSubmissionInFlight)

	release()
	assert.False(t, mr.Exists(key))

	again, err := guard.Acquire(ctx, key)
	require.NoError(t, err)
	defer again()
}

func TestSubmissionReleaseKeepsForeignHolder(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	guard := NewSubmissionGuard(client, time.Second)
	ctx := context.Background()
	key := SubmissionKey("withdrawals", "3")

	release, err := guard.Acquire(ctx, key)
	require.NoError(t, err)

	mr.FastForward(2 * time.Second)
	_, err = guard.Acquire(ctx, key)
	require.NoError(t, err)

	release()
	assert.True(t, mr.Exists(key))
}

func TestNilSubmissionGuard(t *testing.T) {
	var guard *SubmissionGuard
	release, err := guard.Acquire(context.Background(), "k")
	require.NoError(t, err)
	release()
}
