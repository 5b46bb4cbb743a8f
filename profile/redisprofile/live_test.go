package redisprofile

import (
	"context"
	"testing"
	"time"

	"github.com/credwatch/credwatch/profile"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var redisLocalTestURL string = "redis://localhost:6379/0"

// NOTE: requires a local redis instance; marked as skip below by default
func TestRedisSourceLive(t *testing.T) {
	t.Skip("requires local redis, skipping")

	assert := assert.New(t)
	require := require.New(t)
	ctx := context.Background()

	mock := profile.NewMockSource()
	mock.Insert(profile.Profile{
		Handle:         "alice",
		FollowersCount: 100,
		CreatedAt:      time.Now().AddDate(-1, 0, 0),
	})

	src, err := NewRedisSource(mock, redisLocalTestURL, time.Minute, time.Minute, 1000)
	require.NoError(err)

	p, err := src.Lookup(ctx, "alice")
	require.NoError(err)
	assert.Equal("alice", p.Handle)

	_, err = src.Lookup(ctx, "alice")
	require.NoError(err)
	assert.Equal(int64(1), mock.Calls.Load())

	_, err = src.Lookup(ctx, "missing")
	assert.ErrorIs(err, profile.ErrProfileNotFound)
	_, err = src.Lookup(ctx, "missing")
	assert.ErrorIs(err, profile.ErrProfileNotFound)
	assert.Equal(int64(2), mock.Calls.Load())
}
