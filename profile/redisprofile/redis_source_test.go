package redisprofile

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/credwatch/credwatch/profile"

	"github.com/go-redis/cache/v9"
	"github.com/stretchr/testify/assert"
)

// source backed only by the in-process TinyLFU cache, so the caching and
// coalescing semantics are testable without a live redis
func newLocalSource(inner profile.Source, ttl, cooldown time.Duration) *RedisSource {
	return &RedisSource{
		Inner:    inner,
		TTL:      ttl,
		Cooldown: cooldown,
		profileCache: cache.New(&cache.Options{
			LocalCache: cache.NewTinyLFU(1000, ttl),
		}),
	}
}

func TestRedisSourceLocalCacheHit(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()

	mock := profile.NewMockSource()
	mock.Insert(profile.Profile{
		Handle:         "alice",
		FollowersCount: 100,
		CreatedAt:      time.Now().AddDate(-1, 0, 0),
	})
	src := newLocalSource(mock, time.Minute, time.Minute)

	p, err := src.Lookup(ctx, "alice")
	assert.NoError(err)
	assert.Equal("alice", p.Handle)
	_, err = src.Lookup(ctx, "alice")
	assert.NoError(err)
	assert.Equal(int64(1), mock.Calls.Load())

	// negative caching round-trips the sentinel through the error kind
	_, err = src.Lookup(ctx, "missing")
	assert.ErrorIs(err, profile.ErrProfileNotFound)
	_, err = src.Lookup(ctx, "missing")
	assert.ErrorIs(err, profile.ErrProfileNotFound)
	assert.Equal(int64(2), mock.Calls.Load())
}

func TestRedisSourceCoalescedWaiterError(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()

	mock := profile.NewMockSource()
	mock.Fail("dave", profile.ErrNotAuthenticated)
	mock.Gate = make(chan struct{})
	src := newLocalSource(mock, time.Minute, time.Minute)

	// waiters coalesced onto a non-cacheable result get the leader's exact
	// error, not a rate-limit guess from the cache miss
	const n = 4
	errs := make([]error, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = src.Lookup(ctx, "dave")
		}(i)
	}
	time.Sleep(20 * time.Millisecond)
	close(mock.Gate)
	wg.Wait()

	assert.Equal(int64(1), mock.Calls.Load())
	for i := 0; i < n; i++ {
		assert.ErrorIs(errs[i], profile.ErrNotAuthenticated)
	}
}
