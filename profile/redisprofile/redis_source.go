// Package redisprofile provides a Redis-backed caching profile source, for
// deployments where several replicas share one remote rate budget and should
// share negative results as well.
package redisprofile

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/credwatch/credwatch/profile"

	"github.com/go-redis/cache/v9"
	"github.com/redis/go-redis/v9"
)

// prefix string for all the Redis keys this cache uses
var redisPrefix string = "profile/"

// RedisSource wraps an inner Source with a shared Redis cache (plus an
// in-process TinyLFU cache for hot handles) and in-flight coalescing.
//
// Cached errors are round-tripped as a category string, so waiters and later
// readers get the matching sentinel error back, not the original value.
type RedisSource struct {
	Inner profile.Source
	// TTL for positive and negative entries alike
	TTL      time.Duration
	Cooldown time.Duration

	profileCache *cache.Cache
	lookupChans  sync.Map

	coolMu       sync.Mutex
	coolingUntil time.Time
}

type profileEntry struct {
	Updated time.Time
	Profile *profile.Profile
	// one of the errKind* values, or empty for a hit
	ErrKind string
}

const (
	errKindNotFound = "not_found"
	errKindFailed   = "failed"
)

// result of a single coalesced external call, shared by all local waiters;
// carries the result directly so non-cacheable outcomes (rate limit, missing
// credentials) keep their sentinel instead of surfacing as a cache miss
type inflightLookup struct {
	done    chan struct{}
	profile *profile.Profile
	err     error
}

var _ profile.Source = (*RedisSource)(nil)

// NewRedisSource creates a caching Source wrapper around an existing source.
// `redisURL` contains all the redis connection config options. `lruSize` is
// the size of the in-process hot cache; 10000 is a reasonable default.
func NewRedisSource(inner profile.Source, redisURL string, ttl, cooldown time.Duration, lruSize int) (*RedisSource, error) {
	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("could not configure redis profile cache: %w", err)
	}
	rdb := redis.NewClient(opt)
	// check redis connection
	if _, err := rdb.Ping(context.TODO()).Result(); err != nil {
		return nil, fmt.Errorf("could not connect to redis profile cache: %w", err)
	}
	return &RedisSource{
		Inner:    inner,
		TTL:      ttl,
		Cooldown: cooldown,
		profileCache: cache.New(&cache.Options{
			Redis:      rdb,
			LocalCache: cache.NewTinyLFU(lruSize, ttl),
		}),
	}, nil
}

func (s *RedisSource) Lookup(ctx context.Context, handle string) (*profile.Profile, error) {
	handle = profile.NormalizeHandle(handle)
	if handle == "" {
		return nil, profile.ErrInvalidHandle
	}

	var entry profileEntry
	err := s.profileCache.Get(ctx, redisPrefix+handle, &entry)
	if err != nil && err != cache.ErrCacheMiss {
		return nil, fmt.Errorf("%w: profile cache read: %w", profile.ErrLookupFailed, err)
	}
	if err == nil {
		return entry.Profile, entry.unwrapErr()
	}

	// Coalesce multiple requests for the same handle
	pending := &inflightLookup{done: make(chan struct{})}
	val, loaded := s.lookupChans.LoadOrStore(handle, pending)
	if loaded {
		// Wait for the result from the pending request
		waiting := val.(*inflightLookup)
		select {
		case <-waiting.done:
			return waiting.profile, waiting.err
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	// Cleanup the coalesce map and hand waiters the result on every path
	defer func() {
		s.lookupChans.Delete(handle)
		close(pending.done)
	}()

	// Joining an in-flight lookup costs no external call, so the cooldown
	// only gates lookups that would start a new one.
	if s.coolingDown() {
		pending.err = profile.ErrRateLimited
		return nil, profile.ErrRateLimited
	}

	// Resolve via the inner source and cache the result
	pending.profile, pending.err = s.update(ctx, handle)
	return pending.profile, pending.err
}

func (s *RedisSource) update(ctx context.Context, handle string) (*profile.Profile, error) {
	p, err := s.Inner.Lookup(ctx, handle)
	entry := profileEntry{Updated: time.Now(), Profile: p}
	switch {
	case err == nil:
		// cached below
	case errors.Is(err, profile.ErrRateLimited):
		s.startCooldown()
		return nil, err
	case errors.Is(err, profile.ErrNotAuthenticated):
		return nil, err
	case errors.Is(err, profile.ErrProfileNotFound):
		entry.ErrKind = errKindNotFound
	default:
		entry.ErrKind = errKindFailed
	}

	if cerr := s.profileCache.Set(&cache.Item{
		Ctx:   ctx,
		Key:   redisPrefix + handle,
		Value: entry,
		TTL:   s.TTL,
	}); cerr != nil {
		slog.Error("profile cache write failed", "handle", handle, "err", cerr)
	}
	return p, err
}

func (e *profileEntry) unwrapErr() error {
	switch e.ErrKind {
	case "":
		return nil
	case errKindNotFound:
		return profile.ErrProfileNotFound
	default:
		return profile.ErrLookupFailed
	}
}

func (s *RedisSource) coolingDown() bool {
	s.coolMu.Lock()
	defer s.coolMu.Unlock()
	return time.Now().Before(s.coolingUntil)
}

func (s *RedisSource) startCooldown() {
	s.coolMu.Lock()
	defer s.coolMu.Unlock()
	until := time.Now().Add(s.Cooldown)
	if until.After(s.coolingUntil) {
		s.coolingUntil = until
	}
}
