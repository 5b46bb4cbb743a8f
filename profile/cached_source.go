package profile

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
)

// CachedSource wraps an inner Source with a TTL cache and in-flight request
// coalescing, so that concurrent and repeated lookups for the same handle
// produce at most one outstanding external call.
//
// Negative results (not-found, transient failures) are cached for the same
// TTL as hits, so an unresolvable handle is not retried until expiry. A
// rate-limit signal from the inner source pauses all new external calls for
// a cooldown period; this backoff is global, not per-handle, because the
// remote budget is shared.
type CachedSource struct {
	Inner Source
	TTL   time.Duration
	// how long to pause new external calls after a rate-limit signal
	Cooldown time.Duration

	cache       *expirable.LRU[string, profileEntry]
	lookupChans sync.Map

	coolMu       sync.Mutex
	coolingUntil time.Time

	now func() time.Time
}

type profileEntry struct {
	Updated time.Time
	Profile *Profile
	Err     error
}

// result of a single coalesced external call, shared by all waiters
type inflightLookup struct {
	done    chan struct{}
	profile *Profile
	err     error
}

var _ Source = (*CachedSource)(nil)

// Capacity of zero means unlimited size.
func NewCachedSource(inner Source, capacity int, ttl, cooldown time.Duration) *CachedSource {
	return &CachedSource{
		Inner:    inner,
		TTL:      ttl,
		Cooldown: cooldown,
		cache:    expirable.NewLRU[string, profileEntry](capacity, nil, ttl),
		now:      time.Now,
	}
}

func (s *CachedSource) Lookup(ctx context.Context, handle string) (*Profile, error) {
	handle = NormalizeHandle(handle)
	if handle == "" {
		return nil, ErrInvalidHandle
	}

	entry, ok := s.cache.Get(handle)
	if ok {
		profileCacheHits.Inc()
		return entry.Profile, entry.Err
	}
	profileCacheMisses.Inc()

	// Coalesce multiple requests for the same handle
	pending := &inflightLookup{done: make(chan struct{})}
	val, loaded := s.lookupChans.LoadOrStore(handle, pending)
	if loaded {
		requestsCoalesced.Inc()
		// Wait for the result from the pending request
		waiting := val.(*inflightLookup)
		select {
		case <-waiting.done:
			return waiting.profile, waiting.err
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	// The in-flight entry is cleared on every path, so a failed lookup never
	// wedges the handle.
	defer func() {
		s.lookupChans.Delete(handle)
		close(pending.done)
	}()

	// Joining an in-flight lookup costs no external call, so the cooldown
	// only gates lookups that would start a new one.
	if s.coolingDown() {
		cooldownSkips.Inc()
		pending.err = ErrRateLimited
		return nil, ErrRateLimited
	}

	// Resolve via the inner source and cache the result
	pending.profile, pending.err = s.update(ctx, handle)
	return pending.profile, pending.err
}

func (s *CachedSource) update(ctx context.Context, handle string) (*Profile, error) {
	p, err := s.Inner.Lookup(ctx, handle)
	switch {
	case err == nil:
		s.cache.Add(handle, profileEntry{Updated: s.now(), Profile: p})
		return p, nil
	case errors.Is(err, ErrRateLimited):
		s.startCooldown()
		// not cached; retried after the cooldown
		return nil, err
	case errors.Is(err, ErrNotAuthenticated):
		// not cached; credential state can change between calls
		return nil, err
	default:
		// negative caching: not-found and transient failures alike
		s.cache.Add(handle, profileEntry{Updated: s.now(), Err: err})
		return nil, err
	}
}

// Purge drops any cached entry for the handle.
func (s *CachedSource) Purge(handle string) {
	s.cache.Remove(NormalizeHandle(handle))
}

func (s *CachedSource) coolingDown() bool {
	s.coolMu.Lock()
	defer s.coolMu.Unlock()
	return s.now().Before(s.coolingUntil)
}

func (s *CachedSource) startCooldown() {
	s.coolMu.Lock()
	defer s.coolMu.Unlock()
	until := s.now().Add(s.Cooldown)
	if until.After(s.coolingUntil) {
		s.coolingUntil = until
	}
}
