package profile

import (
	"context"
	"errors"
	"strings"
	"time"
)

// Ergonomic interface for account profile lookup by handle.
//
// Looking up a handle returns a compact, opinionated snapshot (`Profile`) of
// the account at fetch time. Implementations should normalize handles before
// use, and must never mutate a Profile after returning it.
//
// Some example implementations of this interface could be:
//   - API client doing a direct remote lookup on every call
//   - local in-memory caching layer to reduce network hits
//   - client for shared network cache (eg, Redis)
type Source interface {
	Lookup(ctx context.Context, handle string) (*Profile, error)
}

// Indicates that the lookup completed successfully, but the remote source has
// no usable record for the handle. Safe to cache as a negative result.
var ErrProfileNotFound = errors.New("profile not found")

// Indicates that the remote source is throttling requests. Callers owning a
// shared rate budget should pause new lookups before retrying.
var ErrRateLimited = errors.New("profile source rate-limited")

// Indicates that no credential was available for the request. Not cached:
// credential state can change between calls.
var ErrNotAuthenticated = errors.New("not authenticated for profile lookup")

// Indicates a network or parse failure. Treated like a negative result for
// caching purposes, but logged distinctly.
var ErrLookupFailed = errors.New("profile lookup failed")

// Handle was empty or not a plausible account handle.
var ErrInvalidHandle = errors.New("invalid handle")

// Immutable snapshot of one account at fetch time. Produced only by Source
// implementations; callers share Profiles read-only.
type Profile struct {
	ID          string
	DisplayName string
	Handle      string

	FollowersCount  int64
	FollowsCount    int64
	PostsCount      int64
	FavouritesCount int64

	// best effort public account creation timestamp; zero value means unknown
	CreatedAt time.Time

	Verified      bool
	PaidVerified  bool
	DefaultAvatar bool
}

// Age of the account at the given instant, in days. Returns zero for unknown
// or future creation timestamps.
func (p *Profile) AgeDays(now time.Time) float64 {
	if p.CreatedAt.IsZero() || p.CreatedAt.After(now) {
		return 0
	}
	return now.Sub(p.CreatedAt).Hours() / 24
}

// NormalizeHandle lowercases a handle and strips any leading "@". The result
// is the canonical cache/lookup key for the handle.
func NormalizeHandle(raw string) string {
	return strings.ToLower(strings.TrimPrefix(strings.TrimSpace(raw), "@"))
}
