package profile

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"golang.org/x/time/rate"
)

// Supplies authentication material for the remote profile API. Authorized is
// a capability check only; the core never inspects header contents.
type CredentialProvider interface {
	Authorized() bool
	Headers() map[string]string
}

// APISource looks up profiles against a remote JSON API.
//
// The zero value is not usable; Host is required. If Credentials is nil, or
// reports unauthorized, every lookup short-circuits to ErrNotAuthenticated
// without a network call.
type APISource struct {
	// URL method, hostname, and optional port; no path or trailing slash
	Host string
	// If not nil, supplies auth headers and the authorized capability check
	Credentials CredentialProvider
	// If not nil, this limiter gates outbound requests to the Host
	Limiter *rate.Limiter
	// HTTP client used for lookups. Callers wanting retries should pass a
	// retrying client; 429 responses must surface, not be retried away.
	HTTPClient *http.Client
}

var _ Source = (*APISource)(nil)

// wire shape of the remote user record. Only the fields the core needs.
type rawProfile struct {
	ID              string `json:"id_str"`
	Name            string `json:"name"`
	ScreenName      string `json:"screen_name"`
	FollowersCount  int64  `json:"followers_count"`
	FriendsCount    int64  `json:"friends_count"`
	StatusesCount   int64  `json:"statuses_count"`
	FavouritesCount int64  `json:"favourites_count"`
	CreatedAt       string `json:"created_at"`
	Verified        bool   `json:"verified"`
	BlueVerified    bool   `json:"is_blue_verified"`
	DefaultImage    bool   `json:"default_profile_image"`
	Unavailable     bool   `json:"unavailable"`
}

func (s *APISource) Lookup(ctx context.Context, handle string) (*Profile, error) {
	handle = NormalizeHandle(handle)
	if handle == "" {
		return nil, ErrInvalidHandle
	}
	if s.Credentials == nil || !s.Credentials.Authorized() {
		return nil, ErrNotAuthenticated
	}
	if s.Limiter != nil {
		if err := s.Limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrLookupFailed, err)
		}
	}

	u := fmt.Sprintf("%s/1.1/users/show.json?screen_name=%s", s.Host, url.QueryEscape(handle))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrLookupFailed, err)
	}
	for k, v := range s.Credentials.Headers() {
		req.Header.Set(k, v)
	}

	client := s.HTTPClient
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrLookupFailed, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return nil, ErrProfileNotFound
	case resp.StatusCode == http.StatusTooManyRequests:
		return nil, ErrRateLimited
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return nil, ErrNotAuthenticated
	case resp.StatusCode != http.StatusOK:
		return nil, fmt.Errorf("%w: unexpected status %d", ErrLookupFailed, resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrLookupFailed, err)
	}
	return parsePayload(body)
}

// parsePayload converts a raw API payload into a Profile, or an explicit
// rejection. Downstream components never see the wire shape.
func parsePayload(body []byte) (*Profile, error) {
	var raw rawProfile
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, fmt.Errorf("%w: parsing payload: %w", ErrLookupFailed, err)
	}
	if raw.Unavailable || raw.ScreenName == "" {
		return nil, ErrProfileNotFound
	}

	p := &Profile{
		ID:              raw.ID,
		DisplayName:     raw.Name,
		Handle:          NormalizeHandle(raw.ScreenName),
		FollowersCount:  raw.FollowersCount,
		FollowsCount:    raw.FriendsCount,
		PostsCount:      raw.StatusesCount,
		FavouritesCount: raw.FavouritesCount,
		Verified:        raw.Verified,
		PaidVerified:    raw.BlueVerified,
		DefaultAvatar:   raw.DefaultImage,
	}
	if raw.CreatedAt != "" {
		// legacy API uses ruby-style timestamps; RFC3339 accepted as well
		if ts, err := time.Parse(time.RubyDate, raw.CreatedAt); err == nil {
			p.CreatedAt = ts
		} else if ts, err := time.Parse(time.RFC3339, raw.CreatedAt); err == nil {
			p.CreatedAt = ts
		}
	}
	return p, nil
}
