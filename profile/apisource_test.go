package profile

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testCredentials struct {
	authorized bool
}

func (c *testCredentials) Authorized() bool {
	return c.authorized
}

func (c *testCredentials) Headers() map[string]string {
	return map[string]string{"Authorization": "Bearer test-token"}
}

func TestAPISourceParsesProfile(t *testing.T) {
	assert := assert.New(t)
	require := require.New(t)
	ctx := context.Background()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal("Bearer test-token", r.Header.Get("Authorization"))
		assert.Equal("eve", r.URL.Query().Get("screen_name"))
		fmt.Fprint(w, `{
			"id_str": "12345",
			"name": "Eve Example",
			"screen_name": "Eve",
			"followers_count": 10000,
			"friends_count": 200,
			"statuses_count": 5000,
			"favourites_count": 100,
			"created_at": "Mon Jan 02 15:04:05 +0000 2012",
			"verified": false,
			"is_blue_verified": true,
			"default_profile_image": false
		}`)
	}))
	defer srv.Close()

	src := &APISource{Host: srv.URL, Credentials: &testCredentials{authorized: true}}
	p, err := src.Lookup(ctx, "@Eve")
	require.NoError(err)
	assert.Equal("12345", p.ID)
	assert.Equal("eve", p.Handle)
	assert.Equal(int64(10000), p.FollowersCount)
	assert.Equal(int64(200), p.FollowsCount)
	assert.Equal(int64(5000), p.PostsCount)
	assert.True(p.PaidVerified)
	assert.False(p.Verified)
	assert.False(p.DefaultAvatar)
	assert.Equal(2012, p.CreatedAt.Year())
	assert.Equal(time.January, p.CreatedAt.Month())
}

func TestAPISourceStatusMapping(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()

	cases := []struct {
		status int
		expect error
	}{
		{http.StatusNotFound, ErrProfileNotFound},
		{http.StatusTooManyRequests, ErrRateLimited},
		{http.StatusUnauthorized, ErrNotAuthenticated},
		{http.StatusForbidden, ErrNotAuthenticated},
		{http.StatusInternalServerError, ErrLookupFailed},
	}
	for _, c := range cases {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(c.status)
		}))
		src := &APISource{Host: srv.URL, Credentials: &testCredentials{authorized: true}}
		_, err := src.Lookup(ctx, "anyone")
		assert.ErrorIs(err, c.expect, "status %d", c.status)
		srv.Close()
	}
}

func TestAPISourceUnavailableRecord(t *testing.T) {
	assert := assert.New(t)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"unavailable": true}`)
	}))
	defer srv.Close()

	src := &APISource{Host: srv.URL, Credentials: &testCredentials{authorized: true}}
	_, err := src.Lookup(context.Background(), "ghost")
	assert.ErrorIs(err, ErrProfileNotFound)
}

func TestAPISourceMalformedPayload(t *testing.T) {
	assert := assert.New(t)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"screen_name": `)
	}))
	defer srv.Close()

	src := &APISource{Host: srv.URL, Credentials: &testCredentials{authorized: true}}
	_, err := src.Lookup(context.Background(), "mallory")
	assert.ErrorIs(err, ErrLookupFailed)
}

func TestAPISourceUnauthenticatedShortCircuit(t *testing.T) {
	assert := assert.New(t)

	var hits atomic.Int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
	}))
	defer srv.Close()

	src := &APISource{Host: srv.URL, Credentials: &testCredentials{authorized: false}}
	_, err := src.Lookup(context.Background(), "anyone")
	assert.ErrorIs(err, ErrNotAuthenticated)
	assert.Equal(int64(0), hits.Load())

	src.Credentials = nil
	_, err = src.Lookup(context.Background(), "anyone")
	assert.ErrorIs(err, ErrNotAuthenticated)
	assert.Equal(int64(0), hits.Load())
}

func TestUnknownCreatedAtParsesToZero(t *testing.T) {
	assert := assert.New(t)

	p, err := parsePayload([]byte(`{"screen_name": "x", "created_at": "garbage"}`))
	assert.NoError(err)
	assert.True(p.CreatedAt.IsZero())
}
