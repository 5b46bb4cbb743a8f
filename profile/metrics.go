package profile

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var profileCacheHits = promauto.NewCounter(prometheus.CounterOpts{
	Name: "credwatch_profile_cache_hits",
	Help: "Number of profile lookups served from cache",
})

var profileCacheMisses = promauto.NewCounter(prometheus.CounterOpts{
	Name: "credwatch_profile_cache_misses",
	Help: "Number of profile lookups not served from cache",
})

var requestsCoalesced = promauto.NewCounter(prometheus.CounterOpts{
	Name: "credwatch_profile_requests_coalesced",
	Help: "Number of profile lookups merged into an already in-flight request",
})

var cooldownSkips = promauto.NewCounter(prometheus.CounterOpts{
	Name: "credwatch_profile_cooldown_skips",
	Help: "Number of profile lookups short-circuited during a rate-limit cooldown",
})
