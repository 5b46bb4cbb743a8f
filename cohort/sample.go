// Package cohort analyzes a bounded sample of accounts gathered from one
// discussion context and decides whether the sample looks like a coordinated,
// recently-created swarm.
package cohort

import (
	"github.com/credwatch/credwatch/profile"
)

// Sample is an ordered collection of profiles from one discussion context.
// Membership is deduplicated on normalized handle, the context's originating
// author is excluded, and the sample stops accepting members at the cap.
type Sample struct {
	author  string
	seen    map[string]bool
	members []*profile.Profile
}

func NewSample(authorHandle string) *Sample {
	return &Sample{
		author: profile.NormalizeHandle(authorHandle),
		seen:   make(map[string]bool),
	}
}

// Add appends a profile to the sample. Returns false without adding when the
// profile is nil, duplicates an existing member, belongs to the excluded
// author, or the sample is already at capacity.
func (s *Sample) Add(p *profile.Profile) bool {
	if p == nil || s.Full() {
		return false
	}
	handle := profile.NormalizeHandle(p.Handle)
	if handle == "" || handle == s.author || s.seen[handle] {
		return false
	}
	s.seen[handle] = true
	s.members = append(s.members, p)
	return true
}

func (s *Sample) Size() int {
	return len(s.members)
}

func (s *Sample) Full() bool {
	return len(s.members) >= MaxSampleSize
}

// Members returns the sampled profiles in insertion order. Shared read-only.
func (s *Sample) Members() []*profile.Profile {
	return s.members
}
