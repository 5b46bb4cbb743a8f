package scanner

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidCandidate(t *testing.T) {
	assert := assert.New(t)

	valid := []string{"alice", "@alice", "Some_User99", "a", "x_ae_a_12"}
	for _, h := range valid {
		assert.True(ValidCandidate(h), "%q", h)
	}

	invalid := []string{
		"", "  ", "@",
		"home", "explore", "notifications", "who_to_follow", "i",
		"HOME", // reserved routes are case-insensitive
		"not a handle", "way_too_long_for_a_handle",
		"semi;colon", "dotted.name",
	}
	for _, h := range invalid {
		assert.False(ValidCandidate(h), "%q", h)
	}
}
