package scanner

import (
	"regexp"

	"github.com/credwatch/credwatch/profile"
)

// path segments that look like handles in timeline links but are reserved
// platform routes, never accounts
var ignoredPaths = map[string]bool{
	"home":          true,
	"explore":       true,
	"notifications": true,
	"messages":      true,
	"settings":      true,
	"search":        true,
	"compose":       true,
	"login":         true,
	"signup":        true,
	"i":             true,
	"tos":           true,
	"privacy":       true,
	"hashtag":       true,
	"intent":        true,
	"account":       true,
	"who_to_follow": true,
}

var handlePattern = regexp.MustCompile(`^[a-z0-9_]{1,15}$`)

// ValidCandidate reports whether a discovered string is plausibly an account
// handle worth resolving. Reserved route names and malformed handles are
// rejected before any external lookup.
func ValidCandidate(raw string) bool {
	handle := profile.NormalizeHandle(raw)
	if handle == "" || ignoredPaths[handle] {
		return false
	}
	return handlePattern.MatchString(handle)
}
