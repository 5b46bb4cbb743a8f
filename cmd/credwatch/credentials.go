package main

import (
	"github.com/credwatch/credwatch/profile"
)

// Static credentials configured at startup. The daemon treats them as an
// opaque capability: no token means every lookup degrades to absent.
type staticCredentials struct {
	Bearer string
	CSRF   string
}

var _ profile.CredentialProvider = (*staticCredentials)(nil)

func (c *staticCredentials) Authorized() bool {
	return c.Bearer != ""
}

func (c *staticCredentials) Headers() map[string]string {
	h := map[string]string{
		"Authorization": "Bearer " + c.Bearer,
	}
	if c.CSRF != "" {
		h["x-csrf-token"] = c.CSRF
	}
	return h
}
