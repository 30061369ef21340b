package app

import (
	"net/url"

	"github.com/joacominatel/birdq/internal/config"
	"github.com/joacominatel/birdq/internal/runner/tinybird"
)

// TinybirdConnection builds a connection profile named after the API host.
// An empty baseURL means the default region.
func TinybirdConnection(baseURL, token string) config.Connection {
	if baseURL == "" {
		baseURL = tinybird.DefaultURL
	}
	name := "tinybird"
	if u, err := url.Parse(baseURL); err == nil && u.Hostname() != "" {
		name = "tinybird-" + u.Hostname()
	}
	return config.Connection{
		Name:    name,
		Type:    tinybird.Type,
		Options: map[string]any{"url": baseURL, "token": token},
	}
}
