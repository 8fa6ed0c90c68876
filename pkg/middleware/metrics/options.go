package metrics

import (
	"net/http"
	"strings"
)

type collectConfig struct {
	uri  func(*http.Request) string
	skip map[string]struct{}
}

// CollectOption configures one Collect middleware.
type CollectOption func(*collectConfig)

// WithURILabel sets how a request becomes the uri label. Callers that serve
// client-chosen paths must map them onto a bounded set.
func WithURILabel(fn func(*http.Request) string) CollectOption {
	return func(c *collectConfig) {
		if fn != nil {
			c.uri = fn
		}
	}
}

// WithSkipPaths leaves requests for the given exact paths uncounted.
func WithSkipPaths(paths ...string) CollectOption {
	return func(c *collectConfig) {
		for _, p := range paths {
			if p = strings.TrimSpace(p); p != "" {
				c.skip[p] = struct{}{}
			}
		}
	}
}

func newCollectConfig(opts []CollectOption) collectConfig {
	c := collectConfig{
		uri:  func(r *http.Request) string { return r.URL.Path },
		skip: map[string]struct{}{},
	}
	for _, o := range opts {
		o(&c)
	}
	return c
}

func (c collectConfig) skipped(r *http.Request) bool {
	_, ok := c.skip[r.URL.Path]
	return ok
}
