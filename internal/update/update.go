// Package update checks a release feed for a newer build.
package update

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/hashicorp/go-version"
	"github.com/rs/zerolog/log"
)

const requestTimeout = 10 * time.Second

// Result is the outcome of a check.
type Result struct {
	Current         string `json:"current"`
	Latest          string `json:"latest"`
	UpdateAvailable bool   `json:"update_available"`
	URL             string `json:"url,omitempty"`
}

// release is the feed document.
type release struct {
	Version string `json:"version"`
	URL     string `json:"url"`
}

// Checker compares the running version with the feed at FeedURL.
type Checker struct {
	Current string
	FeedURL string
	Client  *http.Client
}

// NewChecker creates a Checker. An empty feedURL disables network checks.
func NewChecker(current, feedURL string) *Checker {
	return &Checker{
		Current: current,
		FeedURL: feedURL,
		Client:  &http.Client{Timeout: requestTimeout},
	}
}

// Check fetches the feed and reports whether it announces a newer version.
func (c *Checker) Check(ctx context.Context) (Result, error) {
	res := Result{Current: c.Current, Latest: c.Current}
	if c.FeedURL == "" {
		return res, nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.FeedURL, nil)
	if err != nil {
		return res, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.Client.Do(req)
	if err != nil {
		return res, fmt.Errorf("fetch release feed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return res, fmt.Errorf("fetch release feed: unexpected status %s", resp.Status)
	}

	var rel release
	if err := json.NewDecoder(resp.Body).Decode(&rel); err != nil {
		return res, fmt.Errorf("decode release feed: %w", err)
	}

	latest, err := version.NewVersion(strings.TrimPrefix(rel.Version, "v"))
	if err != nil {
		return res, fmt.Errorf("parse latest version %q: %w", rel.Version, err)
	}
	res.Latest = latest.String()
	res.URL = rel.URL

	current, err := version.NewVersion(strings.TrimPrefix(c.Current, "v"))
	if err != nil {
		// Development builds have no comparable version.
		log.Debug().Str("version", c.Current).Msg("current version is not semantic, skipping comparison")
		return res, nil
	}
	res.UpdateAvailable = latest.GreaterThan(current)
	return res, nil
}
