// Package musicbrainz is a minimal MusicBrainz ws/2 search client
// covering the two lookups enrichment needs: artists by name and
// release groups by artist and title. All requests honor the public
// API's one-request-per-second limit.
package musicbrainz

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"sync"
	"time"

	"wantlist/internal/services"
)

// DefaultBaseURL is the public MusicBrainz web service root.
const DefaultBaseURL = "https://musicbrainz.org/ws/2"

// minInterval is the floor on the delay between requests. The public
// API bans clients that exceed one request per second.
const minInterval = time.Second

const defaultSearchLimit = 5

// HTTPDoer describes the HTTP client used by the MusicBrainz service.
type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// Client talks to the MusicBrainz ws/2 JSON endpoints.
type Client struct {
	baseURL   string
	userAgent string
	http      HTTPDoer
	interval  time.Duration
	aliases   map[string][]string

	mu   sync.Mutex
	next time.Time
}

// New builds a client. userAgent must identify the application per the
// MusicBrainz etiquette rules ("app/version ( contact )"). A delay
// below one second is raised to one second.
func New(baseURL, userAgent string, delay time.Duration, client HTTPDoer) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if delay < minInterval {
		delay = minInterval
	}
	if client == nil {
		client = http.DefaultClient
	}
	return &Client{
		baseURL:   baseURL,
		userAgent: userAgent,
		http:      client,
		interval:  delay,
	}
}

// SetAliases registers alternate artist names consulted when matching
// release-group artist credits.
func (c *Client) SetAliases(aliases map[string][]string) {
	c.aliases = aliases
}

// wait blocks until the rate limit allows the next request.
func (c *Client) wait(ctx context.Context) error {
	c.mu.Lock()
	now := time.Now()
	sleep := c.next.Sub(now)
	if sleep < 0 {
		sleep = 0
	}
	c.next = now.Add(sleep + c.interval)
	c.mu.Unlock()

	if sleep == 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(sleep)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func (c *Client) search(ctx context.Context, endpoint, query string, out any) error {
	if err := c.wait(ctx); err != nil {
		return err
	}
	params := url.Values{}
	params.Set("query", query)
	params.Set("limit", strconv.Itoa(defaultSearchLimit))
	params.Set("fmt", "json")
	searchURL := fmt.Sprintf("%s/%s?%s", c.baseURL, endpoint, params.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, searchURL, nil)
	if err != nil {
		return fmt.Errorf("build musicbrainz request: %w", err)
	}
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return services.Wrap(services.ClassifyTransport(err), "musicbrainz", "search "+endpoint, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return services.Wrap(services.ClassifyHTTP(resp.StatusCode), "musicbrainz",
			fmt.Sprintf("search %s returned %d", endpoint, resp.StatusCode), nil)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return services.Wrap(services.ErrInvalidData, "musicbrainz", "decode "+endpoint+" response", err)
	}
	return nil
}
