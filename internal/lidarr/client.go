// Package lidarr is a typed client for the Lidarr v1 API covering the
// operations the importer needs: listing and adding artists, looking
// artists and albums up by MusicBrainz identifier, flipping album
// monitoring, and triggering commands.
package lidarr

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"wantlist/internal/services"
)

// HTTPDoer describes the HTTP client used by the Lidarr service.
type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// ErrArtistExists reports that an add raced with another writer: the
// artist appeared between the existence check and the POST.
var ErrArtistExists = errors.New("artist already added")

// Options carries the library defaults applied to newly added artists
// and the retry policy for transient failures.
type Options struct {
	QualityProfileID  int
	MetadataProfileID int
	RootFolderPath    string

	// MaxRetries and RetryDelay govern 503 handling: retries back off
	// exponentially from RetryDelay. Zero values mean 3 tries at 2s.
	MaxRetries int
	RetryDelay time.Duration

	HTTPClient HTTPDoer
}

// Client talks to one Lidarr instance.
type Client struct {
	baseURL string
	apiKey  string
	http    HTTPDoer
	opts    Options

	// sleep is swapped out by tests.
	sleep func(time.Duration)
}

// New builds a client for the Lidarr instance at baseURL.
func New(baseURL, apiKey string, opts Options) *Client {
	if opts.MaxRetries <= 0 {
		opts.MaxRetries = 3
	}
	if opts.RetryDelay <= 0 {
		opts.RetryDelay = 2 * time.Second
	}
	if opts.HTTPClient == nil {
		opts.HTTPClient = http.DefaultClient
	}
	return &Client{
		baseURL: strings.TrimRight(strings.TrimSpace(baseURL), "/"),
		apiKey:  strings.TrimSpace(apiKey),
		http:    opts.HTTPClient,
		opts:    opts,
		sleep:   time.Sleep,
	}
}

// apiError carries the response detail of a failed call so callers can
// inspect Lidarr's validation messages.
type apiError struct {
	status int
	body   string
}

func (e *apiError) Error() string {
	return fmt.Sprintf("lidarr returned %d: %s", e.status, strings.TrimSpace(e.body))
}

func (c *Client) do(ctx context.Context, method, path string, query url.Values, body, out any) error {
	requestURL := c.baseURL + "/api/v1/" + path
	if len(query) > 0 {
		requestURL += "?" + query.Encode()
	}
	var payload []byte
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode lidarr request: %w", err)
		}
		payload = encoded
	}

	operation := method + " " + path
	for attempt := 0; ; attempt++ {
		var reader io.Reader
		if payload != nil {
			reader = bytes.NewReader(payload)
		}
		req, err := http.NewRequestWithContext(ctx, method, requestURL, reader)
		if err != nil {
			return fmt.Errorf("build lidarr request: %w", err)
		}
		req.Header.Set("X-Api-Key", c.apiKey)
		if payload != nil {
			req.Header.Set("Content-Type", "application/json")
		}

		resp, err := c.http.Do(req)
		if err != nil {
			return services.Wrap(services.ClassifyTransport(err), "lidarr", operation, err)
		}
		respBody, readErr := io.ReadAll(resp.Body)
		resp.Body.Close()
		if readErr != nil {
			return services.Wrap(services.ClassifyTransport(readErr), "lidarr", operation, readErr)
		}

		if resp.StatusCode == http.StatusServiceUnavailable && attempt < c.opts.MaxRetries-1 {
			c.sleep(c.opts.RetryDelay * (1 << attempt))
			continue
		}
		if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
			detail := &apiError{status: resp.StatusCode, body: string(respBody)}
			return services.Wrap(services.ClassifyHTTP(resp.StatusCode), "lidarr", operation, detail)
		}
		if out != nil && len(respBody) > 0 {
			if err := json.Unmarshal(respBody, out); err != nil {
				return services.Wrap(services.ErrInvalidData, "lidarr", "decode "+operation+" response", err)
			}
		}
		return nil
	}
}

// Artists returns every artist in the library.
func (c *Client) Artists(ctx context.Context) ([]Artist, error) {
	var artists []Artist
	if err := c.do(ctx, http.MethodGet, "artist", nil, nil, &artists); err != nil {
		return nil, err
	}
	return artists, nil
}

// LookupArtist resolves an artist through Lidarr's metadata lookup,
// preferring the MusicBrainz id when known and falling back to a name
// search. ErrNotFound means the metadata sources know nothing about the
// artist.
func (c *Client) LookupArtist(ctx context.Context, name, mbArtistID string) (*Artist, error) {
	terms := []string{}
	if mbArtistID != "" {
		terms = append(terms, "mbid:"+mbArtistID, mbArtistID)
	}
	terms = append(terms, name)

	var lastErr error
	for _, term := range terms {
		query := url.Values{"term": []string{term}}
		var results []Artist
		if err := c.do(ctx, http.MethodGet, "artist/lookup", query, nil, &results); err != nil {
			lastErr = err
			continue
		}
		if len(results) > 0 {
			return &results[0], nil
		}
	}
	if lastErr != nil {
		return nil, lastErr
	}
	return nil, services.Wrap(services.ErrNotFound, "lidarr", "lookup artist "+name, nil)
}

// AddArtist adds a looked-up artist with the configured library
// defaults. No albums are monitored at add time: the importer monitors
// the one album it wants afterwards. ErrArtistExists signals a race
// with another writer.
func (c *Client) AddArtist(ctx context.Context, lookup *Artist) (*Artist, error) {
	payload := lookup.payload()
	payload["qualityProfileId"] = c.opts.QualityProfileID
	payload["metadataProfileId"] = c.opts.MetadataProfileID
	payload["rootFolderPath"] = c.opts.RootFolderPath
	payload["monitored"] = false
	payload["monitor"] = "none"
	payload["addOptions"] = map[string]any{"searchForMissingAlbums": false}

	var added Artist
	if err := c.do(ctx, http.MethodPost, "artist", nil, payload, &added); err != nil {
		var detail *apiError
		if errors.As(err, &detail) && detail.status == http.StatusBadRequest &&
			strings.Contains(strings.ToLower(detail.body), "already been added") {
			return nil, fmt.Errorf("%w: %s", ErrArtistExists, lookup.ArtistName)
		}
		return nil, err
	}
	return &added, nil
}

// AlbumsByArtist lists all albums Lidarr knows for an artist.
func (c *Client) AlbumsByArtist(ctx context.Context, artistID int64) ([]Album, error) {
	query := url.Values{"artistId": []string{fmt.Sprint(artistID)}}
	var albums []Album
	if err := c.do(ctx, http.MethodGet, "album", query, nil, &albums); err != nil {
		return nil, err
	}
	return albums, nil
}

// LookupAlbum fetches album metadata by MusicBrainz release-group id
// through Lidarr's lookup endpoint.
func (c *Client) LookupAlbum(ctx context.Context, mbReleaseGroupID string) ([]Album, error) {
	query := url.Values{"term": []string{"lidarr:" + mbReleaseGroupID}}
	var albums []Album
	if err := c.do(ctx, http.MethodGet, "album/lookup", query, nil, &albums); err != nil {
		return nil, err
	}
	return albums, nil
}

// AddAlbum adds an album from lookup data, monitored, with a search for
// missing files queued.
func (c *Client) AddAlbum(ctx context.Context, album *Album) (*Album, error) {
	payload := album.payload()
	payload["monitored"] = true
	payload["addOptions"] = map[string]any{"searchForMissingAlbums": true}

	var added Album
	if err := c.do(ctx, http.MethodPost, "album", nil, payload, &added); err != nil {
		return nil, err
	}
	return &added, nil
}

// UpdateAlbum writes a modified album back, typically after flipping
// its monitored flag.
func (c *Client) UpdateAlbum(ctx context.Context, album *Album) error {
	return c.do(ctx, http.MethodPut, fmt.Sprintf("album/%d", album.ID), nil, album.payload(), nil)
}

// RefreshArtist asks Lidarr to refresh an artist's metadata, which pulls
// in release groups added to MusicBrainz since the artist was indexed.
func (c *Client) RefreshArtist(ctx context.Context, artistID int64) error {
	body := map[string]any{"name": "RefreshArtist", "artistId": artistID}
	return c.do(ctx, http.MethodPost, "command", nil, body, nil)
}

// SearchAlbum queues a search for an album's missing files.
func (c *Client) SearchAlbum(ctx context.Context, albumID int64) error {
	body := map[string]any{"name": "AlbumSearch", "albumIds": []int64{albumID}}
	return c.do(ctx, http.MethodPost, "command", nil, body, nil)
}
