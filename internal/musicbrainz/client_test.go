package musicbrainz

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"wantlist/internal/services"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	client := New(server.URL, "wantlist-test/0.0 ( test@example.com )", time.Second, server.Client())
	client.interval = time.Millisecond
	return client
}

func artistJSON(artists ...map[string]any) string {
	payload, _ := json.Marshal(map[string]any{"artists": artists})
	return string(payload)
}

func TestSearchArtistsPrefersQuotedResults(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/artist" {
			t.Fatalf("unexpected path %q", r.URL.Path)
		}
		if got := r.Header.Get("User-Agent"); !strings.HasPrefix(got, "wantlist-test/") {
			t.Fatalf("User-Agent = %q", got)
		}
		if r.URL.Query().Get("fmt") != "json" {
			t.Fatalf("fmt = %q, want json", r.URL.Query().Get("fmt"))
		}
		query := r.URL.Query().Get("query")
		if strings.Contains(query, `"`) {
			fmt.Fprint(w, artistJSON(map[string]any{"id": "mbid-exact", "name": "Slowdive", "score": 100}))
			return
		}
		fmt.Fprint(w, artistJSON(
			map[string]any{"id": "mbid-other", "name": "Slowdive Tribute Band", "score": 100},
			map[string]any{"id": "mbid-exact", "name": "Slowdive", "score": 90},
		))
	})

	artists, err := client.SearchArtists(context.Background(), "Slowdive")
	if err != nil {
		t.Fatalf("SearchArtists() error = %v", err)
	}
	if len(artists) == 0 || artists[0].ID != "mbid-exact" {
		t.Fatalf("artists = %+v, want quoted result first", artists)
	}
}

func TestSearchArtistsFiltersDissimilarNames(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, artistJSON(
			map[string]any{"id": "mbid-good", "name": "Seefeel", "score": 100},
			map[string]any{"id": "mbid-bad", "name": "Completely Unrelated Orchestra", "score": 100},
		))
	})

	artists, err := client.SearchArtists(context.Background(), "Seefeel")
	if err != nil {
		t.Fatalf("SearchArtists() error = %v", err)
	}
	for _, a := range artists {
		if a.ID == "mbid-bad" {
			t.Fatalf("dissimilar candidate survived the filter: %+v", artists)
		}
	}
	if len(artists) != 1 {
		t.Fatalf("got %d artists, want 1", len(artists))
	}
}

func TestSearchArtistsStripsBrackets(t *testing.T) {
	var sawQuery string
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		sawQuery = r.URL.Query().Get("query")
		fmt.Fprint(w, artistJSON(map[string]any{"id": "mbid-1", "name": "bsd.u", "score": 100}))
	})

	if _, err := client.SearchArtists(context.Background(), "[bsd.u]"); err != nil {
		t.Fatalf("SearchArtists() error = %v", err)
	}
	if strings.Contains(sawQuery, "[") {
		t.Fatalf("query %q still contains brackets", sawQuery)
	}
}

func TestSearchArtistsClassifiesServerErrors(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "down", http.StatusServiceUnavailable)
	})

	_, err := client.SearchArtists(context.Background(), "Slowdive")
	if !errors.Is(err, services.ErrTransient) {
		t.Fatalf("error = %v, want transient", err)
	}
}

func rgJSON(groups ...map[string]any) string {
	payload, _ := json.Marshal(map[string]any{"release-groups": groups})
	return string(payload)
}

func rg(id, title, credit string, score int) map[string]any {
	return map[string]any{
		"id":    id,
		"title": title,
		"score": score,
		"artist-credit": []map[string]any{
			{"name": credit, "artist": map[string]any{"id": "a1", "name": credit}},
		},
	}
}

func TestSearchReleaseGroupsPrefersExactTitle(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/release-group" {
			t.Fatalf("unexpected path %q", r.URL.Path)
		}
		fmt.Fprint(w, rgJSON(
			rg("rg-deluxe", "Souvlaki (Deluxe)", "Slowdive", 100),
			rg("rg-exact", "Souvlaki", "Slowdive", 95),
		))
	})

	groups, err := client.SearchReleaseGroups(context.Background(), "Slowdive", "Souvlaki", "")
	if err != nil {
		t.Fatalf("SearchReleaseGroups() error = %v", err)
	}
	if len(groups) == 0 || groups[0].ID != "rg-exact" {
		t.Fatalf("groups = %+v, want exact title first", groups)
	}
}

func TestSearchReleaseGroupsUsesAridWhenKnown(t *testing.T) {
	var sawQuery string
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		sawQuery = r.URL.Query().Get("query")
		fmt.Fprint(w, rgJSON(rg("rg-1", "Souvlaki", "Slowdive", 100)))
	})

	groups, err := client.SearchReleaseGroups(context.Background(), "Slowdive", "Souvlaki", "artist-mbid-1")
	if err != nil {
		t.Fatalf("SearchReleaseGroups() error = %v", err)
	}
	if len(groups) != 1 {
		t.Fatalf("groups = %+v, want 1", groups)
	}
	if !strings.Contains(sawQuery, "arid:artist-mbid-1") {
		t.Fatalf("query %q does not constrain on artist id", sawQuery)
	}
}

func TestSearchReleaseGroupsRejectsVolumeMismatch(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, rgJSON(rg("rg-vol3", "GOTNOTIME, Vol. 3", "Some Producer", 100)))
	})

	groups, err := client.SearchReleaseGroups(context.Background(), "Some Producer", "GOTNOTIME, Vol. 5", "")
	if err != nil {
		t.Fatalf("SearchReleaseGroups() error = %v", err)
	}
	if len(groups) != 0 {
		t.Fatalf("groups = %+v, want volume mismatch rejected", groups)
	}
}

func TestSearchReleaseGroupsMatchesVolume(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, rgJSON(
			rg("rg-vol3", "GOTNOTIME, Vol. 3", "Some Producer", 100),
			rg("rg-vol5", "GOTNOTIME Volume 5", "Some Producer", 90),
		))
	})

	groups, err := client.SearchReleaseGroups(context.Background(), "Some Producer", "GOTNOTIME, Vol. 5", "")
	if err != nil {
		t.Fatalf("SearchReleaseGroups() error = %v", err)
	}
	if len(groups) != 1 || groups[0].ID != "rg-vol5" {
		t.Fatalf("groups = %+v, want only the requested volume", groups)
	}
}

func TestSearchReleaseGroupsFiltersWrongArtistCredit(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, rgJSON(rg("rg-cover", "Souvlaki", "A Totally Different Band", 100)))
	})

	groups, err := client.SearchReleaseGroups(context.Background(), "Slowdive", "Souvlaki", "")
	if err != nil {
		t.Fatalf("SearchReleaseGroups() error = %v", err)
	}
	if len(groups) != 0 {
		t.Fatalf("groups = %+v, want artist mismatch filtered", groups)
	}
}

func TestSearchReleaseGroupsHonorsAliases(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, rgJSON(rg("rg-alias", "Madvillainy", "Madvillain", 100)))
	})
	client.SetAliases(map[string][]string{"MF DOOM": {"Madvillain"}})

	groups, err := client.SearchReleaseGroups(context.Background(), "MF DOOM", "Madvillainy", "")
	if err != nil {
		t.Fatalf("SearchReleaseGroups() error = %v", err)
	}
	if len(groups) != 1 || groups[0].ID != "rg-alias" {
		t.Fatalf("groups = %+v, want alias credit accepted", groups)
	}
}

func TestRateLimitFloor(t *testing.T) {
	client := New("", "agent", 0, nil)
	if client.interval != time.Second {
		t.Fatalf("interval = %v, want raised to 1s", client.interval)
	}
}
