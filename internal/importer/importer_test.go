package importer_test

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gofrs/flock"

	"wantlist/internal/album"
	"wantlist/internal/csvfile"
	"wantlist/internal/importer"
	"wantlist/internal/lidarr"
)

// fakeLidarr is a minimal in-memory Lidarr good enough for the importer's
// request sequence: library listing, lookups, adds, album updates, and
// command posts.
type fakeLidarr struct {
	mu           sync.Mutex
	artists      []map[string]any
	albums       map[int64][]map[string]any
	artistLookup map[string][]map[string]any
	albumLookup  map[string][]map[string]any
	commands     []map[string]any
	requests     []string
	nextID       int64

	addArtistStatus int
	addArtistBody   string
	onAddArtist     func(f *fakeLidarr)
}

func newFakeLidarr() *fakeLidarr {
	return &fakeLidarr{
		albums:       make(map[int64][]map[string]any),
		artistLookup: make(map[string][]map[string]any),
		albumLookup:  make(map[string][]map[string]any),
		nextID:       100,
	}
}

func (f *fakeLidarr) addArtist(name, mbid string, monitored bool) map[string]any {
	f.nextID++
	artist := map[string]any{
		"id": f.nextID, "artistName": name, "foreignArtistId": mbid, "monitored": monitored,
	}
	f.artists = append(f.artists, artist)
	return artist
}

func (f *fakeLidarr) addAlbum(artistID int64, title, mbid string, monitored bool) map[string]any {
	f.nextID++
	alb := map[string]any{
		"id": f.nextID, "title": title, "foreignAlbumId": mbid,
		"monitored": monitored, "artistId": artistID,
	}
	f.albums[artistID] = append(f.albums[artistID], alb)
	return alb
}

func (f *fakeLidarr) handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		defer f.mu.Unlock()
		path := strings.TrimPrefix(r.URL.Path, "/api/v1/")
		f.requests = append(f.requests, r.Method+" "+path)

		switch {
		case path == "artist" && r.Method == http.MethodGet:
			writeJSON(w, f.artists)
		case path == "artist/lookup":
			writeJSON(w, f.artistLookup[r.URL.Query().Get("term")])
		case path == "artist" && r.Method == http.MethodPost:
			if f.addArtistStatus != 0 {
				status, body := f.addArtistStatus, f.addArtistBody
				if f.onAddArtist != nil {
					f.onAddArtist(f)
				}
				w.WriteHeader(status)
				fmt.Fprint(w, body)
				return
			}
			var payload map[string]any
			_ = json.NewDecoder(r.Body).Decode(&payload)
			added := f.addArtist(str(payload["artistName"]), str(payload["foreignArtistId"]), false)
			writeJSON(w, added)
		case path == "album" && r.Method == http.MethodGet:
			artistID, _ := strconv.ParseInt(r.URL.Query().Get("artistId"), 10, 64)
			albums := f.albums[artistID]
			if albums == nil {
				albums = []map[string]any{}
			}
			writeJSON(w, albums)
		case path == "album/lookup":
			term := strings.TrimPrefix(r.URL.Query().Get("term"), "lidarr:")
			writeJSON(w, f.albumLookup[term])
		case path == "album" && r.Method == http.MethodPost:
			var payload map[string]any
			_ = json.NewDecoder(r.Body).Decode(&payload)
			artistID := toInt64(payload["artistId"])
			added := f.addAlbum(artistID, str(payload["title"]), str(payload["foreignAlbumId"]), true)
			writeJSON(w, added)
		case strings.HasPrefix(path, "album/") && r.Method == http.MethodPut:
			var payload map[string]any
			_ = json.NewDecoder(r.Body).Decode(&payload)
			id := toInt64(payload["id"])
			for _, albums := range f.albums {
				for _, alb := range albums {
					if toInt64(alb["id"]) == id {
						alb["monitored"] = payload["monitored"]
					}
				}
			}
			writeJSON(w, payload)
		case path == "command" && r.Method == http.MethodPost:
			var payload map[string]any
			_ = json.NewDecoder(r.Body).Decode(&payload)
			f.commands = append(f.commands, payload)
			writeJSON(w, map[string]any{"id": 1})
		default:
			http.NotFound(w, r)
		}
	})
}

func (f *fakeLidarr) commandNames() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	names := make([]string, 0, len(f.commands))
	for _, cmd := range f.commands {
		names = append(names, str(cmd["name"]))
	}
	return names
}

func (f *fakeLidarr) sawRequest(prefix string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, req := range f.requests {
		if strings.HasPrefix(req, prefix) {
			return true
		}
	}
	return false
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}

func str(v any) string {
	s, _ := v.(string)
	return s
}

func toInt64(v any) int64 {
	switch n := v.(type) {
	case int64:
		return n
	case float64:
		return int64(n)
	default:
		return 0
	}
}

func newTestImporter(t *testing.T, fake *fakeLidarr, entries []album.Entry, opts importer.Options) (*importer.Importer, *csvfile.Store) {
	t.Helper()
	server := httptest.NewServer(fake.handler())
	t.Cleanup(server.Close)

	store := csvfile.NewStore(filepath.Join(t.TempDir(), "albums.csv"))
	if err := store.Write(entries, csvfile.WriteOptions{}); err != nil {
		t.Fatalf("seed CSV: %v", err)
	}

	client := lidarr.New(server.URL, "key", lidarr.Options{
		QualityProfileID: 1, MetadataProfileID: 1, RootFolderPath: "/music",
	})
	opts.Sleep = func(time.Duration) {}
	return importer.New(store, client, opts), store
}

func readStatuses(t *testing.T, store *csvfile.Store) map[string]album.Status {
	t.Helper()
	entries, err := store.Read()
	if err != nil {
		t.Fatalf("read CSV: %v", err)
	}
	statuses := make(map[string]album.Status, len(entries))
	for _, entry := range entries {
		statuses[entry.Artist+"|"+entry.Album] = entry.Status
	}
	return statuses
}

func TestRunMonitorsAlbumForExistingArtist(t *testing.T) {
	fake := newFakeLidarr()
	artist := fake.addArtist("Radiohead", "a74b1b7f-71a5-4011-9441-d0b5e4122711", true)
	artistID := artist["id"].(int64)
	fake.addAlbum(artistID, "OK Computer", "rg-okc", false)

	entry := album.NewEntry("Radiohead", "OK Computer")
	entry.MBArtistID = "a74b1b7f-71a5-4011-9441-d0b5e4122711"
	entry.MBReleaseID = "rg-okc"

	imp, store := newTestImporter(t, fake, []album.Entry{entry}, importer.Options{})
	summary, err := imp.Run(context.Background())
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if summary.Succeeded != 1 || summary.Processed != 1 {
		t.Fatalf("unexpected summary: %#v", summary)
	}
	if got := readStatuses(t, store)["Radiohead|OK Computer"]; got != album.StatusSuccess {
		t.Fatalf("status = %q, want success", got)
	}
	if names := fake.commandNames(); len(names) != 1 || names[0] != "AlbumSearch" {
		t.Fatalf("expected an AlbumSearch command, got %v", names)
	}
}

func TestRunDetectsAlreadyMonitored(t *testing.T) {
	fake := newFakeLidarr()
	artist := fake.addArtist("Radiohead", "mb-artist", true)
	fake.addAlbum(artist["id"].(int64), "OK Computer", "rg-okc", true)

	entry := album.NewEntry("Radiohead", "OK Computer")
	entry.MBArtistID = "mb-artist"
	entry.MBReleaseID = "rg-okc"

	imp, store := newTestImporter(t, fake, []album.Entry{entry}, importer.Options{})
	if _, err := imp.Run(context.Background()); err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if got := readStatuses(t, store)["Radiohead|OK Computer"]; got != album.StatusAlreadyMonitored {
		t.Fatalf("status = %q, want already_monitored", got)
	}
	if fake.sawRequest("POST") {
		t.Fatalf("no mutating request expected, saw %v", fake.requests)
	}
}

func TestRunAddsNewArtistAndMonitorsAlbum(t *testing.T) {
	fake := newFakeLidarr()
	fake.artistLookup["mbid:mb-bonobo"] = []map[string]any{
		{"artistName": "Bonobo", "foreignArtistId": "mb-bonobo"},
	}
	fake.albumLookup["rg-migration"] = []map[string]any{
		{"title": "Migration", "foreignAlbumId": "rg-migration", "artistId": float64(0)},
	}

	entry := album.NewEntry("Bonobo", "Migration")
	entry.MBArtistID = "mb-bonobo"
	entry.MBReleaseID = "rg-migration"

	imp, store := newTestImporter(t, fake, []album.Entry{entry}, importer.Options{})
	summary, err := imp.Run(context.Background())
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if got := readStatuses(t, store)["Bonobo|Migration"]; got != album.StatusArtistAdded {
		t.Fatalf("status = %q, want artist_added", got)
	}
	if summary.Pending != 1 {
		t.Fatalf("artist_added rows count as pending, got %#v", summary)
	}
	if !fake.sawRequest("POST artist") || !fake.sawRequest("POST album") {
		t.Fatalf("expected artist and album adds, saw %v", fake.requests)
	}
}

func TestRunPendingRefreshWhenAlbumNotIndexed(t *testing.T) {
	fake := newFakeLidarr()
	artist := fake.addArtist("Burial", "mb-burial", true)
	_ = artist

	entry := album.NewEntry("Burial", "Untrue")
	entry.MBArtistID = "mb-burial"
	entry.MBReleaseID = "rg-untrue"

	imp, store := newTestImporter(t, fake, []album.Entry{entry}, importer.Options{})
	summary, err := imp.Run(context.Background())
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if got := readStatuses(t, store)["Burial|Untrue"]; got != album.StatusPendingRefresh {
		t.Fatalf("status = %q, want pending_refresh", got)
	}
	if summary.Pending != 1 {
		t.Fatalf("unexpected summary: %#v", summary)
	}
	if names := fake.commandNames(); len(names) != 1 || names[0] != "RefreshArtist" {
		t.Fatalf("expected a RefreshArtist command, got %v", names)
	}
}

func TestRunSkipsArtistWithoutRelease(t *testing.T) {
	fake := newFakeLidarr()
	fake.addArtist("Burial", "mb-burial", true)

	entry := album.NewEntry("Burial", "Unreleased Bootleg")
	entry.MBArtistID = "mb-burial"

	imp, store := newTestImporter(t, fake, []album.Entry{entry}, importer.Options{})
	summary, err := imp.Run(context.Background())
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if got := readStatuses(t, store)["Burial|Unreleased Bootleg"]; got != album.StatusSkipAlbumMBNoResults {
		t.Fatalf("status = %q, want skip_album_mb_noresults", got)
	}
	if summary.Skipped != 1 {
		t.Fatalf("unexpected summary: %#v", summary)
	}
}

func TestRunRequiresArtistID(t *testing.T) {
	fake := newFakeLidarr()
	entry := album.NewEntry("Unknown", "Mystery")
	entry.MBReleaseID = "rg-mystery"

	imp, store := newTestImporter(t, fake, []album.Entry{entry}, importer.Options{})
	summary, err := imp.Run(context.Background())
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if got := readStatuses(t, store)["Unknown|Mystery"]; got != album.StatusErrorInvalidData {
		t.Fatalf("status = %q, want error_invalid_data", got)
	}
	if summary.Failed != 1 {
		t.Fatalf("unexpected summary: %#v", summary)
	}
}

func TestRunSkipsRowsWithoutMusicBrainzData(t *testing.T) {
	fake := newFakeLidarr()
	entry := album.NewEntry("Obscure Act", "Bedroom Demo")

	imp, store := newTestImporter(t, fake, []album.Entry{entry}, importer.Options{})
	summary, err := imp.Run(context.Background())
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if got := readStatuses(t, store)["Obscure Act|Bedroom Demo"]; got != album.StatusSkipNoMusicBrainz {
		t.Fatalf("status = %q, want skip_no_musicbrainz", got)
	}
	if summary.Skipped != 1 {
		t.Fatalf("unexpected summary: %#v", summary)
	}
}

func TestRunPendingImportWhenAlbumAdded(t *testing.T) {
	fake := newFakeLidarr()
	fake.addArtist("Four Tet", "mb-fourtet", true)
	fake.albumLookup["rg-rounds"] = []map[string]any{
		{"title": "Rounds", "foreignAlbumId": "rg-rounds", "artistId": float64(0)},
	}

	entry := album.NewEntry("Four Tet", "Rounds")
	entry.MBArtistID = "mb-fourtet"
	entry.MBReleaseID = "rg-rounds"

	imp, store := newTestImporter(t, fake, []album.Entry{entry}, importer.Options{})
	summary, err := imp.Run(context.Background())
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if got := readStatuses(t, store)["Four Tet|Rounds"]; got != album.StatusPendingImport {
		t.Fatalf("status = %q, want pending_import", got)
	}
	if summary.Pending != 1 {
		t.Fatalf("pending_import rows count as pending, got %#v", summary)
	}
	if !fake.sawRequest("POST album") {
		t.Fatalf("expected an album add, saw %v", fake.requests)
	}
}

func TestRunSkipsCompletedRowsByDefault(t *testing.T) {
	fake := newFakeLidarr()
	done := album.NewEntry("Radiohead", "OK Computer")
	done.MBArtistID = "mb-artist"
	done.Status = album.StatusSuccess
	skipped := album.NewEntry("Burial", "Untrue")
	skipped.MBArtistID = "mb-burial"
	skipped.Status = album.StatusSkipNoArtistMatch

	imp, _ := newTestImporter(t, fake, []album.Entry{done, skipped}, importer.Options{})
	summary, err := imp.Run(context.Background())
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if summary.Processed != 0 {
		t.Fatalf("terminal rows should be filtered, got %#v", summary)
	}
}

func TestRunStatusFilterTokens(t *testing.T) {
	fake := newFakeLidarr()
	fake.addArtist("Radiohead", "mb-artist", true)
	fake.addAlbum(fake.artists[0]["id"].(int64), "Kid A", "rg-kida", true)

	fresh := album.NewEntry("Radiohead", "Kid A")
	fresh.MBArtistID = "mb-artist"
	fresh.MBReleaseID = "rg-kida"
	errored := album.NewEntry("Radiohead", "Amnesiac")
	errored.MBArtistID = "mb-artist"
	errored.MBReleaseID = "rg-kida"
	errored.Status = album.StatusErrorTimeout

	imp, store := newTestImporter(t, fake, []album.Entry{fresh, errored}, importer.Options{
		StatusFilter: "failed",
	})
	summary, err := imp.Run(context.Background())
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	// "failed" covers every retryable status including blank, so both
	// rows pass; "new" alone would keep only the blank one.
	if summary.Processed != 2 {
		t.Fatalf("unexpected summary: %#v", summary)
	}

	imp2, _ := newTestImporter(t, fake, []album.Entry{fresh, errored}, importer.Options{
		StatusFilter: "error_timeout",
	})
	summary2, err := imp2.Run(context.Background())
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if summary2.Processed != 1 {
		t.Fatalf("exact token should match one row, got %#v", summary2)
	}
	_ = store
}

func TestRunSkipExistingFilter(t *testing.T) {
	fake := newFakeLidarr()
	fake.addArtist("Radiohead", "mb-artist", true)

	known := album.NewEntry("Radiohead", "Kid A")
	known.MBArtistID = "mb-artist"
	known.MBReleaseID = "rg-kida"

	imp, _ := newTestImporter(t, fake, []album.Entry{known}, importer.Options{SkipExisting: true})
	summary, err := imp.Run(context.Background())
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if summary.Processed != 0 {
		t.Fatalf("existing artist row should be filtered, got %#v", summary)
	}
}

func TestRunDryRunMakesNoMutatingCalls(t *testing.T) {
	fake := newFakeLidarr()
	entry := album.NewEntry("Bonobo", "Migration")
	entry.MBArtistID = "mb-bonobo"
	entry.MBReleaseID = "rg-migration"

	imp, store := newTestImporter(t, fake, []album.Entry{entry}, importer.Options{DryRun: true})
	summary, err := imp.Run(context.Background())
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if got := readStatuses(t, store)["Bonobo|Migration"]; got != album.StatusDryRun {
		t.Fatalf("status = %q, want dry_run", got)
	}
	if summary.Succeeded != 1 {
		t.Fatalf("unexpected summary: %#v", summary)
	}
	if fake.sawRequest("POST") || fake.sawRequest("PUT") {
		t.Fatalf("mutating request during dry run: %v", fake.requests)
	}
}

func TestRunResolvesAddRace(t *testing.T) {
	fake := newFakeLidarr()
	fake.artistLookup["mbid:mb-bonobo"] = []map[string]any{
		{"artistName": "Bonobo", "foreignArtistId": "mb-bonobo"},
	}
	fake.addArtistStatus = http.StatusBadRequest
	fake.addArtistBody = `{"message":"This artist has already been added"}`
	fake.onAddArtist = func(f *fakeLidarr) {
		// Another writer added the artist with an album concurrently.
		artist := f.addArtist("Bonobo", "mb-bonobo", true)
		f.addAlbum(artist["id"].(int64), "Migration", "rg-migration", false)
	}

	entry := album.NewEntry("Bonobo", "Migration")
	entry.MBArtistID = "mb-bonobo"
	entry.MBReleaseID = "rg-migration"

	imp, store := newTestImporter(t, fake, []album.Entry{entry}, importer.Options{})
	if _, err := imp.Run(context.Background()); err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if got := readStatuses(t, store)["Bonobo|Migration"]; got != album.StatusSuccess {
		t.Fatalf("status = %q, want success after race resolution", got)
	}
}

func TestRunFindsArtistThroughAlias(t *testing.T) {
	fake := newFakeLidarr()
	artist := fake.addArtist("Kanye West", "mb-kanye", true)
	fake.addAlbum(artist["id"].(int64), "Donda", "rg-donda", true)

	entry := album.NewEntry("Ye", "Donda")
	entry.MBArtistID = "mb-kanye"
	entry.MBReleaseID = "rg-donda"

	imp, store := newTestImporter(t, fake, []album.Entry{entry}, importer.Options{
		Aliases: map[string][]string{"ye": {"Kanye West"}},
	})
	if _, err := imp.Run(context.Background()); err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if got := readStatuses(t, store)["Ye|Donda"]; got != album.StatusAlreadyMonitored {
		t.Fatalf("status = %q, want already_monitored via alias", got)
	}
}

func TestRunRefusesConcurrentImport(t *testing.T) {
	fake := newFakeLidarr()
	entry := album.NewEntry("Bonobo", "Migration")
	entry.MBArtistID = "mb-bonobo"

	imp, store := newTestImporter(t, fake, []album.Entry{entry}, importer.Options{})

	other := flock.New(store.Path() + ".lock")
	locked, err := other.TryLock()
	if err != nil || !locked {
		t.Fatalf("could not take lock externally: %v", err)
	}
	defer func() { _ = other.Unlock() }()

	if _, err := imp.Run(context.Background()); err == nil {
		t.Fatal("expected error while lock is held")
	}
}

func TestRunRecordsEvents(t *testing.T) {
	fake := newFakeLidarr()
	fake.addArtist("Burial", "mb-burial", true)

	entry := album.NewEntry("Burial", "Untrue")
	entry.MBArtistID = "mb-burial"

	var recorded []album.Entry
	imp, _ := newTestImporter(t, fake, []album.Entry{entry}, importer.Options{
		Record: func(e album.Entry, message string) {
			recorded = append(recorded, e)
			if message == "" {
				t.Error("expected a message with each event")
			}
		},
	})
	if _, err := imp.Run(context.Background()); err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if len(recorded) != 1 || recorded[0].Status != album.StatusSkipAlbumMBNoResults {
		t.Fatalf("unexpected events: %#v", recorded)
	}
}
