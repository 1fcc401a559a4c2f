package enrich

import (
	"context"
	"errors"
	"testing"

	"wantlist/internal/album"
)

type fakeResolver struct {
	results map[string]Resolution
	errs    map[string]error
	calls   []string
}

func (f *fakeResolver) Resolve(ctx context.Context, artist, title string) (Resolution, error) {
	key := artist + "|" + title
	f.calls = append(f.calls, key)
	if err, ok := f.errs[key]; ok {
		return Resolution{}, err
	}
	return f.results[key], nil
}

func TestRunAttachesIdentifiers(t *testing.T) {
	entries := []album.Entry{
		album.NewEntry("Slowdive", "Souvlaki"),
		album.NewEntry("Seefeel", "Quique"),
	}
	resolver := &fakeResolver{results: map[string]Resolution{
		"Slowdive|Souvlaki": {ArtistID: "art-1", ReleaseID: "rel-1", Confidence: 100},
		"Seefeel|Quique":    {ArtistID: "art-2"},
	}}

	stats, err := Run(context.Background(), entries, resolver, Options{})
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if entries[0].MBArtistID != "art-1" || entries[0].MBReleaseID != "rel-1" {
		t.Fatalf("entry 0 = %+v, want both ids", entries[0])
	}
	if entries[1].MBArtistID != "art-2" || entries[1].MBReleaseID != "" {
		t.Fatalf("entry 1 = %+v, want artist id only", entries[1])
	}
	if stats.Resolved != 1 || stats.ArtistOnly != 1 {
		t.Fatalf("stats = %+v", stats)
	}
}

func TestRunUsesSearchTitle(t *testing.T) {
	entry := album.NewEntry("Drake", "Views (Deluxe)")
	entry.AlbumSearch = "Views"
	resolver := &fakeResolver{}

	if _, err := Run(context.Background(), []album.Entry{entry}, resolver, Options{}); err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if len(resolver.calls) != 1 || resolver.calls[0] != "Drake|Views" {
		t.Fatalf("calls = %v, want search title used", resolver.calls)
	}
}

func TestRunSkipsAlreadyEnriched(t *testing.T) {
	entry := album.NewEntry("Slowdive", "Souvlaki")
	entry.MBArtistID = "art-1"
	entry.MBReleaseID = "rel-1"
	resolver := &fakeResolver{}

	stats, err := Run(context.Background(), []album.Entry{entry}, resolver, Options{})
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if len(resolver.calls) != 0 {
		t.Fatalf("resolver called for already-enriched entry: %v", resolver.calls)
	}
	if stats.Skipped != 1 {
		t.Fatalf("stats = %+v, want 1 skipped", stats)
	}
}

func TestRunFlagsLowConfidence(t *testing.T) {
	entries := []album.Entry{album.NewEntry("Slowdive", "Souvlaki")}
	resolver := &fakeResolver{results: map[string]Resolution{
		"Slowdive|Souvlaki": {ArtistID: "art-1", ReleaseID: "rel-1", Confidence: 72},
	}}

	if _, err := Run(context.Background(), entries, resolver, Options{}); err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if !entries[0].MatchingRisk {
		t.Fatalf("entry = %+v, want risk flag", entries[0])
	}
}

func TestRunCountsLookupErrorsAndContinues(t *testing.T) {
	entries := []album.Entry{
		album.NewEntry("Slowdive", "Souvlaki"),
		album.NewEntry("Seefeel", "Quique"),
	}
	resolver := &fakeResolver{
		errs:    map[string]error{"Slowdive|Souvlaki": errors.New("rate limited")},
		results: map[string]Resolution{"Seefeel|Quique": {ArtistID: "art-2", ReleaseID: "rel-2", Confidence: 100}},
	}

	stats, err := Run(context.Background(), entries, resolver, Options{})
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if stats.Errors != 1 || stats.Resolved != 1 {
		t.Fatalf("stats = %+v", stats)
	}
	if entries[0].MBArtistID != "" {
		t.Fatalf("failed entry should stay untouched: %+v", entries[0])
	}
}

func TestRunPersistsAfterEachEntry(t *testing.T) {
	entries := []album.Entry{
		album.NewEntry("Slowdive", "Souvlaki"),
		album.NewEntry("Seefeel", "Quique"),
	}
	resolver := &fakeResolver{results: map[string]Resolution{
		"Slowdive|Souvlaki": {ArtistID: "a", ReleaseID: "r", Confidence: 100},
		"Seefeel|Quique":    {ArtistID: "b", ReleaseID: "s", Confidence: 100},
	}}
	var persisted int
	opts := Options{Persist: func(all []album.Entry) error {
		persisted++
		return nil
	}}

	if _, err := Run(context.Background(), entries, resolver, opts); err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if persisted != 2 {
		t.Fatalf("persisted %d times, want 2", persisted)
	}
}

func TestRunStopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	entries := []album.Entry{album.NewEntry("Slowdive", "Souvlaki")}

	if _, err := Run(ctx, entries, &fakeResolver{}, Options{}); !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v, want context.Canceled", err)
	}
}
