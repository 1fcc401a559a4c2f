package scan

import (
	"fmt"
	"strings"

	"wantlist/internal/album"
)

// spotifyColumns maps the header of a Spotify track export to the column
// indexes the parser cares about. Missing columns stay -1.
type spotifyColumns struct {
	artist      int
	albumArtist int
	albumTitle  int
	albumID     int
}

func findSpotifyColumns(header []string) spotifyColumns {
	return spotifyColumns{
		artist:      findColumn(header, []string{"artist name"}, []string{"artist"}, "album"),
		albumArtist: findColumn(header, []string{"album artist name"}, []string{"album artist"}, ""),
		albumTitle:  findColumn(header, []string{"album name"}, []string{"album"}, "artist"),
		albumID:     findColumn(header, []string{"album id", "album uri"}, nil, "artist"),
	}
}

// findColumn locates a header column by terms, preferring an exact-name
// match over a generic one and never binding to a column whose header
// contains the exclude word.
func findColumn(header []string, primary, secondary []string, exclude string) int {
	for _, terms := range [][]string{primary, secondary} {
		for i, name := range header {
			lower := strings.ToLower(strings.TrimSpace(name))
			if exclude != "" && strings.Contains(lower, exclude) {
				continue
			}
			for _, term := range terms {
				if strings.Contains(lower, term) {
					return i
				}
			}
		}
	}
	return -1
}

// parseSpotify aggregates a per-track export into per-(artist, album)
// entries with track counts, then drops artists and albums that fall
// below the configured minimum song counts.
func parseSpotify(content string, opts Options) (*Result, error) {
	records, err := readAllRecords(strings.NewReader(content))
	if err != nil {
		return nil, fmt.Errorf("read spotify csv: %w", err)
	}
	result := &Result{Stats: Stats{Format: FormatSpotifyCSV}}
	if len(records) == 0 {
		return result, nil
	}
	cols := findSpotifyColumns(records[0])
	if cols.artist < 0 || cols.albumTitle < 0 {
		return nil, fmt.Errorf("spotify csv is missing an artist or album column")
	}

	type bucket struct {
		entry album.Entry
	}
	var order []string
	buckets := make(map[string]*bucket)

	for _, record := range records[1:] {
		result.Stats.RawEntries++
		artistRaw := field(record, cols.artist)
		if albumArtist := field(record, cols.albumArtist); albumArtist != "" {
			artistRaw = albumArtist
		}
		albumRaw := field(record, cols.albumTitle)
		if artistRaw == "" || albumRaw == "" {
			result.Stats.SkippedLines++
			continue
		}
		// A comma-separated credit lists collaborators; keep the primary.
		if first, _, found := strings.Cut(artistRaw, ","); found {
			artistRaw = first
		}
		artist := opts.cleanArtist(artistRaw)
		albumTitle := opts.cleanTitle(albumRaw)
		if artist == "" || albumTitle == "" {
			result.Stats.SkippedLines++
			continue
		}
		if !opts.matches(artist, albumTitle) {
			continue
		}

		key := artist + "\x00" + albumTitle
		b, seen := buckets[key]
		if !seen {
			if opts.MaxItems > 0 && len(order) >= opts.MaxItems {
				continue
			}
			b = &bucket{entry: newEntry(artist, albumTitle, FormatSpotifyCSV, opts)}
			buckets[key] = b
			order = append(order, key)
		}
		b.entry.TrackCount++
		if b.entry.SpotifyAlbumID == "" {
			b.entry.SpotifyAlbumID = album.NormalizeSpotifyAlbumID(field(record, cols.albumID))
		}
	}

	artistTotals := make(map[string]int)
	for _, key := range order {
		b := buckets[key]
		artistTotals[b.entry.Artist] += b.entry.TrackCount
	}
	for _, key := range order {
		b := buckets[key]
		if opts.MinArtistSongs > 0 && artistTotals[b.entry.Artist] < opts.MinArtistSongs {
			result.Stats.FilteredArtists++
			continue
		}
		if opts.MinAlbumSongs > 0 && b.entry.TrackCount < opts.MinAlbumSongs {
			result.Stats.FilteredAlbums++
			continue
		}
		result.Entries = append(result.Entries, b.entry)
	}
	return result, nil
}

func field(record []string, idx int) string {
	if idx < 0 || idx >= len(record) {
		return ""
	}
	return strings.TrimSpace(record[idx])
}
