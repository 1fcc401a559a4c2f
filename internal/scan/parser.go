package scan

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strings"

	"wantlist/internal/album"
	"wantlist/internal/textnorm"
)

// Options controls parse-time filtering.
type Options struct {
	// MinArtistSongs and MinAlbumSongs apply to Spotify track exports only.
	MinArtistSongs int
	MinAlbumSongs  int

	// ArtistFilter and AlbumFilter are case-insensitive substring matches
	// applied to the cleaned values.
	ArtistFilter string
	AlbumFilter  string

	// MaxItems caps the number of entries collected. Zero means no cap.
	MaxItems int

	// NoNormalize keeps artist and album text as written apart from
	// whitespace trimming, and skips search-title derivation.
	NoNormalize bool
}

// Stats summarizes a parse run.
type Stats struct {
	Format          FormatKind
	RawEntries      int
	SkippedLines    int
	FilteredArtists int
	FilteredAlbums  int
}

// Result holds the parsed entries in input order alongside the stats.
type Result struct {
	Entries []album.Entry
	Stats   Stats
}

// ParseFile detects the format of the file at path and parses it.
func ParseFile(path string, opts Options) (*Result, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read input file: %w", err)
	}
	content := string(data)
	if strings.TrimSpace(content) == "" {
		return nil, fmt.Errorf("input file %s is empty", path)
	}
	kind := Detect(strings.Split(content, "\n"))
	return Parse(content, kind, opts)
}

// Parse parses content as the given format. Malformed rows and lines are
// skipped and tallied, never fatal.
func Parse(content string, kind FormatKind, opts Options) (*Result, error) {
	if strings.TrimSpace(content) == "" {
		return nil, fmt.Errorf("empty input")
	}
	switch kind {
	case FormatSpotifyCSV:
		return parseSpotify(content, opts)
	case FormatSimpleCSVHeadered:
		return parseSimpleCSV(content, true, opts)
	case FormatSimpleCSVHeaderless:
		return parseSimpleCSV(content, false, opts)
	case FormatTextDash, FormatTextBy, FormatTSV:
		return parseText(content, kind, opts)
	case FormatUnknown:
		return parseSalvage(content, opts)
	default:
		return nil, fmt.Errorf("unsupported format %q", kind)
	}
}

func (o Options) matches(artist, albumTitle string) bool {
	if o.ArtistFilter != "" && !strings.Contains(strings.ToLower(artist), strings.ToLower(o.ArtistFilter)) {
		return false
	}
	if o.AlbumFilter != "" && !strings.Contains(strings.ToLower(albumTitle), strings.ToLower(o.AlbumFilter)) {
		return false
	}
	return true
}

func (o Options) cleanArtist(value string) string {
	if o.NoNormalize {
		return strings.TrimSpace(value)
	}
	return textnorm.Clean(value, textnorm.RoleArtist)
}

func (o Options) cleanTitle(value string) string {
	if o.NoNormalize {
		return strings.TrimSpace(value)
	}
	return textnorm.CleanTitle(value)
}

// newEntry builds a parsed entry from cleaned fields, populating the
// search title only when suffix stripping changes it.
func newEntry(artist, albumTitle string, kind FormatKind, opts Options) album.Entry {
	entry := album.NewEntry(artist, albumTitle)
	entry.SourceFormat = string(kind)
	if opts.NoNormalize {
		return entry
	}
	if search := textnorm.StripEditionSuffixes(albumTitle); search != albumTitle {
		entry.AlbumSearch = search
	}
	return entry
}

func parseSimpleCSV(content string, headered bool, opts Options) (*Result, error) {
	records, err := readAllRecords(strings.NewReader(content))
	if err != nil {
		return nil, fmt.Errorf("read csv: %w", err)
	}

	result := &Result{Stats: Stats{Format: FormatSimpleCSVHeaderless}}
	artistIdx, albumIdx := 0, 1
	if headered {
		result.Stats.Format = FormatSimpleCSVHeadered
		if len(records) == 0 {
			return result, nil
		}
		artistIdx, albumIdx = headerColumns(records[0])
		records = records[1:]
	} else if !guessArtistFirst(records) {
		artistIdx, albumIdx = 1, 0
	}

	for _, record := range records {
		result.Stats.RawEntries++
		if len(record) <= artistIdx || len(record) <= albumIdx {
			result.Stats.SkippedLines++
			continue
		}
		artist := opts.cleanArtist(record[artistIdx])
		albumTitle := opts.cleanTitle(record[albumIdx])
		if artist == "" || albumTitle == "" {
			result.Stats.SkippedLines++
			continue
		}
		if !opts.matches(artist, albumTitle) {
			continue
		}
		if opts.MaxItems > 0 && len(result.Entries) >= opts.MaxItems {
			continue
		}
		result.Entries = append(result.Entries, newEntry(artist, albumTitle, result.Stats.Format, opts))
	}
	return result, nil
}

// headerColumns locates the artist and album columns by name, tolerating
// either order. Unrecognized headers fall back to the first two columns.
func headerColumns(header []string) (artistIdx, albumIdx int) {
	artistIdx, albumIdx = 0, 1
	for i, field := range header {
		lower := strings.ToLower(strings.TrimSpace(field))
		switch {
		case strings.Contains(lower, "artist"):
			artistIdx = i
		case strings.Contains(lower, "album") || strings.Contains(lower, "title"):
			albumIdx = i
		}
	}
	return artistIdx, albumIdx
}

func parseText(content string, kind FormatKind, opts Options) (*Result, error) {
	result := &Result{Stats: Stats{Format: kind}}
	for _, line := range strings.Split(content, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		result.Stats.RawEntries++
		artist, albumTitle, ok := splitLine(line, kind, opts)
		if !ok {
			result.Stats.SkippedLines++
			continue
		}
		if !opts.matches(artist, albumTitle) {
			continue
		}
		if opts.MaxItems > 0 && len(result.Entries) >= opts.MaxItems {
			continue
		}
		result.Entries = append(result.Entries, newEntry(artist, albumTitle, kind, opts))
	}
	return result, nil
}

// splitLine splits one text line per format. Dash and tab lines read
// "Artist <sep> Album" split at the first separator; "by" lines read
// "Album by Artist" split at the last separator, so album titles that
// themselves contain "by" stay intact.
func splitLine(line string, kind FormatKind, opts Options) (artist, albumTitle string, ok bool) {
	var left, right string
	switch kind {
	case FormatTextDash:
		var found bool
		left, right, found = strings.Cut(line, " - ")
		if !found {
			return "", "", false
		}
		artist, albumTitle = left, right
	case FormatTSV:
		var found bool
		left, right, found = strings.Cut(line, "\t")
		if !found {
			return "", "", false
		}
		artist, albumTitle = left, right
	case FormatTextBy:
		idx := lastIndexFold(line, " by ")
		if idx < 0 {
			return "", "", false
		}
		albumTitle, artist = line[:idx], line[idx+len(" by "):]
	default:
		return "", "", false
	}
	artist = opts.cleanArtist(artist)
	albumTitle = opts.cleanTitle(albumTitle)
	if artist == "" || albumTitle == "" {
		return "", "", false
	}
	return artist, albumTitle, true
}

func lastIndexFold(s, substr string) int {
	return strings.LastIndex(strings.ToLower(s), strings.ToLower(substr))
}

// parseSalvage handles files no detector rule matched: each line tries
// the dash, by, tab, and comma splits in turn and keeps the first that
// produces two non-empty sides.
func parseSalvage(content string, opts Options) (*Result, error) {
	result := &Result{Stats: Stats{Format: FormatUnknown}}
	for _, line := range strings.Split(content, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		result.Stats.RawEntries++
		artist, albumTitle, ok := salvageLine(line, opts)
		if !ok {
			result.Stats.SkippedLines++
			continue
		}
		if !opts.matches(artist, albumTitle) {
			continue
		}
		if opts.MaxItems > 0 && len(result.Entries) >= opts.MaxItems {
			continue
		}
		result.Entries = append(result.Entries, newEntry(artist, albumTitle, FormatUnknown, opts))
	}
	return result, nil
}

func salvageLine(line string, opts Options) (artist, albumTitle string, ok bool) {
	for _, kind := range []FormatKind{FormatTextDash, FormatTextBy, FormatTSV} {
		if artist, albumTitle, ok = splitLine(line, kind, opts); ok {
			return artist, albumTitle, true
		}
	}
	if fields, parsed := splitCSVLine(line); parsed && len(fields) >= 2 {
		artist = opts.cleanArtist(fields[0])
		albumTitle = opts.cleanTitle(fields[1])
		if artist != "" && albumTitle != "" {
			return artist, albumTitle, true
		}
	}
	return "", "", false
}

// readAllRecords reads CSV records tolerating ragged rows and sloppy quoting.
func readAllRecords(r io.Reader) ([][]string, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true
	return reader.ReadAll()
}
