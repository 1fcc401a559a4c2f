package scan

import (
	"encoding/csv"
	"strings"
)

// FormatKind identifies the detected shape of an input file.
type FormatKind string

const (
	FormatSpotifyCSV          FormatKind = "spotify_csv"
	FormatSimpleCSVHeadered   FormatKind = "simple_csv_headered"
	FormatSimpleCSVHeaderless FormatKind = "simple_csv_headerless"
	FormatTextDash            FormatKind = "text_dash"
	FormatTextBy              FormatKind = "text_by"
	FormatTSV                 FormatKind = "tsv"
	FormatUnknown             FormatKind = "unknown"
)

// sampleLimit bounds how much of the input detection inspects.
const sampleLimit = 50

// Detect classifies a bounded sample of non-empty input lines. The checks
// run in a fixed order and the first match wins, since several shapes can
// overlap on real files.
func Detect(lines []string) FormatKind {
	sample := make([]string, 0, sampleLimit)
	for _, line := range lines {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" {
			continue
		}
		sample = append(sample, trimmed)
		if len(sample) == sampleLimit {
			break
		}
	}
	if len(sample) == 0 {
		return FormatUnknown
	}

	first := sample[0]
	if fields, ok := splitCSVLine(first); ok && len(fields) >= 2 {
		switch {
		case isSpotifyHeader(fields):
			return FormatSpotifyCSV
		case isSimpleHeader(fields):
			return FormatSimpleCSVHeadered
		// A comma inside "Artist - Album" lines is list punctuation,
		// not a column separator.
		case len(fields) == 2 && !looksLikeHeader(fields) && fields[0] != "" && fields[1] != "" && !strings.Contains(first, " - "):
			return FormatSimpleCSVHeaderless
		}
	}
	if hasSeparator(sample, " - ") {
		return FormatTextDash
	}
	if hasSeparatorFold(sample, " by ") {
		return FormatTextBy
	}
	if hasSeparator(sample, "\t") {
		return FormatTSV
	}
	return FormatUnknown
}

func splitCSVLine(line string) ([]string, bool) {
	reader := csv.NewReader(strings.NewReader(line))
	fields, err := reader.Read()
	if err != nil {
		return nil, false
	}
	for i := range fields {
		fields[i] = strings.TrimSpace(fields[i])
	}
	return fields, true
}

// isSpotifyHeader recognizes a Spotify export header: a track-name
// column alongside an artist-name column.
func isSpotifyHeader(fields []string) bool {
	var hasTrack, hasArtist bool
	for _, field := range fields {
		lower := strings.ToLower(field)
		if strings.Contains(lower, "track") {
			hasTrack = true
		}
		if strings.Contains(lower, "artist") {
			hasArtist = true
		}
	}
	return hasTrack && hasArtist
}

// isSimpleHeader recognizes a plain artist/album header in either order.
func isSimpleHeader(fields []string) bool {
	var hasArtist, hasAlbum bool
	for _, field := range fields {
		lower := strings.ToLower(field)
		if strings.Contains(lower, "artist") {
			hasArtist = true
		}
		if strings.Contains(lower, "album") || strings.Contains(lower, "title") {
			hasAlbum = true
		}
	}
	return hasArtist && hasAlbum
}

var headerWords = []string{"artist", "album", "track", "title", "name"}

func looksLikeHeader(fields []string) bool {
	for _, field := range fields {
		lower := strings.ToLower(field)
		for _, word := range headerWords {
			if lower == word || strings.Contains(lower, word+" ") || strings.Contains(lower, " "+word) {
				return true
			}
		}
	}
	return false
}

func hasSeparator(sample []string, sep string) bool {
	for _, line := range sample {
		before, after, found := strings.Cut(line, sep)
		if found && strings.TrimSpace(before) != "" && strings.TrimSpace(after) != "" {
			return true
		}
	}
	return false
}

func hasSeparatorFold(sample []string, sep string) bool {
	for _, line := range sample {
		idx := indexFold(line, sep)
		if idx <= 0 {
			continue
		}
		if strings.TrimSpace(line[:idx]) != "" && strings.TrimSpace(line[idx+len(sep):]) != "" {
			return true
		}
	}
	return false
}

func indexFold(s, substr string) int {
	return strings.Index(strings.ToLower(s), strings.ToLower(substr))
}

// guessArtistFirst decides column order for a headerless CSV. Artist
// names run shorter than album titles, so the column with the smaller
// average word count is taken as the artist. Ties keep artist,album.
func guessArtistFirst(records [][]string) bool {
	var words0, words1, rows int
	for _, record := range records {
		if len(record) < 2 {
			continue
		}
		words0 += len(strings.Fields(record[0]))
		words1 += len(strings.Fields(record[1]))
		rows++
		if rows == sampleLimit {
			break
		}
	}
	if rows == 0 {
		return true
	}
	return words0 <= words1
}
