package album

import (
	"fmt"
	"strings"

	"github.com/google/uuid"

	"wantlist/internal/textnorm"
)

// Entry is one artist/album pair flowing through the pipeline: parsed from
// an input list, deduplicated, enriched with MusicBrainz identifiers, and
// finally imported into Lidarr. The ID is assigned once at parse time and
// persisted in the CSV so interrupted runs can match rows reliably.
type Entry struct {
	ID             string
	Artist         string
	Album          string
	AlbumSearch    string
	SpotifyAlbumID string
	MBArtistID     string
	MBReleaseID    string
	TrackCount     int
	SourceFormat   string
	MatchingRisk   bool
	RiskReason     string
	Status         Status
}

// NewEntry builds an entry with a fresh row ID from already-cleaned fields.
func NewEntry(artist, albumTitle string) Entry {
	return Entry{
		ID:     uuid.NewString(),
		Artist: artist,
		Album:  albumTitle,
	}
}

// Key returns the normalized identity used for exact deduplication and for
// matching CSV rows that predate row IDs.
func (e Entry) Key() string {
	return textnorm.Key(e.Artist) + "|" + textnorm.Key(e.Album)
}

// ArtistKey returns the normalized artist name used to bucket entries for
// fuzzy matching.
func (e Entry) ArtistKey() string {
	return textnorm.Key(e.Artist)
}

// SearchTitle returns the title to use for MusicBrainz and Lidarr lookups:
// the parse-time search override when present, the display title otherwise.
func (e Entry) SearchTitle() string {
	if e.AlbumSearch != "" {
		return e.AlbumSearch
	}
	return e.Album
}

// FlagRisk marks the entry as a risky match, appending to any prior reason.
func (e *Entry) FlagRisk(reason string) {
	e.MatchingRisk = true
	if reason == "" {
		return
	}
	if e.RiskReason != "" {
		e.RiskReason += "; " + reason
	} else {
		e.RiskReason = reason
	}
}

// Merge folds a duplicate into the receiver, accumulating track counts and
// carrying over identifiers the receiver is missing.
func (e *Entry) Merge(other Entry) {
	e.TrackCount += other.TrackCount
	if e.SpotifyAlbumID == "" {
		e.SpotifyAlbumID = other.SpotifyAlbumID
	}
	if e.MBArtistID == "" {
		e.MBArtistID = other.MBArtistID
	}
	if e.MBReleaseID == "" {
		e.MBReleaseID = other.MBReleaseID
	}
	if other.MatchingRisk {
		e.FlagRisk(other.RiskReason)
	}
}

// String renders the entry for logs.
func (e Entry) String() string {
	return fmt.Sprintf("%s - %s", e.Artist, e.Album)
}

// NormalizeSpotifyAlbumID extracts the bare 22-character album identifier
// from the forms Spotify exports use: spotify:album:ID URIs, open.spotify.com
// URLs with optional query strings, or an already-bare ID. Unrecognized
// values return empty.
func NormalizeSpotifyAlbumID(raw string) string {
	value := strings.TrimSpace(raw)
	if value == "" {
		return ""
	}
	if rest, ok := strings.CutPrefix(value, "spotify:album:"); ok {
		value = rest
	} else if idx := strings.Index(value, "open.spotify.com/album/"); idx >= 0 {
		value = value[idx+len("open.spotify.com/album/"):]
		if q := strings.IndexAny(value, "?#"); q >= 0 {
			value = value[:q]
		}
	}
	if !isSpotifyID(value) {
		return ""
	}
	return value
}

func isSpotifyID(value string) bool {
	if len(value) != 22 {
		return false
	}
	for _, r := range value {
		switch {
		case r >= '0' && r <= '9':
		case r >= 'a' && r <= 'z':
		case r >= 'A' && r <= 'Z':
		default:
			return false
		}
	}
	return true
}
