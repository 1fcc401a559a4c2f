package enrich

import (
	"context"

	"wantlist/internal/musicbrainz"
	"wantlist/internal/textnorm"
	"wantlist/internal/textutil"
)

// MusicBrainzResolver resolves entries through the MusicBrainz search
// client.
type MusicBrainzResolver struct {
	client *musicbrainz.Client
}

// NewMusicBrainzResolver wraps a configured client.
func NewMusicBrainzResolver(client *musicbrainz.Client) *MusicBrainzResolver {
	return &MusicBrainzResolver{client: client}
}

// Resolve finds the artist first, then constrains the release-group
// search on the artist's MBID when one surfaced. A release search
// failure after a successful artist lookup still reports the artist so
// the caller can persist partial progress.
func (r *MusicBrainzResolver) Resolve(ctx context.Context, artist, title string) (Resolution, error) {
	artists, err := r.client.SearchArtists(ctx, artist)
	if err != nil {
		return Resolution{}, err
	}
	if len(artists) == 0 {
		return Resolution{}, nil
	}
	resolution := Resolution{
		ArtistID:   artists[0].ID,
		ArtistName: artists[0].Name,
	}

	groups, err := r.client.SearchReleaseGroups(ctx, artist, title, resolution.ArtistID)
	if err != nil {
		return resolution, err
	}
	if len(groups) == 0 {
		return resolution, nil
	}
	resolution.ReleaseID = groups[0].ID
	resolution.ReleaseTitle = groups[0].Title
	resolution.Confidence = textutil.TokenSetRatio(
		textnorm.MatchingTitle(title),
		textnorm.MatchingTitle(groups[0].Title),
	)
	return resolution, nil
}
