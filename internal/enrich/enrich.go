// Package enrich resolves parsed album entries against MusicBrainz,
// attaching artist and release-group identifiers the importer later
// hands to Lidarr. The lookup side sits behind a small Resolver
// interface so the pipeline tests with a fake.
package enrich

import (
	"context"

	"wantlist/internal/album"
)

// Resolution is the outcome of one lookup. An artist can resolve
// without the release: those entries import by artist flow instead of
// being dropped, so the two absences stay distinguishable.
type Resolution struct {
	ArtistID     string
	ArtistName   string
	ReleaseID    string
	ReleaseTitle string

	// Confidence scores how well the chosen release title matches the
	// requested one, 0..100.
	Confidence int
}

// ArtistFound reports whether the artist resolved.
func (r Resolution) ArtistFound() bool { return r.ArtistID != "" }

// ReleaseFound reports whether the release group resolved.
func (r Resolution) ReleaseFound() bool { return r.ReleaseID != "" }

// Resolver looks one artist/title pair up. Not finding anything is a
// zero Resolution with a nil error; errors mean the lookup itself
// failed and may succeed on retry.
type Resolver interface {
	Resolve(ctx context.Context, artist, title string) (Resolution, error)
}

// riskConfidence is the score below which a resolved release is flagged
// for review.
const riskConfidence = 85

// Stats tallies one enrichment run.
type Stats struct {
	Resolved   int
	ArtistOnly int
	NotFound   int
	Skipped    int
	Errors     int
}

// Options tunes an enrichment run. Persist, when set, runs after every
// updated entry so an interrupted run keeps its progress. Progress, when
// set, runs once per entry.
type Options struct {
	Persist  func(entries []album.Entry) error
	Progress func(done, total int)
}

// Run enriches entries in place, in order. Lookup failures tally and
// leave the entry untouched for a later retry; only context
// cancellation and persistence failures abort the run.
func Run(ctx context.Context, entries []album.Entry, resolver Resolver, opts Options) (Stats, error) {
	var stats Stats
	for i := range entries {
		if err := ctx.Err(); err != nil {
			return stats, err
		}
		entry := &entries[i]
		if entry.MBArtistID != "" && entry.MBReleaseID != "" {
			stats.Skipped++
			report(opts, i+1, len(entries))
			continue
		}

		resolution, err := resolver.Resolve(ctx, entry.Artist, entry.SearchTitle())
		if err != nil {
			if ctx.Err() != nil {
				return stats, err
			}
			stats.Errors++
			report(opts, i+1, len(entries))
			continue
		}

		switch {
		case resolution.ReleaseFound():
			stats.Resolved++
		case resolution.ArtistFound():
			stats.ArtistOnly++
		default:
			stats.NotFound++
		}
		if resolution.ArtistFound() {
			entry.MBArtistID = resolution.ArtistID
		}
		if resolution.ReleaseFound() {
			entry.MBReleaseID = resolution.ReleaseID
			if resolution.Confidence > 0 && resolution.Confidence < riskConfidence {
				entry.FlagRisk("low title match confidence")
			}
		}

		if opts.Persist != nil {
			if err := opts.Persist(entries); err != nil {
				return stats, err
			}
		}
		report(opts, i+1, len(entries))
	}
	return stats, nil
}

func report(opts Options, done, total int) {
	if opts.Progress != nil {
		opts.Progress(done, total)
	}
}
