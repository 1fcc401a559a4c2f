package importer

import (
	"context"
	"errors"
	"fmt"

	"wantlist/internal/album"
	"wantlist/internal/lidarr"
	"wantlist/internal/services"
)

// processEntry runs one row through the decision tree and returns the
// status to record plus a human-readable outcome.
func (imp *Importer) processEntry(ctx context.Context, entry *album.Entry, index *artistIndex) (album.Status, string) {
	if entry.MBArtistID == "" {
		if entry.MBReleaseID == "" {
			return album.StatusSkipNoMusicBrainz,
				fmt.Sprintf("no MusicBrainz match for %s", entry)
		}
		return album.StatusErrorInvalidData,
			fmt.Sprintf("missing MusicBrainz artist id for %s, enrich the CSV first", entry)
	}

	existing := index.find(entry.Artist)

	if imp.opts.DryRun {
		if existing != nil && entry.MBReleaseID == "" {
			return album.StatusSkipAlbumMBNoResults,
				fmt.Sprintf("artist %q already in Lidarr and album has no MusicBrainz release", entry.Artist)
		}
		return album.StatusDryRun, fmt.Sprintf("dry run: would import %s", entry)
	}

	if existing != nil {
		return imp.handleExistingArtist(ctx, existing, entry)
	}
	return imp.addNewArtist(ctx, entry, index)
}

func (imp *Importer) handleExistingArtist(ctx context.Context, artist *lidarr.Artist, entry *album.Entry) (album.Status, string) {
	if entry.MBReleaseID == "" {
		return album.StatusSkipAlbumMBNoResults,
			fmt.Sprintf("artist %q already in Lidarr and album has no MusicBrainz release", entry.Artist)
	}

	outcome, err := imp.monitorByMBID(ctx, artist.ID, entry)
	if err != nil {
		return services.FailureStatus(err), fmt.Sprintf("failed to monitor %s: %v", entry, err)
	}
	switch outcome {
	case monitorAlreadyOn:
		return album.StatusAlreadyMonitored, fmt.Sprintf("album already monitored: %s", entry)
	case monitorEnabled:
		return album.StatusSuccess, fmt.Sprintf("monitored album for existing artist: %s", entry)
	case monitorAdded:
		return album.StatusPendingImport,
			fmt.Sprintf("album add accepted, waiting for Lidarr to import: %s", entry)
	}

	// Lidarr has not indexed the release group yet. A refresh usually
	// pulls it in, so the row stays retryable.
	if err := imp.lidarr.RefreshArtist(ctx, artist.ID); err != nil {
		imp.logger.Warn("refresh after failed album lookup", "artist", entry.Artist, "error", err)
	}
	return album.StatusPendingRefresh,
		fmt.Sprintf("album not indexed yet, refresh triggered for %q", entry.Artist)
}

func (imp *Importer) addNewArtist(ctx context.Context, entry *album.Entry, index *artistIndex) (album.Status, string) {
	lookup, err := imp.lidarr.LookupArtist(ctx, entry.Artist, entry.MBArtistID)
	if err != nil {
		if errors.Is(err, services.ErrNotFound) {
			return album.StatusSkipNoArtistMatch,
				fmt.Sprintf("no Lidarr lookup results for artist %q (MBID %s)", entry.Artist, entry.MBArtistID)
		}
		return services.FailureStatus(err), fmt.Sprintf("artist lookup failed for %q: %v", entry.Artist, err)
	}

	added, err := imp.lidarr.AddArtist(ctx, lookup)
	if err != nil {
		if errors.Is(err, lidarr.ErrArtistExists) {
			return imp.resolveAddRace(ctx, entry, index)
		}
		return services.FailureStatus(err), fmt.Sprintf("failed to add artist %q: %v", entry.Artist, err)
	}
	index.add(added)
	imp.logger.Info("added artist", "artist", added.ArtistName, "lidarr_id", added.ID)

	if entry.MBReleaseID == "" {
		return album.StatusSuccess,
			fmt.Sprintf("artist %q added, no album to monitor", entry.Artist)
	}
	return imp.monitorForNewArtist(ctx, added, entry)
}

// monitorForNewArtist narrows a freshly added artist down to the one
// wanted album: everything is unmonitored first, the target is
// monitored by MusicBrainz id, and a final pass clears any albums
// Lidarr monitored on its own in between.
func (imp *Importer) monitorForNewArtist(ctx context.Context, artist *lidarr.Artist, entry *album.Entry) (album.Status, string) {
	imp.unmonitorAlbums(ctx, artist.ID, "")

	outcome, err := imp.monitorByMBID(ctx, artist.ID, entry)
	if err != nil {
		imp.logger.Warn("monitor album for new artist", "album", entry.Album, "error", err)
	}
	if outcome == monitorNotIndexed {
		if err := imp.lidarr.RefreshArtist(ctx, artist.ID); err != nil {
			imp.logger.Warn("refresh new artist", "artist", entry.Artist, "error", err)
		}
		return album.StatusPendingRefresh,
			fmt.Sprintf("artist %q added but album not monitored yet, refresh triggered", entry.Artist)
	}

	imp.unmonitorAlbums(ctx, artist.ID, entry.MBReleaseID)
	return album.StatusArtistAdded, fmt.Sprintf("added artist and monitored album: %s", entry)
}

// resolveAddRace handles another writer adding the artist between our
// library fetch and the add call: refetch the library and monitor
// against whatever is there now.
func (imp *Importer) resolveAddRace(ctx context.Context, entry *album.Entry, index *artistIndex) (album.Status, string) {
	artists, err := imp.lidarr.Artists(ctx)
	if err != nil {
		return services.FailureStatus(err), fmt.Sprintf("artist list refresh after add race failed: %v", err)
	}
	fresh := newArtistIndex(artists, imp.opts.Aliases)
	artist := fresh.find(entry.Artist)
	if artist == nil {
		return album.StatusPendingRefresh,
			fmt.Sprintf("artist %q reported as existing but not found yet", entry.Artist)
	}
	index.add(artist)

	if entry.MBReleaseID == "" {
		return album.StatusSkipArtistExists,
			fmt.Sprintf("artist %q was added concurrently, no album to monitor", entry.Artist)
	}
	outcome, err := imp.monitorByMBID(ctx, artist.ID, entry)
	if err != nil {
		return services.FailureStatus(err), fmt.Sprintf("failed to monitor %s after add race: %v", entry, err)
	}
	switch outcome {
	case monitorAlreadyOn:
		return album.StatusAlreadyMonitored, fmt.Sprintf("album already monitored: %s", entry)
	case monitorEnabled:
		return album.StatusSuccess, fmt.Sprintf("add race resolved, monitored album: %s", entry)
	case monitorAdded:
		return album.StatusPendingImport,
			fmt.Sprintf("album add accepted after add race, waiting for Lidarr to import: %s", entry)
	}
	return album.StatusPendingRefresh,
		fmt.Sprintf("add race resolved for %q but album not monitored yet", entry.Artist)
}

// monitorOutcome distinguishes how a release group ended up monitored.
type monitorOutcome int

const (
	// monitorNotIndexed: Lidarr's lookup knows nothing about the
	// release group yet.
	monitorNotIndexed monitorOutcome = iota
	// monitorEnabled: the album was already in the artist's library and
	// monitoring was switched on.
	monitorEnabled
	// monitorAlreadyOn: the album was monitored before this run.
	monitorAlreadyOn
	// monitorAdded: the album had to be added; Lidarr accepted it but
	// imports asynchronously, so it is not yet visible in the library.
	monitorAdded
)

// monitorByMBID makes entry's release group monitored under the given
// artist.
func (imp *Importer) monitorByMBID(ctx context.Context, artistID int64, entry *album.Entry) (monitorOutcome, error) {
	albums, err := imp.lidarr.AlbumsByArtist(ctx, artistID)
	if err != nil {
		return monitorNotIndexed, err
	}
	for i := range albums {
		if albums[i].ForeignAlbumID != entry.MBReleaseID {
			continue
		}
		if albums[i].Monitored {
			return monitorAlreadyOn, nil
		}
		albums[i].Monitored = true
		if err := imp.lidarr.UpdateAlbum(ctx, &albums[i]); err != nil {
			return monitorNotIndexed, err
		}
		if err := imp.lidarr.SearchAlbum(ctx, albums[i].ID); err != nil {
			imp.logger.Warn("queue album search", "album", entry.Album, "error", err)
		}
		return monitorEnabled, nil
	}

	results, err := imp.lidarr.LookupAlbum(ctx, entry.MBReleaseID)
	if err != nil {
		return monitorNotIndexed, err
	}
	if len(results) == 0 {
		return monitorNotIndexed, nil
	}

	candidate := results[0]
	// Lookup results can carry stale or missing artist references when
	// names collide across metadata sources. Pin the album to the
	// artist we resolved.
	candidate.ArtistID = artistID
	if _, err := imp.lidarr.AddAlbum(ctx, &candidate); err != nil {
		return monitorNotIndexed, err
	}
	return monitorAdded, nil
}

// unmonitorAlbums flips off monitoring for all of an artist's albums
// except the one matching keepMBID. Failures are logged and skipped so
// one stubborn album doesn't abort the row.
func (imp *Importer) unmonitorAlbums(ctx context.Context, artistID int64, keepMBID string) {
	albums, err := imp.lidarr.AlbumsByArtist(ctx, artistID)
	if err != nil {
		imp.logger.Warn("list albums for unmonitor pass", "lidarr_id", artistID, "error", err)
		return
	}
	for i := range albums {
		if !albums[i].Monitored || albums[i].ForeignAlbumID == keepMBID {
			continue
		}
		albums[i].Monitored = false
		if err := imp.lidarr.UpdateAlbum(ctx, &albums[i]); err != nil {
			imp.logger.Warn("unmonitor album", "album", albums[i].Title, "error", err)
		}
	}
}
