package importer

import (
	"strings"

	"wantlist/internal/album"
)

// filter applies the row filters in a fixed order: completed rows,
// artist/album substrings, status include and exclude lists, existing
// artists, then the item cap.
func (imp *Importer) filter(entries []album.Entry, index *artistIndex) ([]album.Entry, error) {
	rows := entries

	if !imp.opts.NoSkipCompleted {
		kept := rows[:0:0]
		for _, entry := range rows {
			if entry.Status.IsTerminal() {
				continue
			}
			kept = append(kept, entry)
		}
		if dropped := len(rows) - len(kept); dropped > 0 {
			imp.logger.Info("skipping completed rows", "dropped", dropped, "remaining", len(kept))
		}
		rows = kept
	}

	rows = imp.filterSubstring(rows, imp.opts.ArtistFilter, func(e album.Entry) string { return e.Artist })
	rows = imp.filterSubstring(rows, imp.opts.AlbumFilter, func(e album.Entry) string { return e.Album })

	if tokens := splitTokens(imp.opts.StatusFilter); len(tokens) > 0 {
		kept := rows[:0:0]
		for _, entry := range rows {
			for _, token := range tokens {
				if entry.Status.MatchesFilterToken(token) {
					kept = append(kept, entry)
					break
				}
			}
		}
		rows = kept
	}
	if tokens := splitTokens(imp.opts.NotStatusFilter); len(tokens) > 0 {
		kept := rows[:0:0]
		for _, entry := range rows {
			excluded := false
			for _, token := range tokens {
				if entry.Status.MatchesFilterToken(token) {
					excluded = true
					break
				}
			}
			if !excluded {
				kept = append(kept, entry)
			}
		}
		rows = kept
	}

	if imp.opts.SkipExisting {
		kept := rows[:0:0]
		for _, entry := range rows {
			if index.find(entry.Artist) != nil {
				continue
			}
			kept = append(kept, entry)
		}
		if dropped := len(rows) - len(kept); dropped > 0 {
			imp.logger.Info("skipping rows for artists already in Lidarr", "dropped", dropped)
		}
		rows = kept
	}

	if imp.opts.MaxItems > 0 && len(rows) > imp.opts.MaxItems {
		rows = rows[:imp.opts.MaxItems]
	}
	return rows, nil
}

func (imp *Importer) filterSubstring(rows []album.Entry, needle string, field func(album.Entry) string) []album.Entry {
	needle = strings.ToLower(strings.TrimSpace(needle))
	if needle == "" {
		return rows
	}
	kept := rows[:0:0]
	for _, entry := range rows {
		if strings.Contains(strings.ToLower(field(entry)), needle) {
			kept = append(kept, entry)
		}
	}
	return kept
}

func splitTokens(list string) []string {
	var tokens []string
	for _, token := range strings.Split(list, ",") {
		token = strings.TrimSpace(token)
		if token != "" {
			tokens = append(tokens, token)
		}
	}
	return tokens
}
