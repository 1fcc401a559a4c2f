package importer

import (
	"strings"

	"wantlist/internal/lidarr"
	"wantlist/internal/textnorm"
)

// artistIndex resolves CSV artist names to artists already in Lidarr.
// Matching is exact on normalized keys, extended only by configured
// aliases and surrounding-bracket removal. No fuzzy matching: a near
// miss must be treated as a new artist rather than risk attaching
// albums to the wrong one.
type artistIndex struct {
	byKey   map[string]*lidarr.Artist
	aliases map[string][]string
}

func newArtistIndex(artists []lidarr.Artist, aliases map[string][]string) *artistIndex {
	index := &artistIndex{
		byKey:   make(map[string]*lidarr.Artist, len(artists)),
		aliases: aliases,
	}
	for i := range artists {
		index.add(&artists[i])
	}
	return index
}

func (idx *artistIndex) add(artist *lidarr.Artist) {
	key := textnorm.Key(artist.ArtistName)
	if key == "" {
		return
	}
	if _, exists := idx.byKey[key]; !exists {
		idx.byKey[key] = artist
	}
}

func (idx *artistIndex) find(name string) *lidarr.Artist {
	if artist, ok := idx.byKey[textnorm.Key(name)]; ok {
		return artist
	}

	lower := strings.ToLower(name)
	for _, alias := range idx.aliases[lower] {
		if artist, ok := idx.byKey[textnorm.Key(alias)]; ok {
			return artist
		}
	}
	for main, aliasNames := range idx.aliases {
		for _, alias := range aliasNames {
			if strings.ToLower(alias) == lower {
				if artist, ok := idx.byKey[textnorm.Key(main)]; ok {
					return artist
				}
			}
		}
	}

	if strings.HasPrefix(name, "[") && strings.HasSuffix(name, "]") {
		inner := strings.Trim(name, "[]")
		if artist, ok := idx.byKey[textnorm.Key(inner)]; ok {
			return artist
		}
	}
	return nil
}
