// Package dedupe collapses duplicate album entries: exact merges on the
// normalized (artist, album) key, then fuzzy merges of near-identical
// titles within each artist's entries.
package dedupe

import (
	"fmt"

	"wantlist/internal/album"
	"wantlist/internal/textnorm"
	"wantlist/internal/textutil"
)

// DisableFuzzy is the threshold value at which only exact duplicates merge.
const DisableFuzzy = 100

// riskScore is the fuzzy score below which a merge is flagged as risky.
const riskScore = 95

// Stats counts the duplicates removed by each pass.
type Stats struct {
	Exact int
	Fuzzy int
}

// Dedupe returns the unique entries in first-seen order. fuzzyThreshold
// is the 0..100 similarity score at or above which two titles by the
// same artist merge; DisableFuzzy turns the fuzzy pass off. Merging is
// deterministic: a later entry always folds into the earlier one, so
// input order decides the surviving representative.
func Dedupe(entries []album.Entry, fuzzyThreshold int) ([]album.Entry, Stats) {
	var stats Stats
	unique := mergeExact(entries, &stats)
	if fuzzyThreshold < DisableFuzzy {
		unique = mergeFuzzy(unique, fuzzyThreshold, &stats)
	}
	return unique, stats
}

func mergeExact(entries []album.Entry, stats *Stats) []album.Entry {
	unique := make([]album.Entry, 0, len(entries))
	index := make(map[string]int, len(entries))
	for _, entry := range entries {
		key := entry.Key()
		if at, seen := index[key]; seen {
			unique[at].Merge(entry)
			stats.Exact++
			continue
		}
		index[key] = len(unique)
		unique = append(unique, entry)
	}
	return unique
}

func mergeFuzzy(entries []album.Entry, threshold int, stats *Stats) []album.Entry {
	kept := make([]album.Entry, 0, len(entries))
	// Earlier kept entries per artist, candidates for absorbing later ones.
	byArtist := make(map[string][]int)
	for _, entry := range entries {
		artistKey := entry.ArtistKey()
		merged := false
		for _, at := range byArtist[artistKey] {
			score := titleScore(kept[at], entry)
			if score < threshold {
				continue
			}
			kept[at].Merge(entry)
			if score < riskScore {
				kept[at].FlagRisk(riskReason(entry, score))
			}
			stats.Fuzzy++
			merged = true
			break
		}
		if merged {
			continue
		}
		byArtist[artistKey] = append(byArtist[artistKey], len(kept))
		kept = append(kept, entry)
	}
	return kept
}

// titleScore rates how alike two same-artist titles are: the best
// token-set ratio of any title variation of the kept entry against the
// candidate's matching form.
func titleScore(kept, candidate album.Entry) int {
	target := textnorm.MatchingTitle(candidate.Album)
	best := 0
	for _, variation := range textnorm.TitleVariations(kept.Album) {
		score := textutil.TokenSetRatio(textnorm.MatchingTitle(variation), target)
		if score > best {
			best = score
		}
	}
	return best
}

func riskReason(absorbed album.Entry, score int) string {
	return fmt.Sprintf("fuzzy merge of %q scored %d", absorbed.Album, score)
}
