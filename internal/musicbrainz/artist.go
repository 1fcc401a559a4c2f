package musicbrainz

import (
	"context"
	"sort"
	"strings"

	"wantlist/internal/textnorm"
	"wantlist/internal/textutil"
)

// Artist is one candidate from an artist search, best match first.
type Artist struct {
	ID    string
	Name  string
	Score int
}

type artistSearchResponse struct {
	Artists []struct {
		ID    string `json:"id"`
		Name  string `json:"name"`
		Score int    `json:"score"`
	} `json:"artists"`
}

const (
	artistMinSimilarity     = 70
	artistRelaxedSimilarity = 60
)

// leading words that distinguish acts ("DJ Shadow" vs "Shadow"); results
// that keep the searched prefix rank ahead of ones that drop it.
var prefixCandidates = map[string]struct{}{"dj": {}, "the": {}, "mc": {}}

// SearchArtists looks an artist up by name. The quoted form of the query
// runs first and its candidates outrank unquoted ones; unquoted results
// still surface matches when exact quoting finds nothing. Candidates
// too dissimilar from the searched name are dropped.
func (c *Client) SearchArtists(ctx context.Context, name string) ([]Artist, error) {
	searchName := name
	if strings.HasPrefix(searchName, "[") && strings.HasSuffix(searchName, "]") {
		searchName = strings.Trim(searchName, "[]")
	}

	type candidate struct {
		Artist
		similarity int
		quoted     bool
	}
	collected := make(map[string]*candidate)
	var order []string
	var lastErr error

	queries := []struct {
		query  string
		quoted bool
	}{
		{`artist:"` + searchName + `"`, true},
		{`artist:` + searchName, false},
	}
	for _, q := range queries {
		var resp artistSearchResponse
		if err := c.search(ctx, "artist", q.query, &resp); err != nil {
			if ctx.Err() != nil {
				return nil, err
			}
			lastErr = err
			continue
		}
		for _, found := range resp.Artists {
			if found.ID == "" || found.Name == "" {
				continue
			}
			similarity := textutil.Ratio(searchName, found.Name)
			if existing, seen := collected[found.ID]; seen {
				if similarity > existing.similarity {
					existing.similarity = similarity
				}
				if found.Score > existing.Score {
					existing.Score = found.Score
				}
				continue
			}
			collected[found.ID] = &candidate{
				Artist:     Artist{ID: found.ID, Name: found.Name, Score: found.Score},
				similarity: similarity,
				quoted:     q.quoted,
			}
			order = append(order, found.ID)
		}
	}
	if len(collected) == 0 {
		return nil, lastErr
	}

	candidates := make([]*candidate, 0, len(collected))
	for _, id := range order {
		candidates = append(candidates, collected[id])
	}
	filter := func(floor int) []*candidate {
		var kept []*candidate
		for _, c := range candidates {
			if c.similarity >= floor {
				kept = append(kept, c)
			}
		}
		return kept
	}
	filtered := filter(artistMinSimilarity)
	if len(filtered) == 0 {
		filtered = filter(artistRelaxedSimilarity)
	}

	searchPrefix := ""
	if tokens := strings.Fields(strings.ToLower(searchName)); len(tokens) > 0 {
		if _, ok := prefixCandidates[tokens[0]]; ok {
			searchPrefix = tokens[0]
		}
	}
	rank := func(c *candidate) int {
		boost := c.similarity
		if c.quoted {
			boost += 2000
		}
		if searchPrefix != "" && strings.HasPrefix(textnorm.Key(c.Name), searchPrefix) {
			boost += 1000
		}
		return boost
	}
	sort.SliceStable(filtered, func(i, j int) bool {
		ri, rj := rank(filtered[i]), rank(filtered[j])
		if ri != rj {
			return ri > rj
		}
		return filtered[i].Score > filtered[j].Score
	})

	results := make([]Artist, len(filtered))
	for i, c := range filtered {
		results[i] = c.Artist
	}
	return results, nil
}
