package musicbrainz

import (
	"context"
	"regexp"
	"sort"
	"strings"

	"wantlist/internal/textnorm"
	"wantlist/internal/textutil"
)

// ReleaseGroup is one candidate from a release-group search, best match
// first.
type ReleaseGroup struct {
	ID           string
	Title        string
	ArtistCredit string
	Score        int
}

type releaseGroupSearchResponse struct {
	ReleaseGroups []struct {
		ID           string `json:"id"`
		Title        string `json:"title"`
		Score        int    `json:"score"`
		ArtistCredit []struct {
			Name       string `json:"name"`
			JoinPhrase string `json:"joinphrase"`
			Artist     struct {
				ID   string `json:"id"`
				Name string `json:"name"`
			} `json:"artist"`
		} `json:"artist-credit"`
	} `json:"release-groups"`
}

const creditMinSimilarity = 70

var volumeRe = regexp.MustCompile(`(?i)\bvol(?:\.|ume)?\s*#?:?\s*(\d+)\b`)

// SearchReleaseGroups finds release groups for an album. Title
// variations run in order and the first that yields credible candidates
// wins. When artistMBID is known the query constrains on it directly,
// which sidesteps name formatting differences; otherwise progressively
// looser artist+title queries run. An empty result with a nil error
// means the album is not on MusicBrainz.
func (c *Client) SearchReleaseGroups(ctx context.Context, artist, title, artistMBID string) ([]ReleaseGroup, error) {
	variations := textnorm.TitleVariations(title)
	var lastErr error

	for _, variant := range variations {
		var queries []string
		if artistMBID != "" {
			queries = []string{
				`arid:` + artistMBID + ` AND releasegroup:"` + variant + `"`,
				`arid:` + artistMBID + ` AND releasegroup:` + variant,
			}
		} else {
			queries = buildReleaseGroupQueries(artist, variant)
		}
		for _, query := range queries {
			var resp releaseGroupSearchResponse
			if err := c.search(ctx, "release-group", query, &resp); err != nil {
				if ctx.Err() != nil {
					return nil, err
				}
				lastErr = err
				continue
			}
			matches := c.filterByArtist(parseReleaseGroups(&resp), artist)
			if len(matches) == 0 {
				continue
			}
			return selectMatches(matches, variant), nil
		}
	}

	// Last resort: search by title alone and rely on the artist-credit
	// filter, which finds entries credited under a differently formatted
	// artist name.
	for _, variant := range variations {
		var resp releaseGroupSearchResponse
		if err := c.search(ctx, "release-group", `releasegroup:"`+variant+`"`, &resp); err != nil {
			if ctx.Err() != nil {
				return nil, err
			}
			lastErr = err
			continue
		}
		if matches := c.filterByArtist(parseReleaseGroups(&resp), artist); len(matches) > 0 {
			return matches, nil
		}
	}
	return nil, lastErr
}

func parseReleaseGroups(resp *releaseGroupSearchResponse) []ReleaseGroup {
	groups := make([]ReleaseGroup, 0, len(resp.ReleaseGroups))
	for _, rg := range resp.ReleaseGroups {
		if rg.ID == "" || rg.Title == "" {
			continue
		}
		var credit strings.Builder
		for _, part := range rg.ArtistCredit {
			name := part.Name
			if name == "" {
				name = part.Artist.Name
			}
			credit.WriteString(name)
			credit.WriteString(part.JoinPhrase)
		}
		groups = append(groups, ReleaseGroup{
			ID:           rg.ID,
			Title:        rg.Title,
			ArtistCredit: credit.String(),
			Score:        rg.Score,
		})
	}
	return groups
}

// filterByArtist drops candidates whose artist credit does not plausibly
// name the searched artist.
func (c *Client) filterByArtist(groups []ReleaseGroup, artist string) []ReleaseGroup {
	var kept []ReleaseGroup
	for _, rg := range groups {
		if c.artistMatchesCredit(artist, rg.ArtistCredit) {
			kept = append(kept, rg)
		}
	}
	return kept
}

func (c *Client) artistMatchesCredit(artist, credit string) bool {
	if artist == "" || credit == "" {
		return false
	}
	artistKey := textnorm.Key(artist)
	creditKey := textnorm.Key(credit)
	if strings.Contains(creditKey, artistKey) {
		return true
	}
	for _, alias := range c.aliases[artist] {
		if strings.Contains(creditKey, textnorm.Key(alias)) {
			return true
		}
	}
	return textutil.TokenSetRatio(artistKey, creditKey) >= creditMinSimilarity
}

// selectMatches orders candidates for one title variant. Exact titles
// win outright. A requested volume number must appear in the candidate
// title; returning a different volume would be a confident wrong answer,
// so a volume mismatch yields nil. Otherwise candidates sort by title
// similarity, then MusicBrainz score.
func selectMatches(matches []ReleaseGroup, variant string) []ReleaseGroup {
	var exact []ReleaseGroup
	for _, rg := range matches {
		if strings.EqualFold(strings.TrimSpace(rg.Title), strings.TrimSpace(variant)) {
			exact = append(exact, rg)
		}
	}
	if len(exact) > 0 {
		sort.SliceStable(exact, func(i, j int) bool { return exact[i].Score > exact[j].Score })
		return exact
	}

	if wanted := volumeRe.FindStringSubmatch(variant); wanted != nil {
		var sameVolume []ReleaseGroup
		for _, rg := range matches {
			if cand := volumeRe.FindStringSubmatch(rg.Title); cand != nil && cand[1] == wanted[1] {
				sameVolume = append(sameVolume, rg)
			}
		}
		if len(sameVolume) == 0 {
			return nil
		}
		sort.SliceStable(sameVolume, func(i, j int) bool { return sameVolume[i].Score > sameVolume[j].Score })
		return sameVolume
	}

	target := textnorm.MatchingTitle(variant)
	type scored struct {
		rg         ReleaseGroup
		similarity int
	}
	ranked := make([]scored, len(matches))
	for i, rg := range matches {
		ranked[i] = scored{rg: rg, similarity: textutil.TokenSetRatio(target, textnorm.MatchingTitle(rg.Title))}
	}
	sort.SliceStable(ranked, func(i, j int) bool {
		if ranked[i].similarity != ranked[j].similarity {
			return ranked[i].similarity > ranked[j].similarity
		}
		return ranked[i].rg.Score > ranked[j].rg.Score
	})
	ordered := make([]ReleaseGroup, len(ranked))
	for i, s := range ranked {
		ordered[i] = s.rg
	}
	return ordered
}

// buildReleaseGroupQueries builds progressively looser artist+title
// queries. Bracketed artist names like "[bsd.u]" also try the inner
// name; "!" and "$" stylizations also try their letter forms.
func buildReleaseGroupQueries(artist, title string) []string {
	quotedTitle := `releasegroup:"` + title + `"`
	if strings.Contains(artist, "[") && strings.Contains(artist, "]") {
		inner := strings.Trim(artist, "[]")
		return []string{
			`artist:"` + artist + `" AND ` + quotedTitle,
			`artist:"` + inner + `" AND ` + quotedTitle,
			`artist:` + artist + ` AND ` + quotedTitle,
			`artist:` + inner + ` releasegroup:` + title,
		}
	}
	cleaned := strings.NewReplacer("!", "I", "$", "S").Replace(artist)
	queries := []string{`artist:"` + artist + `" AND ` + quotedTitle}
	if cleaned != artist {
		queries = append(queries, `artist:"`+cleaned+`" AND `+quotedTitle)
	}
	queries = append(queries, `artist:`+artist+` AND `+quotedTitle)
	if cleaned != artist {
		queries = append(queries, `artist:`+cleaned+` releasegroup:`+title)
	}
	return queries
}
