package textutil

import (
	"math"
	"sort"
	"strings"

	"github.com/texttheater/golang-levenshtein/levenshtein"
)

// Ratio returns the Levenshtein similarity of two strings as an integer
// score from 0 (nothing in common) to 100 (equal). Comparison is
// case-insensitive.
func Ratio(a, b string) int {
	a = strings.ToLower(strings.TrimSpace(a))
	b = strings.ToLower(strings.TrimSpace(b))
	if a == b {
		return 100
	}
	if a == "" || b == "" {
		return 0
	}
	r := levenshtein.RatioForStrings([]rune(a), []rune(b), levenshtein.DefaultOptions)
	return int(math.Round(r * 100))
}

// TokenSortRatio tokenizes both strings, sorts the tokens, and scores
// the sorted forms. Word order differences ("Madvillainy MF DOOM" vs
// "MF DOOM Madvillainy") do not lower the score.
func TokenSortRatio(a, b string) int {
	return Ratio(sortedTokens(a), sortedTokens(b))
}

// TokenSetRatio scores token sets, ignoring both word order and
// repeated or extra tokens shared between the strings. A title that is
// a superset of the other ("DAMN." vs "DAMN. Collectors Edition")
// scores high. This is the scorer used for fuzzy duplicate detection.
func TokenSetRatio(a, b string) int {
	ta := tokenSet(a)
	tb := tokenSet(b)
	if len(ta) == 0 || len(tb) == 0 {
		return Ratio(a, b)
	}

	var common, onlyA, onlyB []string
	for tok := range ta {
		if _, ok := tb[tok]; ok {
			common = append(common, tok)
		} else {
			onlyA = append(onlyA, tok)
		}
	}
	for tok := range tb {
		if _, ok := ta[tok]; !ok {
			onlyB = append(onlyB, tok)
		}
	}
	sort.Strings(common)
	sort.Strings(onlyA)
	sort.Strings(onlyB)

	base := strings.Join(common, " ")
	withA := strings.TrimSpace(base + " " + strings.Join(onlyA, " "))
	withB := strings.TrimSpace(base + " " + strings.Join(onlyB, " "))

	score := Ratio(withA, withB)
	if base != "" {
		if s := Ratio(base, withA); s > score {
			score = s
		}
		if s := Ratio(base, withB); s > score {
			score = s
		}
	}
	return score
}

func sortedTokens(s string) string {
	tokens := strings.Fields(strings.ToLower(s))
	sort.Strings(tokens)
	return strings.Join(tokens, " ")
}

func tokenSet(s string) map[string]struct{} {
	set := make(map[string]struct{})
	for _, tok := range strings.Fields(strings.ToLower(s)) {
		set[tok] = struct{}{}
	}
	return set
}
