package textnorm

import (
	"regexp"
	"strings"

	"golang.org/x/text/unicode/norm"
)

// Role selects the cleaning rules applied by Clean. Album titles
// additionally lose trailing edition markers; artist names keep them
// since brackets and suffixes are often part of the act's name.
type Role int

const (
	RoleArtist Role = iota
	RoleAlbum
)

var (
	invisibleRe    = regexp.MustCompile("[\u200B-\u200D\uFEFF\u00AD]")
	singleQuoteRe  = regexp.MustCompile("[‘’‚‛`´]")
	doubleQuoteRe  = regexp.MustCompile("[“”„‟]")
	whitespaceRe   = regexp.MustCompile(`\s+`)
	keyStripRe     = regexp.MustCompile("['‘’‚‛\"“”„‟`´._\\-]")
	controlOnlyRe  = regexp.MustCompile(`^[\s\p{Cc}\p{Cf}]*$`)
	editionSuffixes = []*regexp.Regexp{
		regexp.MustCompile(`(?i)\s*-?\s*EP\s*$`),
		regexp.MustCompile(`(?i)\s*-?\s*Single\s*$`),
		regexp.MustCompile(`(?i)\s*\([^)]*&[^)]*\)\s*$`),
		regexp.MustCompile(`(?i)\s*\(feat\.?[^)]*\)\s*$`),
		regexp.MustCompile(`(?i)\s*\(with[^)]*\)\s*$`),
		regexp.MustCompile(`(?i)\s*\(deluxe[^)]*\)\s*$`),
		regexp.MustCompile(`(?i)\s*\(explicit[^)]*\)\s*$`),
		regexp.MustCompile(`(?i)\s*\(clean[^)]*\)\s*$`),
		regexp.MustCompile(`(?i)\s*\(remaster[^)]*\)\s*$`),
		regexp.MustCompile(`(?i)\s*\(collector'?s[^)]*\)\s*$`),
		regexp.MustCompile(`(?i)\s*\(anniversary[^)]*\)\s*$`),
		regexp.MustCompile(`(?i)\s*\(special[^)]*\)\s*$`),
		regexp.MustCompile(`(?i)\s*\(bonus[^)]*\)\s*$`),
		regexp.MustCompile(`(?i)\s*\[[^\]]*\]\s*$`),
	}
)

// Clean normalizes a raw artist name or album title for matching and
// display. The result is NFKC-composed, free of invisible characters,
// uses straight ASCII quotes, has censored profanity restored, and has
// internal whitespace collapsed. Album titles additionally lose
// trailing edition markers. Clean is idempotent; it returns an empty
// string only when the input contains nothing but whitespace and
// control characters.
func Clean(text string, role Role) string {
	result := CleanTitle(text)
	if role == RoleAlbum {
		result = StripEditionSuffixes(result)
	}
	return result
}

// CleanTitle applies the base cleaning rules without stripping edition
// suffixes. Parsers use it for display titles, where "(Deluxe)" is part
// of what the user asked for and only search forms drop it.
func CleanTitle(text string) string {
	if controlOnlyRe.MatchString(text) {
		return ""
	}

	result := strings.TrimSpace(text)
	result = norm.NFKC.String(result)
	result = invisibleRe.ReplaceAllString(result, "")
	result = singleQuoteRe.ReplaceAllString(result, "'")
	result = doubleQuoteRe.ReplaceAllString(result, "\"")
	result = whitespaceRe.ReplaceAllString(result, " ")
	result = Decensor(result)
	return strings.TrimSpace(result)
}

// StripEditionSuffixes removes trailing edition markers ("- EP",
// "(Deluxe Edition)", "[Explicit]", ...) from an album title. Patterns
// are matched case-insensitively, anchored to the end of the string,
// and the ordered pass repeats until no pattern fires, so stacked
// suffixes all come off and the function is idempotent.
func StripEditionSuffixes(title string) string {
	result := strings.TrimSpace(title)
	for {
		stripped := false
		for _, re := range editionSuffixes {
			if loc := re.FindStringIndex(result); loc != nil {
				trimmed := strings.TrimSpace(result[:loc[0]])
				if trimmed == "" {
					// "EP" alone is a title, not a suffix.
					continue
				}
				result = trimmed
				stripped = true
			}
		}
		if !stripped {
			return result
		}
	}
}

// Key reduces a name to an aggressive comparison key: compatibility
// decomposition, lowercase, and all quote/hyphen/period punctuation
// removed. "Ol' Burger Beats" and "Ol’ Burger Beats" share a key;
// so do "[bsd.u]" and "[bsdu]". Keys are for equality checks only and
// never shown to the user.
func Key(name string) string {
	result := norm.NFKD.String(name)
	result = strings.ToLower(strings.TrimSpace(result))
	return keyStripRe.ReplaceAllString(result, "")
}

// MatchingTitle lowercases an album title and strips edition suffixes,
// producing the form compared during fuzzy deduplication and library
// matching.
func MatchingTitle(title string) string {
	return strings.ToLower(StripEditionSuffixes(strings.TrimSpace(title)))
}
