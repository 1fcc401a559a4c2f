package textnorm

import (
	"strings"
	"unicode"
)

// leading qualifier words that frequently differ between a list export
// and the canonical MusicBrainz title ("EP Seeds" vs "Seeds").
var leadingQualifiers = []string{"ep ", "single ", "the ", "a "}

// TitleVariations returns ordered candidate spellings of an album title
// for external search, the original title first. Later entries strip a
// recognized leading qualifier, re-case lowercase titles, expand short
// titles to uppercase (likely acronyms), replace ampersands, and drop
// punctuation. Duplicates are removed while preserving order; callers
// try each variation and stop at the first hit.
func TitleVariations(title string) []string {
	variations := []string{title}
	lower := strings.ToLower(strings.TrimSpace(title))

	for _, prefix := range leadingQualifiers {
		if strings.HasPrefix(lower, prefix) {
			stripped := strings.TrimSpace(title[len(prefix):])
			if stripped != "" {
				variations = append(variations, stripped)
			}
		}
	}

	if lower == title {
		variations = append(variations, titleCase(title))
	}

	if len([]rune(title)) <= 6 && strings.ToUpper(title) != title {
		variations = append(variations, strings.ToUpper(title))
	}

	if strings.Contains(title, "&") {
		variations = append(variations, strings.ReplaceAll(title, "&", "and"))
	}

	if stripped := stripPunctuation(title); stripped != "" {
		variations = append(variations, stripped)
	}

	return dedupeStrings(variations)
}

func titleCase(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	atStart := true
	for _, r := range s {
		if atStart && unicode.IsLetter(r) {
			b.WriteRune(unicode.ToUpper(r))
			atStart = false
			continue
		}
		if !unicode.IsLetter(r) && !unicode.IsDigit(r) {
			atStart = true
		}
		b.WriteRune(r)
	}
	return b.String()
}

func stripPunctuation(s string) string {
	var b strings.Builder
	for _, r := range s {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || unicode.IsSpace(r) {
			b.WriteRune(r)
		}
	}
	return strings.Join(strings.Fields(b.String()), " ")
}

func dedupeStrings(values []string) []string {
	seen := make(map[string]struct{}, len(values))
	out := values[:0]
	for _, v := range values {
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}
