package textnorm

import (
	"regexp"
	"strings"
	"unicode"
)

// censorPatterns map censored spellings (a letter, a run of masking
// characters, trailing letters) to the uncensored word. Streaming
// exports censor explicit titles inconsistently, which breaks matching
// against MusicBrainz and Lidarr where titles are uncensored.
var censorPatterns = []struct {
	re   *regexp.Regexp
	word string
}{
	{regexp.MustCompile(`(?i)f[*\-_]+ck`), "fuck"},
	{regexp.MustCompile(`(?i)sh[*\-_]+t`), "shit"},
	{regexp.MustCompile(`(?i)b[*\-_]+tch`), "bitch"},
	{regexp.MustCompile(`(?i)d[*\-_]+mn`), "damn"},
	{regexp.MustCompile(`(?i)a[*\-_]+s`), "ass"},
	{regexp.MustCompile(`(?i)h[*\-_]+ll`), "hell"},
}

// Decensor restores censored profanity ("F*ck" -> "Fuck") while
// preserving the case pattern of the censored original: all-caps stays
// all-caps, a leading capital stays title-cased, everything else is
// lowercase.
func Decensor(text string) string {
	result := text
	for _, p := range censorPatterns {
		result = p.re.ReplaceAllStringFunc(result, func(match string) string {
			return applyCasePattern(match, p.word)
		})
	}
	return result
}

func applyCasePattern(original, replacement string) string {
	letters := make([]rune, 0, len(original))
	for _, r := range original {
		if unicode.IsLetter(r) {
			letters = append(letters, r)
		}
	}
	allUpper := len(letters) > 0
	for _, r := range letters {
		if !unicode.IsUpper(r) {
			allUpper = false
			break
		}
	}
	switch {
	case allUpper:
		return strings.ToUpper(replacement)
	case len(letters) > 0 && unicode.IsUpper(letters[0]):
		return strings.ToUpper(replacement[:1]) + replacement[1:]
	default:
		return replacement
	}
}
