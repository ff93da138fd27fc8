package match

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// stripMarks removes combining marks after NFD decomposition, turning
// accented characters into their ASCII base forms.
var stripMarks = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

var featMarkers = []string{" feat. ", " feat ", " ft. ", " ft ", " featuring "}

// Normalize reduces free-text track titles and artist names to a canonical
// comparison form: lowercased, diacritics stripped, trailing bracketed
// segments and feat.-clauses dropped, punctuation removed, whitespace
// collapsed.
func Normalize(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))

	if folded, _, err := transform.String(stripMarks, s); err == nil {
		s = folded
	}

	s = stripBracketed(s)

	for _, marker := range featMarkers {
		if i := strings.Index(s, marker); i >= 0 {
			s = s[:i]
		}
	}

	var b strings.Builder
	b.Grow(len(s))
	lastSpace := true
	for _, r := range s {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			b.WriteRune(r)
			lastSpace = false
		case !lastSpace:
			b.WriteRune(' ')
			lastSpace = true
		}
	}
	return strings.TrimSpace(b.String())
}

// stripBracketed removes trailing parenthesized or bracketed segments, which
// usually carry remaster/remix/version tags rather than identity.
func stripBracketed(s string) string {
	for {
		trimmed := strings.TrimSpace(s)
		open := -1
		var closer byte
		switch {
		case strings.HasSuffix(trimmed, ")"):
			closer = '('
		case strings.HasSuffix(trimmed, "]"):
			closer = '['
		default:
			return trimmed
		}
		open = strings.LastIndexByte(trimmed, closer)
		if open <= 0 {
			return trimmed
		}
		s = trimmed[:open]
	}
}

// TrackKey builds a normalized composite key for exact-match deduplication of
// a (title, artist) pair.
func TrackKey(title, artist string) string {
	return Normalize(title) + "|" + Normalize(artist)
}
