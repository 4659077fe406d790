package normalize

import (
	"html"
	"regexp"
	"strings"
)

var (
	tagPattern       = regexp.MustCompile(`<[^>]*>`)
	editPattern      = regexp.MustCompile(`(?i)\[\s*edit\s*\]`)
	refPattern       = regexp.MustCompile(`\[\s*(\d+|[a-z]|note \d+|citation needed|clarification needed)\s*\]`)
	whitespacePattern = regexp.MustCompile(`\s+`)
)

// maxCleanPasses bounds the fixed-point loop; real input settles in one or two.
const maxCleanPasses = 5

// CleanText removes markup, wiki decorations and redundant whitespace. It is
// applied until the value stops changing, so CleanText(CleanText(s)) == CleanText(s).
func CleanText(s string) string {
	for pass := 0; pass < maxCleanPasses; pass++ {
		next := cleanOnce(s)
		if next == s {
			return next
		}
		s = next
	}
	return s
}

func cleanOnce(s string) string {
	s = html.UnescapeString(s)
	s = tagPattern.ReplaceAllString(s, " ")
	s = editPattern.ReplaceAllString(s, "")
	s = refPattern.ReplaceAllString(s, "")
	s = strings.ReplaceAll(s, "\u00a0", " ")
	s = whitespacePattern.ReplaceAllString(s, " ")
	return strings.Trim(s, " ,;")
}
