package parser

import (
	"html"
	"regexp"
	"strings"

	"golang.org/x/text/unicode/norm"
)

var tagRe = regexp.MustCompile(`<[^>]*>`)

// normalize applies the title/description normalization pipeline: NFC
// normalize, HTML-entity decode, strip tags, decode again, collapse
// whitespace, trim. Empty or whitespace-only input normalizes to "".
func normalize(s string) string {
	if strings.TrimSpace(s) == "" {
		return ""
	}

	s = norm.NFC.String(s)
	s = html.UnescapeString(s)
	s = tagRe.ReplaceAllString(s, "")
	s = html.UnescapeString(s)
	s = strings.Join(strings.Fields(s), " ")
	return strings.TrimSpace(s)
}

// OrNull returns nil for an empty or whitespace-only string, otherwise a
// pointer to the string itself. Used at the storage boundary to implement
// the empty-string-becomes-null policy.
func OrNull(s string) *string {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	return &s
}
