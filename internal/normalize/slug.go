package normalize

import (
	"regexp"
	"strings"
)

var (
	nonWordRe   = regexp.MustCompile(`[^\w\s-]`)
	separatorRe = regexp.MustCompile(`[\s_-]+`)
)

// Slugify derives a collection code from a display name:
// "Alpha Series (2024)" -> "alpha-series-2024"
func Slugify(s string) string {
	s = strings.ToLower(s)
	s = nonWordRe.ReplaceAllString(s, "")
	s = separatorRe.ReplaceAllString(s, "-")
	return strings.Trim(s, "-")
}
