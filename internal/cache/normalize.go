package cache

import (
	"regexp"
	"strings"
)

// punctuation is stripped from queries before keying. It covers the ASCII
// marks people type in passing plus their full-width CJK counterparts.
const punctuation = ".,/#!$%^&*;:{}=-_`~()？?！，。；：“”‘’"

var whitespaceRun = regexp.MustCompile(`[\s\p{Zs}]{2,}`)

// Normalize maps a free-text query to its cache key. Queries differing only
// by case, the punctuation set, or whitespace runs share a key.
func Normalize(query string) string {
	s := strings.ToLower(query)
	s = strings.Map(func(r rune) rune {
		if strings.ContainsRune(punctuation, r) {
			return -1
		}
		return r
	}, s)
	s = whitespaceRun.ReplaceAllString(s, " ")
	return strings.TrimSpace(s)
}
