package cache

import (
	"strconv"
	"strings"
)

// Normalize lower-cases and trims s so that the same logical request
// always maps to the same key.
func Normalize(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// SearchKey is the key for a full-text search.
func SearchKey(query string) string {
	return Normalize(query)
}

// SubjectKey is the key for a subject listing, e.g. "fiction:1".
func SubjectKey(subject string, ebooksOnly bool) string {
	flag := "0"
	if ebooksOnly {
		flag = "1"
	}
	return Normalize(subject) + ":" + flag
}

// SuggestKey is the key for a typeahead lookup, e.g. "dune::6".
func SuggestKey(query string, limit int) string {
	return Normalize(query) + "::" + strconv.Itoa(limit)
}
