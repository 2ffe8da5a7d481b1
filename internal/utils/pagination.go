// Package utils holds tiny helpers shared across layers, free of any domain
// logic.
package utils

import "strconv"

// AtoiDefault parses s as an int, returning def for empty or unparseable
// input. Used for query parameters like page and page_size where a bad value
// should mean "use the default", not an error.
func AtoiDefault(s string, def int) int {
	if s == "" {
		return def
	}
	if n, err := strconv.Atoi(s); err == nil {
		return n
	}
	return def
}
