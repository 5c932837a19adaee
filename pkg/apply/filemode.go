package apply

import (
	"strconv"
	"strings"
)

// parseFileMode parses an octal mode string from patch metadata.
// Surrounding whitespace is stripped and embedded spaces removed. A
// non-octal string is metadata, not patch content, so it reports ok
// false rather than an error; callers skip mode application. Only the
// low 12 bits are meaningful.
func parseFileMode(s string) (uint32, bool) {
	s = strings.ReplaceAll(strings.TrimSpace(s), " ", "")
	if s == "" {
		return 0, false
	}
	n, err := strconv.ParseUint(s, 8, 32)
	if err != nil {
		return 0, false
	}
	return uint32(n) & 0o7777, true
}
