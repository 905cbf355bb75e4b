package utils

import "unicode/utf8"

const ellipsis = "..."

// Truncate shortens s to at most maxLen runes. A truncated string ends in an
// ellipsis that counts toward maxLen.
func Truncate(s string, maxLen int) string {
	if utf8.RuneCountInString(s) <= maxLen {
		return s
	}
	if maxLen <= len(ellipsis) {
		return string([]rune(s)[:maxLen])
	}
	return string([]rune(s)[:maxLen-len(ellipsis)]) + ellipsis
}
