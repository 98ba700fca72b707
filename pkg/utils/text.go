package utils

import "unicode/utf8"

// Truncate returns at most max characters (runes) of s.
// Multi-byte text such as Chinese headlines is never split mid-character.
func Truncate(s string, max int) string {
	if max <= 0 {
		return ""
	}
	if utf8.RuneCountInString(s) <= max {
		return s
	}
	n := 0
	for i := range s {
		if n == max {
			return s[:i]
		}
		n++
	}
	return s
}
