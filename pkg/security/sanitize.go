// Package security cleans untrusted text arriving from devices.
package security

import (
	"strings"
	"unicode"
)

// SanitizeString trims s and strips control characters other than newline and tab
func SanitizeString(s string) string {
	return strings.TrimSpace(removeControlCharacters(s))
}

// NormalizeWhitespace collapses every whitespace run into a single space
func NormalizeWhitespace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// TruncateString cuts s to at most maxLength runes
func TruncateString(s string, maxLength int) string {
	if maxLength <= 0 {
		return ""
	}
	runes := []rune(s)
	if len(runes) <= maxLength {
		return s
	}
	return string(runes[:maxLength])
}

// SanitizeLine removes control characters, collapses whitespace and truncates.
// Suited to single-line fields such as SMS sender ids.
func SanitizeLine(s string, maxLength int) string {
	return TruncateString(NormalizeWhitespace(removeControlCharacters(s)), maxLength)
}

func removeControlCharacters(s string) string {
	return strings.Map(func(r rune) rune {
		if r == '\n' || r == '\t' {
			return r
		}
		if unicode.IsControl(r) {
			return -1
		}
		return r
	}, s)
}
