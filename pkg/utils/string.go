// Package utils provides common text and HTTP helpers.
package utils

import (
	"strings"
	"unicode/utf8"
)

// invisible characters stripped from extracted text.
var invisibleReplacer = strings.NewReplacer(
	"\u00a0", " ",
	"\u200b", "",
	"\ufeff", "",
)

// NormalizeWhitespace replaces runs of whitespace with a single space and trims the ends.
func NormalizeWhitespace(str string) string {
	return strings.Join(strings.Fields(invisibleReplacer.Replace(str)), " ")
}

// Truncate cuts str to at most maxRunes runes without splitting a character.
func Truncate(str string, maxRunes int) string {
	if maxRunes <= 0 {
		return ""
	}

	if utf8.RuneCountInString(str) <= maxRunes {
		return str
	}

	runes := []rune(str)

	return string(runes[:maxRunes])
}

// TruncateEllipsis is Truncate with a trailing "..." when text was cut. Used for log previews.
func TruncateEllipsis(str string, maxRunes int) string {
	cut := Truncate(str, maxRunes)
	if cut == str {
		return str
	}

	return cut + "..."
}

// RuneLen returns the number of characters in str.
func RuneLen(str string) int {
	return utf8.RuneCountInString(str)
}
