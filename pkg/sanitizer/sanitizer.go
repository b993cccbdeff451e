// Package sanitizer provides input normalization for catalog data. All
// functions are idempotent - applying them twice produces the same result -
// and handle invalid input by returning empty strings rather than errors.
package sanitizer

import (
	"strings"
	"unicode"
)

// TrimAndNormalize trims leading/trailing whitespace and collapses internal
// whitespace runs to a single space.
func TrimAndNormalize(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return ""
	}

	var result strings.Builder
	var lastWasSpace bool

	for _, r := range s {
		if unicode.IsSpace(r) {
			if !lastWasSpace {
				result.WriteRune(' ')
				lastWasSpace = true
			}
		} else {
			result.WriteRune(r)
			lastWasSpace = false
		}
	}

	return result.String()
}

// NormalizeLabel normalizes a space location label, e.g. "  Level 2 / B "
// becomes "Level 2 / B".
func NormalizeLabel(label string) string {
	return TrimAndNormalize(label)
}

// NormalizePlate uppercases a license plate and strips separators and
// whitespace: "ab-123 cd" becomes "AB123CD".
func NormalizePlate(plate string) string {
	var result strings.Builder
	for _, r := range strings.ToUpper(strings.TrimSpace(plate)) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			result.WriteRune(r)
		}
	}
	return result.String()
}
