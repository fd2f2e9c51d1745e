package utils

import (
	"strings"
	"unicode"
)

// NormalizeString trims whitespace and normalizes string input
func NormalizeString(s string) string {
	return strings.TrimSpace(s)
}

// NormalizePlate normalizes a license plate: uppercase, digits and letters
// only. "34 abc-123" and "34ABC123" compare equal after normalization.
func NormalizePlate(plate string) string {
	var result strings.Builder
	for _, r := range strings.ToUpper(strings.TrimSpace(plate)) {
		if unicode.IsDigit(r) || unicode.IsLetter(r) {
			result.WriteRune(r)
		}
	}
	return result.String()
}

// IsValidPlate performs basic plate validation after normalization.
func IsValidPlate(plate string) bool {
	normalized := NormalizePlate(plate)
	return len(normalized) >= 2 && len(normalized) <= 16
}
