package service

import "unicode/utf8"

// Column budgets, in Unicode code points
const (
	// ShortDescriptionSeedLength applies when the row is first inserted
	ShortDescriptionSeedLength = 150
	// ShortDescriptionLength applies every time metadata is re-applied
	ShortDescriptionLength = 149
	AuthorLength           = 255
	URLLength              = 1024
	// ShortTextLength bounds versions, requirement strings, business model and tag slugs and names
	ShortTextLength = 255
)

// Truncate returns the first n code points of s. Invalid UTF-8 bytes count as one code point each.
func Truncate(s string, n int) string {
	if n <= 0 {
		return ""
	}
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	count := 0
	for i := range s {
		if count == n {
			return s[:i]
		}
		count++
	}
	return s
}

// TruncatePtr is Truncate for nullable columns; nil stays nil
func TruncatePtr(s *string, n int) *string {
	if s == nil {
		return nil
	}
	out := Truncate(*s, n)
	return &out
}
