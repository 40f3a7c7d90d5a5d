// Package strings normalizes user supplied string sets.
package strings

import "strings"

// Normalize trims and lowercases each value, dropping blanks and repeats.
// Order of first occurrence is kept. A nil or empty input yields nil.
func Normalize[T ~string](values []T) []T {
	if len(values) == 0 {
		return nil
	}
	seen := make(map[T]struct{}, len(values))
	out := make([]T, 0, len(values))
	for _, v := range values {
		n := T(strings.ToLower(strings.TrimSpace(string(v))))
		if n == "" {
			continue
		}
		if _, dup := seen[n]; dup {
			continue
		}
		seen[n] = struct{}{}
		out = append(out, n)
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

// Split breaks a comma separated list and normalizes it.
func Split(list string) []string {
	return Normalize(strings.Split(list, ","))
}
