// Package slug turns titles into URL segments.
//
// Normalize is pure and deterministic: it lowercases, folds accented
// letters to their ASCII base, spells out ampersands and reduces every
// other run of characters outside [a-z0-9] to a single hyphen.
package slug

import (
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

var (
	ampersand = regexp.MustCompile(`&(amp;)?`)
	invalid   = regexp.MustCompile(`[^a-z0-9]+`)
	suffix    = regexp.MustCompile(`-[0-9]+$`)
)

// Normalize returns the candidate segment for title. The result contains
// only [a-z0-9-], never starts or ends with '-', never contains "--", and
// is empty when title has no usable characters.
func Normalize(title string) string {
	s := strings.ToLower(fold(title))
	s = ampersand.ReplaceAllString(s, "-and-")
	s = invalid.ReplaceAllString(s, "-")
	return strings.Trim(s, "-")
}

// Fallback is the segment used when Normalize yields nothing.
func Fallback(id string) string {
	return Normalize("page-" + id)
}

// StripSuffix removes a trailing "-<N>" counter, e.g. "contact-2" -> "contact".
func StripSuffix(segment string) string {
	if base := suffix.ReplaceAllString(segment, ""); base != "" {
		return base
	}
	return segment
}

// fold strips combining marks after canonical decomposition ("é" -> "e").
func fold(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, s)
	if err != nil {
		return s
	}
	return out
}
