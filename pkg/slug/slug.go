// Package slug provides slug validation and slugification shared across CMS resources.
package slug

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
)

var (
	// ErrReserved indicates the slug collides with a reserved route segment.
	ErrReserved = errors.New("slug is reserved")

	// ErrInvalid indicates the slug does not match the allowed format.
	ErrInvalid = errors.New("slug must be lowercase letters/numbers with hyphens (e.g. about-us123)")
)

var slugPattern = regexp.MustCompile(`^[a-z0-9]+(?:-[a-z0-9]+)*$`)

var reserved = map[string]struct{}{
	"admin":  {},
	"login":  {},
	"logout": {},
	"media":  {},
	"api":    {},
	"auth":   {},
}

// Normalize lowercases and trims the given slug and validates it against the
// slug format and the reserved set. It returns the cleaned slug.
func Normalize(value string) (string, error) {
	s := strings.ToLower(strings.TrimSpace(value))

	if _, ok := reserved[s]; ok {
		return "", fmt.Errorf("%w: '%s'", ErrReserved, s)
	}

	if !slugPattern.MatchString(s) {
		return "", ErrInvalid
	}

	return s, nil
}

// IsValid reports whether the value is already a well-formed, non-reserved slug.
func IsValid(value string) bool {
	_, err := Normalize(value)

	return err == nil
}

var (
	nonSlugChars    = regexp.MustCompile(`[^a-z0-9-]+`)
	repeatedHyphens = regexp.MustCompile(`-{2,}`)
)

// Make derives a slug from free-form text. Characters outside [a-z0-9-] become
// hyphens, runs of hyphens collapse, and leading/trailing hyphens are trimmed.
// Empty input falls back to "entry".
func Make(value string) string {
	s := strings.ToLower(strings.TrimSpace(value))
	s = nonSlugChars.ReplaceAllString(s, "-")
	s = repeatedHyphens.ReplaceAllString(s, "-")
	s = strings.Trim(s, "-")

	if s == "" {
		return "entry"
	}

	return s
}
