// Package util contains any functions used across the application that don't match
// any other package
package util

import (
	"path/filepath"
	"regexp"
	"strings"
)

var unsafeChars = regexp.MustCompile(`[^a-zA-Z0-9._-]+`)

// SanitizeFileName flattens a client supplied name into a safe object key
// segment. Path separators are stripped, anything outside [a-zA-Z0-9._-]
// collapses to an underscore. Returns an empty string when nothing usable
// remains.
func SanitizeFileName(name string) string {
	name = strings.ReplaceAll(name, "\\", "/")
	name = filepath.Base(name)
	name = unsafeChars.ReplaceAllString(name, "_")
	name = strings.Trim(name, "._")

	return name
}
