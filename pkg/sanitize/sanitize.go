package sanitize

import (
	"html"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

var (
	strict = bluemonday.StrictPolicy()

	reUnsafeName = regexp.MustCompile(`[^A-Za-z0-9._-]+`)
	reSpaces     = regexp.MustCompile(`\s+`)
)

// maxDecodeRounds bounds how many layers of entity encoding Text unwraps.
const maxDecodeRounds = 4

// Text strips every HTML tag from user-entered free text and trims it.
// Entities are decoded and the result sanitized again until it is stable, so
// "A & B" is stored as typed and "&lt;b&gt;" cannot come back as a tag.
func Text(s string) string {
	s = strings.TrimSpace(s)
	for range maxDecodeRounds {
		next := strings.TrimSpace(html.UnescapeString(strict.Sanitize(s)))
		if next == s {
			return s
		}
		s = next
	}
	// still changing: keep the policy's escaped form
	return strings.TrimSpace(strict.Sanitize(s))
}

// Line is Text for single-line values: inner whitespace collapses to one space.
func Line(s string) string {
	return reSpaces.ReplaceAllString(Text(s), " ")
}

// Email lowercases and trims an address.
func Email(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// FileBase returns a filesystem-safe stem of an uploaded file name, without
// its extension. Empty results become "file".
func FileBase(name string) string {
	base := filepath.Base(strings.ReplaceAll(name, "\\", "/"))
	base = strings.TrimSuffix(base, filepath.Ext(base))
	base = strings.Trim(reUnsafeName.ReplaceAllString(base, "_"), "._")
	if len(base) > 100 {
		base = base[:100]
	}
	if base == "" {
		return "file"
	}
	return base
}

// FileExt returns the lowercased extension of name, including the dot.
func FileExt(name string) string {
	ext := strings.ToLower(filepath.Ext(name))
	if len(ext) > 10 || reUnsafeName.MatchString(ext[min(1, len(ext)):]) {
		return ""
	}
	return ext
}
