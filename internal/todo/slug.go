package todo

import (
	"path"
	"strings"
	"time"
	"unicode"
)

// maxSlugLen bounds the slug component of a storage key.
const maxSlugLen = 50

// Slugify derives a filesystem-safe key component from a title.
//
// The title is lower-cased, characters other than letters, digits, spaces
// and hyphens are dropped, whitespace runs become single hyphens, repeated
// hyphens collapse, and leading/trailing hyphens are trimmed. The result is
// truncated to 50 characters. An empty or unusable title yields "".
func Slugify(title string) string {
	lower := strings.ToLower(title)

	var b strings.Builder
	b.Grow(len(lower))
	for _, r := range lower {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			b.WriteRune(r)
		case unicode.IsSpace(r) || r == '-':
			b.WriteRune('-')
		}
	}

	slug := b.String()
	for strings.Contains(slug, "--") {
		slug = strings.ReplaceAll(slug, "--", "-")
	}
	slug = strings.Trim(slug, "-")

	if len(slug) > maxSlugLen {
		slug = slug[:maxSlugLen]
		slug = strings.TrimRight(slug, "-")
	}
	return slug
}

// DeriveKey computes the canonical storage path for a todo with the given
// title. The directory and the YYYY-MM-DD date component are reused verbatim
// from currentPath when present; otherwise now's date is used.
//
// Returns "" when the title produces an empty slug; callers must treat that
// as a validation failure before touching the store.
func DeriveKey(currentPath, title string, now time.Time) string {
	slug := Slugify(title)
	if slug == "" {
		return ""
	}

	date := DateFromPath(currentPath)
	if date == "" {
		date = now.Format("2006-01-02")
	}

	dir := path.Dir(currentPath)
	if dir == "." || dir == "/" {
		return date + "-" + slug + ".md"
	}
	return dir + "/" + date + "-" + slug + ".md"
}
