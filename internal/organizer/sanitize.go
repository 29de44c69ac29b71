package organizer

import (
	"fmt"
	"regexp"
	"strings"
)

var (
	unsafeChars = regexp.MustCompile(`[<>:"/\\|?*]`)
	multiSpace  = regexp.MustCompile(`\s+`)
)

// SafeFilename replaces characters that are illegal in library filenames and
// collapses runs of whitespace.
func SafeFilename(s string) string {
	s = strings.TrimSpace(s)
	s = unsafeChars.ReplaceAllString(s, "_")
	s = multiSpace.ReplaceAllString(s, " ")
	return strings.TrimSpace(s)
}

// showFolderName builds the top-level show or movie folder label:
// "Title (Year) {imdb-ttNNN}" with the year and IMDB tag controlled by
// naming options.
func showFolderName(title string, year int, includeYear bool, imdbID string, includeIMDB bool) string {
	name := SafeFilename(title)
	tag := ""
	if includeIMDB && imdbID != "" {
		tag = fmt.Sprintf(" {imdb-%s}", imdbID)
	}
	if includeYear && year > 0 {
		return fmt.Sprintf("%s (%d)%s", name, year, tag)
	}
	return name + tag
}
