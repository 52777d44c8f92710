// Package docpath derives display titles and folder grouping from a
// document's path relative to the configured root. Titles follow a
// deterministic casing rule so repeated runs resolve the same remote pages.
package docpath

import (
	"path"
	"path/filepath"
	"regexp"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// readmeSentinel marks files whose title comes from their directory instead.
const readmeSentinel = "readme"

// titleCaser uppercases the first letter of each word and leaves the rest
// of the word unchanged.
var titleCaser = cases.Title(language.Und, cases.NoLower)

var separatorRuns = regexp.MustCompile(`[-_]+`)

// Info is the classification of one document path.
type Info struct {
	// Title is the display title for the document's remote page.
	Title string

	// Folder is the owning folder page title, or "" for root-level documents.
	// Only the first path segment groups; deeper nesting collapses into it.
	Folder string
}

// Classify derives the display title and owning folder title for a path
// relative to the document root.
func Classify(relPath string) Info {
	clean := path.Clean(filepath.ToSlash(relPath))
	segments := strings.Split(clean, "/")

	base := segments[len(segments)-1]
	name := strings.TrimSuffix(base, path.Ext(base))

	var title string
	if strings.EqualFold(name, readmeSentinel) {
		if len(segments) > 1 {
			title = TitleCase(segments[len(segments)-2])
		} else {
			title = TitleCase(readmeSentinel)
		}
	} else {
		title = TitleCase(name)
	}

	info := Info{Title: title}
	if len(segments) > 1 {
		info.Folder = TitleCase(segments[0])
	}
	return info
}

// TitleCase converts dashes and underscores to spaces and uppercases the
// first letter of each resulting word, leaving other letters unchanged.
func TitleCase(name string) string {
	spaced := separatorRuns.ReplaceAllString(name, " ")
	return titleCaser.String(spaced)
}

// Normalize reduces a title to its canonical matching form: trimmed,
// lowercased, dash/underscore runs replaced by a single space, and
// whitespace collapsed. Two folder titles are the same remote folder
// exactly when their normalized forms are equal.
func Normalize(title string) string {
	lowered := strings.ToLower(strings.TrimSpace(title))
	spaced := separatorRuns.ReplaceAllString(lowered, " ")
	return strings.Join(strings.Fields(spaced), " ")
}
