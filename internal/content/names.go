package content

import (
	"path/filepath"
	"regexp"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/razvandimescu/molesk/internal/markdown"
)

var (
	whitespaceRuns = regexp.MustCompile(`\s+`)
	separators     = strings.NewReplacer("-", " ", "_", " ")
)

// Capitalize upper-cases the first rune and leaves the rest alone.
func Capitalize(s string) string {
	if s == "" {
		return s
	}
	_, size := utf8.DecodeRuneInString(s)
	// Casers keep state, so each call gets its own
	return cases.Upper(language.Und).String(s[:size]) + s[size:]
}

// Humanize turns dashes and underscores into spaces.
func Humanize(s string) string {
	return separators.Replace(s)
}

func stripExt(name string) string {
	return strings.TrimSuffix(name, filepath.Ext(name))
}

// DisplayName is the label a file or folder gets in the tree.
func DisplayName(name string, isDir bool) string {
	if isDir {
		return Capitalize(name)
	}
	return Capitalize(stripExt(name))
}

// PageTitle is "<Name> - <site title>" where Name is the humanized file name.
func PageTitle(fileName, siteTitle string) string {
	return Capitalize(Humanize(stripExt(fileName))) + " - " + siteTitle
}

// FeedItemTitle drops everything from the first dot, then capitalizes each
// dash-separated word: "my-first-post.md" becomes "My First Post".
func FeedItemTitle(fileName string) string {
	if i := strings.Index(fileName, "."); i >= 0 && i < len(fileName)-1 {
		fileName = fileName[:i]
	}
	words := strings.Split(fileName, "-")
	for i, w := range words {
		words[i] = Capitalize(w)
	}
	return strings.Join(words, " ")
}

// DownloadSlug lower-cases s and replaces whitespace runs with "_".
func DownloadSlug(s string) string {
	return whitespaceRuns.ReplaceAllString(cases.Lower(language.Und).String(s), "_")
}

// DownloadName is "<slug(site title)>_<slug(file name)>".
func DownloadName(siteTitle, fileName string) string {
	return DownloadSlug(siteTitle) + "_" + DownloadSlug(fileName)
}

// EncodePath percent-encodes each segment of a slash-separated path.
func EncodePath(rel string) string {
	parts := strings.Split(filepath.ToSlash(rel), "/")
	for i, p := range parts {
		parts[i] = markdown.EncodeComponent(p)
	}
	return strings.Join(parts, "/")
}
