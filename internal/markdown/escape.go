package markdown

import (
	"net/url"
	"strings"
)

var htmlEscaper = strings.NewReplacer(
	"&", "&amp;",
	"<", "&lt;",
	">", "&gt;",
	`"`, "&quot;",
	"'", "&#039;",
)

// EscapeHTML escapes the five HTML-significant characters.
func EscapeHTML(s string) string {
	return htmlEscaper.Replace(s)
}

var componentUnescaper = strings.NewReplacer(
	"+", "%20",
	"%21", "!",
	"%27", "'",
	"%28", "(",
	"%29", ")",
	"%2A", "*",
)

// EncodeComponent percent-encodes s so it can stand alone as one URL path
// segment or fragment. Only A-Z a-z 0-9 - _ . ! ~ * ' ( ) are left as is.
func EncodeComponent(s string) string {
	return componentUnescaper.Replace(url.QueryEscape(s))
}
