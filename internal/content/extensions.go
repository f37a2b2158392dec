package content

import (
	"path/filepath"
	"strings"

	"github.com/gabriel-vasile/mimetype"
)

// Extensions classifies files by lower-cased extension (with the dot).
type Extensions struct {
	Images   []string
	Markdown []string
}

// DefaultExtensions serves .jpg/.jpeg/.png as images and .md/.txt as documents.
var DefaultExtensions = Extensions{
	Images:   []string{".jpg", ".jpeg", ".png"},
	Markdown: []string{".md", ".txt"},
}

func hasExt(name string, exts []string) bool {
	ext := strings.ToLower(filepath.Ext(name))
	if ext == "" {
		return false
	}
	for _, e := range exts {
		if e == ext {
			return true
		}
	}
	return false
}

func (e Extensions) IsImage(name string) bool {
	return hasExt(name, e.Images)
}

func (e Extensions) IsMarkdown(name string) bool {
	return hasExt(name, e.Markdown)
}

var mimeTypes = map[string]string{
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".png":  "image/png",
	".gif":  "image/gif",
	".webp": "image/webp",
	".svg":  "image/svg+xml",
	".ico":  "image/x-icon",
}

// MimeType returns the type for name from the extension table, falling
// back to sniffing data. It returns "" when neither yields a concrete type.
func MimeType(name string, data []byte) string {
	if t, ok := mimeTypes[strings.ToLower(filepath.Ext(name))]; ok {
		return t
	}
	if data == nil {
		return ""
	}
	detected := mimetype.Detect(data)
	if detected.Is("application/octet-stream") {
		return ""
	}
	return detected.String()
}

var documentTypes = map[string]string{
	".md":  "text/markdown; charset=utf-8",
	".txt": "text/plain; charset=utf-8",
}

// DocumentMimeType is the type a markdown/text file is downloaded as.
func DocumentMimeType(name string) string {
	if t, ok := documentTypes[strings.ToLower(filepath.Ext(name))]; ok {
		return t
	}
	return "text/plain; charset=utf-8"
}
