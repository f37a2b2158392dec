package markdown

import (
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/razvandimescu/molesk/internal/logger"
)

const (
	frontMatterOpen  = "---\n"
	frontMatterClose = "\n---"
)

// Metadata is the subset of front matter molesk understands. Dates are kept
// as written; ordering compares them as strings.
type Metadata struct {
	Date        string `yaml:"date"`
	Description string `yaml:"description"`
}

// Page is a rendered document.
type Page struct {
	Content  string
	Metadata Metadata
}

// splitFrontMatter finds a "---\n" prefix and the first "\n---" after it.
// rest is everything after the closing delimiter with one leading newline
// removed.
func splitFrontMatter(raw string) (block, rest string, ok bool) {
	if !strings.HasPrefix(raw, frontMatterOpen) {
		return "", "", false
	}
	body := raw[len(frontMatterOpen):]
	end := strings.Index(body, frontMatterClose)
	if end < 0 {
		return "", "", false
	}
	block = body[:end]
	rest = strings.TrimPrefix(body[end+len(frontMatterClose):], "\n")
	return block, rest, true
}

func decodeMetadata(block string) Metadata {
	var meta Metadata
	if err := yaml.Unmarshal([]byte(block), &meta); err != nil {
		logger.Debug("Ignoring malformed front matter: %v", err)
		return Metadata{}
	}
	return meta
}

// ParseMetadataOnly returns the front matter date and description without
// rendering the body.
func ParseMetadataOnly(raw string) Metadata {
	block, _, ok := splitFrontMatter(raw)
	if !ok {
		return Metadata{}
	}
	return decodeMetadata(block)
}

// ParseFileContent renders raw, stripping front matter first when present.
// Only the date is carried over into the page metadata.
func (r *Renderer) ParseFileContent(raw string) (Page, error) {
	block, rest, ok := splitFrontMatter(raw)
	if !ok {
		html, err := r.Render([]byte(raw))
		if err != nil {
			return Page{}, err
		}
		return Page{Content: html}, nil
	}

	meta := decodeMetadata(block)
	html, err := r.Render([]byte(rest))
	if err != nil {
		return Page{}, err
	}
	return Page{Content: html, Metadata: Metadata{Date: meta.Date}}, nil
}

// MetadataToHTML renders the date banner shown above a document.
func MetadataToHTML(meta Metadata) string {
	if meta.Date == "" {
		return ""
	}
	return `<div class="metadata"><span class="meta-date">` + EscapeHTML(meta.Date) + `</span></div>`
}
