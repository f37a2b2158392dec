package markdown

import (
	"html"
	"regexp"
	"strconv"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/parser"
	"github.com/yuin/goldmark/text"
	"github.com/yuin/goldmark/util"
)

var whitespaceRun = regexp.MustCompile(`\s+`)

// Slugify turns heading text into an anchor id: trimmed, lowercased,
// whitespace runs collapsed to "-", then percent-encoded.
func Slugify(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	s = whitespaceRun.ReplaceAllString(s, "-")
	return EncodeComponent(s)
}

// headingIDs hands out unique ids within one document. Repeats get -1, -2,
// ... suffixes.
type headingIDs struct {
	seen map[string]bool
}

func newHeadingIDs() *headingIDs {
	return &headingIDs{seen: make(map[string]bool)}
}

func (h *headingIDs) unique(slug string) string {
	if slug == "" {
		slug = "heading"
	}
	id := slug
	for i := 1; h.seen[id]; i++ {
		id = slug + "-" + strconv.Itoa(i)
	}
	h.seen[id] = true
	return id
}

// headingText is the rendered text of n's inline children: link targets,
// emphasis markers and code fences are left out.
func headingText(n ast.Node, source []byte) string {
	var sb strings.Builder
	_ = ast.Walk(n, func(c ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		switch t := c.(type) {
		case *ast.Text:
			sb.Write(t.Segment.Value(source))
			if t.SoftLineBreak() || t.HardLineBreak() {
				sb.WriteByte(' ')
			}
		case *ast.String:
			sb.WriteString(html.UnescapeString(string(t.Value)))
		}
		return ast.WalkContinue, nil
	})
	return sb.String()
}

// headingAnchorTransformer gives each heading an id slugged from its text and
// moves the inline content into a self-link pointing at that id.
type headingAnchorTransformer struct{}

func (headingAnchorTransformer) Transform(doc *ast.Document, reader text.Reader, _ parser.Context) {
	var headings []*ast.Heading
	_ = ast.Walk(doc, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		if h, ok := n.(*ast.Heading); ok {
			headings = append(headings, h)
			return ast.WalkSkipChildren, nil
		}
		return ast.WalkContinue, nil
	})

	ids := newHeadingIDs()
	source := reader.Source()
	for _, h := range headings {
		id := []byte(ids.unique(Slugify(headingText(h, source))))
		h.SetAttributeString("id", id)
		if h.ChildCount() == 0 {
			continue
		}

		link := ast.NewLink()
		link.Destination = append([]byte("#"), id...)
		link.SetAttributeString("class", []byte("header-anchor"))
		for c := h.FirstChild(); c != nil; {
			next := c.NextSibling()
			link.AppendChild(link, c)
			c = next
		}
		h.AppendChild(h, link)
		h.SetAttributeString("tabindex", []byte("-1"))
	}
}

type headingAnchorExtension struct{}

var headingAnchors = &headingAnchorExtension{}

func (e *headingAnchorExtension) Extend(m goldmark.Markdown) {
	m.Parser().AddOptions(
		parser.WithASTTransformers(
			util.Prioritized(headingAnchorTransformer{}, 200),
		),
	)
}
