package markdown

import (
	"regexp"
	"sort"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/parser"
	"github.com/yuin/goldmark/renderer"
	"github.com/yuin/goldmark/text"
	"github.com/yuin/goldmark/util"
)

var (
	// KindAbbreviation is an inline <abbr> wrapper.
	KindAbbreviation = ast.NewNodeKind("Abbreviation")

	// KindAbbreviationDefinition is a "*[HTML]: Hyper Text Markup Language" line.
	KindAbbreviationDefinition = ast.NewNodeKind("AbbreviationDefinition")
)

var abbrDefsKey = parser.NewContextKey()

var abbrDefinition = regexp.MustCompile(`^\*\[([^\]]+)\]:[ \t]*(.*?)[ \t]*$`)

type Abbreviation struct {
	ast.BaseInline
	Title string
}

func (n *Abbreviation) Kind() ast.NodeKind { return KindAbbreviation }

func (n *Abbreviation) Dump(source []byte, level int) {
	ast.DumpHelper(n, source, level, map[string]string{"Title": n.Title}, nil)
}

type AbbreviationDefinition struct {
	ast.BaseBlock
	Label string
	Title string
}

func (n *AbbreviationDefinition) Kind() ast.NodeKind { return KindAbbreviationDefinition }

func (n *AbbreviationDefinition) Dump(source []byte, level int) {
	ast.DumpHelper(n, source, level, map[string]string{"Label": n.Label, "Title": n.Title}, nil)
}

type abbrParser struct{}

func (b *abbrParser) Trigger() []byte {
	return []byte{'*'}
}

func (b *abbrParser) Open(parent ast.Node, reader text.Reader, pc parser.Context) (ast.Node, parser.State) {
	line, segment := reader.PeekLine()
	pos := pc.BlockOffset()
	if pos < 0 {
		return nil, parser.NoChildren
	}
	m := abbrDefinition.FindSubmatch(util.TrimRightSpace(line[pos:]))
	if m == nil {
		return nil, parser.NoChildren
	}
	label := strings.TrimSpace(string(m[1]))
	if label == "" {
		return nil, parser.NoChildren
	}

	defs, _ := pc.Get(abbrDefsKey).(map[string]string)
	if defs == nil {
		defs = make(map[string]string)
		pc.Set(abbrDefsKey, defs)
	}
	// First definition wins
	if _, exists := defs[label]; !exists {
		defs[label] = string(m[2])
	}

	advancePastLine(reader, line, segment)
	return &AbbreviationDefinition{Label: label, Title: string(m[2])}, parser.NoChildren
}

func (b *abbrParser) Continue(node ast.Node, reader text.Reader, pc parser.Context) parser.State {
	return parser.Close
}

func (b *abbrParser) Close(node ast.Node, reader text.Reader, pc parser.Context) {}

func (b *abbrParser) CanInterruptParagraph() bool { return false }

func (b *abbrParser) CanAcceptIndentedLine() bool { return false }

// abbrTransformer wraps whole-word occurrences of defined abbreviations in
// Abbreviation nodes and drops the definition blocks.
type abbrTransformer struct{}

func (abbrTransformer) Transform(doc *ast.Document, reader text.Reader, pc parser.Context) {
	defs, _ := pc.Get(abbrDefsKey).(map[string]string)

	var definitions []ast.Node
	var texts []*ast.Text
	_ = ast.Walk(doc, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		switch n.Kind() {
		case KindAbbreviationDefinition:
			definitions = append(definitions, n)
			return ast.WalkSkipChildren, nil
		case ast.KindCodeSpan, ast.KindLink, ast.KindAutoLink, ast.KindImage, ast.KindRawHTML:
			return ast.WalkSkipChildren, nil
		case ast.KindText:
			texts = append(texts, n.(*ast.Text))
		}
		return ast.WalkContinue, nil
	})

	for _, d := range definitions {
		d.Parent().RemoveChild(d.Parent(), d)
	}

	if len(defs) == 0 {
		return
	}

	pattern := abbrPattern(defs)
	source := reader.Source()
	for _, t := range texts {
		splitAbbreviations(t, source, pattern, defs)
	}
}

// abbrPattern matches any label, longest first.
func abbrPattern(defs map[string]string) *regexp.Regexp {
	labels := make([]string, 0, len(defs))
	for l := range defs {
		labels = append(labels, l)
	}
	sort.Slice(labels, func(i, j int) bool {
		if len(labels[i]) != len(labels[j]) {
			return len(labels[i]) > len(labels[j])
		}
		return labels[i] < labels[j]
	})
	for i, l := range labels {
		labels[i] = regexp.QuoteMeta(l)
	}
	return regexp.MustCompile(strings.Join(labels, "|"))
}

func isWordRune(r rune) bool {
	return unicode.IsLetter(r) || unicode.IsDigit(r) || r == '_'
}

func atWordBoundary(value []byte, start, end int) bool {
	if start > 0 {
		r, _ := utf8.DecodeLastRune(value[:start])
		if isWordRune(r) {
			return false
		}
	}
	if end < len(value) {
		r, _ := utf8.DecodeRune(value[end:])
		if isWordRune(r) {
			return false
		}
	}
	return true
}

func splitAbbreviations(t *ast.Text, source []byte, pattern *regexp.Regexp, defs map[string]string) {
	seg := t.Segment
	value := seg.Value(source)

	var matches [][]int
	for _, m := range pattern.FindAllIndex(value, -1) {
		if atWordBoundary(value, m[0], m[1]) {
			matches = append(matches, m)
		}
	}
	if len(matches) == 0 {
		return
	}

	parent := t.Parent()
	insertAfter := ast.Node(t)
	cursor := 0
	for i, m := range matches {
		if i == 0 {
			// Reuse the original node for the leading text
			t.Segment = text.NewSegment(seg.Start, seg.Start+m[0])
		} else if m[0] > cursor {
			lead := ast.NewTextSegment(text.NewSegment(seg.Start+cursor, seg.Start+m[0]))
			parent.InsertAfter(parent, insertAfter, lead)
			insertAfter = lead
		}

		abbr := &Abbreviation{Title: defs[string(value[m[0]:m[1]])]}
		abbr.AppendChild(abbr, ast.NewTextSegment(text.NewSegment(seg.Start+m[0], seg.Start+m[1])))
		parent.InsertAfter(parent, insertAfter, abbr)
		insertAfter = abbr
		cursor = m[1]
	}

	tail := ast.NewTextSegment(text.NewSegment(seg.Start+cursor, seg.Stop))
	tail.SetSoftLineBreak(t.SoftLineBreak())
	tail.SetHardLineBreak(t.HardLineBreak())
	t.SetSoftLineBreak(false)
	t.SetHardLineBreak(false)
	parent.InsertAfter(parent, insertAfter, tail)
}

type abbrRenderer struct{}

func (r *abbrRenderer) RegisterFuncs(reg renderer.NodeRendererFuncRegisterer) {
	reg.Register(KindAbbreviation, r.renderAbbreviation)
	reg.Register(KindAbbreviationDefinition, r.renderDefinition)
}

func (r *abbrRenderer) renderAbbreviation(w util.BufWriter, source []byte, node ast.Node, entering bool) (ast.WalkStatus, error) {
	if entering {
		n := node.(*Abbreviation)
		_, _ = w.WriteString(`<abbr title="` + EscapeHTML(n.Title) + `">`)
	} else {
		_, _ = w.WriteString("</abbr>")
	}
	return ast.WalkContinue, nil
}

func (r *abbrRenderer) renderDefinition(w util.BufWriter, source []byte, node ast.Node, entering bool) (ast.WalkStatus, error) {
	return ast.WalkSkipChildren, nil
}

type abbrExtension struct{}

// Abbreviations adds *[LABEL]: title definitions and <abbr> expansion.
var Abbreviations = &abbrExtension{}

func (e *abbrExtension) Extend(m goldmark.Markdown) {
	m.Parser().AddOptions(
		parser.WithBlockParsers(
			util.Prioritized(&abbrParser{}, 90),
		),
		parser.WithASTTransformers(
			util.Prioritized(abbrTransformer{}, 100),
		),
	)
	m.Renderer().AddOptions(
		renderer.WithNodeRenderers(
			util.Prioritized(&abbrRenderer{}, 500),
		),
	)
}
