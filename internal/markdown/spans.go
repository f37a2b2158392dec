package markdown

import (
	"bytes"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/parser"
	"github.com/yuin/goldmark/renderer"
	"github.com/yuin/goldmark/text"
	"github.com/yuin/goldmark/util"
)

var (
	// KindSubscript is ~text~.
	KindSubscript = ast.NewNodeKind("Subscript")

	// KindInserted is ++text++.
	KindInserted = ast.NewNodeKind("Inserted")

	// KindMarked is ==text==.
	KindMarked = ast.NewNodeKind("Marked")
)

// Span is an inline wrapper rendered as a single HTML element.
type Span struct {
	ast.BaseInline
	kind ast.NodeKind
}

func NewSpan(kind ast.NodeKind) *Span {
	return &Span{kind: kind}
}

func (n *Span) Kind() ast.NodeKind { return n.kind }

func (n *Span) Dump(source []byte, level int) {
	ast.DumpHelper(n, source, level, nil, nil)
}

var spanTags = map[ast.NodeKind]string{
	KindSubscript: "sub",
	KindInserted:  "ins",
	KindMarked:    "mark",
}

// subscriptParser takes a single ~ run closed on the same line, with no
// whitespace inside. Everything else falls through to strikethrough.
type subscriptParser struct{}

func (p *subscriptParser) Trigger() []byte {
	return []byte{'~'}
}

func (p *subscriptParser) Parse(parent ast.Node, block text.Reader, pc parser.Context) ast.Node {
	if block.PrecendingCharacter() == '~' {
		return nil
	}
	line, segment := block.PeekLine()
	if len(line) < 3 || line[1] == '~' {
		return nil
	}
	end := bytes.IndexByte(line[1:], '~') + 1
	if end <= 1 {
		return nil
	}
	if end+1 < len(line) && line[end+1] == '~' {
		return nil
	}
	if bytes.ContainsAny(line[1:end], " \t\r\n") {
		return nil
	}

	node := NewSpan(KindSubscript)
	node.AppendChild(node, ast.NewTextSegment(text.NewSegment(segment.Start+1, segment.Start+end)))
	block.Advance(end + 1)
	return node
}

// doubleDelimiterProcessor pairs runs of exactly two delimiter characters,
// the way strikethrough pairs ~~.
type doubleDelimiterProcessor struct {
	char byte
	kind ast.NodeKind
}

func (p *doubleDelimiterProcessor) IsDelimiter(b byte) bool {
	return b == p.char
}

func (p *doubleDelimiterProcessor) CanOpenCloser(opener, closer *parser.Delimiter) bool {
	return opener.Char == closer.Char
}

func (p *doubleDelimiterProcessor) OnMatch(consumes int) ast.Node {
	return NewSpan(p.kind)
}

type doubleDelimiterParser struct {
	processor *doubleDelimiterProcessor
}

func (p *doubleDelimiterParser) Trigger() []byte {
	return []byte{p.processor.char}
}

func (p *doubleDelimiterParser) Parse(parent ast.Node, block text.Reader, pc parser.Context) ast.Node {
	before := block.PrecendingCharacter()
	if before == rune(p.processor.char) {
		return nil
	}
	line, segment := block.PeekLine()
	node := parser.ScanDelimiter(line, before, 2, p.processor)
	if node == nil || node.OriginalLength != 2 {
		return nil
	}
	node.Segment = segment.WithStop(segment.Start + node.OriginalLength)
	block.Advance(node.OriginalLength)
	pc.PushDelimiter(node)
	return node
}

type spanRenderer struct{}

func (r *spanRenderer) RegisterFuncs(reg renderer.NodeRendererFuncRegisterer) {
	for kind := range spanTags {
		reg.Register(kind, r.renderSpan)
	}
}

func (r *spanRenderer) renderSpan(w util.BufWriter, source []byte, node ast.Node, entering bool) (ast.WalkStatus, error) {
	tag := spanTags[node.Kind()]
	if entering {
		_, _ = w.WriteString("<" + tag + ">")
	} else {
		_, _ = w.WriteString("</" + tag + ">")
	}
	return ast.WalkContinue, nil
}

type spanExtension struct {
	parser parser.InlineParser
}

// Subscripts adds ~sub~. Runs ahead of strikethrough so ~~del~~ still works.
var Subscripts = &spanExtension{parser: &subscriptParser{}}

// Insertions adds ++ins++.
var Insertions = &spanExtension{parser: &doubleDelimiterParser{
	processor: &doubleDelimiterProcessor{char: '+', kind: KindInserted},
}}

// Marks adds ==mark==.
var Marks = &spanExtension{parser: &doubleDelimiterParser{
	processor: &doubleDelimiterProcessor{char: '=', kind: KindMarked},
}}

func (e *spanExtension) Extend(m goldmark.Markdown) {
	m.Parser().AddOptions(
		parser.WithInlineParsers(
			util.Prioritized(e.parser, 400),
		),
	)
	m.Renderer().AddOptions(
		renderer.WithNodeRenderers(
			util.Prioritized(&spanRenderer{}, 500),
		),
	)
}
