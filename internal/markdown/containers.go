package markdown

import (
	"bytes"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/parser"
	"github.com/yuin/goldmark/renderer"
	"github.com/yuin/goldmark/text"
	"github.com/yuin/goldmark/util"
)

// KindAdmonition is the node kind of ::: blocks.
var KindAdmonition = ast.NewNodeKind("Admonition")

// KindDetails is the node kind of +++ blocks.
var KindDetails = ast.NewNodeKind("Details")

// Admonition is a ::: <class> ... ::: block rendered as <div class="<class>">.
type Admonition struct {
	ast.BaseBlock
	Class       string
	fenceLength int
}

func (n *Admonition) Kind() ast.NodeKind { return KindAdmonition }

func (n *Admonition) Dump(source []byte, level int) {
	ast.DumpHelper(n, source, level, map[string]string{"Class": n.Class}, nil)
}

// Details is a collapsible section. "+++ Title" starts closed, "++> Title"
// starts open; a line of "+++" ends it.
type Details struct {
	ast.BaseBlock
	Title string
	Open  bool
}

func (n *Details) Kind() ast.NodeKind { return KindDetails }

func (n *Details) Dump(source []byte, level int) {
	ast.DumpHelper(n, source, level, map[string]string{"Title": n.Title}, nil)
}

// admonitionClasses are the ::: names that open a block.
var admonitionClasses = map[string]bool{
	"warning": true,
	"info":    true,
}

type admonitionParser struct{}

func (b *admonitionParser) Trigger() []byte {
	return []byte{':'}
}

func (b *admonitionParser) Open(parent ast.Node, reader text.Reader, pc parser.Context) (ast.Node, parser.State) {
	line, segment := reader.PeekLine()
	pos := pc.BlockOffset()
	if pos < 0 {
		return nil, parser.NoChildren
	}
	n := fenceRun(line[pos:], ':')
	if n < 3 {
		return nil, parser.NoChildren
	}
	fields := strings.Fields(string(line[pos+n:]))
	if len(fields) == 0 || !admonitionClasses[fields[0]] {
		return nil, parser.NoChildren
	}
	advancePastLine(reader, line, segment)
	return &Admonition{Class: fields[0], fenceLength: n}, parser.HasChildren
}

func (b *admonitionParser) Continue(node ast.Node, reader text.Reader, pc parser.Context) parser.State {
	line, segment := reader.PeekLine()
	if isClosingFence(line, reader.LineOffset(), ':', node.(*Admonition).fenceLength) {
		advancePastLine(reader, line, segment)
		return parser.Close
	}
	return parser.Continue | parser.HasChildren
}

func (b *admonitionParser) Close(node ast.Node, reader text.Reader, pc parser.Context) {}

func (b *admonitionParser) CanInterruptParagraph() bool { return true }

func (b *admonitionParser) CanAcceptIndentedLine() bool { return false }

type detailsParser struct{}

func (b *detailsParser) Trigger() []byte {
	return []byte{'+'}
}

func (b *detailsParser) Open(parent ast.Node, reader text.Reader, pc parser.Context) (ast.Node, parser.State) {
	line, segment := reader.PeekLine()
	pos := pc.BlockOffset()
	if pos < 0 {
		return nil, parser.NoChildren
	}
	rest := line[pos:]
	var open bool
	switch {
	case bytes.HasPrefix(rest, []byte("+++")):
	case bytes.HasPrefix(rest, []byte("++>")):
		open = true
	default:
		return nil, parser.NoChildren
	}
	title := strings.TrimSpace(string(rest[3:]))
	if title == "" {
		return nil, parser.NoChildren
	}
	advancePastLine(reader, line, segment)
	return &Details{Title: title, Open: open}, parser.HasChildren
}

func (b *detailsParser) Continue(node ast.Node, reader text.Reader, pc parser.Context) parser.State {
	line, segment := reader.PeekLine()
	if isClosingFence(line, reader.LineOffset(), '+', 3) {
		advancePastLine(reader, line, segment)
		return parser.Close
	}
	return parser.Continue | parser.HasChildren
}

func (b *detailsParser) Close(node ast.Node, reader text.Reader, pc parser.Context) {}

func (b *detailsParser) CanInterruptParagraph() bool { return true }

func (b *detailsParser) CanAcceptIndentedLine() bool { return false }

func fenceRun(line []byte, c byte) int {
	i := 0
	for i < len(line) && line[i] == c {
		i++
	}
	return i
}

func isClosingFence(line []byte, offset int, c byte, min int) bool {
	if line == nil {
		return false
	}
	w, pos := util.IndentWidth(line, offset)
	if w > 3 {
		return false
	}
	n := fenceRun(line[pos:], c)
	return n >= min && util.IsBlank(line[pos+n:])
}

// advancePastLine consumes the current line, leaving the newline for the
// block loop.
func advancePastLine(reader text.Reader, line []byte, segment text.Segment) {
	newline := 0
	if len(line) > 0 && line[len(line)-1] == '\n' {
		newline = 1
	}
	reader.Advance(segment.Stop - segment.Start - newline + segment.Padding)
}

type containerRenderer struct{}

func (r *containerRenderer) RegisterFuncs(reg renderer.NodeRendererFuncRegisterer) {
	reg.Register(KindAdmonition, r.renderAdmonition)
	reg.Register(KindDetails, r.renderDetails)
}

func (r *containerRenderer) renderAdmonition(w util.BufWriter, source []byte, node ast.Node, entering bool) (ast.WalkStatus, error) {
	n := node.(*Admonition)
	if entering {
		_, _ = w.WriteString(`<div class="` + EscapeHTML(n.Class) + "\">\n")
	} else {
		_, _ = w.WriteString("</div>\n")
	}
	return ast.WalkContinue, nil
}

func (r *containerRenderer) renderDetails(w util.BufWriter, source []byte, node ast.Node, entering bool) (ast.WalkStatus, error) {
	n := node.(*Details)
	if entering {
		if n.Open {
			_, _ = w.WriteString("<details open>")
		} else {
			_, _ = w.WriteString("<details>")
		}
		_, _ = w.WriteString("<summary>" + EscapeHTML(n.Title) + "</summary>\n")
	} else {
		_, _ = w.WriteString("</details>\n")
	}
	return ast.WalkContinue, nil
}

type containerExtension struct {
	parser parser.BlockParser
}

// Containers adds ::: warning and ::: info blocks.
var Containers = &containerExtension{parser: &admonitionParser{}}

// Collapsibles adds +++ Title ... +++ sections.
var Collapsibles = &containerExtension{parser: &detailsParser{}}

func (e *containerExtension) Extend(m goldmark.Markdown) {
	m.Parser().AddOptions(
		parser.WithBlockParsers(
			util.Prioritized(e.parser, 90),
		),
	)
	m.Renderer().AddOptions(
		renderer.WithNodeRenderers(
			util.Prioritized(&containerRenderer{}, 500),
		),
	)
}
