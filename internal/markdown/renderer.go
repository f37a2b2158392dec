// Package markdown turns markdown documents into HTML fragments.
package markdown

import (
	"bytes"
	"fmt"

	chromahtml "github.com/alecthomas/chroma/v2/formatters/html"
	"github.com/alecthomas/chroma/v2/styles"
	"github.com/yuin/goldmark"
	emoji "github.com/yuin/goldmark-emoji"
	highlighting "github.com/yuin/goldmark-highlighting/v2"
	"github.com/yuin/goldmark/extension"

	"github.com/razvandimescu/molesk/internal/logger"
)

// DefaultHighlightStyle is the chroma style used for fenced code.
const DefaultHighlightStyle = "github"

// Renderer is safe for concurrent use once built.
type Renderer struct {
	md     goldmark.Markdown
	stages []string
	style  string
}

type rendererConfig struct {
	highlightStyle string
	skip           map[string]bool
}

type Option func(*rendererConfig)

// WithHighlightStyle selects a chroma style by name.
func WithHighlightStyle(name string) Option {
	return func(c *rendererConfig) {
		c.highlightStyle = name
	}
}

// WithoutStages disables optional stages by name.
func WithoutStages(names ...string) Option {
	return func(c *rendererConfig) {
		for _, n := range names {
			c.skip[n] = true
		}
	}
}

// stage is an optional pipeline extension. A stage whose build fails is
// logged and left out; the rest of the pipeline still works.
type stage struct {
	name  string
	build func(cfg *rendererConfig) (goldmark.Extender, error)
}

var stages = []stage{
	{name: "highlight", build: buildHighlight},
	{name: "emoji", build: func(*rendererConfig) (goldmark.Extender, error) { return emoji.Emoji, nil }},
	{name: "footnote", build: func(*rendererConfig) (goldmark.Extender, error) { return extension.Footnote, nil }},
	{name: "deflist", build: func(*rendererConfig) (goldmark.Extender, error) { return extension.DefinitionList, nil }},
	{name: "container", build: func(*rendererConfig) (goldmark.Extender, error) { return Containers, nil }},
	{name: "collapsible", build: func(*rendererConfig) (goldmark.Extender, error) { return Collapsibles, nil }},
	{name: "abbr", build: func(*rendererConfig) (goldmark.Extender, error) { return Abbreviations, nil }},
	{name: "sub", build: func(*rendererConfig) (goldmark.Extender, error) { return Subscripts, nil }},
	{name: "ins", build: func(*rendererConfig) (goldmark.Extender, error) { return Insertions, nil }},
	{name: "mark", build: func(*rendererConfig) (goldmark.Extender, error) { return Marks, nil }},
}

func buildHighlight(cfg *rendererConfig) (goldmark.Extender, error) {
	if _, ok := styles.Registry[cfg.highlightStyle]; !ok {
		return nil, fmt.Errorf("unknown highlight style %q", cfg.highlightStyle)
	}
	return highlighting.NewHighlighting(
		highlighting.WithStyle(cfg.highlightStyle),
		highlighting.WithFormatOptions(
			chromahtml.WithClasses(true),
		),
	), nil
}

// NewRenderer builds the goldmark pipeline. Raw HTML in documents is
// omitted and heading ids are unique per document.
func NewRenderer(opts ...Option) *Renderer {
	cfg := &rendererConfig{
		highlightStyle: DefaultHighlightStyle,
		skip:           make(map[string]bool),
	}
	for _, opt := range opts {
		opt(cfg)
	}

	md := goldmark.New(
		goldmark.WithExtensions(
			extension.GFM,
			extension.Typographer,
			headingAnchors,
		),
	)

	r := &Renderer{md: md, style: cfg.highlightStyle}
	for _, s := range stages {
		if cfg.skip[s.name] {
			continue
		}
		if err := applyStage(md, s, cfg); err != nil {
			logger.Warn("Warning: markdown stage %s disabled: %v", s.name, err)
			continue
		}
		r.stages = append(r.stages, s.name)
	}
	return r
}

func applyStage(md goldmark.Markdown, s stage, cfg *rendererConfig) (err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("panic during registration: %v", rec)
		}
	}()
	ext, err := s.build(cfg)
	if err != nil {
		return err
	}
	ext.Extend(md)
	return nil
}

// Stages lists the optional stages that registered successfully, in order.
func (r *Renderer) Stages() []string {
	out := make([]string, len(r.stages))
	copy(out, r.stages)
	return out
}

// Render converts markdown source into an HTML fragment.
func (r *Renderer) Render(src []byte) (string, error) {
	var buf bytes.Buffer
	if err := r.md.Convert(src, &buf); err != nil {
		return "", fmt.Errorf("render markdown: %w", err)
	}
	return buf.String(), nil
}

// RenderString is Render for callers holding a string.
func (r *Renderer) RenderString(src string) (string, error) {
	return r.Render([]byte(src))
}

// HighlightCSS returns the stylesheet for the classes emitted by the
// highlight stage, or "" when that stage is not active.
func (r *Renderer) HighlightCSS() (string, error) {
	active := false
	for _, s := range r.stages {
		if s == "highlight" {
			active = true
		}
	}
	if !active {
		return "", nil
	}

	var buf bytes.Buffer
	formatter := chromahtml.New(chromahtml.WithClasses(true))
	if err := formatter.WriteCSS(&buf, styles.Get(r.style)); err != nil {
		return "", fmt.Errorf("highlight css: %w", err)
	}
	return buf.String(), nil
}
