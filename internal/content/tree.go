package content

import (
	"fmt"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/spf13/afero"

	"github.com/razvandimescu/molesk/internal/logger"
	"github.com/razvandimescu/molesk/internal/markdown"
)

// FragmentCache stores rendered trees by key.
type FragmentCache interface {
	Fragment(key string) (string, bool)
	StoreFragment(key, html string)
}

// TreeOptions tweak a single Generate call.
type TreeOptions struct {
	// Active is the slash-separated path (relative to the root) of the page
	// being shown. Its link gets class="active".
	Active string
}

// treeEntry is one rendered child of a directory.
type treeEntry struct {
	name     string
	rel      string
	isDir    bool
	date     string
	fragment string
}

type TreeBuilder struct {
	fs      afero.Fs
	root    string
	exts    Extensions
	ignore  *IgnoreList
	cache   FragmentCache
	metrics Metrics
}

type TreeBuilderOptions struct {
	Extensions Extensions
	Ignore     *IgnoreList
	Cache      FragmentCache
	Metrics    Metrics
}

func NewTreeBuilder(fs afero.Fs, root string, opts TreeBuilderOptions) *TreeBuilder {
	exts := opts.Extensions
	if exts.Markdown == nil && exts.Images == nil {
		exts = DefaultExtensions
	}
	return &TreeBuilder{
		fs:      fs,
		root:    root,
		exts:    exts,
		ignore:  opts.Ignore,
		cache:   opts.Cache,
		metrics: metricsOrNoop(opts.Metrics),
	}
}

func treeCacheKey(dir string, opts TreeOptions) string {
	if opts.Active == "" {
		return dir
	}
	return dir + "\x00" + opts.Active
}

// Generate renders dir as nested <ul> lists. Directories that contain no
// markdown/text file at any depth are left out. Results are cached per
// dir (and active page) until the cache is invalidated.
func (b *TreeBuilder) Generate(dir string, opts TreeOptions) (string, error) {
	key := treeCacheKey(dir, opts)
	if b.cache != nil {
		if html, ok := b.cache.Fragment(key); ok {
			return html, nil
		}
	}

	start := time.Now()
	html, _, err := b.build(dir, opts.Active, true)
	b.metrics.ObserveTreeBuild(time.Since(start), err)
	if err != nil {
		return "", err
	}

	if b.cache != nil {
		b.cache.StoreFragment(key, html)
	}
	return html, nil
}

// build returns the fragment for dir and whether it has any entries.
func (b *TreeBuilder) build(dir, active string, isRoot bool) (string, bool, error) {
	infos, err := afero.ReadDir(b.fs, dir)
	if err != nil {
		if isRoot {
			return "", false, fmt.Errorf("%w: folder tree %s: %v", ErrNotFound, dir, err)
		}
		logger.Warn("Warning: Cannot read directory %s: %v", dir, err)
		return "", false, nil
	}

	var entries []treeEntry
	for _, info := range infos {
		name := info.Name()
		if strings.HasPrefix(name, ".") || b.ignore.Matches(name) {
			continue
		}
		fullPath := filepath.Join(dir, name)

		if info.IsDir() {
			fragment, ok, err := b.build(fullPath, active, false)
			if err != nil {
				return "", false, err
			}
			if !ok {
				continue
			}
			entries = append(entries, treeEntry{name: name, isDir: true, fragment: fragment})
			continue
		}

		if !b.exts.IsMarkdown(name) {
			continue
		}
		data, err := afero.ReadFile(b.fs, fullPath)
		if err != nil {
			logger.Warn("Warning: Cannot read %s: %v", fullPath, err)
			continue
		}
		entries = append(entries, treeEntry{
			name: name,
			rel:  relSlash(b.root, fullPath),
			date: markdown.ParseMetadataOnly(string(data)).Date,
		})
	}

	if len(entries) == 0 {
		return "<ul></ul>", false, nil
	}

	sortEntries(entries)

	var sb strings.Builder
	sb.WriteString("<ul>")
	for _, e := range entries {
		writeEntry(&sb, e, active)
	}
	sb.WriteString("</ul>")
	return sb.String(), true, nil
}

// sortEntries orders files before directories. Two files sort by date,
// newest first, unless either is undated, in which case by name. The
// comparison is not a total order when dated and undated files mix, so the
// stable sort over the name-ordered listing decides those cases.
func sortEntries(entries []treeEntry) {
	sort.SliceStable(entries, func(i, j int) bool {
		a, b := entries[i], entries[j]
		if !a.isDir && !b.isDir {
			if a.date == "" || b.date == "" {
				return strings.ToLower(a.name) < strings.ToLower(b.name)
			}
			return a.date > b.date
		}
		if a.isDir == b.isDir {
			return strings.ToLower(a.name) < strings.ToLower(b.name)
		}
		return !a.isDir
	})
}

func writeEntry(sb *strings.Builder, e treeEntry, active string) {
	label := markdown.EscapeHTML(DisplayName(e.name, e.isDir))

	if e.isDir {
		sb.WriteString(`<li class="folder open"><span><i class="fas fa-folder-open"></i> `)
		sb.WriteString(label)
		sb.WriteString(`</span>`)
		sb.WriteString(e.fragment)
		sb.WriteString(`</li>`)
		return
	}

	anchor := `<a href="/content/` + EncodePath(e.rel) + `"`
	if active != "" && e.rel == active {
		anchor += ` class="active"`
	}
	anchor += `>`

	if strings.ToLower(label) == "home" {
		sb.WriteString(`<li class="folder">` + anchor + `<i class="fas fa-home"></i> ` + label + `</a></li>`)
		return
	}

	sb.WriteString(`<li>` + anchor + `<i class="fas fa-file-alt"></i> ` + label + `</a>`)
	if e.date != "" {
		sb.WriteString(`<div class="file-date">` + markdown.EscapeHTML(e.date) + `</div>`)
	}
	sb.WriteString(`</li>`)
}
