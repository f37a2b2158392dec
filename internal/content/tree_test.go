package content

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// assertOrder checks that each needle appears in html after the previous one.
func assertOrder(t *testing.T, html string, needles ...string) {
	t.Helper()
	last := -1
	for _, n := range needles {
		idx := strings.Index(html, n)
		require.GreaterOrEqual(t, idx, 0, "missing %q in %s", n, html)
		assert.Greater(t, idx, last, "%q out of order in %s", n, html)
		last = idx
	}
}

func TestTreeBuilder_Generate(t *testing.T) {
	fs := afero.NewMemMapFs()
	writeFiles(t, fs, map[string]string{
		"home.md":            "# Home",
		"about.md":           dated("2024-01-01", "# About"),
		"posts/hello.md":     "# Hello",
		"empty/data.json":    "{}",
		"deep/deeper/x.json": "{}",
		".hidden.md":         "secret",
		".git/config.md":     "secret",
		"picture.png":        "png",
		"drafts/wip.md":      "wip",
	})

	b := NewTreeBuilder(fs, testRoot, TreeBuilderOptions{Ignore: NewIgnoreList("drafts")})
	html, err := b.Generate(testRoot, TreeOptions{})
	require.NoError(t, err)

	assert.Contains(t, html, `<li class="folder"><a href="/content/home.md"><i class="fas fa-home"></i> Home</a></li>`)
	assert.Contains(t, html, `<li><a href="/content/about.md"><i class="fas fa-file-alt"></i> About</a><div class="file-date">2024-01-01</div></li>`)
	assert.Contains(t, html, `<li class="folder open"><span><i class="fas fa-folder-open"></i> Posts</span><ul><li><a href="/content/posts/hello.md"><i class="fas fa-file-alt"></i> Hello</a></li></ul></li>`)

	assert.NotContains(t, html, "Empty", "directories without documents are pruned")
	assert.NotContains(t, html, "Deep")
	assert.NotContains(t, html, "hidden")
	assert.NotContains(t, html, ".git")
	assert.NotContains(t, html, "picture")
	assert.NotContains(t, html, "Drafts")

	assert.True(t, strings.HasPrefix(html, "<ul>"))
	assert.True(t, strings.HasSuffix(html, "</ul>"))
}

func TestTreeBuilder_NestedEligibility(t *testing.T) {
	fs := afero.NewMemMapFs()
	writeFiles(t, fs, map[string]string{
		"outer/inner/x.md": "x",
		"photos/a.jpg":     "jpg",
	})

	html, err := NewTreeBuilder(fs, testRoot, TreeBuilderOptions{}).Generate(testRoot, TreeOptions{})
	require.NoError(t, err)

	assert.Equal(t, `<ul><li class="folder open"><span><i class="fas fa-folder-open"></i> Outer</span>`+
		`<ul><li class="folder open"><span><i class="fas fa-folder-open"></i> Inner</span>`+
		`<ul><li><a href="/content/outer/inner/x.md"><i class="fas fa-file-alt"></i> X</a></li></ul>`+
		`</li></ul></li></ul>`, html)
	assert.NotContains(t, html, "Photos", "image-only directories are pruned")
}

func TestTreeBuilder_FilesBeforeFolders(t *testing.T) {
	fs := afero.NewMemMapFs()
	writeFiles(t, fs, map[string]string{
		"aaa/inner.md": "x",
		"zzz.md":       "x",
		"Bbb/inner.md": "x",
	})

	html, err := NewTreeBuilder(fs, testRoot, TreeBuilderOptions{}).Generate(testRoot, TreeOptions{})
	require.NoError(t, err)
	assertOrder(t, html, "Zzz", "Aaa", "Bbb")
}

func TestTreeBuilder_SortOrder(t *testing.T) {
	tests := []struct {
		name  string
		files map[string]string
		want  []string
	}{
		{
			name: "undated names first then dated",
			files: map[string]string{
				"a.md": "a",
				"b.md": "b",
				"c.md": dated("2024-02-01", "c"),
				"d.md": dated("2024-01-01", "d"),
			},
			want: []string{"/content/a.md", "/content/b.md", "/content/c.md", "/content/d.md"},
		},
		{
			name: "dated pair reordered newest first",
			files: map[string]string{
				"m.md": "m",
				"x.md": dated("2024-01-01", "x"),
				"y.md": dated("2024-03-01", "y"),
			},
			want: []string{"/content/m.md", "/content/y.md", "/content/x.md"},
		},
		{
			name: "all dated",
			files: map[string]string{
				"old.md":    dated("2023-05-01", "o"),
				"new.md":    dated("2025-01-01", "n"),
				"middle.md": dated("2024-06-15", "m"),
			},
			want: []string{"/content/new.md", "/content/middle.md", "/content/old.md"},
		},
		{
			name: "undated case-insensitive names",
			files: map[string]string{
				"Beta.md":  "b",
				"alpha.md": "a",
				"gamma.md": "g",
			},
			want: []string{"/content/alpha.md", "/content/Beta.md", "/content/gamma.md"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fs := afero.NewMemMapFs()
			writeFiles(t, fs, tt.files)
			html, err := NewTreeBuilder(fs, testRoot, TreeBuilderOptions{}).Generate(testRoot, TreeOptions{})
			require.NoError(t, err)
			assertOrder(t, html, tt.want...)
		})
	}
}

func TestTreeBuilder_Active(t *testing.T) {
	fs := afero.NewMemMapFs()
	writeFiles(t, fs, map[string]string{
		"one.md":       "1",
		"posts/two.md": "2",
	})

	html, err := NewTreeBuilder(fs, testRoot, TreeBuilderOptions{}).Generate(testRoot, TreeOptions{Active: "posts/two.md"})
	require.NoError(t, err)
	assert.Contains(t, html, `<a href="/content/posts/two.md" class="active">`)
	assert.Contains(t, html, `<a href="/content/one.md">`)
}

func TestTreeBuilder_EscapesNames(t *testing.T) {
	fs := afero.NewMemMapFs()
	writeFiles(t, fs, map[string]string{
		`<b>&"x".md`: "x",
		"a b/c&d.md": "y",
	})

	html, err := NewTreeBuilder(fs, testRoot, TreeBuilderOptions{}).Generate(testRoot, TreeOptions{})
	require.NoError(t, err)
	assert.Contains(t, html, "&lt;b&gt;&amp;&quot;x&quot;")
	assert.Contains(t, html, `href="/content/a%20b/c%26d.md"`)
	assert.NotContains(t, html, "<b>")
}

func TestTreeBuilder_EmptyRoot(t *testing.T) {
	fs := afero.NewMemMapFs()
	require.NoError(t, fs.MkdirAll(testRoot, 0755))

	html, err := NewTreeBuilder(fs, testRoot, TreeBuilderOptions{}).Generate(testRoot, TreeOptions{})
	require.NoError(t, err)
	assert.Equal(t, "<ul></ul>", html)
}

func TestTreeBuilder_MissingRoot(t *testing.T) {
	_, err := NewTreeBuilder(afero.NewMemMapFs(), testRoot, TreeBuilderOptions{}).Generate(testRoot, TreeOptions{})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrNotFound))
}

func TestTreeBuilder_CachedUntilInvalidated(t *testing.T) {
	fs := newCountingFs()
	writeFiles(t, fs, map[string]string{
		"a.md":       "a",
		"sub/b.md":   dated("2024-01-01", "b"),
		"sub/c.json": "{}",
	})
	cache := newMapCache()
	b := NewTreeBuilder(fs, testRoot, TreeBuilderOptions{Cache: cache})

	before := fs.Opens()
	first, err := b.Generate(testRoot, TreeOptions{})
	require.NoError(t, err)
	afterFirst := fs.Opens()
	assert.Greater(t, afterFirst, before, "cold build reads the filesystem")

	second, err := b.Generate(testRoot, TreeOptions{})
	require.NoError(t, err)
	assert.Equal(t, first, second)
	assert.Equal(t, afterFirst, fs.Opens(), "warm call must not touch the filesystem")

	// Changes stay invisible until the cache is cleared
	writeFiles(t, fs, map[string]string{"new.md": "n"})
	stale, err := b.Generate(testRoot, TreeOptions{})
	require.NoError(t, err)
	assert.NotContains(t, stale, "new.md")

	cache.clear()
	fresh, err := b.Generate(testRoot, TreeOptions{})
	require.NoError(t, err)
	assert.Contains(t, fresh, `/content/new.md`)
}

func TestTreeBuilder_IdempotentWithoutCache(t *testing.T) {
	fs := newCountingFs()
	writeFiles(t, fs, map[string]string{
		"a.md":     "a",
		"sub/b.md": "b",
	})
	b := NewTreeBuilder(fs, testRoot, TreeBuilderOptions{})

	start := fs.Opens()
	first, err := b.Generate(testRoot, TreeOptions{})
	require.NoError(t, err)
	perBuild := fs.Opens() - start

	second, err := b.Generate(testRoot, TreeOptions{})
	require.NoError(t, err)
	assert.Equal(t, first, second)
	assert.Equal(t, 2*perBuild, fs.Opens()-start)
}

type recordingMetrics struct {
	trees []error
	feeds []int
}

func (m *recordingMetrics) ObserveTreeBuild(_ time.Duration, err error) {
	m.trees = append(m.trees, err)
}

func (m *recordingMetrics) ObserveFeedBuild(_ time.Duration, items int, _ error) {
	m.feeds = append(m.feeds, items)
}

func TestTreeBuilder_Metrics(t *testing.T) {
	fs := afero.NewMemMapFs()
	writeFiles(t, fs, map[string]string{"a.md": "a"})
	m := &recordingMetrics{}
	cache := newMapCache()
	b := NewTreeBuilder(fs, testRoot, TreeBuilderOptions{Cache: cache, Metrics: m})

	_, err := b.Generate(testRoot, TreeOptions{})
	require.NoError(t, err)
	_, err = b.Generate(testRoot, TreeOptions{})
	require.NoError(t, err)

	require.Len(t, m.trees, 1, "cache hits are not builds")
	assert.NoError(t, m.trees[0])
}
