package content

import (
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/require"

	"github.com/razvandimescu/molesk/internal/markdown"
)

const testRoot = "/site"

// countingFs counts every Open/OpenFile so tests can tell whether a call
// touched the filesystem.
type countingFs struct {
	afero.Fs
	opens atomic.Int64
}

func newCountingFs() *countingFs {
	return &countingFs{Fs: afero.NewMemMapFs()}
}

func (c *countingFs) Open(name string) (afero.File, error) {
	c.opens.Add(1)
	return c.Fs.Open(name)
}

func (c *countingFs) OpenFile(name string, flag int, perm os.FileMode) (afero.File, error) {
	c.opens.Add(1)
	return c.Fs.OpenFile(name, flag, perm)
}

func (c *countingFs) Opens() int64 {
	return c.opens.Load()
}

// failingFs refuses to open one path.
type failingFs struct {
	afero.Fs
	path string
}

func (f *failingFs) Open(name string) (afero.File, error) {
	if filepath.Clean(name) == f.path {
		return nil, &os.PathError{Op: "open", Path: name, Err: os.ErrPermission}
	}
	return f.Fs.Open(name)
}

// mapCache is a minimal FragmentCache.
type mapCache struct {
	mu        sync.Mutex
	fragments map[string]string
}

func newMapCache() *mapCache {
	return &mapCache{fragments: make(map[string]string)}
}

func (c *mapCache) Fragment(key string) (string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	html, ok := c.fragments[key]
	return html, ok
}

func (c *mapCache) StoreFragment(key, html string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.fragments[key] = html
}

func (c *mapCache) clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.fragments = make(map[string]string)
}

// writeFiles creates each relative path under testRoot with its contents.
func writeFiles(t *testing.T, fs afero.Fs, files map[string]string) {
	t.Helper()
	require.NoError(t, fs.MkdirAll(testRoot, 0755))
	for rel, data := range files {
		full := filepath.Join(testRoot, rel)
		require.NoError(t, fs.MkdirAll(filepath.Dir(full), 0755))
		require.NoError(t, afero.WriteFile(fs, full, []byte(data), 0644))
	}
}

func dated(date, body string) string {
	return "---\ndate: " + date + "\n---\n" + body
}

func newTestRenderer(t *testing.T) *markdown.Renderer {
	t.Helper()
	return markdown.NewRenderer()
}
