package server

import (
	"encoding/base64"
	"fmt"
	"path/filepath"
	"sync"

	"github.com/spf13/afero"

	"github.com/razvandimescu/molesk/internal/content"
)

// imageCache holds the profile image and the favicon derived from it. The
// file is read once; failed reads are retried on the next request.
type imageCache struct {
	fs   afero.Fs
	path string

	mu   sync.Mutex
	data []byte
	mime string
	svg  string
}

func newImageCache(fs afero.Fs, path string) *imageCache {
	return &imageCache{fs: fs, path: path}
}

func (c *imageCache) configured() bool {
	return c.path != ""
}

func (c *imageCache) loadLocked() error {
	if c.data != nil {
		return nil
	}
	data, err := afero.ReadFile(c.fs, c.path)
	if err != nil {
		return fmt.Errorf("%w: profile image: %v", content.ErrNotFound, err)
	}
	mime := content.MimeType(filepath.Base(c.path), data)
	if mime == "" {
		mime = "image/png"
	}
	c.data, c.mime = data, mime
	return nil
}

func (c *imageCache) image() ([]byte, string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.loadLocked(); err != nil {
		return nil, "", err
	}
	return c.data, c.mime, nil
}

// favicon wraps the image in an SVG clipped to a circle.
func (c *imageCache) favicon() (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.svg != "" {
		return c.svg, nil
	}
	if err := c.loadLocked(); err != nil {
		return "", err
	}
	c.svg = fmt.Sprintf(`<svg xmlns="http://www.w3.org/2000/svg" viewBox="0 0 100 100">
<defs><clipPath id="c"><circle cx="50" cy="50" r="50"/></clipPath></defs>
<image href="data:%s;base64,%s" width="100" height="100" clip-path="url(#c)" preserveAspectRatio="xMidYMid slice"/>
</svg>`, c.mime, base64.StdEncoding.EncodeToString(c.data))
	return c.svg, nil
}
