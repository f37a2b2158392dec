package content

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/afero"

	"github.com/razvandimescu/molesk/internal/markdown"
)

// Kind says how a resolved path is served.
type Kind int

const (
	KindDocument Kind = iota
	KindImage
)

// Resolution is a request path mapped onto something servable.
type Resolution struct {
	Kind Kind

	// RelPath is the slash-separated path relative to the content root
	RelPath string

	// Image fields
	MimeType string
	Data     []byte

	// Document fields. Content already carries the metadata banner.
	Content   string
	PageTitle string
	Metadata  markdown.Metadata
}

// Download is a markdown/text file offered as an attachment.
type Download struct {
	Name    string
	Data    []byte
	ModTime time.Time
}

type ResolverOptions struct {
	Extensions Extensions
	SiteTitle  string
}

// Resolver maps request paths under root onto documents and images.
type Resolver struct {
	fs       afero.Fs
	root     string
	renderer *markdown.Renderer
	opts     ResolverOptions
}

func NewResolver(fs afero.Fs, root string, renderer *markdown.Renderer, opts ResolverOptions) *Resolver {
	if opts.Extensions.Markdown == nil && opts.Extensions.Images == nil {
		opts.Extensions = DefaultExtensions
	}
	return &Resolver{fs: fs, root: root, renderer: renderer, opts: opts}
}

// locate applies the path and symlink checks and returns the full path.
func (r *Resolver) locate(requestPath string) (string, error) {
	if !IsPathSafe(r.root, requestPath) {
		return "", fmt.Errorf("%w: %s", ErrPathTraversal, requestPath)
	}
	return filepath.Join(r.root, requestPath), nil
}

func (r *Resolver) read(requestPath, fullPath string) ([]byte, error) {
	if symlinkEscapes(r.fs, r.root, fullPath) {
		return nil, fmt.Errorf("%w: %s", ErrPathTraversal, requestPath)
	}
	data, err := afero.ReadFile(r.fs, fullPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, requestPath)
		}
		return nil, fmt.Errorf("read %s: %w", requestPath, err)
	}
	return data, nil
}

// Resolve classifies requestPath by extension before touching the disk, so
// unsupported types are rejected whether or not they exist.
func (r *Resolver) Resolve(requestPath string) (*Resolution, error) {
	fullPath, err := r.locate(requestPath)
	if err != nil {
		return nil, err
	}

	name := filepath.Base(fullPath)
	isImage := r.opts.Extensions.IsImage(name)
	if !isImage && !r.opts.Extensions.IsMarkdown(name) {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedType, requestPath)
	}

	data, err := r.read(requestPath, fullPath)
	if err != nil {
		return nil, err
	}
	res := &Resolution{RelPath: relSlash(r.root, fullPath)}

	if isImage {
		mime := MimeType(name, data)
		if mime == "" {
			return nil, fmt.Errorf("%w: %s", ErrMimeUnresolved, requestPath)
		}
		res.Kind = KindImage
		res.MimeType = mime
		res.Data = data
		return res, nil
	}

	page, err := r.renderer.ParseFileContent(string(data))
	if err != nil {
		return nil, fmt.Errorf("render %s: %w", requestPath, err)
	}
	res.Kind = KindDocument
	res.Content = markdown.MetadataToHTML(page.Metadata) + page.Content
	res.Metadata = page.Metadata
	res.PageTitle = PageTitle(name, r.opts.SiteTitle)
	return res, nil
}

// ResolveDownload returns a markdown/text file with its attachment name.
func (r *Resolver) ResolveDownload(requestPath string) (*Download, error) {
	fullPath, err := r.locate(requestPath)
	if err != nil {
		return nil, err
	}
	name := filepath.Base(fullPath)
	if !r.opts.Extensions.IsMarkdown(name) {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedType, requestPath)
	}

	data, err := r.read(requestPath, fullPath)
	if err != nil {
		return nil, err
	}

	var modTime time.Time
	if info, err := r.fs.Stat(fullPath); err == nil {
		modTime = info.ModTime()
	}
	return &Download{
		Name:    DownloadName(r.opts.SiteTitle, name),
		Data:    data,
		ModTime: modTime,
	}, nil
}

func relSlash(root, fullPath string) string {
	rel, err := filepath.Rel(root, fullPath)
	if err != nil {
		return filepath.Base(fullPath)
	}
	return filepath.ToSlash(rel)
}
