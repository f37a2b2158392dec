package content

import (
	"errors"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/araddon/dateparse"
	"github.com/gorilla/feeds"
	"github.com/spf13/afero"

	"github.com/razvandimescu/molesk/internal/logger"
	"github.com/razvandimescu/molesk/internal/markdown"
)

const defaultItemDescription = "A new content piece is available."

type FeedOptions struct {
	Title string

	// BaseURL is the absolute origin, e.g. http://0.0.0.0:8080
	BaseURL string

	// ImageURL is the channel image. Empty leaves it out.
	ImageURL string

	Extensions Extensions
	Metrics    Metrics

	// Now is the clock used for channel and fallback item dates
	Now func() time.Time
}

// FeedBuilder renders an RSS 2.0 channel over every markdown/text file
// under root.
type FeedBuilder struct {
	fs      afero.Fs
	root    string
	opts    FeedOptions
	metrics Metrics
}

func NewFeedBuilder(fs afero.Fs, root string, opts FeedOptions) *FeedBuilder {
	if opts.Extensions.Markdown == nil && opts.Extensions.Images == nil {
		opts.Extensions = DefaultExtensions
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &FeedBuilder{
		fs:      fs,
		root:    root,
		opts:    opts,
		metrics: metricsOrNoop(opts.Metrics),
	}
}

// feedItem pairs a gorilla item with the category it should carry.
type feedItem struct {
	item     *feeds.Item
	category string
}

// Generate walks root in listing order and returns the feed XML. A missing
// root yields an empty but valid channel.
func (b *FeedBuilder) Generate() (string, error) {
	start := time.Now()
	xml, n, err := b.generate()
	b.metrics.ObserveFeedBuild(time.Since(start), n, err)
	return xml, err
}

func (b *FeedBuilder) generate() (string, int, error) {
	now := b.opts.Now()

	var items []feedItem
	if err := b.walk(b.root, now, &items); err != nil {
		if errors.Is(err, os.ErrNotExist) && b.isRootMissing() {
			logger.Warn("Warning: Content directory %s missing, serving empty feed", b.root)
			xml, err := b.render(b.channel(now, fmt.Sprintf("RSS feed for %s's content (no content available)", b.opts.Title)), nil)
			return xml, 0, err
		}
		return "", 0, fmt.Errorf("generate feed: %w", err)
	}

	feed := b.channel(now, fmt.Sprintf("RSS feed for %s's content", b.opts.Title))
	if b.opts.ImageURL != "" {
		feed.Image = &feeds.Image{
			Url:   b.opts.ImageURL,
			Title: b.opts.Title,
			Link:  b.opts.BaseURL,
		}
	}
	xml, err := b.render(feed, items)
	return xml, len(items), err
}

func (b *FeedBuilder) isRootMissing() bool {
	_, err := b.fs.Stat(b.root)
	return errors.Is(err, os.ErrNotExist)
}

func (b *FeedBuilder) channel(now time.Time, description string) *feeds.Feed {
	return &feeds.Feed{
		Title:       b.opts.Title,
		Link:        &feeds.Link{Href: b.opts.BaseURL},
		Description: description,
		Created:     now,
	}
}

func (b *FeedBuilder) render(feed *feeds.Feed, items []feedItem) (string, error) {
	for _, it := range items {
		feed.Items = append(feed.Items, it.item)
	}

	rss := (&feeds.Rss{Feed: feed}).RssFeed()
	for i, it := range items {
		rss.Items[i].Category = it.category
	}

	xml, err := feeds.ToXML(rss)
	if err != nil {
		return "", fmt.Errorf("encode rss: %w", err)
	}
	return xml, nil
}

// walk visits every entry, dotfiles included, in listing order.
func (b *FeedBuilder) walk(dir string, now time.Time, items *[]feedItem) error {
	infos, err := afero.ReadDir(b.fs, dir)
	if err != nil {
		return err
	}
	for _, info := range infos {
		fullPath := filepath.Join(dir, info.Name())
		if info.IsDir() {
			if err := b.walk(fullPath, now, items); err != nil {
				return err
			}
			continue
		}
		if !b.opts.Extensions.IsMarkdown(info.Name()) {
			continue
		}
		item, err := b.item(fullPath, info.Name(), now)
		if err != nil {
			logger.Error("Error processing %s for RSS: %v", fullPath, err)
			continue
		}
		*items = append(*items, item)
	}
	return nil
}

func (b *FeedBuilder) item(fullPath, name string, now time.Time) (feedItem, error) {
	data, err := afero.ReadFile(b.fs, fullPath)
	if err != nil {
		return feedItem{}, err
	}
	meta := markdown.ParseMetadataOnly(string(data))

	rel, err := filepath.Rel(b.root, fullPath)
	if err != nil {
		return feedItem{}, err
	}
	rel = filepath.ToSlash(rel)
	link := b.opts.BaseURL + "/content/" + EncodePath(rel)

	description := meta.Description
	if description == "" {
		description = defaultItemDescription
	}

	created := now
	if meta.Date != "" {
		if t, err := dateparse.ParseAny(meta.Date); err == nil {
			created = t
		} else {
			logger.Debug("Unparseable date %q in %s: %v", meta.Date, rel, err)
		}
	}

	return feedItem{
		item: &feeds.Item{
			Title:       FeedItemTitle(name),
			Link:        &feeds.Link{Href: link},
			Description: description,
			Id:          link,
			Created:     created,
		},
		category: feedCategory(rel),
	}, nil
}

// feedCategory joins the directory segments of rel with " > ".
func feedCategory(rel string) string {
	dir := path.Dir(rel)
	if dir == "." || dir == "/" {
		return ""
	}
	var parts []string
	for _, p := range strings.Split(dir, "/") {
		if p != "" {
			parts = append(parts, p)
		}
	}
	return strings.Join(parts, " > ")
}
