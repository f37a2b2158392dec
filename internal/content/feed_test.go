package content

import (
	"encoding/xml"
	"testing"
	"time"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// rssDoc is just enough of RSS 2.0 to inspect generated feeds.
type rssDoc struct {
	Channel struct {
		Title       string `xml:"title"`
		Link        string `xml:"link"`
		Description string `xml:"description"`
		Image       *struct {
			URL string `xml:"url"`
		} `xml:"image"`
		Items []struct {
			Title       string `xml:"title"`
			Link        string `xml:"link"`
			Description string `xml:"description"`
			Category    string `xml:"category"`
			Guid        string `xml:"guid"`
			PubDate     string `xml:"pubDate"`
		} `xml:"item"`
	} `xml:"channel"`
}

func parseFeed(t *testing.T, doc string) rssDoc {
	t.Helper()
	var feed rssDoc
	require.NoError(t, xml.Unmarshal([]byte(doc), &feed))
	return feed
}

var fixedNow = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

func newTestFeed(fs afero.Fs, image string) *FeedBuilder {
	return NewFeedBuilder(fs, testRoot, FeedOptions{
		Title:    "Blog",
		BaseURL:  "http://localhost:8080",
		ImageURL: image,
		Now:      func() time.Time { return fixedNow },
	})
}

func TestFeedBuilder_Generate(t *testing.T) {
	fs := afero.NewMemMapFs()
	writeFiles(t, fs, map[string]string{
		"my-first-post.md":        "---\ndate: 2024-03-05\ndescription: First one\n---\n# Hi",
		"posts/2024/deep-dive.md": dated("2024-01-02", "body"),
		"posts/no date.txt":       "plain",
		"posts/image.png":         "png",
		"bad-date.md":             dated("not a date", "x"),
	})

	doc, err := newTestFeed(fs, "http://localhost:8080/profile-pic").Generate()
	require.NoError(t, err)
	feed := parseFeed(t, doc)

	assert.Equal(t, "Blog", feed.Channel.Title)
	assert.Equal(t, "http://localhost:8080", feed.Channel.Link)
	assert.Equal(t, "RSS feed for Blog's content", feed.Channel.Description)
	require.NotNil(t, feed.Channel.Image)
	assert.Equal(t, "http://localhost:8080/profile-pic", feed.Channel.Image.URL)

	require.Len(t, feed.Channel.Items, 4)
	byTitle := make(map[string]int)
	for i, item := range feed.Channel.Items {
		byTitle[item.Title] = i
	}

	first := feed.Channel.Items[byTitle["My First Post"]]
	assert.Equal(t, "http://localhost:8080/content/my-first-post.md", first.Link)
	assert.Equal(t, first.Link, first.Guid)
	assert.Equal(t, "First one", first.Description)
	assert.Empty(t, first.Category)
	assert.Contains(t, first.PubDate, "05 Mar 2024")

	deep := feed.Channel.Items[byTitle["Deep Dive"]]
	assert.Equal(t, "posts > 2024", deep.Category)
	assert.Equal(t, "A new content piece is available.", deep.Description)
	assert.Contains(t, deep.PubDate, "02 Jan 2024")

	plain := feed.Channel.Items[byTitle["No date"]]
	assert.Equal(t, "http://localhost:8080/content/posts/no%20date.txt", plain.Link)
	assert.Equal(t, "posts", plain.Category)
	assert.Contains(t, plain.PubDate, "01 Jun 2025", "undated items use the current time")

	bad := feed.Channel.Items[byTitle["Bad Date"]]
	assert.Contains(t, bad.PubDate, "01 Jun 2025")
}

func TestFeedBuilder_WalksHiddenEntries(t *testing.T) {
	fs := afero.NewMemMapFs()
	writeFiles(t, fs, map[string]string{
		".drafts/secret-plan.md": "x",
	})

	doc, err := newTestFeed(fs, "").Generate()
	require.NoError(t, err)
	feed := parseFeed(t, doc)
	require.Len(t, feed.Channel.Items, 1)
	assert.Equal(t, ".drafts", feed.Channel.Items[0].Category)
	assert.Nil(t, feed.Channel.Image)
}

func TestFeedBuilder_MissingRoot(t *testing.T) {
	m := &recordingMetrics{}
	b := NewFeedBuilder(afero.NewMemMapFs(), testRoot, FeedOptions{
		Title:   "Blog",
		BaseURL: "http://localhost:8080",
		Metrics: m,
	})

	doc, err := b.Generate()
	require.NoError(t, err)
	feed := parseFeed(t, doc)

	assert.Equal(t, "Blog", feed.Channel.Title)
	assert.Equal(t, "RSS feed for Blog's content (no content available)", feed.Channel.Description)
	assert.Empty(t, feed.Channel.Items)
	assert.Equal(t, []int{0}, m.feeds)
}

func TestFeedCategory(t *testing.T) {
	assert.Equal(t, "", feedCategory("a.md"))
	assert.Equal(t, "posts", feedCategory("posts/a.md"))
	assert.Equal(t, "posts > 2024 > jan", feedCategory("posts/2024/jan/a.md"))
}

func TestFeedBuilder_SkipsUnreadableFile(t *testing.T) {
	mem := afero.NewMemMapFs()
	writeFiles(t, mem, map[string]string{
		"alpha.md":        "a",
		"locked.md":       "secret",
		"notes/omega.txt": "o",
	})
	fs := &failingFs{Fs: mem, path: testRoot + "/locked.md"}

	doc, err := newTestFeed(fs, "").Generate()
	require.NoError(t, err)
	feed := parseFeed(t, doc)

	var links []string
	for _, item := range feed.Channel.Items {
		links = append(links, item.Link)
	}
	assert.Equal(t, []string{
		"http://localhost:8080/content/alpha.md",
		"http://localhost:8080/content/notes/omega.txt",
	}, links)
}
