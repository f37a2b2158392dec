package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/razvandimescu/molesk/internal/content"
)

func writeFile(t *testing.T, path, data string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, []byte(data), 0644))
}

func newFlagSet(t *testing.T, args ...string) *pflag.FlagSet {
	t.Helper()
	fs := pflag.NewFlagSet("molesk", pflag.ContinueOnError)
	fs.StringP("address", "a", "0.0.0.0", "")
	fs.IntP("port", "p", 8080, "")
	fs.StringP("title", "t", "", "")
	fs.StringP("image", "i", "", "")
	fs.StringArrayP("link", "l", nil, "")
	fs.Bool("no-source", false, "")
	fs.Bool("no-rss", false, "")
	fs.Bool("no-download", false, "")
	fs.BoolP("open", "o", false, "")
	fs.String("log-level", "INFO", "")
	fs.Bool("metrics", false, "")
	require.NoError(t, fs.Parse(args))
	return fs
}

func TestLoad_Defaults(t *testing.T) {
	root := filepath.Join(t.TempDir(), "notes")
	require.NoError(t, os.MkdirAll(root, 0755))
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())

	cfg, err := Load(LoadOptions{Target: root})
	require.NoError(t, err)

	assert.Equal(t, "0.0.0.0", cfg.Server.Address)
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, 5*time.Second, cfg.Server.ShutdownTimeout)
	assert.Equal(t, "INFO", cfg.Logging.Level)
	assert.Equal(t, "stdout", cfg.Logging.Output)
	assert.Equal(t, root, cfg.Site.Root)
	assert.Equal(t, "Notes", cfg.Site.Title)
	assert.Empty(t, cfg.Site.SingleFile)
	assert.False(t, cfg.Server.Open)
	assert.Equal(t, "http://0.0.0.0:8080", cfg.BaseURL())
	assert.Equal(t, "http://localhost:8080", cfg.BrowserURL())
}

func TestLoad_SingleFileMode(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "my_release-notes.md")
	writeFile(t, file, "# hi")
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())

	cfg, err := Load(LoadOptions{Target: file})
	require.NoError(t, err)

	assert.Equal(t, dir, cfg.Site.Root)
	assert.Equal(t, "my_release-notes.md", cfg.Site.SingleFile)
	assert.Equal(t, "My release notes", cfg.Site.Title)
	assert.True(t, cfg.Server.Open, "single-file mode opens the browser")
}

func TestLoad_MissingTarget(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	_, err := Load(LoadOptions{Target: filepath.Join(t.TempDir(), "nope")})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "path does not exist")
}

func TestLoad_FlagsOverrideEnvAndFile(t *testing.T) {
	root := t.TempDir()
	cfgPath := filepath.Join(t.TempDir(), "molesk.yaml")
	writeFile(t, cfgPath, `
server:
  port: 7000
  address: 127.0.0.1
site:
  title: From File
  links:
    - icon: github
      href: github.com/someone
features:
  no_rss: true
`)
	t.Setenv("MOLESK_SERVER_PORT", "7500")

	flags := newFlagSet(t, "--title", "From Flag", "-l", "envelope:mailbox.example.org", "--no-download")

	cfg, err := Load(LoadOptions{ConfigPath: cfgPath, Target: root, Flags: flags})
	require.NoError(t, err)

	assert.Equal(t, 7500, cfg.Server.Port, "env beats file")
	assert.Equal(t, "127.0.0.1", cfg.Server.Address, "file beats default")
	assert.Equal(t, "From Flag", cfg.Site.Title, "flag beats file")
	assert.True(t, cfg.Features.NoRSS)
	assert.True(t, cfg.Features.NoDownload)
	require.Len(t, cfg.Site.Links, 1)
	assert.Equal(t, SocialLink{Icon: "envelope", Href: "https://mailbox.example.org"}, cfg.Site.Links[0])
}

func TestLoad_LinksFromFileNormalized(t *testing.T) {
	root := t.TempDir()
	cfgPath := filepath.Join(t.TempDir(), "molesk.yaml")
	writeFile(t, cfgPath, `
site:
  links:
    - icon: fa-github
      href: github.com/someone
    - "globe:http://example.org"
`)

	cfg, err := Load(LoadOptions{ConfigPath: cfgPath, Target: root})
	require.NoError(t, err)
	require.Len(t, cfg.Site.Links, 2)
	assert.Equal(t, SocialLink{Icon: "github", Href: "https://github.com/someone"}, cfg.Site.Links[0])
	assert.Equal(t, SocialLink{Icon: "globe", Href: "http://example.org"}, cfg.Site.Links[1])
}

func TestLoad_CustomExtensions(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "Guide.MARKDOWN")
	writeFile(t, file, "# guide")
	cfgPath := filepath.Join(t.TempDir(), "molesk.yaml")
	writeFile(t, cfgPath, `
site:
  extensions:
    markdown: [markdown, ".MD"]
    images: [webp]
`)

	cfg, err := Load(LoadOptions{ConfigPath: cfgPath, Target: file})
	require.NoError(t, err)

	assert.Equal(t, "Guide.MARKDOWN", cfg.Site.SingleFile)
	exts := cfg.Site.ContentExtensions()
	assert.Equal(t, []string{".markdown", ".md"}, exts.Markdown)
	assert.Equal(t, []string{".webp"}, exts.Images)
	assert.False(t, exts.IsMarkdown("notes.txt"))
}

func TestLoad_UnsupportedTarget(t *testing.T) {
	file := filepath.Join(t.TempDir(), "paper.pdf")
	writeFile(t, file, "%PDF")
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())

	_, err := Load(LoadOptions{Target: file})
	require.Error(t, err)
	assert.Contains(t, err.Error(), ".md, .txt")
}

func TestSiteConfig_ContentExtensions(t *testing.T) {
	tests := []struct {
		name         string
		cfg          ExtensionsConfig
		wantImages   []string
		wantMarkdown []string
	}{
		{
			name:         "empty keeps built-in set",
			wantImages:   content.DefaultExtensions.Images,
			wantMarkdown: content.DefaultExtensions.Markdown,
		},
		{
			name:         "markdown only",
			cfg:          ExtensionsConfig{Markdown: []string{".markdown"}},
			wantImages:   content.DefaultExtensions.Images,
			wantMarkdown: []string{".markdown"},
		},
		{
			name:         "images only",
			cfg:          ExtensionsConfig{Images: []string{".gif"}},
			wantImages:   []string{".gif"},
			wantMarkdown: content.DefaultExtensions.Markdown,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			site := SiteConfig{Extensions: tt.cfg}
			got := site.ContentExtensions()
			assert.Equal(t, tt.wantImages, got.Images)
			assert.Equal(t, tt.wantMarkdown, got.Markdown)
		})
	}
}

func TestLoad_ExplicitConfigMissing(t *testing.T) {
	_, err := Load(LoadOptions{ConfigPath: filepath.Join(t.TempDir(), "absent.yaml"), Target: t.TempDir()})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to read config file")
}

func TestParseSocialLink(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		want    SocialLink
		wantErr bool
	}{
		{name: "bare host", raw: "github:github.com/x", want: SocialLink{Icon: "github", Href: "https://github.com/x"}},
		{name: "keeps https", raw: "x:https://x.com/a", want: SocialLink{Icon: "x", Href: "https://x.com/a"}},
		{name: "keeps http", raw: "x:http://x.com", want: SocialLink{Icon: "x", Href: "http://x.com"}},
		{name: "fa prefix", raw: "fa-github:github.com/x", want: SocialLink{Icon: "github", Href: "https://github.com/x"}},
		{name: "full class", raw: "fab fa-github:github.com/x", want: SocialLink{Icon: "github", Href: "https://github.com/x"}},
		{name: "brands class", raw: "fa-brands fa-x:x.com/a", want: SocialLink{Icon: "x", Href: "https://x.com/a"}},
		{name: "prefix only", raw: "fa-:github.com", wantErr: true},
		{name: "no colon", raw: "github", wantErr: true},
		{name: "empty icon", raw: ":github.com", wantErr: true},
		{name: "empty url", raw: "github:", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseSocialLink(tt.raw)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		cfg := &Config{}
		cfg.Site.Root = t.TempDir()
		ApplyDefaults(cfg)
		return cfg
	}

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{name: "defaults are valid", mutate: func(*Config) {}},
		{name: "bad port", mutate: func(c *Config) { c.Server.Port = 70000 }, wantErr: "Port"},
		{name: "bad level", mutate: func(c *Config) { c.Logging.Level = "LOUD" }, wantErr: "Level"},
		{name: "missing image", mutate: func(c *Config) { c.Site.Image = "/does/not/exist.png" }, wantErr: "site.image"},
		{name: "link without icon", mutate: func(c *Config) { c.Site.Links = []SocialLink{{Href: "https://x"}} }, wantErr: "Icon"},
		{name: "single file not markdown", mutate: func(c *Config) { c.Site.SingleFile = "photo.jpg" }, wantErr: "site.single_file"},
		{
			name: "overlapping extensions",
			mutate: func(c *Config) {
				c.Site.Extensions = ExtensionsConfig{Images: []string{".png", ".md"}, Markdown: []string{".md"}}
			},
			wantErr: "listed as both",
		},
		{
			name:   "custom single file extension",
			mutate: func(c *Config) { c.Site.Extensions.Markdown = []string{".markdown"}; c.Site.SingleFile = "a.markdown" },
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(cfg)
			err := Validate(cfg)
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}
