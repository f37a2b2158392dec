package config

import (
	"path/filepath"
	"strings"
	"time"

	"github.com/razvandimescu/molesk/internal/content"
)

// ApplyDefaults fills in zero values. Explicit settings are left alone.
func ApplyDefaults(cfg *Config) {
	applyLoggingDefaults(&cfg.Logging)
	applyServerDefaults(&cfg.Server)
	applySiteDefaults(&cfg.Site)
}

func applyLoggingDefaults(cfg *LoggingConfig) {
	if cfg.Level == "" {
		cfg.Level = "INFO"
	}
	cfg.Level = strings.ToUpper(cfg.Level)
	if cfg.Output == "" {
		cfg.Output = "stdout"
	}
}

func applyServerDefaults(cfg *ServerConfig) {
	if cfg.Address == "" {
		cfg.Address = "0.0.0.0"
	}
	if cfg.Port == 0 {
		cfg.Port = 8080
	}
	if cfg.ShutdownTimeout == 0 {
		cfg.ShutdownTimeout = 5 * time.Second
	}
}

func applySiteDefaults(cfg *SiteConfig) {
	if cfg.Root == "" {
		cfg.Root = "contents"
	}
	if abs, err := filepath.Abs(cfg.Root); err == nil {
		cfg.Root = abs
	}

	if cfg.Title == "" {
		cfg.Title = defaultTitle(cfg)
	}

	for i := range cfg.Links {
		cfg.Links[i].Icon = NormalizeIcon(cfg.Links[i].Icon)
		cfg.Links[i].Href = EnsureProtocol(cfg.Links[i].Href)
	}

	cfg.Extensions.Images = normalizeExtensions(cfg.Extensions.Images)
	cfg.Extensions.Markdown = normalizeExtensions(cfg.Extensions.Markdown)

	for i, name := range cfg.Ignore {
		cfg.Ignore[i] = strings.ToLower(strings.TrimSpace(name))
	}
}

// defaultTitle is the file name (single-file mode) or the directory name.
func defaultTitle(cfg *SiteConfig) string {
	if cfg.SingleFile != "" {
		name := strings.TrimSuffix(cfg.SingleFile, filepath.Ext(cfg.SingleFile))
		return content.Capitalize(content.Humanize(name))
	}
	return content.Capitalize(filepath.Base(cfg.Root))
}

// normalizeExtensions lower-cases each entry and adds the leading dot.
func normalizeExtensions(exts []string) []string {
	out := make([]string, 0, len(exts))
	for _, ext := range exts {
		ext = strings.ToLower(strings.TrimSpace(ext))
		if ext == "" {
			continue
		}
		if !strings.HasPrefix(ext, ".") {
			ext = "." + ext
		}
		out = append(out, ext)
	}
	return out
}
