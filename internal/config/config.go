// Package config loads molesk settings from flags, MOLESK_* environment
// variables and an optional YAML file.
//
// Configuration sources (in order of precedence):
//  1. CLI flags
//  2. Environment variables (MOLESK_*)
//  3. Configuration file
//  4. Default values
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-viper/mapstructure/v2"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/razvandimescu/molesk/internal/content"
)

// SourceLink is shown in the footer unless features.no_source is set.
const SourceLink = "https://github.com/tupakkatapa/molesk"

type Config struct {
	Logging  LoggingConfig  `mapstructure:"logging"`
	Server   ServerConfig   `mapstructure:"server"`
	Site     SiteConfig     `mapstructure:"site"`
	Features FeaturesConfig `mapstructure:"features"`
	Metrics  MetricsConfig  `mapstructure:"metrics"`
}

// LoggingConfig controls log output behavior.
type LoggingConfig struct {
	// Level is one of DEBUG, INFO, WARN, ERROR (normalized to uppercase)
	Level string `mapstructure:"level" validate:"required,oneof=DEBUG INFO WARN ERROR"`

	// Output is stdout, stderr, or a file path
	Output string `mapstructure:"output" validate:"required"`
}

type ServerConfig struct {
	Address         string        `mapstructure:"address" validate:"required"`
	Port            int           `mapstructure:"port" validate:"gte=1,lte=65535"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout" validate:"gt=0"`

	// Open launches the default browser once the listener is up
	Open bool `mapstructure:"open"`
}

// SiteConfig describes the served content and the page chrome around it.
type SiteConfig struct {
	// Root is the content directory. In single-file mode it is the file's directory.
	Root string `mapstructure:"root" validate:"required"`

	// SingleFile is the file name (relative to Root) in single-file mode
	SingleFile string `mapstructure:"single_file"`

	Title string       `mapstructure:"title" validate:"required"`
	Image string       `mapstructure:"image"`
	Links []SocialLink `mapstructure:"links" validate:"dive"`

	// Ignore lists base names (extension stripped, case-insensitive) hidden from the tree
	Ignore []string `mapstructure:"ignore"`

	Extensions ExtensionsConfig `mapstructure:"extensions"`
}

// ExtensionsConfig selects the files served as images and as documents.
// Entries are lower-cased and given a leading dot; an empty list keeps the
// built-in set.
type ExtensionsConfig struct {
	Images   []string `mapstructure:"images" validate:"dive,required"`
	Markdown []string `mapstructure:"markdown" validate:"dive,required"`
}

// ContentExtensions is the extension set the content package works with.
func (s *SiteConfig) ContentExtensions() content.Extensions {
	exts := content.Extensions{Images: s.Extensions.Images, Markdown: s.Extensions.Markdown}
	if len(exts.Images) == 0 {
		exts.Images = content.DefaultExtensions.Images
	}
	if len(exts.Markdown) == 0 {
		exts.Markdown = content.DefaultExtensions.Markdown
	}
	return exts
}

type FeaturesConfig struct {
	NoSource   bool `mapstructure:"no_source"`
	NoRSS      bool `mapstructure:"no_rss"`
	NoDownload bool `mapstructure:"no_download"`
	NoLive     bool `mapstructure:"no_live"`
}

type MetricsConfig struct {
	Enabled bool `mapstructure:"enabled"`
}

// BaseURL is the absolute origin used for feed links.
func (c *Config) BaseURL() string {
	return fmt.Sprintf("http://%s:%d", c.Server.Address, c.Server.Port)
}

// ListenAddr is the address handed to net/http.
func (c *Config) ListenAddr() string {
	return fmt.Sprintf("%s:%d", c.Server.Address, c.Server.Port)
}

// BrowserURL is the URL printed on startup and opened with --open.
func (c *Config) BrowserURL() string {
	host := c.Server.Address
	if host == "0.0.0.0" || host == "" {
		host = "localhost"
	}
	return fmt.Sprintf("http://%s:%d", host, c.Server.Port)
}

// flagKeys maps CLI flag names onto configuration keys.
var flagKeys = map[string]string{
	"address":     "server.address",
	"port":        "server.port",
	"open":        "server.open",
	"title":       "site.title",
	"image":       "site.image",
	"link":        "site.links",
	"no-source":   "features.no_source",
	"no-rss":      "features.no_rss",
	"no-download": "features.no_download",
	"no-live":     "features.no_live",
	"log-level":   "logging.level",
	"log-output":  "logging.output",
	"metrics":     "metrics.enabled",
}

// LoadOptions carries the inputs that do not come from viper itself.
type LoadOptions struct {
	// ConfigPath is an explicit config file. Empty searches the default locations.
	ConfigPath string

	// Target is the positional [file.md|directory] argument.
	Target string

	// Flags are bound on top of the environment and the config file.
	Flags *pflag.FlagSet
}

// Load loads, defaults and validates the configuration.
func Load(opts LoadOptions) (*Config, error) {
	v := viper.New()
	setupViper(v, opts.ConfigPath)

	if err := readConfigFile(v, opts.ConfigPath); err != nil {
		return nil, err
	}

	if opts.Flags != nil {
		if err := bindFlags(v, opts.Flags); err != nil {
			return nil, err
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg, viper.DecodeHook(decodeHook())); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := ApplyTarget(&cfg, opts.Target); err != nil {
		return nil, err
	}

	ApplyDefaults(&cfg)

	if err := Validate(&cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return &cfg, nil
}

func decodeHook() mapstructure.DecodeHookFunc {
	return mapstructure.ComposeDecodeHookFunc(
		mapstructure.StringToTimeDurationHookFunc(),
		mapstructure.StringToSliceHookFunc(","),
		StringToSocialLinkHookFunc(),
	)
}

// setupViper configures environment variables and the config file search.
//
// Environment variables use the MOLESK_ prefix, e.g. MOLESK_SERVER_PORT=9000.
func setupViper(v *viper.Viper, configPath string) {
	v.SetEnvPrefix("MOLESK")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// AutomaticEnv only sees keys viper already knows about
	for _, key := range []string{
		"logging.level", "logging.output",
		"server.address", "server.port", "server.shutdown_timeout", "server.open",
		"site.root", "site.title", "site.image", "site.links", "site.ignore",
		"site.extensions.images", "site.extensions.markdown",
		"features.no_source", "features.no_rss", "features.no_download", "features.no_live",
		"metrics.enabled",
	} {
		_ = v.BindEnv(key)
	}

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.AddConfigPath(getConfigDir())
		v.AddConfigPath(".")
		v.SetConfigName("molesk")
		v.SetConfigType("yaml")
	}
}

// readConfigFile reads the configuration file if it exists.
func readConfigFile(v *viper.Viper, configPath string) error {
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok && configPath == "" {
			return nil
		}
		return fmt.Errorf("failed to read config file: %w", err)
	}
	return nil
}

func bindFlags(v *viper.Viper, flags *pflag.FlagSet) error {
	for name, key := range flagKeys {
		f := flags.Lookup(name)
		if f == nil {
			continue
		}
		// Unchanged flags must not shadow env or file values
		if !f.Changed {
			continue
		}
		if err := v.BindPFlag(key, f); err != nil {
			return fmt.Errorf("bind flag %s: %w", name, err)
		}
	}
	return nil
}

// ApplyTarget interprets the positional argument. A markdown/text file
// switches to single-file mode (and turns on --open); a directory becomes
// the content root.
func ApplyTarget(cfg *Config, target string) error {
	if target == "" {
		return nil
	}

	abs, err := filepath.Abs(target)
	if err != nil {
		return fmt.Errorf("invalid path %s: %w", target, err)
	}

	info, err := os.Stat(abs)
	if err != nil {
		return fmt.Errorf("path does not exist: %s", abs)
	}

	cfg.Site.Extensions.Images = normalizeExtensions(cfg.Site.Extensions.Images)
	cfg.Site.Extensions.Markdown = normalizeExtensions(cfg.Site.Extensions.Markdown)

	switch {
	case info.IsDir():
		cfg.Site.Root = abs
		cfg.Site.SingleFile = ""
	case cfg.Site.ContentExtensions().IsMarkdown(abs):
		cfg.Site.Root = filepath.Dir(abs)
		cfg.Site.SingleFile = filepath.Base(abs)
		cfg.Server.Open = true
	default:
		return fmt.Errorf("unsupported target %s: expected a directory or one of %s",
			abs, strings.Join(cfg.Site.ContentExtensions().Markdown, ", "))
	}
	return nil
}

// getConfigDir returns $XDG_CONFIG_HOME/molesk, ~/.config/molesk, or ".".
func getConfigDir() string {
	if xdgConfig := os.Getenv("XDG_CONFIG_HOME"); xdgConfig != "" {
		return filepath.Join(xdgConfig, "molesk")
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}

	return filepath.Join(home, ".config", "molesk")
}
