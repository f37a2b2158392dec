// Package cmd wires the molesk command line.
package cmd

import (
	"context"
	"fmt"
	"net"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/razvandimescu/molesk/internal/cache"
	"github.com/razvandimescu/molesk/internal/config"
	"github.com/razvandimescu/molesk/internal/logger"
	"github.com/razvandimescu/molesk/internal/markdown"
	"github.com/razvandimescu/molesk/internal/metrics"
	"github.com/razvandimescu/molesk/internal/server"
)

var (
	cfgFile   string
	appConfig *config.Config
)

var rootCmd = &cobra.Command{
	Use:   "molesk [file.md|directory]",
	Short: "Serve a folder of markdown as a small website",
	Long: `molesk serves a directory of markdown and text files as a browsable site
with a folder tree, an RSS feed and live reload. Pointing it at a single
file serves just that file and opens it in the browser.`,
	Args:          cobra.MaximumNArgs(1),
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if cmd.Name() == versionCmd.Name() {
			return nil
		}
		return initializeConfig(cmd, args)
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		defer logger.Close()
		return run(cmd.Context(), appConfig)
	},
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func init() {
	flags := rootCmd.Flags()
	flags.StringP("address", "a", "0.0.0.0", "Address to listen on")
	flags.IntP("port", "p", 8080, "Port to serve on")
	flags.StringP("title", "t", "", "Site title (default: the content folder name)")
	flags.StringP("image", "i", "", "Profile image shown in the sidebar and used for the favicon")
	flags.StringArrayP("link", "l", nil, "Sidebar link as icon:url, repeatable")
	flags.Bool("no-source", false, "Hide the source code link")
	flags.Bool("no-rss", false, "Hide the RSS link")
	flags.Bool("no-download", false, "Hide the download button")
	flags.Bool("no-live", false, "Disable live reload")
	flags.BoolP("open", "o", false, "Open the site in a browser once it is up")
	flags.String("log-level", "INFO", "Log level (DEBUG, INFO, WARN, ERROR)")
	flags.String("log-output", "stdout", "Log destination: stdout, stderr or a file path")
	flags.Bool("metrics", false, "Expose Prometheus metrics on /metrics")

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $XDG_CONFIG_HOME/molesk/molesk.yaml or ./molesk.yaml)")
}

func initializeConfig(cmd *cobra.Command, args []string) error {
	var target string
	if len(args) > 0 {
		target = args[0]
	}

	cfg, err := config.Load(config.LoadOptions{
		ConfigPath: cfgFile,
		Target:     target,
		Flags:      cmd.Flags(),
	})
	if err != nil {
		return err
	}

	logger.SetLevel(cfg.Logging.Level)
	if err := logger.SetOutput(cfg.Logging.Output); err != nil {
		return fmt.Errorf("failed to set log output: %w", err)
	}
	if cfg.Metrics.Enabled {
		metrics.InitRegistry()
	}

	appConfig = cfg
	return nil
}

func run(ctx context.Context, cfg *config.Config) error {
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	store := cache.NewStore(metrics.NewCacheMetrics())
	srv, err := server.New(cfg, server.Options{
		Renderer:       markdown.NewRenderer(),
		Store:          store,
		Metrics:        metrics.NewHTTPMetrics(),
		ContentMetrics: metrics.NewContentMetrics(),
		MetricsHandler: metrics.Handler(),
	})
	if err != nil {
		return err
	}

	invalidator := cache.NewInvalidator(store)
	invalidator.OnInvalidate(srv.NotifyContentChanged)

	watcher := cache.NewWatcher(16)
	defer watcher.Close()
	if err := watcher.Watch(ctx, cfg.Site.Root); err != nil {
		logger.Warn("Warning: File watching disabled: %v", err)
	} else {
		go invalidator.Run(ctx, watcher.Events())
	}

	logger.Debug("Serving %s", cfg.Site.Root)
	return srv.Run(ctx, func(addr net.Addr) {
		fmt.Printf("Running on %s\n", cfg.BrowserURL())
		if cfg.Metrics.Enabled {
			fmt.Printf("Metrics on %s/metrics\n", cfg.BrowserURL())
		}
		if cfg.Server.Open {
			openURL(startURL(cfg))
		}
	})
}

// startURL is the page opened with --open.
func startURL(cfg *config.Config) string {
	if cfg.Site.SingleFile == "" {
		return cfg.BrowserURL()
	}
	return cfg.BrowserURL() + "/content/" + markdown.EncodeComponent(cfg.Site.SingleFile)
}
