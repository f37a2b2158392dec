// Package server exposes the content root over HTTP.
package server

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"html/template"
	"io/fs"
	"net"
	"net/http"
	"path/filepath"
	"time"

	"github.com/spf13/afero"

	"github.com/razvandimescu/molesk/internal/cache"
	"github.com/razvandimescu/molesk/internal/config"
	"github.com/razvandimescu/molesk/internal/content"
	"github.com/razvandimescu/molesk/internal/logger"
	"github.com/razvandimescu/molesk/internal/markdown"
)

//go:embed theme/templates/*.html theme/static/*
var themeFS embed.FS

// Options carries the collaborators a Server is built from. Zero values
// get working defaults.
type Options struct {
	Fs       afero.Fs
	Renderer *markdown.Renderer
	Store    *cache.Store

	Metrics        Metrics
	ContentMetrics content.Metrics

	// MetricsHandler is mounted at /metrics when non-nil
	MetricsHandler http.Handler
}

type Server struct {
	cfg      *config.Config
	fs       afero.Fs
	renderer *markdown.Renderer
	store    *cache.Store

	tree     *content.TreeBuilder
	feed     *content.FeedBuilder
	resolver *content.Resolver
	exts     content.Extensions

	page         *template.Template
	static       fs.FS
	highlightCSS string
	image        *imageCache

	live           *liveHub
	metrics        Metrics
	metricsHandler http.Handler
}

func New(cfg *config.Config, opts Options) (*Server, error) {
	if opts.Fs == nil {
		opts.Fs = afero.NewOsFs()
	}
	if opts.Renderer == nil {
		opts.Renderer = markdown.NewRenderer()
	}
	if opts.Store == nil {
		opts.Store = cache.NewStore(nil)
	}
	if opts.Metrics == nil {
		opts.Metrics = noopMetrics{}
	}

	page, err := template.ParseFS(themeFS, "theme/templates/index.html")
	if err != nil {
		return nil, fmt.Errorf("parse page template: %w", err)
	}
	static, err := fs.Sub(themeFS, "theme/static")
	if err != nil {
		return nil, fmt.Errorf("static assets: %w", err)
	}
	highlightCSS, err := opts.Renderer.HighlightCSS()
	if err != nil {
		logger.Warn("Warning: %v", err)
	}

	root := cfg.Site.Root
	exts := cfg.Site.ContentExtensions()

	ignore := content.NewIgnoreList(cfg.Site.Ignore...)
	for _, name := range content.ReadIgnoreFile(opts.Fs, root) {
		ignore.Add(name)
	}
	if ignore.Len() > 0 {
		logger.Debug("Hiding %d ignore-list entries from the folder tree", ignore.Len())
	}

	var imageURL string
	if cfg.Site.Image != "" {
		imageURL = cfg.BaseURL() + "/profile-pic"
	}

	s := &Server{
		cfg:      cfg,
		fs:       opts.Fs,
		renderer: opts.Renderer,
		store:    opts.Store,
		tree: content.NewTreeBuilder(opts.Fs, root, content.TreeBuilderOptions{
			Extensions: exts,
			Ignore:     ignore,
			Cache:      opts.Store,
			Metrics:    opts.ContentMetrics,
		}),
		feed: content.NewFeedBuilder(opts.Fs, root, content.FeedOptions{
			Title:      cfg.Site.Title,
			BaseURL:    cfg.BaseURL(),
			ImageURL:   imageURL,
			Extensions: exts,
			Metrics:    opts.ContentMetrics,
		}),
		resolver: content.NewResolver(opts.Fs, root, opts.Renderer, content.ResolverOptions{
			Extensions: exts,
			SiteTitle:  cfg.Site.Title,
		}),
		exts:           exts,
		page:           page,
		static:         static,
		highlightCSS:   highlightCSS,
		image:          newImageCache(opts.Fs, cfg.Site.Image),
		live:           newLiveHub(opts.Metrics),
		metrics:        opts.Metrics,
		metricsHandler: opts.MetricsHandler,
	}
	return s, nil
}

// Handler returns the routed handler with recovery, logging and security
// headers applied.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /{$}", s.handleRoot)
	mux.HandleFunc("GET /content/{path...}", s.handleContent)
	mux.HandleFunc("GET /download/{path...}", s.handleDownload)
	mux.HandleFunc("GET /rss.xml", s.handleRSS)
	mux.HandleFunc("GET /profile-pic", s.handleProfilePic)
	mux.HandleFunc("GET /favicon.svg", s.handleFaviconSVG)
	mux.HandleFunc("GET /favicon.ico", s.handleFaviconICO)
	mux.HandleFunc("GET /tree", s.handleTree)
	mux.HandleFunc("GET /static/highlight.css", s.handleHighlightCSS)
	mux.Handle("GET /static/", http.StripPrefix("/static/", withStaticCaching(http.FileServerFS(s.static))))
	if !s.cfg.Features.NoLive {
		mux.HandleFunc("GET /events", s.live.serveSSE)
	}
	if s.metricsHandler != nil {
		mux.Handle("GET /metrics", s.metricsHandler)
	}
	mux.HandleFunc("/", s.handleNotFound)

	return withRecovery(withRequestLog(s.metrics, withSecurityHeaders(mux)))
}

// NotifyContentChanged tells live-reload clients to refresh.
func (s *Server) NotifyContentChanged() {
	if s.cfg.Features.NoLive {
		return
	}
	s.live.contentChanged()
}

// HTTPServer returns an http.Server for s. WriteTimeout is left unset since
// live-reload streams are long-lived.
func (s *Server) HTTPServer() *http.Server {
	srv := &http.Server{
		Addr:        s.cfg.ListenAddr(),
		Handler:     s.Handler(),
		ReadTimeout: 15 * time.Second,
		IdleTimeout: 60 * time.Second,
	}
	srv.RegisterOnShutdown(s.live.close)
	return srv
}

// Run serves until ctx is cancelled, then shuts down gracefully. onListen is
// called once the listener is bound.
func (s *Server) Run(ctx context.Context, onListen func(addr net.Addr)) error {
	srv := s.HTTPServer()

	ln, err := net.Listen("tcp", srv.Addr)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", srv.Addr, err)
	}
	if onListen != nil {
		onListen(ln.Addr())
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Serve(ln)
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	logger.Info("Shutting down gracefully...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}
	return nil
}

func withStaticCaching(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Cache-Control", "public, max-age=3600")
		next.ServeHTTP(w, r)
	})
}

// singleFilePath is the slash-separated path of the served file in
// single-file mode.
func (s *Server) singleFilePath() string {
	return filepath.ToSlash(s.cfg.Site.SingleFile)
}
