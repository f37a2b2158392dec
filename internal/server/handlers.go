package server

import (
	"bytes"
	"errors"
	"mime"
	"net/http"

	"github.com/razvandimescu/molesk/internal/content"
	"github.com/razvandimescu/molesk/internal/logger"
	"github.com/razvandimescu/molesk/internal/markdown"
)

func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	if s.cfg.Site.SingleFile != "" {
		http.Redirect(w, r, "/content/"+content.EncodePath(s.singleFilePath()), http.StatusFound)
		return
	}

	name, err := content.FindIndexFile(s.fs, s.cfg.Site.Root, s.exts)
	if err != nil {
		s.handleError(w, r, err)
		return
	}
	http.Redirect(w, r, "/content/"+markdown.EncodeComponent(name), http.StatusFound)
}

func (s *Server) handleContent(w http.ResponseWriter, r *http.Request) {
	res, err := s.resolver.Resolve(r.PathValue("path"))
	if err != nil {
		s.handleError(w, r, err)
		return
	}

	if res.Kind == content.KindImage {
		w.Header().Set("Content-Type", res.MimeType)
		w.Header().Set("Cache-Control", "public, max-age=3600")
		if _, err := w.Write(res.Data); err != nil {
			logger.Debug("Failed to write image %s: %v", res.RelPath, err)
		}
		return
	}

	if isPartialRequest(r) {
		writeFragment(w, http.StatusOK, res.Content)
		return
	}

	tree := ""
	if s.cfg.Site.SingleFile == "" {
		tree = s.folderTree(res.RelPath)
	}
	data := s.newPageData(res.PageTitle, res.Content, tree)
	data.RelativePath = res.RelPath
	data.DownloadURL = "/download/" + content.EncodePath(res.RelPath)
	data.SingleFile = s.cfg.Site.SingleFile != ""
	s.renderPage(w, http.StatusOK, data)
}

func (s *Server) handleDownload(w http.ResponseWriter, r *http.Request) {
	dl, err := s.resolver.ResolveDownload(r.PathValue("path"))
	switch {
	case err == nil:
	case errors.Is(err, content.ErrUnsupportedType):
		http.Error(w, content.MsgUnsupportedFile, http.StatusBadRequest)
		return
	default:
		s.handleError(w, r, err)
		return
	}

	w.Header().Set("Content-Type", content.DocumentMimeType(dl.Name))
	w.Header().Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": dl.Name}))
	http.ServeContent(w, r, dl.Name, dl.ModTime, bytes.NewReader(dl.Data))
}

func (s *Server) handleRSS(w http.ResponseWriter, r *http.Request) {
	xml, ok := s.store.Feed()
	if !ok {
		var err error
		xml, err = s.feed.Generate()
		if err != nil {
			logger.Error("RSS route error: %v", err)
			s.store.ClearFeed()
			http.Error(w, "RSS feed temporarily unavailable", http.StatusServiceUnavailable)
			return
		}
		s.store.StoreFeed(xml)
	}

	w.Header().Set("Content-Type", "application/rss+xml")
	w.Header().Set("Cache-Control", "public, max-age=300")
	if _, err := w.Write([]byte(xml)); err != nil {
		logger.Debug("Failed to write feed: %v", err)
	}
}

func (s *Server) handleProfilePic(w http.ResponseWriter, r *http.Request) {
	if !s.image.configured() {
		http.Error(w, "Image not found", http.StatusNotFound)
		return
	}
	data, mimeType, err := s.image.image()
	if err != nil {
		s.handleError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", mimeType)
	w.Header().Set("Cache-Control", "public, max-age=3600")
	if _, err := w.Write(data); err != nil {
		logger.Debug("Failed to write profile image: %v", err)
	}
}

func (s *Server) handleFaviconSVG(w http.ResponseWriter, r *http.Request) {
	if !s.image.configured() {
		http.Error(w, "Favicon not found", http.StatusNotFound)
		return
	}
	svg, err := s.image.favicon()
	if err != nil {
		s.handleError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "image/svg+xml")
	w.Header().Set("Cache-Control", "public, max-age=3600")
	if _, err := w.Write([]byte(svg)); err != nil {
		logger.Debug("Failed to write favicon: %v", err)
	}
}

func (s *Server) handleFaviconICO(w http.ResponseWriter, r *http.Request) {
	if s.image.configured() {
		http.Redirect(w, r, "/favicon.svg", http.StatusMovedPermanently)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleTree serves the bare folder tree for live-reload refreshes.
func (s *Server) handleTree(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Cache-Control", "no-cache")
	if s.cfg.Site.SingleFile != "" {
		writeFragment(w, http.StatusOK, "")
		return
	}
	html, err := s.tree.Generate(s.cfg.Site.Root, content.TreeOptions{})
	if err != nil {
		s.handleError(w, r, err)
		return
	}
	writeFragment(w, http.StatusOK, html)
}

func (s *Server) handleHighlightCSS(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/css; charset=utf-8")
	w.Header().Set("Cache-Control", "public, max-age=3600")
	if _, err := w.Write([]byte(s.highlightCSS)); err != nil {
		logger.Debug("Failed to write highlight css: %v", err)
	}
}

func (s *Server) handleNotFound(w http.ResponseWriter, r *http.Request) {
	s.renderErrorPage(w, r, http.StatusNotFound, content.MsgNotFound)
}
