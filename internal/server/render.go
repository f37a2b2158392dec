package server

import (
	"bytes"
	"errors"
	"html/template"
	"net/http"
	"strconv"

	"github.com/razvandimescu/molesk/internal/config"
	"github.com/razvandimescu/molesk/internal/content"
	"github.com/razvandimescu/molesk/internal/logger"
	"github.com/razvandimescu/molesk/internal/markdown"
)

// pageData feeds theme/templates/index.html.
type pageData struct {
	FolderStructure template.HTML
	InitialContent  template.HTML
	Title           string
	Image           bool
	SocialLinks     []config.SocialLink
	SourceLink      string
	ShowRSS         bool
	ShowDownload    bool
	RelativePath    string
	DownloadURL     string
	PageTitle       string
	SingleFile      bool
	LiveReload      bool
}

func (s *Server) newPageData(pageTitle string, initial, tree string) pageData {
	data := pageData{
		FolderStructure: template.HTML(tree),
		InitialContent:  template.HTML(initial),
		Title:           s.cfg.Site.Title,
		Image:           s.cfg.Site.Image != "",
		SocialLinks:     s.cfg.Site.Links,
		ShowRSS:         !s.cfg.Features.NoRSS,
		ShowDownload:    !s.cfg.Features.NoDownload,
		PageTitle:       pageTitle,
		LiveReload:      !s.cfg.Features.NoLive,
	}
	if !s.cfg.Features.NoSource {
		data.SourceLink = config.SourceLink
	}
	return data
}

// isPartialRequest detects if the request is an AJAX/fetch request for partial content
func isPartialRequest(r *http.Request) bool {
	return r.Header.Get("X-Requested-With") == "XMLHttpRequest"
}

// renderPage executes the page template into a buffer before writing, so a
// template failure still produces a clean 500.
func (s *Server) renderPage(w http.ResponseWriter, status int, data pageData) {
	var buf bytes.Buffer
	if err := s.page.Execute(&buf, data); err != nil {
		logger.Error("Template execution error: %v", err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	if _, err := buf.WriteTo(w); err != nil {
		logger.Debug("Failed to write page: %v", err)
	}
}

func writeFragment(w http.ResponseWriter, status int, html string) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	if _, err := w.Write([]byte(html)); err != nil {
		logger.Debug("Failed to write fragment: %v", err)
	}
}

// folderTree renders the sidebar for a page. Failures degrade to an empty list.
func (s *Server) folderTree(active string) string {
	html, err := s.tree.Generate(s.cfg.Site.Root, content.TreeOptions{Active: active})
	if err != nil {
		logger.Error("Failed to generate folder structure: %v", err)
		return "<ul></ul>"
	}
	return html
}

// classify maps a content error onto a status and the markdown shown for it.
func classify(err error) (int, string) {
	switch {
	case errors.Is(err, content.ErrNotFound):
		return http.StatusNotFound, content.MsgNotFound
	case errors.Is(err, content.ErrUnsupportedType):
		return http.StatusBadRequest, content.MsgUnsupportedFile
	case errors.Is(err, content.ErrMimeUnresolved):
		return http.StatusUnsupportedMediaType, content.MsgGenericError
	default:
		return http.StatusInternalServerError, content.MsgGenericError
	}
}

// handleError answers a failed content request. Traversal attempts get a
// bare 403; everything else gets an error page carrying the folder tree.
func (s *Server) handleError(w http.ResponseWriter, r *http.Request, err error) {
	if errors.Is(err, content.ErrPathTraversal) {
		logger.Warn("Security: %v", err)
		http.Error(w, "Access denied", http.StatusForbidden)
		return
	}

	status, message := classify(err)
	if status >= http.StatusInternalServerError {
		logger.Error("%s %s: %v", r.Method, r.URL.Path, err)
	} else {
		logger.Debug("%s %s: %v", r.Method, r.URL.Path, err)
	}
	s.renderErrorPage(w, r, status, message)
}

func (s *Server) renderErrorPage(w http.ResponseWriter, r *http.Request, status int, message string) {
	body, err := s.renderer.RenderString(message)
	if err != nil {
		body = "<p>" + markdown.EscapeHTML(message) + "</p>"
	}

	if isPartialRequest(r) {
		writeFragment(w, status, body)
		return
	}

	title := strconv.Itoa(status) + " - " + s.cfg.Site.Title
	s.renderPage(w, status, s.newPageData(title, body, s.folderTree("")))
}
