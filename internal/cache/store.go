// Package cache holds rendered folder trees and the feed document until the
// content root changes.
package cache

import "sync"

// Store is safe for concurrent use. Two requests missing the same key may
// both rebuild it; the last write wins.
type Store struct {
	mu        sync.RWMutex
	fragments map[string]string
	feed      string
	hasFeed   bool
	metrics   Metrics
}

func NewStore(m Metrics) *Store {
	if m == nil {
		m = noopMetrics{}
	}
	return &Store{
		fragments: make(map[string]string),
		metrics:   m,
	}
}

func (s *Store) Fragment(key string) (string, bool) {
	s.mu.RLock()
	html, ok := s.fragments[key]
	s.mu.RUnlock()
	s.metrics.RecordLookup(KindTree, ok)
	return html, ok
}

func (s *Store) StoreFragment(key, html string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.fragments[key] = html
}

func (s *Store) Feed() (string, bool) {
	s.mu.RLock()
	xml, ok := s.feed, s.hasFeed
	s.mu.RUnlock()
	s.metrics.RecordLookup(KindFeed, ok)
	return xml, ok
}

func (s *Store) StoreFeed(xml string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.feed, s.hasFeed = xml, true
}

// ClearFeed drops only the feed document.
func (s *Store) ClearFeed() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.feed, s.hasFeed = "", false
}

// Invalidate drops every tree fragment and the feed.
func (s *Store) Invalidate() {
	s.mu.Lock()
	s.fragments = make(map[string]string)
	s.feed, s.hasFeed = "", false
	s.mu.Unlock()
	s.metrics.RecordInvalidation()
}

// Len is the number of cached tree fragments.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.fragments)
}
