package crawler

import (
	"sort"
	"sync"
)

// crawlState holds the mutable bookkeeping for a single environment's crawl.
// It is created per crawl so environments never share state.
type crawlState struct {
	// scheduled is the combined visited+queued set. A path enters it exactly
	// once, at enqueue time, so no two workers ever visit the same path.
	scheduled sync.Map

	mu         sync.Mutex
	visited    map[string]VisitRecord
	linksFound int
}

func newCrawlState() *crawlState {
	return &crawlState{
		visited: make(map[string]VisitRecord),
	}
}

// MarkIfNew atomically claims a path for crawling. It returns true the first
// time a path is seen and false on every subsequent call.
func (s *crawlState) MarkIfNew(path string) bool {
	if path == "" {
		return false
	}
	_, loaded := s.scheduled.LoadOrStore(path, struct{}{})
	return !loaded
}

// Record stores the visit outcome for a path. Each path records at most once;
// later calls for the same path are ignored.
func (s *crawlState) Record(rec VisitRecord) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.visited[rec.Path]; ok {
		return
	}
	s.visited[rec.Path] = rec
}

// AddLinksFound bumps the total number of anchors discovered on pages.
func (s *crawlState) AddLinksFound(n int) {
	s.mu.Lock()
	s.linksFound += n
	s.mu.Unlock()
}

// Snapshot returns the visit records sorted by path plus the link total.
func (s *crawlState) Snapshot() ([]VisitRecord, int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	records := make([]VisitRecord, 0, len(s.visited))
	for _, rec := range s.visited {
		records = append(records, rec)
	}
	sort.Slice(records, func(i, j int) bool {
		return records[i].Path < records[j].Path
	})
	return records, s.linksFound
}
