package permission

import (
	"sync"
	"time"
)

// Store holds the most recently fetched scoped record set and the overlay
// derived from it. Snapshots are replaced wholesale, never patched, so a
// reader always sees one internally consistent state. A failed refresh leaves
// the last-known-good snapshot in place.
type Store struct {
	mu       sync.RWMutex
	requests []Request
	overlay  Overlay
}

func NewStore() *Store {
	return &Store{overlay: make(Overlay)}
}

// Replace swaps in a fresh record set and rebuilds the overlay from scratch.
// It returns the malformed ranges the build skipped so the caller can report
// them.
func (s *Store) Replace(requests []Request) []MalformedRange {
	overlay, malformed := BuildOverlay(requests)
	snapshot := make([]Request, len(requests))
	copy(snapshot, requests)

	s.mu.Lock()
	s.requests = snapshot
	s.overlay = overlay
	s.mu.Unlock()
	return malformed
}

func (s *Store) Requests() []Request {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Request, len(s.requests))
	copy(out, s.requests)
	return out
}

func (s *Store) Overlay() Overlay {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(Overlay, len(s.overlay))
	for key, marks := range s.overlay {
		copied := make([]Mark, len(marks))
		copy(copied, marks)
		out[key] = copied
	}
	return out
}

func (s *Store) Get(id string) (Request, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, req := range s.requests {
		if req.ID == id {
			return req, true
		}
	}
	return Request{}, false
}

// RequestsOn returns the visible requests whose range covers the given day.
func (s *Store) RequestsOn(day time.Time) []Request {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []Request
	for _, req := range s.requests {
		if req.Covers(day) {
			out = append(out, req)
		}
	}
	return out
}
