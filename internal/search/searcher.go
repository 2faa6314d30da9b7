package search

import (
	"context"
	"sync"

	"github.com/google/uuid"
)

// Searcher keeps at most one global search running. Starting a new search
// cancels the one it supersedes.
type Searcher struct {
	orchestrator *Orchestrator

	mu     sync.Mutex
	id     string
	cancel context.CancelFunc
}

// NewSearcher creates a Searcher over o.
func NewSearcher(o *Orchestrator) *Searcher {
	return &Searcher{orchestrator: o}
}

// Start cancels the running search, if any, and starts q. It returns the new
// session id and its snapshots.
func (s *Searcher) Start(ctx context.Context, q Query) (string, <-chan Snapshot) {
	ctx, cancel := context.WithCancel(ctx)
	id := uuid.NewString()

	s.mu.Lock()
	if s.cancel != nil {
		s.cancel()
	}
	s.id, s.cancel = id, cancel
	s.mu.Unlock()

	return id, s.orchestrator.search(ctx, id, q)
}

// Current returns the id of the latest search, or "" when none was started.
func (s *Searcher) Current() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.id
}

// Stop cancels the running search.
func (s *Searcher) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancel != nil {
		s.cancel()
		s.cancel = nil
	}
}

// Collect drains snapshots and returns the last one.
func Collect(snapshots <-chan Snapshot) Snapshot {
	var last Snapshot
	for s := range snapshots {
		last = s
	}
	return last
}
