// Package gmemstore contains in-memory store implementations.
package gmemstore

import (
	"context"
	"fmt"
	"slices"
	"sync"

	"github.com/gordian-engine/gorvote/gstore"
	"github.com/gordian-engine/gorvote/gsum"
)

// ResultStore is an in-memory [gstore.ResultStore].
type ResultStore struct {
	mu      sync.RWMutex
	results map[gsum.RoundID]gstore.RoundResult
}

var _ gstore.ResultStore = (*ResultStore)(nil)

func NewResultStore() *ResultStore {
	return &ResultStore{
		results: make(map[gsum.RoundID]gstore.RoundResult),
	}
}

func (s *ResultStore) SaveResult(_ context.Context, r gstore.RoundResult) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	r.Peers = slices.Clone(r.Peers)
	s.results[r.RoundID] = r
	return nil
}

func (s *ResultStore) LoadResult(_ context.Context, id gsum.RoundID) (gstore.RoundResult, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	r, ok := s.results[id]
	if !ok {
		return gstore.RoundResult{}, fmt.Errorf("%w: %s", gstore.ErrResultNotFound, id)
	}
	r.Peers = slices.Clone(r.Peers)
	return r, nil
}

func (s *ResultStore) ListResults(context.Context) ([]gstore.RoundResult, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]gstore.RoundResult, 0, len(s.results))
	for _, r := range s.results {
		r.Peers = slices.Clone(r.Peers)
		out = append(out, r)
	}
	gstore.SortResults(out)
	return out, nil
}
