// Package gcachestore wraps a [gstore.ResultStore] with an in-memory LRU cache.
package gcachestore

import (
	"context"
	"fmt"
	"slices"

	"github.com/gordian-engine/gorvote/gstore"
	"github.com/gordian-engine/gorvote/gsum"
	lru "github.com/hashicorp/golang-lru/v2"
)

// ResultStore caches loaded and saved results in front of another store.
//
// Archived results never change, so cached entries are never invalidated.
// Misses are not cached:
// a round may be archived after a lookup reported it missing.
type ResultStore struct {
	inner gstore.ResultStore
	cache *lru.Cache[gsum.RoundID, gstore.RoundResult]
}

var _ gstore.ResultStore = (*ResultStore)(nil)

// NewResultStore returns a store caching up to size results from inner.
func NewResultStore(inner gstore.ResultStore, size int) (*ResultStore, error) {
	c, err := lru.New[gsum.RoundID, gstore.RoundResult](size)
	if err != nil {
		return nil, fmt.Errorf("failed to create result cache: %w", err)
	}
	return &ResultStore{inner: inner, cache: c}, nil
}

func (s *ResultStore) SaveResult(ctx context.Context, r gstore.RoundResult) error {
	if err := s.inner.SaveResult(ctx, r); err != nil {
		return err
	}
	r.Peers = slices.Clone(r.Peers)
	s.cache.Add(r.RoundID, r)
	return nil
}

func (s *ResultStore) LoadResult(ctx context.Context, id gsum.RoundID) (gstore.RoundResult, error) {
	if r, ok := s.cache.Get(id); ok {
		r.Peers = slices.Clone(r.Peers)
		return r, nil
	}

	r, err := s.inner.LoadResult(ctx, id)
	if err != nil {
		return gstore.RoundResult{}, err
	}
	s.cache.Add(id, r)

	r.Peers = slices.Clone(r.Peers)
	return r, nil
}

// ListResults always reads through to the inner store.
func (s *ResultStore) ListResults(ctx context.Context) ([]gstore.RoundResult, error) {
	return s.inner.ListResults(ctx)
}
