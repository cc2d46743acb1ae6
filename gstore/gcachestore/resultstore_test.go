package gcachestore_test

import (
	"context"
	"testing"
	"time"

	"github.com/gordian-engine/gorvote/gstore"
	"github.com/gordian-engine/gorvote/gstore/gcachestore"
	"github.com/gordian-engine/gorvote/gstore/gmemstore"
	"github.com/gordian-engine/gorvote/gstore/gstoretest"
	"github.com/gordian-engine/gorvote/gsum"
	"github.com/stretchr/testify/require"
)

func TestResultStoreCompliance(t *testing.T) {
	t.Parallel()

	gstoretest.TestResultStoreCompliance(t, func(t *testing.T) gstore.ResultStore {
		s, err := gcachestore.NewResultStore(gmemstore.NewResultStore(), 4)
		require.NoError(t, err)
		return s
	})
}

// countingStore counts calls to LoadResult on the wrapped store.
type countingStore struct {
	gstore.ResultStore
	loads int
}

func (s *countingStore) LoadResult(ctx context.Context, id gsum.RoundID) (gstore.RoundResult, error) {
	s.loads++
	return s.ResultStore.LoadResult(ctx, id)
}

func TestResultStore_cachesHits(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	inner := &countingStore{ResultStore: gmemstore.NewResultStore()}

	id := gsum.ExternalRoundID("cached")
	require.NoError(t, inner.SaveResult(ctx, gstore.RoundResult{
		RoundID:    id,
		Result:     gsum.ResultYes,
		Peers:      []string{"127.0.0.1:9000"},
		ResolvedAt: time.Unix(100, 0).UTC(),
	}))

	s, err := gcachestore.NewResultStore(inner, 2)
	require.NoError(t, err)

	for range 3 {
		r, err := s.LoadResult(ctx, id)
		require.NoError(t, err)
		require.Equal(t, gsum.ResultYes, r.Result)
	}
	require.Equal(t, 1, inner.loads)

	// Misses always reach the inner store.
	missing := gsum.ExternalRoundID("missing")
	for range 2 {
		_, err := s.LoadResult(ctx, missing)
		require.ErrorIs(t, err, gstore.ErrResultNotFound)
	}
	require.Equal(t, 3, inner.loads)
}

func TestResultStore_invalidSize(t *testing.T) {
	t.Parallel()

	_, err := gcachestore.NewResultStore(gmemstore.NewResultStore(), 0)
	require.Error(t, err)
}
