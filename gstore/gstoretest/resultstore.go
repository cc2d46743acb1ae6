// Package gstoretest contains compliance tests for [gstore] implementations.
package gstoretest

import (
	"context"
	"testing"
	"time"

	"github.com/gordian-engine/gorvote/gstore"
	"github.com/gordian-engine/gorvote/gsum"
	"github.com/stretchr/testify/require"
)

// ResultStoreFactory returns a new, empty ResultStore for one test.
// Any cleanup should be registered on t.
type ResultStoreFactory func(t *testing.T) gstore.ResultStore

// TestResultStoreCompliance is the compliance test for [gstore.ResultStore].
func TestResultStoreCompliance(t *testing.T, f ResultStoreFactory) {
	t.Helper()

	base := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	peers := []string{"127.0.0.1:9001", "127.0.0.1:9000"}

	t.Run("load missing", func(t *testing.T) {
		t.Parallel()

		s := f(t)
		_, err := s.LoadResult(context.Background(), gsum.ExternalRoundID("nope"))
		require.ErrorIs(t, err, gstore.ErrResultNotFound)

		rs, err := s.ListResults(context.Background())
		require.NoError(t, err)
		require.Empty(t, rs)
	})

	t.Run("save and load", func(t *testing.T) {
		t.Parallel()

		ctx := context.Background()
		s := f(t)

		for _, id := range []gsum.RoundID{
			gsum.ExternalRoundID("lunch?"),
			gsum.ProposalCallRoundID("abc"),
			gsum.OpaqueRoundID("raw"),
		} {
			want := gstore.RoundResult{
				RoundID:    id,
				Result:     gsum.ResultYes,
				Peers:      peers,
				ResolvedAt: base,
			}
			require.NoError(t, s.SaveResult(ctx, want))

			got, err := s.LoadResult(ctx, id)
			require.NoError(t, err)
			requireResultEqual(t, want, got)
		}
	})

	t.Run("save replaces", func(t *testing.T) {
		t.Parallel()

		ctx := context.Background()
		s := f(t)
		id := gsum.ExternalRoundID("x")

		require.NoError(t, s.SaveResult(ctx, gstore.RoundResult{
			RoundID: id, Result: gsum.ResultYes, Peers: peers, ResolvedAt: base,
		}))
		second := gstore.RoundResult{
			RoundID: id, Result: gsum.ResultNo, Peers: peers, ResolvedAt: base.Add(time.Minute),
		}
		require.NoError(t, s.SaveResult(ctx, second))

		got, err := s.LoadResult(ctx, id)
		require.NoError(t, err)
		requireResultEqual(t, second, got)

		rs, err := s.ListResults(ctx)
		require.NoError(t, err)
		require.Len(t, rs, 1)
	})

	t.Run("list order", func(t *testing.T) {
		t.Parallel()

		ctx := context.Background()
		s := f(t)

		later := gstore.RoundResult{
			RoundID: gsum.ExternalRoundID("a"), Result: gsum.ResultNo, Peers: peers, ResolvedAt: base.Add(time.Second),
		}
		tieB := gstore.RoundResult{
			RoundID: gsum.ExternalRoundID("b"), Result: gsum.ResultYes, Peers: peers, ResolvedAt: base,
		}
		tieA := gstore.RoundResult{
			RoundID: gsum.ProposalCallRoundID("z"), Result: gsum.ResultYes, Peers: peers, ResolvedAt: base,
		}
		for _, r := range []gstore.RoundResult{later, tieB, tieA} {
			require.NoError(t, s.SaveResult(ctx, r))
		}

		rs, err := s.ListResults(ctx)
		require.NoError(t, err)
		require.Len(t, rs, 3)

		// "call:z" sorts before "external:b".
		requireResultEqual(t, tieA, rs[0])
		requireResultEqual(t, tieB, rs[1])
		requireResultEqual(t, later, rs[2])
	})

	t.Run("returned peers are not aliased", func(t *testing.T) {
		t.Parallel()

		ctx := context.Background()
		s := f(t)
		id := gsum.ExternalRoundID("alias")

		in := []string{"127.0.0.1:1", "127.0.0.1:2"}
		require.NoError(t, s.SaveResult(ctx, gstore.RoundResult{
			RoundID: id, Result: gsum.ResultNo, Peers: in, ResolvedAt: base,
		}))
		in[0] = "changed"

		got, err := s.LoadResult(ctx, id)
		require.NoError(t, err)
		require.Equal(t, "127.0.0.1:1", got.Peers[0])
	})
}

func requireResultEqual(t *testing.T, want, got gstore.RoundResult) {
	t.Helper()

	require.Equal(t, want.RoundID, got.RoundID)
	require.Equal(t, want.Result, got.Result)
	require.Equal(t, want.Peers, got.Peers)
	require.Truef(t, want.ResolvedAt.Equal(got.ResolvedAt), "want time %s, got %s", want.ResolvedAt, got.ResolvedAt)
}
