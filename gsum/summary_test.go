package gsum_test

import (
	"testing"

	"github.com/gordian-engine/gorvote/gsum"
	"github.com/gordian-engine/gorvote/gsum/gsumtest"
	"github.com/stretchr/testify/require"
)

func TestRound_Summary(t *testing.T) {
	t.Parallel()

	hs := gsum.SHA256HashScheme{}
	r := gsum.NewRound(testRoundID, self, threePeers, gsum.RoundConfig{
		Random: gsumtest.NewScriptedRandomSource(100, -30),
	})

	s := r.Summary()
	require.Equal(t, gsum.PhaseCreated, s.Phase)
	require.Equal(t, 2, s.Peers)
	require.Zero(t, s.OwnVote)
	require.Equal(t, []string{peerA, peerB}, s.Missing)

	r.RecordPeerValue(peerB, 7)
	s = r.Summary()
	require.Equal(t, gsum.PhaseAwaitingPeers, s.Phase)
	require.Equal(t, 1, s.Values)
	require.Equal(t, []string{peerA}, s.Missing)

	r.SetOwnVote(gsum.VoteNo)
	r.RecordPeerValue(peerA, 5)
	_, ok := r.Commit()
	require.True(t, ok)

	// Own sum is -70 + 5 + 7 = -58, so these reveals total zero.
	revA, revB := "aa:20", "bb:38"
	r.RecordPeerCommitment(peerA, hs.Sum([]byte(revA)))
	r.RecordPeerCommitment(peerB, hs.Sum([]byte(revB)))

	s = r.Summary()
	require.Equal(t, gsum.PhaseRevealed, s.Phase)
	require.Equal(t, 2, s.Commitments)
	require.Equal(t, []string{peerA, peerB}, s.Missing)

	require.Equal(t, gsum.RevealAccepted, r.RecordPeerReveal(peerA, revA))
	require.Equal(t, gsum.RevealAccepted, r.RecordPeerReveal(peerB, revB))

	s = r.Summary()
	require.Equal(t, gsum.RoundSummary{
		ID:     testRoundID,
		Phase:  gsum.PhaseResolved,
		Result: gsum.ResultNo,

		OwnVote: gsum.VoteNo,
		Peers:   2,

		Values:      2,
		Commitments: 2,
		Reveals:     2,
	}, s)
}

func TestPhase_text(t *testing.T) {
	t.Parallel()

	for p := gsum.PhaseCreated; p <= gsum.PhaseResolved; p++ {
		b, err := p.MarshalText()
		require.NoError(t, err)

		var got gsum.Phase
		require.NoError(t, got.UnmarshalText(b))
		require.Equal(t, p, got)
	}

	_, err := gsum.Phase(0).MarshalText()
	require.Error(t, err)

	var p gsum.Phase
	require.Error(t, p.UnmarshalText([]byte("finished")))
}
