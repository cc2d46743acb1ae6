package gmsg_test

import (
	"testing"

	"github.com/gordian-engine/gorvote/gmsg"
	"github.com/gordian-engine/gorvote/gsum"
	"github.com/stretchr/testify/require"
)

func TestMessage_Validate(t *testing.T) {
	t.Parallel()

	id := gsum.ExternalRoundID("x")
	peers := []string{"127.0.0.1:1", "127.0.0.1:2"}

	require.NoError(t, gmsg.NewMaskedValue(id, peers, peers[0], 3).Validate())
	require.NoError(t, gmsg.NewCommitment(id, peers, peers[0], []byte{9}).Validate())
	require.NoError(t, gmsg.NewReveal(id, peers, peers[0], "a:1").Validate())
	require.NoError(t, gmsg.NewProposalCall("c", peers, peers[0]).Validate())

	two := gmsg.NewMaskedValue(id, peers, peers[0], 3)
	two.Commitment = []byte{1}
	require.ErrorIs(t, two.Validate(), gmsg.ErrInvalidMessage)
	require.Equal(t, gmsg.PayloadNone, two.Payload())

	empty := gmsg.NewCommitment(id, peers, peers[0], []byte{})
	require.ErrorIs(t, empty.Validate(), gmsg.ErrInvalidMessage)

	noPeers := gmsg.NewMaskedValue(id, nil, peers[0], 3)
	require.ErrorIs(t, noPeers.Validate(), gmsg.ErrInvalidMessage)

	badID := gmsg.NewMaskedValue(gsum.RoundID{}, peers, peers[0], 3)
	require.ErrorIs(t, badID.Validate(), gmsg.ErrInvalidMessage)

	wrongCall := gmsg.NewProposalCall("c", peers, peers[0])
	wrongCall.RoundID = id
	require.ErrorIs(t, wrongCall.Validate(), gmsg.ErrInvalidMessage)

	callNoPeers := gmsg.NewProposalCall("c", nil, peers[0])
	require.ErrorIs(t, callNoPeers.Validate(), gmsg.ErrInvalidMessage)

	require.ErrorIs(t, gmsg.Message{Sender: "a"}.Validate(), gmsg.ErrInvalidMessage)
}

func TestMessage_Payload(t *testing.T) {
	t.Parallel()

	id := gsum.ExternalRoundID("x")
	require.Equal(t, gmsg.PayloadMaskedValue, gmsg.NewMaskedValue(id, nil, "a", 0).Payload())
	require.Equal(t, gmsg.PayloadCommitment, gmsg.NewCommitment(id, nil, "a", []byte{1}).Payload())
	require.Equal(t, gmsg.PayloadReveal, gmsg.NewReveal(id, nil, "a", "").Payload())
	require.Equal(t, gmsg.PayloadNone, gmsg.NewProposalCall("c", nil, "a").Payload())
}
