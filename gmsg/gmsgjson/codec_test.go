package gmsgjson_test

import (
	"encoding/json"
	"testing"

	"github.com/gordian-engine/gorvote/gmsg"
	"github.com/gordian-engine/gorvote/gmsg/gmsgjson"
	"github.com/gordian-engine/gorvote/gsum"
	"github.com/stretchr/testify/require"
)

var peers = []string{"127.0.0.1:9000", "127.0.0.1:9001"}

func TestCodec_roundTrip(t *testing.T) {
	t.Parallel()

	id := gsum.ExternalRoundID("ship it?")

	for name, m := range map[string]gmsg.Message{
		"masked value":  gmsg.NewMaskedValue(id, peers, peers[0], -42),
		"zero value":    gmsg.NewMaskedValue(id, peers, peers[0], 0),
		"commitment":    gmsg.NewCommitment(id, peers, peers[0], []byte{1, 2, 3}),
		"reveal":        gmsg.NewReveal(id, peers, peers[0], "00ff:17"),
		"proposal call": gmsg.NewProposalCall("abc123", peers, peers[0]),
	} {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			var c gmsgjson.Codec
			b, err := c.Marshal(m)
			require.NoError(t, err)

			var got gmsg.Message
			require.NoError(t, c.Unmarshal(b, &got))
			require.Equal(t, m, got)
		})
	}
}

func TestCodec_wireShape(t *testing.T) {
	t.Parallel()

	var c gmsgjson.Codec
	b, err := c.Marshal(gmsg.NewReveal(gsum.ProposalCallRoundID("abc"), peers, peers[1], "aa:1"))
	require.NoError(t, err)

	var raw map[string]any
	require.NoError(t, json.Unmarshal(b, &raw))
	require.Equal(t, "round", raw["type"])
	require.Equal(t, map[string]any{"kind": "proposal_call", "call_id": "abc"}, raw["round_id"])
	require.Equal(t, "aa:1", raw["reveal"])
	require.NotContains(t, raw, "masked_value")
}

func TestCodec_Unmarshal_invalid(t *testing.T) {
	t.Parallel()

	for name, in := range map[string]string{
		"not json":          `{`,
		"unknown type":      `{"type":"gossip","round_id":{"kind":"external","text":"x"},"sender":"a","peers":["a"],"masked_value":1}`,
		"unknown kind":      `{"type":"round","round_id":{"kind":"mystery","text":"x"},"sender":"a","peers":["a"],"masked_value":1}`,
		"no payload":        `{"type":"round","round_id":{"kind":"external","text":"x"},"sender":"a","peers":["a"]}`,
		"two payloads":      `{"type":"round","round_id":{"kind":"external","text":"x"},"sender":"a","peers":["a"],"masked_value":1,"reveal":"a:1"}`,
		"no sender":         `{"type":"round","round_id":{"kind":"external","text":"x"},"peers":["a"],"masked_value":1}`,
		"call payload":      `{"type":"proposal_call","round_id":{"kind":"proposal_call","call_id":"c"},"sender":"a","peers":["a"],"masked_value":1}`,
		"call no peers":     `{"type":"proposal_call","round_id":{"kind":"proposal_call","call_id":"c"},"sender":"a"}`,
		"foreign id fields": `{"type":"round","round_id":{"kind":"external","text":"x","call_id":"junk","bit":3},"sender":"a","peers":["a"],"masked_value":1}`,
	} {
		var m gmsg.Message
		err := gmsgjson.Codec{}.Unmarshal([]byte(in), &m)
		require.ErrorIsf(t, err, gmsg.ErrInvalidMessage, "case %s", name)
	}
}
