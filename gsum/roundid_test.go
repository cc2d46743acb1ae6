package gsum_test

import (
	"testing"

	"github.com/gordian-engine/gorvote/gsum"
	"github.com/stretchr/testify/require"
)

func TestRoundID_textRoundTrip(t *testing.T) {
	t.Parallel()

	for _, id := range []gsum.RoundID{
		gsum.ProposalCallRoundID("0f8e3c2a9b7d4e1f8a6c5b4d3e2f1a0b"),
		gsum.ExternalRoundID("Order pizza?"),
		gsum.ExternalRoundID("contains: colons: too"),
		gsum.BitRoundID("abc", 17),
		gsum.OpaqueRoundID("whatever-the-peer-sent"),
	} {
		t.Run(id.Kind.String(), func(t *testing.T) {
			got, err := gsum.ParseRoundID(id.String())
			require.NoError(t, err)
			require.Equal(t, id, got)
		})
	}
}

func TestParseRoundID_invalid(t *testing.T) {
	t.Parallel()

	for _, s := range []string{
		"",
		"call:",
		"external:",
		"bit:abc",
		"bit:abc/x",
		"bit:/3",
		"bit:abc/-1",
	} {
		_, err := gsum.ParseRoundID(s)
		require.ErrorIsf(t, err, gsum.ErrInvalidRoundID, "input %q", s)
	}
}

func TestRoundID_Validate(t *testing.T) {
	t.Parallel()

	require.NoError(t, gsum.ExternalRoundID("x").Validate())

	require.ErrorIs(t, gsum.RoundID{}.Validate(), gsum.ErrInvalidRoundID)
	require.ErrorIs(t, gsum.OpaqueRoundID("call:abc").Validate(), gsum.ErrInvalidRoundID)
	require.ErrorIs(t, gsum.OpaqueRoundID("").Validate(), gsum.ErrInvalidRoundID)

	// Fields outside the kind would make IDs with the same text form compare unequal.
	for name, id := range map[string]gsum.RoundID{
		"external with call ID": {Kind: gsum.RoundKindExternal, Text: "x", CallID: "junk"},
		"external with bit":     {Kind: gsum.RoundKindExternal, Text: "x", Bit: 3},
		"opaque with call ID":   {Kind: gsum.RoundKindOpaque, Text: "x", CallID: "junk"},
		"opaque with bit":       {Kind: gsum.RoundKindOpaque, Text: "x", Bit: 1},
		"call with text":        {Kind: gsum.RoundKindProposalCall, CallID: "c", Text: "x"},
		"call with bit":         {Kind: gsum.RoundKindProposalCall, CallID: "c", Bit: 2},
		"bit with text":         {Kind: gsum.RoundKindBit, CallID: "c", Bit: 2, Text: "x"},
	} {
		require.ErrorIsf(t, id.Validate(), gsum.ErrInvalidRoundID, "case %s", name)
	}
}

func TestRoundKind_parse(t *testing.T) {
	t.Parallel()

	for _, k := range []gsum.RoundKind{
		gsum.RoundKindOpaque,
		gsum.RoundKindProposalCall,
		gsum.RoundKindExternal,
		gsum.RoundKindBit,
	} {
		got, err := gsum.ParseRoundKind(k.String())
		require.NoError(t, err)
		require.Equal(t, k, got)
	}

	_, err := gsum.ParseRoundKind("nope")
	require.Error(t, err)
}

func TestVote_text(t *testing.T) {
	t.Parallel()

	var v gsum.Vote
	require.NoError(t, v.UnmarshalText([]byte("yes")))
	require.Equal(t, gsum.VoteYes, v)

	b, err := gsum.VoteNo.MarshalText()
	require.NoError(t, err)
	require.Equal(t, "no", string(b))

	_, err = gsum.Vote(0).MarshalText()
	require.Error(t, err)

	_, err = gsum.ParseVote("maybe")
	require.Error(t, err)
}

func TestResult_text(t *testing.T) {
	t.Parallel()

	require.False(t, gsum.ResultUnknown.Resolved())
	require.True(t, gsum.ResultNo.Resolved())
	require.True(t, gsum.ResultYes.Resolved())

	for _, r := range []gsum.Result{gsum.ResultUnknown, gsum.ResultNo, gsum.ResultYes} {
		b, err := r.MarshalText()
		require.NoError(t, err)

		var got gsum.Result
		require.NoError(t, got.UnmarshalText(b))
		require.Equal(t, r, got)
	}
}
