package gsum_test

import (
	"testing"

	"github.com/gordian-engine/gorvote/gsum"
	"github.com/gordian-engine/gorvote/gsum/gsumtest"
	"github.com/stretchr/testify/require"
)

func TestCryptoRandomSource_Share(t *testing.T) {
	t.Parallel()

	src := gsum.NewCryptoRandomSource()

	var sawNeg, sawPos bool
	for range 10_000 {
		v := src.Share()
		require.GreaterOrEqual(t, v, -gsum.ShareWidth)
		require.LessOrEqual(t, v, gsum.ShareWidth)

		sawNeg = sawNeg || v < 0
		sawPos = sawPos || v > 0
	}

	require.True(t, sawNeg)
	require.True(t, sawPos)
}

func TestCryptoRandomSource_Salt(t *testing.T) {
	t.Parallel()

	src := gsum.NewCryptoRandomSource()

	a := src.Salt()
	b := src.Salt()
	require.Len(t, a, 32)
	require.Len(t, b, 32)
	require.NotEqual(t, a, b)
}

func TestHashSchemeByName(t *testing.T) {
	t.Parallel()

	digests := map[string][]byte{}
	for _, name := range []string{"sha256", "blake2b", "blake3"} {
		hs, err := gsum.HashSchemeByName(name)
		require.NoError(t, err)
		require.Equal(t, name, hs.Name())

		d := hs.Sum([]byte("00ff:42"))
		require.Len(t, d, 32)
		require.Equal(t, d, hs.Sum([]byte("00ff:42")))
		require.NotEqual(t, d, hs.Sum([]byte("00ff:43")))
		digests[name] = d
	}

	require.NotEqual(t, digests["sha256"], digests["blake2b"])
	require.NotEqual(t, digests["sha256"], digests["blake3"])
	require.NotEqual(t, digests["blake2b"], digests["blake3"])

	hs, err := gsum.HashSchemeByName("")
	require.NoError(t, err)
	require.Equal(t, "sha256", hs.Name())

	_, err = gsum.HashSchemeByName("md5")
	require.Error(t, err)
}

func TestRound_hashSchemesInterop(t *testing.T) {
	t.Parallel()

	for _, hs := range []gsum.HashScheme{
		gsum.SHA256HashScheme{},
		gsum.Blake2bHashScheme{},
		gsum.Blake3HashScheme{},
	} {
		t.Run(hs.Name(), func(t *testing.T) {
			t.Parallel()

			f := gsumtest.NewFixture(3, testRoundID, gsum.RoundConfig{HashScheme: hs})
			for _, res := range f.Run(gsum.VoteNo, gsum.VoteNo, gsum.VoteNo) {
				require.Equal(t, gsum.ResultNo, res)
			}
		})
	}
}
