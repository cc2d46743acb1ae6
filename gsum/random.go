package gsum

import (
	"crypto/cipher"
	"math/big"
	"sync"

	"go.dedis.ch/kyber/v3/util/random"
)

// ShareWidth bounds every random share to the range [-ShareWidth, ShareWidth].
const ShareWidth int64 = 1_000_000

// saltBits is the size of the random salt mixed into a commitment.
const saltBits = 256

// RandomSource provides the randomness a [*Round] consumes.
//
// Share must return a value drawn uniformly from [-ShareWidth, ShareWidth].
// Salt must return fresh unpredictable bytes for commitment salts.
//
// Other peers must not be able to predict either value,
// so production code uses [NewCryptoRandomSource].
type RandomSource interface {
	Share() int64
	Salt() []byte
}

// CryptoRandomSource is a [RandomSource] backed by the system's
// cryptographically secure random number generator.
//
// A failure of the underlying generator is unrecoverable
// and causes a panic.
//
// CryptoRandomSource is safe for concurrent use.
type CryptoRandomSource struct {
	mu     sync.Mutex
	stream cipher.Stream
}

var shareModulus = big.NewInt(2*ShareWidth + 1)

func NewCryptoRandomSource() *CryptoRandomSource {
	return &CryptoRandomSource{
		stream: random.New(),
	}
}

// Share returns a uniformly distributed value in [-ShareWidth, ShareWidth].
func (s *CryptoRandomSource) Share() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()

	// random.Int returns a value in [0, 2W].
	return random.Int(shareModulus, s.stream).Int64() - ShareWidth
}

// Salt returns 256 fresh random bits.
func (s *CryptoRandomSource) Salt() []byte {
	s.mu.Lock()
	defer s.mu.Unlock()

	return random.Bits(saltBits, false, s.stream)
}
