package gsum

import (
	"crypto/sha256"
	"fmt"

	"golang.org/x/crypto/blake2b"
	"lukechampine.com/blake3"
)

// HashScheme produces the commitment digest of a reveal.
//
// The scheme must be collision resistant:
// a peer that could find a second preimage for its own commitment
// could change its revealed sum after seeing the others.
// Every consensor in a network must use the same scheme.
type HashScheme interface {
	// Name is the configuration name of the scheme.
	Name() string

	// Sum returns the digest of data.
	Sum(data []byte) []byte
}

// SHA256HashScheme is the default [HashScheme].
type SHA256HashScheme struct{}

func (SHA256HashScheme) Name() string { return "sha256" }

func (SHA256HashScheme) Sum(data []byte) []byte {
	h := sha256.Sum256(data)
	return h[:]
}

// Blake2bHashScheme uses the 256-bit BLAKE2b digest.
type Blake2bHashScheme struct{}

func (Blake2bHashScheme) Name() string { return "blake2b" }

func (Blake2bHashScheme) Sum(data []byte) []byte {
	h := blake2b.Sum256(data)
	return h[:]
}

// Blake3HashScheme uses the 256-bit BLAKE3 digest.
type Blake3HashScheme struct{}

func (Blake3HashScheme) Name() string { return "blake3" }

func (Blake3HashScheme) Sum(data []byte) []byte {
	h := blake3.Sum256(data)
	return h[:]
}

// HashSchemeByName returns the [HashScheme] whose Name method returns name.
// The empty string selects [SHA256HashScheme].
func HashSchemeByName(name string) (HashScheme, error) {
	switch name {
	case "", "sha256":
		return SHA256HashScheme{}, nil
	case "blake2b":
		return Blake2bHashScheme{}, nil
	case "blake3":
		return Blake3HashScheme{}, nil
	default:
		return nil, fmt.Errorf("unknown hash scheme %q (want one of sha256, blake2b, blake3)", name)
	}
}
