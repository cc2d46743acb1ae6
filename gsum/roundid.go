package gsum

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// RoundKind distinguishes the purpose of a round.
type RoundKind uint8

const (
	_ RoundKind = iota // Invalid.

	// An identifier with no recognized purpose.
	// Opaque rounds behave exactly like external rounds,
	// but they are only listed in debug summaries.
	RoundKindOpaque

	// The periodic "does anyone have something to propose?" round
	// started by the proposer.
	RoundKindProposalCall

	// A user-facing round keyed by human-readable proposal text.
	RoundKindExternal

	// Reserved for transmitting proposal content one bit at a time.
	// Nothing in this module starts or answers bit rounds.
	RoundKindBit
)

func (k RoundKind) String() string {
	switch k {
	case RoundKindOpaque:
		return "opaque"
	case RoundKindProposalCall:
		return "proposal_call"
	case RoundKindExternal:
		return "external"
	case RoundKindBit:
		return "bit"
	default:
		return fmt.Sprintf("RoundKind(%d)", uint8(k))
	}
}

// ParseRoundKind is the inverse of [RoundKind.String].
func ParseRoundKind(s string) (RoundKind, error) {
	switch s {
	case "opaque":
		return RoundKindOpaque, nil
	case "proposal_call":
		return RoundKindProposalCall, nil
	case "external":
		return RoundKindExternal, nil
	case "bit":
		return RoundKindBit, nil
	default:
		return 0, fmt.Errorf("unknown round kind %q", s)
	}
}

// RoundID identifies a round across all consensors.
//
// RoundID is comparable and is used directly as a map key.
// Use the constructor functions rather than filling in fields by hand.
type RoundID struct {
	Kind RoundKind

	// Set for proposal-call and bit rounds.
	CallID string

	// The proposal text for external rounds,
	// or the raw identifier for opaque rounds.
	Text string

	// Only meaningful for bit rounds.
	Bit int
}

func ProposalCallRoundID(callID string) RoundID {
	return RoundID{Kind: RoundKindProposalCall, CallID: callID}
}

func ExternalRoundID(text string) RoundID {
	return RoundID{Kind: RoundKindExternal, Text: text}
}

func BitRoundID(callID string, bit int) RoundID {
	return RoundID{Kind: RoundKindBit, CallID: callID, Bit: bit}
}

func OpaqueRoundID(raw string) RoundID {
	return RoundID{Kind: RoundKindOpaque, Text: raw}
}

const (
	callPrefix     = "call:"
	externalPrefix = "external:"
	bitPrefix      = "bit:"
)

// ErrInvalidRoundID is returned by [ParseRoundID] and [RoundID.Validate].
var ErrInvalidRoundID = errors.New("invalid round ID")

// String returns the canonical text form of the ID,
// which [ParseRoundID] accepts.
// The text form is used for store keys, logs, and the operator API.
func (id RoundID) String() string {
	switch id.Kind {
	case RoundKindProposalCall:
		return callPrefix + id.CallID
	case RoundKindExternal:
		return externalPrefix + id.Text
	case RoundKindBit:
		return bitPrefix + id.CallID + "/" + strconv.Itoa(id.Bit)
	case RoundKindOpaque:
		return id.Text
	default:
		return ""
	}
}

// Validate reports whether id has exactly the fields its kind uses.
// Two valid IDs are equal if and only if their String forms are equal.
func (id RoundID) Validate() error {
	switch id.Kind {
	case RoundKindProposalCall:
		if id.CallID == "" {
			return fmt.Errorf("%w: proposal call without call ID", ErrInvalidRoundID)
		}
		if id.Text != "" || id.Bit != 0 {
			return fmt.Errorf("%w: proposal call with text or bit index", ErrInvalidRoundID)
		}
	case RoundKindExternal:
		if id.Text == "" {
			return fmt.Errorf("%w: external round without text", ErrInvalidRoundID)
		}
		if id.CallID != "" || id.Bit != 0 {
			return fmt.Errorf("%w: external round with call ID or bit index", ErrInvalidRoundID)
		}
	case RoundKindBit:
		if id.CallID == "" || id.Bit < 0 {
			return fmt.Errorf("%w: bit round needs a call ID and non-negative bit index", ErrInvalidRoundID)
		}
		if id.Text != "" {
			return fmt.Errorf("%w: bit round with text", ErrInvalidRoundID)
		}
	case RoundKindOpaque:
		if id.Text == "" {
			return fmt.Errorf("%w: empty identifier", ErrInvalidRoundID)
		}
		if hasTag(id.Text) {
			return fmt.Errorf("%w: opaque identifier %q carries a reserved tag", ErrInvalidRoundID, id.Text)
		}
		if id.CallID != "" || id.Bit != 0 {
			return fmt.Errorf("%w: opaque identifier with call ID or bit index", ErrInvalidRoundID)
		}
	default:
		return fmt.Errorf("%w: unknown kind %d", ErrInvalidRoundID, uint8(id.Kind))
	}
	return nil
}

// ParseRoundID parses the text form produced by [RoundID.String].
// Text without a recognized tag is an opaque round.
func ParseRoundID(s string) (RoundID, error) {
	if s == "" {
		return RoundID{}, fmt.Errorf("%w: empty identifier", ErrInvalidRoundID)
	}

	var id RoundID
	switch {
	case strings.HasPrefix(s, callPrefix):
		id = ProposalCallRoundID(strings.TrimPrefix(s, callPrefix))
	case strings.HasPrefix(s, externalPrefix):
		id = ExternalRoundID(strings.TrimPrefix(s, externalPrefix))
	case strings.HasPrefix(s, bitPrefix):
		rest := strings.TrimPrefix(s, bitPrefix)
		slash := strings.LastIndexByte(rest, '/')
		if slash < 0 {
			return RoundID{}, fmt.Errorf("%w: bit round %q missing bit index", ErrInvalidRoundID, s)
		}
		bit, err := strconv.Atoi(rest[slash+1:])
		if err != nil {
			return RoundID{}, fmt.Errorf("%w: bit round %q: %w", ErrInvalidRoundID, s, err)
		}
		id = BitRoundID(rest[:slash], bit)
	default:
		id = OpaqueRoundID(s)
	}

	if err := id.Validate(); err != nil {
		return RoundID{}, err
	}
	return id, nil
}

func hasTag(s string) bool {
	return strings.HasPrefix(s, callPrefix) ||
		strings.HasPrefix(s, externalPrefix) ||
		strings.HasPrefix(s, bitPrefix)
}
