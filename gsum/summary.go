package gsum

import (
	"fmt"

	"github.com/bits-and-blooms/bitset"
)

// Phase is the lifecycle stage of a [*Round], derived from its state.
type Phase uint8

const (
	_ Phase = iota // Invalid.

	// Nothing has been recorded and no own vote is set.
	PhaseCreated

	// Waiting for the own vote or for masked values from other peers.
	PhaseAwaitingPeers

	// The local commitment exists; waiting for other peers' commitments.
	PhaseCommitted

	// The local reveal is available; waiting for other peers' reveals.
	// A round with a rejected reveal stays here.
	PhaseRevealed

	// Every reveal validated and the result is known.
	PhaseResolved
)

func (p Phase) String() string {
	switch p {
	case PhaseCreated:
		return "created"
	case PhaseAwaitingPeers:
		return "awaiting_peers"
	case PhaseCommitted:
		return "committed"
	case PhaseRevealed:
		return "revealed"
	case PhaseResolved:
		return "resolved"
	default:
		return fmt.Sprintf("Phase(%d)", uint8(p))
	}
}

func (p Phase) MarshalText() ([]byte, error) {
	if p < PhaseCreated || p > PhaseResolved {
		return nil, fmt.Errorf("cannot marshal invalid phase %d", uint8(p))
	}
	return []byte(p.String()), nil
}

func (p *Phase) UnmarshalText(b []byte) error {
	for c := PhaseCreated; c <= PhaseResolved; c++ {
		if c.String() == string(b) {
			*p = c
			return nil
		}
	}
	return fmt.Errorf("invalid phase %q", b)
}

// Phase reports the current lifecycle stage of the round.
func (r *Round) Phase() Phase {
	switch {
	case r.Result().Resolved():
		return PhaseResolved
	case r.ReadyToReveal():
		return PhaseRevealed
	case r.commitment != nil:
		return PhaseCommitted
	case r.own != nil || r.valuesSeen.Any():
		return PhaseAwaitingPeers
	default:
		return PhaseCreated
	}
}

// RoundSummary is a point-in-time view of a round,
// safe to hand to other goroutines.
//
// It never contains shares, masked values, or sums.
type RoundSummary struct {
	ID     RoundID
	Phase  Phase
	Result Result

	// Zero if the own vote is not set.
	OwnVote Vote

	Peers int

	Values      int
	Commitments int
	Reveals     int

	// Peers whose contribution for the current phase is still outstanding.
	Missing []string
}

// Summary returns a [RoundSummary] of the round.
func (r *Round) Summary() RoundSummary {
	s := RoundSummary{
		ID:     r.id,
		Phase:  r.Phase(),
		Result: r.Result(),

		Peers: len(r.others),

		Values:      int(r.valuesSeen.Count()),
		Commitments: int(r.commitsSeen.Count()),
		Reveals:     int(r.revealsSeen.Count()),
	}
	if r.own != nil {
		s.OwnVote = r.own.Vote
	}

	var seen *bitset.BitSet
	switch s.Phase {
	case PhaseCreated, PhaseAwaitingPeers:
		seen = r.valuesSeen
	case PhaseCommitted:
		seen = r.commitsSeen
	case PhaseRevealed:
		seen = r.revealsSeen
	}
	if seen != nil {
		for i, p := range r.others {
			if !seen.Test(uint(i)) {
				s.Missing = append(s.Missing, p)
			}
		}
	}

	return s
}
