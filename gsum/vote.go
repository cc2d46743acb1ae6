package gsum

import "fmt"

// Vote is a consensor's private answer in a round.
type Vote uint8

const (
	_ Vote = iota // Invalid.

	VoteNo
	VoteYes
)

// ParseVote parses the text form of a vote, "yes" or "no".
func ParseVote(s string) (Vote, error) {
	switch s {
	case "yes":
		return VoteYes, nil
	case "no":
		return VoteNo, nil
	default:
		return 0, fmt.Errorf("invalid vote %q (must be yes or no)", s)
	}
}

func (v Vote) String() string {
	switch v {
	case VoteYes:
		return "yes"
	case VoteNo:
		return "no"
	default:
		return fmt.Sprintf("Vote(%d)", uint8(v))
	}
}

func (v Vote) MarshalText() ([]byte, error) {
	if v != VoteYes && v != VoteNo {
		return nil, fmt.Errorf("cannot marshal invalid vote %d", uint8(v))
	}
	return []byte(v.String()), nil
}

func (v *Vote) UnmarshalText(b []byte) error {
	pv, err := ParseVote(string(b))
	if err != nil {
		return err
	}
	*v = pv
	return nil
}

// Result is the externally observable outcome of a round.
//
// A round only resolves to [ResultNo] when the grand total is exactly zero.
// An honest "yes" contribution is cancelled out by chance
// with probability about 1/(2*ShareWidth+1),
// in which case the round reports a false [ResultNo].
// That boundary is inherent to the protocol and is not corrected for.
type Result uint8

const (
	// The zero value is a valid result:
	// every round starts unknown.
	ResultUnknown Result = iota

	ResultNo
	ResultYes
)

func (r Result) String() string {
	switch r {
	case ResultUnknown:
		return "unknown"
	case ResultNo:
		return "no"
	case ResultYes:
		return "yes"
	default:
		return fmt.Sprintf("Result(%d)", uint8(r))
	}
}

// Resolved reports whether r is a terminal result.
func (r Result) Resolved() bool {
	return r == ResultNo || r == ResultYes
}

func (r Result) MarshalText() ([]byte, error) {
	if r > ResultYes {
		return nil, fmt.Errorf("cannot marshal invalid result %d", uint8(r))
	}
	return []byte(r.String()), nil
}

func (r *Result) UnmarshalText(b []byte) error {
	switch string(b) {
	case "unknown":
		*r = ResultUnknown
	case "no":
		*r = ResultNo
	case "yes":
		*r = ResultYes
	default:
		return fmt.Errorf("invalid result %q", b)
	}
	return nil
}
