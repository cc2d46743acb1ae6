// Package gmsg defines the messages exchanged between consensors.
//
// A [Message] is the logical form.
// Encoding to and from bytes is the job of a [Codec];
// see the gmsgjson subpackage for the JSON codec used by the HTTP transport.
package gmsg

import (
	"errors"
	"fmt"

	"github.com/gordian-engine/gorvote/gsum"
)

// MessageType distinguishes round traffic from proposal calls.
type MessageType uint8

const (
	_ MessageType = iota // Invalid.

	// A masked value, commitment, or reveal for a round.
	MessageTypeRound

	// The proposer asking every consensor to start a proposal-call round.
	MessageTypeProposalCall
)

func (t MessageType) String() string {
	switch t {
	case MessageTypeRound:
		return "round"
	case MessageTypeProposalCall:
		return "proposal_call"
	default:
		return fmt.Sprintf("MessageType(%d)", uint8(t))
	}
}

// PayloadKind identifies which single payload a round message carries.
type PayloadKind uint8

const (
	PayloadNone PayloadKind = iota

	PayloadMaskedValue
	PayloadCommitment
	PayloadReveal
)

func (k PayloadKind) String() string {
	switch k {
	case PayloadNone:
		return "none"
	case PayloadMaskedValue:
		return "masked_value"
	case PayloadCommitment:
		return "commitment"
	case PayloadReveal:
		return "reveal"
	default:
		return fmt.Sprintf("PayloadKind(%d)", uint8(k))
	}
}

// Message is a single consensor-to-consensor message.
type Message struct {
	Type MessageType

	RoundID gsum.RoundID

	// Every participant of the round, including the sender.
	// The recipient creates the round from this set
	// if it has not seen the round before.
	Peers []string

	// Address of the sending consensor.
	Sender string

	// Exactly one of these is set on a round message.
	// None are set on a proposal call.
	MaskedValue *int64
	Commitment  []byte
	Reveal      *string
}

// ErrInvalidMessage is wrapped by every error from [Message.Validate].
var ErrInvalidMessage = errors.New("invalid message")

// Payload reports which payload m carries.
// It returns PayloadNone if zero or several payloads are set.
func (m Message) Payload() PayloadKind {
	var k PayloadKind
	n := 0
	if m.MaskedValue != nil {
		k = PayloadMaskedValue
		n++
	}
	if m.Commitment != nil {
		k = PayloadCommitment
		n++
	}
	if m.Reveal != nil {
		k = PayloadReveal
		n++
	}
	if n != 1 {
		return PayloadNone
	}
	return k
}

// Validate reports whether m is well formed.
// It does not check that the sender is part of the round.
func (m Message) Validate() error {
	if m.Sender == "" {
		return fmt.Errorf("%w: missing sender", ErrInvalidMessage)
	}

	switch m.Type {
	case MessageTypeRound:
		if err := m.RoundID.Validate(); err != nil {
			return fmt.Errorf("%w: %w", ErrInvalidMessage, err)
		}
		if len(m.Peers) == 0 {
			return fmt.Errorf("%w: round message without peers", ErrInvalidMessage)
		}
		if m.Payload() == PayloadNone {
			return fmt.Errorf("%w: round message must carry exactly one payload", ErrInvalidMessage)
		}
		if m.Commitment != nil && len(m.Commitment) == 0 {
			return fmt.Errorf("%w: empty commitment", ErrInvalidMessage)
		}

	case MessageTypeProposalCall:
		if m.RoundID.Kind != gsum.RoundKindProposalCall {
			return fmt.Errorf("%w: proposal call with %s round ID", ErrInvalidMessage, m.RoundID.Kind)
		}
		if err := m.RoundID.Validate(); err != nil {
			return fmt.Errorf("%w: %w", ErrInvalidMessage, err)
		}
		if len(m.Peers) == 0 {
			return fmt.Errorf("%w: proposal call without peers", ErrInvalidMessage)
		}
		if m.MaskedValue != nil || m.Commitment != nil || m.Reveal != nil {
			return fmt.Errorf("%w: proposal call must not carry a payload", ErrInvalidMessage)
		}

	default:
		return fmt.Errorf("%w: unknown type %d", ErrInvalidMessage, uint8(m.Type))
	}

	return nil
}

// NewMaskedValue returns a round message carrying a masked value.
func NewMaskedValue(id gsum.RoundID, peers []string, sender string, v int64) Message {
	return Message{
		Type:        MessageTypeRound,
		RoundID:     id,
		Peers:       peers,
		Sender:      sender,
		MaskedValue: &v,
	}
}

// NewCommitment returns a round message carrying a commitment.
func NewCommitment(id gsum.RoundID, peers []string, sender string, c []byte) Message {
	return Message{
		Type:       MessageTypeRound,
		RoundID:    id,
		Peers:      peers,
		Sender:     sender,
		Commitment: c,
	}
}

// NewReveal returns a round message carrying a reveal.
func NewReveal(id gsum.RoundID, peers []string, sender string, reveal string) Message {
	return Message{
		Type:    MessageTypeRound,
		RoundID: id,
		Peers:   peers,
		Sender:  sender,
		Reveal:  &reveal,
	}
}

// NewProposalCall returns a proposal call for the given call ID.
// Receivers create the call's round over peers.
func NewProposalCall(callID string, peers []string, sender string) Message {
	return Message{
		Type:    MessageTypeProposalCall,
		RoundID: gsum.ProposalCallRoundID(callID),
		Peers:   peers,
		Sender:  sender,
	}
}

// Codec converts messages to and from their wire form.
type Codec interface {
	Marshal(Message) ([]byte, error)
	Unmarshal([]byte, *Message) error

	// ContentType is the media type of the marshaled form.
	ContentType() string
}
