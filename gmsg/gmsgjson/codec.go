// Package gmsgjson contains a [gmsg.Codec] that serializes to and from JSON.
//
// JSON is simple to work with and easy to read in logs and with curl,
// which matters more than throughput for a handful of consensors.
package gmsgjson

import (
	"encoding/json"
	"fmt"

	"github.com/gordian-engine/gorvote/gmsg"
	"github.com/gordian-engine/gorvote/gsum"
)

// Codec is the JSON [gmsg.Codec].
type Codec struct{}

var _ gmsg.Codec = Codec{}

// ContentType is the media type written by [Codec].
const ContentType = "application/json"

func (Codec) ContentType() string { return ContentType }

type jsonRoundID struct {
	Kind   string `json:"kind"`
	CallID string `json:"call_id,omitempty"`
	Text   string `json:"text,omitempty"`
	Bit    int    `json:"bit,omitempty"`
}

type jsonMessage struct {
	Type    string      `json:"type"`
	RoundID jsonRoundID `json:"round_id"`
	Peers   []string    `json:"peers,omitempty"`
	Sender  string      `json:"sender"`

	MaskedValue *int64  `json:"masked_value,omitempty"`
	Commitment  []byte  `json:"commitment,omitempty"`
	Reveal      *string `json:"reveal,omitempty"`
}

func (Codec) Marshal(m gmsg.Message) ([]byte, error) {
	var typ string
	switch m.Type {
	case gmsg.MessageTypeRound:
		typ = "round"
	case gmsg.MessageTypeProposalCall:
		typ = "proposal_call"
	default:
		return nil, fmt.Errorf("cannot marshal message of type %s", m.Type)
	}

	jm := jsonMessage{
		Type: typ,
		RoundID: jsonRoundID{
			Kind:   m.RoundID.Kind.String(),
			CallID: m.RoundID.CallID,
			Text:   m.RoundID.Text,
			Bit:    m.RoundID.Bit,
		},
		Peers:  m.Peers,
		Sender: m.Sender,

		MaskedValue: m.MaskedValue,
		Commitment:  m.Commitment,
		Reveal:      m.Reveal,
	}
	return json.Marshal(jm)
}

// Unmarshal decodes b into m and validates the result.
func (Codec) Unmarshal(b []byte, m *gmsg.Message) error {
	var jm jsonMessage
	if err := json.Unmarshal(b, &jm); err != nil {
		return fmt.Errorf("%w: %w", gmsg.ErrInvalidMessage, err)
	}

	var out gmsg.Message
	switch jm.Type {
	case "round":
		out.Type = gmsg.MessageTypeRound
	case "proposal_call":
		out.Type = gmsg.MessageTypeProposalCall
	default:
		return fmt.Errorf("%w: unknown type %q", gmsg.ErrInvalidMessage, jm.Type)
	}

	kind, err := gsum.ParseRoundKind(jm.RoundID.Kind)
	if err != nil {
		return fmt.Errorf("%w: %w", gmsg.ErrInvalidMessage, err)
	}
	out.RoundID = gsum.RoundID{
		Kind:   kind,
		CallID: jm.RoundID.CallID,
		Text:   jm.RoundID.Text,
		Bit:    jm.RoundID.Bit,
	}

	out.Peers = jm.Peers
	out.Sender = jm.Sender
	out.MaskedValue = jm.MaskedValue
	out.Commitment = jm.Commitment
	out.Reveal = jm.Reveal

	if err := out.Validate(); err != nil {
		return err
	}

	*m = out
	return nil
}
