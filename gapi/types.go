package gapi

import (
	"time"

	"github.com/gordian-engine/gorvote/gstore"
	"github.com/gordian-engine/gorvote/gsum"
)

// Request and response bodies of the operator API.
// The gapiclient package uses these same types.

type SetupPeersRequest struct {
	Peers []string `json:"peers"`
}

type SubmitProposalRequest struct {
	Text string `json:"text"`
}

type SubmitProposalResponse struct {
	Queued int `json:"queued"`
}

// VoteRequest identifies the round either by its text form in Round,
// or by proposal text in Proposal, which selects an external round.
type VoteRequest struct {
	Round    string    `json:"round,omitempty"`
	Proposal string    `json:"proposal,omitempty"`
	Vote     gsum.Vote `json:"vote"`
}

type RoundSummary struct {
	Round   string      `json:"round"`
	Kind    string      `json:"kind"`
	Phase   gsum.Phase  `json:"phase"`
	Result  gsum.Result `json:"result"`
	OwnVote string      `json:"own_vote,omitempty"`

	Peers       int `json:"peers"`
	Values      int `json:"values"`
	Commitments int `json:"commitments"`
	Reveals     int `json:"reveals"`

	Missing []string `json:"missing,omitempty"`
}

type RoundResult struct {
	Round      string      `json:"round"`
	Result     gsum.Result `json:"result"`
	Peers      []string    `json:"peers"`
	ResolvedAt time.Time   `json:"resolved_at"`
}

type ErrorResponse struct {
	Error string `json:"error"`
}

func toRoundSummary(s gsum.RoundSummary) RoundSummary {
	out := RoundSummary{
		Round:  s.ID.String(),
		Kind:   s.ID.Kind.String(),
		Phase:  s.Phase,
		Result: s.Result,

		Peers:       s.Peers,
		Values:      s.Values,
		Commitments: s.Commitments,
		Reveals:     s.Reveals,

		Missing: s.Missing,
	}
	if s.OwnVote != 0 {
		out.OwnVote = s.OwnVote.String()
	}
	return out
}

func toRoundResult(r gstore.RoundResult) RoundResult {
	return RoundResult{
		Round:      r.RoundID.String(),
		Result:     r.Result,
		Peers:      r.Peers,
		ResolvedAt: r.ResolvedAt,
	}
}
