package gsum

import (
	"bytes"
	"encoding/hex"
	"errors"
	"fmt"
	"maps"
	"slices"
	"strconv"
	"strings"

	"github.com/bits-and-blooms/bitset"
)

// Round is one instance of the secure-sum OR-vote protocol,
// as seen by a single consensor.
//
// A Round performs no I/O and holds no locks.
// The caller is responsible for delivering the values returned from
// [*Round.SetOwnVote], [*Round.Commit], and [*Round.Reveal] to the other peers,
// and for serializing access to the Round.
type Round struct {
	id   RoundID
	self string

	// Sorted, deduplicated, and never containing self.
	others  []string
	peerIdx map[string]int

	hs  HashScheme
	rng RandomSource

	own *OwnVote

	values     map[string]int64
	valuesSeen *bitset.BitSet

	// Set together on the first successful Commit.
	sum        int64
	commitment []byte
	reveal     string

	commitments map[string][]byte
	commitsSeen *bitset.BitSet

	// Reveals that arrived before the sender's commitment.
	pendingReveals map[string]string

	revealedSums map[string]int64
	revealsSeen  *bitset.BitSet

	commitmentSent bool
	revealSent     bool
}

// RoundConfig holds the dependencies of a [*Round].
// Zero fields are replaced with production defaults.
type RoundConfig struct {
	HashScheme HashScheme
	Random     RandomSource
}

// OwnVote is the result of [*Round.SetOwnVote].
type OwnVote struct {
	Vote Vote

	// The local consensor's blinded contribution.
	Value int64

	// The share to send to each other peer, keyed by peer address.
	SharesByPeer map[string]int64
}

// NewRound returns a new round for the given identifier.
// The set of other peers is peers without self, deduplicated,
// and it never changes for the life of the round.
func NewRound(id RoundID, self string, peers []string, cfg RoundConfig) *Round {
	if cfg.HashScheme == nil {
		cfg.HashScheme = SHA256HashScheme{}
	}
	if cfg.Random == nil {
		cfg.Random = NewCryptoRandomSource()
	}

	others := make([]string, 0, len(peers))
	for _, p := range peers {
		if p != self {
			others = append(others, p)
		}
	}
	slices.Sort(others)
	others = slices.Compact(others)

	peerIdx := make(map[string]int, len(others))
	for i, p := range others {
		peerIdx[p] = i
	}

	n := uint(len(others))
	return &Round{
		id:   id,
		self: self,

		others:  others,
		peerIdx: peerIdx,

		hs:  cfg.HashScheme,
		rng: cfg.Random,

		values:     make(map[string]int64, len(others)),
		valuesSeen: bitset.New(n),

		commitments: make(map[string][]byte, len(others)),
		commitsSeen: bitset.New(n),

		pendingReveals: make(map[string]string),

		revealedSums: make(map[string]int64, len(others)),
		revealsSeen:  bitset.New(n),
	}
}

func (r *Round) ID() RoundID { return r.id }

// Self is the local consensor's address.
func (r *Round) Self() string { return r.self }

// Others returns a copy of the sorted addresses of the other peers.
func (r *Round) Others() []string { return slices.Clone(r.others) }

// Peers returns every participant including self,
// in the form carried on outgoing messages.
func (r *Round) Peers() []string {
	out := make([]string, 0, len(r.others)+1)
	out = append(out, r.others...)
	return append(out, r.self)
}

// SetOwnVote sets the local vote and computes the blinded values.
//
// If the vote was already set, the stored OwnVote is returned unchanged
// regardless of the vote argument.
//
// One share is drawn per other peer, and the whole batch is redrawn
// until the magnitude of its sum is at most ShareWidth.
// That bound keeps the final "yes" offset from being lost to overflowing noise.
// The own value is the negated share sum for a "no" vote,
// and the negated share sum plus the magnitude of one more share for a "yes" vote.
func (r *Round) SetOwnVote(v Vote) OwnVote {
	if r.own != nil {
		return r.own.clone()
	}

	shares := make([]int64, len(r.others))
	var total int64
	for {
		total = 0
		for i := range shares {
			shares[i] = r.rng.Share()
			total += shares[i]
		}
		if abs(total) <= ShareWidth {
			break
		}
	}

	noValue := -total
	value := noValue
	if v == VoteYes {
		value = noValue + abs(r.rng.Share())
	}

	byPeer := make(map[string]int64, len(shares))
	for i, p := range r.others {
		byPeer[p] = shares[i]
	}

	r.own = &OwnVote{
		Vote:         v,
		Value:        value,
		SharesByPeer: byPeer,
	}
	return r.own.clone()
}

// OwnVote returns the stored vote and whether it has been set.
func (r *Round) OwnVote() (OwnVote, bool) {
	if r.own == nil {
		return OwnVote{}, false
	}
	return r.own.clone(), true
}

// HasOwnVote reports whether [*Round.SetOwnVote] has been called.
func (r *Round) HasOwnVote() bool { return r.own != nil }

// RecordPeerValue records the masked value that peer sent to us.
// Only the first value for a peer is kept.
// The return value reports whether the value was recorded.
func (r *Round) RecordPeerValue(peer string, value int64) bool {
	i, ok := r.peerIdx[peer]
	if !ok || r.valuesSeen.Test(uint(i)) {
		return false
	}

	r.values[peer] = value
	r.valuesSeen.Set(uint(i))
	return true
}

// ReadyToCommit reports whether the own vote is set
// and every other peer's masked value has arrived.
func (r *Round) ReadyToCommit() bool {
	return r.own != nil && r.valuesSeen.Count() == uint(len(r.others))
}

// Commit returns the commitment to the local partial sum,
// computing it on the first call after the round is ready to commit.
// Before then, it returns nil and false.
func (r *Round) Commit() ([]byte, bool) {
	if r.commitment != nil {
		return bytes.Clone(r.commitment), true
	}
	if !r.ReadyToCommit() {
		return nil, false
	}

	sum := r.own.Value
	for _, p := range r.others {
		sum += r.values[p]
	}

	r.sum = sum
	r.reveal = hex.EncodeToString(r.rng.Salt()) + ":" + strconv.FormatInt(sum, 10)
	r.commitment = r.hs.Sum([]byte(r.reveal))

	return bytes.Clone(r.commitment), true
}

// RecordPeerCommitment records the commitment that peer sent to us.
// Only the first commitment for a peer is kept.
//
// If a reveal from the same peer arrived before its commitment,
// the reveal is validated now, and its status is returned as held.
// Otherwise held is the zero RevealStatus.
func (r *Round) RecordPeerCommitment(peer string, commitment []byte) (recorded bool, held RevealStatus) {
	i, ok := r.peerIdx[peer]
	if !ok || r.commitsSeen.Test(uint(i)) {
		return false, 0
	}

	r.commitments[peer] = bytes.Clone(commitment)
	r.commitsSeen.Set(uint(i))

	if reveal, ok := r.pendingReveals[peer]; ok {
		delete(r.pendingReveals, peer)
		held = r.applyReveal(i, peer, reveal)
	}
	return true, held
}

// ReadyToReveal reports whether the local commitment has been computed
// and every other peer's commitment has arrived.
func (r *Round) ReadyToReveal() bool {
	return r.commitment != nil && r.commitsSeen.Count() == uint(len(r.others))
}

// Reveal returns the preimage of the local commitment,
// once the round is ready to reveal.
// Before then, it returns the empty string and false.
func (r *Round) Reveal() (string, bool) {
	if !r.ReadyToReveal() {
		return "", false
	}
	return r.reveal, true
}

// RevealStatus is the outcome of recording a peer's reveal.
type RevealStatus uint8

const (
	_ RevealStatus = iota // Invalid, or nothing happened.

	// The reveal matched the commitment and its sum was recorded.
	RevealAccepted

	// The reveal did not hash to the peer's commitment,
	// or its sum could not be parsed.
	// Nothing was recorded and the peer may still send a valid reveal.
	RevealRejected

	// A sum for this peer was already recorded, or a reveal is already held.
	RevealRedundant

	// The sender is not part of this round.
	RevealUnknownPeer

	// The peer's commitment has not arrived yet.
	// The reveal is held and validated when the commitment arrives.
	RevealPending
)

func (s RevealStatus) String() string {
	switch s {
	case RevealAccepted:
		return "accepted"
	case RevealRejected:
		return "rejected"
	case RevealRedundant:
		return "redundant"
	case RevealUnknownPeer:
		return "unknown_peer"
	case RevealPending:
		return "pending"
	default:
		return fmt.Sprintf("RevealStatus(%d)", uint8(s))
	}
}

// RecordPeerReveal records the reveal that peer sent to us,
// only if it hashes to the commitment previously received from that peer.
func (r *Round) RecordPeerReveal(peer, reveal string) RevealStatus {
	i, ok := r.peerIdx[peer]
	if !ok {
		return RevealUnknownPeer
	}
	if r.revealsSeen.Test(uint(i)) {
		return RevealRedundant
	}

	if !r.commitsSeen.Test(uint(i)) {
		if _, held := r.pendingReveals[peer]; held {
			return RevealRedundant
		}
		r.pendingReveals[peer] = reveal
		return RevealPending
	}

	return r.applyReveal(i, peer, reveal)
}

func (r *Round) applyReveal(i int, peer, reveal string) RevealStatus {
	if !bytes.Equal(r.hs.Sum([]byte(reveal)), r.commitments[peer]) {
		return RevealRejected
	}

	sum, err := parseRevealSum(reveal)
	if err != nil {
		// The peer committed to garbage; it can never be counted.
		return RevealRejected
	}

	r.revealedSums[peer] = sum
	r.revealsSeen.Set(uint(i))
	return RevealAccepted
}

var errMalformedReveal = errors.New("malformed reveal")

// parseRevealSum returns the integer after the final colon of a reveal.
func parseRevealSum(reveal string) (int64, error) {
	colon := strings.LastIndexByte(reveal, ':')
	if colon < 0 {
		return 0, errMalformedReveal
	}
	sum, err := strconv.ParseInt(reveal[colon+1:], 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %w", errMalformedReveal, err)
	}
	return sum, nil
}

// Result returns [ResultUnknown] until the local reveal exists
// and every other peer's validated sum has been recorded.
// Then it returns [ResultNo] if the grand total is exactly zero,
// and [ResultYes] otherwise.
func (r *Round) Result() Result {
	if !r.ReadyToReveal() {
		return ResultUnknown
	}
	if r.revealsSeen.Count() != uint(len(r.others)) {
		return ResultUnknown
	}

	total := r.sum
	for _, p := range r.others {
		total += r.revealedSums[p]
	}
	if total == 0 {
		return ResultNo
	}
	return ResultYes
}

// CommitmentSent reports whether [*Round.MarkCommitmentSent] was called.
func (r *Round) CommitmentSent() bool { return r.commitmentSent }

// MarkCommitmentSent records that the commitment was broadcast.
func (r *Round) MarkCommitmentSent() { r.commitmentSent = true }

// RevealSent reports whether [*Round.MarkRevealSent] was called.
func (r *Round) RevealSent() bool { return r.revealSent }

// MarkRevealSent records that the reveal was broadcast.
func (r *Round) MarkRevealSent() { r.revealSent = true }

func (v OwnVote) clone() OwnVote {
	v.SharesByPeer = maps.Clone(v.SharesByPeer)
	return v
}

func abs(n int64) int64 {
	if n < 0 {
		return -n
	}
	return n
}
