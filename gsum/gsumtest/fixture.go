// Package gsumtest contains helpers for exercising [gsum.Round] values
// without a manager or transport.
package gsumtest

import (
	"fmt"

	"github.com/gordian-engine/gorvote/gsum"
)

// Fixture is a set of rounds with the same identifier,
// one per simulated consensor, wired together in memory.
type Fixture struct {
	Addrs  []string
	Rounds []*gsum.Round
}

// PeerAddr returns the deterministic address of the i'th fixture peer.
func PeerAddr(i int) string {
	return fmt.Sprintf("127.0.0.1:%d", 9000+i)
}

// NewFixture returns a fixture of n consensors all participating in round id.
// Every round shares cfg.
func NewFixture(n int, id gsum.RoundID, cfg gsum.RoundConfig) *Fixture {
	addrs := make([]string, n)
	for i := range addrs {
		addrs[i] = PeerAddr(i)
	}

	rounds := make([]*gsum.Round, n)
	for i := range rounds {
		rounds[i] = gsum.NewRound(id, addrs[i], addrs, cfg)
	}

	return &Fixture{Addrs: addrs, Rounds: rounds}
}

// Index returns the fixture index of addr, panicking if it is unknown.
func (f *Fixture) Index(addr string) int {
	for i, a := range f.Addrs {
		if a == addr {
			return i
		}
	}
	panic(fmt.Errorf("address %q not in fixture", addr))
}

// SetVotes sets every round's own vote and delivers the resulting shares.
// len(votes) must equal the number of fixture peers.
func (f *Fixture) SetVotes(votes ...gsum.Vote) {
	if len(votes) != len(f.Rounds) {
		panic(fmt.Errorf("got %d votes for %d peers", len(votes), len(f.Rounds)))
	}

	for i, r := range f.Rounds {
		own := r.SetOwnVote(votes[i])
		for peer, share := range own.SharesByPeer {
			f.Rounds[f.Index(peer)].RecordPeerValue(f.Addrs[i], share)
		}
	}
}

// ExchangeCommitments delivers every computed commitment to every other peer.
func (f *Fixture) ExchangeCommitments() {
	for i, r := range f.Rounds {
		c, ok := r.Commit()
		if !ok {
			continue
		}
		for j, other := range f.Rounds {
			if j != i {
				other.RecordPeerCommitment(f.Addrs[i], c)
			}
		}
	}
}

// ExchangeReveals delivers every available reveal to every other peer,
// first passing it through tamper when tamper is non-nil.
func (f *Fixture) ExchangeReveals(tamper func(from, to int, reveal string) string) {
	for i, r := range f.Rounds {
		rev, ok := r.Reveal()
		if !ok {
			continue
		}
		for j, other := range f.Rounds {
			if j == i {
				continue
			}
			out := rev
			if tamper != nil {
				out = tamper(i, j, rev)
			}
			other.RecordPeerReveal(f.Addrs[i], out)
		}
	}
}

// Run drives every round through the full protocol
// and returns each consensor's result.
func (f *Fixture) Run(votes ...gsum.Vote) []gsum.Result {
	f.SetVotes(votes...)
	f.ExchangeCommitments()
	f.ExchangeReveals(nil)
	return f.Results()
}

// Results returns each consensor's current result.
func (f *Fixture) Results() []gsum.Result {
	out := make([]gsum.Result, len(f.Rounds))
	for i, r := range f.Rounds {
		out[i] = r.Result()
	}
	return out
}
