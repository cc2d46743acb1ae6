package gmanager

import (
	"slices"
	"strings"
	"time"

	"github.com/gordian-engine/gorvote/gsum"
)

// roundStore holds every round the kernel is tracking.
// It is owned by the kernel goroutine.
type roundStore struct {
	self string
	cfg  gsum.RoundConfig

	entries map[gsum.RoundID]*roundEntry
}

type roundEntry struct {
	round *gsum.Round

	// The result as of the last observation,
	// used to detect the transition out of unknown.
	lastResult gsum.Result
	resolvedAt time.Time

	// Whether the proposal-call continuation is registered.
	callWatched bool
}

func newRoundStore(self string, cfg gsum.RoundConfig) *roundStore {
	return &roundStore{
		self:    self,
		cfg:     cfg,
		entries: make(map[gsum.RoundID]*roundEntry),
	}
}

func (s *roundStore) Get(id gsum.RoundID) (*roundEntry, bool) {
	e, ok := s.entries[id]
	return e, ok
}

// GetOrCreate returns the entry for id,
// creating a round over peers if it does not exist.
// The peer set of an existing round is never changed.
func (s *roundStore) GetOrCreate(id gsum.RoundID, peers []string) (e *roundEntry, created bool) {
	if e, ok := s.entries[id]; ok {
		return e, false
	}

	e = &roundEntry{
		round: gsum.NewRound(id, s.self, peers, s.cfg),
	}
	s.entries[id] = e
	return e, true
}

func (s *roundStore) Len() int { return len(s.entries) }

// Expired returns the IDs of rounds resolved at or before cutoff.
func (s *roundStore) Expired(cutoff time.Time) []gsum.RoundID {
	var out []gsum.RoundID
	for id, e := range s.entries {
		if e.lastResult.Resolved() && !e.resolvedAt.After(cutoff) {
			out = append(out, id)
		}
	}
	return out
}

func (s *roundStore) Delete(id gsum.RoundID) {
	delete(s.entries, id)
}

// SortedIDs returns every tracked round ID, ordered by text form.
func (s *roundStore) SortedIDs() []gsum.RoundID {
	ids := make([]gsum.RoundID, 0, len(s.entries))
	for id := range s.entries {
		ids = append(ids, id)
	}
	slices.SortFunc(ids, func(a, b gsum.RoundID) int {
		return strings.Compare(a.String(), b.String())
	})
	return ids
}
