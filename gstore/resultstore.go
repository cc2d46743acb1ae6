// Package gstore defines storage for the outcomes of finished rounds.
//
// The manager keeps resolved rounds in memory for a retention window,
// then archives them to a [ResultStore] and forgets their state.
package gstore

import (
	"context"
	"errors"
	"slices"
	"strings"
	"time"

	"github.com/gordian-engine/gorvote/gsum"
)

// ErrResultNotFound is returned from [ResultStore.LoadResult]
// when no result exists for the requested round.
var ErrResultNotFound = errors.New("result not found")

// RoundResult is the archived outcome of a round.
type RoundResult struct {
	RoundID gsum.RoundID
	Result  gsum.Result

	// Every participant, including the local consensor.
	Peers []string

	ResolvedAt time.Time
}

// ResultStore stores and retrieves the results of rounds
// that the local consensor has resolved.
type ResultStore interface {
	// SaveResult stores r, replacing any previous result for the same round.
	SaveResult(ctx context.Context, r RoundResult) error

	// LoadResult returns the result for id,
	// or an error wrapping ErrResultNotFound.
	LoadResult(ctx context.Context, id gsum.RoundID) (RoundResult, error)

	// ListResults returns every stored result, ordered by ResolvedAt
	// and then by the text form of the round ID.
	ListResults(ctx context.Context) ([]RoundResult, error)
}

// SortResults sorts rs in the order required by [ResultStore.ListResults].
func SortResults(rs []RoundResult) {
	slices.SortFunc(rs, func(a, b RoundResult) int {
		if c := a.ResolvedAt.Compare(b.ResolvedAt); c != 0 {
			return c
		}
		return strings.Compare(a.RoundID.String(), b.RoundID.String())
	})
}
