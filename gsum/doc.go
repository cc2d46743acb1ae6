// Package gsum contains the secure-sum OR-vote algorithm
// that a set of consensors runs for a single round.
//
// Every consensor holds a private vote.
// When a consensor sets its vote on a [*Round],
// it blinds the vote with one random share per other peer,
// and the shares are chosen so that they cancel out exactly
// once every peer has added up everything it received.
// A "yes" vote additionally adds a nonzero positive offset.
// The grand total across all peers is therefore zero
// if and only if every peer voted "no"
// (up to a collision probability of roughly 1/(2*[ShareWidth]+1)).
//
// Revealing partial sums in the clear would allow the last peer to reveal
// to choose its sum after seeing everyone else's,
// and so flip the outcome.
// To prevent that, each peer first broadcasts a commitment,
// the [HashScheme] digest of a random salt and its partial sum,
// and only reveals the preimage after it has received every other commitment.
// A reveal that does not match its commitment is never counted,
// which leaves the round unresolved rather than resolved incorrectly.
//
// Types in this package hold no locks and perform no I/O.
// The round manager in package gmanager owns every [*Round]
// from a single goroutine.
package gsum
