package gmanager

import (
	"github.com/gordian-engine/gorvote/gsum"
)

// Requests from Manager methods to the kernel.
// Every Resp channel is 1-buffered so the kernel never blocks on a reply.

type setupRequest struct {
	// Already validated and excluding self.
	Others []string

	Resp chan error
}

type submitRequest struct {
	Text string

	// Queue length after appending.
	Resp chan int
}

type voteRequest struct {
	ID   gsum.RoundID
	Vote gsum.Vote

	Resp chan error
}

type watchRequest struct {
	ID gsum.RoundID
	Fn func(gsum.Result)

	Resp chan struct{}
}

type summariesRequest struct {
	Debug bool

	Resp chan []gsum.RoundSummary
}

type statusRequest struct {
	Resp chan Status
}

// Status is a snapshot of the manager's top-level state.
type Status struct {
	Address string `json:"address"`
	Role    Role   `json:"role"`
	Mode    Mode   `json:"mode"`

	// Other consensors followed by the local address.
	// Empty in setup mode.
	Consensors []string `json:"consensors"`

	QueuedProposals int    `json:"queued_proposals"`
	TrackedRounds   int    `json:"tracked_rounds"`
	HashScheme      string `json:"hash_scheme"`
}
