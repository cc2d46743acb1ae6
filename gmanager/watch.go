package gmanager

import (
	"context"

	"github.com/gordian-engine/gorvote/gsum"
)

// Continuations run on the kernel goroutine
// when a round's result changes from unknown to resolved.
// Each registration fires at most once and is removed when it fires.

func (k *kernel) handleWatch(ctx context.Context, id gsum.RoundID, fn func(gsum.Result)) {
	e, ok := k.rounds.Get(id)
	if ok && e.lastResult.Resolved() {
		fn(e.lastResult)
		return
	}

	if !ok {
		if rr, err := k.store.LoadResult(ctx, id); err == nil {
			fn(rr.Result)
			return
		}
	}

	k.watchers[id] = append(k.watchers[id], fn)
}

// checkResult fires continuations when the round's result changes.
func (k *kernel) checkResult(e *roundEntry) {
	res := e.round.Result()
	if res == e.lastResult {
		return
	}

	e.lastResult = res
	if !res.Resolved() {
		return
	}

	id := e.round.ID()
	e.resolvedAt = k.clock.Now()
	k.metrics.RoundResolved(res)
	k.log.Info("Round resolved", "round", id, "result", res)

	if e.callWatched {
		e.callWatched = false
		k.onProposalCallResolved(id, res)
	}

	if fns, ok := k.watchers[id]; ok {
		delete(k.watchers, id)
		for _, fn := range fns {
			fn(res)
		}
	}
}

func (k *kernel) onProposalCallResolved(id gsum.RoundID, res gsum.Result) {
	if res != gsum.ResultYes {
		k.log.Debug("Proposal call resolved with nothing to propose", "call_id", id.CallID)
		return
	}

	k.beginProposalProcess(id.CallID)
}

// beginProposalProcess reports that at least one consensor has a proposal.
// Transmitting the proposal content happens outside the manager.
func (k *kernel) beginProposalProcess(callID string) {
	start := ProposalProcessStart{CallID: callID}
	if len(k.proposals) > 0 {
		start.Proposal = k.proposals[0]
		start.HasProposal = true
	}

	k.log.Info(
		"Beginning proposal process",
		"call_id", callID,
		"has_local_proposal", start.HasProposal,
	)

	if k.onProposalProcess != nil {
		k.onProposalProcess(start)
	}
}
