package gmanager

import (
	"context"
	"errors"
	"log/slog"
	"slices"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/gordian-engine/gorvote/gmetrics"
	"github.com/gordian-engine/gorvote/gmsg"
	"github.com/gordian-engine/gorvote/gstore"
	"github.com/gordian-engine/gorvote/gsum"
	"github.com/gordian-engine/gorvote/gtransport"
	"github.com/gordian-engine/gorvote/internal/glog"
	"github.com/gordian-engine/gorvote/internal/gqueue"
)

// kernel owns all mutable manager state.
// Every field is only accessed from the mainLoop goroutine.
type kernel struct {
	log *slog.Logger

	self string
	role Role
	mode Mode

	// Other consensors, then self. Empty in setup mode.
	consensors []string

	rounds   *roundStore
	watchers map[gsum.RoundID][]func(gsum.Result)

	// Rounds touched since the last result check.
	dirty map[gsum.RoundID]struct{}

	proposals []string

	transport gtransport.Transport
	store     gstore.ResultStore
	metrics   *gmetrics.Metrics
	clock     clock.Clock
	hashName  string

	callInterval   time.Duration
	roundRetention time.Duration

	lastActivity time.Time

	onProposalProcess func(ProposalProcessStart)
	newCallID         func() string

	ch kernelChannels

	// Created with the kernel rather than in mainLoop,
	// so a mock clock advanced right after NewManager still fires it.
	ticker *clock.Ticker

	done chan struct{}
}

type kernelChannels struct {
	Inbound *gqueue.Queue[gmsg.Message]

	SetupRequests     <-chan setupRequest
	SubmitRequests    <-chan submitRequest
	VoteRequests      <-chan voteRequest
	WatchRequests     <-chan watchRequest
	SummariesRequests <-chan summariesRequest
	StatusRequests    <-chan statusRequest
}

func newKernel(log *slog.Logger, cfg Config, ch kernelChannels, others []string) *kernel {
	k := &kernel{
		log: log,

		self: cfg.Address,
		role: cfg.Role,
		mode: ModeSetup,

		rounds: newRoundStore(cfg.Address, gsum.RoundConfig{
			HashScheme: cfg.HashScheme,
			Random:     cfg.Random,
		}),
		watchers: make(map[gsum.RoundID][]func(gsum.Result)),
		dirty:    make(map[gsum.RoundID]struct{}),

		transport: cfg.Transport,
		store:     cfg.ResultStore,
		metrics:   cfg.Metrics,
		clock:     cfg.Clock,
		hashName:  cfg.HashScheme.Name(),

		callInterval:   cfg.CallInterval,
		roundRetention: cfg.RoundRetention,

		lastActivity: cfg.Clock.Now(),

		onProposalProcess: cfg.OnProposalProcess,
		newCallID:         cfg.NewCallID,

		ch: ch,

		ticker: cfg.Clock.Ticker(cfg.PollInterval),

		done: make(chan struct{}),
	}

	if others != nil {
		k.setConsensors(others)
	}

	return k
}

func (k *kernel) mainLoop(ctx context.Context) {
	defer close(k.done)
	defer k.ticker.Stop()

	for {
		if k.mode == ModeConsensing {
			k.step(ctx)
		}

		// Only accept inbound traffic once the consensor set is known.
		var inboundReady <-chan struct{}
		if k.mode == ModeConsensing {
			inboundReady = k.ch.Inbound.Ready()
		}

		select {
		case <-ctx.Done():
			k.log.Info(
				"Stopping due to context cancellation",
				"cause", context.Cause(ctx),
			)
			return

		case <-inboundReady:
			// Drained at the top of the loop.

		case <-k.ticker.C:
			// Periodic work happens at the top of the loop.

		case req := <-k.ch.SetupRequests:
			req.Resp <- k.handleSetup(req.Others)

		case req := <-k.ch.SubmitRequests:
			k.proposals = append(k.proposals, req.Text)
			k.log.Info("Queued proposal", "queued", len(k.proposals))
			req.Resp <- len(k.proposals)

		case req := <-k.ch.VoteRequests:
			req.Resp <- k.handleVote(ctx, req.ID, req.Vote)

		case req := <-k.ch.WatchRequests:
			k.handleWatch(ctx, req.ID, req.Fn)
			req.Resp <- struct{}{}

		case req := <-k.ch.SummariesRequests:
			req.Resp <- k.summaries(req.Debug)

		case req := <-k.ch.StatusRequests:
			req.Resp <- k.status()
		}
	}
}

// step runs one pass of the kernel's work:
// apply queued messages, advance and check touched rounds,
// start a proposal call if due, and archive expired rounds.
func (k *kernel) step(ctx context.Context) {
	for _, msg := range k.ch.Inbound.Drain() {
		k.lastActivity = k.clock.Now()
		k.dispatch(ctx, msg)
	}

	k.advanceDirty(ctx)

	if k.role == RoleProposer && k.clock.Since(k.lastActivity) >= k.callInterval {
		k.startProposalCall(ctx)
		k.advanceDirty(ctx)
	}

	k.archiveExpired(ctx)

	k.metrics.SetRoundsTracked(k.rounds.Len())
}

func (k *kernel) setConsensors(others []string) {
	k.consensors = append(slices.Clone(others), k.self)
	k.mode = ModeConsensing
	k.lastActivity = k.clock.Now()
}

func (k *kernel) handleSetup(others []string) error {
	if k.mode == ModeConsensing {
		return ErrAlreadyConsensing
	}

	k.setConsensors(others)
	k.log.Info("Consensor set configured", "consensors", k.consensors)
	return nil
}

// dispatch applies one inbound message.
func (k *kernel) dispatch(ctx context.Context, msg gmsg.Message) {
	id := msg.RoundID

	e, ok := k.rounds.Get(id)
	if !ok {
		if k.isArchived(ctx, id) {
			k.log.Debug("Dropping message for archived round", "round", id, "peer", msg.Sender)
			k.metrics.MessageDropped("archived")
			return
		}

		// The first message for a round fixes its peer set.
		e = k.createRound(id, msg.Peers)
	}
	k.dirty[id] = struct{}{}

	switch msg.Type {
	case gmsg.MessageTypeProposalCall:
		k.metrics.MessageHandled("proposal_call")

	case gmsg.MessageTypeRound:
		k.applyPayload(msg, e.round)
	}

	if id.Kind == gsum.RoundKindProposalCall {
		// Round traffic for a call may overtake the call itself,
		// so any message for the call's round counts as the call.
		e.callWatched = true
		if !e.round.HasOwnVote() {
			k.respondToProposalCall(ctx, e.round)
		}
	}
}

func (k *kernel) applyPayload(msg gmsg.Message, r *gsum.Round) {
	kind := msg.Payload()
	k.metrics.MessageHandled(kind.String())

	switch kind {
	case gmsg.PayloadMaskedValue:
		if !r.RecordPeerValue(msg.Sender, *msg.MaskedValue) {
			k.log.Debug("Ignored masked value", "round", r.ID(), "peer", msg.Sender)
		}

	case gmsg.PayloadCommitment:
		recorded, held := r.RecordPeerCommitment(msg.Sender, msg.Commitment)
		if !recorded {
			k.log.Debug("Ignored commitment", "round", r.ID(), "peer", msg.Sender)
			return
		}
		if held != 0 {
			k.logRevealStatus(r, msg.Sender, held)
		}

	case gmsg.PayloadReveal:
		k.logRevealStatus(r, msg.Sender, r.RecordPeerReveal(msg.Sender, *msg.Reveal))
	}
}

func (k *kernel) logRevealStatus(r *gsum.Round, peer string, s gsum.RevealStatus) {
	switch s {
	case gsum.RevealAccepted:
		// Normal case.
	case gsum.RevealRejected:
		k.metrics.RevealRejected()
		k.log.Warn(
			"Peer reveal does not match its commitment; round cannot resolve until a matching reveal arrives",
			"round", r.ID(), "peer", peer,
		)
	default:
		k.log.Debug("Reveal not applied", "round", r.ID(), "peer", peer, "status", s)
	}
}

func (k *kernel) createRound(id gsum.RoundID, peers []string) *roundEntry {
	e, created := k.rounds.GetOrCreate(id, peers)
	if created {
		k.metrics.RoundCreated()
		k.log.Debug("Created round", "round", id, "peers", len(e.round.Others())+1)
	}
	return e
}

// isArchived reports whether a result for id is already in the result store.
func (k *kernel) isArchived(ctx context.Context, id gsum.RoundID) bool {
	_, err := k.store.LoadResult(ctx, id)
	if err == nil {
		return true
	}
	if !errors.Is(err, gstore.ErrResultNotFound) {
		k.log.Warn("Failed to check result store", "round", id, "err", err)
	}
	return false
}

// respondToProposalCall votes yes if there is anything queued to propose.
func (k *kernel) respondToProposalCall(ctx context.Context, r *gsum.Round) {
	v := gsum.VoteNo
	if len(k.proposals) > 0 {
		v = gsum.VoteYes
	}

	k.castVote(ctx, r, v)
}

func (k *kernel) castVote(ctx context.Context, r *gsum.Round, v gsum.Vote) {
	own := r.SetOwnVote(v)

	peers := r.Peers()
	for _, p := range r.Others() {
		k.transport.Send(ctx, p, gmsg.NewMaskedValue(r.ID(), peers, k.self, own.SharesByPeer[p]))
	}
	k.dirty[r.ID()] = struct{}{}
}

func (k *kernel) handleVote(ctx context.Context, id gsum.RoundID, v gsum.Vote) error {
	if k.mode != ModeConsensing {
		return ErrNotConsensing
	}

	e, ok := k.rounds.Get(id)
	if !ok {
		if k.isArchived(ctx, id) {
			return ErrRoundArchived
		}
		e = k.createRound(id, k.consensors)
	}

	if e.round.HasOwnVote() {
		return ErrAlreadyVoted
	}

	k.castVote(ctx, e.round, v)
	k.log.Info("Cast local vote", "round", id)

	k.advanceDirty(ctx)
	return nil
}

// advanceDirty sends any newly available commitment or reveal
// for every touched round, then checks for result changes.
func (k *kernel) advanceDirty(ctx context.Context) {
	for id := range k.dirty {
		delete(k.dirty, id)

		e, ok := k.rounds.Get(id)
		if !ok {
			continue
		}

		k.advancePhases(ctx, e.round)
		k.checkResult(e)
	}
}

func (k *kernel) advancePhases(ctx context.Context, r *gsum.Round) {
	if !r.CommitmentSent() {
		if c, ok := r.Commit(); ok {
			k.broadcast(ctx, r, gmsg.NewCommitment(r.ID(), r.Peers(), k.self, c))
			r.MarkCommitmentSent()
			k.log.Debug("Sent commitment", "round", r.ID(), "commitment", glog.Hex(c))
		}
	}

	if !r.RevealSent() {
		if rev, ok := r.Reveal(); ok {
			k.broadcast(ctx, r, gmsg.NewReveal(r.ID(), r.Peers(), k.self, rev))
			r.MarkRevealSent()
			k.log.Debug("Sent reveal", "round", r.ID())
		}
	}
}

func (k *kernel) broadcast(ctx context.Context, r *gsum.Round, msg gmsg.Message) {
	for _, p := range r.Others() {
		k.transport.Send(ctx, p, msg)
	}
}

func (k *kernel) startProposalCall(ctx context.Context) {
	callID := k.newCallID()
	msg := gmsg.NewProposalCall(callID, slices.Clone(k.consensors), k.self)

	k.log.Info("Starting proposal call", "call_id", callID)
	k.metrics.ProposalCallStarted()

	for _, p := range k.consensors {
		if p != k.self {
			k.transport.Send(ctx, p, msg)
		}
	}

	k.lastActivity = k.clock.Now()
	k.dispatch(ctx, msg)

	if k.log.Enabled(ctx, slog.LevelDebug) {
		for _, s := range k.summaries(true) {
			k.log.Debug(
				"Round summary",
				"round", s.ID,
				"phase", s.Phase,
				"result", s.Result,
				"missing", s.Missing,
			)
		}
	}
}

// archiveExpired moves rounds resolved longer than the retention window
// into the result store.
func (k *kernel) archiveExpired(ctx context.Context) {
	cutoff := k.clock.Now().Add(-k.roundRetention)
	for _, id := range k.rounds.Expired(cutoff) {
		e, _ := k.rounds.Get(id)

		err := k.store.SaveResult(ctx, gstore.RoundResult{
			RoundID:    id,
			Result:     e.lastResult,
			Peers:      e.round.Peers(),
			ResolvedAt: e.resolvedAt,
		})
		if err != nil {
			// Keep it in memory and try again on the next pass.
			k.log.Warn("Failed to archive round", "round", id, "err", err)
			continue
		}

		k.rounds.Delete(id)
		k.metrics.RoundArchived()
		k.log.Debug("Archived round", "round", id)
	}
}

func (k *kernel) summaries(debug bool) []gsum.RoundSummary {
	var out []gsum.RoundSummary
	for _, id := range k.rounds.SortedIDs() {
		if !debug && id.Kind != gsum.RoundKindExternal {
			continue
		}
		e, _ := k.rounds.Get(id)
		out = append(out, e.round.Summary())
	}
	return out
}

func (k *kernel) status() Status {
	return Status{
		Address: k.self,
		Role:    k.role,
		Mode:    k.mode,

		Consensors: slices.Clone(k.consensors),

		QueuedProposals: len(k.proposals),
		TrackedRounds:   k.rounds.Len(),
		HashScheme:      k.hashName,
	}
}
