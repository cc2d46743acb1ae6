// Package gmanager drives many concurrent secure-sum rounds for one consensor.
//
// A [Manager] owns every [gsum.Round] the consensor knows about.
// Inbound messages are queued by [*Manager.HandleMessage]
// and applied by a single kernel goroutine,
// which also sends this consensor's own contributions
// and advances each round through commit and reveal.
package gmanager

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/netip"
	"slices"
	"strings"

	"github.com/benbjohnson/clock"
	"github.com/google/uuid"
	"github.com/gordian-engine/gorvote/gmsg"
	"github.com/gordian-engine/gorvote/gstore"
	"github.com/gordian-engine/gorvote/gstore/gmemstore"
	"github.com/gordian-engine/gorvote/gsum"
	"github.com/gordian-engine/gorvote/internal/gchan"
	"github.com/gordian-engine/gorvote/internal/gqueue"
)

var (
	// ErrMalformedPeerAddress is returned from [*Manager.SetupPeers]
	// when an address is not an IP:port pair.
	ErrMalformedPeerAddress = errors.New("malformed peer address")

	// ErrAlreadyConsensing is returned from [*Manager.SetupPeers]
	// once the consensor set has been fixed.
	ErrAlreadyConsensing = errors.New("consensor set already configured")

	// ErrNotConsensing is returned from operations that need the consensor set.
	ErrNotConsensing = errors.New("consensor set not configured")

	// ErrProposalCallVote is returned when trying to vote manually on a proposal call.
	ErrProposalCallVote = errors.New("proposal call rounds are answered automatically")

	// ErrInvalidVote is returned from [*Manager.Vote] for a vote other than yes or no.
	ErrInvalidVote = errors.New("vote must be yes or no")

	// ErrAlreadyVoted is returned when the local vote on a round is already set.
	ErrAlreadyVoted = errors.New("already voted in round")

	// ErrRoundArchived is returned when the round has been resolved and evicted.
	ErrRoundArchived = errors.New("round already resolved and archived")

	// ErrStopped is returned from [*Manager.HandleMessage] after shutdown,
	// and from other methods if the context is cancelled.
	ErrStopped = errors.New("manager stopped")
)

// Manager is the round-lifecycle manager for one consensor.
//
// Manager methods are safe to call concurrently.
type Manager struct {
	log *slog.Logger

	k *kernel

	inbound *gqueue.Queue[gmsg.Message]

	setupRequests     chan<- setupRequest
	submitRequests    chan<- submitRequest
	voteRequests      chan<- voteRequest
	watchRequests     chan<- watchRequest
	summariesRequests chan<- summariesRequest
	statusRequests    chan<- statusRequest

	store gstore.ResultStore

	self string
}

// NewManager validates cfg and starts the manager's kernel goroutine.
//
// The manager runs until ctx is cancelled.
// Call [*Manager.Wait] to block until it has stopped.
func NewManager(ctx context.Context, log *slog.Logger, cfg Config) (*Manager, error) {
	if err := validateAddress(cfg.Address); err != nil {
		return nil, fmt.Errorf("invalid local address: %w", err)
	}
	if cfg.Role != RoleResponder && cfg.Role != RoleProposer {
		return nil, fmt.Errorf("invalid role %s", cfg.Role)
	}
	if cfg.Transport == nil {
		return nil, errors.New("transport required")
	}

	var others []string
	if len(cfg.Peers) > 0 {
		var err error
		others, err = normalizePeers(cfg.Address, cfg.Peers)
		if err != nil {
			return nil, err
		}
	}

	if cfg.HashScheme == nil {
		cfg.HashScheme = gsum.SHA256HashScheme{}
	}
	if cfg.Random == nil {
		cfg.Random = gsum.NewCryptoRandomSource()
	}
	if cfg.Clock == nil {
		cfg.Clock = clock.New()
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = DefaultPollInterval
	}
	if cfg.CallInterval <= 0 {
		cfg.CallInterval = DefaultCallInterval
	}
	if cfg.RoundRetention <= 0 {
		cfg.RoundRetention = DefaultRoundRetention
	}
	if cfg.ResultStore == nil {
		cfg.ResultStore = gmemstore.NewResultStore()
	}
	if cfg.NewCallID == nil {
		cfg.NewCallID = newCallID
	}

	inbound := gqueue.New[gmsg.Message]()

	// Callers block on the response regardless,
	// so there is no point in buffering these.
	setupRequests := make(chan setupRequest)
	submitRequests := make(chan submitRequest)
	voteRequests := make(chan voteRequest)
	watchRequests := make(chan watchRequest)
	summariesRequests := make(chan summariesRequest)
	statusRequests := make(chan statusRequest)

	k := newKernel(log.With("sys", "kernel"), cfg, kernelChannels{
		Inbound: inbound,

		SetupRequests:     setupRequests,
		SubmitRequests:    submitRequests,
		VoteRequests:      voteRequests,
		WatchRequests:     watchRequests,
		SummariesRequests: summariesRequests,
		StatusRequests:    statusRequests,
	}, others)
	go k.mainLoop(ctx)

	return &Manager{
		log: log,

		k: k,

		inbound: inbound,

		setupRequests:     setupRequests,
		submitRequests:    submitRequests,
		voteRequests:      voteRequests,
		watchRequests:     watchRequests,
		summariesRequests: summariesRequests,
		statusRequests:    statusRequests,

		store: cfg.ResultStore,

		self: cfg.Address,
	}, nil
}

// Wait blocks until the kernel goroutine has stopped.
// To begin shutdown, cancel the context passed to [NewManager].
func (m *Manager) Wait() {
	<-m.k.done
}

// HandleMessage queues msg for the kernel.
// It never blocks on the kernel.
//
// HandleMessage satisfies [gtransport.Sink].
func (m *Manager) HandleMessage(msg gmsg.Message) error {
	if err := msg.Validate(); err != nil {
		return err
	}

	select {
	case <-m.k.done:
		return ErrStopped
	default:
	}

	m.inbound.Push(msg)
	return nil
}

// SetupPeers fixes the consensor set and switches to [ModeConsensing].
//
// Every address must parse as an IP:port pair.
// If any address is malformed, the returned error wraps
// [ErrMalformedPeerAddress] and names the address, and nothing changes.
// The local address is removed from peers if present.
func (m *Manager) SetupPeers(ctx context.Context, peers []string) error {
	others, err := normalizePeers(m.self, peers)
	if err != nil {
		return err
	}

	req := setupRequest{
		Others: others,
		Resp:   make(chan error, 1),
	}
	err, ok := gchan.ReqResp(
		ctx, m.log,
		m.setupRequests, req,
		req.Resp,
		"SetupPeers",
	)
	if !ok {
		return ErrStopped
	}
	return err
}

// SubmitProposal appends text to the outbound proposal queue.
// While the queue is non-empty, this consensor answers yes to proposal calls.
// It returns the queue length after appending.
func (m *Manager) SubmitProposal(ctx context.Context, text string) (int, error) {
	if text == "" {
		return 0, errors.New("empty proposal")
	}

	req := submitRequest{
		Text: text,
		Resp: make(chan int, 1),
	}
	n, ok := gchan.ReqResp(
		ctx, m.log,
		m.submitRequests, req,
		req.Resp,
		"SubmitProposal",
	)
	if !ok {
		return 0, ErrStopped
	}
	return n, nil
}

// Vote casts the local vote on the round identified by id,
// creating the round over the current consensors if it is new,
// and sends a share to every other participant.
func (m *Manager) Vote(ctx context.Context, id gsum.RoundID, v gsum.Vote) error {
	if err := id.Validate(); err != nil {
		return err
	}
	if id.Kind == gsum.RoundKindProposalCall {
		return ErrProposalCallVote
	}
	if v != gsum.VoteYes && v != gsum.VoteNo {
		return fmt.Errorf("%w (got %s)", ErrInvalidVote, v)
	}

	req := voteRequest{
		ID:   id,
		Vote: v,
		Resp: make(chan error, 1),
	}
	err, ok := gchan.ReqResp(
		ctx, m.log,
		m.voteRequests, req,
		req.Resp,
		"Vote",
	)
	if !ok {
		return ErrStopped
	}
	return err
}

// Watch registers fn to be called exactly once,
// when the round identified by id reaches a final result.
// If the round is already resolved, fn is called before Watch returns.
//
// fn is called on the kernel goroutine.
// It must not block or call back into the manager.
func (m *Manager) Watch(ctx context.Context, id gsum.RoundID, fn func(gsum.Result)) error {
	if err := id.Validate(); err != nil {
		return err
	}
	if fn == nil {
		return errors.New("nil watch function")
	}

	req := watchRequest{
		ID:   id,
		Fn:   fn,
		Resp: make(chan struct{}, 1),
	}
	_, ok := gchan.ReqResp(
		ctx, m.log,
		m.watchRequests, req,
		req.Resp,
		"Watch",
	)
	if !ok {
		return ErrStopped
	}
	return nil
}

// Summaries returns a summary of every round held in memory,
// ordered by the text form of the round ID.
// Unless debug is set, only external rounds are included.
func (m *Manager) Summaries(ctx context.Context, debug bool) ([]gsum.RoundSummary, error) {
	req := summariesRequest{
		Debug: debug,
		Resp:  make(chan []gsum.RoundSummary, 1),
	}
	s, ok := gchan.ReqResp(
		ctx, m.log,
		m.summariesRequests, req,
		req.Resp,
		"Summaries",
	)
	if !ok {
		return nil, ErrStopped
	}
	return s, nil
}

// Status returns a snapshot of the manager's top-level state.
func (m *Manager) Status(ctx context.Context) (Status, error) {
	req := statusRequest{
		Resp: make(chan Status, 1),
	}
	s, ok := gchan.ReqResp(
		ctx, m.log,
		m.statusRequests, req,
		req.Resp,
		"Status",
	)
	if !ok {
		return Status{}, ErrStopped
	}
	return s, nil
}

// ArchivedResults returns the results of rounds
// that have been evicted from memory.
func (m *Manager) ArchivedResults(ctx context.Context) ([]gstore.RoundResult, error) {
	return m.store.ListResults(ctx)
}

func validateAddress(addr string) error {
	if _, err := netip.ParseAddrPort(addr); err != nil {
		return fmt.Errorf("%w %q: %w", ErrMalformedPeerAddress, addr, err)
	}
	return nil
}

// normalizePeers validates every address
// and returns them deduplicated in input order, without self.
func normalizePeers(self string, peers []string) ([]string, error) {
	out := make([]string, 0, len(peers))
	for _, p := range peers {
		p = strings.TrimSpace(p)
		if err := validateAddress(p); err != nil {
			return nil, err
		}
		if p == self || slices.Contains(out, p) {
			continue
		}
		out = append(out, p)
	}
	return out, nil
}

func newCallID() string {
	u := uuid.New()
	return strings.ReplaceAll(u.String(), "-", "")
}
