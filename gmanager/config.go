package gmanager

import (
	"fmt"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/gordian-engine/gorvote/gmetrics"
	"github.com/gordian-engine/gorvote/gstore"
	"github.com/gordian-engine/gorvote/gsum"
	"github.com/gordian-engine/gorvote/gtransport"
)

// Role decides whether a manager starts proposal calls.
type Role uint8

const (
	_ Role = iota // Invalid.

	// Answers proposal calls and participates in rounds.
	RoleResponder

	// Additionally starts a proposal call whenever the network is idle.
	RoleProposer
)

func (r Role) String() string {
	switch r {
	case RoleResponder:
		return "responder"
	case RoleProposer:
		return "proposer"
	default:
		return fmt.Sprintf("Role(%d)", uint8(r))
	}
}

// ParseRole parses a role name.
// "manager" is accepted as an alias for "proposer".
func ParseRole(s string) (Role, error) {
	switch s {
	case "responder", "consensor":
		return RoleResponder, nil
	case "proposer", "manager":
		return RoleProposer, nil
	default:
		return 0, fmt.Errorf("unknown role %q (want responder or proposer)", s)
	}
}

func (r Role) MarshalText() ([]byte, error) {
	if r != RoleResponder && r != RoleProposer {
		return nil, fmt.Errorf("cannot marshal invalid role %d", uint8(r))
	}
	return []byte(r.String()), nil
}

func (r *Role) UnmarshalText(b []byte) error {
	pr, err := ParseRole(string(b))
	if err != nil {
		return err
	}
	*r = pr
	return nil
}

// Mode is whether the consensor set has been configured yet.
type Mode uint8

const (
	_ Mode = iota // Invalid.

	// Waiting for [*Manager.SetupPeers].
	// Inbound messages stay queued until setup completes.
	ModeSetup

	// The consensor set is fixed and rounds are processed.
	ModeConsensing
)

func (m Mode) String() string {
	switch m {
	case ModeSetup:
		return "setup"
	case ModeConsensing:
		return "consensing"
	default:
		return fmt.Sprintf("Mode(%d)", uint8(m))
	}
}

func (m Mode) MarshalText() ([]byte, error) {
	if m != ModeSetup && m != ModeConsensing {
		return nil, fmt.Errorf("cannot marshal invalid mode %d", uint8(m))
	}
	return []byte(m.String()), nil
}

func (m *Mode) UnmarshalText(b []byte) error {
	switch string(b) {
	case "setup":
		*m = ModeSetup
	case "consensing":
		*m = ModeConsensing
	default:
		return fmt.Errorf("invalid mode %q", b)
	}
	return nil
}

// ProposalProcessStart is passed to [Config.OnProposalProcess]
// when a proposal call resolves to yes.
type ProposalProcessStart struct {
	CallID string

	// The head of the local outbound queue, if HasProposal is true.
	Proposal    string
	HasProposal bool
}

// Config holds the configuration required to start a [Manager].
type Config struct {
	// Address of the local consensor, as other consensors reach it.
	Address string

	Role Role

	// Other consensors' addresses.
	// If set, the manager starts in [ModeConsensing].
	// Otherwise it starts in [ModeSetup].
	Peers []string

	Transport gtransport.Transport

	// Defaults to [gsum.SHA256HashScheme].
	HashScheme gsum.HashScheme

	// Defaults to [gsum.NewCryptoRandomSource].
	Random gsum.RandomSource

	// Defaults to the wall clock.
	Clock clock.Clock

	// How often the kernel wakes without inbound traffic.
	PollInterval time.Duration

	// How long a proposer waits without inbound traffic
	// before starting a new proposal call.
	CallInterval time.Duration

	// How long a resolved round stays in memory
	// before it is archived to ResultStore.
	RoundRetention time.Duration

	// Defaults to an in-memory store.
	ResultStore gstore.ResultStore

	// May be nil.
	Metrics *gmetrics.Metrics

	// Called on the kernel goroutine when a proposal call resolves to yes.
	// It must not block or call back into the manager.
	// May be nil.
	OnProposalProcess func(ProposalProcessStart)

	// Generates proposal call IDs.
	// Defaults to a dashless random UUID.
	NewCallID func() string
}

// Default durations applied by [NewManager] for zero fields.
const (
	DefaultPollInterval   = 500 * time.Millisecond
	DefaultCallInterval   = 10 * time.Second
	DefaultRoundRetention = 10 * time.Minute
)
