// Package gconfig loads consensor configuration from a TOML file.
//
// Values absent from the file keep their [Default] values.
// Command line flags are applied on top by the caller.
package gconfig

import (
	"errors"
	"fmt"
	"log/slog"
	"net/netip"
	"slices"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	petname "github.com/dustinkirkland/golang-petname"
	"github.com/gordian-engine/gorvote/gmanager"
	"github.com/gordian-engine/gorvote/gsum"
	"github.com/gordian-engine/gorvote/gtransport/ghttp"
)

// MemoryResultStore is the ResultStore value selecting the in-memory store.
// Any other value is the path of a bbolt database file.
const MemoryResultStore = "memory"

type Config struct {
	// Name attached to every log line.
	// Generated when empty.
	NodeName string `toml:"node_name"`

	// The IP:port other consensors send messages to.
	Address string `toml:"address"`

	Role string `toml:"role"`

	// If set, the consensor starts in consensing mode with these peers.
	// Otherwise it waits for peers to be set through the operator API.
	Peers []string `toml:"peers"`

	HashScheme string `toml:"hash_scheme"`

	PollInterval   time.Duration `toml:"poll_interval"`
	CallInterval   time.Duration `toml:"call_interval"`
	RoundRetention time.Duration `toml:"round_retention"`

	// The TCP address serving peer messages and the operator API.
	// Defaults to Address.
	HTTPListen string `toml:"http_listen"`

	// Optional unix socket path serving only the operator API.
	OperatorSocket string `toml:"operator_socket"`

	ResultStore string `toml:"result_store"`

	MaxConcurrentSends int           `toml:"max_concurrent_sends"`
	SendTimeout        time.Duration `toml:"send_timeout"`

	LogLevel  string `toml:"log_level"`
	LogFormat string `toml:"log_format"`
}

func Default() Config {
	cc := ghttp.DefaultClientConfig()
	return Config{
		NodeName: petname.Generate(2, "-"),

		Role:       gmanager.RoleResponder.String(),
		HashScheme: gsum.SHA256HashScheme{}.Name(),

		PollInterval:   gmanager.DefaultPollInterval,
		CallInterval:   gmanager.DefaultCallInterval,
		RoundRetention: gmanager.DefaultRoundRetention,

		ResultStore: MemoryResultStore,

		MaxConcurrentSends: cc.MaxConcurrentSends,
		SendTimeout:        cc.SendTimeout,

		LogLevel:  "info",
		LogFormat: "text",
	}
}

// Load returns [Default] overlaid with the values in the TOML file at path.
// Unknown keys are an error.
func Load(path string) (Config, error) {
	cfg := Default()
	md, err := toml.DecodeFile(path, &cfg)
	if err != nil {
		return Config{}, fmt.Errorf("failed to decode config %s: %w", path, err)
	}

	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		return Config{}, fmt.Errorf("unknown keys in config %s: %s", path, strings.Join(keys, ", "))
	}

	return cfg, nil
}

// Validate reports every problem with c, joined into one error.
func (c Config) Validate() error {
	var errs []error

	if _, err := netip.ParseAddrPort(c.Address); err != nil {
		errs = append(errs, fmt.Errorf("address %q must be IP:port: %w", c.Address, err))
	}
	if _, err := gmanager.ParseRole(c.Role); err != nil {
		errs = append(errs, err)
	}
	for _, p := range c.Peers {
		if _, err := netip.ParseAddrPort(strings.TrimSpace(p)); err != nil {
			errs = append(errs, fmt.Errorf("peer %q must be IP:port: %w", p, err))
		}
	}
	if _, err := gsum.HashSchemeByName(c.HashScheme); err != nil {
		errs = append(errs, err)
	}

	for _, d := range []struct {
		name string
		val  time.Duration
	}{
		{"poll_interval", c.PollInterval},
		{"call_interval", c.CallInterval},
		{"round_retention", c.RoundRetention},
		{"send_timeout", c.SendTimeout},
	} {
		if d.val <= 0 {
			errs = append(errs, fmt.Errorf("%s must be positive (got %s)", d.name, d.val))
		}
	}

	if c.ResultStore == "" {
		errs = append(errs, errors.New("result_store must be \"memory\" or a file path"))
	}
	if c.MaxConcurrentSends <= 0 {
		errs = append(errs, fmt.Errorf("max_concurrent_sends must be positive (got %d)", c.MaxConcurrentSends))
	}

	if _, err := c.SlogLevel(); err != nil {
		errs = append(errs, err)
	}
	if !slices.Contains([]string{"text", "json"}, c.LogFormat) {
		errs = append(errs, fmt.Errorf("log_format must be text or json (got %q)", c.LogFormat))
	}

	return errors.Join(errs...)
}

// ListenAddress is the TCP address for the HTTP listener.
func (c Config) ListenAddress() string {
	if c.HTTPListen != "" {
		return c.HTTPListen
	}
	return c.Address
}

func (c Config) SlogLevel() (slog.Level, error) {
	var l slog.Level
	if err := l.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return 0, fmt.Errorf("invalid log_level %q: %w", c.LogLevel, err)
	}
	return l, nil
}

// ManagerConfig returns the parts of a [gmanager.Config]
// that come from the configuration file.
// The caller supplies the transport, store, and metrics.
func (c Config) ManagerConfig() (gmanager.Config, error) {
	role, err := gmanager.ParseRole(c.Role)
	if err != nil {
		return gmanager.Config{}, err
	}
	hs, err := gsum.HashSchemeByName(c.HashScheme)
	if err != nil {
		return gmanager.Config{}, err
	}

	return gmanager.Config{
		Address:    c.Address,
		Role:       role,
		Peers:      slices.Clone(c.Peers),
		HashScheme: hs,

		PollInterval:   c.PollInterval,
		CallInterval:   c.CallInterval,
		RoundRetention: c.RoundRetention,
	}, nil
}

// ClientConfig returns the outbound peer client settings.
func (c Config) ClientConfig() ghttp.ClientConfig {
	cc := ghttp.DefaultClientConfig()
	cc.MaxConcurrentSends = c.MaxConcurrentSends
	cc.SendTimeout = c.SendTimeout
	return cc
}
