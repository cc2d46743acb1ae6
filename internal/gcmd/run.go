package gcmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"net"
	"os"
	"time"

	"github.com/gordian-engine/gorvote/gapi"
	"github.com/gordian-engine/gorvote/gconfig"
	"github.com/gordian-engine/gorvote/gmanager"
	"github.com/gordian-engine/gorvote/gmetrics"
	"github.com/gordian-engine/gorvote/gmsg/gmsgjson"
	"github.com/gordian-engine/gorvote/gstore"
	"github.com/gordian-engine/gorvote/gstore/gboltstore"
	"github.com/gordian-engine/gorvote/gstore/gcachestore"
	"github.com/gordian-engine/gorvote/gstore/gmemstore"
	"github.com/gordian-engine/gorvote/gtransport/ghttp"
	"github.com/spf13/cobra"
)

func newRunCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run a consensor until interrupted",
		Args:  cobra.NoArgs,

		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(cmd, configPath)
			if err != nil {
				return err
			}

			log, err := newLogger(cmd.ErrOrStderr(), cfg)
			if err != nil {
				return err
			}

			return runConsensor(cmd.Context(), log, cfg)
		},
	}

	f := cmd.Flags()
	f.StringVar(&configPath, "config", "", "path to TOML config file")

	f.String("node-name", "", "name attached to log lines")
	f.String("address", "", "IP:port other consensors reach this consensor at")
	f.String("role", "", "responder or proposer")
	f.StringSlice("peers", nil, "consensor addresses; if set, skip setup mode")
	f.String("hash-scheme", "", "commitment hash: sha256, blake2b, or blake3")
	f.Duration("poll-interval", 0, "kernel wake interval")
	f.Duration("call-interval", 0, "idle time before a proposer starts a proposal call")
	f.Duration("round-retention", 0, "how long resolved rounds stay in memory")
	f.String("http-listen", "", "TCP listen address; defaults to --address")
	f.String("operator-socket", "", "unix socket path serving the operator API")
	f.String("result-store", "", `"memory" or path to a bbolt database`)
	f.Int("max-concurrent-sends", 0, "outbound request workers")
	f.Duration("send-timeout", 0, "timeout for each outbound request")
	f.String("log-level", "", "debug, info, warn, or error")
	f.String("log-format", "", "text or json")

	return cmd
}

// loadConfig reads the config file, if any,
// then applies every flag the user set explicitly.
func loadConfig(cmd *cobra.Command, path string) (gconfig.Config, error) {
	cfg := gconfig.Default()
	if path != "" {
		var err error
		cfg, err = gconfig.Load(path)
		if err != nil {
			return gconfig.Config{}, err
		}
	}

	f := cmd.Flags()
	var errs []error
	str := func(name string, dst *string) {
		if f.Changed(name) {
			v, err := f.GetString(name)
			errs = append(errs, err)
			*dst = v
		}
	}
	str("node-name", &cfg.NodeName)
	str("address", &cfg.Address)
	str("role", &cfg.Role)
	str("hash-scheme", &cfg.HashScheme)
	str("http-listen", &cfg.HTTPListen)
	str("operator-socket", &cfg.OperatorSocket)
	str("result-store", &cfg.ResultStore)
	str("log-level", &cfg.LogLevel)
	str("log-format", &cfg.LogFormat)

	if f.Changed("peers") {
		v, err := f.GetStringSlice("peers")
		errs = append(errs, err)
		cfg.Peers = v
	}
	if f.Changed("max-concurrent-sends") {
		v, err := f.GetInt("max-concurrent-sends")
		errs = append(errs, err)
		cfg.MaxConcurrentSends = v
	}
	for name, dst := range map[string]*time.Duration{
		"poll-interval":   &cfg.PollInterval,
		"call-interval":   &cfg.CallInterval,
		"round-retention": &cfg.RoundRetention,
		"send-timeout":    &cfg.SendTimeout,
	} {
		if f.Changed(name) {
			v, err := f.GetDuration(name)
			errs = append(errs, err)
			*dst = v
		}
	}

	if err := errors.Join(errs...); err != nil {
		return gconfig.Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return gconfig.Config{}, fmt.Errorf("invalid configuration:\n%w", err)
	}
	return cfg, nil
}

func newLogger(w io.Writer, cfg gconfig.Config) (*slog.Logger, error) {
	lvl, err := cfg.SlogLevel()
	if err != nil {
		return nil, err
	}

	opts := &slog.HandlerOptions{Level: lvl}
	var h slog.Handler
	if cfg.LogFormat == "json" {
		h = slog.NewJSONHandler(w, opts)
	} else {
		h = slog.NewTextHandler(w, opts)
	}
	return slog.New(h).With("node", cfg.NodeName), nil
}

// Number of archived results kept in memory in front of the bbolt store.
const resultCacheSize = 1024

func openResultStore(path string) (gstore.ResultStore, func() error, error) {
	if path == gconfig.MemoryResultStore {
		return gmemstore.NewResultStore(), func() error { return nil }, nil
	}

	s, err := gboltstore.NewResultStore(path)
	if err != nil {
		return nil, nil, err
	}
	c, err := gcachestore.NewResultStore(s, resultCacheSize)
	if err != nil {
		_ = s.Close()
		return nil, nil, err
	}
	return c, s.Close, nil
}

// runConsensor starts every component and blocks until ctx is cancelled
// and each component has stopped.
func runConsensor(ctx context.Context, log *slog.Logger, cfg gconfig.Config) error {
	// Every deferred Wait below needs ctx cancelled first,
	// so error returns after a component starts call cancel explicitly.
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	store, closeStore, err := openResultStore(cfg.ResultStore)
	if err != nil {
		return fmt.Errorf("failed to open result store: %w", err)
	}
	defer func() {
		if err := closeStore(); err != nil {
			log.Warn("Failed to close result store", "err", err)
		}
	}()

	met := gmetrics.New()
	codec := gmsgjson.Codec{}

	cc := cfg.ClientConfig()
	cc.Codec = codec
	client, err := ghttp.NewClient(ctx, log.With("sys", "client"), cc)
	if err != nil {
		return fmt.Errorf("failed to create peer client: %w", err)
	}
	defer client.Wait()
	met.RegisterSendStats(client)

	mcfg, err := cfg.ManagerConfig()
	if err != nil {
		cancel()
		return err
	}
	mcfg.Transport = client
	mcfg.ResultStore = store
	mcfg.Metrics = met
	mcfg.OnProposalProcess = func(s gmanager.ProposalProcessStart) {
		log.Info(
			"Proposal process started",
			"call_id", s.CallID,
			"has_proposal", s.HasProposal,
			"proposal", s.Proposal,
		)
	}

	m, err := gmanager.NewManager(ctx, log.With("sys", "manager"), mcfg)
	if err != nil {
		cancel()
		return fmt.Errorf("failed to start manager: %w", err)
	}
	defer m.Wait()

	ln, err := net.Listen("tcp", cfg.ListenAddress())
	if err != nil {
		cancel()
		return fmt.Errorf("failed to listen: %w", err)
	}

	apiCfg := gapi.Config{Manager: m, Metrics: met}

	r := gapi.NewRouter(log.With("sys", "api"), apiCfg)
	ghttp.RegisterRoutes(r, log.With("sys", "peer-http"), m, codec)
	srv := ghttp.NewServer(ctx, log.With("sys", "http"), ghttp.ServerConfig{
		Listener: ln,
		Handler:  r,
	})
	defer srv.Wait()

	if cfg.OperatorSocket != "" {
		// A socket file left by an unclean exit blocks the listen.
		if err := os.Remove(cfg.OperatorSocket); err != nil && !errors.Is(err, fs.ErrNotExist) {
			cancel()
			return fmt.Errorf("failed to remove stale operator socket: %w", err)
		}

		uln, err := net.Listen("unix", cfg.OperatorSocket)
		if err != nil {
			cancel()
			return fmt.Errorf("failed to listen on operator socket: %w", err)
		}

		opSrv := ghttp.NewServer(ctx, log.With("sys", "operator-http"), ghttp.ServerConfig{
			Listener: uln,
			Handler:  gapi.NewRouter(log.With("sys", "operator-api"), apiCfg),
		})
		defer opSrv.Wait()
	}

	log.Info(
		"Consensor running",
		"address", cfg.Address,
		"listen", ln.Addr().String(),
		"role", mcfg.Role,
		"operator_socket", cfg.OperatorSocket,
	)

	<-ctx.Done()
	return nil
}
