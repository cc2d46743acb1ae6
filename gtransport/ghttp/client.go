package ghttp

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gordian-engine/gorvote/gmsg"
	"github.com/gordian-engine/gorvote/gtransport"
)

// Client is a [gtransport.Transport] that posts messages to peers over HTTP.
//
// Send only enqueues; a fixed pool of workers performs the requests.
// When the queue is full, the message is dropped and counted.
type Client struct {
	log   *slog.Logger
	codec gmsg.Codec
	http  *http.Client

	scheme      string
	sendTimeout time.Duration

	jobs chan sendJob

	stats clientStats

	wg sync.WaitGroup
}

var _ gtransport.Transport = (*Client)(nil)

// ClientConfig configures a [*Client].
type ClientConfig struct {
	Codec gmsg.Codec

	// Defaults to a new [http.Client] when nil.
	HTTPClient *http.Client

	// URL scheme used to reach peers. Defaults to "http".
	Scheme string

	// Number of concurrent outbound requests.
	MaxConcurrentSends int

	// Timeout applied to each request.
	SendTimeout time.Duration

	// Number of messages that may wait for a worker.
	QueueSize int
}

// DefaultClientConfig returns a config with the default pool sizes.
// The Codec field must still be set.
func DefaultClientConfig() ClientConfig {
	return ClientConfig{
		Scheme:             "http",
		MaxConcurrentSends: 4,
		SendTimeout:        5 * time.Second,
		QueueSize:          1024,
	}
}

// Stats is a snapshot of a client's counters.
type Stats struct {
	Sent        uint64
	SendErrors  uint64
	Dropped     uint64
	ActiveSends uint32
}

type clientStats struct {
	sent        atomic.Uint64
	sendErrors  atomic.Uint64
	dropped     atomic.Uint64
	activeSends atomic.Uint32
}

type sendJob struct {
	peer string
	msg  gmsg.Message
}

// NewClient starts the client's workers, which run until ctx is cancelled.
func NewClient(ctx context.Context, log *slog.Logger, cfg ClientConfig) (*Client, error) {
	if cfg.Codec == nil {
		return nil, fmt.Errorf("ghttp: codec required")
	}
	def := DefaultClientConfig()
	if cfg.HTTPClient == nil {
		cfg.HTTPClient = new(http.Client)
	}
	if cfg.Scheme == "" {
		cfg.Scheme = def.Scheme
	}
	if cfg.MaxConcurrentSends <= 0 {
		cfg.MaxConcurrentSends = def.MaxConcurrentSends
	}
	if cfg.SendTimeout <= 0 {
		cfg.SendTimeout = def.SendTimeout
	}
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = def.QueueSize
	}

	c := &Client{
		log:   log,
		codec: cfg.Codec,
		http:  cfg.HTTPClient,

		scheme:      cfg.Scheme,
		sendTimeout: cfg.SendTimeout,

		jobs: make(chan sendJob, cfg.QueueSize),
	}

	c.wg.Add(cfg.MaxConcurrentSends)
	for range cfg.MaxConcurrentSends {
		go c.worker(ctx)
	}

	return c, nil
}

// Wait blocks until every worker has stopped.
func (c *Client) Wait() {
	c.wg.Wait()
}

// Send queues msg for delivery to peer without blocking.
func (c *Client) Send(_ context.Context, peer string, msg gmsg.Message) {
	select {
	case c.jobs <- sendJob{peer: peer, msg: msg}:
	default:
		c.stats.dropped.Add(1)
		c.log.Warn("Dropping outbound message; send queue full", "peer", peer)
	}
}

// Stats returns the current counters.
func (c *Client) Stats() Stats {
	return Stats{
		Sent:        c.stats.sent.Load(),
		SendErrors:  c.stats.sendErrors.Load(),
		Dropped:     c.stats.dropped.Load(),
		ActiveSends: c.stats.activeSends.Load(),
	}
}

func (c *Client) worker(ctx context.Context) {
	defer c.wg.Done()

	for {
		select {
		case <-ctx.Done():
			return
		case j := <-c.jobs:
			c.stats.activeSends.Add(1)
			err := c.post(ctx, j)
			c.stats.activeSends.Add(^uint32(0))

			if err != nil {
				c.stats.sendErrors.Add(1)
				c.log.Info("Failed to send message", "peer", j.peer, "err", err)
				continue
			}
			c.stats.sent.Add(1)
		}
	}
}

func (c *Client) post(ctx context.Context, j sendJob) error {
	b, err := c.codec.Marshal(j.msg)
	if err != nil {
		return fmt.Errorf("failed to marshal message: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, c.sendTimeout)
	defer cancel()

	url := c.scheme + "://" + j.peer + MessagesPath
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(b))
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Content-Type", c.codec.ContentType())

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode != http.StatusAccepted {
		return fmt.Errorf("unexpected status %s", resp.Status)
	}
	return nil
}
