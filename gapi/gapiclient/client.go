// Package gapiclient is a Go client for the operator API served by [gapi].
//
// The client reaches the API either over TCP
// or over the consensor's unix socket.
package gapiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/gordian-engine/gorvote/gapi"
	"github.com/gordian-engine/gorvote/gmanager"
	"github.com/tv42/httpunix"
)

// socketLocation is the host name registered for the unix socket transport.
const socketLocation = "gorvote"

// Error is returned when the API responds with a non-success status.
type Error struct {
	StatusCode int
	Message    string
}

func (e *Error) Error() string {
	return fmt.Sprintf("operator API returned %d: %s", e.StatusCode, e.Message)
}

type Client struct {
	hc   *http.Client
	base string
}

// New returns a client for the API at target.
//
// A target starting with "unix:" or "/" is a unix socket path.
// A target with an http:// or https:// scheme is used as the base URL.
// Anything else is treated as a host:port served over plain HTTP.
func New(target string) (*Client, error) {
	switch {
	case strings.HasPrefix(target, "unix:"), strings.HasPrefix(target, "/"):
		path := strings.TrimPrefix(target, "unix:")
		if path == "" {
			return nil, fmt.Errorf("empty socket path in %q", target)
		}

		t := &httpunix.Transport{
			DialTimeout:           time.Second,
			RequestTimeout:        10 * time.Second,
			ResponseHeaderTimeout: 10 * time.Second,
		}
		t.RegisterLocation(socketLocation, path)

		return &Client{
			hc:   &http.Client{Transport: t},
			base: httpunix.Scheme + "://" + socketLocation,
		}, nil

	case strings.HasPrefix(target, "http://"), strings.HasPrefix(target, "https://"):
		if _, err := url.Parse(target); err != nil {
			return nil, fmt.Errorf("invalid API URL: %w", err)
		}
		return NewHTTPClient(target, http.DefaultClient), nil

	default:
		if target == "" {
			return nil, fmt.Errorf("empty API target")
		}
		return NewHTTPClient("http://"+target, http.DefaultClient), nil
	}
}

// NewHTTPClient returns a client sending requests through hc
// to the API rooted at baseURL.
func NewHTTPClient(baseURL string, hc *http.Client) *Client {
	return &Client{
		hc:   hc,
		base: strings.TrimSuffix(baseURL, "/"),
	}
}

func (c *Client) Status(ctx context.Context) (gmanager.Status, error) {
	var st gmanager.Status
	err := c.do(ctx, http.MethodGet, "/status", nil, &st)
	return st, err
}

// SetupPeers sets the consensor set of a consensor still in setup mode.
func (c *Client) SetupPeers(ctx context.Context, peers []string) error {
	return c.do(ctx, http.MethodPost, "/peers", gapi.SetupPeersRequest{Peers: peers}, nil)
}

// SubmitProposal queues text and returns the resulting queue length.
func (c *Client) SubmitProposal(ctx context.Context, text string) (int, error) {
	var resp gapi.SubmitProposalResponse
	err := c.do(ctx, http.MethodPost, "/proposals", gapi.SubmitProposalRequest{Text: text}, &resp)
	return resp.Queued, err
}

func (c *Client) Vote(ctx context.Context, req gapi.VoteRequest) error {
	return c.do(ctx, http.MethodPost, "/rounds/vote", req, nil)
}

// Rounds lists the rounds in memory.
// Unless debug is set, only external rounds are included.
func (c *Client) Rounds(ctx context.Context, debug bool) ([]gapi.RoundSummary, error) {
	path := "/rounds"
	if debug {
		path += "?debug=true"
	}

	var out []gapi.RoundSummary
	err := c.do(ctx, http.MethodGet, path, nil, &out)
	return out, err
}

// Results lists archived round results.
func (c *Client) Results(ctx context.Context) ([]gapi.RoundResult, error) {
	var out []gapi.RoundResult
	err := c.do(ctx, http.MethodGet, "/results", nil, &out)
	return out, err
}

func (c *Client) do(ctx context.Context, method, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("failed to encode request: %w", err)
		}
		body = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.base+path, body)
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.hc.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		var e gapi.ErrorResponse
		if err := json.NewDecoder(resp.Body).Decode(&e); err != nil || e.Error == "" {
			e.Error = http.StatusText(resp.StatusCode)
		}
		return &Error{StatusCode: resp.StatusCode, Message: e.Error}
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}
