package ghttp_test

import (
	"context"
	"errors"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gordian-engine/gorvote/gmsg"
	"github.com/gordian-engine/gorvote/gmsg/gmsgjson"
	"github.com/gordian-engine/gorvote/gsum"
	"github.com/gordian-engine/gorvote/gtransport/ghttp"
	"github.com/gordian-engine/gorvote/internal/gtest"
	"github.com/gorilla/mux"
	"github.com/stretchr/testify/require"
)

type chanSink struct {
	ch chan gmsg.Message

	mu  sync.Mutex
	err error
}

func (s *chanSink) HandleMessage(m gmsg.Message) error {
	s.mu.Lock()
	err := s.err
	s.mu.Unlock()
	if err != nil {
		return err
	}
	s.ch <- m
	return nil
}

func (s *chanSink) setErr(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.err = err
}

func newSink() *chanSink {
	return &chanSink{ch: make(chan gmsg.Message, 8)}
}

func newRouter(t *testing.T, sink *chanSink) *mux.Router {
	t.Helper()
	r := mux.NewRouter()
	ghttp.RegisterRoutes(r, gtest.NewLogger(t), sink, gmsgjson.Codec{})
	return r
}

func TestHandler_statusCodes(t *testing.T) {
	t.Parallel()

	sink := newSink()
	srv := httptest.NewServer(newRouter(t, sink))
	defer srv.Close()

	post := func(body string) int {
		resp, err := http.Post(srv.URL+ghttp.MessagesPath, gmsgjson.ContentType, strings.NewReader(body))
		require.NoError(t, err)
		defer resp.Body.Close()
		return resp.StatusCode
	}

	good := `{"type":"round","round_id":{"kind":"external","text":"x"},"peers":["a","b"],"sender":"a","masked_value":5}`
	require.Equal(t, http.StatusAccepted, post(good))

	m := gtest.ReceiveSoon(t, sink.ch)
	require.Equal(t, gsum.ExternalRoundID("x"), m.RoundID)
	require.Equal(t, int64(5), *m.MaskedValue)

	require.Equal(t, http.StatusBadRequest, post(`{"type":"round"}`))
	require.Equal(t, http.StatusBadRequest, post(`not json`))
	gtest.NotSending(t, sink.ch)

	resp, err := http.Get(srv.URL + ghttp.MessagesPath)
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode)

	sink.setErr(errors.New("stopped"))
	require.Equal(t, http.StatusServiceUnavailable, post(good))
}

func TestClient_send(t *testing.T) {
	t.Parallel()

	sink := newSink()
	srv := httptest.NewServer(newRouter(t, sink))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	c, err := ghttp.NewClient(ctx, gtest.NewLogger(t), ghttp.ClientConfig{
		Codec:              gmsgjson.Codec{},
		MaxConcurrentSends: 2,
		SendTimeout:        time.Second,
	})
	require.NoError(t, err)
	defer c.Wait()
	defer cancel()

	peer := srv.Listener.Addr().String()
	m := gmsg.NewReveal(gsum.ProposalCallRoundID("abc"), []string{peer, "127.0.0.1:1"}, "127.0.0.1:1", "aa:3")
	c.Send(ctx, peer, m)

	got := gtest.ReceiveOrTimeout(t, sink.ch, gtest.ScaleMs(2000))
	require.Equal(t, m, got)

	require.Eventually(t, func() bool {
		return c.Stats().Sent == 1
	}, 2*time.Second, 10*time.Millisecond)
}

func TestClient_sendErrorCounted(t *testing.T) {
	t.Parallel()

	// Grab a free port, then close it so nothing listens there.
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	peer := ln.Addr().String()
	require.NoError(t, ln.Close())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	c, err := ghttp.NewClient(ctx, gtest.NewLogger(t), ghttp.ClientConfig{
		Codec:       gmsgjson.Codec{},
		SendTimeout: time.Second,
	})
	require.NoError(t, err)
	defer c.Wait()
	defer cancel()

	c.Send(ctx, peer, gmsg.NewProposalCall("abc", []string{"127.0.0.1:1", peer}, "127.0.0.1:1"))

	require.Eventually(t, func() bool {
		return c.Stats().SendErrors == 1
	}, 3*time.Second, 10*time.Millisecond)
	require.Zero(t, c.Stats().Sent)
}

func TestNewClient_requiresCodec(t *testing.T) {
	t.Parallel()

	_, err := ghttp.NewClient(context.Background(), gtest.NewLogger(t), ghttp.ClientConfig{})
	require.Error(t, err)
}

func TestServer_stopsOnCancel(t *testing.T) {
	t.Parallel()

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sink := newSink()
	s := ghttp.NewServer(ctx, gtest.NewLogger(t), ghttp.ServerConfig{
		Listener: ln,
		Handler:  newRouter(t, sink),
	})
	require.Equal(t, ln.Addr().String(), s.Addr().String())

	resp, err := http.Post(
		"http://"+ln.Addr().String()+ghttp.MessagesPath,
		gmsgjson.ContentType,
		strings.NewReader(`{"type":"proposal_call","round_id":{"kind":"proposal_call","call_id":"c"},"sender":"a","peers":["a"]}`),
	)
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusAccepted, resp.StatusCode)
	_ = gtest.ReceiveSoon(t, sink.ch)

	cancel()
	s.Wait()

	_, err = net.Dial("tcp", ln.Addr().String())
	require.Error(t, err)
}

func TestServer_drainsInFlightRequest(t *testing.T) {
	t.Parallel()

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	started := make(chan struct{})
	release := make(chan struct{})
	h := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		close(started)
		<-release
		w.WriteHeader(http.StatusNoContent)
	})

	s := ghttp.NewServer(ctx, gtest.NewLogger(t), ghttp.ServerConfig{
		Listener:        ln,
		Handler:         h,
		ShutdownTimeout: 5 * time.Second,
	})

	respCh := make(chan *http.Response, 1)
	go func() {
		resp, err := http.Get("http://" + ln.Addr().String() + "/")
		if err != nil {
			respCh <- nil
			return
		}
		resp.Body.Close()
		respCh <- resp
	}()

	_ = gtest.ReceiveSoon(t, started)
	cancel()

	// Shutdown waits for the handler.
	waited := make(chan struct{})
	go func() {
		s.Wait()
		close(waited)
	}()
	gtest.NotSendingSoon(t, waited)

	close(release)
	resp := gtest.ReceiveOrTimeout(t, respCh, gtest.ScaleMs(2000))
	require.NotNil(t, resp)
	require.Equal(t, http.StatusNoContent, resp.StatusCode)
	_ = gtest.ReceiveSoon(t, waited)
}
