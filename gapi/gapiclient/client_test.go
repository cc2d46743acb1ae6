package gapiclient_test

import (
	"context"
	"errors"
	"net"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/gordian-engine/gorvote/gapi"
	"github.com/gordian-engine/gorvote/gapi/gapiclient"
	"github.com/gordian-engine/gorvote/gmanager"
	"github.com/gordian-engine/gorvote/gsum"
	"github.com/gordian-engine/gorvote/gsum/gsumtest"
	"github.com/gordian-engine/gorvote/gtransport/ghttp"
	"github.com/gordian-engine/gorvote/gtransport/gtransporttest"
	"github.com/gordian-engine/gorvote/internal/gtest"
	"github.com/stretchr/testify/require"
)

func newManager(t *testing.T, ctx context.Context) *gmanager.Manager {
	t.Helper()

	m, err := gmanager.NewManager(ctx, gtest.NewLogger(t), gmanager.Config{
		Address:   "127.0.0.1:9000",
		Role:      gmanager.RoleResponder,
		Transport: gtransporttest.NewRecorder(16),
		Random:    gsumtest.NewScriptedRandomSource(3, 3, 3, 3),
	})
	require.NoError(t, err)
	return m
}

func TestClient_unixSocket(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	log := gtest.NewLogger(t)
	m := newManager(t, ctx)
	defer m.Wait()

	sock := filepath.Join(t.TempDir(), "api.sock")
	ln, err := net.Listen("unix", sock)
	require.NoError(t, err)

	srv := ghttp.NewServer(ctx, log, ghttp.ServerConfig{
		Listener: ln,
		Handler:  gapi.NewRouter(log, gapi.Config{Manager: m}),
	})
	defer srv.Wait()
	defer cancel()

	c, err := gapiclient.New("unix:" + sock)
	require.NoError(t, err)

	st, err := c.Status(ctx)
	require.NoError(t, err)
	require.Equal(t, gmanager.ModeSetup, st.Mode)
	require.Equal(t, gmanager.RoleResponder, st.Role)

	require.NoError(t, c.SetupPeers(ctx, nil))

	n, err := c.SubmitProposal(ctx, "Order pizza")
	require.NoError(t, err)
	require.Equal(t, 1, n)

	require.NoError(t, c.Vote(ctx, gapi.VoteRequest{Proposal: "Pizza?", Vote: gsum.VoteYes}))

	sums, err := c.Rounds(ctx, false)
	require.NoError(t, err)
	require.Len(t, sums, 1)
	require.Equal(t, "external:Pizza?", sums[0].Round)
	require.Equal(t, gsum.ResultYes, sums[0].Result)

	rs, err := c.Results(ctx)
	require.NoError(t, err)
	require.Empty(t, rs)
}

func TestClient_errors(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	log := gtest.NewLogger(t)
	m := newManager(t, ctx)

	hs := httptest.NewServer(gapi.NewRouter(log, gapi.Config{Manager: m}))
	defer hs.Close()

	c := gapiclient.NewHTTPClient(hs.URL, hs.Client())

	err := c.Vote(ctx, gapi.VoteRequest{Proposal: "x", Vote: gsum.VoteNo})
	var apiErr *gapiclient.Error
	require.True(t, errors.As(err, &apiErr))
	require.Equal(t, http.StatusConflict, apiErr.StatusCode)
	require.Contains(t, apiErr.Message, gmanager.ErrNotConsensing.Error())

	err = c.SetupPeers(ctx, []string{"not-an-address"})
	require.True(t, errors.As(err, &apiErr))
	require.Equal(t, http.StatusBadRequest, apiErr.StatusCode)
}

func TestNew_targets(t *testing.T) {
	t.Parallel()

	for _, target := range []string{
		"unix:/run/gorvote.sock",
		"/run/gorvote.sock",
		"http://127.0.0.1:8080",
		"127.0.0.1:8080",
	} {
		_, err := gapiclient.New(target)
		require.NoError(t, err, target)
	}

	for _, target := range []string{"", "unix:"} {
		_, err := gapiclient.New(target)
		require.Error(t, err, target)
	}
}
