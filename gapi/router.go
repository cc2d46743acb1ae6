// Package gapi is the operator-facing HTTP API of a consensor.
//
// It replaces a web UI with JSON endpoints,
// served on the peer listener and optionally on a unix socket.
package gapi

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/gordian-engine/gorvote/gmanager"
	"github.com/gordian-engine/gorvote/gmetrics"
	"github.com/gordian-engine/gorvote/gstore"
	"github.com/gordian-engine/gorvote/gsum"
	"github.com/gorilla/mux"
)

// Manager is the subset of [*gmanager.Manager] the API uses.
type Manager interface {
	SetupPeers(ctx context.Context, peers []string) error
	SubmitProposal(ctx context.Context, text string) (int, error)
	Vote(ctx context.Context, id gsum.RoundID, v gsum.Vote) error
	Summaries(ctx context.Context, debug bool) ([]gsum.RoundSummary, error)
	Status(ctx context.Context) (gmanager.Status, error)
	ArchivedResults(ctx context.Context) ([]gstore.RoundResult, error)
}

type Config struct {
	Manager Manager

	// If nil, /metrics is not served.
	Metrics *gmetrics.Metrics
}

// NewRouter returns a router serving every operator route.
// Callers may add more routes to it.
func NewRouter(log *slog.Logger, cfg Config) *mux.Router {
	r := mux.NewRouter()

	r.HandleFunc("/status", handleStatus(log, cfg.Manager)).Methods("GET")
	r.HandleFunc("/peers", handleSetupPeers(log, cfg.Manager)).Methods("POST")
	r.HandleFunc("/proposals", handleSubmitProposal(log, cfg.Manager)).Methods("POST")
	r.HandleFunc("/rounds", handleRounds(log, cfg.Manager)).Methods("GET")
	r.HandleFunc("/rounds/vote", handleVote(log, cfg.Manager)).Methods("POST")
	r.HandleFunc("/results", handleResults(log, cfg.Manager)).Methods("GET")

	if cfg.Metrics != nil {
		r.Handle("/metrics", cfg.Metrics.Handler()).Methods("GET")
	}

	return r
}

func handleStatus(log *slog.Logger, m Manager) func(w http.ResponseWriter, req *http.Request) {
	return func(w http.ResponseWriter, req *http.Request) {
		st, err := m.Status(req.Context())
		if err != nil {
			writeError(log, w, http.StatusServiceUnavailable, err)
			return
		}
		writeJSON(log, w, http.StatusOK, st)
	}
}

func handleSetupPeers(log *slog.Logger, m Manager) func(w http.ResponseWriter, req *http.Request) {
	return func(w http.ResponseWriter, req *http.Request) {
		var body SetupPeersRequest
		if !readJSON(log, w, req, &body) {
			return
		}

		if err := m.SetupPeers(req.Context(), body.Peers); err != nil {
			switch {
			case errors.Is(err, gmanager.ErrMalformedPeerAddress):
				writeError(log, w, http.StatusBadRequest, err)
			case errors.Is(err, gmanager.ErrAlreadyConsensing):
				writeError(log, w, http.StatusConflict, err)
			default:
				writeError(log, w, http.StatusServiceUnavailable, err)
			}
			return
		}

		w.WriteHeader(http.StatusNoContent)
	}
}

func handleSubmitProposal(log *slog.Logger, m Manager) func(w http.ResponseWriter, req *http.Request) {
	return func(w http.ResponseWriter, req *http.Request) {
		var body SubmitProposalRequest
		if !readJSON(log, w, req, &body) {
			return
		}
		if body.Text == "" {
			writeError(log, w, http.StatusBadRequest, errors.New("proposal text required"))
			return
		}

		n, err := m.SubmitProposal(req.Context(), body.Text)
		if err != nil {
			writeError(log, w, http.StatusServiceUnavailable, err)
			return
		}
		writeJSON(log, w, http.StatusAccepted, SubmitProposalResponse{Queued: n})
	}
}

func handleVote(log *slog.Logger, m Manager) func(w http.ResponseWriter, req *http.Request) {
	return func(w http.ResponseWriter, req *http.Request) {
		var body VoteRequest
		if !readJSON(log, w, req, &body) {
			return
		}

		var id gsum.RoundID
		switch {
		case body.Round != "" && body.Proposal != "":
			writeError(log, w, http.StatusBadRequest, errors.New("set only one of round and proposal"))
			return
		case body.Proposal != "":
			id = gsum.ExternalRoundID(body.Proposal)
		default:
			var err error
			id, err = gsum.ParseRoundID(body.Round)
			if err != nil {
				writeError(log, w, http.StatusBadRequest, err)
				return
			}
		}

		if err := m.Vote(req.Context(), id, body.Vote); err != nil {
			switch {
			case errors.Is(err, gmanager.ErrProposalCallVote),
				errors.Is(err, gmanager.ErrInvalidVote),
				errors.Is(err, gsum.ErrInvalidRoundID):
				writeError(log, w, http.StatusBadRequest, err)
			case errors.Is(err, gmanager.ErrAlreadyVoted),
				errors.Is(err, gmanager.ErrRoundArchived),
				errors.Is(err, gmanager.ErrNotConsensing):
				writeError(log, w, http.StatusConflict, err)
			default:
				writeError(log, w, http.StatusServiceUnavailable, err)
			}
			return
		}

		w.WriteHeader(http.StatusAccepted)
	}
}

func handleRounds(log *slog.Logger, m Manager) func(w http.ResponseWriter, req *http.Request) {
	return func(w http.ResponseWriter, req *http.Request) {
		var debug bool
		if s := req.URL.Query().Get("debug"); s != "" {
			var err error
			debug, err = strconv.ParseBool(s)
			if err != nil {
				writeError(log, w, http.StatusBadRequest, err)
				return
			}
		}

		sums, err := m.Summaries(req.Context(), debug)
		if err != nil {
			writeError(log, w, http.StatusServiceUnavailable, err)
			return
		}

		out := make([]RoundSummary, len(sums))
		for i, s := range sums {
			out[i] = toRoundSummary(s)
		}
		writeJSON(log, w, http.StatusOK, out)
	}
}

func handleResults(log *slog.Logger, m Manager) func(w http.ResponseWriter, req *http.Request) {
	return func(w http.ResponseWriter, req *http.Request) {
		rs, err := m.ArchivedResults(req.Context())
		if err != nil {
			writeError(log, w, http.StatusInternalServerError, err)
			return
		}

		out := make([]RoundResult, len(rs))
		for i, r := range rs {
			out[i] = toRoundResult(r)
		}
		writeJSON(log, w, http.StatusOK, out)
	}
}

// maxRequestBytes bounds operator request bodies.
const maxRequestBytes = 64 << 10

func readJSON(log *slog.Logger, w http.ResponseWriter, req *http.Request, v any) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, req.Body, maxRequestBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		writeError(log, w, http.StatusBadRequest, err)
		return false
	}
	return true
}

func writeJSON(log *slog.Logger, w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Warn("Failed to write response", "err", err)
	}
}

func writeError(log *slog.Logger, w http.ResponseWriter, status int, err error) {
	writeJSON(log, w, status, ErrorResponse{Error: err.Error()})
}
