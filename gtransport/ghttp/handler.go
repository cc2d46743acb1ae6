package ghttp

import (
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/gordian-engine/gorvote/gmsg"
	"github.com/gordian-engine/gorvote/gtransport"
	"github.com/gorilla/mux"
)

// MessagesPath is the route peers post messages to.
const MessagesPath = "/api/messages"

// maxMessageBytes bounds the body of an inbound message.
const maxMessageBytes = 64 << 10

// RegisterRoutes adds the inbound message route to r.
// Decoded messages are handed to sink.
func RegisterRoutes(r *mux.Router, log *slog.Logger, sink gtransport.Sink, codec gmsg.Codec) {
	r.HandleFunc(MessagesPath, handleMessage(log, sink, codec)).Methods("POST")
}

func handleMessage(log *slog.Logger, sink gtransport.Sink, codec gmsg.Codec) func(w http.ResponseWriter, req *http.Request) {
	return func(w http.ResponseWriter, req *http.Request) {
		b, err := io.ReadAll(http.MaxBytesReader(w, req.Body, maxMessageBytes))
		if err != nil {
			http.Error(w, "failed to read body: "+err.Error(), http.StatusBadRequest)
			return
		}

		var m gmsg.Message
		if err := codec.Unmarshal(b, &m); err != nil {
			log.Debug("Rejecting malformed message", "remote", req.RemoteAddr, "err", err)
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}

		if err := sink.HandleMessage(m); err != nil {
			if errors.Is(err, gmsg.ErrInvalidMessage) {
				http.Error(w, err.Error(), http.StatusBadRequest)
				return
			}
			http.Error(w, err.Error(), http.StatusServiceUnavailable)
			return
		}

		w.WriteHeader(http.StatusAccepted)
	}
}
