// Package gchan contains helpers for the request/response channel pattern
// used between public methods and kernel goroutines.
package gchan

import (
	"context"
	"log/slog"
)

// ReqResp sends req on reqCh, then waits for a value on respCh.
// If ctx is cancelled at either step,
// the cancellation is logged with the given name
// and ReqResp returns the zero value and false.
func ReqResp[Req, Resp any](
	ctx context.Context,
	log *slog.Logger,
	reqCh chan<- Req, req Req,
	respCh <-chan Resp,
	name string,
) (Resp, bool) {
	if !SendC(ctx, log, reqCh, req, name+": making request") {
		var zero Resp
		return zero, false
	}

	return RecvC(ctx, log, respCh, name+": awaiting response")
}

// SendC sends v on ch, returning false if ctx is cancelled first.
func SendC[T any](
	ctx context.Context,
	log *slog.Logger,
	ch chan<- T, v T,
	name string,
) bool {
	select {
	case <-ctx.Done():
		log.Info(
			"Context cancelled while sending",
			"name", name,
			"cause", context.Cause(ctx),
		)
		return false
	case ch <- v:
		return true
	}
}

// RecvC receives a value from ch, returning false if ctx is cancelled first.
func RecvC[T any](
	ctx context.Context,
	log *slog.Logger,
	ch <-chan T,
	name string,
) (T, bool) {
	select {
	case <-ctx.Done():
		log.Info(
			"Context cancelled while receiving",
			"name", name,
			"cause", context.Cause(ctx),
		)
		var zero T
		return zero, false
	case v := <-ch:
		return v, true
	}
}
