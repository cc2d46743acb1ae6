package gtransporttest

import (
	"context"

	"github.com/gordian-engine/gorvote/gmsg"
)

// Recorder is a [gtransport.Transport] that reports every send on a channel,
// for tests that inspect a single manager's output.
type Recorder struct {
	sent chan Delivery
}

// NewRecorder returns a Recorder whose channel has the given buffer size.
// Send blocks once the buffer is full, so size it for the test.
func NewRecorder(buf int) *Recorder {
	return &Recorder{sent: make(chan Delivery, buf)}
}

func (r *Recorder) Send(ctx context.Context, peer string, msg gmsg.Message) {
	select {
	case <-ctx.Done():
	case r.sent <- Delivery{To: peer, Msg: msg}:
	}
}

// Sent returns the channel of recorded sends.
func (r *Recorder) Sent() <-chan Delivery {
	return r.sent
}
