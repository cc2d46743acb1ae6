// Package gtransport defines how consensors exchange [gmsg.Message] values.
//
// The manager depends only on the interfaces here.
// The ghttp subpackage carries messages over HTTP between processes,
// and gtransporttest connects managers in memory for tests.
package gtransport

import (
	"context"

	"github.com/gordian-engine/gorvote/gmsg"
)

// Transport delivers messages to other consensors.
type Transport interface {
	// Send queues msg for delivery to the consensor at address peer.
	//
	// Send must not block on the network.
	// Delivery is best effort: failures are logged or counted
	// by the implementation and are never reported to the caller.
	Send(ctx context.Context, peer string, msg gmsg.Message)
}

// Sink accepts inbound messages.
// The manager is the production Sink.
type Sink interface {
	// HandleMessage enqueues msg for processing.
	// It returns an error wrapping [gmsg.ErrInvalidMessage]
	// if msg is malformed, in which case the message is dropped.
	HandleMessage(msg gmsg.Message) error
}
