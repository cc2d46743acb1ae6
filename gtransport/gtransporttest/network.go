// Package gtransporttest contains an in-memory [gtransport.Transport]
// for connecting several managers in a single test process.
package gtransporttest

import (
	"context"
	"fmt"
	"sync"

	"github.com/gordian-engine/gorvote/gmsg"
	"github.com/gordian-engine/gorvote/gtransport"
)

// Delivery is one message passing through a [Network].
type Delivery struct {
	From, To string
	Msg      gmsg.Message
}

// InterceptFunc may rewrite or drop a message in flight.
// Returning false drops the message.
type InterceptFunc func(d Delivery) (gmsg.Message, bool)

// Network connects registered sinks by address.
//
// Sends are delivered synchronously on the sending goroutine,
// which is fine as long as every sink only enqueues in HandleMessage.
type Network struct {
	mu        sync.Mutex
	sinks     map[string]gtransport.Sink
	intercept InterceptFunc
	log       []Delivery
}

func NewNetwork() *Network {
	return &Network{
		sinks: make(map[string]gtransport.Sink),
	}
}

// Register associates addr with sink.
// Registering the same address twice panics.
func (n *Network) Register(addr string, sink gtransport.Sink) {
	n.mu.Lock()
	defer n.mu.Unlock()

	if _, ok := n.sinks[addr]; ok {
		panic(fmt.Errorf("address %q registered twice", addr))
	}
	n.sinks[addr] = sink
}

// SetIntercept installs fn to inspect every later delivery.
// A nil fn removes any previous interceptor.
func (n *Network) SetIntercept(fn InterceptFunc) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.intercept = fn
}

// Transport returns a transport that sends from addr.
func (n *Network) Transport(addr string) gtransport.Transport {
	return networkTransport{n: n, from: addr}
}

// Deliveries returns a copy of every message sent so far,
// before interception.
func (n *Network) Deliveries() []Delivery {
	n.mu.Lock()
	defer n.mu.Unlock()

	out := make([]Delivery, len(n.log))
	copy(out, n.log)
	return out
}

func (n *Network) deliver(d Delivery) {
	n.mu.Lock()
	n.log = append(n.log, d)
	sink := n.sinks[d.To]
	intercept := n.intercept
	n.mu.Unlock()

	if sink == nil {
		// Unknown peer; the message is lost, like an unreachable host.
		return
	}

	msg := d.Msg
	if intercept != nil {
		var ok bool
		msg, ok = intercept(d)
		if !ok {
			return
		}
	}

	_ = sink.HandleMessage(msg)
}

type networkTransport struct {
	n    *Network
	from string
}

func (t networkTransport) Send(_ context.Context, peer string, msg gmsg.Message) {
	t.n.deliver(Delivery{From: t.from, To: peer, Msg: msg})
}
