package gtransporttest_test

import (
	"context"
	"sync"
	"testing"

	"github.com/gordian-engine/gorvote/gmsg"
	"github.com/gordian-engine/gorvote/gsum"
	"github.com/gordian-engine/gorvote/gtransport/gtransporttest"
	"github.com/stretchr/testify/require"
)

type sliceSink struct {
	mu   sync.Mutex
	msgs []gmsg.Message
}

func (s *sliceSink) HandleMessage(m gmsg.Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.msgs = append(s.msgs, m)
	return nil
}

func TestNetwork_deliverAndIntercept(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	n := gtransporttest.NewNetwork()

	var a, b sliceSink
	n.Register("a", &a)
	n.Register("b", &b)

	id := gsum.ExternalRoundID("x")
	m := gmsg.NewMaskedValue(id, []string{"a", "b"}, "a", 1)

	n.Transport("a").Send(ctx, "b", m)
	require.Equal(t, []gmsg.Message{m}, b.msgs)
	require.Empty(t, a.msgs)

	n.SetIntercept(func(d gtransporttest.Delivery) (gmsg.Message, bool) {
		return d.Msg, d.To != "b"
	})
	n.Transport("a").Send(ctx, "b", m)
	require.Len(t, b.msgs, 1, "intercepted message must be dropped")

	// Unknown destination is silently lost.
	n.Transport("a").Send(ctx, "c", m)

	require.Len(t, n.Deliveries(), 3)
	require.Panics(t, func() { n.Register("a", &a) })
}
