package rpc

import (
	"context"
	"sync"

	"github.com/caxton-rt/caxton/internal/domain"
	"github.com/caxton-rt/caxton/internal/logging"
)

// OutboundTransport is the pluggable interface the runtime's remote
// delivery path is parameterized by: anything that can ship a message to
// a node-id. Client satisfies it; a test double can stand in for it.
type OutboundTransport interface {
	Deliver(ctx context.Context, msg domain.Message) (accepted bool, reason string, err error)
}

// Forwarder drains a node's outbound channel (as returned by
// delivery.Engine.RegisterOutbound) and ships each message through an
// OutboundTransport, one goroutine per node.
type Forwarder struct {
	wg sync.WaitGroup
}

// Run starts draining outbound for node through transport until outbound
// is closed or ctx is done.
func (f *Forwarder) Run(ctx context.Context, node domain.NodeID, outbound <-chan domain.Message, transport OutboundTransport) {
	f.wg.Add(1)
	go func() {
		defer f.wg.Done()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-outbound:
				if !ok {
					return
				}
				accepted, reason, err := transport.Deliver(ctx, msg)
				if err != nil {
					logging.Op().Warn("remote delivery failed", "node_id", node.String(), "message_id", msg.ID.String(), "error", err)
					continue
				}
				if !accepted {
					logging.Op().Warn("remote node rejected delivery", "node_id", node.String(), "message_id", msg.ID.String(), "reason", reason)
				}
			}
		}
	}()
}

// Wait blocks until every Run goroutine has returned.
func (f *Forwarder) Wait() { f.wg.Wait() }
