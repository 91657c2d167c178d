package engine

import (
	"context"
	"fmt"

	"github.com/desecnd/gnomes-rat-killers/internal/clock"
	"github.com/desecnd/gnomes-rat-killers/internal/queue"
	"github.com/desecnd/gnomes-rat-killers/internal/tally"
	"github.com/desecnd/gnomes-rat-killers/internal/netlog"
	"github.com/desecnd/gnomes-rat-killers/transport"
)

// MessageHandler reacts to inbound messages: it advances the clock, mutates
// the process's resource queue, and emits ACKs for newly-granted peers. It
// never touches the FSM directly; the FSM only observes the tally and queue
// it shares with the handler.
type MessageHandler struct {
	role  Role
	clock *clock.Clock
	queue *queue.ResourceQueue
	tally *tally.AckTally
	log   netlog.Logger
}

// NewMessageHandler builds a handler sharing the given clock, queue and
// tally with the owning Process/FSM.
func NewMessageHandler(role Role, c *clock.Clock, q *queue.ResourceQueue, t *tally.AckTally, log netlog.Logger) *MessageHandler {
	if log == nil {
		log = netlog.NoOp{}
	}
	return &MessageHandler{role: role, clock: c, queue: q, tally: t, log: log}
}

// Handle processes one inbound message, sending an ACK over tr when the
// grant window now reaches a new candidate. It panics on any of the
// protocol-invariant violations the spec treats as unrecoverable; queue and
// tally already panic for their share of these, this only adds the
// resource-mismatch check that is this layer's own responsibility.
func (h *MessageHandler) Handle(ctx context.Context, tr transport.Transport, msg Message) error {
	h.clock.OnRecv(msg.TS)

	if msg.Resource != h.role.Consumes {
		panic(fmt.Sprintf("handler: rank %d received %s for resource %s, but tracks %s",
			h.role.Rank, msg.Kind, msg.Resource, h.role.Consumes))
	}

	var (
		candidate int
		haveCand  bool
	)

	switch msg.Kind {
	case KindRequest:
		if h.queue.AddRequest(msg.Sender, msg.TS) {
			candidate, haveCand = msg.Sender, true
		}
		h.log.Printf("[%s%d] queued REQUEST(%s,ts=%d) from %d", h.role.Class, h.role.Rank, msg.Resource, msg.TS, msg.Sender)

	case KindConsume:
		h.queue.Consume(msg.Sender)
		h.log.Printf("[%s%d] observed CONSUME(%s) from %d", h.role.Class, h.role.Rank, msg.Resource, msg.Sender)

	case KindProduce:
		candidate, haveCand = h.queue.Produce()
		h.log.Printf("[%s%d] observed PRODUCE(%s) from %d, available=%d", h.role.Class, h.role.Rank, msg.Resource, msg.Sender, h.queue.Available())

	case KindAck:
		h.tally.Record(msg.Sender)
		h.log.Printf("[%s%d] received ACK(%s) from %d", h.role.Class, h.role.Rank, msg.Resource, msg.Sender)

	default:
		panic(fmt.Sprintf("handler: unknown message kind %v", msg.Kind))
	}

	if !haveCand {
		return nil
	}

	h.queue.MarkAckSent(candidate)

	if candidate == h.role.Rank {
		h.tally.RecordSelf()
		return nil
	}

	ts := h.clock.OnSend()
	h.log.Printf("[%s%d] granting ACK(%s) to %d at ts=%d", h.role.Class, h.role.Rank, h.role.Consumes, candidate, ts)
	return tr.Send(ctx, candidate, transport.Payload{
		Kind:     int32(KindAck),
		Resource: int32(h.role.Consumes),
		TS:       ts,
	})
}
