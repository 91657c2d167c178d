// Package localnet is an in-process Transport: one buffered inbox channel
// per rank and a Hub that forwards point-to-point sends between them. It is
// the direct collapse-into-one-process analogue of the retrieved transport
// library's controller.Controller (central fan-out) plus dsnet.DSNet.Inbox
// (per-node buffered inbox), used by the engine's own tests and by the
// single-binary multi-goroutine demo.
package localnet

import (
	"context"
	"fmt"
	"sync"

	"github.com/desecnd/gnomes-rat-killers/transport"
)

type envelope struct {
	from    int
	payload transport.Payload
}

// Hub wires together the inboxes for a fixed-size process group. Per-pair
// FIFO holds by construction: each rank's inbox is a single buffered
// channel, and a sender only ever appends to it in send order.
type Hub struct {
	mu      sync.Mutex
	inboxes map[int]chan envelope
	closed  bool
}

// NewHub creates a Hub for size ranks, each with an inbox of the given
// buffer capacity (0 is invalid for the localnet transport; use a
// reasonably large buffer, e.g. 256, to avoid Send blocking on a slow
// peer — the spec does not model backpressure).
func NewHub(size, bufferPerRank int) *Hub {
	h := &Hub{inboxes: make(map[int]chan envelope, size)}
	for r := 0; r < size; r++ {
		h.inboxes[r] = make(chan envelope, bufferPerRank)
	}
	return h
}

// Conn returns a Transport bound to rank, backed by this Hub.
func (h *Hub) Conn(rank int) (*Conn, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.inboxes[rank]; !ok {
		return nil, fmt.Errorf("localnet: no such rank %d", rank)
	}
	return &Conn{hub: h, self: rank}, nil
}

func (h *Hub) send(ctx context.Context, from, dest int, p transport.Payload) error {
	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		return fmt.Errorf("localnet: hub closed")
	}
	inbox, ok := h.inboxes[dest]
	h.mu.Unlock()
	if !ok {
		return fmt.Errorf("localnet: no such rank %d", dest)
	}

	select {
	case inbox <- envelope{from: from, payload: p}:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close closes every inbox. Pending, unread messages are dropped.
func (h *Hub) Close() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return nil
	}
	h.closed = true
	for _, inbox := range h.inboxes {
		close(inbox)
		for range inbox {
		}
	}
	return nil
}
